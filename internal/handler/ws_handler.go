/*
Package handler provides the HTTP handlers and routing setup for the AgroLink realtime server.

This file contains the WebSocket admission handler: it verifies the bearer
token within a bounded window, upgrades the connection, and hands the client
to the hub.
*/
package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"agrolink/internal/app/chat"
	"agrolink/internal/pkg/auth/jwt"
	"agrolink/internal/pkg/errs"
	"agrolink/internal/pkg/logx"
	"agrolink/internal/pkg/resp"
)

// authWindow bounds identity verification for an incoming connection. A
// connection that cannot be verified inside the window is rejected.
const authWindow = 5 * time.Second

// HandleWebSocket processes WebSocket connection requests.
// The session token usually arrives as a `token` query parameter because
// browser WebSocket clients cannot set an Authorization header; non-browser
// clients may use the header instead.
func HandleWebSocket(upgrader websocket.Upgrader, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := connectionToken(r)
		if tokenString == "" {
			logx.Warn("WebSocket request rejected: missing token")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthenticated))
			return
		}

		authCtx, cancel := context.WithTimeout(r.Context(), authWindow)
		defer cancel()

		payload, err := jwt.ParseToken(tokenString, deps.Config.JWTSecret)
		if err != nil {
			logx.Warn("WebSocket request rejected: invalid token", "error", err)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthenticated))
			return
		}

		// Re-read the authoritative identity so display names in fan-out
		// payloads never trail a stale token.
		user, err := deps.Identities.Get(authCtx, payload.ID)
		if err != nil {
			logx.Warn("WebSocket request rejected: unknown identity", "user_id", payload.ID, "error", err)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthenticated))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := chat.NewClient(deps.Hub, conn, user)

		go client.WritePump()

		if err := deps.Hub.Admit(authCtx, client); err != nil {
			logx.Error(err, "WebSocket admission failed", "user_id", user.ID)
			client.Kick("Admission failed.")
			return
		}

		logx.Info("WebSocket connection established", "user_id", user.ID, "conn_id", client.ID())

		client.ReadPump()
	}
}

// connectionToken extracts the session token from the query parameter or,
// failing that, a standard bearer Authorization header.
func connectionToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if rest, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return rest
	}
	return ""
}
