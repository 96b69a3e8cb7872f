/*
Package handler provides the HTTP handlers and routing setup for the AgroLink realtime server.

This file contains the private conversation history and presence query
handlers.
*/
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"agrolink/internal/app/presence"
	"agrolink/internal/pkg/auth/jwt"
	"agrolink/internal/pkg/errs"
	"agrolink/internal/pkg/resp"
)

// HandleConversation returns the most recent private messages between the
// caller and the user in the path, oldest first.
func HandleConversation(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthenticated))
			return
		}

		otherID := chi.URLParam(r, "userID")
		if otherID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		messages, err := deps.Messages.Conversation(r.Context(), payload.ID, otherID, historyLimit(r))
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrPersistenceFailure))
			return
		}

		resp.RespondSuccess(w, r, messages)
	}
}

// HandleUnreadCounts returns the caller's unread private message counts,
// keyed by sender id.
func HandleUnreadCounts(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthenticated))
			return
		}

		counts, err := deps.Messages.UnreadCounts(r.Context(), payload.ID)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrPersistenceFailure))
			return
		}

		resp.RespondSuccess(w, r, counts)
	}
}

// HandlePresenceQuery returns the presence record of the user in the path.
// The live registry is authoritative for online state; the persisted record
// only contributes the last-seen timestamp once the user is offline.
func HandlePresenceQuery(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthenticated))
			return
		}

		userID := chi.URLParam(r, "userID")
		if userID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if deps.Hub.Registry().IsOnline(userID) {
			resp.RespondSuccess(w, r, presence.Record{
				UserID:   userID,
				IsOnline: true,
				LastSeen: time.Now().UTC(),
			})
			return
		}

		record, err := deps.Presence.Get(r.Context(), userID)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrPersistenceFailure))
			return
		}

		resp.RespondSuccess(w, r, record)
	}
}
