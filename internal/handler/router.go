/*
Package handler provides the HTTP handlers and routing setup for the AgroLink realtime server.

This file defines the main Router, applying middleware like logging, CORS,
and IP-based rate limiting before delegating to the REST and WebSocket handlers.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"agrolink/internal/pkg/auth/jwt"
	"agrolink/internal/pkg/limiter"
	"agrolink/internal/pkg/logx"
	"agrolink/internal/pkg/resp"
)

const (
	// SocialRate limits friend/group mutations per IP.
	SocialRate  = 0.5
	SocialBurst = 5

	// ConnectRate limits WebSocket connection attempts per IP.
	ConnectRate  = 0.2
	ConnectBurst = 5
)

// Router sets up the main routing table (chi.Router) for the application.
func Router(deps *AppDeps) http.Handler {
	socialLimiter := limiter.NewIPRateLimiter(rate.Limit(SocialRate), SocialBurst)
	connectLimiter := limiter.NewIPRateLimiter(rate.Limit(ConnectRate), ConnectBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.Environment == "development" {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.Environment == "development" {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]string{
			"status":  "ok",
			"service": "AgroLink Realtime Server",
		})
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret))

		api.Route("/friends", func(friends chi.Router) {
			friends.Use(socialLimiter.Middleware)
			friends.Post("/requests", HandleFriendRequest(deps))
			friends.Post("/requests/{userID}/accept", HandleFriendAccept(deps))
			friends.Post("/requests/{userID}/decline", HandleFriendDecline(deps))
			friends.Post("/{userID}/block", HandleFriendBlock(deps))
			friends.Get("/", HandleFriendList(deps))
		})

		api.Route("/groups", func(groups chi.Router) {
			groups.Use(socialLimiter.Middleware)
			groups.Post("/{groupID}/join", HandleGroupJoin(deps))
			groups.Post("/{groupID}/leave", HandleGroupLeave(deps))
			groups.Get("/{groupID}/messages", HandleGroupHistory(deps))
		})

		api.Get("/conversations/{userID}/messages", HandleConversation(deps))
		api.Get("/messages/unread", HandleUnreadCounts(deps))
		api.Get("/presence/{userID}", HandlePresenceQuery(deps))

		api.Post("/attachments/presign-upload", HandlePresignUpload(deps))
		api.Get("/attachments/presign-download", HandlePresignDownload(deps))
	})

	r.Get("/ws", connectLimiter.Middleware(HandleWebSocket(wsUpgrader, deps)).ServeHTTP)

	return r
}
