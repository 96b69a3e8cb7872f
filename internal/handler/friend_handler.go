/*
Package handler provides the HTTP handlers and routing setup for the AgroLink realtime server.

This file contains the friend-relationship handlers: sending, accepting,
declining, and blocking requests, plus listing the accepted set with live
online flags.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"agrolink/internal/pkg/auth/jwt"
	"agrolink/internal/pkg/errs"
	"agrolink/internal/pkg/req"
	"agrolink/internal/pkg/resp"
)

// friendRequestBody is the payload for creating a friend request.
type friendRequestBody struct {
	UserID string `json:"userId"`
}

// friendEntry is one row of the friend list, enriched with the live
// connection state from the registry.
type friendEntry struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

// HandleFriendRequest creates a pending friend request toward another user.
func HandleFriendRequest(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthenticated))
			return
		}

		var body friendRequestBody
		if customErr := req.BindJSON(w, r, &body); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}
		if body.UserID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		exists, err := deps.Identities.Exists(r.Context(), body.UserID)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrPersistenceFailure))
			return
		}
		if !exists {
			resp.RespondError(w, r, errs.NewError(errs.ErrNotFound))
			return
		}

		rel, err := deps.Friends.Request(r.Context(), payload.ID, body.UserID)
		if err != nil {
			resp.RespondError(w, r, errs.As(err))
			return
		}

		resp.RespondSuccess(w, r, rel)
	}
}

// HandleFriendAccept accepts the pending request sent by the user in the path.
func HandleFriendAccept(deps *AppDeps) http.HandlerFunc {
	return respondToRequest(deps, func(deps *AppDeps, r *http.Request, actorID, otherID string) error {
		return deps.Friends.Accept(r.Context(), actorID, otherID)
	})
}

// HandleFriendDecline declines the pending request sent by the user in the path.
func HandleFriendDecline(deps *AppDeps) http.HandlerFunc {
	return respondToRequest(deps, func(deps *AppDeps, r *http.Request, actorID, otherID string) error {
		return deps.Friends.Decline(r.Context(), actorID, otherID)
	})
}

// HandleFriendBlock blocks the user in the path, whatever the current
// relationship state.
func HandleFriendBlock(deps *AppDeps) http.HandlerFunc {
	return respondToRequest(deps, func(deps *AppDeps, r *http.Request, actorID, otherID string) error {
		return deps.Friends.Block(r.Context(), actorID, otherID)
	})
}

// respondToRequest factors the shared shape of the relationship transition
// handlers: authenticate, read the counterpart id from the path, apply.
func respondToRequest(
	deps *AppDeps,
	apply func(deps *AppDeps, r *http.Request, actorID, otherID string) error,
) http.HandlerFunc {
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

		if err := apply(deps, r, payload.ID, otherID); err != nil {
			resp.RespondError(w, r, errs.As(err))
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}

// HandleFriendList returns the caller's accepted friends with a live online
// flag per entry.
func HandleFriendList(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthenticated))
			return
		}

		friendIDs, err := deps.Friends.FriendIDs(r.Context(), payload.ID)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrPersistenceFailure))
			return
		}

		registry := deps.Hub.Registry()

		entries := make([]friendEntry, 0, len(friendIDs))
		for _, id := range friendIDs {
			entries = append(entries, friendEntry{
				UserID:   id,
				IsOnline: registry.IsOnline(id),
			})
		}

		resp.RespondSuccess(w, r, entries)
	}
}
