/*
Package handler provides the HTTP handlers and routing setup for the AgroLink realtime server.

This file contains the group membership handlers. Membership mutations update
the store and immediately adjust the live channel subscriptions of every
connection the user has open.
*/
package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"agrolink/internal/app/social"
	"agrolink/internal/pkg/auth/jwt"
	"agrolink/internal/pkg/errs"
	"agrolink/internal/pkg/resp"
)

const (
	// defaultHistoryLimit applies when the client omits the limit parameter.
	defaultHistoryLimit = 50

	// maxHistoryLimit caps how many messages one history call may return.
	maxHistoryLimit = 200
)

// HandleGroupJoin adds the caller to the group and subscribes its live
// connections to the group channel.
func HandleGroupJoin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthenticated))
			return
		}

		groupID := chi.URLParam(r, "groupID")
		if groupID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		group, err := deps.Groups.Get(r.Context(), groupID)
		if err != nil {
			resp.RespondError(w, r, errs.As(err))
			return
		}

		if err := deps.Groups.AddMember(r.Context(), group.ID, payload.ID, social.RoleMember); err != nil {
			resp.RespondError(w, r, errs.As(err))
			return
		}

		deps.Hub.ResubscribeGroup(payload.ID, group.ID)

		resp.RespondSuccess(w, r, group)
	}
}

// HandleGroupLeave removes the caller from the group and drops its live
// connections from the group channel.
func HandleGroupLeave(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthenticated))
			return
		}

		groupID := chi.URLParam(r, "groupID")
		if groupID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if err := deps.Groups.RemoveMember(r.Context(), groupID, payload.ID); err != nil {
			resp.RespondError(w, r, errs.As(err))
			return
		}

		deps.Hub.UnsubscribeGroup(payload.ID, groupID)

		resp.RespondSuccess(w, r, nil)
	}
}

// HandleGroupHistory returns the most recent messages of a group, oldest
// first. Only members may read.
func HandleGroupHistory(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthenticated))
			return
		}

		groupID := chi.URLParam(r, "groupID")
		if groupID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		isMember, err := deps.Groups.IsMember(r.Context(), groupID, payload.ID)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrPersistenceFailure))
			return
		}
		if !isMember {
			resp.RespondError(w, r, errs.NewError(errs.ErrNotAMember))
			return
		}

		messages, err := deps.Messages.GroupHistory(r.Context(), groupID, historyLimit(r))
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrPersistenceFailure))
			return
		}

		resp.RespondSuccess(w, r, messages)
	}
}

// historyLimit parses the optional limit query parameter, clamping it to the
// allowed range.
func historyLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultHistoryLimit
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}
