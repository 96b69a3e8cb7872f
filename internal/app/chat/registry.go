/*
Package chat contains the realtime presence and messaging core.

This file defines the connection registry: the authoritative map from live
transport connections to the identities that own them. An identity may hold
any number of simultaneous connections (multi-device); a connection belongs
to exactly one identity for its whole lifetime.
*/
package chat

import (
	"sync"

	"github.com/rs/zerolog"

	"agrolink/internal/app/identity"
	"agrolink/internal/pkg/errs"
	"agrolink/internal/pkg/logx"
)

// Pusher delivers one encoded event to a live connection without blocking.
// Push returns false when the connection's queue is full or closed.
type Pusher interface {
	Push(ev Event) bool
}

type connEntry struct {
	user   identity.Identity
	pusher Pusher
}

// Registry tracks every live connection and which identity owns it.
// Presence is wired in as observer callbacks on the first-connect and
// last-disconnect transitions rather than inlined, so it can be tested
// independently of transport.
type Registry struct {
	mu         sync.RWMutex
	conns      map[string]connEntry
	byIdentity map[string]map[string]struct{}

	onFirstConnect   []func(identity.Identity)
	onLastDisconnect []func(identity.Identity)

	logger zerolog.Logger
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:      make(map[string]connEntry),
		byIdentity: make(map[string]map[string]struct{}),
		logger:     logx.Logger().With().Str("component", "Registry").Logger(),
	}
}

// OnFirstConnect registers an observer invoked when an identity's connection
// set goes from empty to non-empty. Observers run after the registry mutation,
// outside the registry lock. Register before serving traffic.
func (r *Registry) OnFirstConnect(fn func(identity.Identity)) {
	r.onFirstConnect = append(r.onFirstConnect, fn)
}

// OnLastDisconnect registers an observer invoked when an identity's
// connection set becomes empty.
func (r *Registry) OnLastDisconnect(fn func(identity.Identity)) {
	r.onLastDisconnect = append(r.onLastDisconnect, fn)
}

// Admit records a new live connection for an already-authenticated identity.
// Identity verification happens during the transport handshake; an empty
// identity here means that step was skipped and the admit is refused.
func (r *Registry) Admit(user identity.Identity, connID string, pusher Pusher) error {
	if user.ID == "" {
		return errs.NewError(errs.ErrUnauthenticated)
	}
	if connID == "" || pusher == nil {
		return errs.NewError(errs.ErrInvalidParams)
	}

	r.mu.Lock()
	if _, exists := r.conns[connID]; exists {
		r.mu.Unlock()
		r.logger.Warn().Str("conn_id", connID).Msg("Duplicate connection id refused.")
		return errs.NewError(errs.ErrInvalidParams)
	}

	r.conns[connID] = connEntry{user: user, pusher: pusher}

	set, ok := r.byIdentity[user.ID]
	if !ok {
		set = make(map[string]struct{})
		r.byIdentity[user.ID] = set
	}
	first := len(set) == 0
	set[connID] = struct{}{}
	total := len(set)
	r.mu.Unlock()

	r.logger.Info().
		Str("user_id", user.ID).
		Str("conn_id", connID).
		Int("device_count", total).
		Msg("Connection admitted.")

	if first {
		for _, fn := range r.onFirstConnect {
			fn(user)
		}
	}
	return nil
}

// Remove discards one connection. When it was the identity's last connection,
// the last-disconnect observers fire.
func (r *Registry) Remove(connID string) {
	r.mu.Lock()
	entry, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.conns, connID)

	last := false
	if set, ok := r.byIdentity[entry.user.ID]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.byIdentity, entry.user.ID)
			last = true
		}
	}
	r.mu.Unlock()

	r.logger.Info().
		Str("user_id", entry.user.ID).
		Str("conn_id", connID).
		Bool("last_connection", last).
		Msg("Connection removed.")

	if last {
		for _, fn := range r.onLastDisconnect {
			fn(entry.user)
		}
	}
}

// ConnectionsOf returns the live connection ids of an identity.
func (r *Registry) ConnectionsOf(identityID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.byIdentity[identityID]
	out := make([]string, 0, len(set))
	for connID := range set {
		out = append(out, connID)
	}
	return out
}

// IdentityOf returns the identity owning a connection, or ErrNotFound.
func (r *Registry) IdentityOf(connID string) (identity.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.conns[connID]
	if !ok {
		return identity.Identity{}, errs.NewError(errs.ErrNotFound)
	}
	return entry.user, nil
}

// PusherOf returns the delivery sink of a connection.
func (r *Registry) PusherOf(connID string) (Pusher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.conns[connID]
	if !ok {
		return nil, false
	}
	return entry.pusher, true
}

// IsOnline reports whether the identity currently has at least one live
// connection. This is the single source of truth for online state.
func (r *Registry) IsOnline(identityID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byIdentity[identityID]) > 0
}
