/*
Package chat contains the realtime presence and messaging core.

This file defines the presence tracker. Online state is derived from the
connection registry; this component persists it best-effort and broadcasts
transitions to the live connections of the user's accepted friends. There is
no queueing: an offline friend learns nothing until they reconnect and query.
*/
package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"agrolink/internal/app/identity"
	"agrolink/internal/pkg/logx"
)

// presenceOpTimeout bounds the store and friend lookups a presence
// transition performs.
const presenceOpTimeout = 5 * time.Second

// PresenceStore persists presence records. Failures are logged and swallowed:
// presence is best-effort durable but must stay live-accurate.
type PresenceStore interface {
	Upsert(ctx context.Context, userID string, isOnline bool, lastSeen time.Time) error
}

// FriendSource resolves the accepted-relationship set of an identity.
type FriendSource interface {
	FriendIDs(ctx context.Context, userID string) ([]string, error)
}

// Tracker derives online/offline plus last-seen from registry transitions.
type Tracker struct {
	store    PresenceStore
	friends  FriendSource
	rooms    *Rooms
	registry *Registry

	now    func() time.Time
	logger zerolog.Logger
}

// NewTracker constructs a Tracker and registers it on the registry's
// connection transitions.
func NewTracker(registry *Registry, rooms *Rooms, store PresenceStore, friends FriendSource) *Tracker {
	t := &Tracker{
		store:    store,
		friends:  friends,
		rooms:    rooms,
		registry: registry,
		now:      time.Now,
		logger:   logx.Logger().With().Str("component", "PresenceTracker").Logger(),
	}

	registry.OnFirstConnect(t.handleFirstConnect)
	registry.OnLastDisconnect(t.handleLastDisconnect)

	return t
}

func (t *Tracker) handleFirstConnect(user identity.Identity) {
	ctx, cancel := context.WithTimeout(context.Background(), presenceOpTimeout)
	defer cancel()
	t.SetOnline(ctx, user.ID)
}

func (t *Tracker) handleLastDisconnect(user identity.Identity) {
	// A reconnect can race the disconnect that triggered this callback. The
	// registry is the source of truth: when the identity is already back
	// online, the offline transition is obsolete and skipped.
	if t.registry.IsOnline(user.ID) {
		t.logger.Debug().Str("user_id", user.ID).Msg("Reconnect won the race, skipping offline transition.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), presenceOpTimeout)
	defer cancel()
	t.SetOffline(ctx, user.ID)
}

// SetOnline marks the identity online, persists the record best-effort, and
// broadcasts the transition to live friends. Idempotent.
func (t *Tracker) SetOnline(ctx context.Context, userID string) {
	now := t.now()

	if err := t.store.Upsert(ctx, userID, true, now); err != nil {
		t.logger.Error().Err(err).Str("user_id", userID).Msg("Presence persistence failed, state stays live-accurate.")
	}

	t.broadcastStatus(ctx, userID, FriendOnlineEvent(userID))
}

// SetOffline marks the identity offline with last-seen = now, persists the
// record best-effort, and broadcasts the transition to live friends.
func (t *Tracker) SetOffline(ctx context.Context, userID string) {
	now := t.now()

	if err := t.store.Upsert(ctx, userID, false, now); err != nil {
		t.logger.Error().Err(err).Str("user_id", userID).Msg("Presence persistence failed, state stays live-accurate.")
	}

	t.broadcastStatus(ctx, userID, FriendOfflineEvent(userID, now))
}

// broadcastStatus delivers a status event to each accepted friend's private
// channel. Friends without live connections receive nothing.
func (t *Tracker) broadcastStatus(ctx context.Context, userID string, ev Event) {
	friendIDs, err := t.friends.FriendIDs(ctx, userID)
	if err != nil {
		t.logger.Error().Err(err).Str("user_id", userID).Msg("Could not resolve friends for status broadcast.")
		return
	}

	for _, friendID := range friendIDs {
		t.rooms.FanOut(IdentityChannel(friendID), ev)
	}
}
