/*
Package chat contains the realtime presence and messaging core.

This file defines the room membership manager. A channel is a logical fan-out
target: every identity has an implicit private channel, and every active
group has one. Connections subscribe to channels on admission and through the
explicit join/leave hooks; fan-out delivers one event to every subscribed
connection without blocking on any of them.
*/
package chat

import (
	"sync"

	"github.com/rs/zerolog"

	"agrolink/internal/pkg/logx"
)

// IdentityChannel is the private channel key of an identity.
func IdentityChannel(identityID string) string {
	return "user:" + identityID
}

// GroupChannel is the channel key of a group.
func GroupChannel(groupID string) string {
	return "group:" + groupID
}

// Rooms maps channel keys to the connections subscribed to them.
type Rooms struct {
	mu     sync.RWMutex
	subs   map[string]map[string]struct{}
	byConn map[string]map[string]struct{}

	registry *Registry

	// onSlowConsumer is invoked (outside the lock) for a connection whose
	// send queue rejected a delivery. The hub closes such connections; no
	// buffered events are owed to them.
	onSlowConsumer func(connID string)

	logger zerolog.Logger
}

// NewRooms constructs a Rooms manager resolving connections through registry.
func NewRooms(registry *Registry) *Rooms {
	return &Rooms{
		subs:     make(map[string]map[string]struct{}),
		byConn:   make(map[string]map[string]struct{}),
		registry: registry,
		logger:   logx.Logger().With().Str("component", "Rooms").Logger(),
	}
}

// OnSlowConsumer registers the eviction callback. Register before serving traffic.
func (rm *Rooms) OnSlowConsumer(fn func(connID string)) {
	rm.onSlowConsumer = fn
}

// Subscribe adds a connection to a channel. Subscribing twice is a no-op.
func (rm *Rooms) Subscribe(connID, channel string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	set, ok := rm.subs[channel]
	if !ok {
		set = make(map[string]struct{})
		rm.subs[channel] = set
	}
	set[connID] = struct{}{}

	channels, ok := rm.byConn[connID]
	if !ok {
		channels = make(map[string]struct{})
		rm.byConn[connID] = channels
	}
	channels[channel] = struct{}{}
}

// Unsubscribe removes a connection from a channel.
func (rm *Rooms) Unsubscribe(connID, channel string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.unsubscribeLocked(connID, channel)
}

func (rm *Rooms) unsubscribeLocked(connID, channel string) {
	if set, ok := rm.subs[channel]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(rm.subs, channel)
		}
	}
	if channels, ok := rm.byConn[connID]; ok {
		delete(channels, channel)
		if len(channels) == 0 {
			delete(rm.byConn, connID)
		}
	}
}

// DropConnection removes a connection from every channel it is subscribed
// to. Called on disconnect; from this point no further events reach it.
func (rm *Rooms) DropConnection(connID string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	for channel := range rm.byConn[connID] {
		rm.unsubscribeLocked(connID, channel)
	}
	delete(rm.byConn, connID)
}

// JoinGroup subscribes every live connection of an identity to a group
// channel. This is the explicit resubscribe hook invoked when the identity
// joins a group after admission.
func (rm *Rooms) JoinGroup(identityID, groupID string) {
	for _, connID := range rm.registry.ConnectionsOf(identityID) {
		rm.Subscribe(connID, GroupChannel(groupID))
	}
}

// LeaveGroup unsubscribes every live connection of an identity from a group
// channel.
func (rm *Rooms) LeaveGroup(identityID, groupID string) {
	for _, connID := range rm.registry.ConnectionsOf(identityID) {
		rm.Unsubscribe(connID, GroupChannel(groupID))
	}
}

// Subscribers returns a snapshot of the connections subscribed to a channel.
func (rm *Rooms) Subscribers(channel string) []string {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	set := rm.subs[channel]
	out := make([]string, 0, len(set))
	for connID := range set {
		out = append(out, connID)
	}
	return out
}

// FanOut delivers an event to every connection subscribed to the channel and
// returns the delivery count. Zero subscribers is not an error: the
// recipient is simply offline. Delivery never blocks; a connection whose
// queue is full is reported to the slow-consumer callback and skipped.
func (rm *Rooms) FanOut(channel string, ev Event) int {
	return rm.fanOut(channel, ev, "")
}

// FanOutExcluding behaves like FanOut but skips every connection owned by
// excludeIdentityID. Used for typing signals, which must not echo back to
// any of the originator's own devices.
func (rm *Rooms) FanOutExcluding(channel, excludeIdentityID string, ev Event) int {
	return rm.fanOut(channel, ev, excludeIdentityID)
}

func (rm *Rooms) fanOut(channel string, ev Event, excludeIdentityID string) int {
	connIDs := rm.Subscribers(channel)

	delivered := 0
	for _, connID := range connIDs {
		if excludeIdentityID != "" {
			owner, err := rm.registry.IdentityOf(connID)
			if err != nil || owner.ID == excludeIdentityID {
				continue
			}
		}

		pusher, ok := rm.registry.PusherOf(connID)
		if !ok {
			// Raced with a disconnect; the subscription cleanup will follow.
			continue
		}

		if !pusher.Push(ev) {
			rm.logger.Warn().
				Str("conn_id", connID).
				Str("channel", channel).
				Str("event_type", string(ev.Type)).
				Msg("Connection send queue full, scheduling eviction.")

			if rm.onSlowConsumer != nil {
				rm.onSlowConsumer(connID)
			}
			continue
		}
		delivered++
	}
	return delivered
}
