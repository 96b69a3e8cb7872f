package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrolink/internal/app/message"
	"agrolink/internal/app/social"
	"agrolink/internal/pkg/errs"
)

// stubReadMarker accepts only the ids it knows, mapping each to its sender.
type stubReadMarker struct {
	senders map[string]string
	fail    bool
}

func (s *stubReadMarker) MarkRead(_ context.Context, _ string, ids []string, _ time.Time) ([]message.ReadMark, error) {
	if s.fail {
		return nil, errors.New("update failed")
	}
	var marks []message.ReadMark
	for _, id := range ids {
		if senderID, ok := s.senders[id]; ok {
			marks = append(marks, message.ReadMark{MessageID: id, SenderID: senderID})
		}
	}
	return marks, nil
}

func TestReceiptsMarkReadAcceptsOwnedSubsetOnly(t *testing.T) {
	registry := NewRegistry()
	rooms := NewRooms(registry)
	marker := &stubReadMarker{senders: map[string]string{
		"m1": "alice",
		"m2": "alice",
		"m3": "carol",
	}}
	receipts := NewReceipts(marker, rooms)

	alice := admitSubscribed(t, registry, rooms, "alice", "a-1")
	carol := admitSubscribed(t, registry, rooms, "carol", "c-1")

	// m9 is not bob's to mark; it is silently dropped.
	accepted, err := receipts.MarkRead(context.Background(), testIdentity("bob"), []string{"m1", "m2", "m3", "m9"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"m1", "m2", "m3"}, accepted)

	// One receipt per sender, listing only that sender's messages.
	aliceReceipts := alice.EventsOfType(EventMessagesRead)
	require.Len(t, aliceReceipts, 1)
	alicePayload := aliceReceipts[0].Payload.(ReadReceiptPayload)
	assert.Equal(t, "bob", alicePayload.ReaderID)
	assert.ElementsMatch(t, []string{"m1", "m2"}, alicePayload.MessageIDs)

	carolReceipts := carol.EventsOfType(EventMessagesRead)
	require.Len(t, carolReceipts, 1)
	assert.Equal(t, []string{"m3"}, carolReceipts[0].Payload.(ReadReceiptPayload).MessageIDs)
}

func TestReceiptsMarkReadNothingAccepted(t *testing.T) {
	registry := NewRegistry()
	rooms := NewRooms(registry)
	receipts := NewReceipts(&stubReadMarker{senders: map[string]string{}}, rooms)

	alice := admitSubscribed(t, registry, rooms, "alice", "a-1")

	accepted, err := receipts.MarkRead(context.Background(), testIdentity("bob"), []string{"m1"})
	require.NoError(t, err)
	assert.Empty(t, accepted)
	assert.Empty(t, alice.Events())
}

func TestReceiptsMarkReadStoreFailure(t *testing.T) {
	registry := NewRegistry()
	rooms := NewRooms(registry)
	receipts := NewReceipts(&stubReadMarker{fail: true}, rooms)

	_, err := receipts.MarkRead(context.Background(), testIdentity("bob"), []string{"m1"})
	require.Error(t, err)
	assert.Equal(t, errs.ErrPersistenceFailure, errs.CodeOf(err))
}

func newTypingFixture(t *testing.T) (*Registry, *Rooms, *TypingRelay) {
	t.Helper()
	registry := NewRegistry()
	rooms := NewRooms(registry)

	friends := &stubRelationshipGate{status: map[[2]string]social.Status{
		{"alice", "bob"}: social.StatusAccepted,
	}}
	groups := &stubGroupGate{members: map[string]map[string]bool{
		"g1": {"alice": true, "bob": true},
	}}

	return registry, rooms, NewTypingRelay(friends, groups, rooms)
}

func TestTypingRelayPrivateExcludesOwnDevices(t *testing.T) {
	registry, rooms, relay := newTypingFixture(t)

	aliceOther := admitSubscribed(t, registry, rooms, "alice", "a-2")
	bob := admitSubscribed(t, registry, rooms, "bob", "b-1")
	admitSubscribed(t, registry, rooms, "alice", "a-1")

	err := relay.Relay(context.Background(), testIdentity("alice"), TypingTarget{ReceiverID: "bob"}, true)
	require.NoError(t, err)

	typings := bob.EventsOfType(EventUserTyping)
	require.Len(t, typings, 1)
	payload := typings[0].Payload.(TypingPayload)
	assert.Equal(t, "alice", payload.UserID)
	assert.Equal(t, "bob", payload.ReceiverID)

	assert.Empty(t, aliceOther.Events(), "originator's other devices never see their own typing")
}

func TestTypingRelayGroupExcludesAllOriginatorConnections(t *testing.T) {
	registry, rooms, relay := newTypingFixture(t)

	groupChannel := GroupChannel("g1")
	aliceA := admitSubscribed(t, registry, rooms, "alice", "a-1")
	aliceB := admitSubscribed(t, registry, rooms, "alice", "a-2")
	bob := admitSubscribed(t, registry, rooms, "bob", "b-1")
	rooms.Subscribe("a-1", groupChannel)
	rooms.Subscribe("a-2", groupChannel)
	rooms.Subscribe("b-1", groupChannel)

	err := relay.Relay(context.Background(), testIdentity("alice"), TypingTarget{GroupID: "g1"}, true)
	require.NoError(t, err)

	assert.Empty(t, aliceA.EventsOfType(EventUserTyping))
	assert.Empty(t, aliceB.EventsOfType(EventUserTyping))
	assert.Len(t, bob.EventsOfType(EventUserTyping), 1)
}

func TestTypingRelayStopSignal(t *testing.T) {
	registry, rooms, relay := newTypingFixture(t)

	bob := admitSubscribed(t, registry, rooms, "bob", "b-1")

	err := relay.Relay(context.Background(), testIdentity("alice"), TypingTarget{ReceiverID: "bob"}, false)
	require.NoError(t, err)

	require.Len(t, bob.EventsOfType(EventUserStoppedTyping), 1)
}

func TestTypingRelayRejectsNonFriend(t *testing.T) {
	registry, rooms, relay := newTypingFixture(t)

	stranger := admitSubscribed(t, registry, rooms, "mallory", "m-1")

	err := relay.Relay(context.Background(), testIdentity("alice"), TypingTarget{ReceiverID: "mallory"}, true)
	require.Error(t, err)
	assert.Equal(t, errs.ErrNotAuthorized, errs.CodeOf(err))
	assert.Empty(t, stranger.Events())
}

func TestTypingRelayRejectsNonMember(t *testing.T) {
	registry, rooms, relay := newTypingFixture(t)

	groupChannel := GroupChannel("g1")
	bob := admitSubscribed(t, registry, rooms, "bob", "b-1")
	rooms.Subscribe("b-1", groupChannel)

	err := relay.Relay(context.Background(), testIdentity("mallory"), TypingTarget{GroupID: "g1"}, true)
	require.Error(t, err)
	assert.Equal(t, errs.ErrNotAMember, errs.CodeOf(err))
	assert.Empty(t, bob.Events())
}

func TestTypingRelayRejectsMalformedTarget(t *testing.T) {
	_, _, relay := newTypingFixture(t)

	err := relay.Relay(context.Background(), testIdentity("alice"), TypingTarget{}, true)
	require.Error(t, err)
	assert.Equal(t, errs.ErrMalformedTarget, errs.CodeOf(err))

	err = relay.Relay(context.Background(), testIdentity("alice"), TypingTarget{ReceiverID: "bob", GroupID: "g1"}, true)
	require.Error(t, err)
	assert.Equal(t, errs.ErrMalformedTarget, errs.CodeOf(err))
}
