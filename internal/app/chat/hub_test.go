package chat

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrolink/internal/app/social"
	"agrolink/internal/pkg/errs"
)

// stubGroupDirectory serves both admission-time group resolution and
// membership checks.
type stubGroupDirectory struct {
	groups  map[string][]string
	members map[string]map[string]bool
	fail    bool
}

func (s *stubGroupDirectory) ActiveGroupIDs(_ context.Context, userID string) ([]string, error) {
	if s.fail {
		return nil, errors.New("directory unavailable")
	}
	return s.groups[userID], nil
}

func (s *stubGroupDirectory) IsMember(_ context.Context, groupID, userID string) (bool, error) {
	return s.members[groupID][userID], nil
}

type hubFixture struct {
	hub       *Hub
	registry  *Registry
	rooms     *Rooms
	store     *stubMessageStore
	directory *stubGroupDirectory
}

func newHubFixture(t *testing.T) *hubFixture {
	t.Helper()

	registry := NewRegistry()
	rooms := NewRooms(registry)
	store := &stubMessageStore{}

	friends := &stubRelationshipGate{status: map[[2]string]social.Status{
		{"alice", "bob"}: social.StatusAccepted,
	}}
	directory := &stubGroupDirectory{
		groups:  map[string][]string{"alice": {"g1"}},
		members: map[string]map[string]bool{"g1": {"alice": true, "bob": true}},
	}
	listings := &stubListingSource{sellers: map[string]string{}}
	identities := &stubIdentitySource{known: map[string]bool{"alice": true, "bob": true}}

	presenceStore := &stubPresenceStore{}
	friendSource := &stubFriendSource{friends: map[string][]string{}}
	tracker := NewTracker(registry, rooms, presenceStore, friendSource)

	pipeline := NewPipeline(store, friends, directory, listings, identities, rooms, registry)
	receipts := NewReceipts(&stubReadMarker{senders: map[string]string{"m1": "bob"}}, rooms)
	typing := NewTypingRelay(friends, directory, rooms)

	return &hubFixture{
		hub:       NewHub(registry, rooms, tracker, pipeline, receipts, typing, directory),
		registry:  registry,
		rooms:     rooms,
		store:     store,
		directory: directory,
	}
}

// admitClient builds a Client around a nil socket. The pumps are never
// started, so only the queueing side of the client is exercised.
func (f *hubFixture) admitClient(t *testing.T, userID string) *Client {
	t.Helper()
	client := NewClient(f.hub, nil, testIdentity(userID))
	require.NoError(t, f.hub.Admit(context.Background(), client))
	return client
}

// drainEvents empties the client's send queue, decoding each frame.
func drainEvents(t *testing.T, c *Client) []Event {
	t.Helper()
	var out []Event
	for {
		select {
		case data := <-c.send:
			var ev Event
			require.NoError(t, json.Unmarshal(data, &ev))
			out = append(out, ev)
		default:
			return out
		}
	}
}

func eventsOfType(events []Event, eventType EventType) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func TestHubAdmitSubscribesPrivateAndGroupChannels(t *testing.T) {
	f := newHubFixture(t)

	alice := f.admitClient(t, "alice")

	assert.Contains(t, f.rooms.Subscribers(IdentityChannel("alice")), alice.ID())
	assert.Contains(t, f.rooms.Subscribers(GroupChannel("g1")), alice.ID())
}

func TestHubAdmitSurvivesGroupResolutionFailure(t *testing.T) {
	f := newHubFixture(t)
	f.directory.fail = true

	alice := f.admitClient(t, "alice")

	// Private messaging still works; group channels can be joined later.
	assert.Contains(t, f.rooms.Subscribers(IdentityChannel("alice")), alice.ID())
	assert.Empty(t, f.rooms.Subscribers(GroupChannel("g1")))
}

func TestHubSendFrameDeliversMessage(t *testing.T) {
	f := newHubFixture(t)
	alice := f.admitClient(t, "alice")
	bob := f.admitClient(t, "bob")

	frame, err := json.Marshal(map[string]any{
		"type":          FrameSendMessage,
		"correlationId": "corr-1",
		"payload":       map[string]any{"receiverId": "bob", "content": "hello"},
	})
	require.NoError(t, err)

	f.hub.HandleFrame(alice, frame)

	bobEvents := drainEvents(t, bob)
	require.Len(t, eventsOfType(bobEvents, EventNewMessage), 1)

	aliceEvents := drainEvents(t, alice)
	acks := eventsOfType(aliceEvents, EventMessageSent)
	require.Len(t, acks, 1)

	var ack AckPayload
	raw, err := json.Marshal(acks[0].Payload)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &ack))
	assert.Equal(t, "corr-1", ack.CorrelationID)
}

func TestHubInvalidSendPayloadReportsError(t *testing.T) {
	f := newHubFixture(t)
	alice := f.admitClient(t, "alice")

	frame := []byte(`{"type":"sendMessage","payload":"not-an-object"}`)
	f.hub.HandleFrame(alice, frame)

	events := drainEvents(t, alice)
	require.Len(t, eventsOfType(events, EventMessageError), 1)
	assert.Zero(t, f.store.count())
}

func TestHubMalformedJSONIsIgnored(t *testing.T) {
	f := newHubFixture(t)
	alice := f.admitClient(t, "alice")

	f.hub.HandleFrame(alice, []byte(`{{{`))
	assert.Empty(t, drainEvents(t, alice))
}

func TestHubUnknownFrameTypeIsIgnored(t *testing.T) {
	f := newHubFixture(t)
	alice := f.admitClient(t, "alice")

	f.hub.HandleFrame(alice, []byte(`{"type":"teleport"}`))
	assert.Empty(t, drainEvents(t, alice))
}

func TestHubTypingFrameRelaysWithoutEcho(t *testing.T) {
	f := newHubFixture(t)
	alice := f.admitClient(t, "alice")
	bob := f.admitClient(t, "bob")

	frame := []byte(`{"type":"typingStart","payload":{"receiverId":"bob"}}`)
	f.hub.HandleFrame(alice, frame)

	require.Len(t, eventsOfType(drainEvents(t, bob), EventUserTyping), 1)
	assert.Empty(t, drainEvents(t, alice))
}

func TestHubMarkReadFrameNotifiesSender(t *testing.T) {
	f := newHubFixture(t)
	alice := f.admitClient(t, "alice")
	bob := f.admitClient(t, "bob")

	frame := []byte(`{"type":"markRead","payload":{"messageIds":["m1"]}}`)
	f.hub.HandleFrame(alice, frame)

	require.Len(t, eventsOfType(drainEvents(t, bob), EventMessagesRead), 1)
	assert.Empty(t, drainEvents(t, alice))
}

func TestHubJoinGroupChannelRequiresMembership(t *testing.T) {
	f := newHubFixture(t)
	bob := f.admitClient(t, "bob")

	// bob is a member of g1 but was not subscribed at admission.
	assert.NotContains(t, f.rooms.Subscribers(GroupChannel("g1")), bob.ID())

	f.hub.HandleFrame(bob, []byte(`{"type":"joinGroupChannel","payload":{"groupId":"g1"}}`))
	assert.Contains(t, f.rooms.Subscribers(GroupChannel("g1")), bob.ID())

	// A non-member is refused with an error event.
	mallory := f.admitClient(t, "mallory")
	f.hub.HandleFrame(mallory, []byte(`{"type":"joinGroupChannel","payload":{"groupId":"g1"}}`))
	assert.NotContains(t, f.rooms.Subscribers(GroupChannel("g1")), mallory.ID())

	events := drainEvents(t, mallory)
	errorEvents := eventsOfType(events, EventMessageError)
	require.Len(t, errorEvents, 1)

	var payload ErrorPayload
	raw, err := json.Marshal(errorEvents[0].Payload)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, errs.ErrNotAMember, payload.Code)
}

func TestHubLeaveGroupChannelDropsAllDevices(t *testing.T) {
	f := newHubFixture(t)
	aliceA := f.admitClient(t, "alice")
	aliceB := f.admitClient(t, "alice")

	require.Contains(t, f.rooms.Subscribers(GroupChannel("g1")), aliceA.ID())
	require.Contains(t, f.rooms.Subscribers(GroupChannel("g1")), aliceB.ID())

	f.hub.HandleFrame(aliceA, []byte(`{"type":"leaveGroupChannel","payload":{"groupId":"g1"}}`))

	assert.Empty(t, f.rooms.Subscribers(GroupChannel("g1")))
}

func TestHubDisconnectUnsubscribesEverywhere(t *testing.T) {
	f := newHubFixture(t)
	alice := f.admitClient(t, "alice")

	f.hub.Disconnect(alice)

	assert.False(t, f.registry.IsOnline("alice"))
	assert.Empty(t, f.rooms.Subscribers(IdentityChannel("alice")))
	assert.Empty(t, f.rooms.Subscribers(GroupChannel("g1")))
}
