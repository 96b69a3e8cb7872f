/*
Package chat contains the realtime presence and messaging core.

This file defines the Hub, the wiring point of the core: it admits verified
connections into the registry, subscribes them to their channels, dispatches
inbound frames to the pipeline/receipts/typing components, and tears
everything down on disconnect.
*/
package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"agrolink/internal/pkg/errs"
	"agrolink/internal/pkg/logx"
)

// frameOpTimeout bounds the store lookups a single inbound frame may trigger.
const frameOpTimeout = 10 * time.Second

// Inbound frame types exposed to clients.
const (
	FrameSendMessage       = "sendMessage"
	FrameTypingStart       = "typingStart"
	FrameTypingStop        = "typingStop"
	FrameMarkRead          = "markRead"
	FrameJoinGroupChannel  = "joinGroupChannel"
	FrameLeaveGroupChannel = "leaveGroupChannel"
)

// GroupDirectory resolves the groups a connection is entitled to receive
// fan-out on.
type GroupDirectory interface {
	ActiveGroupIDs(ctx context.Context, userID string) ([]string, error)
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
}

// Hub coordinates the realtime core for all live connections.
type Hub struct {
	registry *Registry
	rooms    *Rooms
	presence *Tracker
	pipeline *Pipeline
	receipts *Receipts
	typing   *TypingRelay
	groups   GroupDirectory

	logger zerolog.Logger
}

// NewHub wires the core together: the presence tracker observes registry
// transitions, and slow consumers reported by fan-out get evicted.
func NewHub(
	registry *Registry,
	rooms *Rooms,
	presence *Tracker,
	pipeline *Pipeline,
	receipts *Receipts,
	typing *TypingRelay,
	groups GroupDirectory,
) *Hub {
	h := &Hub{
		registry: registry,
		rooms:    rooms,
		presence: presence,
		pipeline: pipeline,
		receipts: receipts,
		typing:   typing,
		groups:   groups,
		logger:   logx.Logger().With().Str("component", "Hub").Logger(),
	}

	rooms.OnSlowConsumer(h.evict)

	return h
}

// Admit registers a verified client and subscribes it to its private channel
// and to every active group it belongs to. Group resolution failures leave
// the connection usable for private messaging; the client can re-join group
// channels explicitly.
func (h *Hub) Admit(ctx context.Context, client *Client) error {
	if err := h.registry.Admit(client.User(), client.ID(), client); err != nil {
		return err
	}

	h.rooms.Subscribe(client.ID(), IdentityChannel(client.User().ID))

	groupIDs, err := h.groups.ActiveGroupIDs(ctx, client.User().ID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", client.User().ID).Msg("Could not resolve groups at admission.")
		return nil
	}
	for _, groupID := range groupIDs {
		h.rooms.Subscribe(client.ID(), GroupChannel(groupID))
	}

	return nil
}

// Disconnect removes the client from all channels and the registry. From
// this point no further events are delivered to it.
func (h *Hub) Disconnect(client *Client) {
	h.rooms.DropConnection(client.ID())
	h.registry.Remove(client.ID())
	client.closeSend()
}

// evict force-closes a connection that fan-out flagged as a slow consumer.
func (h *Hub) evict(connID string) {
	pusher, ok := h.registry.PusherOf(connID)
	if !ok {
		return
	}
	if client, ok := pusher.(*Client); ok {
		client.Kick("Connection too slow, please reconnect.")
	}
}

// HandleFrame parses one inbound frame and dispatches it.
func (h *Hub) HandleFrame(client *Client, frameBytes []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(frameBytes, &frame); err != nil {
		h.logger.Warn().Err(err).Str("conn_id", client.ID()).Msg("Client sent invalid JSON.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), frameOpTimeout)
	defer cancel()

	switch frame.Type {
	case FrameSendMessage:
		h.handleSend(ctx, client, frame)

	case FrameTypingStart:
		h.handleTyping(ctx, client, frame, true)

	case FrameTypingStop:
		h.handleTyping(ctx, client, frame, false)

	case FrameMarkRead:
		h.handleMarkRead(ctx, client, frame)

	case FrameJoinGroupChannel:
		h.handleJoinGroupChannel(ctx, client, frame)

	case FrameLeaveGroupChannel:
		h.handleLeaveGroupChannel(client, frame)

	default:
		h.logger.Warn().
			Str("frame_type", frame.Type).
			Str("conn_id", client.ID()).
			Msg("Client sent unsupported frame type.")
	}
}

func (h *Hub) handleSend(ctx context.Context, client *Client, frame inboundFrame) {
	var req SendRequest
	if err := json.Unmarshal(frame.Payload, &req); err != nil {
		client.Push(MessageErrorEvent(frame.CorrelationID, errs.NewError(errs.ErrInvalidParams)))
		return
	}
	if frame.CorrelationID != "" {
		req.CorrelationID = frame.CorrelationID
	}

	// The pipeline reports both success and failure to the originating
	// connection itself; the returned error is already accounted for.
	h.pipeline.Send(ctx, client.User(), client.ID(), req)
}

func (h *Hub) handleTyping(ctx context.Context, client *Client, frame inboundFrame, start bool) {
	var target TypingTarget
	if err := json.Unmarshal(frame.Payload, &target); err != nil {
		h.logger.Warn().Err(err).Str("conn_id", client.ID()).Msg("Client sent invalid typing payload.")
		return
	}

	// Fire-and-forget: a rejected signal is logged, never reported back.
	if err := h.typing.Relay(ctx, client.User(), target, start); err != nil {
		h.logger.Debug().Err(err).Str("user_id", client.User().ID).Msg("Typing signal rejected.")
	}
}

func (h *Hub) handleMarkRead(ctx context.Context, client *Client, frame inboundFrame) {
	var payload struct {
		MessageIDs []string `json:"messageIds"`
	}
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		h.logger.Warn().Err(err).Str("conn_id", client.ID()).Msg("Client sent invalid markRead payload.")
		return
	}

	if _, err := h.receipts.MarkRead(ctx, client.User(), payload.MessageIDs); err != nil {
		client.Push(MessageErrorEvent(frame.CorrelationID, errs.As(err)))
	}
}

func (h *Hub) handleJoinGroupChannel(ctx context.Context, client *Client, frame inboundFrame) {
	groupID, ok := h.groupIDFromFrame(client, frame)
	if !ok {
		return
	}

	isMember, err := h.groups.IsMember(ctx, groupID, client.User().ID)
	if err != nil {
		client.Push(MessageErrorEvent(frame.CorrelationID, errs.NewError(errs.ErrPersistenceFailure)))
		return
	}
	if !isMember {
		client.Push(MessageErrorEvent(frame.CorrelationID, errs.NewError(errs.ErrNotAMember)))
		return
	}

	h.ResubscribeGroup(client.User().ID, groupID)
}

func (h *Hub) handleLeaveGroupChannel(client *Client, frame inboundFrame) {
	groupID, ok := h.groupIDFromFrame(client, frame)
	if !ok {
		return
	}
	h.UnsubscribeGroup(client.User().ID, groupID)
}

func (h *Hub) groupIDFromFrame(client *Client, frame inboundFrame) (string, bool) {
	var payload struct {
		GroupID string `json:"groupId"`
	}
	if err := json.Unmarshal(frame.Payload, &payload); err != nil || payload.GroupID == "" {
		h.logger.Warn().Str("conn_id", client.ID()).Msg("Client sent invalid group channel payload.")
		return "", false
	}
	return payload.GroupID, true
}

// ResubscribeGroup subscribes every live connection of an identity to a
// group channel. Also invoked by the REST layer when membership is granted.
func (h *Hub) ResubscribeGroup(identityID, groupID string) {
	h.rooms.JoinGroup(identityID, groupID)
}

// UnsubscribeGroup drops every live connection of an identity from a group
// channel. Also invoked by the REST layer when membership is revoked.
func (h *Hub) UnsubscribeGroup(identityID, groupID string) {
	h.rooms.LeaveGroup(identityID, groupID)
}

// Registry exposes the connection registry for presence queries.
func (h *Hub) Registry() *Registry {
	return h.registry
}

var _ Pusher = (*Client)(nil)
