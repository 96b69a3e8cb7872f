/*
Package chat contains the realtime presence and messaging core.

This file defines read receipts and the ephemeral typing relay. Receipts
mutate durable state and notify the message senders; typing signals are
fire-and-forget, never persisted, and never echoed to any of the
originator's own devices.
*/
package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"agrolink/internal/app/identity"
	"agrolink/internal/app/message"
	"agrolink/internal/app/social"
	"agrolink/internal/pkg/errs"
	"agrolink/internal/pkg/logx"
)

// ReadMarker flips the read state of private messages owned by a reader.
type ReadMarker interface {
	MarkRead(ctx context.Context, readerID string, ids []string, readAt time.Time) ([]message.ReadMark, error)
}

// Receipts handles markRead calls.
type Receipts struct {
	messages ReadMarker
	rooms    *Rooms

	now    func() time.Time
	logger zerolog.Logger
}

// NewReceipts constructs a Receipts handler.
func NewReceipts(messages ReadMarker, rooms *Rooms) *Receipts {
	return &Receipts{
		messages: messages,
		rooms:    rooms,
		now:      time.Now,
		logger:   logx.Logger().With().Str("component", "Receipts").Logger(),
	}
}

// MarkRead marks the subset of ids that are unread private messages
// addressed to the reader. Ids outside that subset are silently ignored,
// tolerating stale client state. One read-receipt event per affected sender
// is emitted to that sender's private channel, listing only the accepted
// subset. The accepted ids are returned.
func (r *Receipts) MarkRead(ctx context.Context, reader identity.Identity, ids []string) ([]string, error) {
	readAt := r.now()

	marks, err := r.messages.MarkRead(ctx, reader.ID, ids, readAt)
	if err != nil {
		r.logger.Error().Err(err).Str("reader_id", reader.ID).Msg("Read-state update failed.")
		return nil, errs.NewError(errs.ErrPersistenceFailure)
	}
	if len(marks) == 0 {
		return nil, nil
	}

	bySender := make(map[string][]string)
	accepted := make([]string, 0, len(marks))
	for _, mark := range marks {
		bySender[mark.SenderID] = append(bySender[mark.SenderID], mark.MessageID)
		accepted = append(accepted, mark.MessageID)
	}

	for senderID, messageIDs := range bySender {
		r.rooms.FanOut(IdentityChannel(senderID), MessagesReadEvent(reader.ID, messageIDs, readAt))
	}

	return accepted, nil
}

// TypingTarget addresses a typing signal: exactly one of ReceiverID /
// GroupID, resolved the same way as a send.
type TypingTarget struct {
	ReceiverID string `json:"receiverId,omitempty"`
	GroupID    string `json:"groupId,omitempty"`
}

// TypingRelay routes typing-start/stop signals through channel resolution
// without persistence, acknowledgement, or retry.
type TypingRelay struct {
	friends RelationshipGate
	groups  GroupGate
	rooms   *Rooms

	logger zerolog.Logger
}

// NewTypingRelay constructs a TypingRelay.
func NewTypingRelay(friends RelationshipGate, groups GroupGate, rooms *Rooms) *TypingRelay {
	return &TypingRelay{
		friends: friends,
		groups:  groups,
		rooms:   rooms,
		logger:  logx.Logger().With().Str("component", "TypingRelay").Logger(),
	}
}

// Relay fans a typing signal out to the target channel, excluding every
// connection of the actor so their other devices never see their own typing
// echo. Authorization mirrors the send gate; a rejected signal produces zero
// fan-out and no error event, only a returned error for the caller's log.
func (t *TypingRelay) Relay(ctx context.Context, actor identity.Identity, target TypingTarget, start bool) error {
	hasReceiver := target.ReceiverID != ""
	hasGroup := target.GroupID != ""
	if hasReceiver == hasGroup {
		return errs.NewError(errs.ErrMalformedTarget)
	}

	payload := TypingPayload{
		UserID:      actor.ID,
		DisplayName: actor.DisplayName,
		ReceiverID:  target.ReceiverID,
		GroupID:     target.GroupID,
	}

	if hasGroup {
		isMember, err := t.groups.IsMember(ctx, target.GroupID, actor.ID)
		if err != nil {
			return errs.NewError(errs.ErrPersistenceFailure)
		}
		if !isMember {
			return errs.NewError(errs.ErrNotAMember)
		}

		t.rooms.FanOutExcluding(GroupChannel(target.GroupID), actor.ID, TypingEvent(start, payload))
		return nil
	}

	status, err := t.friends.StatusBetween(ctx, actor.ID, target.ReceiverID)
	if err != nil {
		return errs.NewError(errs.ErrPersistenceFailure)
	}
	if status != social.StatusAccepted {
		return errs.NewError(errs.ErrNotAuthorized)
	}

	t.rooms.FanOutExcluding(IdentityChannel(target.ReceiverID), actor.ID, TypingEvent(start, payload))
	return nil
}
