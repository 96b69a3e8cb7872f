/*
Package chat contains the realtime presence and messaging core: the
connection registry, presence tracker, room membership manager, message
pipeline, and ephemeral signal relay.

This file defines the closed set of outbound events. Fan-out code only ever
handles Event values produced by the constructors below, so a malformed event
shape cannot reach a client.
*/
package chat

import (
	"encoding/json"
	"time"

	"agrolink/internal/app/message"
	"agrolink/internal/pkg/errs"
)

// EventType tags an outbound event.
type EventType string

const (
	// EventNewMessage carries a freshly persisted message to its recipients.
	EventNewMessage EventType = "newMessage"

	// EventMessageSent acknowledges a send to the originating connection only.
	EventMessageSent EventType = "messageSent"

	// EventMessageError reports a failed send to the originating connection only.
	EventMessageError EventType = "messageError"

	// EventUserTyping and EventUserStoppedTyping are the ephemeral typing signals.
	EventUserTyping        EventType = "userTyping"
	EventUserStoppedTyping EventType = "userStoppedTyping"

	// EventMessagesRead carries a read receipt to the sender of the messages.
	EventMessagesRead EventType = "messagesRead"

	// EventFriendStatusUpdate announces a friend going online or offline.
	EventFriendStatusUpdate EventType = "friendStatusUpdate"
)

// Event is the envelope written to client connections.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// Encode marshals the event for the wire.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// AckPayload reconciles an optimistic client-side message with the persisted one.
type AckPayload struct {
	CorrelationID string    `json:"correlationId"`
	MessageID     string    `json:"messageId"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ErrorPayload reports a failed client action with a specific reason.
type ErrorPayload struct {
	CorrelationID string `json:"correlationId,omitempty"`
	Code          int    `json:"code"`
	Message       string `json:"message"`
}

// TypingPayload identifies who is typing and where.
type TypingPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	ReceiverID  string `json:"receiverId,omitempty"`
	GroupID     string `json:"groupId,omitempty"`
}

// ReadReceiptPayload lists the messages a reader just marked read.
type ReadReceiptPayload struct {
	ReaderID   string    `json:"readerId"`
	MessageIDs []string  `json:"messageIds"`
	ReadAt     time.Time `json:"readAt"`
}

// FriendStatusPayload announces a presence transition.
type FriendStatusPayload struct {
	UserID   string     `json:"userId"`
	Online   bool       `json:"online"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

// NewMessageEvent wraps a persisted, enriched message for delivery.
func NewMessageEvent(m message.Message) Event {
	return Event{Type: EventNewMessage, Payload: m}
}

// MessageSentEvent builds the delivery confirmation for the originating connection.
func MessageSentEvent(correlationID string, m message.Message) Event {
	return Event{Type: EventMessageSent, Payload: AckPayload{
		CorrelationID: correlationID,
		MessageID:     m.ID,
		CreatedAt:     m.CreatedAt,
	}}
}

// MessageErrorEvent builds the error report for the originating connection.
func MessageErrorEvent(correlationID string, customErr *errs.CustomError) Event {
	return Event{Type: EventMessageError, Payload: ErrorPayload{
		CorrelationID: correlationID,
		Code:          customErr.Code,
		Message:       customErr.Message,
	}}
}

// TypingEvent builds a userTyping or userStoppedTyping signal.
func TypingEvent(start bool, p TypingPayload) Event {
	eventType := EventUserTyping
	if !start {
		eventType = EventUserStoppedTyping
	}
	return Event{Type: eventType, Payload: p}
}

// MessagesReadEvent builds a read receipt for the sender's private channel.
func MessagesReadEvent(readerID string, messageIDs []string, readAt time.Time) Event {
	return Event{Type: EventMessagesRead, Payload: ReadReceiptPayload{
		ReaderID:   readerID,
		MessageIDs: messageIDs,
		ReadAt:     readAt,
	}}
}

// FriendOnlineEvent announces a friend coming online.
func FriendOnlineEvent(userID string) Event {
	return Event{Type: EventFriendStatusUpdate, Payload: FriendStatusPayload{
		UserID: userID,
		Online: true,
	}}
}

// FriendOfflineEvent announces a friend going offline with their last-seen time.
func FriendOfflineEvent(userID string, lastSeen time.Time) Event {
	return Event{Type: EventFriendStatusUpdate, Payload: FriendStatusPayload{
		UserID:   userID,
		Online:   false,
		LastSeen: &lastSeen,
	}}
}
