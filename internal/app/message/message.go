/*
Package message defines the durable chat message record and its postgres store.

Messages are immutable once persisted; the only mutation this server ever
performs is flipping the read state of private messages.
*/
package message

import (
	"time"

	"agrolink/internal/pkg/errs"
)

// Kind classifies the payload of a message.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindFile  Kind = "file"
	KindVoice Kind = "voice"
	KindOther Kind = "other"
)

// MaxContentBytes is the maximum allowed size of message content.
const MaxContentBytes = 5000

// Attachment describes a file attached to a message. The URL points into
// object storage; the server never relays file bytes itself.
type Attachment struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
}

// Message is one durable chat message. Exactly one of ReceiverID / GroupID
// is set, never both, never neither.
type Message struct {
	ID       string `json:"id"`
	SenderID string `json:"senderId"`

	// SenderName is denormalized at read time for immediate delivery; it is
	// not a stored column.
	SenderName string `json:"senderName,omitempty"`

	ReceiverID string `json:"receiverId,omitempty"`
	GroupID    string `json:"groupId,omitempty"`

	Content    string      `json:"content"`
	Kind       Kind        `json:"kind"`
	Attachment *Attachment `json:"attachment,omitempty"`

	// ListingID ties a negotiation message to a marketplace listing.
	ListingID string `json:"listingId,omitempty"`

	IsRead    bool       `json:"isRead"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// validKinds guards against arbitrary kind strings reaching the store.
var validKinds = map[Kind]struct{}{
	KindText: {}, KindImage: {}, KindFile: {}, KindVoice: {}, KindOther: {},
}

// Validate checks the structural invariants that must hold before any store
// write is attempted.
func (m Message) Validate() *errs.CustomError {
	hasReceiver := m.ReceiverID != ""
	hasGroup := m.GroupID != ""
	if hasReceiver == hasGroup {
		return errs.NewError(errs.ErrMalformedTarget)
	}

	if m.Content == "" && m.Attachment == nil {
		return errs.NewError(errs.ErrEmptyMessage)
	}

	if len(m.Content) > MaxContentBytes {
		return errs.NewError(errs.ErrMessageContentTooLong)
	}

	if _, ok := validKinds[m.Kind]; !ok {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if m.Attachment != nil && (m.Attachment.URL == "" || m.Attachment.Size <= 0) {
		return errs.NewError(errs.ErrAttachmentInvalid)
	}

	return nil
}

// ReadMark identifies one private message accepted by a markRead call,
// together with the sender who should receive the receipt.
type ReadMark struct {
	MessageID string `json:"messageId"`
	SenderID  string `json:"senderId"`
}
