/*
Package chat contains the realtime presence and messaging core.

This file defines the message pipeline: the orchestrator that authorizes,
persists, enriches, and fans out a single message. Checks run in a fixed
order and are hard pre-conditions; nothing is written unless all of them
pass, and no recipient sees any trace of a failed send.
*/
package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"agrolink/internal/app/identity"
	"agrolink/internal/app/message"
	"agrolink/internal/app/social"
	"agrolink/internal/pkg/errs"
	"agrolink/internal/pkg/logx"
	"agrolink/internal/pkg/randx"
)

// MessageStore is the durable message log consumed by the pipeline.
type MessageStore interface {
	// Append persists the message and returns it re-read with the sender's
	// display name.
	Append(ctx context.Context, m message.Message) (message.Message, error)
}

// RelationshipGate answers the friend-gate question at send time. It must
// read through to the store: a stale cached answer here is an authorization
// hole.
type RelationshipGate interface {
	StatusBetween(ctx context.Context, userA, userB string) (social.Status, error)
}

// GroupGate answers group membership questions.
type GroupGate interface {
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
}

// ListingSource resolves marketplace listing ownership for the negotiation
// carve-out.
type ListingSource interface {
	SellerOf(ctx context.Context, listingID string) (string, error)
}

// IdentitySource checks that a referenced user exists.
type IdentitySource interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// SendRequest is one client-initiated send.
type SendRequest struct {
	// Exactly one of ReceiverID / GroupID must be set.
	ReceiverID string `json:"receiverId,omitempty"`
	GroupID    string `json:"groupId,omitempty"`

	Content    string              `json:"content"`
	Kind       message.Kind        `json:"kind,omitempty"`
	Attachment *message.Attachment `json:"attachment,omitempty"`

	// ListingID, when non-empty, marks this send as a marketplace
	// negotiation message. That is the one and only discriminator for the
	// friend-gate carve-out: the receiver must be the listing's seller, but
	// no accepted relationship is required.
	ListingID string `json:"listingId,omitempty"`

	// CorrelationID is the caller-supplied token echoed back in the ack so
	// optimistic client UI can reconcile the provisional message.
	CorrelationID string `json:"correlationId,omitempty"`
}

// Pipeline authorizes, persists, and fans out messages.
type Pipeline struct {
	messages   MessageStore
	friends    RelationshipGate
	groups     GroupGate
	listings   ListingSource
	identities IdentitySource

	rooms    *Rooms
	registry *Registry

	// chanMu serializes persist+fan-out per conversation so every recipient
	// connection observes messages in persistence order.
	mu       sync.Mutex
	chanLock map[string]*sync.Mutex

	logger zerolog.Logger
}

// NewPipeline constructs a Pipeline.
func NewPipeline(
	messages MessageStore,
	friends RelationshipGate,
	groups GroupGate,
	listings ListingSource,
	identities IdentitySource,
	rooms *Rooms,
	registry *Registry,
) *Pipeline {
	return &Pipeline{
		messages:   messages,
		friends:    friends,
		groups:     groups,
		listings:   listings,
		identities: identities,
		rooms:      rooms,
		registry:   registry,
		chanLock:   make(map[string]*sync.Mutex),
		logger:     logx.Logger().With().Str("component", "MessagePipeline").Logger(),
	}
}

// Send runs the full pipeline for one message. On success the persisted,
// enriched message is returned after fan-out and the originating connection
// has received its ack. On failure only the originating connection hears
// about it, as a messageError event carrying the correlation token.
func (p *Pipeline) Send(ctx context.Context, sender identity.Identity, originConnID string, req SendRequest) (message.Message, error) {
	if req.CorrelationID == "" {
		req.CorrelationID = randx.CorrelationID()
	}

	if err := p.authorize(ctx, sender, req); err != nil {
		p.reportToOrigin(originConnID, MessageErrorEvent(req.CorrelationID, err))
		p.logger.Warn().
			Str("sender_id", sender.ID).
			Int("code", err.Code).
			Msg("Send rejected by authorization.")
		return message.Message{}, err
	}

	kind := req.Kind
	if kind == "" {
		kind = message.KindText
	}

	m := message.Message{
		SenderID:   sender.ID,
		ReceiverID: req.ReceiverID,
		GroupID:    req.GroupID,
		Content:    req.Content,
		Kind:       kind,
		Attachment: req.Attachment,
		ListingID:  req.ListingID,
	}

	// Persist-then-deliver under the conversation lock: recipients observe
	// messages in persistence order, and concurrent sends to unrelated
	// conversations proceed independently.
	lock := p.conversationLock(conversationKey(sender.ID, req))
	lock.Lock()
	defer lock.Unlock()

	persisted, err := p.messages.Append(ctx, m)
	if err != nil {
		customErr := errs.As(err)
		if customErr.Code == errs.ErrUnknown {
			customErr = errs.NewError(errs.ErrPersistenceFailure)
		}
		p.reportToOrigin(originConnID, MessageErrorEvent(req.CorrelationID, customErr))
		p.logger.Error().Err(err).Str("sender_id", sender.ID).Msg("Message persistence failed.")
		return message.Message{}, customErr
	}

	if persisted.GroupID != "" {
		// Group fan-out reaches every subscribed connection, the sender's
		// other devices included.
		p.rooms.FanOut(GroupChannel(persisted.GroupID), NewMessageEvent(persisted))
	} else {
		p.rooms.FanOut(IdentityChannel(persisted.ReceiverID), NewMessageEvent(persisted))
	}

	p.reportToOrigin(originConnID, MessageSentEvent(req.CorrelationID, persisted))

	return persisted, nil
}

// authorize runs the ordered pre-condition checks of the pipeline.
func (p *Pipeline) authorize(ctx context.Context, sender identity.Identity, req SendRequest) *errs.CustomError {
	hasReceiver := req.ReceiverID != ""
	hasGroup := req.GroupID != ""
	if hasReceiver == hasGroup {
		return errs.NewError(errs.ErrMalformedTarget)
	}

	if hasReceiver {
		if req.ReceiverID == sender.ID {
			return errs.NewError(errs.ErrMalformedTarget)
		}
		if req.ListingID != "" {
			if err := p.authorizeNegotiation(ctx, req); err != nil {
				return err
			}
		} else {
			status, err := p.friends.StatusBetween(ctx, sender.ID, req.ReceiverID)
			if err != nil {
				return errs.NewError(errs.ErrPersistenceFailure)
			}
			if status != social.StatusAccepted {
				return errs.NewError(errs.ErrNotAuthorized)
			}
		}
	} else {
		isMember, err := p.groups.IsMember(ctx, req.GroupID, sender.ID)
		if err != nil {
			return errs.NewError(errs.ErrPersistenceFailure)
		}
		if !isMember {
			return errs.NewError(errs.ErrNotAMember)
		}
	}

	if req.Content == "" && req.Attachment == nil {
		return errs.NewError(errs.ErrEmptyMessage)
	}

	return nil
}

// authorizeNegotiation is the deliberate carve-out from the friend-gate: a
// message tied to a marketplace listing may reach a stranger, provided the
// receiver exists and owns the listing. It is intentionally kept separate
// from the general friend check.
func (p *Pipeline) authorizeNegotiation(ctx context.Context, req SendRequest) *errs.CustomError {
	exists, err := p.identities.Exists(ctx, req.ReceiverID)
	if err != nil {
		return errs.NewError(errs.ErrPersistenceFailure)
	}
	if !exists {
		return errs.NewError(errs.ErrNotFound)
	}

	seller, err := p.listings.SellerOf(ctx, req.ListingID)
	if err != nil {
		return errs.As(err)
	}
	if seller != req.ReceiverID {
		return errs.NewError(errs.ErrNotAuthorized)
	}
	return nil
}

// reportToOrigin pushes an event to the originating connection only. A
// connection that vanished mid-send is simply gone; nothing is owed to it.
func (p *Pipeline) reportToOrigin(originConnID string, ev Event) {
	pusher, ok := p.registry.PusherOf(originConnID)
	if !ok {
		return
	}
	if !pusher.Push(ev) {
		p.logger.Warn().Str("conn_id", originConnID).Msg("Could not deliver event to originating connection.")
	}
}

// conversationKey identifies the serialization domain of a send: the group,
// or the unordered private pair.
func conversationKey(senderID string, req SendRequest) string {
	if req.GroupID != "" {
		return GroupChannel(req.GroupID)
	}
	a, b := senderID, req.ReceiverID
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return "pair:" + a + ":" + b
}

func (p *Pipeline) conversationLock(key string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()

	lock, ok := p.chanLock[key]
	if !ok {
		lock = &sync.Mutex{}
		p.chanLock[key] = lock
	}
	return lock
}
