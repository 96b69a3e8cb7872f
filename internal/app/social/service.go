package social

import (
	"context"
	"time"

	"agrolink/internal/pkg/errs"
)

// FriendshipStore is the persistence surface the relationship state machine
// runs on. The postgres implementation lives in store.go; tests substitute
// stubs.
type FriendshipStore interface {
	// Between returns the relationship row for the unordered pair, with
	// found=false when no row exists.
	Between(ctx context.Context, userA, userB string) (Relationship, bool, error)

	// Create inserts a pending row. It returns *errs.CustomError with
	// ErrDuplicateRequest when a row for the pair already exists.
	Create(ctx context.Context, requesterID, addresseeID string) (Relationship, error)

	// SetStatus moves an existing row to the given status.
	SetStatus(ctx context.Context, relationshipID string, status Status, respondedAt time.Time) error

	// FriendIDs returns the ids of every user with an accepted relationship
	// to userID.
	FriendIDs(ctx context.Context, userID string) ([]string, error)
}

// Service implements the relationship state machine on top of a
// FriendshipStore. Reads go straight to the store on every call; the gate
// must never act on a stale cache.
type Service struct {
	store FriendshipStore
	now   func() time.Time
}

// NewService constructs a Service.
func NewService(store FriendshipStore) *Service {
	return &Service{store: store, now: time.Now}
}

// Request creates a pending relationship from requester to addressee.
// Any existing row for the pair, whatever its status, fails with
// ErrDuplicateRequest.
func (s *Service) Request(ctx context.Context, requesterID, addresseeID string) (Relationship, error) {
	if requesterID == addresseeID {
		return Relationship{}, errs.NewError(errs.ErrInvalidParams)
	}
	return s.store.Create(ctx, requesterID, addresseeID)
}

// Accept moves the pending relationship between actor and other to accepted.
// The actor must be the addressee of the pending request.
func (s *Service) Accept(ctx context.Context, actorID, otherID string) error {
	return s.respond(ctx, actorID, otherID, StatusAccepted)
}

// Decline moves the pending relationship between actor and other to declined.
func (s *Service) Decline(ctx context.Context, actorID, otherID string) error {
	return s.respond(ctx, actorID, otherID, StatusDeclined)
}

func (s *Service) respond(ctx context.Context, actorID, otherID string, to Status) error {
	rel, found, err := s.store.Between(ctx, actorID, otherID)
	if err != nil {
		return err
	}
	if !found {
		return errs.NewError(errs.ErrNotFound)
	}
	if !rel.CanRespond(actorID) {
		return errs.NewError(errs.ErrNotAuthorized)
	}
	return s.store.SetStatus(ctx, rel.ID, to, s.now())
}

// Block moves the relationship between actor and other to blocked, creating
// the row first when none exists. Blocked is terminal.
func (s *Service) Block(ctx context.Context, actorID, otherID string) error {
	rel, found, err := s.store.Between(ctx, actorID, otherID)
	if err != nil {
		return err
	}
	if !found {
		rel, err = s.store.Create(ctx, actorID, otherID)
		if err != nil {
			return err
		}
	}
	return s.store.SetStatus(ctx, rel.ID, StatusBlocked, s.now())
}

// StatusBetween returns the current relationship status for the pair,
// StatusNone when no row exists.
func (s *Service) StatusBetween(ctx context.Context, userA, userB string) (Status, error) {
	rel, found, err := s.store.Between(ctx, userA, userB)
	if err != nil {
		return StatusNone, err
	}
	if !found {
		return StatusNone, nil
	}
	return rel.Status, nil
}

// FriendIDs returns the accepted-relationship set of userID.
func (s *Service) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	return s.store.FriendIDs(ctx, userID)
}
