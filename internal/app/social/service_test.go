package social

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrolink/internal/pkg/errs"
)

// stubFriendshipStore keeps one relationship row per unordered pair, the same
// shape the unique index enforces in postgres.
type stubFriendshipStore struct {
	rows   map[[2]string]*Relationship
	nextID int
}

func newStubFriendshipStore() *stubFriendshipStore {
	return &stubFriendshipStore{rows: make(map[[2]string]*Relationship)}
}

func pairKey(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}

func (s *stubFriendshipStore) Between(_ context.Context, userA, userB string) (Relationship, bool, error) {
	row, ok := s.rows[pairKey(userA, userB)]
	if !ok {
		return Relationship{}, false, nil
	}
	return *row, true, nil
}

func (s *stubFriendshipStore) Create(_ context.Context, requesterID, addresseeID string) (Relationship, error) {
	key := pairKey(requesterID, addresseeID)
	if _, exists := s.rows[key]; exists {
		return Relationship{}, errs.NewError(errs.ErrDuplicateRequest)
	}
	s.nextID++
	row := &Relationship{
		ID:          fmt.Sprintf("rel-%d", s.nextID),
		RequesterID: requesterID,
		AddresseeID: addresseeID,
		Status:      StatusPending,
		CreatedAt:   time.Now(),
	}
	s.rows[key] = row
	return *row, nil
}

func (s *stubFriendshipStore) SetStatus(_ context.Context, relationshipID string, status Status, respondedAt time.Time) error {
	for _, row := range s.rows {
		if row.ID == relationshipID {
			row.Status = status
			row.RespondedAt = &respondedAt
			return nil
		}
	}
	return errs.NewError(errs.ErrNotFound)
}

func (s *stubFriendshipStore) FriendIDs(_ context.Context, userID string) ([]string, error) {
	var out []string
	for _, row := range s.rows {
		if row.Status == StatusAccepted && row.Involves(userID) {
			out = append(out, row.Other(userID))
		}
	}
	return out, nil
}

func TestServiceRequestCreatesPending(t *testing.T) {
	svc := NewService(newStubFriendshipStore())

	rel, err := svc.Request(context.Background(), "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, rel.Status)
	assert.Equal(t, "alice", rel.RequesterID)
	assert.Equal(t, "bob", rel.AddresseeID)
}

func TestServiceRequestToSelfRejected(t *testing.T) {
	svc := NewService(newStubFriendshipStore())

	_, err := svc.Request(context.Background(), "alice", "alice")
	require.Error(t, err)
	assert.Equal(t, errs.ErrInvalidParams, errs.CodeOf(err))
}

func TestServiceDuplicateRequestRejected(t *testing.T) {
	svc := NewService(newStubFriendshipStore())

	_, err := svc.Request(context.Background(), "alice", "bob")
	require.NoError(t, err)

	// Same direction.
	_, err = svc.Request(context.Background(), "alice", "bob")
	require.Error(t, err)
	assert.Equal(t, errs.ErrDuplicateRequest, errs.CodeOf(err))

	// Reverse direction hits the same pair row.
	_, err = svc.Request(context.Background(), "bob", "alice")
	require.Error(t, err)
	assert.Equal(t, errs.ErrDuplicateRequest, errs.CodeOf(err))
}

func TestServiceAcceptByAddressee(t *testing.T) {
	store := newStubFriendshipStore()
	svc := NewService(store)

	_, err := svc.Request(context.Background(), "alice", "bob")
	require.NoError(t, err)

	require.NoError(t, svc.Accept(context.Background(), "bob", "alice"))

	status, err := svc.StatusBetween(context.Background(), "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, status)

	friends, err := svc.FriendIDs(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, friends)
}

func TestServiceRequesterCannotAcceptOwnRequest(t *testing.T) {
	svc := NewService(newStubFriendshipStore())

	_, err := svc.Request(context.Background(), "alice", "bob")
	require.NoError(t, err)

	err = svc.Accept(context.Background(), "alice", "bob")
	require.Error(t, err)
	assert.Equal(t, errs.ErrNotAuthorized, errs.CodeOf(err))
}

func TestServiceAcceptWithoutRequest(t *testing.T) {
	svc := NewService(newStubFriendshipStore())

	err := svc.Accept(context.Background(), "bob", "alice")
	require.Error(t, err)
	assert.Equal(t, errs.ErrNotFound, errs.CodeOf(err))
}

func TestServiceDeclineIsTerminalForResponding(t *testing.T) {
	svc := NewService(newStubFriendshipStore())

	_, err := svc.Request(context.Background(), "alice", "bob")
	require.NoError(t, err)

	require.NoError(t, svc.Decline(context.Background(), "bob", "alice"))

	// A declined row is no longer pending, so it cannot be accepted later.
	err = svc.Accept(context.Background(), "bob", "alice")
	require.Error(t, err)
	assert.Equal(t, errs.ErrNotAuthorized, errs.CodeOf(err))

	status, err := svc.StatusBetween(context.Background(), "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, StatusDeclined, status)
}

func TestServiceBlockFromAnyState(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, svc *Service)
	}{
		{
			name:  "no prior relationship",
			setup: func(t *testing.T, svc *Service) {},
		},
		{
			name: "pending",
			setup: func(t *testing.T, svc *Service) {
				_, err := svc.Request(context.Background(), "alice", "bob")
				require.NoError(t, err)
			},
		},
		{
			name: "accepted",
			setup: func(t *testing.T, svc *Service) {
				_, err := svc.Request(context.Background(), "alice", "bob")
				require.NoError(t, err)
				require.NoError(t, svc.Accept(context.Background(), "bob", "alice"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(newStubFriendshipStore())
			tt.setup(t, svc)

			require.NoError(t, svc.Block(context.Background(), "alice", "bob"))

			status, err := svc.StatusBetween(context.Background(), "alice", "bob")
			require.NoError(t, err)
			assert.Equal(t, StatusBlocked, status)
		})
	}
}

func TestServiceBlockedPairIsNotFriends(t *testing.T) {
	svc := NewService(newStubFriendshipStore())

	_, err := svc.Request(context.Background(), "alice", "bob")
	require.NoError(t, err)
	require.NoError(t, svc.Accept(context.Background(), "bob", "alice"))
	require.NoError(t, svc.Block(context.Background(), "alice", "bob"))

	friends, err := svc.FriendIDs(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, friends)
}

func TestServiceStatusBetweenNoRow(t *testing.T) {
	svc := NewService(newStubFriendshipStore())

	status, err := svc.StatusBetween(context.Background(), "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, StatusNone, status)
}

func TestRelationshipCanRespond(t *testing.T) {
	rel := Relationship{RequesterID: "alice", AddresseeID: "bob", Status: StatusPending}

	assert.True(t, rel.CanRespond("bob"))
	assert.False(t, rel.CanRespond("alice"))
	assert.False(t, rel.CanRespond("carol"))

	rel.Status = StatusAccepted
	assert.False(t, rel.CanRespond("bob"))
}
