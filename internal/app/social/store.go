package social

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"agrolink/internal/app/db"
	"agrolink/internal/pkg/errs"
)

// PGFriendshipStore is the postgres implementation of FriendshipStore.
type PGFriendshipStore struct {
	pool *pgxpool.Pool
}

// NewPGFriendshipStore constructs a PGFriendshipStore.
func NewPGFriendshipStore(pool *pgxpool.Pool) *PGFriendshipStore {
	return &PGFriendshipStore{pool: pool}
}

func (s *PGFriendshipStore) Between(ctx context.Context, userA, userB string) (Relationship, bool, error) {
	const q = `
		SELECT id, requester_id, addressee_id, status, created_at, responded_at
		FROM friendships
		WHERE (requester_id = $1 AND addressee_id = $2)
		   OR (requester_id = $2 AND addressee_id = $1)
	`

	var (
		idUUID, reqUUID, addrUUID pgtype.UUID
		status                    string
		createdAt                 time.Time
		respondedAt               *time.Time
	)
	err := s.pool.QueryRow(ctx, q, userA, userB).
		Scan(&idUUID, &reqUUID, &addrUUID, &status, &createdAt, &respondedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return Relationship{}, false, nil
		}
		return Relationship{}, false, fmt.Errorf("relationship between: %w", err)
	}

	return Relationship{
		ID:          uuidOrEmpty(idUUID),
		RequesterID: uuidOrEmpty(reqUUID),
		AddresseeID: uuidOrEmpty(addrUUID),
		Status:      Status(status),
		CreatedAt:   createdAt,
		RespondedAt: respondedAt,
	}, true, nil
}

func (s *PGFriendshipStore) Create(ctx context.Context, requesterID, addresseeID string) (Relationship, error) {
	const q = `
		INSERT INTO friendships (requester_id, addressee_id, status)
		VALUES ($1, $2, 'pending')
		RETURNING id, created_at
	`

	var (
		idUUID    pgtype.UUID
		createdAt time.Time
	)
	err := s.pool.QueryRow(ctx, q, requesterID, addresseeID).Scan(&idUUID, &createdAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Relationship{}, errs.NewError(errs.ErrDuplicateRequest)
		}
		return Relationship{}, fmt.Errorf("create friend request: %w", err)
	}

	return Relationship{
		ID:          uuidOrEmpty(idUUID),
		RequesterID: requesterID,
		AddresseeID: addresseeID,
		Status:      StatusPending,
		CreatedAt:   createdAt,
	}, nil
}

func (s *PGFriendshipStore) SetStatus(ctx context.Context, relationshipID string, status Status, respondedAt time.Time) error {
	const q = `
		UPDATE friendships
		SET status = $2, responded_at = $3
		WHERE id = $1
	`
	ct, err := s.pool.Exec(ctx, q, relationshipID, string(status), respondedAt)
	if err != nil {
		return fmt.Errorf("set relationship status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return errs.NewError(errs.ErrNotFound)
	}
	return nil
}

func (s *PGFriendshipStore) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	const q = `
		SELECT CASE WHEN requester_id = $1 THEN addressee_id ELSE requester_id END
		FROM friendships
		WHERE status = 'accepted' AND (requester_id = $1 OR addressee_id = $1)
	`

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list friend ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var idUUID pgtype.UUID
		if err := rows.Scan(&idUUID); err != nil {
			return nil, fmt.Errorf("scan friend id: %w", err)
		}
		out = append(out, uuidOrEmpty(idUUID))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list friend ids: %w", err)
	}
	return out, nil
}

// PGGroupStore reads and mutates groups and group membership.
type PGGroupStore struct {
	pool *pgxpool.Pool
}

// NewPGGroupStore constructs a PGGroupStore.
func NewPGGroupStore(pool *pgxpool.Pool) *PGGroupStore {
	return &PGGroupStore{pool: pool}
}

// ActiveGroupIDs returns the ids of every active group userID belongs to.
func (s *PGGroupStore) ActiveGroupIDs(ctx context.Context, userID string) ([]string, error) {
	const q = `
		SELECT g.id
		FROM group_members gm
		JOIN groups g ON g.id = gm.group_id
		WHERE gm.user_id = $1 AND g.is_active
	`

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list active group ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var idUUID pgtype.UUID
		if err := rows.Scan(&idUUID); err != nil {
			return nil, fmt.Errorf("scan group id: %w", err)
		}
		out = append(out, uuidOrEmpty(idUUID))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list active group ids: %w", err)
	}
	return out, nil
}

// IsMember reports whether userID currently holds a membership row in an
// active group.
func (s *PGGroupStore) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1
			FROM group_members gm
			JOIN groups g ON g.id = gm.group_id
			WHERE gm.group_id = $1 AND gm.user_id = $2 AND g.is_active
		)
	`

	var isMember bool
	if err := s.pool.QueryRow(ctx, q, groupID, userID).Scan(&isMember); err != nil {
		return false, fmt.Errorf("group membership check: %w", err)
	}
	return isMember, nil
}

// AddMember inserts a membership row. Adding an existing member is a no-op.
func (s *PGGroupStore) AddMember(ctx context.Context, groupID, userID string, role GroupRole) error {
	const q = `
		INSERT INTO group_members (group_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (group_id, user_id) DO NOTHING
	`
	if _, err := s.pool.Exec(ctx, q, groupID, userID, string(role)); err != nil {
		return fmt.Errorf("add group member: %w", err)
	}
	return nil
}

// RemoveMember deletes a membership row.
func (s *PGGroupStore) RemoveMember(ctx context.Context, groupID, userID string) error {
	const q = `DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`
	ct, err := s.pool.Exec(ctx, q, groupID, userID)
	if err != nil {
		return fmt.Errorf("remove group member: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return errs.NewError(errs.ErrNotAMember)
	}
	return nil
}

// Get returns the group with the given id, or ErrNotFound.
func (s *PGGroupStore) Get(ctx context.Context, groupID string) (Group, error) {
	const q = `
		SELECT id, name, description, creator_id, is_active, created_at
		FROM groups
		WHERE id = $1
	`

	var (
		idUUID, creatorUUID pgtype.UUID
		g                   Group
	)
	err := s.pool.QueryRow(ctx, q, groupID).
		Scan(&idUUID, &g.Name, &g.Description, &creatorUUID, &g.IsActive, &g.CreatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return Group{}, errs.NewError(errs.ErrNotFound)
		}
		return Group{}, fmt.Errorf("get group: %w", err)
	}

	g.ID = uuidOrEmpty(idUUID)
	g.CreatorID = uuidOrEmpty(creatorUUID)
	return g, nil
}

func uuidOrEmpty(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	v, err := u.Value()
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
