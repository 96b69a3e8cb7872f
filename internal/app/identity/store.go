package identity

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"agrolink/internal/app/db"
	"agrolink/internal/pkg/errs"
)

// Store reads user identities from the users table.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Get returns the identity with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Identity, error) {
	const q = `
		SELECT id, display_name, avatar_url
		FROM users
		WHERE id = $1
	`

	var (
		idUUID      pgtype.UUID
		displayName string
		avatarURL   string
	)
	err := s.pool.QueryRow(ctx, q, id).Scan(&idUUID, &displayName, &avatarURL)
	if err != nil {
		if db.IsNoRows(err) {
			return Identity{}, errs.NewError(errs.ErrNotFound)
		}
		return Identity{}, fmt.Errorf("get identity: %w", err)
	}

	return Identity{
		ID:          uuidString(idUUID),
		DisplayName: displayName,
		AvatarURL:   avatarURL,
	}, nil
}

// Exists reports whether a user with the given id exists.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`

	var exists bool
	if err := s.pool.QueryRow(ctx, q, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("identity exists: %w", err)
	}
	return exists, nil
}

func uuidString(u pgtype.UUID) string {
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
