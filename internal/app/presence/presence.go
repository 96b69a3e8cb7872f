/*
Package presence holds the durable per-user presence record and its postgres
store. The live truth about who is online is derived from the connection
registry; this store only makes it survive restarts and answer REST queries.
*/
package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"agrolink/internal/app/db"
)

// Record is the persisted presence state of one user.
type Record struct {
	UserID   string    `json:"userId"`
	IsOnline bool      `json:"isOnline"`
	LastSeen time.Time `json:"lastSeen"`
}

// Store persists presence records.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Upsert writes the presence record for userID.
func (s *Store) Upsert(ctx context.Context, userID string, isOnline bool, lastSeen time.Time) error {
	const q = `
		INSERT INTO presence (user_id, is_online, last_seen)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET is_online = EXCLUDED.is_online, last_seen = EXCLUDED.last_seen
	`
	if _, err := s.pool.Exec(ctx, q, userID, isOnline, lastSeen); err != nil {
		return fmt.Errorf("upsert presence: %w", err)
	}
	return nil
}

// Get returns the persisted presence record for userID. Users that never
// connected report offline with a zero last-seen.
func (s *Store) Get(ctx context.Context, userID string) (Record, error) {
	const q = `SELECT is_online, last_seen FROM presence WHERE user_id = $1`

	rec := Record{UserID: userID}
	err := s.pool.QueryRow(ctx, q, userID).Scan(&rec.IsOnline, &rec.LastSeen)
	if err != nil {
		if db.IsNoRows(err) {
			return rec, nil
		}
		return Record{}, fmt.Errorf("get presence: %w", err)
	}
	return rec, nil
}
