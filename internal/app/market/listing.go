/*
Package market exposes the single marketplace query the messaging core needs:
who sells a listing. Listing CRUD itself lives in the platform's main API,
not in this server.
*/
package market

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"agrolink/internal/app/db"
	"agrolink/internal/pkg/errs"
)

// Listing is one marketplace listing.
type Listing struct {
	ID         string    `json:"id"`
	SellerID   string    `json:"sellerId"`
	Title      string    `json:"title"`
	PriceCents int64     `json:"priceCents"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Store reads listings from postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// SellerOf returns the seller of an active listing, or ErrNotFound.
func (s *Store) SellerOf(ctx context.Context, listingID string) (string, error) {
	const q = `SELECT seller_id FROM listings WHERE id = $1 AND is_active`

	var sellerUUID pgtype.UUID
	if err := s.pool.QueryRow(ctx, q, listingID).Scan(&sellerUUID); err != nil {
		if db.IsNoRows(err) {
			return "", errs.NewError(errs.ErrNotFound)
		}
		return "", fmt.Errorf("listing seller: %w", err)
	}

	v, err := sellerUUID.Value()
	if err != nil {
		return "", fmt.Errorf("listing seller id: %w", err)
	}
	seller, _ := v.(string)
	return seller, nil
}
