package message

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"agrolink/internal/pkg/randx"
)

// Store persists messages in postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Append persists m and returns the stored row re-read with the sender's
// display name. Validation failures surface before any write; callers are
// expected to have authorized the send already.
func (s *Store) Append(ctx context.Context, m Message) (Message, error) {
	if customErr := m.Validate(); customErr != nil {
		return Message{}, customErr
	}

	if m.ID == "" {
		m.ID = randx.MessageID()
	}

	const insert = `
		INSERT INTO messages
			(id, sender_id, receiver_id, group_id, content, kind,
			 attachment_url, attachment_name, attachment_size, attachment_mime,
			 listing_id)
		VALUES ($1, $2, NULLIF($3, '')::uuid, NULLIF($4, '')::uuid, $5, $6, $7, $8, $9, $10,
			NULLIF($11, '')::uuid)
	`

	var attURL, attName, attMime *string
	var attSize *int64
	if m.Attachment != nil {
		attURL = &m.Attachment.URL
		attName = &m.Attachment.Name
		attSize = &m.Attachment.Size
		attMime = &m.Attachment.MimeType
	}

	_, err := s.pool.Exec(ctx, insert,
		m.ID, m.SenderID, m.ReceiverID, m.GroupID, m.Content, string(m.Kind),
		attURL, attName, attSize, attMime, m.ListingID,
	)
	if err != nil {
		return Message{}, fmt.Errorf("append message: %w", err)
	}

	return s.Get(ctx, m.ID)
}

// Get re-reads one message enriched with the sender display name.
func (s *Store) Get(ctx context.Context, id string) (Message, error) {
	const q = `
		SELECT m.id, m.sender_id, u.display_name,
		       COALESCE(m.receiver_id::text, ''), COALESCE(m.group_id::text, ''),
		       m.content, m.kind,
		       m.attachment_url, m.attachment_name, m.attachment_size, m.attachment_mime,
		       COALESCE(m.listing_id::text, ''),
		       m.is_read, m.read_at, m.created_at
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.id = $1
	`
	row := s.pool.QueryRow(ctx, q, id)
	return scanMessage(row)
}

// MarkRead flips is_read for the subset of ids that are private messages
// addressed to readerID and not yet read. Ids outside that subset are
// silently ignored so stale client state never errors. The accepted subset
// is returned with each message's sender for receipt fan-out.
func (s *Store) MarkRead(ctx context.Context, readerID string, ids []string, readAt time.Time) ([]ReadMark, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	const q = `
		UPDATE messages
		SET is_read = TRUE, read_at = $3
		WHERE id = ANY($1::uuid[])
		  AND receiver_id = $2
		  AND is_read = FALSE
		RETURNING id, sender_id
	`

	rows, err := s.pool.Query(ctx, q, ids, readerID, readAt)
	if err != nil {
		return nil, fmt.Errorf("mark messages read: %w", err)
	}
	defer rows.Close()

	var marks []ReadMark
	for rows.Next() {
		var idUUID, senderUUID pgtype.UUID
		if err := rows.Scan(&idUUID, &senderUUID); err != nil {
			return nil, fmt.Errorf("scan read mark: %w", err)
		}
		marks = append(marks, ReadMark{
			MessageID: uuidText(idUUID),
			SenderID:  uuidText(senderUUID),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mark messages read: %w", err)
	}
	return marks, nil
}

// UnreadCounts returns, per sender, how many unread private messages are
// waiting for receiverID. Senders with nothing unread are absent.
func (s *Store) UnreadCounts(ctx context.Context, receiverID string) (map[string]int, error) {
	const q = `
		SELECT sender_id, COUNT(*)
		FROM messages
		WHERE receiver_id = $1 AND is_read = FALSE
		GROUP BY sender_id
	`

	rows, err := s.pool.Query(ctx, q, receiverID)
	if err != nil {
		return nil, fmt.Errorf("unread counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var senderUUID pgtype.UUID
		var count int
		if err := rows.Scan(&senderUUID, &count); err != nil {
			return nil, fmt.Errorf("scan unread count: %w", err)
		}
		counts[uuidText(senderUUID)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unread counts: %w", err)
	}
	return counts, nil
}

// Conversation returns the most recent private messages between two users,
// oldest first.
func (s *Store) Conversation(ctx context.Context, userA, userB string, limit int) ([]Message, error) {
	const q = `
		SELECT * FROM (
			SELECT m.id, m.sender_id, u.display_name,
			       COALESCE(m.receiver_id::text, ''), COALESCE(m.group_id::text, ''),
			       m.content, m.kind,
			       m.attachment_url, m.attachment_name, m.attachment_size, m.attachment_mime,
			       COALESCE(m.listing_id::text, ''),
			       m.is_read, m.read_at, m.created_at
			FROM messages m
			JOIN users u ON u.id = m.sender_id
			WHERE (m.sender_id = $1 AND m.receiver_id = $2)
			   OR (m.sender_id = $2 AND m.receiver_id = $1)
			ORDER BY m.created_at DESC
			LIMIT $3
		) latest
		ORDER BY created_at ASC
	`
	return s.queryMessages(ctx, q, userA, userB, limit)
}

// GroupHistory returns the most recent messages of a group, oldest first.
func (s *Store) GroupHistory(ctx context.Context, groupID string, limit int) ([]Message, error) {
	const q = `
		SELECT * FROM (
			SELECT m.id, m.sender_id, u.display_name,
			       COALESCE(m.receiver_id::text, ''), COALESCE(m.group_id::text, ''),
			       m.content, m.kind,
			       m.attachment_url, m.attachment_name, m.attachment_size, m.attachment_mime,
			       COALESCE(m.listing_id::text, ''),
			       m.is_read, m.read_at, m.created_at
			FROM messages m
			JOIN users u ON u.id = m.sender_id
			WHERE m.group_id = $1
			ORDER BY m.created_at DESC
			LIMIT $2
		) latest
		ORDER BY created_at ASC
	`
	return s.queryMessages(ctx, q, groupID, limit)
}

func (s *Store) queryMessages(ctx context.Context, q string, args ...any) ([]Message, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (Message, error) {
	var (
		m                      Message
		idUUID, senderUUID     pgtype.UUID
		kind                   string
		attURL, attName        *string
		attSize                *int64
		attMime                *string
	)

	err := row.Scan(
		&idUUID, &senderUUID, &m.SenderName,
		&m.ReceiverID, &m.GroupID,
		&m.Content, &kind,
		&attURL, &attName, &attSize, &attMime,
		&m.ListingID,
		&m.IsRead, &m.ReadAt, &m.CreatedAt,
	)
	if err != nil {
		return Message{}, fmt.Errorf("scan message: %w", err)
	}

	m.ID = uuidText(idUUID)
	m.SenderID = uuidText(senderUUID)
	m.Kind = Kind(kind)

	if attURL != nil {
		m.Attachment = &Attachment{URL: *attURL}
		if attName != nil {
			m.Attachment.Name = *attName
		}
		if attSize != nil {
			m.Attachment.Size = *attSize
		}
		if attMime != nil {
			m.Attachment.MimeType = *attMime
		}
	}

	return m, nil
}

func uuidText(u pgtype.UUID) string {
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
