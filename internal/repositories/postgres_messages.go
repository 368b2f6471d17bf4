package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/chotuve/appserver/internal/db"
	"github.com/chotuve/appserver/internal/models"
)

// PostgresMessageRepository provides PostgreSQL-backed persistence for private messages.
type PostgresMessageRepository struct {
	pool db.Pool
}

// NewPostgresMessageRepository constructs a message repository backed by PostgreSQL.
func NewPostgresMessageRepository(pool db.Pool) *PostgresMessageRepository {
	return &PostgresMessageRepository{pool: pool}
}

// InsertMessage stores a message.
func (r *PostgresMessageRepository) InsertMessage(ctx context.Context, message models.PrivateMessage) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	hidden := message.HiddenTo
	if hidden == nil {
		hidden = []string{}
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO private_messages (id, from_email, to_email, created_at, content, hidden_to)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, message.ID, message.From, message.To, message.Timestamp, message.Content, hidden)
	if err != nil {
		return fmt.Errorf("insert private message: %w", err)
	}
	return nil
}

// CountConversation counts the messages between viewer and other visible to viewer.
func (r *PostgresMessageRepository) CountConversation(ctx context.Context, viewer, other string) (int, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var count int64
	err = conn.QueryRow(ctx, `
        SELECT COUNT(*)
        FROM private_messages
        WHERE ((from_email = $1 AND to_email = $2) OR (from_email = $2 AND to_email = $1))
          AND NOT ($1 = ANY(hidden_to))
    `, viewer, other).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count conversation: %w", err)
	}
	return int(count), nil
}

// ListConversation returns a page of the conversation newest first.
func (r *PostgresMessageRepository) ListConversation(ctx context.Context, viewer, other string, limit, offset int) ([]models.PrivateMessage, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, from_email, to_email, created_at, content, hidden_to
        FROM private_messages
        WHERE ((from_email = $1 AND to_email = $2) OR (from_email = $2 AND to_email = $1))
          AND NOT ($1 = ANY(hidden_to))
        ORDER BY created_at DESC, seq DESC
        LIMIT $3 OFFSET $4
    `, viewer, other, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}
	return collectMessages(rows, "conversation")
}

// LatestPerCounterparty returns the newest visible message per counterparty, newest first.
func (r *PostgresMessageRepository) LatestPerCounterparty(ctx context.Context, viewer string) ([]models.PrivateMessage, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, from_email, to_email, created_at, content, hidden_to
        FROM (
            SELECT id, from_email, to_email, created_at, content, hidden_to, seq,
                   ROW_NUMBER() OVER (
                       PARTITION BY CASE WHEN from_email = $1 THEN to_email ELSE from_email END
                       ORDER BY created_at DESC, seq DESC
                   ) AS position
            FROM private_messages
            WHERE (from_email = $1 OR to_email = $1)
              AND NOT ($1 = ANY(hidden_to))
        ) latest
        WHERE position = 1
        ORDER BY created_at DESC, seq DESC
    `, viewer)
	if err != nil {
		return nil, fmt.Errorf("query latest messages: %w", err)
	}
	return collectMessages(rows, "latest messages")
}

// HideConversation adds viewer to the hidden set of every message exchanged with other.
func (r *PostgresMessageRepository) HideConversation(ctx context.Context, viewer, other string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        UPDATE private_messages
        SET hidden_to = array_append(hidden_to, $1)
        WHERE ((from_email = $1 AND to_email = $2) OR (from_email = $2 AND to_email = $1))
          AND NOT ($1 = ANY(hidden_to))
    `, viewer, other)
	if err != nil {
		return fmt.Errorf("hide conversation: %w", err)
	}
	return nil
}

func collectMessages(rows pgx.Rows, what string) ([]models.PrivateMessage, error) {
	defer rows.Close()

	messages := make([]models.PrivateMessage, 0)
	for rows.Next() {
		var m models.PrivateMessage
		if err := rows.Scan(&m.ID, &m.From, &m.To, &m.Timestamp, &m.Content, &m.HiddenTo); err != nil {
			return nil, fmt.Errorf("scan %s: %w", what, err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", what, err)
	}
	return messages, nil
}

var _ MessageRepository = (*PostgresMessageRepository)(nil)
