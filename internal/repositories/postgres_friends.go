package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/chotuve/appserver/internal/db"
	"github.com/chotuve/appserver/internal/models"
)

// PostgresFriendRepository provides PostgreSQL-backed persistence for friend
// requests and friendships.
type PostgresFriendRepository struct {
	pool db.Pool
}

// NewPostgresFriendRepository constructs a friend repository backed by PostgreSQL.
func NewPostgresFriendRepository(pool db.Pool) *PostgresFriendRepository {
	return &PostgresFriendRepository{pool: pool}
}

// CreateRequest persists a new pending friend request.
func (r *PostgresFriendRepository) CreateRequest(ctx context.Context, request models.FriendRequest) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO friend_requests (id, from_email, to_email, created_at)
        VALUES ($1, $2, $3, $4)
    `, request.ID, request.From, request.To, request.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert friend request: %w", err)
	}
	return nil
}

// RequestExists reports whether from has a pending request to to.
func (r *PostgresFriendRepository) RequestExists(ctx context.Context, from, to string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var exists bool
	err = conn.QueryRow(ctx, `
        SELECT EXISTS (SELECT 1 FROM friend_requests WHERE from_email = $1 AND to_email = $2)
    `, from, to).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("select friend request: %w", err)
	}
	return exists, nil
}

// ListIncomingRequests returns the pending requests addressed to user, newest first.
func (r *PostgresFriendRepository) ListIncomingRequests(ctx context.Context, user string) ([]models.FriendRequest, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, from_email, to_email, created_at
        FROM friend_requests
        WHERE to_email = $1
        ORDER BY created_at DESC, from_email
    `, user)
	if err != nil {
		return nil, fmt.Errorf("query friend requests: %w", err)
	}
	defer rows.Close()

	var requests []models.FriendRequest
	for rows.Next() {
		var req models.FriendRequest
		if err := rows.Scan(&req.ID, &req.From, &req.To, &req.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan friend request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friend requests: %w", err)
	}
	return requests, nil
}

// AcceptRequest deletes the pending request and records the friendship in one transaction.
func (r *PostgresFriendRepository) AcceptRequest(ctx context.Context, from, to string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin accept friend request: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
        DELETE FROM friend_requests WHERE from_email = $1 AND to_email = $2
    `, from, to)
	if err != nil {
		return fmt.Errorf("delete friend request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	low, high := friendPair(from, to)
	_, err = tx.Exec(ctx, `
        INSERT INTO friendships (user_low, user_high, created_at)
        VALUES ($1, $2, now())
        ON CONFLICT (user_low, user_high) DO NOTHING
    `, low, high)
	if err != nil {
		return fmt.Errorf("insert friendship: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit accept friend request: %w", err)
	}
	return nil
}

// DeleteRequest removes a pending request.
func (r *PostgresFriendRepository) DeleteRequest(ctx context.Context, from, to string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM friend_requests WHERE from_email = $1 AND to_email = $2
    `, from, to)
	if err != nil {
		return fmt.Errorf("delete friend request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AreFriends reports whether a and b are friends.
func (r *PostgresFriendRepository) AreFriends(ctx context.Context, a, b string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	low, high := friendPair(a, b)
	var exists bool
	err = conn.QueryRow(ctx, `
        SELECT EXISTS (SELECT 1 FROM friendships WHERE user_low = $1 AND user_high = $2)
    `, low, high).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("select friendship: %w", err)
	}
	return exists, nil
}

// ListFriends returns the friends of user sorted by email.
func (r *PostgresFriendRepository) ListFriends(ctx context.Context, user string) ([]string, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT CASE WHEN user_low = $1 THEN user_high ELSE user_low END AS friend
        FROM friendships
        WHERE user_low = $1 OR user_high = $1
        ORDER BY friend
    `, user)
	if err != nil {
		return nil, fmt.Errorf("query friends: %w", err)
	}

	friends, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect friends: %w", err)
	}
	return friends, nil
}

// DeleteFriendship removes the friendship between a and b.
func (r *PostgresFriendRepository) DeleteFriendship(ctx context.Context, a, b string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	low, high := friendPair(a, b)
	tag, err := conn.Exec(ctx, `
        DELETE FROM friendships WHERE user_low = $1 AND user_high = $2
    `, low, high)
	if err != nil {
		return fmt.Errorf("delete friendship: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

var _ FriendRepository = (*PostgresFriendRepository)(nil)
