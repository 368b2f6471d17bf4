package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/chotuve/appserver/internal/db"
	"github.com/chotuve/appserver/internal/models"
	"github.com/chotuve/appserver/internal/ranking"
)

// reactionTotals aggregates likes and dislikes per video.
const reactionTotals = `
        SELECT owner_email, title,
               COUNT(CASE WHEN reaction = 'like' THEN 1 END) AS likes,
               COUNT(CASE WHEN reaction = 'dislike' THEN 1 END) AS dislikes
        FROM video_reactions
        GROUP BY owner_email, title
`

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos,
// reactions and comments.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// AddVideo inserts or replaces a video keyed by owner and title.
func (r *PostgresVideoRepository) AddVideo(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (owner_email, title, location, creation_time, file_location, visible, description)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (owner_email, title) DO UPDATE
        SET location = excluded.location,
            creation_time = excluded.creation_time,
            file_location = excluded.file_location,
            visible = excluded.visible,
            description = excluded.description
    `, video.Owner, video.Title, video.Location, video.CreatedAt, video.FileLocation, video.Visible, video.Description)
	if err != nil {
		return fmt.Errorf("upsert video: %w", err)
	}
	return nil
}

// DeleteVideo removes a video. Deleting a missing video is not an error.
func (r *PostgresVideoRepository) DeleteVideo(ctx context.Context, owner, title string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `DELETE FROM videos WHERE owner_email = $1 AND title = $2`, owner, title); err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	return nil
}

// ListUserVideos returns the owner's videos newest first with their reaction counts.
func (r *PostgresVideoRepository) ListUserVideos(ctx context.Context, owner string) ([]models.VideoWithReactions, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT v.owner_email, v.title, v.location, v.creation_time, v.file_location, v.visible, v.description,
               COALESCE(r.likes, 0), COALESCE(r.dislikes, 0)
        FROM videos v
        LEFT JOIN (`+reactionTotals+`) r ON r.owner_email = v.owner_email AND r.title = v.title
        WHERE v.owner_email = $1
        ORDER BY v.creation_time DESC, v.title
    `, owner)
	if err != nil {
		return nil, fmt.Errorf("query user videos: %w", err)
	}
	return collectVideos(rows, "user videos")
}

// React inserts or replaces a reaction.
func (r *PostgresVideoRepository) React(ctx context.Context, reactor, owner, title string, kind models.ReactionKind) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO video_reactions (reactor_email, owner_email, title, reaction)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (reactor_email, owner_email, title) DO UPDATE
        SET reaction = excluded.reaction
    `, reactor, owner, title, string(kind))
	if err != nil {
		return fmt.Errorf("upsert reaction: %w", err)
	}
	return nil
}

// GetReaction returns the reactor's reaction or nil when there is none.
func (r *PostgresVideoRepository) GetReaction(ctx context.Context, reactor, owner, title string) (*models.ReactionKind, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var raw string
	err = conn.QueryRow(ctx, `
        SELECT reaction
        FROM video_reactions
        WHERE reactor_email = $1 AND owner_email = $2 AND title = $3
    `, reactor, owner, title).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select reaction: %w", err)
	}

	kind, err := models.ParseReactionKind(raw)
	if err != nil {
		return nil, fmt.Errorf("decode reaction %q: %w", raw, err)
	}
	return &kind, nil
}

// DeleteReaction removes a reaction if present.
func (r *PostgresVideoRepository) DeleteReaction(ctx context.Context, reactor, owner, title string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        DELETE FROM video_reactions
        WHERE reactor_email = $1 AND owner_email = $2 AND title = $3
    `, reactor, owner, title)
	if err != nil {
		return fmt.Errorf("delete reaction: %w", err)
	}
	return nil
}

// AddComment appends a comment.
func (r *PostgresVideoRepository) AddComment(ctx context.Context, comment models.Comment) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO video_comments (author_email, owner_email, title, content, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, comment.Author, comment.Owner, comment.Title, comment.Content, comment.Timestamp)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

// ListComments returns the comments of a video newest first.
func (r *PostgresVideoRepository) ListComments(ctx context.Context, owner, title string) ([]models.Comment, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT author_email, owner_email, title, content, created_at
        FROM video_comments
        WHERE owner_email = $1 AND title = $2
        ORDER BY created_at DESC, id DESC
    `, owner, title)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	comments := make([]models.Comment, 0)
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.Author, &c.Owner, &c.Title, &c.Content, &c.Timestamp); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return comments, nil
}

// ListRankingCandidates returns every video, oldest first, with reaction,
// author video and comment counts.
func (r *PostgresVideoRepository) ListRankingCandidates(ctx context.Context) ([]ranking.Candidate, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT v.owner_email, v.title, v.location, v.creation_time, v.file_location, v.visible, v.description,
               COALESCE(r.likes, 0), COALESCE(r.dislikes, 0),
               a.video_count,
               COALESCE(c.comment_count, 0)
        FROM videos v
        LEFT JOIN (`+reactionTotals+`) r ON r.owner_email = v.owner_email AND r.title = v.title
        JOIN (
            SELECT owner_email, COUNT(*) AS video_count
            FROM videos
            GROUP BY owner_email
        ) a ON a.owner_email = v.owner_email
        LEFT JOIN (
            SELECT owner_email, title, COUNT(*) AS comment_count
            FROM video_comments
            GROUP BY owner_email, title
        ) c ON c.owner_email = v.owner_email AND c.title = v.title
        ORDER BY v.creation_time ASC, v.owner_email, v.title
    `)
	if err != nil {
		return nil, fmt.Errorf("query ranking candidates: %w", err)
	}
	defer rows.Close()

	candidates := make([]ranking.Candidate, 0)
	for rows.Next() {
		var (
			c                     ranking.Candidate
			likes, dislikes       int64
			videoCount, nComments int64
		)
		v := &c.Video
		if err := rows.Scan(&v.Owner, &v.Title, &v.Location, &v.CreatedAt, &v.FileLocation, &v.Visible, &v.Description,
			&likes, &dislikes, &videoCount, &nComments); err != nil {
			return nil, fmt.Errorf("scan ranking candidate: %w", err)
		}
		c.Reactions = models.ReactionCounts{Like: int(likes), Dislike: int(dislikes)}
		c.AuthorVideoCount = int(videoCount)
		c.CommentCount = int(nComments)
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ranking candidates: %w", err)
	}
	return candidates, nil
}

// SearchCandidates returns videos whose title or description contains any of
// the tokens, oldest first.
func (r *PostgresVideoRepository) SearchCandidates(ctx context.Context, tokens []string) ([]models.VideoWithReactions, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	patterns := make([]string, len(tokens))
	for i, token := range tokens {
		patterns[i] = "%" + escapeLike(token) + "%"
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT c.owner_email, c.title, c.location, c.creation_time, c.file_location, c.visible, c.description,
               COALESCE(r.likes, 0), COALESCE(r.dislikes, 0)
        FROM (
            SELECT owner_email, title, location, creation_time, file_location, visible, description
            FROM videos
            WHERE title ILIKE ANY($1) OR COALESCE(description, '') ILIKE ANY($1)
            ORDER BY creation_time DESC, owner_email DESC, title DESC
            LIMIT $2
        ) c
        LEFT JOIN (`+reactionTotals+`) r ON r.owner_email = c.owner_email AND r.title = c.title
        ORDER BY c.creation_time ASC, c.owner_email, c.title
    `, patterns, SearchCandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("query search candidates: %w", err)
	}
	return collectVideos(rows, "search candidates")
}

func collectVideos(rows pgx.Rows, what string) ([]models.VideoWithReactions, error) {
	defer rows.Close()

	videos := make([]models.VideoWithReactions, 0)
	for rows.Next() {
		var (
			entry           models.VideoWithReactions
			likes, dislikes int64
		)
		v := &entry.Video
		if err := rows.Scan(&v.Owner, &v.Title, &v.Location, &v.CreatedAt, &v.FileLocation, &v.Visible, &v.Description,
			&likes, &dislikes); err != nil {
			return nil, fmt.Errorf("scan %s: %w", what, err)
		}
		entry.Reactions = models.ReactionCounts{Like: int(likes), Dislike: int(dislikes)}
		videos = append(videos, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", what, err)
	}
	return videos, nil
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}

var _ VideoRepository = (*PostgresVideoRepository)(nil)
