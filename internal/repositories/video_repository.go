package repositories

import (
	"context"

	"github.com/chotuve/appserver/internal/models"
	"github.com/chotuve/appserver/internal/ranking"
)

// SearchCandidateLimit caps how many videos a search pre-filter may return.
const SearchCandidateLimit = 500

// VideoRepository stores video metadata, reactions and comments.
type VideoRepository interface {
	AddVideo(ctx context.Context, video models.Video) error
	DeleteVideo(ctx context.Context, owner, title string) error
	ListUserVideos(ctx context.Context, owner string) ([]models.VideoWithReactions, error)

	React(ctx context.Context, reactor, owner, title string, kind models.ReactionKind) error
	GetReaction(ctx context.Context, reactor, owner, title string) (*models.ReactionKind, error)
	DeleteReaction(ctx context.Context, reactor, owner, title string) error

	AddComment(ctx context.Context, comment models.Comment) error
	ListComments(ctx context.Context, owner, title string) ([]models.Comment, error)

	// ListRankingCandidates returns every video, oldest first, with the
	// signals the ranking needs.
	ListRankingCandidates(ctx context.Context) ([]ranking.Candidate, error)
	// SearchCandidates returns videos whose title or description contains any
	// of the tokens, oldest first, at most SearchCandidateLimit of them.
	SearchCandidates(ctx context.Context, tokens []string) ([]models.VideoWithReactions, error)
}
