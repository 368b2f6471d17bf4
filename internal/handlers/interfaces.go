package handlers

import (
	"context"
	"time"

	"github.com/chotuve/appserver/internal/models"
	"github.com/chotuve/appserver/internal/statistics"
)

// VideoService captures the video catalogue operations.
type VideoService interface {
	Upload(ctx context.Context, video models.Video) error
	Delete(ctx context.Context, owner, title string) error
	ListUserVideos(ctx context.Context, viewer, owner string) ([]models.VideoEntry, error)
	Top(ctx context.Context, requester string) ([]models.VideoEntry, error)
	Search(ctx context.Context, requester, query string) ([]models.VideoEntry, error)
	React(ctx context.Context, reactor, owner, title string, kind models.ReactionKind) error
	Reaction(ctx context.Context, reactor, owner, title string) (*models.ReactionKind, error)
	DeleteReaction(ctx context.Context, reactor, owner, title string) error
	Comment(ctx context.Context, author, owner, title, content string) error
	Comments(ctx context.Context, owner, title string) ([]models.Profile, []models.Comment, error)
}

// FriendService captures the friend request workflow.
type FriendService interface {
	SendRequest(ctx context.Context, from, to string) (bool, error)
	Accept(ctx context.Context, user, sender string) error
	Reject(ctx context.Context, user, sender string) error
	Requests(ctx context.Context, user string) ([]models.Profile, error)
	List(ctx context.Context, user string) ([]models.Profile, error)
	Remove(ctx context.Context, user, other string) error
}

// ConversationService captures private messaging between friends.
type ConversationService interface {
	Send(ctx context.Context, from, to, content string) (models.PrivateMessage, error)
	Conversation(ctx context.Context, requester, other string, perPage, page int) ([]models.PrivateMessage, int, error)
	Conversations(ctx context.Context, user string) ([]models.Profile, []models.PrivateMessage, error)
	DeleteConversation(ctx context.Context, deletor, other string) error
}

// StatisticsReader summarises recorded API calls.
type StatisticsReader interface {
	Summary(ctx context.Context, now time.Time) (statistics.Summary, error)
}

// HealthCheck probes one backing service.
type HealthCheck func(ctx context.Context) error
