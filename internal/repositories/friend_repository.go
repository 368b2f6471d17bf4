package repositories

import (
	"context"

	"github.com/chotuve/appserver/internal/models"
)

// FriendRepository defines data access for friend requests and friendships.
type FriendRepository interface {
	CreateRequest(ctx context.Context, request models.FriendRequest) error
	RequestExists(ctx context.Context, from, to string) (bool, error)
	ListIncomingRequests(ctx context.Context, user string) ([]models.FriendRequest, error)
	// AcceptRequest removes the pending request and records the friendship atomically.
	AcceptRequest(ctx context.Context, from, to string) error
	DeleteRequest(ctx context.Context, from, to string) error

	AreFriends(ctx context.Context, a, b string) (bool, error)
	ListFriends(ctx context.Context, user string) ([]string, error)
	DeleteFriendship(ctx context.Context, a, b string) error
}

// friendPair returns the lexicographically ordered pair used to store friendships.
func friendPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}
