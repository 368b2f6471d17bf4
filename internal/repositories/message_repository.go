package repositories

import (
	"context"

	"github.com/chotuve/appserver/internal/models"
)

// MessageRepository stores private messages. Every read is from the point of
// view of a viewer: messages hidden to the viewer are never returned or counted.
type MessageRepository interface {
	InsertMessage(ctx context.Context, message models.PrivateMessage) error
	CountConversation(ctx context.Context, viewer, other string) (int, error)
	// ListConversation returns newest first.
	ListConversation(ctx context.Context, viewer, other string, limit, offset int) ([]models.PrivateMessage, error)
	// LatestPerCounterparty returns the newest visible message exchanged with
	// each counterparty, newest first.
	LatestPerCounterparty(ctx context.Context, viewer string) ([]models.PrivateMessage, error)
	// HideConversation adds viewer to the hidden set of every message it
	// exchanged with other.
	HideConversation(ctx context.Context, viewer, other string) error
}
