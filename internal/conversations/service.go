// Package conversations implements private messaging between friends with
// per-user soft deletion and pagination.
package conversations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chotuve/appserver/internal/logging"
	"github.com/chotuve/appserver/internal/models"
	"github.com/chotuve/appserver/internal/notifications"
	"github.com/chotuve/appserver/internal/pagination"
	"github.com/chotuve/appserver/internal/repositories"
)

var (
	// ErrNotFriends is returned when a message is sent to someone who is not a friend.
	ErrNotFriends = errors.New("users are not friends")
	// ErrNoMoreMessages is returned when a conversation page is out of range.
	ErrNoMoreMessages = fmt.Errorf("no more messages: %w", pagination.ErrNoMorePages)
	// ErrEmptyMessage is returned when a message has no content.
	ErrEmptyMessage = errors.New("message content is required")
)

// FriendOracle answers whether two users are friends.
type FriendOracle interface {
	AreFriends(ctx context.Context, a, b string) (bool, error)
}

// ProfileResolver resolves the public profile of a user.
type ProfileResolver interface {
	Profile(ctx context.Context, email string) (models.Profile, error)
}

// Service exposes the conversation operations.
type Service struct {
	Messages repositories.MessageRepository
	Friends  FriendOracle
	Profiles ProfileResolver
	Notifier notifications.Sink
	// FriendsOnly restricts the conversation list to current friends.
	FriendsOnly bool
	NowFunc     func() time.Time
}

// Send stores a message from one friend to another and notifies the recipient.
func (s *Service) Send(ctx context.Context, from, to, content string) (models.PrivateMessage, error) {
	ctx, span := logging.StartSpan(ctx, "conversations.send")
	defer span.End()

	if strings.TrimSpace(content) == "" {
		return models.PrivateMessage{}, ErrEmptyMessage
	}

	friends, err := s.Friends.AreFriends(ctx, from, to)
	if err != nil {
		return models.PrivateMessage{}, fmt.Errorf("check friendship: %w", err)
	}
	if !friends {
		span.Fail(ErrNotFriends)
		return models.PrivateMessage{}, ErrNotFriends
	}

	message := models.PrivateMessage{
		ID:        uuid.NewString(),
		From:      from,
		To:        to,
		Timestamp: s.now(),
		Content:   content,
		HiddenTo:  []string{},
	}
	if err := s.Messages.InsertMessage(ctx, message); err != nil {
		return models.PrivateMessage{}, fmt.Errorf("insert message: %w", err)
	}

	notifications.Dispatch(ctx, s.Notifier, notifications.Notification{
		Recipient: to,
		Kind:      notifications.KindMessage,
		Title:     "New message",
		Body:      content,
		Data:      map[string]string{"from": from},
	})
	return message, nil
}

// Conversation returns one page of the messages between requester and other
// visible to requester, newest first, together with the page count. Page 0
// is always valid.
func (s *Service) Conversation(ctx context.Context, requester, other string, perPage, page int) ([]models.PrivateMessage, int, error) {
	ctx, span := logging.StartSpan(ctx, "conversations.get")
	defer span.End()

	total, err := s.Messages.CountConversation(ctx, requester, other)
	if err != nil {
		return nil, 0, fmt.Errorf("count conversation: %w", err)
	}

	pageCount, err := pagination.PageCount(total, perPage)
	if err != nil {
		return nil, 0, err
	}
	if err := pagination.Validate(page, pageCount); err != nil {
		span.Fail(ErrNoMoreMessages)
		return nil, pageCount, ErrNoMoreMessages
	}
	if total == 0 {
		return []models.PrivateMessage{}, pageCount, nil
	}

	messages, err := s.Messages.ListConversation(ctx, requester, other, perPage, pagination.Offset(page, perPage))
	if err != nil {
		return nil, 0, fmt.Errorf("list conversation: %w", err)
	}
	return messages, pageCount, nil
}

// Conversations lists requester's conversations by most recent activity: the
// counterparty profiles and, position by position, the last message
// exchanged with each.
func (s *Service) Conversations(ctx context.Context, user string) ([]models.Profile, []models.PrivateMessage, error) {
	ctx, span := logging.StartSpan(ctx, "conversations.list")
	defer span.End()

	latest, err := s.Messages.LatestPerCounterparty(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("latest messages: %w", err)
	}

	profiles := make([]models.Profile, 0, len(latest))
	messages := make([]models.PrivateMessage, 0, len(latest))
	for _, m := range latest {
		other := m.Counterparty(user)
		if s.FriendsOnly {
			friends, err := s.Friends.AreFriends(ctx, user, other)
			if err != nil {
				return nil, nil, fmt.Errorf("check friendship: %w", err)
			}
			if !friends {
				continue
			}
		}

		profile, err := s.profile(ctx, other)
		if err != nil {
			return nil, nil, err
		}
		profiles = append(profiles, profile)
		messages = append(messages, m)
	}
	return profiles, messages, nil
}

// DeleteConversation hides the conversation with other from deletor only.
func (s *Service) DeleteConversation(ctx context.Context, deletor, other string) error {
	if err := s.Messages.HideConversation(ctx, deletor, other); err != nil {
		return fmt.Errorf("hide conversation: %w", err)
	}
	logging.FromContext(ctx).Info("conversation deleted", slog.String("deletor", deletor), slog.String("other", other))
	return nil
}

func (s *Service) profile(ctx context.Context, email string) (models.Profile, error) {
	if s.Profiles == nil {
		return models.Profile{Email: email}, nil
	}
	p, err := s.Profiles.Profile(ctx, email)
	if err != nil {
		return models.Profile{}, fmt.Errorf("resolve profile %s: %w", email, err)
	}
	return p, nil
}

func (s *Service) now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now().UTC()
}
