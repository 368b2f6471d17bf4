// Package friends implements the friend request workflow.
package friends

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/chotuve/appserver/internal/logging"
	"github.com/chotuve/appserver/internal/models"
	"github.com/chotuve/appserver/internal/notifications"
	"github.com/chotuve/appserver/internal/repositories"
)

var (
	// ErrSelfRequest is returned when a user sends a friend request to themself.
	ErrSelfRequest = errors.New("cannot send a friend request to yourself")
	// ErrAlreadyFriends is returned when the users are already friends.
	ErrAlreadyFriends = errors.New("users are already friends")
	// ErrRequestNotFound is returned when accepting or rejecting a missing request.
	ErrRequestNotFound = errors.New("friend request not found")
	// ErrNotFriends is returned when removing a friendship that does not exist.
	ErrNotFriends = errors.New("users are not friends")
)

// ProfileResolver resolves the public profile of a user.
type ProfileResolver interface {
	Profile(ctx context.Context, email string) (models.Profile, error)
}

// Service coordinates friend requests and friendships.
type Service struct {
	Friends  repositories.FriendRepository
	Profiles ProfileResolver
	Notifier notifications.Sink
	NowFunc  func() time.Time
}

// SendRequest asks to to become from's friend. When to already asked from,
// the pending request is accepted instead and accepted is true.
func (s *Service) SendRequest(ctx context.Context, from, to string) (accepted bool, err error) {
	ctx, span := logging.StartSpan(ctx, "friends.send_request")
	defer span.End()

	if from == to {
		return false, ErrSelfRequest
	}

	friends, err := s.Friends.AreFriends(ctx, from, to)
	if err != nil {
		return false, fmt.Errorf("check friendship: %w", err)
	}
	if friends {
		return false, ErrAlreadyFriends
	}

	mutual, err := s.Friends.RequestExists(ctx, to, from)
	if err != nil {
		return false, fmt.Errorf("check reverse request: %w", err)
	}
	if mutual {
		if err := s.accept(ctx, to, from); err != nil {
			return false, err
		}
		return true, nil
	}

	request := models.FriendRequest{ID: uuid.NewString(), From: from, To: to, CreatedAt: s.now()}
	if err := s.Friends.CreateRequest(ctx, request); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return false, nil
		}
		return false, fmt.Errorf("create friend request: %w", err)
	}

	notifications.Dispatch(ctx, s.Notifier, notifications.Notification{
		Recipient: to,
		Kind:      notifications.KindFriendRequest,
		Title:     "New friend request",
		Body:      fmt.Sprintf("%s wants to be your friend", from),
		Data:      map[string]string{"from": from},
	})
	return false, nil
}

// Accept accepts the pending request from sender to user.
func (s *Service) Accept(ctx context.Context, user, sender string) error {
	ctx, span := logging.StartSpan(ctx, "friends.accept")
	defer span.End()
	return s.accept(ctx, sender, user)
}

func (s *Service) accept(ctx context.Context, from, to string) error {
	if err := s.Friends.AcceptRequest(ctx, from, to); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrRequestNotFound
		}
		return fmt.Errorf("accept friend request: %w", err)
	}

	logging.FromContext(ctx).Info("friend request accepted", slog.String("from", from), slog.String("to", to))
	notifications.Dispatch(ctx, s.Notifier, notifications.Notification{
		Recipient: from,
		Kind:      notifications.KindFriendAccepted,
		Title:     "Friend request accepted",
		Body:      fmt.Sprintf("%s accepted your friend request", to),
		Data:      map[string]string{"friend": to},
	})
	return nil
}

// Reject discards the pending request from sender to user.
func (s *Service) Reject(ctx context.Context, user, sender string) error {
	if err := s.Friends.DeleteRequest(ctx, sender, user); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrRequestNotFound
		}
		return fmt.Errorf("reject friend request: %w", err)
	}
	return nil
}

// Requests returns the profiles of the users with a pending request to user.
func (s *Service) Requests(ctx context.Context, user string) ([]models.Profile, error) {
	requests, err := s.Friends.ListIncomingRequests(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("list friend requests: %w", err)
	}

	emails := make([]string, len(requests))
	for i, r := range requests {
		emails[i] = r.From
	}
	return s.resolve(ctx, emails)
}

// List returns the profiles of user's friends.
func (s *Service) List(ctx context.Context, user string) ([]models.Profile, error) {
	emails, err := s.Friends.ListFriends(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	return s.resolve(ctx, emails)
}

// Remove ends the friendship between user and other.
func (s *Service) Remove(ctx context.Context, user, other string) error {
	if err := s.Friends.DeleteFriendship(ctx, user, other); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFriends
		}
		return fmt.Errorf("delete friendship: %w", err)
	}
	return nil
}

// AreFriends reports whether a and b are friends.
func (s *Service) AreFriends(ctx context.Context, a, b string) (bool, error) {
	return s.Friends.AreFriends(ctx, a, b)
}

func (s *Service) resolve(ctx context.Context, emails []string) ([]models.Profile, error) {
	profiles := make([]models.Profile, 0, len(emails))
	for _, email := range emails {
		if s.Profiles == nil {
			profiles = append(profiles, models.Profile{Email: email})
			continue
		}
		p, err := s.Profiles.Profile(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("resolve profile %s: %w", email, err)
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

func (s *Service) now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now().UTC()
}
