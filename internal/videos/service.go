// Package videos implements the video catalogue: uploads, listings, the top
// ranking, search, reactions and comments.
package videos

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chotuve/appserver/internal/logging"
	"github.com/chotuve/appserver/internal/models"
	"github.com/chotuve/appserver/internal/notifications"
	"github.com/chotuve/appserver/internal/ranking"
	"github.com/chotuve/appserver/internal/repositories"
	"github.com/chotuve/appserver/internal/search"
)

// FriendOracle answers whether two users are friends.
type FriendOracle interface {
	AreFriends(ctx context.Context, a, b string) (bool, error)
}

// ProfileResolver resolves the public profile of a user.
type ProfileResolver interface {
	Profile(ctx context.Context, email string) (models.Profile, error)
}

// Service coordinates the video store with the ranking and search engines.
type Service struct {
	Videos   repositories.VideoRepository
	Friends  FriendOracle
	Profiles ProfileResolver
	Notifier notifications.Sink
	NowFunc  func() time.Time
}

// Upload stores a video owned by video.Owner. A video with the same owner and
// title replaces the existing one.
func (s *Service) Upload(ctx context.Context, video models.Video) error {
	ctx, span := logging.StartSpan(ctx, "videos.upload")
	defer span.End()

	video.Title = strings.TrimSpace(video.Title)
	if video.Title == "" {
		return ErrMissingTitle
	}
	if video.CreatedAt.IsZero() {
		video.CreatedAt = s.now()
	}

	if err := s.Videos.AddVideo(ctx, video); err != nil {
		return fmt.Errorf("add video: %w", err)
	}
	logging.FromContext(ctx).Info("video uploaded", slog.String("owner", video.Owner), slog.String("title", video.Title))
	return nil
}

// Delete removes a video.
func (s *Service) Delete(ctx context.Context, owner, title string) error {
	if err := s.Videos.DeleteVideo(ctx, owner, title); err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	return nil
}

// ListUserVideos returns the owner's videos as seen by viewer, newest first.
// Viewers other than the owner and the owner's friends only see visible videos.
func (s *Service) ListUserVideos(ctx context.Context, viewer, owner string) ([]models.VideoEntry, error) {
	ctx, span := logging.StartSpan(ctx, "videos.list_user")
	defer span.End()

	stored, err := s.Videos.ListUserVideos(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list user videos: %w", err)
	}

	vis := s.visibility(viewer)
	entries := make([]models.VideoEntry, 0, len(stored))
	profiles := s.profiles()
	for _, v := range stored {
		ok, err := vis.allows(ctx, v.Video)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		entry, err := profiles.entry(ctx, v.Video, v.Reactions)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Top returns the best ranked videos visible to requester. An empty requester
// only sees visible videos.
func (s *Service) Top(ctx context.Context, requester string) ([]models.VideoEntry, error) {
	ctx, span := logging.StartSpan(ctx, "videos.top")
	defer span.End()

	candidates, err := s.Videos.ListRankingCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ranking candidates: %w", err)
	}

	vis := s.visibility(requester)
	allowed := make([]ranking.Candidate, 0, len(candidates))
	for _, c := range candidates {
		ok, err := vis.allows(ctx, c.Video)
		if err != nil {
			return nil, err
		}
		if ok {
			allowed = append(allowed, c)
		}
	}

	ranked := ranking.Rank(allowed, s.now(), ranking.TopLimit)
	logging.FromContext(ctx).Debug("ranked videos", slog.Int("candidates", len(allowed)), slog.Int("returned", len(ranked)))

	profiles := s.profiles()
	entries := make([]models.VideoEntry, 0, len(ranked))
	for _, c := range ranked {
		entry, err := profiles.entry(ctx, c.Video, c.Reactions)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// searchDoc adapts a stored video to the search engine.
type searchDoc models.VideoWithReactions

func (d searchDoc) SearchTitle() string       { return d.Video.Title }
func (d searchDoc) SearchDescription() string { return d.Video.DescriptionText() }

// Search returns the videos visible to requester that match query, most
// relevant first. Equally relevant videos keep their creation order.
func (s *Service) Search(ctx context.Context, requester, query string) ([]models.VideoEntry, error) {
	ctx, span := logging.StartSpan(ctx, "videos.search")
	defer span.End()

	q := search.ParseQuery(query)
	if q.Empty() {
		return []models.VideoEntry{}, nil
	}

	stored, err := s.Videos.SearchCandidates(ctx, q.Unigrams)
	if err != nil {
		return nil, fmt.Errorf("search candidates: %w", err)
	}

	vis := s.visibility(requester)
	docs := make([]searchDoc, 0, len(stored))
	for _, v := range stored {
		ok, err := vis.allows(ctx, v.Video)
		if err != nil {
			return nil, err
		}
		if ok {
			docs = append(docs, searchDoc(v))
		}
	}

	scored := search.Rank(q, docs)
	profiles := s.profiles()
	entries := make([]models.VideoEntry, 0, len(scored))
	for _, hit := range scored {
		entry, err := profiles.entry(ctx, hit.Doc.Video, hit.Doc.Reactions)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	logging.FromContext(ctx).Debug("search completed", slog.Int("candidates", len(stored)), slog.Int("matches", len(entries)))
	return entries, nil
}

// React records reactor's reaction on a video, replacing any previous one.
func (s *Service) React(ctx context.Context, reactor, owner, title string, kind models.ReactionKind) error {
	if kind != models.ReactionLike && kind != models.ReactionDislike {
		return models.ErrUnknownReactionKind
	}
	if err := s.Videos.React(ctx, reactor, owner, title, kind); err != nil {
		return fmt.Errorf("react: %w", err)
	}
	return nil
}

// Reaction returns reactor's reaction on a video or nil when there is none.
func (s *Service) Reaction(ctx context.Context, reactor, owner, title string) (*models.ReactionKind, error) {
	kind, err := s.Videos.GetReaction(ctx, reactor, owner, title)
	if err != nil {
		return nil, fmt.Errorf("get reaction: %w", err)
	}
	return kind, nil
}

// DeleteReaction removes reactor's reaction on a video.
func (s *Service) DeleteReaction(ctx context.Context, reactor, owner, title string) error {
	if err := s.Videos.DeleteReaction(ctx, reactor, owner, title); err != nil {
		return fmt.Errorf("delete reaction: %w", err)
	}
	return nil
}

// Comment appends a comment to a video and notifies its owner.
func (s *Service) Comment(ctx context.Context, author, owner, title, content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyComment
	}

	comment := models.Comment{Author: author, Owner: owner, Title: title, Content: content, Timestamp: s.now()}
	if err := s.Videos.AddComment(ctx, comment); err != nil {
		return fmt.Errorf("add comment: %w", err)
	}

	if author != owner {
		notifications.Dispatch(ctx, s.Notifier, notifications.Notification{
			Recipient: owner,
			Kind:      notifications.KindComment,
			Title:     "New comment",
			Body:      fmt.Sprintf("%s commented on %s", author, title),
			Data:      map[string]string{"author": author, "title": title},
		})
	}
	return nil
}

// Comments returns the comments of a video newest first together with the
// profile of each comment's author, position by position.
func (s *Service) Comments(ctx context.Context, owner, title string) ([]models.Profile, []models.Comment, error) {
	comments, err := s.Videos.ListComments(ctx, owner, title)
	if err != nil {
		return nil, nil, fmt.Errorf("list comments: %w", err)
	}

	profiles := s.profiles()
	authors := make([]models.Profile, len(comments))
	for i, c := range comments {
		p, err := profiles.get(ctx, c.Author)
		if err != nil {
			return nil, nil, err
		}
		authors[i] = p
	}
	return authors, comments, nil
}

func (s *Service) now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now().UTC()
}

func (s *Service) visibility(requester string) *visibility {
	return &visibility{requester: requester, friends: s.Friends, known: make(map[string]bool)}
}

func (s *Service) profiles() *profileCache {
	return &profileCache{resolver: s.Profiles, known: make(map[string]models.Profile)}
}

// visibility decides which videos a requester may see. Friendship answers are
// memoised for the duration of one call.
type visibility struct {
	requester string
	friends   FriendOracle
	known     map[string]bool
}

func (v *visibility) allows(ctx context.Context, video models.Video) (bool, error) {
	if video.Visible {
		return true, nil
	}
	if v.requester == "" {
		return false, nil
	}
	if video.Owner == v.requester {
		return true, nil
	}
	if friend, ok := v.known[video.Owner]; ok {
		return friend, nil
	}
	if v.friends == nil {
		return false, nil
	}
	friend, err := v.friends.AreFriends(ctx, v.requester, video.Owner)
	if err != nil {
		return false, fmt.Errorf("check friendship: %w", err)
	}
	v.known[video.Owner] = friend
	return friend, nil
}

// profileCache resolves each distinct email at most once per call.
type profileCache struct {
	resolver ProfileResolver
	known    map[string]models.Profile
}

func (c *profileCache) get(ctx context.Context, email string) (models.Profile, error) {
	if p, ok := c.known[email]; ok {
		return p, nil
	}
	if c.resolver == nil {
		p := models.Profile{Email: email}
		c.known[email] = p
		return p, nil
	}
	p, err := c.resolver.Profile(ctx, email)
	if err != nil {
		return models.Profile{}, fmt.Errorf("resolve profile %s: %w", email, err)
	}
	c.known[email] = p
	return p, nil
}

func (c *profileCache) entry(ctx context.Context, video models.Video, reactions models.ReactionCounts) (models.VideoEntry, error) {
	author, err := c.get(ctx, video.Owner)
	if err != nil {
		return models.VideoEntry{}, err
	}
	return models.VideoEntry{Author: author, Video: video, Reactions: reactions}, nil
}
