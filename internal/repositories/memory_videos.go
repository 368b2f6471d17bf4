package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/chotuve/appserver/internal/models"
	"github.com/chotuve/appserver/internal/ranking"
)

type videoKey struct {
	owner string
	title string
}

type reactionKey struct {
	reactor string
	video   videoKey
}

// NewMemoryVideoRepository returns a VideoRepository kept in process memory.
func NewMemoryVideoRepository() *MemoryVideoRepository {
	return &MemoryVideoRepository{
		index:     make(map[videoKey]int),
		reactions: make(map[reactionKey]models.ReactionKind),
		comments:  make(map[videoKey][]models.Comment),
	}
}

// MemoryVideoRepository implements VideoRepository for tests and local development.
// Videos are kept in insertion order.
type MemoryVideoRepository struct {
	mu        sync.RWMutex
	videos    []models.Video
	index     map[videoKey]int
	reactions map[reactionKey]models.ReactionKind
	comments  map[videoKey][]models.Comment
}

// AddVideo stores the video, replacing any previous one with the same owner and title.
func (r *MemoryVideoRepository) AddVideo(_ context.Context, video models.Video) error {
	key := videoKey{owner: video.Owner, title: video.Title}

	r.mu.Lock()
	defer r.mu.Unlock()

	if i, ok := r.index[key]; ok {
		r.videos[i] = video
		return nil
	}
	r.index[key] = len(r.videos)
	r.videos = append(r.videos, video)
	return nil
}

// DeleteVideo removes the video if present. Reactions and comments are kept.
func (r *MemoryVideoRepository) DeleteVideo(_ context.Context, owner, title string) error {
	key := videoKey{owner: owner, title: title}

	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[key]
	if !ok {
		return nil
	}
	r.videos = append(r.videos[:i], r.videos[i+1:]...)
	delete(r.index, key)
	for j := i; j < len(r.videos); j++ {
		r.index[videoKey{owner: r.videos[j].Owner, title: r.videos[j].Title}] = j
	}
	return nil
}

// ListUserVideos returns the owner's videos newest first.
func (r *MemoryVideoRepository) ListUserVideos(_ context.Context, owner string) ([]models.VideoWithReactions, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := r.reactionCounts()
	var out []models.VideoWithReactions
	for i := len(r.videos) - 1; i >= 0; i-- {
		v := r.videos[i]
		if v.Owner != owner {
			continue
		}
		out = append(out, models.VideoWithReactions{Video: v, Reactions: counts[videoKey{owner: v.Owner, title: v.Title}]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Video.CreatedAt.After(out[j].Video.CreatedAt)
	})
	return out, nil
}

// React records or replaces the reactor's reaction on a video.
func (r *MemoryVideoRepository) React(_ context.Context, reactor, owner, title string, kind models.ReactionKind) error {
	r.mu.Lock()
	r.reactions[reactionKey{reactor: reactor, video: videoKey{owner: owner, title: title}}] = kind
	r.mu.Unlock()
	return nil
}

// GetReaction returns the reactor's reaction or nil when there is none.
func (r *MemoryVideoRepository) GetReaction(_ context.Context, reactor, owner, title string) (*models.ReactionKind, error) {
	r.mu.RLock()
	kind, ok := r.reactions[reactionKey{reactor: reactor, video: videoKey{owner: owner, title: title}}]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return &kind, nil
}

// DeleteReaction removes the reactor's reaction if present.
func (r *MemoryVideoRepository) DeleteReaction(_ context.Context, reactor, owner, title string) error {
	r.mu.Lock()
	delete(r.reactions, reactionKey{reactor: reactor, video: videoKey{owner: owner, title: title}})
	r.mu.Unlock()
	return nil
}

// AddComment appends a comment to a video.
func (r *MemoryVideoRepository) AddComment(_ context.Context, comment models.Comment) error {
	key := videoKey{owner: comment.Owner, title: comment.Title}
	r.mu.Lock()
	r.comments[key] = append(r.comments[key], comment)
	r.mu.Unlock()
	return nil
}

// ListComments returns the comments of a video newest first.
func (r *MemoryVideoRepository) ListComments(_ context.Context, owner, title string) ([]models.Comment, error) {
	r.mu.RLock()
	stored := r.comments[videoKey{owner: owner, title: title}]
	out := make([]models.Comment, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		out = append(out, stored[i])
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// ListRankingCandidates returns every stored video with its ranking signals.
func (r *MemoryVideoRepository) ListRankingCandidates(_ context.Context) ([]ranking.Candidate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := r.reactionCounts()
	perAuthor := make(map[string]int)
	for _, v := range r.videos {
		perAuthor[v.Owner]++
	}

	out := make([]ranking.Candidate, 0, len(r.videos))
	for _, v := range r.videos {
		key := videoKey{owner: v.Owner, title: v.Title}
		out = append(out, ranking.Candidate{
			Video:            v,
			Reactions:        counts[key],
			AuthorVideoCount: perAuthor[v.Owner],
			CommentCount:     len(r.comments[key]),
		})
	}
	sortOldestFirst(out, func(c ranking.Candidate) models.Video { return c.Video })
	return out, nil
}

// SearchCandidates returns the newest SearchCandidateLimit videos whose title or
// description contains any of the tokens, oldest first.
func (r *MemoryVideoRepository) SearchCandidates(_ context.Context, tokens []string) ([]models.VideoWithReactions, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := r.reactionCounts()
	var out []models.VideoWithReactions
	for _, v := range r.videos {
		if !containsAny(v, tokens) {
			continue
		}
		out = append(out, models.VideoWithReactions{Video: v, Reactions: counts[videoKey{owner: v.Owner, title: v.Title}]})
	}
	sortOldestFirst(out, func(v models.VideoWithReactions) models.Video { return v.Video })
	if len(out) > SearchCandidateLimit {
		out = out[len(out)-SearchCandidateLimit:]
	}
	return out, nil
}

// reactionCounts aggregates reactions per video. Callers must hold the lock.
func (r *MemoryVideoRepository) reactionCounts() map[videoKey]models.ReactionCounts {
	counts := make(map[videoKey]models.ReactionCounts)
	for key, kind := range r.reactions {
		c := counts[key.video]
		switch kind {
		case models.ReactionLike:
			c.Like++
		case models.ReactionDislike:
			c.Dislike++
		}
		counts[key.video] = c
	}
	return counts
}

func containsAny(v models.Video, tokens []string) bool {
	title := strings.ToLower(v.Title)
	description := strings.ToLower(v.DescriptionText())
	for _, token := range tokens {
		token = strings.ToLower(token)
		if strings.Contains(title, token) || strings.Contains(description, token) {
			return true
		}
	}
	return false
}

func sortOldestFirst[T any](items []T, video func(T) models.Video) {
	sort.SliceStable(items, func(i, j int) bool {
		return video(items[i]).CreatedAt.Before(video(items[j]).CreatedAt)
	})
}

var _ VideoRepository = (*MemoryVideoRepository)(nil)
