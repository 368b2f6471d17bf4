package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/chotuve/appserver/internal/models"
)

type requestKey struct {
	from string
	to   string
}

type friendship struct {
	low  string
	high string
}

// NewMemoryFriendRepository returns a FriendRepository kept in process memory.
func NewMemoryFriendRepository() *MemoryFriendRepository {
	return &MemoryFriendRepository{
		requests:   make(map[requestKey]models.FriendRequest),
		friendship: make(map[friendship]time.Time),
	}
}

// MemoryFriendRepository implements FriendRepository for tests and local development.
type MemoryFriendRepository struct {
	mu         sync.RWMutex
	requests   map[requestKey]models.FriendRequest
	friendship map[friendship]time.Time
}

// CreateRequest stores a pending request. A request between the same users in
// the same direction yields ErrConflict.
func (r *MemoryFriendRepository) CreateRequest(_ context.Context, request models.FriendRequest) error {
	key := requestKey{from: request.From, to: request.To}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.requests[key]; ok {
		return ErrConflict
	}
	r.requests[key] = request
	return nil
}

// RequestExists reports whether from has a pending request to to.
func (r *MemoryFriendRepository) RequestExists(_ context.Context, from, to string) (bool, error) {
	r.mu.RLock()
	_, ok := r.requests[requestKey{from: from, to: to}]
	r.mu.RUnlock()
	return ok, nil
}

// ListIncomingRequests returns the pending requests addressed to user, newest first.
func (r *MemoryFriendRepository) ListIncomingRequests(_ context.Context, user string) ([]models.FriendRequest, error) {
	r.mu.RLock()
	var out []models.FriendRequest
	for key, req := range r.requests {
		if key.to == user {
			out = append(out, req)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].From < out[j].From
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// AcceptRequest turns the pending request into a friendship.
func (r *MemoryFriendRepository) AcceptRequest(_ context.Context, from, to string) error {
	key := requestKey{from: from, to: to}

	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[key]
	if !ok {
		return ErrNotFound
	}
	delete(r.requests, key)

	low, high := friendPair(from, to)
	if _, exists := r.friendship[friendship{low: low, high: high}]; !exists {
		r.friendship[friendship{low: low, high: high}] = req.CreatedAt
	}
	return nil
}

// DeleteRequest removes a pending request.
func (r *MemoryFriendRepository) DeleteRequest(_ context.Context, from, to string) error {
	key := requestKey{from: from, to: to}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.requests[key]; !ok {
		return ErrNotFound
	}
	delete(r.requests, key)
	return nil
}

// AreFriends reports whether a and b are friends.
func (r *MemoryFriendRepository) AreFriends(_ context.Context, a, b string) (bool, error) {
	low, high := friendPair(a, b)
	r.mu.RLock()
	_, ok := r.friendship[friendship{low: low, high: high}]
	r.mu.RUnlock()
	return ok, nil
}

// ListFriends returns the friends of user sorted by email.
func (r *MemoryFriendRepository) ListFriends(_ context.Context, user string) ([]string, error) {
	r.mu.RLock()
	var out []string
	for f := range r.friendship {
		switch user {
		case f.low:
			out = append(out, f.high)
		case f.high:
			out = append(out, f.low)
		}
	}
	r.mu.RUnlock()

	sort.Strings(out)
	return out, nil
}

// DeleteFriendship removes the friendship between a and b.
func (r *MemoryFriendRepository) DeleteFriendship(_ context.Context, a, b string) error {
	low, high := friendPair(a, b)
	key := friendship{low: low, high: high}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.friendship[key]; !ok {
		return ErrNotFound
	}
	delete(r.friendship, key)
	return nil
}

var _ FriendRepository = (*MemoryFriendRepository)(nil)
