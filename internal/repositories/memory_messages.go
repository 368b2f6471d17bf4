package repositories

import (
	"context"
	"sort"
	"sync"

	"github.com/chotuve/appserver/internal/models"
	"github.com/chotuve/appserver/internal/pagination"
)

// NewMemoryMessageRepository returns a MessageRepository kept in process memory.
func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{}
}

// MemoryMessageRepository implements MessageRepository for tests and local development.
type MemoryMessageRepository struct {
	mu       sync.RWMutex
	messages []models.PrivateMessage
}

// InsertMessage appends a message.
func (r *MemoryMessageRepository) InsertMessage(_ context.Context, message models.PrivateMessage) error {
	message.HiddenTo = append([]string(nil), message.HiddenTo...)

	r.mu.Lock()
	r.messages = append(r.messages, message)
	r.mu.Unlock()
	return nil
}

// CountConversation counts the messages between viewer and other visible to viewer.
func (r *MemoryMessageRepository) CountConversation(_ context.Context, viewer, other string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, m := range r.messages {
		if between(m, viewer, other) && !m.HiddenFor(viewer) {
			count++
		}
	}
	return count, nil
}

// ListConversation returns a page of the conversation newest first.
func (r *MemoryMessageRepository) ListConversation(_ context.Context, viewer, other string, limit, offset int) ([]models.PrivateMessage, error) {
	r.mu.RLock()
	var visible []models.PrivateMessage
	for i := len(r.messages) - 1; i >= 0; i-- {
		m := r.messages[i]
		if between(m, viewer, other) && !m.HiddenFor(viewer) {
			visible = append(visible, cloneMessage(m))
		}
	}
	r.mu.RUnlock()

	sortNewestFirst(visible)
	start, end := pagination.Bounds(offset, limit, len(visible))
	if start == end {
		return []models.PrivateMessage{}, nil
	}
	return visible[start:end], nil
}

// LatestPerCounterparty returns the newest visible message per counterparty.
func (r *MemoryMessageRepository) LatestPerCounterparty(_ context.Context, viewer string) ([]models.PrivateMessage, error) {
	r.mu.RLock()
	var visible []models.PrivateMessage
	for i := len(r.messages) - 1; i >= 0; i-- {
		m := r.messages[i]
		if (m.From == viewer || m.To == viewer) && !m.HiddenFor(viewer) {
			visible = append(visible, cloneMessage(m))
		}
	}
	r.mu.RUnlock()

	sortNewestFirst(visible)
	seen := make(map[string]struct{})
	latest := make([]models.PrivateMessage, 0)
	for _, m := range visible {
		other := m.Counterparty(viewer)
		if _, ok := seen[other]; ok {
			continue
		}
		seen[other] = struct{}{}
		latest = append(latest, m)
	}
	return latest, nil
}

// HideConversation marks every message between viewer and other as hidden to viewer.
func (r *MemoryMessageRepository) HideConversation(_ context.Context, viewer, other string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.messages {
		m := &r.messages[i]
		if between(*m, viewer, other) && !m.HiddenFor(viewer) {
			m.HiddenTo = append(m.HiddenTo, viewer)
		}
	}
	return nil
}

func between(m models.PrivateMessage, a, b string) bool {
	return (m.From == a && m.To == b) || (m.From == b && m.To == a)
}

func cloneMessage(m models.PrivateMessage) models.PrivateMessage {
	m.HiddenTo = append([]string(nil), m.HiddenTo...)
	return m
}

// sortNewestFirst expects messages in reverse insertion order so that equal
// timestamps keep the most recently stored message first.
func sortNewestFirst(messages []models.PrivateMessage) {
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.After(messages[j].Timestamp)
	})
}

var _ MessageRepository = (*MemoryMessageRepository)(nil)
