package statistics

import (
	"context"
	"sync"
	"time"

	"github.com/chotuve/appserver/internal/models"
)

// MemoryRecorder keeps per-day aggregates in process memory.
type MemoryRecorder struct {
	mu      sync.RWMutex
	buckets map[string]*bucket
}

// NewMemoryRecorder returns an empty MemoryRecorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{buckets: make(map[string]*bucket)}
}

// Record adds the call to its day and drops days outside the window.
func (r *MemoryRecorder) Record(_ context.Context, call models.APICall) error {
	day := dayOf(call.Timestamp)
	oldest := windowDays(call.Timestamp)[0]

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.buckets[day]
	if !ok {
		b = newBucket()
		r.buckets[day] = b
	}
	b.add(call)

	for d := range r.buckets {
		if d < oldest {
			delete(r.buckets, d)
		}
	}
	return nil
}

// Summary aggregates the last WindowDays days before now.
func (r *MemoryRecorder) Summary(_ context.Context, now time.Time) (Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return summarize(windowDays(now), func(day string) *bucket {
		return r.buckets[day]
	}), nil
}

var _ Recorder = (*MemoryRecorder)(nil)
