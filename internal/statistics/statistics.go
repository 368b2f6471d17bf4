// Package statistics records served API calls and summarises the last 30 days.
package statistics

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/chotuve/appserver/internal/models"
)

// WindowDays is how many days a summary covers, today included.
const WindowDays = 30

const dayLayout = "2006-01-02"

// UploadPath is the route whose successful POSTs count as video uploads.
const UploadPath = "/api/v1/videos"

// Recorder stores API calls and summarises them.
type Recorder interface {
	Record(ctx context.Context, call models.APICall) error
	Summary(ctx context.Context, now time.Time) (Summary, error)
}

// DailyCount is a count for one UTC day.
type DailyCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

// DailyMean is a mean response time in milliseconds for one UTC day.
type DailyMean struct {
	Day        string  `json:"day"`
	MeanMillis float64 `json:"mean_ms"`
}

// Summary aggregates the calls of the last WindowDays days.
type Summary struct {
	CallsPerDay          []DailyCount     `json:"calls_per_day"`
	MeanResponsePerDay   []DailyMean      `json:"mean_response_time_per_day"`
	UploadedVideosPerDay []DailyCount     `json:"uploaded_videos_per_day"`
	ByPath               map[string]int64 `json:"calls_by_path"`
	ByStatus             map[string]int64 `json:"calls_by_status"`
	ByMethod             map[string]int64 `json:"calls_by_method"`
	TotalCalls           int64            `json:"total_calls"`
}

// bucket holds the aggregates of a single day.
type bucket struct {
	calls       int64
	totalMillis float64
	uploads     int64
	byPath      map[string]int64
	byStatus    map[string]int64
	byMethod    map[string]int64
}

func newBucket() *bucket {
	return &bucket{
		byPath:   make(map[string]int64),
		byStatus: make(map[string]int64),
		byMethod: make(map[string]int64),
	}
}

func (b *bucket) add(call models.APICall) {
	b.calls++
	b.totalMillis += millis(call.Duration)
	if isUpload(call) {
		b.uploads++
	}
	b.byPath[call.Path]++
	b.byStatus[strconv.Itoa(call.Status)]++
	b.byMethod[call.Method]++
}

func isUpload(call models.APICall) bool {
	return call.Method == http.MethodPost && call.Path == UploadPath && call.Status >= 200 && call.Status < 300
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func dayOf(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// windowDays returns the days covered by a summary at now, oldest first.
func windowDays(now time.Time) []string {
	today := now.UTC().Truncate(24 * time.Hour)
	days := make([]string, WindowDays)
	for i := 0; i < WindowDays; i++ {
		days[i] = today.AddDate(0, 0, i-(WindowDays-1)).Format(dayLayout)
	}
	return days
}

func summarize(days []string, lookup func(day string) *bucket) Summary {
	s := Summary{
		CallsPerDay:          make([]DailyCount, 0, len(days)),
		MeanResponsePerDay:   make([]DailyMean, 0, len(days)),
		UploadedVideosPerDay: make([]DailyCount, 0, len(days)),
		ByPath:               make(map[string]int64),
		ByStatus:             make(map[string]int64),
		ByMethod:             make(map[string]int64),
	}

	for _, day := range days {
		b := lookup(day)
		if b == nil {
			b = newBucket()
		}
		mean := 0.0
		if b.calls > 0 {
			mean = b.totalMillis / float64(b.calls)
		}
		s.CallsPerDay = append(s.CallsPerDay, DailyCount{Day: day, Count: b.calls})
		s.MeanResponsePerDay = append(s.MeanResponsePerDay, DailyMean{Day: day, MeanMillis: mean})
		s.UploadedVideosPerDay = append(s.UploadedVideosPerDay, DailyCount{Day: day, Count: b.uploads})
		s.TotalCalls += b.calls
		mergeCounts(s.ByPath, b.byPath)
		mergeCounts(s.ByStatus, b.byStatus)
		mergeCounts(s.ByMethod, b.byMethod)
	}
	return s
}

func mergeCounts(dst, src map[string]int64) {
	for k, v := range src {
		dst[k] += v
	}
}

// TopPaths returns the n most called paths, ties broken by path.
func (s Summary) TopPaths(n int) []string {
	paths := make([]string, 0, len(s.ByPath))
	for p := range s.ByPath {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool {
		if s.ByPath[paths[i]] == s.ByPath[paths[j]] {
			return paths[i] < paths[j]
		}
		return s.ByPath[paths[i]] > s.ByPath[paths[j]]
	})
	if n >= 0 && len(paths) > n {
		paths = paths[:n]
	}
	return paths
}
