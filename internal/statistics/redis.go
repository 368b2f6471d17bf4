package statistics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chotuve/appserver/internal/models"
)

// DefaultKeyPrefix namespaces the statistics keys.
const DefaultKeyPrefix = "appserver:stats:"

const (
	fieldCalls   = "calls"
	fieldMillis  = "millis"
	fieldUploads = "uploads"

	suffixTotals = "totals"
	suffixPath   = "path"
	suffixStatus = "status"
	suffixMethod = "method"

	retention = (WindowDays + 1) * 24 * time.Hour
)

// RedisRecorder keeps per-day aggregates in redis hashes that expire once
// they leave the summary window.
type RedisRecorder struct {
	client redis.Cmdable
	prefix string
}

// NewRedisRecorder returns a recorder writing under prefix, or DefaultKeyPrefix when empty.
func NewRedisRecorder(client redis.Cmdable, prefix string) *RedisRecorder {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisRecorder{client: client, prefix: prefix}
}

func (r *RedisRecorder) key(day, suffix string) string {
	return r.prefix + day + ":" + suffix
}

// Record adds the call to the hashes of its day in a single round trip.
func (r *RedisRecorder) Record(ctx context.Context, call models.APICall) error {
	day := dayOf(call.Timestamp)
	totals := r.key(day, suffixTotals)
	paths := r.key(day, suffixPath)
	statuses := r.key(day, suffixStatus)
	methods := r.key(day, suffixMethod)

	pipe := r.client.Pipeline()
	pipe.HIncrBy(ctx, totals, fieldCalls, 1)
	pipe.HIncrByFloat(ctx, totals, fieldMillis, millis(call.Duration))
	if isUpload(call) {
		pipe.HIncrBy(ctx, totals, fieldUploads, 1)
	}
	pipe.HIncrBy(ctx, paths, call.Path, 1)
	pipe.HIncrBy(ctx, statuses, strconv.Itoa(call.Status), 1)
	pipe.HIncrBy(ctx, methods, call.Method, 1)
	for _, key := range []string{totals, paths, statuses, methods} {
		pipe.Expire(ctx, key, retention)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record api call: %w", err)
	}
	return nil
}

type dayHashes struct {
	totals   *redis.MapStringStringCmd
	paths    *redis.MapStringStringCmd
	statuses *redis.MapStringStringCmd
	methods  *redis.MapStringStringCmd
}

// Summary reads the hashes of the last WindowDays days in a single round trip.
func (r *RedisRecorder) Summary(ctx context.Context, now time.Time) (Summary, error) {
	days := windowDays(now)

	pipe := r.client.Pipeline()
	cmds := make(map[string]dayHashes, len(days))
	for _, day := range days {
		cmds[day] = dayHashes{
			totals:   pipe.HGetAll(ctx, r.key(day, suffixTotals)),
			paths:    pipe.HGetAll(ctx, r.key(day, suffixPath)),
			statuses: pipe.HGetAll(ctx, r.key(day, suffixStatus)),
			methods:  pipe.HGetAll(ctx, r.key(day, suffixMethod)),
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return Summary{}, fmt.Errorf("read statistics: %w", err)
	}

	buckets := make(map[string]*bucket, len(days))
	for day, c := range cmds {
		b, err := bucketFromHashes(c.totals.Val(), c.paths.Val(), c.statuses.Val(), c.methods.Val())
		if err != nil {
			return Summary{}, fmt.Errorf("decode statistics for %s: %w", day, err)
		}
		buckets[day] = b
	}

	return summarize(days, func(day string) *bucket { return buckets[day] }), nil
}

func bucketFromHashes(totals, paths, statuses, methods map[string]string) (*bucket, error) {
	b := newBucket()
	var err error

	if raw, ok := totals[fieldCalls]; ok {
		if b.calls, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, fmt.Errorf("parse %s: %w", fieldCalls, err)
		}
	}
	if raw, ok := totals[fieldMillis]; ok {
		if b.totalMillis, err = strconv.ParseFloat(raw, 64); err != nil {
			return nil, fmt.Errorf("parse %s: %w", fieldMillis, err)
		}
	}
	if raw, ok := totals[fieldUploads]; ok {
		if b.uploads, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, fmt.Errorf("parse %s: %w", fieldUploads, err)
		}
	}

	for _, hash := range []struct {
		dst map[string]int64
		src map[string]string
	}{
		{b.byPath, paths},
		{b.byStatus, statuses},
		{b.byMethod, methods},
	} {
		if err := parseCounts(hash.dst, hash.src); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func parseCounts(dst map[string]int64, src map[string]string) error {
	for field, raw := range src {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("parse count for %s: %w", field, err)
		}
		dst[field] = n
	}
	return nil
}

var _ Recorder = (*RedisRecorder)(nil)
