package statistics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis keeps hashes in memory and only implements the commands the
// recorder pipelines. Queued commands apply on Exec, as in redis.
type fakeRedis struct {
	redis.Cmdable

	hashes  map[string]map[string]string
	ttls    map[string]time.Duration
	execs   int
	execErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{hashes: make(map[string]map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeRedis) Pipeline() redis.Pipeliner {
	return &fakePipeline{store: f}
}

func (f *fakeRedis) hash(key string) map[string]string {
	h, ok := f.hashes[key]
	if !ok {
		h = make(map[string]string)
		f.hashes[key] = h
	}
	return h
}

type fakePipeline struct {
	redis.Pipeliner

	store  *fakeRedis
	cmds   []redis.Cmder
	queued []func()
}

func (p *fakePipeline) queue(cmd redis.Cmder, apply func()) {
	p.cmds = append(p.cmds, cmd)
	p.queued = append(p.queued, apply)
}

func (p *fakePipeline) HIncrBy(ctx context.Context, key, field string, incr int64) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "hincrby", key, field, incr)
	p.queue(cmd, func() {
		h := p.store.hash(key)
		n, _ := strconv.ParseInt(h[field], 10, 64)
		n += incr
		h[field] = strconv.FormatInt(n, 10)
		cmd.SetVal(n)
	})
	return cmd
}

func (p *fakePipeline) HIncrByFloat(ctx context.Context, key, field string, incr float64) *redis.FloatCmd {
	cmd := redis.NewFloatCmd(ctx, "hincrbyfloat", key, field, incr)
	p.queue(cmd, func() {
		h := p.store.hash(key)
		n, _ := strconv.ParseFloat(h[field], 64)
		n += incr
		h[field] = strconv.FormatFloat(n, 'f', -1, 64)
		cmd.SetVal(n)
	})
	return cmd
}

func (p *fakePipeline) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx, "expire", key, expiration)
	p.queue(cmd, func() {
		_, exists := p.store.hashes[key]
		if exists {
			p.store.ttls[key] = expiration
		}
		cmd.SetVal(exists)
	})
	return cmd
}

func (p *fakePipeline) HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd {
	cmd := redis.NewMapStringStringCmd(ctx, "hgetall", key)
	p.queue(cmd, func() {
		out := make(map[string]string, len(p.store.hashes[key]))
		for field, value := range p.store.hashes[key] {
			out[field] = value
		}
		cmd.SetVal(out)
	})
	return cmd
}

func (p *fakePipeline) Exec(context.Context) ([]redis.Cmder, error) {
	p.store.execs++
	if p.store.execErr != nil {
		return nil, p.store.execErr
	}
	for _, apply := range p.queued {
		apply()
	}
	cmds := p.cmds
	p.cmds, p.queued = nil, nil
	return cmds, nil
}

func TestRedisRecorderSummary(t *testing.T) {
	store := newFakeRedis()
	checkRecorderSummary(t, NewRedisRecorder(store, ""))
}

func TestRedisRecorderRecordLayout(t *testing.T) {
	ctx := context.Background()
	store := newFakeRedis()
	rec := NewRedisRecorder(store, "test:")

	require.NoError(t, rec.Record(ctx, call(UploadPath, http.MethodPost, http.StatusCreated, now, 1500*time.Microsecond)))
	require.NoError(t, rec.Record(ctx, call(UploadPath, http.MethodPost, http.StatusCreated, now, 500*time.Microsecond)))

	assert.Equal(t, 2, store.execs, "each call is written in one round trip")
	assert.Equal(t, map[string]string{fieldCalls: "2", fieldMillis: "2", fieldUploads: "2"}, store.hashes["test:2024-03-31:totals"])
	assert.Equal(t, map[string]string{UploadPath: "2"}, store.hashes["test:2024-03-31:path"])
	assert.Equal(t, map[string]string{"201": "2"}, store.hashes["test:2024-03-31:status"])
	assert.Equal(t, map[string]string{http.MethodPost: "2"}, store.hashes["test:2024-03-31:method"])

	for _, suffix := range []string{suffixTotals, suffixPath, suffixStatus, suffixMethod} {
		assert.Equal(t, retention, store.ttls["test:2024-03-31:"+suffix], "expiry for %s", suffix)
	}
}

func TestRedisRecorderErrors(t *testing.T) {
	ctx := context.Background()
	store := newFakeRedis()
	store.execErr = errors.New("connection refused")
	rec := NewRedisRecorder(store, "")

	err := rec.Record(ctx, call("/health", http.MethodGet, http.StatusOK, now, time.Millisecond))
	assert.ErrorIs(t, err, store.execErr)

	_, err = rec.Summary(ctx, now)
	assert.ErrorIs(t, err, store.execErr)

	store.execErr = nil
	store.hashes[rec.key(dayOf(now), suffixTotals)] = map[string]string{fieldCalls: "many"}
	_, err = rec.Summary(ctx, now)
	assert.Error(t, err, "corrupt counters are reported")
}
