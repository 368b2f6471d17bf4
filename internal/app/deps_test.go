package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/chotuve/appserver/internal/authserver"
	"github.com/chotuve/appserver/internal/config"
	"github.com/chotuve/appserver/internal/notifications"
	"github.com/chotuve/appserver/internal/statistics"
)

type fakePool struct {
	pingErr error
}

func (fakePool) Acquire(context.Context) (*pgxpool.Conn, error) {
	return nil, errors.New("not implemented")
}

func (fakePool) Close() {}

func (p fakePool) Ping(context.Context) error { return p.pingErr }

func memoryConfig() config.Config {
	return config.Config{
		StoreBackend:             config.BackendMemory,
		StatisticsBackend:        config.BackendMemory,
		ConversationsFriendsOnly: true,
		NotificationsChannel:     "test:notifications",
	}
}

func TestBuildDependencies(t *testing.T) {
	directory := authserver.NewClient(authserver.Config{BaseURL: "http://auth.invalid"})

	comps, err := buildDependencies(memoryConfig(), backends{}, directory)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deps := comps.handlers
	if deps.Videos == nil || deps.Friends == nil || deps.Conversations == nil {
		t.Fatal("expected every service to be configured")
	}
	if deps.Statistics == nil || deps.Tokens == nil || deps.Metrics == nil {
		t.Fatal("expected statistics, token verification and metrics to be configured")
	}
	if _, ok := comps.recorder.(*statistics.MemoryRecorder); !ok {
		t.Fatalf("expected a memory recorder, got %T", comps.recorder)
	}
	if comps.metrics == nil {
		t.Fatal("expected metrics middleware")
	}
	if len(deps.HealthChecks) != 0 {
		t.Fatalf("expected no health checks without backends, got %d", len(deps.HealthChecks))
	}
}

func TestBuildDependenciesPostgres(t *testing.T) {
	cfg := memoryConfig()
	cfg.StoreBackend = config.BackendPostgres

	if _, err := buildDependencies(cfg, backends{}, nil); err == nil {
		t.Fatal("expected an error without a database pool")
	}

	comps, err := buildDependencies(cfg, backends{pool: fakePool{}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	check, ok := comps.handlers.HealthChecks["database"]
	if !ok {
		t.Fatal("expected a database health check")
	}
	if err := check(context.Background()); err != nil {
		t.Fatalf("unexpected health check error: %v", err)
	}
}

func TestBuildDependenciesRedisStatistics(t *testing.T) {
	cfg := memoryConfig()
	cfg.StatisticsBackend = config.BackendRedis

	if _, err := buildDependencies(cfg, backends{}, nil); err == nil {
		t.Fatal("expected an error without a redis client")
	}

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0", DialTimeout: 50 * time.Millisecond})
	defer client.Close()

	comps, err := buildDependencies(cfg, backends{redis: client}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := comps.recorder.(*statistics.RedisRecorder); !ok {
		t.Fatalf("expected a redis recorder, got %T", comps.recorder)
	}
	if _, ok := comps.handlers.HealthChecks["redis"]; !ok {
		t.Fatal("expected a redis health check")
	}
}

func TestBuildDependenciesUnknownBackend(t *testing.T) {
	cfg := memoryConfig()
	cfg.StoreBackend = "mongo"
	if _, err := buildDependencies(cfg, backends{}, nil); err == nil {
		t.Fatal("expected an error for an unknown store backend")
	}
}

func TestBuildNotifier(t *testing.T) {
	cfg := memoryConfig()
	if _, ok := buildNotifier(cfg, backends{}).(notifications.LogSink); !ok {
		t.Fatal("expected log sink without redis")
	}

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()
	if _, ok := buildNotifier(cfg, backends{redis: client}).(*notifications.RedisSink); !ok {
		t.Fatal("expected redis sink when redis is configured")
	}
}
