package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/chotuve/appserver/internal/authserver"
	"github.com/chotuve/appserver/internal/config"
	"github.com/chotuve/appserver/internal/conversations"
	"github.com/chotuve/appserver/internal/db"
	"github.com/chotuve/appserver/internal/friends"
	"github.com/chotuve/appserver/internal/handlers"
	"github.com/chotuve/appserver/internal/middleware"
	"github.com/chotuve/appserver/internal/notifications"
	"github.com/chotuve/appserver/internal/repositories"
	"github.com/chotuve/appserver/internal/statistics"
	"github.com/chotuve/appserver/internal/videos"
)

// backends are the external services a configuration may require. Fields are
// nil when the configuration does not use them.
type backends struct {
	pool  db.Pool
	redis *redis.Client
}

// stores groups the repositories selected by the store backend.
type stores struct {
	videos   repositories.VideoRepository
	friends  repositories.FriendRepository
	messages repositories.MessageRepository
}

// components is everything serve needs to assemble the HTTP stack.
type components struct {
	handlers handlers.Dependencies
	recorder statistics.Recorder
	metrics  *middleware.Metrics
}

func buildStores(cfg config.Config, b backends) (stores, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return stores{
			videos:   repositories.NewMemoryVideoRepository(),
			friends:  repositories.NewMemoryFriendRepository(),
			messages: repositories.NewMemoryMessageRepository(),
		}, nil
	case config.BackendPostgres:
		if b.pool == nil {
			return stores{}, fmt.Errorf("store backend %q requires a database pool", cfg.StoreBackend)
		}
		return stores{
			videos:   repositories.NewPostgresVideoRepository(b.pool),
			friends:  repositories.NewPostgresFriendRepository(b.pool),
			messages: repositories.NewPostgresMessageRepository(b.pool),
		}, nil
	default:
		return stores{}, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func buildRecorder(cfg config.Config, b backends) (statistics.Recorder, error) {
	switch cfg.StatisticsBackend {
	case config.BackendMemory:
		return statistics.NewMemoryRecorder(), nil
	case config.BackendRedis:
		if b.redis == nil {
			return nil, fmt.Errorf("statistics backend %q requires a redis client", cfg.StatisticsBackend)
		}
		return statistics.NewRedisRecorder(b.redis, statistics.DefaultKeyPrefix), nil
	default:
		return nil, fmt.Errorf("unknown statistics backend %q", cfg.StatisticsBackend)
	}
}

func buildNotifier(cfg config.Config, b backends) notifications.Sink {
	if b.redis != nil {
		return notifications.NewRedisSink(b.redis, cfg.NotificationsChannel)
	}
	return notifications.LogSink{}
}

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(cfg config.Config, b backends, directory *authserver.Client) (components, error) {
	st, err := buildStores(cfg, b)
	if err != nil {
		return components{}, err
	}
	recorder, err := buildRecorder(cfg, b)
	if err != nil {
		return components{}, err
	}
	notifier := buildNotifier(cfg, b)

	friendService := &friends.Service{
		Friends:  st.friends,
		Profiles: directory,
		Notifier: notifier,
	}
	videoService := &videos.Service{
		Videos:   st.videos,
		Friends:  friendService,
		Profiles: directory,
		Notifier: notifier,
	}
	conversationService := &conversations.Service{
		Messages:    st.messages,
		Friends:     friendService,
		Profiles:    directory,
		Notifier:    notifier,
		FriendsOnly: cfg.ConversationsFriendsOnly,
	}

	metrics := middleware.NewMetrics()

	return components{
		handlers: handlers.Dependencies{
			Videos:        videoService,
			Friends:       friendService,
			Conversations: conversationService,
			Statistics:    recorder,
			Tokens:        directory,
			Metrics:       metrics.Handler(),
			HealthChecks:  healthChecks(b),
		},
		recorder: recorder,
		metrics:  metrics,
	}, nil
}

func healthChecks(b backends) map[string]handlers.HealthCheck {
	checks := make(map[string]handlers.HealthCheck)
	if pinger, ok := b.pool.(db.Pinger); ok {
		checks["database"] = pinger.Ping
	}
	if b.redis != nil {
		client := b.redis
		checks["redis"] = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
	}
	return checks
}
