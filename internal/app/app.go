package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chotuve/appserver/internal/authserver"
	"github.com/chotuve/appserver/internal/config"
	"github.com/chotuve/appserver/internal/db"
	"github.com/chotuve/appserver/internal/handlers"
	"github.com/chotuve/appserver/internal/httpserver"
	"github.com/chotuve/appserver/internal/logging"
	"github.com/chotuve/appserver/internal/middleware"
)

// Run bootstraps the app server.
func Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("expected command: serve, migrate, or seed")
	}

	switch args[0] {
	case "serve":
		return serve(ctx)
	case "migrate":
		return runMigrations(ctx, args[1:])
	case "seed":
		return runSeed(ctx, args[1:])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, closeBackends, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackends()

	directory := authserver.NewClient(authserver.Config{
		BaseURL:        cfg.Auth.URL,
		Secret:         cfg.Auth.Secret,
		Alias:          cfg.Auth.ServerAlias,
		HealthEndpoint: cfg.Auth.HealthURL,
		Timeout:        cfg.Auth.Timeout,
		TokenCacheTTL:  cfg.Auth.TokenCacheTTL,
	})

	comps, err := buildDependencies(cfg, b, directory)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux, comps.handlers)

	limiter := middleware.NewIPRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow, cfg.RateLimitBurst, 0)
	handler := middleware.Chain(mux,
		middleware.RequestLogger(logger),
		comps.metrics.Instrument(mux),
		middleware.Statistics(comps.recorder, mux),
		middleware.LimitWrites(limiter),
	)

	if err := registerWithRetry(ctx, directory); err != nil {
		return err
	}

	srv := httpserver.New(cfg.AppPort, handler)
	logger.Info("starting http server",
		"port", cfg.AppPort,
		"store", cfg.StoreBackend,
		"statistics", cfg.StatisticsBackend,
		"friends_only_conversations", cfg.ConversationsFriendsOnly,
	)
	return srv.Run(ctx, logger)
}

// openBackends connects to the services the configuration selects. The
// returned func closes whatever was opened.
func openBackends(ctx context.Context, cfg config.Config) (backends, func(), error) {
	var b backends
	closers := []func(){}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.StoreBackend == config.BackendPostgres {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return backends{}, nil, err
		}
		b.pool = pool
		closers = append(closers, pool.Close)
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			closeAll()
			return backends{}, nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			closeAll()
			return backends{}, nil, fmt.Errorf("ping redis: %w", err)
		}
		b.redis = client
		closers = append(closers, func() { _ = client.Close() })
	}

	return b, closeAll, nil
}

const registerMaxRetries = 5

// registerWithRetry obtains the auth server api key, retrying while the auth
// server comes up.
func registerWithRetry(ctx context.Context, directory *authserver.Client) error {
	var err error
	for attempt := 0; attempt < registerMaxRetries; attempt++ {
		if err := waitBackoff(ctx, attempt); err != nil {
			return err
		}
		if err = directory.Register(ctx); err == nil {
			return nil
		}
		logging.FromContext(ctx).Warn("auth server registration failed", "attempt", attempt+1, "error", err)
	}
	return fmt.Errorf("register with auth server: %w", err)
}

// waitBackoff sleeps before retry attempt n (no wait for the first attempt),
// doubling from migrationBaseBackoff up to migrationMaxBackoff.
func waitBackoff(ctx context.Context, attempt int) error {
	if attempt == 0 {
		return nil
	}
	backoff := time.Duration(math.Pow(2, float64(attempt-1))) * migrationBaseBackoff
	if backoff > migrationMaxBackoff {
		backoff = migrationMaxBackoff
	}
	timer := time.NewTimer(backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
