package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/garcia/facebook-api/internal/config"
	"github.com/garcia/facebook-api/internal/domain"
	"github.com/garcia/facebook-api/internal/events"
	"github.com/garcia/facebook-api/internal/httpserver"
	"github.com/garcia/facebook-api/internal/memory"
	"github.com/garcia/facebook-api/internal/mongodb"
	"github.com/garcia/facebook-api/internal/postgres"
	"github.com/garcia/facebook-api/internal/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// Set up graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	// Events reach stream subscribers through the hub, via redis when
	// configured so every instance sees every change.
	hub := events.NewHub(events.DefaultBuffer, logger)
	var publisher domain.EventPublisher = hub
	if cfg.RedisURL != "" {
		rdb, err := events.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()

		bridge := events.NewRedisBridge(rdb, cfg.RedisChannel, hub, logger)
		publisher = bridge
		go func() {
			if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("redis event relay exited with error", "error", err)
			}
		}()
		logger.Info("connected to redis", "channel", cfg.RedisChannel)
	}

	postService := domain.NewPostService(repo, logger,
		domain.WithEventPublisher(publisher),
		domain.WithMaxPageSize(cfg.MaxPageSize),
	)

	// Start the HTTP server
	server := httpserver.NewServer(cfg, postService, hub, logger)
	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info("server started", "port", cfg.Port, "store", cfg.Store)

	select {
	case <-ctx.Done():
		logger.Info("received signal, shutting down")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down http server", "error", err)
	}

	return nil
}

// openRepository builds the store selected by cfg.Store. The returned func
// releases its connections.
func openRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.PostRepository, func(), error) {
	switch cfg.Store {
	case config.StorePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{MaxConns: int32(cfg.PostgresMaxConns)})
		if err != nil {
			return nil, nil, fmt.Errorf("create repository: %w", err)
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate database: %w", err)
		}
		logger.Info("connected to database", "store", cfg.Store)
		return postgres.NewRepository(pool), pool.Close, nil

	case config.StoreSQLite:
		repo, err := sqlite.NewRepository(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("create repository: %w", err)
		}
		logger.Info("opened database", "store", cfg.Store, "path", cfg.SQLitePath)
		return repo, func() {
			if err := repo.Close(); err != nil {
				logger.Error("error closing database", "error", err)
			}
		}, nil

	case config.StoreMongo:
		mc, err := mongodb.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, fmt.Errorf("create repository: %w", err)
		}
		logger.Info("connected to database", "store", cfg.Store, "database", cfg.MongoDatabase)
		return mongodb.NewRepository(mc.Database(cfg.MongoDatabase)), func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := mc.Disconnect(disconnectCtx); err != nil {
				logger.Error("error disconnecting from mongo", "error", err)
			}
		}, nil

	default:
		logger.Info("using in-memory store; posts are lost on restart")
		return memory.NewRepository(), func() {}, nil
	}
}
