package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mathduel/arena/internal/config"
	"github.com/mathduel/arena/internal/friends"
	"github.com/mathduel/arena/internal/game"
	"github.com/mathduel/arena/internal/identity"
	"github.com/mathduel/arena/internal/logging"
	"github.com/mathduel/arena/internal/player"
	"github.com/mathduel/arena/internal/server"
	"github.com/mathduel/arena/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server
}

// New bootstraps config, logger, optional Postgres and Redis, and the full
// service graph. Both stores are optional: without Postgres player records
// live in process memory, without Redis the rate limiter does.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	var pool *pgxpool.Pool
	var repo player.Repository
	if cfg.Postgres.Enabled() {
		connString := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=10",
			cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Database, cfg.Postgres.SSLMode)

		var err error
		pool, err = pgxpool.New(ctx, connString)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		repo = player.NewFallbackRepository(player.NewPostgresRepository(pool), logger)
	} else {
		logger.Warn().Msg("postgres not configured; player records are volatile")
		repo = player.NewMemoryRepository()
	}

	var redisClient *redis.Client
	var limiter friends.Limiter
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		limiter = friends.NewRedisLimiter(redisClient, cfg.Friends.RateLimitWindow, cfg.Friends.RateLimitMax, logger)
	} else {
		logger.Warn().Msg("redis not configured; rate limiter state is in-process")
		limiter = friends.NewMemoryLimiter(cfg.Friends.RateLimitWindow, cfg.Friends.RateLimitMax)
	}

	tokens := identity.NewManager([]byte(cfg.Security.IdentitySecret), cfg.Name)
	hub := ws.NewHub(logger)

	friendSvc := friends.NewService(repo, limiter, hub, friends.ServiceOptions{
		RequestExpiry: cfg.Friends.RequestExpiry,
	}, logger)
	friendHandlers := friends.NewHTTPHandlers(friendSvc, tokens, logger)

	gameSvc := game.NewService(hub, repo, game.Config{
		StartCountdown:   cfg.Game.StartCountdown,
		RoomExpiry:       cfg.Game.RoomExpiry,
		ChallengeExpiry:  cfg.Game.ChallengeExpiry,
		CleanupDelay:     cfg.Game.RoomCleanupDelay,
		PointsPerCorrect: cfg.Game.PointsPerCorrect,
	}, logger)
	gameHandler := game.NewHandler(gameSvc, hub, logger)
	arenaWS := game.NewWSMux(gameHandler, tokens)

	apiServer := server.NewHTTPServer(cfg, logger, server.FriendRoutes{
		SendRequest: friendHandlers.SendRequest,
		Accept:      friendHandlers.Accept,
		Reject:      friendHandlers.Reject,
		Remove:      friendHandlers.Remove,
		Status:      friendHandlers.Status,
		Search:      friendHandlers.Search,
		Sync:        friendHandlers.Sync,
	}, arenaWS)

	return &Application{
		cfg:    cfg,
		logger: logger,
		pool:   pool,
		redis:  redisClient,
		http:   apiServer,
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error().Err(err).Msg("redis shutdown error")
		}
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}
