package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"mathduel-arena"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres Postgres
	Redis    Redis
	Security Security
	Game     Game
	Friends  Friends
	CORS     CORS
}

// Postgres captures connection info for the player record store. Host is
// optional: when empty the repository runs on volatile in-process storage.
type Postgres struct {
	Host     string `env:"PG_HOST"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER"`
	Password string `env:"PG_PASSWORD"`
	Database string `env:"PG_DATABASE"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
}

// Enabled reports whether a durable store is configured.
func (p Postgres) Enabled() bool {
	return p.Host != ""
}

// Redis holds rate-limiter state configuration. Optional: when Addr is empty
// the limiter keeps its sliding windows in process memory.
type Redis struct {
	Addr     string `env:"REDIS_ADDR"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Enabled reports whether Redis is configured.
func (r Redis) Enabled() bool {
	return r.Addr != ""
}

// Security stores the shared secret used to validate identity tokens minted
// by the external auth service.
type Security struct {
	IdentitySecret string `env:"IDENTITY_TOKEN_SECRET,notEmpty"`
}

// Game groups session timing and scoring defaults.
type Game struct {
	StartCountdown   time.Duration `env:"GAME_START_COUNTDOWN" envDefault:"3s"`
	RoomExpiry       time.Duration `env:"GAME_ROOM_EXPIRY" envDefault:"120s"`
	ChallengeExpiry  time.Duration `env:"CHALLENGE_EXPIRY" envDefault:"30s"`
	RoomCleanupDelay time.Duration `env:"ROOM_CLEANUP_DELAY" envDefault:"5s"`
	PointsPerCorrect int           `env:"POINTS_PER_CORRECT" envDefault:"10"`
}

// Friends governs the friend-request protocol.
type Friends struct {
	RequestExpiry   time.Duration `env:"FRIEND_REQUEST_EXPIRY" envDefault:"72h"`
	RateLimitWindow time.Duration `env:"FRIEND_RATE_LIMIT_WINDOW" envDefault:"30m"`
	RateLimitMax    int           `env:"FRIEND_RATE_LIMIT_MAX" envDefault:"5"`
}

// CORS holds Cross-Origin Resource Sharing configuration.
type CORS struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Content-Type,Authorization,X-Trace-Id"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
