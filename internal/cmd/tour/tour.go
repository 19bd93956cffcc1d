// Package tour parses tour service flags and launches the service.
package tour

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bitcoinpitch/tour/internal/pitch"
	entrypoint "github.com/bitcoinpitch/tour/internal/platform/cmd"
	"github.com/bitcoinpitch/tour/internal/platform/logging"
	server "github.com/bitcoinpitch/tour/internal/services/tour"
	"github.com/bitcoinpitch/tour/internal/telemetry"
	"github.com/bitcoinpitch/tour/internal/tutorial/completion"
	"github.com/bitcoinpitch/tour/internal/tutorial/locale"
	redisstore "github.com/bitcoinpitch/tour/internal/tutorial/storage/redis"
	sqlitestore "github.com/bitcoinpitch/tour/internal/tutorial/storage/sqlite"
)

// Completion store backends.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config holds tour command configuration.
type Config struct {
	HTTPAddr       string        `env:"BITCOINPITCH_TOUR_HTTP_ADDR" envDefault:"localhost:8095"`
	Store          string        `env:"BITCOINPITCH_TOUR_STORE" envDefault:"sqlite"`
	SQLitePath     string        `env:"BITCOINPITCH_TOUR_SQLITE_PATH" envDefault:"data/tour.db"`
	RedisAddr      string        `env:"BITCOINPITCH_TOUR_REDIS_ADDR"`
	RedisPassword  string        `env:"BITCOINPITCH_TOUR_REDIS_PASSWORD"`
	RedisDB        int           `env:"BITCOINPITCH_TOUR_REDIS_DB" envDefault:"0"`
	VisitorSecret  string        `env:"BITCOINPITCH_TOUR_VISITOR_SECRET"`
	SecureCookies  bool          `env:"BITCOINPITCH_TOUR_SECURE_COOKIES" envDefault:"false"`
	AuthCookieName string        `env:"BITCOINPITCH_TOUR_AUTH_COOKIE" envDefault:"session"`
	AutoStartPaths []string      `env:"BITCOINPITCH_TOUR_AUTOSTART_PATHS" envSeparator:","`
	AutoStartDelay time.Duration `env:"BITCOINPITCH_TOUR_AUTOSTART_DELAY" envDefault:"1s"`
	SessionTTL     time.Duration `env:"BITCOINPITCH_TOUR_SESSION_TTL" envDefault:"30m"`
	RateLimit      float64       `env:"BITCOINPITCH_TOUR_RATE_LIMIT" envDefault:"10"`
	RateBurst      int           `env:"BITCOINPITCH_TOUR_RATE_BURST" envDefault:"20"`
	LogLevel       string        `env:"BITCOINPITCH_TOUR_LOG_LEVEL" envDefault:"info"`
	LogFormat      string        `env:"BITCOINPITCH_TOUR_LOG_FORMAT" envDefault:"json"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.Store, "store", cfg.Store, "Completion store backend: sqlite, redis or memory")
	fs.StringVar(&cfg.SQLitePath, "sqlite-path", cfg.SQLitePath, "SQLite database path")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address")
	fs.DurationVar(&cfg.AutoStartDelay, "autostart-delay", cfg.AutoStartDelay, "Delay before an automatic tour start")
	fs.DurationVar(&cfg.SessionTTL, "session-ttl", cfg.SessionTTL, "Idle visitor session lifetime")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: json or console")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the tour HTTP service.
func Run(ctx context.Context, cfg Config) error {
	logger, err := logging.New(logging.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: entrypoint.ServiceTour,
	})
	if err != nil {
		return err
	}
	return entrypoint.Run(ctx, entrypoint.ServiceTour, entrypoint.RunOptions{Logger: &logger}, func(ctx context.Context) error {
		return serve(ctx, cfg, logger)
	})
}

func serve(ctx context.Context, cfg Config, logger zerolog.Logger) error {
	table, err := locale.Default()
	if err != nil {
		return fmt.Errorf("load translations: %w", err)
	}
	limits, err := pitch.LoadLimits()
	if err != nil {
		return fmt.Errorf("load pitch limits: %w", err)
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Info().Str("store", cfg.Store).Strs("languages", table.Codes()).Msg("tour store ready")

	srv, err := server.NewServer(server.Config{
		HTTPAddr:       cfg.HTTPAddr,
		Table:          table,
		Store:          store,
		Sinks:          []telemetry.Sink{telemetry.NewLogSink(logger)},
		Logger:         logger,
		VisitorSecret:  cfg.VisitorSecret,
		SecureCookies:  cfg.SecureCookies,
		AuthCookieName: cfg.AuthCookieName,
		AutoStartPaths: cfg.AutoStartPaths,
		AutoStartDelay: cfg.AutoStartDelay,
		SessionTTL:     cfg.SessionTTL,
		RateLimit:      cfg.RateLimit,
		RateBurst:      cfg.RateBurst,
		PitchLimits:    limits,
	})
	if err != nil {
		if closer, ok := store.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
		return fmt.Errorf("init tour server: %w", err)
	}
	defer srv.Close()

	if err := srv.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve tour: %w", err)
	}
	return nil
}

// openStore opens the configured completion store backend.
func openStore(ctx context.Context, cfg Config) (completion.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Store)) {
	case StoreSQLite:
		path := strings.TrimSpace(cfg.SQLitePath)
		if path == "" {
			return nil, fmt.Errorf("sqlite path is required")
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		store, err := sqlitestore.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	case StoreRedis:
		store, err := redisstore.Open(ctx, redisstore.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		return store, nil
	case StoreMemory:
		return completion.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store)
	}
}
