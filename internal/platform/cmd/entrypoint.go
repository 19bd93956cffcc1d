// Package cmd holds the startup plumbing shared by the tour commands.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bitcoinpitch/tour/internal/platform/config"
	"github.com/bitcoinpitch/tour/internal/platform/otel"
)

const defaultOTelShutdownTimeout = 5 * time.Second

// Service names reported to tracing and logs.
const (
	ServiceTour      = "tour"
	ServiceTourCheck = "tourcheck"
)

// RunOptions tunes Run.
type RunOptions struct {
	// ShutdownTimeout bounds the tracer flush on exit.
	ShutdownTimeout time.Duration
	// Logger receives lifecycle lines; nil discards them.
	Logger *zerolog.Logger
}

// ParseConfig fills cfg from BITCOINPITCH_* environment variables.
func ParseConfig[T any](cfg *T) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	return config.ParseEnv(cfg)
}

// ParseArgs parses args with fs. Flags registered with env-derived defaults
// therefore override the environment.
func ParseArgs(fs *flag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("flag parser is required")
	}
	if args == nil {
		args = []string{}
	}
	return fs.Parse(args)
}

// Run installs tracing for service, runs fn, and flushes traces afterwards.
func Run(ctx context.Context, service string, opts RunOptions, fn func(context.Context) error) error {
	service = strings.TrimSpace(service)
	switch {
	case service == "":
		return fmt.Errorf("service name is required")
	case fn == nil:
		return fmt.Errorf("run function is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	logger = logger.With().Str("service", service).Logger()

	shutdown, err := otel.Setup(ctx, service)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer flush(shutdown, opts.ShutdownTimeout, logger)

	logger.Debug().Msg("starting")
	err = fn(ctx)
	logger.Debug().Err(err).Msg("stopped")
	return err
}

func flush(shutdown func(context.Context) error, timeout time.Duration, logger zerolog.Logger) {
	if timeout <= 0 {
		timeout = defaultOTelShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("otel shutdown")
	}
}
