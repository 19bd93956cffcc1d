// Package tour hosts one onboarding tour engine per visitor behind an HTTP
// API. Clients post a layout snapshot with every event and swap in the
// returned HTML fragment.
package tour

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"

	"github.com/bitcoinpitch/tour/internal/pitch"
	"github.com/bitcoinpitch/tour/internal/platform/timeouts"
	"github.com/bitcoinpitch/tour/internal/telemetry"
	"github.com/bitcoinpitch/tour/internal/tutorial/completion"
	"github.com/bitcoinpitch/tour/internal/tutorial/gate"
	"github.com/bitcoinpitch/tour/internal/tutorial/locale"
	"github.com/bitcoinpitch/tour/internal/tutorial/steps"
)

const (
	// DefaultRoutePrefix is where the tour endpoints are mounted.
	DefaultRoutePrefix = "/tutorial"
	// DefaultAutoStartDelay lets the page settle before the tour appears.
	DefaultAutoStartDelay = time.Second
	// DefaultSessionTTL expires idle visitor sessions.
	DefaultSessionTTL = 30 * time.Minute

	tracerName = "github.com/bitcoinpitch/tour/internal/services/tour"
)

// Config defines the inputs for the tour server.
type Config struct {
	HTTPAddr string
	// RoutePrefix defaults to DefaultRoutePrefix.
	RoutePrefix string
	Table       *locale.Table
	Store       completion.Store
	// Sinks receive tour telemetry in addition to span events and the
	// per-response HX-Trigger header.
	Sinks  []telemetry.Sink
	Logger zerolog.Logger
	// VisitorSecret signs the anonymous visitor cookie.
	VisitorSecret string
	SecureCookies bool
	// AuthCookieName is the site's session cookie; its presence means the
	// visitor is signed in.
	AuthCookieName string
	AutoStartPaths []string
	AutoStartDelay time.Duration
	SessionTTL     time.Duration
	// RateLimit is events per second per visitor; zero disables limiting.
	RateLimit float64
	RateBurst int
	// PitchLimits bound the pitch counter; the zero value means
	// pitch.DefaultLimits.
	PitchLimits pitch.Limits
	Now         func() time.Time
}

// Server hosts the tour HTTP server.
type Server struct {
	httpAddr   string
	httpServer *http.Server
	handler    *handler
	logger     zerolog.Logger
}

// NewServer builds a configured tour server.
func NewServer(config Config) (*Server, error) {
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	h, err := newHandler(config)
	if err != nil {
		return nil, err
	}
	return &Server{
		httpAddr: httpAddr,
		httpServer: &http.Server{
			Addr:              httpAddr,
			Handler:           h.routes(),
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		handler: h,
		logger:  config.Logger,
	}, nil
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe serves HTTP until the context ends, sweeping idle visitor
// sessions in the background.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("tour server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.handler.sweepLoop(sweepCtx)

	serveErr := make(chan error, 1)
	s.logger.Info().Str("addr", s.httpAddr).Msg("tour listening")
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases the completion store when it holds resources.
func (s *Server) Close() {
	if s == nil || s.handler == nil {
		return
	}
	if closer, ok := s.handler.store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("close completion store")
		}
	}
}

func newHandler(config Config) (*handler, error) {
	if config.Table == nil {
		return nil, errors.New("language table is required")
	}
	if config.Store == nil {
		return nil, errors.New("completion store is required")
	}
	catalogs, err := steps.BuildAll(config.Table)
	if err != nil {
		return nil, fmt.Errorf("build step catalogs: %w", err)
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	v, err := newVisitors(config.VisitorSecret, config.SecureCookies, now)
	if err != nil {
		return nil, err
	}

	prefix := strings.TrimRight(strings.TrimSpace(config.RoutePrefix), "/")
	if prefix == "" {
		prefix = DefaultRoutePrefix
	}
	delay := config.AutoStartDelay
	if delay <= 0 {
		delay = DefaultAutoStartDelay
	}
	ttl := config.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	limit := rate.Inf
	if config.RateLimit > 0 {
		limit = rate.Limit(config.RateLimit)
	}
	limits := config.PitchLimits
	if limits == (pitch.Limits{}) {
		limits = pitch.DefaultLimits()
	}
	if err := limits.Validate(); err != nil {
		return nil, err
	}

	return &handler{
		table:          config.Table,
		catalogs:       catalogs,
		store:          config.Store,
		gate:           gate.New(config.AutoStartPaths),
		emitter:        telemetry.NewEmitter(append([]telemetry.Sink{telemetry.CollectorSink{}, telemetry.TraceSink{}}, config.Sinks...)...),
		logger:         config.Logger.With().Str("component", "tour").Logger(),
		visitors:       v,
		sessions:       newRegistry(ttl, limit, config.RateBurst, now),
		tracer:         otel.Tracer(tracerName),
		paths:          newRouteSet(prefix),
		pitchLimits:    limits,
		authCookieName: strings.TrimSpace(config.AuthCookieName),
		autoStartDelay: delay,
		sweepEvery:     sweepInterval(ttl),
	}, nil
}

func sweepInterval(ttl time.Duration) time.Duration {
	every := ttl / 2
	if every < time.Second {
		every = time.Second
	}
	return every
}
