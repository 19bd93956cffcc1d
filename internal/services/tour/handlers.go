package tour

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/a-h/templ"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bitcoinpitch/tour/internal/pitch"
	"github.com/bitcoinpitch/tour/internal/platform/requestctx"
	"github.com/bitcoinpitch/tour/internal/services/shared/htmx"
	"github.com/bitcoinpitch/tour/internal/services/shared/i18nhttp"
	"github.com/bitcoinpitch/tour/internal/telemetry"
	"github.com/bitcoinpitch/tour/internal/tutorial/completion"
	"github.com/bitcoinpitch/tour/internal/tutorial/engine"
	"github.com/bitcoinpitch/tour/internal/tutorial/gate"
	"github.com/bitcoinpitch/tour/internal/tutorial/locale"
	"github.com/bitcoinpitch/tour/internal/tutorial/steps"
)

// maxPitchFormBytes leaves room for a too-long pitch plus form encoding.
const maxPitchFormBytes = 16 << 10

// action is a tour event a client can send.
type action string

const (
	actionStart    action = "start"
	actionNext     action = "next"
	actionPrevious action = "previous"
	actionSkip     action = "skip"
	actionClose    action = "close"
	actionKey      action = "key"
)

// routeSet holds the mounted endpoint paths.
type routeSet struct {
	bootstrap    string
	start        string
	next         string
	previous     string
	skip         string
	close        string
	key          string
	reset        string
	pitchLimits  string
	pitchCounter string
}

func newRouteSet(prefix string) routeSet {
	return routeSet{
		bootstrap:    prefix + "/bootstrap",
		start:        prefix + "/start",
		next:         prefix + "/next",
		previous:     prefix + "/previous",
		skip:         prefix + "/skip",
		close:        prefix + "/close",
		key:          prefix + "/key",
		reset:        prefix + "/reset",
		pitchLimits:  prefix + "/pitch-limits",
		pitchCounter: prefix + "/pitch-counter",
	}
}

type handler struct {
	table          *locale.Table
	catalogs       map[string][]steps.Step
	store          completion.Store
	gate           gate.Gate
	emitter        *telemetry.Emitter
	logger         zerolog.Logger
	visitors       visitors
	sessions       *registry
	tracer         trace.Tracer
	paths          routeSet
	pitchLimits    pitch.Limits
	authCookieName string
	autoStartDelay time.Duration
	sweepEvery     time.Duration
}

func (h *handler) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET "+h.paths.bootstrap, h.withVisitor(h.handleBootstrap))
	mux.Handle("POST "+h.paths.start, h.withVisitor(h.handleEvent(actionStart)))
	mux.Handle("POST "+h.paths.next, h.withVisitor(h.handleEvent(actionNext)))
	mux.Handle("POST "+h.paths.previous, h.withVisitor(h.handleEvent(actionPrevious)))
	mux.Handle("POST "+h.paths.skip, h.withVisitor(h.handleEvent(actionSkip)))
	mux.Handle("POST "+h.paths.close, h.withVisitor(h.handleEvent(actionClose)))
	mux.Handle("POST "+h.paths.key, h.withVisitor(h.handleEvent(actionKey)))
	mux.Handle("POST "+h.paths.reset, h.withVisitor(h.handleReset))
	mux.HandleFunc("GET "+h.paths.pitchLimits, h.handlePitchLimits)
	mux.HandleFunc("POST "+h.paths.pitchCounter, h.handlePitchCounter)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

type stepTargets struct {
	Target   string `json:"target"`
	Fallback string `json:"fallback,omitempty"`
}

type bootstrapLabels struct {
	SkipTour string `json:"skipTour"`
	Previous string `json:"previous"`
	Next     string `json:"next"`
	Finish   string `json:"finish"`
	Of       string `json:"of"`
	Close    string `json:"close"`
}

type bootstrapRoutes struct {
	Start        string `json:"start"`
	Next         string `json:"next"`
	Previous     string `json:"previous"`
	Skip         string `json:"skip"`
	Close        string `json:"close"`
	Key          string `json:"key"`
	Reset        string `json:"reset"`
	PitchLimits  string `json:"pitchLimits"`
	PitchCounter string `json:"pitchCounter"`
}

type bootstrapResponse struct {
	AutoStart bool            `json:"autoStart"`
	DelayMS   int64           `json:"delayMs"`
	Language  string          `json:"language"`
	Labels    bootstrapLabels `json:"labels"`
	Steps     []stepTargets   `json:"steps"`
	// Selectors lists every selector the client must measure in snapshots.
	Selectors []string        `json:"selectors"`
	Routes    bootstrapRoutes `json:"routes"`
}

// handleBootstrap tells the client script whether to auto-start, in which
// language, and which selectors to measure.
func (h *handler) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "tour.bootstrap")
	defer span.End()

	visitor := requestctx.VisitorIDFromContext(ctx)
	lang, persist := i18nhttp.ResolveLanguage(h.table, r)
	if persist {
		i18nhttp.SetLanguageCookie(w, lang)
	}

	path := strings.TrimSpace(r.URL.Query().Get("path"))
	if path == "" {
		path = i18nhttp.Signals(r).Path
	}
	signals := gate.Signals{Authenticated: h.authenticated(r), Path: path}
	autoStart := h.gate.ShouldAutoStart(ctx, signals, completion.NewFlag(h.store, visitor))

	catalog := h.catalogs[lang]
	labels := h.table.Resolve(lang).Labels
	resp := bootstrapResponse{
		AutoStart: autoStart,
		DelayMS:   h.autoStartDelay.Milliseconds(),
		Language:  lang,
		Labels: bootstrapLabels{
			SkipTour: labels.SkipTour,
			Previous: labels.Previous,
			Next:     labels.Next,
			Finish:   labels.Finish,
			Of:       labels.Of,
			Close:    labels.Close,
		},
		Steps:     make([]stepTargets, 0, len(catalog)),
		Selectors: selectorsOf(catalog),
		Routes: bootstrapRoutes{
			Start:        h.paths.start,
			Next:         h.paths.next,
			Previous:     h.paths.previous,
			Skip:         h.paths.skip,
			Close:        h.paths.close,
			Key:          h.paths.key,
			Reset:        h.paths.reset,
			PitchLimits:  h.paths.pitchLimits,
			PitchCounter: h.paths.pitchCounter,
		},
	}
	for _, step := range catalog {
		resp.Steps = append(resp.Steps, stepTargets{Target: step.TargetSelector, Fallback: step.FallbackSelector})
	}

	span.SetAttributes(
		attribute.String("tour.lang", lang),
		attribute.String("tour.path", path),
		attribute.Bool("tour.auto_start", autoStart),
	)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Warn().Err(err).Msg("write bootstrap response")
	}
}

// handleEvent feeds one event to the visitor's engine and responds with the
// re-rendered tour root plus the telemetry fired while handling it.
func (h *handler) handleEvent(act action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := h.tracer.Start(r.Context(), "tour."+string(act))
		defer span.End()
		ctx, collector := telemetry.WithCollector(ctx)

		visitor := requestctx.VisitorIDFromContext(ctx)
		snap, err := decodeSnapshot(w, r)
		if err != nil {
			h.fail(w, span, err, "invalid snapshot", http.StatusBadRequest)
			return
		}
		signals := i18nhttp.Signals(r)
		if snap.DocLang != "" {
			signals.DocumentLang = snap.DocLang
		}
		lang := h.table.DetectLanguage(signals)

		sess := h.sessions.acquire(visitor)
		sess.mu.Lock()
		defer sess.mu.Unlock()

		if !sess.limiter.Allow() {
			span.SetStatus(codes.Error, "rate limited")
			http.Error(w, "too many tour events", http.StatusTooManyRequests)
			return
		}

		sess.page.update(snap)
		eng, err := h.engineFor(sess, lang)
		if err != nil {
			h.fail(w, span, err, "tour unavailable", http.StatusInternalServerError)
			return
		}

		switch act {
		case actionStart:
			eng.Start(ctx)
		case actionNext:
			eng.Next(ctx)
		case actionPrevious:
			eng.Previous(ctx)
		case actionSkip:
			eng.Skip(ctx)
		case actionClose:
			eng.Close(ctx)
		case actionKey:
			sess.page.dispatchKey(ctx, engine.ParseKey(snap.Key))
		}

		span.SetAttributes(
			attribute.String("tour.visitor", visitor),
			attribute.String("tour.lang", sess.language),
			attribute.Bool("tour.active", eng.Active()),
			attribute.Int("tour.step", eng.Step()+1),
		)
		h.logger.Debug().
			Str("visitor", visitor).
			Str("action", string(act)).
			Bool("active", eng.Active()).
			Int("step", eng.Step()+1).
			Msg("tour event handled")

		if err := htmx.SetTriggers(w, triggersOf(collector.Events())); err != nil {
			h.logger.Warn().Err(err).Msg("encode tour triggers")
		}
		htmx.RenderFragment(w, r, fragment(sess.page.current(), h.paths), http.StatusOK)
	}
}

// handleReset clears the visitor's completion flag so the tour auto-starts again.
func (h *handler) handleReset(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "tour.reset")
	defer span.End()

	visitor := requestctx.VisitorIDFromContext(ctx)

	var err error
	if sess, ok := h.sessions.lookup(visitor); ok {
		sess.mu.Lock()
		eng := sess.engine
		if eng != nil {
			err = eng.Reset(ctx)
		}
		sess.mu.Unlock()
		if eng == nil {
			err = completion.NewFlag(h.store, visitor).Clear(ctx)
		}
	} else {
		err = completion.NewFlag(h.store, visitor).Clear(ctx)
	}
	if err != nil {
		h.fail(w, span, err, "reset failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePitchLimits serves the byte limits the pitch form counts against.
func (h *handler) handlePitchLimits(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.pitchLimits); err != nil {
		h.logger.Warn().Err(err).Msg("write pitch limits")
	}
}

// handlePitchCounter renders the counter and overflow mirror for the posted
// content field.
func (h *handler) handlePitchCounter(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPitchFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid pitch form", http.StatusBadRequest)
		return
	}
	m := h.pitchLimits.Measure(r.PostForm.Get("content"))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	templ.Handler(pitchCounter(m)).ServeHTTP(w, r)
}

// engineFor returns the session's engine, rebuilding it when the language
// changed while the tour is not showing.
func (h *handler) engineFor(sess *session, lang string) (*engine.Engine, error) {
	if sess.engine != nil && (sess.language == lang || sess.engine.Active()) {
		return sess.engine, nil
	}
	logger := h.logger.With().Str("visitor", sess.visitor).Str("lang", lang).Logger()
	eng, err := engine.New(engine.Config{
		Steps:    h.catalogs[lang],
		Labels:   h.table.Resolve(lang).Labels,
		Page:     sess.page,
		Flag:     completion.NewFlag(h.store, sess.visitor),
		Recorder: h.emitter.Recorder(sess.visitor, lang),
		Logger:   &logger,
	})
	if err != nil {
		return nil, err
	}
	sess.engine = eng
	sess.language = lang
	return eng, nil
}

// withVisitor resolves the visitor cookie once and stores the id in the
// request context.
func (h *handler) withVisitor(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		visitor, err := h.visitors.identify(w, r)
		if err != nil {
			h.logger.Error().Err(err).Msg("identify visitor")
			http.Error(w, "identify visitor", http.StatusInternalServerError)
			return
		}
		next(w, r.WithContext(requestctx.WithVisitorID(r.Context(), visitor)))
	})
}

func (h *handler) authenticated(r *http.Request) bool {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("authenticated"))) {
	case "1", "true":
		return true
	}
	if h.authCookieName == "" {
		return false
	}
	cookie, err := r.Cookie(h.authCookieName)
	return err == nil && strings.TrimSpace(cookie.Value) != ""
}

func (h *handler) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(h.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := h.sessions.sweep(); removed > 0 {
				h.logger.Debug().Int("removed", removed).Int("remaining", h.sessions.len()).Msg("expired tour sessions")
			}
		}
	}
}

func (h *handler) fail(w http.ResponseWriter, span trace.Span, err error, msg string, status int) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Msg(msg)
	} else {
		h.logger.Debug().Err(err).Msg(msg)
	}
	http.Error(w, msg, status)
}

// selectorsOf returns the distinct primary and fallback selectors of catalog.
func selectorsOf(catalog []steps.Step) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(catalog)+1)
	for _, step := range catalog {
		for _, sel := range []string{step.TargetSelector, step.FallbackSelector} {
			if sel == "" {
				continue
			}
			if _, ok := seen[sel]; ok {
				continue
			}
			seen[sel] = struct{}{}
			out = append(out, sel)
		}
	}
	return out
}

func triggersOf(events []telemetry.Event) []htmx.Trigger {
	out := make([]htmx.Trigger, 0, len(events))
	for _, evt := range events {
		detail := map[string]any{"language": evt.Language}
		if evt.Step > 0 {
			detail["step"] = evt.Step
		}
		out = append(out, htmx.Trigger{Name: evt.Name, Detail: detail})
	}
	return out
}
