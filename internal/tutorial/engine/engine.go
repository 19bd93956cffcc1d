// Package engine drives the onboarding tour: step progression, overlay
// rendering, keyboard control, completion persistence and telemetry.
//
// An Engine is owned by one page and is not safe for concurrent use; hosts
// serialize the events they feed it.
package engine

import (
	"context"
	"errors"

	"github.com/bitcoinpitch/tour/internal/tutorial/completion"
	"github.com/bitcoinpitch/tour/internal/tutorial/layout"
	"github.com/bitcoinpitch/tour/internal/tutorial/locale"
	"github.com/bitcoinpitch/tour/internal/tutorial/steps"
	"github.com/rs/zerolog"
)

// EventName identifies a telemetry occurrence.
type EventName string

const (
	EventStarted   EventName = "tutorial_started"
	EventSkipped   EventName = "tutorial_skipped"
	EventCompleted EventName = "tutorial_completed"
)

// Event is one telemetry occurrence. Step is the 1-based step number for
// skips and zero otherwise.
type Event struct {
	Name EventName
	Step int
}

// Recorder receives telemetry events.
type Recorder interface {
	Record(ctx context.Context, evt Event)
}

// Config wires an Engine.
type Config struct {
	Steps    []steps.Step
	Labels   locale.Labels
	Page     Page
	Flag     completion.Flag
	Recorder Recorder
	Logger   *zerolog.Logger
}

// rendered is everything an active tour owns on the page.
type rendered struct {
	layers      Layers
	releaseKeys func()
}

// Engine is the tour state machine.
type Engine struct {
	steps    []steps.Step
	labels   locale.Labels
	page     Page
	flag     completion.Flag
	recorder Recorder
	logger   zerolog.Logger

	current int
	active  bool
	view    *rendered
}

// New validates cfg and returns an idle engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Page == nil {
		return nil, errors.New("page is required")
	}
	if len(cfg.Steps) == 0 {
		return nil, errors.New("at least one step is required")
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Engine{
		steps:    cfg.Steps,
		labels:   cfg.Labels,
		page:     cfg.Page,
		flag:     cfg.Flag,
		recorder: cfg.Recorder,
		logger:   logger,
	}, nil
}

// Active reports whether the tour is showing.
func (e *Engine) Active() bool {
	return e.active
}

// Step returns the index of the current step.
func (e *Engine) Step() int {
	return e.current
}

// Len returns the number of steps in the catalog.
func (e *Engine) Len() int {
	return len(e.steps)
}

// Start mounts the overlay and shows the first renderable step. It is a
// no-op while the tour is already active.
func (e *Engine) Start(ctx context.Context) {
	if e.active {
		return
	}
	e.active = true
	e.current = 0
	e.view = &rendered{
		layers:      e.page.Mount(e.scaffold()),
		releaseKeys: e.page.BindKeys(e.HandleKey),
	}
	e.record(ctx, Event{Name: EventStarted})
	e.showStep(ctx, 0)
}

// Next advances one step, completing the tour past the last one.
func (e *Engine) Next(ctx context.Context) {
	if !e.active {
		return
	}
	e.showStep(ctx, e.current+1)
}

// Previous goes back one step. It does nothing on the first step.
func (e *Engine) Previous(ctx context.Context) {
	if !e.active || e.current == 0 {
		return
	}
	e.showStep(ctx, e.current-1)
}

// Skip ends the tour early and remembers not to show it again.
func (e *Engine) Skip(ctx context.Context) {
	if !e.active {
		return
	}
	e.record(ctx, Event{Name: EventSkipped, Step: e.current + 1})
	e.markCompleted(ctx)
	e.teardown()
}

// Complete finishes the tour and remembers not to show it again.
func (e *Engine) Complete(ctx context.Context) {
	if !e.active {
		return
	}
	e.record(ctx, Event{Name: EventCompleted})
	e.markCompleted(ctx)
	e.teardown()
}

// Close removes the tour without touching the completion flag.
func (e *Engine) Close(context.Context) {
	if !e.active {
		return
	}
	e.teardown()
}

// HandleKey maps keyboard input to navigation while active.
func (e *Engine) HandleKey(ctx context.Context, key Key) {
	if !e.active {
		return
	}
	switch key {
	case KeyEscape:
		e.Close(ctx)
	case KeyArrowRight, KeySpace:
		e.Next(ctx)
	case KeyArrowLeft:
		e.Previous(ctx)
	}
}

// Reset clears the completion flag so the tour can auto-start again.
func (e *Engine) Reset(ctx context.Context) error {
	return e.flag.Clear(ctx)
}

// showStep renders step i, skipping forward over steps whose targets are
// not on the page, and completes the tour when it runs out of steps.
func (e *Engine) showStep(ctx context.Context, i int) {
	for ; i < len(e.steps); i++ {
		step := e.steps[i]
		target, ok := e.resolve(step)
		if !ok {
			e.logger.Debug().Int("step", i+1).Str("selector", step.TargetSelector).Msg("tour target missing, skipping step")
			continue
		}
		e.current = i
		e.render(step, i, target)
		return
	}
	e.current = len(e.steps) - 1
	e.Complete(ctx)
}

func (e *Engine) resolve(step steps.Step) (Element, bool) {
	if target, ok := e.page.Query(step.TargetSelector); ok {
		return target, true
	}
	if step.FallbackSelector == "" {
		return nil, false
	}
	return e.page.Query(step.FallbackSelector)
}

func (e *Engine) render(step steps.Step, i int, target Element) {
	box := target.Rect()
	layers := e.view.layers
	layers.Spotlight.Place(layout.Spotlight(box))

	view := e.scaffold()
	view.Title = step.Title
	view.Content = step.Content
	view.Current = i + 1
	view.PrevDisabled = i == 0
	if step.IsLast {
		view.NextLabel = e.labels.Finish
		view.ShowSkip = false
	} else {
		view.ShowSkip = step.ShowSkip
	}
	layers.Modal.Show(view)
	layers.Modal.Move(layout.PlaceModal(box, layers.Modal.Size(), e.page.Viewport(), step.Placement))

	target.ScrollIntoView()
}

func (e *Engine) scaffold() ModalView {
	return ModalView{
		Current:      1,
		Total:        len(e.steps),
		PrevDisabled: true,
		PrevLabel:    e.labels.Previous,
		NextLabel:    e.labels.Next,
		SkipLabel:    e.labels.SkipTour,
		OfLabel:      e.labels.Of,
		CloseLabel:   e.labels.Close,
	}
}

func (e *Engine) markCompleted(ctx context.Context) {
	if err := e.flag.Mark(ctx); err != nil {
		e.logger.Warn().Err(err).Msg("persist tour completion; tour will show again")
	}
}

// teardown is the single exit path: it removes every mounted layer and
// releases the keyboard binding.
func (e *Engine) teardown() {
	e.active = false
	view := e.view
	e.view = nil
	if view == nil {
		return
	}
	if view.layers.Overlay != nil {
		view.layers.Overlay.Remove()
	}
	if view.layers.Spotlight != nil {
		view.layers.Spotlight.Remove()
	}
	if view.layers.Modal != nil {
		view.layers.Modal.Remove()
	}
	if view.releaseKeys != nil {
		view.releaseKeys()
	}
}

func (e *Engine) record(ctx context.Context, evt Event) {
	if e.recorder == nil {
		return
	}
	e.recorder.Record(ctx, evt)
}
