// Package telemetry fans tour events out to logs, traces and the browser.
package telemetry

import (
	"context"
	"time"

	"github.com/bitcoinpitch/tour/internal/tutorial/engine"
)

// Event is one recorded tour occurrence.
type Event struct {
	Name      string
	Step      int
	Visitor   string
	Language  string
	Timestamp time.Time
}

// Sink receives emitted events.
type Sink interface {
	Emit(ctx context.Context, evt Event)
}

// Emitter records tour telemetry events.
type Emitter struct {
	sinks []Sink
	clock func() time.Time
}

// NewEmitter creates a new telemetry emitter over sinks.
func NewEmitter(sinks ...Sink) *Emitter {
	return &Emitter{sinks: sinks, clock: time.Now}
}

// Emit timestamps evt and hands it to every sink. It is a no-op on a nil emitter.
func (e *Emitter) Emit(ctx context.Context, evt Event) {
	if e == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		if e.clock == nil {
			evt.Timestamp = time.Now().UTC()
		} else {
			evt.Timestamp = e.clock().UTC()
		}
	}
	for _, sink := range e.sinks {
		if sink != nil {
			sink.Emit(ctx, evt)
		}
	}
}

// Recorder returns an engine recorder tagging events with visitor and language.
func (e *Emitter) Recorder(visitor string, language string) engine.Recorder {
	return recorder{emitter: e, visitor: visitor, language: language}
}

type recorder struct {
	emitter  *Emitter
	visitor  string
	language string
}

func (r recorder) Record(ctx context.Context, evt engine.Event) {
	r.emitter.Emit(ctx, Event{
		Name:     string(evt.Name),
		Step:     evt.Step,
		Visitor:  r.visitor,
		Language: r.language,
	})
}
