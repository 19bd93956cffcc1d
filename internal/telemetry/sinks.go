package telemetry

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// LogSink writes events as structured log lines.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink returns a sink logging through logger.
func NewLogSink(logger zerolog.Logger) LogSink {
	return LogSink{logger: logger.With().Str("component", "tour-telemetry").Logger()}
}

func (s LogSink) Emit(_ context.Context, evt Event) {
	entry := s.logger.Info().
		Str("event", evt.Name).
		Str("visitor", evt.Visitor).
		Str("lang", evt.Language).
		Time("at", evt.Timestamp)
	if evt.Step > 0 {
		entry = entry.Int("step", evt.Step)
	}
	entry.Msg("tour event")
}

// TraceSink attaches events to the span active in the context.
type TraceSink struct{}

func (TraceSink) Emit(ctx context.Context, evt Event) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("tour.visitor", evt.Visitor),
		attribute.String("tour.lang", evt.Language),
	}
	if evt.Step > 0 {
		attrs = append(attrs, attribute.Int("tour.step", evt.Step))
	}
	span.AddEvent(evt.Name, trace.WithAttributes(attrs...), trace.WithTimestamp(evt.Timestamp))
}

// Collector buffers the events fired while handling one request.
type Collector struct {
	mu     sync.Mutex
	events []Event
}

type collectorKey struct{}

// WithCollector returns a context carrying a fresh collector.
func WithCollector(ctx context.Context) (context.Context, *Collector) {
	c := &Collector{}
	return context.WithValue(ctx, collectorKey{}, c), c
}

// Events returns a copy of the collected events in emission order.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

func (c *Collector) add(evt Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
}

// CollectorSink forwards events to the collector carried by the context, if any.
type CollectorSink struct{}

func (CollectorSink) Emit(ctx context.Context, evt Event) {
	if c, ok := ctx.Value(collectorKey{}).(*Collector); ok && c != nil {
		c.add(evt)
	}
}
