package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bitcoinpitch/tour/internal/tutorial/engine"
	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type fakeSink struct {
	last  Event
	count int
}

func (s *fakeSink) Emit(_ context.Context, evt Event) {
	s.last = evt
	s.count++
}

func TestEmitterNoopWhenNil(t *testing.T) {
	var emitter *Emitter
	emitter.Emit(context.Background(), Event{Name: "x"})
}

func TestEmitterAddsTimestamp(t *testing.T) {
	sink := &fakeSink{}
	clockTime := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	emitter := &Emitter{sinks: []Sink{sink}, clock: func() time.Time { return clockTime }}

	emitter.Emit(context.Background(), Event{Name: "tutorial_started"})
	if sink.count != 1 {
		t.Fatalf("count = %d, want 1", sink.count)
	}
	if !sink.last.Timestamp.Equal(clockTime) {
		t.Fatalf("Timestamp = %v, want %v", sink.last.Timestamp, clockTime)
	}
}

func TestRecorderTagsVisitorAndLanguage(t *testing.T) {
	sink := &fakeSink{}
	rec := NewEmitter(sink).Recorder("visitor-1", "cs")
	rec.Record(context.Background(), engine.Event{Name: engine.EventSkipped, Step: 3})

	got := sink.last
	if got.Name != "tutorial_skipped" || got.Step != 3 || got.Visitor != "visitor-1" || got.Language != "cs" {
		t.Fatalf("event = %+v", got)
	}
}

func TestCollectorSinkUsesContextCollector(t *testing.T) {
	emitter := NewEmitter(CollectorSink{})
	emitter.Emit(context.Background(), Event{Name: "dropped"})

	ctx, collector := WithCollector(context.Background())
	emitter.Emit(ctx, Event{Name: "tutorial_started"})
	emitter.Emit(ctx, Event{Name: "tutorial_completed"})

	events := collector.Events()
	if len(events) != 2 || events[0].Name != "tutorial_started" || events[1].Name != "tutorial_completed" {
		t.Fatalf("events = %+v", events)
	}
}

func TestLogSinkWritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(zerolog.New(&buf))
	sink.Emit(context.Background(), Event{Name: "tutorial_skipped", Step: 2, Visitor: "v", Language: "en"})

	line := buf.String()
	for _, want := range []string{`"event":"tutorial_skipped"`, `"step":2`, `"visitor":"v"`, `"component":"tour-telemetry"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("log line %q missing %s", line, want)
		}
	}
}

func TestTraceSinkAddsSpanEvent(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	ctx, span := provider.Tracer("test").Start(context.Background(), "tour.next")

	TraceSink{}.Emit(ctx, Event{Name: "tutorial_completed", Timestamp: time.Now()})
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(ended))
	}
	events := ended[0].Events()
	if len(events) != 1 || events[0].Name != "tutorial_completed" {
		t.Fatalf("span events = %+v", events)
	}
}
