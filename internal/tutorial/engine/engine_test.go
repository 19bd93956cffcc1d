package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bitcoinpitch/tour/internal/tutorial/completion"
	"github.com/bitcoinpitch/tour/internal/tutorial/layout"
	"github.com/bitcoinpitch/tour/internal/tutorial/locale"
	"github.com/bitcoinpitch/tour/internal/tutorial/steps"
)

type fakeElement struct {
	rect     layout.Rect
	scrolled int
}

func (e *fakeElement) Rect() layout.Rect { return e.rect }
func (e *fakeElement) ScrollIntoView()   { e.scrolled++ }

type fakeLayer struct {
	removed int
	placed  []layout.Rect
}

func (l *fakeLayer) Place(r layout.Rect) { l.placed = append(l.placed, r) }
func (l *fakeLayer) Remove()             { l.removed++ }

type fakeModal struct {
	fakeLayer
	views []ModalView
	moves []layout.Rect
}

func (m *fakeModal) Show(v ModalView)      { m.views = append(m.views, v) }
func (m *fakeModal) Size() layout.Size     { return layout.Size{Width: 300, Height: 160} }
func (m *fakeModal) Move(r layout.Rect)    { m.moves = append(m.moves, r) }
func (m *fakeModal) last() ModalView       { return m.views[len(m.views)-1] }
func (m *fakeModal) lastMove() layout.Rect { return m.moves[len(m.moves)-1] }

type fakePage struct {
	elements map[string]*fakeElement
	mounts   int
	overlay  *fakeLayer
	spot     *fakeLayer
	modal    *fakeModal
	bound    int
	handler  KeyHandler
}

func newFakePage(selectors ...string) *fakePage {
	p := &fakePage{elements: map[string]*fakeElement{}}
	for i, sel := range selectors {
		p.elements[sel] = &fakeElement{rect: layout.Rect{X: float64(40 * i), Y: 100, Width: 120, Height: 40}}
	}
	return p
}

func (p *fakePage) Query(selector string) (Element, bool) {
	for _, alt := range strings.Split(selector, ",") {
		if el, ok := p.elements[strings.TrimSpace(alt)]; ok {
			return el, true
		}
	}
	return nil, false
}

func (p *fakePage) Viewport() layout.Viewport { return layout.Viewport{Width: 1280, Height: 800} }

func (p *fakePage) Mount(ModalView) Layers {
	p.mounts++
	p.overlay = &fakeLayer{}
	p.spot = &fakeLayer{}
	p.modal = &fakeModal{}
	return Layers{Overlay: p.overlay, Spotlight: p.spot, Modal: p.modal}
}

func (p *fakePage) BindKeys(h KeyHandler) func() {
	p.bound++
	p.handler = h
	return func() {
		p.bound--
		p.handler = nil
	}
}

func (p *fakePage) press(ctx context.Context, key Key) {
	if p.handler != nil {
		p.handler(ctx, key)
	}
}

type recorder struct {
	events []Event
}

func (r *recorder) Record(_ context.Context, evt Event) { r.events = append(r.events, evt) }

func (r *recorder) names() []EventName {
	out := make([]EventName, 0, len(r.events))
	for _, evt := range r.events {
		out = append(out, evt.Name)
	}
	return out
}

type countingStore struct {
	*completion.MemoryStore
	sets int
	fail bool
}

func (s *countingStore) Set(ctx context.Context, key string, value string) error {
	s.sets++
	if s.fail {
		return errors.New("storage disabled")
	}
	return s.MemoryStore.Set(ctx, key, value)
}

var allTargets = []string{".site-title", ".nav-tabs", "article.card", ".votes", ".pitch-types", ".add-pitch", ".header-auth"}

type harness struct {
	engine *Engine
	page   *fakePage
	rec    *recorder
	store  *countingStore
	flag   completion.Flag
}

func newHarness(t *testing.T, page *fakePage) harness {
	t.Helper()
	table, err := locale.Default()
	if err != nil {
		t.Fatalf("locale.Default() error = %v", err)
	}
	bundle := table.Resolve("en")
	store := &countingStore{MemoryStore: completion.NewMemoryStore()}
	flag := completion.NewFlag(store, "")
	rec := &recorder{}
	eng, err := New(Config{
		Steps:    steps.MustBuild(bundle),
		Labels:   bundle.Labels,
		Page:     page,
		Flag:     flag,
		Recorder: rec,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return harness{engine: eng, page: page, rec: rec, store: store, flag: flag}
}

func TestNewRequiresPageAndSteps(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{Steps: []steps.Step{{}}}); err == nil {
		t.Fatal("expected missing page error")
	}
	if _, err := New(Config{Page: newFakePage()}); err == nil {
		t.Fatal("expected missing steps error")
	}
}

func TestStartIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, newFakePage(allTargets...))
	h.engine.Start(ctx)
	h.engine.Next(ctx)
	h.engine.Start(ctx)

	if h.engine.Step() != 1 {
		t.Fatalf("Step() = %d, want 1", h.engine.Step())
	}
	if h.page.mounts != 1 {
		t.Fatalf("mounts = %d, want 1", h.page.mounts)
	}
	if h.page.bound != 1 {
		t.Fatalf("key bindings = %d, want 1", h.page.bound)
	}
	if got := h.rec.names(); len(got) != 1 || got[0] != EventStarted {
		t.Fatalf("events = %v, want [tutorial_started]", got)
	}
}

func TestFirstStepRendering(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, newFakePage(allTargets...))
	h.engine.Start(ctx)

	view := h.page.modal.last()
	if view.Title != "Welcome to BitcoinPitch.org!" {
		t.Fatalf("Title = %q", view.Title)
	}
	if view.Current != 1 || view.Total != 8 {
		t.Fatalf("progress = %d of %d, want 1 of 8", view.Current, view.Total)
	}
	if !view.PrevDisabled || !view.ShowSkip || view.NextLabel != "Next" {
		t.Fatalf("controls = %+v", view)
	}
	target := h.page.elements[".site-title"]
	if got, want := h.page.spot.placed[0], layout.Spotlight(target.rect); got != want {
		t.Fatalf("spotlight = %+v, want %+v", got, want)
	}
	wantMove := layout.PlaceModal(target.rect, h.page.modal.Size(), h.page.Viewport(), layout.PlacementBottom)
	if got := h.page.modal.lastMove(); got != wantMove {
		t.Fatalf("modal position = %+v, want %+v", got, wantMove)
	}
	if target.scrolled != 1 {
		t.Fatalf("scrolled = %d, want 1", target.scrolled)
	}
}

func TestNextFromLastStepCompletesOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, newFakePage(allTargets...))
	h.engine.Start(ctx)
	for i := 0; i < 7; i++ {
		h.engine.Next(ctx)
	}
	last := h.page.modal.last()
	if last.Current != 8 || last.NextLabel != "Finish" || last.ShowSkip {
		t.Fatalf("last view = %+v", last)
	}

	h.engine.Next(ctx)
	h.engine.Next(ctx)

	if h.engine.Active() {
		t.Fatal("engine still active after finishing")
	}
	if h.store.sets != 1 {
		t.Fatalf("flag writes = %d, want 1", h.store.sets)
	}
	if !h.flag.IsSet(ctx) {
		t.Fatal("completion flag not persisted")
	}
	got := h.rec.names()
	if len(got) != 2 || got[1] != EventCompleted {
		t.Fatalf("events = %v, want started then completed", got)
	}
	if h.page.overlay.removed != 1 || h.page.spot.removed != 1 || h.page.modal.removed != 1 {
		t.Fatal("layers not removed exactly once")
	}
	if h.page.bound != 0 {
		t.Fatalf("key bindings = %d after teardown, want 0", h.page.bound)
	}
}

func TestPreviousAtFirstStepIsNoop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, newFakePage(allTargets...))
	h.engine.Start(ctx)
	shown := len(h.page.modal.views)
	h.engine.Previous(ctx)

	if h.engine.Step() != 0 || !h.engine.Active() {
		t.Fatalf("state = step %d active %t", h.engine.Step(), h.engine.Active())
	}
	if len(h.page.modal.views) != shown {
		t.Fatal("Previous re-rendered at step 0")
	}
}

func TestPreviousGoesBack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, newFakePage(allTargets...))
	h.engine.Start(ctx)
	h.engine.Next(ctx)
	h.engine.Next(ctx)
	h.engine.Previous(ctx)
	if h.engine.Step() != 1 {
		t.Fatalf("Step() = %d, want 1", h.engine.Step())
	}
	if h.page.modal.last().PrevDisabled {
		t.Fatal("prev should be enabled on step 2")
	}
}

func TestMissingTargetsAreSkipped(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	// No pitch cards or votes on the page.
	h := newHarness(t, newFakePage(".site-title", ".nav-tabs", ".pitch-types", ".add-pitch", ".header-auth"))
	h.engine.Start(ctx)
	h.engine.Next(ctx)
	h.engine.Next(ctx)
	if h.engine.Step() != 4 {
		t.Fatalf("Step() = %d, want 4", h.engine.Step())
	}
	if got := h.page.modal.last().Title; got != "Pitch Types" {
		t.Fatalf("Title = %q, want Pitch Types", got)
	}
}

func TestFallbackSelectorUsed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	page := newFakePage(".site-title", ".nav-tabs", "article.card", ".votes", ".add-pitch", ".header-auth")
	h := newHarness(t, page)
	h.engine.Start(ctx)
	for i := 0; i < 4; i++ {
		h.engine.Next(ctx)
	}
	if h.engine.Step() != 4 {
		t.Fatalf("Step() = %d, want 4", h.engine.Step())
	}
	want := layout.Spotlight(page.elements[".nav-tabs"].rect)
	if got := page.spot.placed[len(page.spot.placed)-1]; got != want {
		t.Fatalf("spotlight = %+v, want fallback target %+v", got, want)
	}
}

func TestMissingLastTargetCompletes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	page := newFakePage(".nav-tabs")
	h := newHarness(t, page)
	h.engine.Start(ctx)
	if h.engine.Step() != 1 {
		t.Fatalf("Step() = %d, want 1", h.engine.Step())
	}
	h.engine.Next(ctx)
	// pitch types falls back to .nav-tabs
	if h.engine.Step() != 4 {
		t.Fatalf("Step() = %d, want 4", h.engine.Step())
	}
	h.engine.Next(ctx)
	if h.engine.Active() {
		t.Fatal("expected completion when no later step renders")
	}
	if got := h.rec.names(); got[len(got)-1] != EventCompleted {
		t.Fatalf("events = %v", got)
	}
}

func TestSkipPersistsAndReportsStep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, newFakePage(allTargets...))
	h.engine.Start(ctx)
	h.engine.Next(ctx)
	h.engine.Skip(ctx)

	if h.engine.Active() {
		t.Fatal("engine active after skip")
	}
	last := h.rec.events[len(h.rec.events)-1]
	if last.Name != EventSkipped || last.Step != 2 {
		t.Fatalf("last event = %+v, want skipped at step 2", last)
	}
	if !h.flag.IsSet(ctx) {
		t.Fatal("skip did not persist completion")
	}
}

func TestCloseDoesNotPersist(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, newFakePage(allTargets...))
	h.engine.Start(ctx)
	h.engine.Close(ctx)
	h.engine.Close(ctx)

	if h.flag.IsSet(ctx) {
		t.Fatal("close persisted completion")
	}
	if h.page.modal.removed != 1 {
		t.Fatalf("modal removed %d times, want 1", h.page.modal.removed)
	}
}

func TestKeyboardControls(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, newFakePage(allTargets...))
	h.engine.Start(ctx)
	h.page.press(ctx, KeyArrowRight)
	h.page.press(ctx, KeySpace)
	if h.engine.Step() != 2 {
		t.Fatalf("Step() = %d, want 2", h.engine.Step())
	}
	h.page.press(ctx, KeyArrowLeft)
	if h.engine.Step() != 1 {
		t.Fatalf("Step() = %d, want 1", h.engine.Step())
	}
	h.page.press(ctx, Key("Enter"))
	if h.engine.Step() != 1 {
		t.Fatal("unbound key changed state")
	}
	h.page.press(ctx, KeyEscape)
	if h.engine.Active() {
		t.Fatal("escape did not close")
	}
	if h.page.bound != 0 {
		t.Fatalf("key bindings = %d, want 0", h.page.bound)
	}
}

func TestRestartCyclesDoNotLeakBindings(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, newFakePage(allTargets...))
	for i := 0; i < 5; i++ {
		h.engine.Start(ctx)
		if h.engine.Step() != 0 {
			t.Fatalf("cycle %d: Step() = %d, want 0", i, h.engine.Step())
		}
		h.engine.Next(ctx)
		h.engine.Close(ctx)
	}
	if h.page.bound != 0 {
		t.Fatalf("key bindings = %d, want 0", h.page.bound)
	}
}

func TestStorageFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, newFakePage(allTargets...))
	h.store.fail = true
	h.engine.Start(ctx)
	h.engine.Skip(ctx)

	if h.engine.Active() {
		t.Fatal("engine active after failed persist")
	}
	if h.flag.IsSet(ctx) {
		t.Fatal("flag set despite failing store")
	}
}

func TestResetClearsFlag(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, newFakePage(allTargets...))
	h.engine.Start(ctx)
	h.engine.Skip(ctx)
	if err := h.engine.Reset(ctx); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if h.flag.IsSet(ctx) {
		t.Fatal("flag still set after reset")
	}
}

func TestParseKey(t *testing.T) {
	t.Parallel()

	tests := map[string]Key{
		" ":           KeySpace,
		"Space":       KeySpace,
		"Escape":      KeyEscape,
		"ArrowLeft":   KeyArrowLeft,
		" ArrowRight": KeyArrowRight,
		"":            "",
	}
	for in, want := range tests {
		if got := ParseKey(in); got != want {
			t.Fatalf("ParseKey(%q) = %q, want %q", in, got, want)
		}
	}
}
