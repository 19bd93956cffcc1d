package tour

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/bitcoinpitch/tour/internal/tutorial/engine"
	"github.com/bitcoinpitch/tour/internal/tutorial/layout"
)

// defaultModalSize is used until the client reports the rendered modal box.
var defaultModalSize = layout.Size{Width: 360, Height: 220}

// maxSnapshotBytes bounds request bodies carrying a snapshot.
const maxSnapshotBytes = 64 << 10

// Snapshot is the client's view of the visited page: the viewport and the
// bounding box of every tour selector list that matched an element.
type Snapshot struct {
	Viewport layout.Viewport        `json:"viewport"`
	Elements map[string]layout.Rect `json:"elements"`
	Modal    layout.Size            `json:"modal"`
	Key      string                 `json:"key,omitempty"`
	DocLang  string                 `json:"doc_lang,omitempty"`
}

// decodeSnapshot reads a snapshot from a JSON body or from the "snapshot"
// form field HTMX posts.
func decodeSnapshot(w http.ResponseWriter, r *http.Request) (Snapshot, error) {
	var snap Snapshot
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		body := http.MaxBytesReader(w, r.Body, maxSnapshotBytes)
		if err := json.NewDecoder(body).Decode(&snap); err != nil {
			return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
		}
		return snap, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxSnapshotBytes)
	if err := r.ParseForm(); err != nil {
		return Snapshot{}, fmt.Errorf("parse form: %w", err)
	}
	if raw := strings.TrimSpace(r.PostFormValue("snapshot")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &snap); err != nil {
			return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
		}
	}
	if key := r.PostFormValue("key"); key != "" {
		snap.Key = key
	}
	if lang := r.PostFormValue("doc_lang"); lang != "" {
		snap.DocLang = lang
	}
	return snap, nil
}

// pageView is the tour markup the next response renders.
type pageView struct {
	Mounted      bool
	Overlay      bool
	Spotlight    *layout.Rect
	Modal        *engine.ModalView
	ModalRect    layout.Rect
	ScrollTarget string
	KeysBound    bool
}

// snapshotPage implements engine.Page over the latest client snapshot and
// records what the engine rendered.
type snapshotPage struct {
	snap       Snapshot
	view       pageView
	keyHandler engine.KeyHandler
}

func newSnapshotPage() *snapshotPage {
	return &snapshotPage{}
}

// update replaces the layout the engine sees. Missing viewport and modal
// sizes keep their previous values.
func (p *snapshotPage) update(snap Snapshot) {
	if snap.Viewport.Width <= 0 || snap.Viewport.Height <= 0 {
		snap.Viewport = p.snap.Viewport
	}
	if snap.Modal.Width <= 0 || snap.Modal.Height <= 0 {
		snap.Modal = p.snap.Modal
	}
	p.snap = snap
	p.view.ScrollTarget = ""
}

func (p *snapshotPage) Query(selector string) (engine.Element, bool) {
	rect, ok := p.snap.Elements[selector]
	if !ok {
		return nil, false
	}
	return snapshotElement{page: p, selector: selector, rect: rect}, true
}

func (p *snapshotPage) Viewport() layout.Viewport {
	return p.snap.Viewport
}

func (p *snapshotPage) Mount(labels engine.ModalView) engine.Layers {
	view := labels
	p.view = pageView{Mounted: true, Overlay: true, Modal: &view}
	return engine.Layers{
		Overlay:   overlayLayer{page: p},
		Spotlight: spotlightLayer{page: p},
		Modal:     modalLayer{page: p},
	}
}

func (p *snapshotPage) BindKeys(handler engine.KeyHandler) func() {
	p.keyHandler = handler
	p.view.KeysBound = true
	return func() {
		p.keyHandler = nil
		p.view.KeysBound = false
	}
}

// dispatchKey forwards a key press to the bound handler, if any.
func (p *snapshotPage) dispatchKey(ctx context.Context, key engine.Key) bool {
	if p.keyHandler == nil {
		return false
	}
	p.keyHandler(ctx, key)
	return true
}

func (p *snapshotPage) current() pageView {
	return p.view
}

type snapshotElement struct {
	page     *snapshotPage
	selector string
	rect     layout.Rect
}

func (e snapshotElement) Rect() layout.Rect { return e.rect }

func (e snapshotElement) ScrollIntoView() { e.page.view.ScrollTarget = e.selector }

type overlayLayer struct{ page *snapshotPage }

func (l overlayLayer) Remove() {
	l.page.view.Overlay = false
	l.page.unmountIfEmpty()
}

type spotlightLayer struct{ page *snapshotPage }

func (l spotlightLayer) Place(r layout.Rect) { l.page.view.Spotlight = &r }

func (l spotlightLayer) Remove() {
	l.page.view.Spotlight = nil
	l.page.unmountIfEmpty()
}

type modalLayer struct{ page *snapshotPage }

func (l modalLayer) Show(view engine.ModalView) { l.page.view.Modal = &view }

func (l modalLayer) Size() layout.Size {
	if l.page.snap.Modal.Width > 0 && l.page.snap.Modal.Height > 0 {
		return l.page.snap.Modal
	}
	return defaultModalSize
}

func (l modalLayer) Move(r layout.Rect) { l.page.view.ModalRect = r }

func (l modalLayer) Remove() {
	l.page.view.Modal = nil
	l.page.unmountIfEmpty()
}

func (p *snapshotPage) unmountIfEmpty() {
	if !p.view.Overlay && p.view.Spotlight == nil && p.view.Modal == nil {
		p.view.Mounted = false
		p.view.ScrollTarget = ""
	}
}
