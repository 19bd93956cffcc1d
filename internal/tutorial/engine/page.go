package engine

import (
	"context"
	"strings"

	"github.com/bitcoinpitch/tour/internal/tutorial/layout"
)

// Element is a resolved page element a step can anchor to.
type Element interface {
	Rect() layout.Rect
	ScrollIntoView()
}

// ModalView is the content of the instructional modal for one step.
type ModalView struct {
	Title        string
	Content      string
	Current      int
	Total        int
	PrevDisabled bool
	ShowSkip     bool
	PrevLabel    string
	NextLabel    string
	SkipLabel    string
	OfLabel      string
	CloseLabel   string
}

// Overlay dims the page behind the tour.
type Overlay interface {
	Remove()
}

// Spotlight highlights the current target.
type Spotlight interface {
	Place(layout.Rect)
	Remove()
}

// Modal shows the step text next to its target.
type Modal interface {
	Show(ModalView)
	Size() layout.Size
	Move(layout.Rect)
	Remove()
}

// Layers are the elements mounted while the tour is active.
type Layers struct {
	Overlay   Overlay
	Spotlight Spotlight
	Modal     Modal
}

// Key is a keyboard key name as reported by KeyboardEvent.key.
type Key string

const (
	KeyEscape     Key = "Escape"
	KeyArrowRight Key = "ArrowRight"
	KeyArrowLeft  Key = "ArrowLeft"
	KeySpace      Key = " "
)

// ParseKey normalizes a key name; "Space" and "Spacebar" map to KeySpace.
func ParseKey(value string) Key {
	if value == " " {
		return KeySpace
	}
	switch v := strings.TrimSpace(value); v {
	case "Space", "Spacebar":
		return KeySpace
	default:
		return Key(v)
	}
}

// KeyHandler receives key presses while bound.
type KeyHandler func(context.Context, Key)

// Page is the host document the engine renders into.
type Page interface {
	// Query returns the first element matching a CSS selector list.
	Query(selector string) (Element, bool)
	Viewport() layout.Viewport
	// Mount creates the overlay, spotlight and modal.
	Mount(labels ModalView) Layers
	// BindKeys routes key presses to handler until release is called.
	BindKeys(handler KeyHandler) (release func())
}
