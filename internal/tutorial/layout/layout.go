// Package layout computes tour overlay geometry: the spotlight box around a
// target element and the anchored, viewport-clamped position of the modal.
//
// All coordinates are CSS pixels relative to the viewport (the same space as
// getBoundingClientRect).
package layout

import (
	"fmt"
	"strings"
)

const (
	// SpotlightPadding expands the target box on every side.
	SpotlightPadding = 8.0
	// ModalOffset separates the modal from its target.
	ModalOffset = 20.0
	// ViewportMargin is the minimum gap kept between the modal and the viewport edge.
	ViewportMargin = 10.0
)

// Placement anchors the modal relative to its target.
type Placement string

const (
	PlacementTop        Placement = "top"
	PlacementBottom     Placement = "bottom"
	PlacementLeft       Placement = "left"
	PlacementRight      Placement = "right"
	PlacementBottomLeft Placement = "bottom-left"
	PlacementCenter     Placement = "center"
)

// ParsePlacement maps a placement name to a Placement.
func ParsePlacement(value string) (Placement, error) {
	switch p := Placement(strings.ToLower(strings.TrimSpace(value))); p {
	case PlacementTop, PlacementBottom, PlacementLeft, PlacementRight, PlacementBottomLeft, PlacementCenter:
		return p, nil
	case "":
		return PlacementCenter, nil
	default:
		return "", fmt.Errorf("unknown placement %q", value)
	}
}

// Rect is an axis-aligned box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Left() float64   { return r.X }
func (r Rect) Top() float64    { return r.Y }
func (r Rect) Right() float64  { return r.X + r.Width }
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Expand grows the rect by pad on all four sides.
func (r Rect) Expand(pad float64) Rect {
	return Rect{X: r.X - pad, Y: r.Y - pad, Width: r.Width + 2*pad, Height: r.Height + 2*pad}
}

// Size is a width/height pair.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Viewport is the visible area of the page.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Spotlight returns the highlight box drawn around target.
func Spotlight(target Rect) Rect {
	return target.Expand(SpotlightPadding)
}

// PlaceModal anchors a modal of the given size to target and clamps the
// result into the viewport.
func PlaceModal(target Rect, modal Size, vp Viewport, placement Placement) Rect {
	return Clamp(anchor(target, modal, vp, placement), vp)
}

func anchor(target Rect, modal Size, vp Viewport, placement Placement) Rect {
	out := Rect{Width: modal.Width, Height: modal.Height}
	centerX := target.X + target.Width/2 - modal.Width/2
	centerY := target.Y + target.Height/2 - modal.Height/2

	switch placement {
	case PlacementBottom:
		out.X = centerX
		out.Y = target.Bottom() + ModalOffset
	case PlacementTop:
		out.X = centerX
		out.Y = target.Top() - ModalOffset - modal.Height
	case PlacementRight:
		out.X = target.Right() + ModalOffset
		out.Y = centerY
	case PlacementLeft:
		out.X = target.Left() - ModalOffset - modal.Width
		out.Y = centerY
	case PlacementBottomLeft:
		out.X = target.Right() - modal.Width
		out.Y = target.Bottom() + ModalOffset
	default:
		out.X = vp.Width/2 - modal.Width/2
		out.Y = vp.Height/2 - modal.Height/2
	}
	return out
}

// Clamp shifts r back inside the viewport, keeping ViewportMargin from each
// edge. When r cannot fit, the left and top edges stay visible.
func Clamp(r Rect, vp Viewport) Rect {
	if r.Right() > vp.Width-ViewportMargin {
		r.X = vp.Width - ViewportMargin - r.Width
	}
	if r.X < ViewportMargin {
		r.X = ViewportMargin
	}
	if r.Bottom() > vp.Height-ViewportMargin {
		r.Y = vp.Height - ViewportMargin - r.Height
	}
	if r.Y < ViewportMargin {
		r.Y = ViewportMargin
	}
	return r
}
