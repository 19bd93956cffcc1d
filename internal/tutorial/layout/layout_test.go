package layout

import (
	"testing"

	"pgregory.net/rapid"
)

func TestParsePlacement(t *testing.T) {
	t.Parallel()

	got, err := ParsePlacement(" Bottom-Left ")
	if err != nil {
		t.Fatalf("ParsePlacement() error = %v", err)
	}
	if got != PlacementBottomLeft {
		t.Fatalf("ParsePlacement() = %q, want %q", got, PlacementBottomLeft)
	}
	if got, _ := ParsePlacement(""); got != PlacementCenter {
		t.Fatalf("ParsePlacement(\"\") = %q, want %q", got, PlacementCenter)
	}
	if _, err := ParsePlacement("diagonal"); err == nil {
		t.Fatal("expected error for unknown placement")
	}
}

func TestSpotlightExpandsTarget(t *testing.T) {
	t.Parallel()

	got := Spotlight(Rect{X: 100, Y: 50, Width: 200, Height: 40})
	want := Rect{X: 92, Y: 42, Width: 216, Height: 56}
	if got != want {
		t.Fatalf("Spotlight() = %+v, want %+v", got, want)
	}
}

func TestPlaceModalAnchors(t *testing.T) {
	t.Parallel()

	vp := Viewport{Width: 1280, Height: 800}
	target := Rect{X: 500, Y: 300, Width: 200, Height: 100}
	modal := Size{Width: 300, Height: 150}

	tests := []struct {
		placement Placement
		want      Rect
	}{
		{PlacementBottom, Rect{X: 450, Y: 420, Width: 300, Height: 150}},
		{PlacementTop, Rect{X: 450, Y: 130, Width: 300, Height: 150}},
		{PlacementRight, Rect{X: 720, Y: 275, Width: 300, Height: 150}},
		{PlacementLeft, Rect{X: 180, Y: 275, Width: 300, Height: 150}},
		{PlacementBottomLeft, Rect{X: 400, Y: 420, Width: 300, Height: 150}},
		{PlacementCenter, Rect{X: 490, Y: 325, Width: 300, Height: 150}},
	}
	for _, tc := range tests {
		if got := PlaceModal(target, modal, vp, tc.placement); got != tc.want {
			t.Fatalf("PlaceModal(%s) = %+v, want %+v", tc.placement, got, tc.want)
		}
	}
}

func TestPlaceModalClampsNearRightEdge(t *testing.T) {
	t.Parallel()

	vp := Viewport{Width: 1024, Height: 768}
	target := Rect{X: 960, Y: 20, Width: 60, Height: 30}
	got := PlaceModal(target, Size{Width: 320, Height: 180}, vp, PlacementBottom)
	if got.Right() != vp.Width-ViewportMargin {
		t.Fatalf("Right() = %v, want %v", got.Right(), vp.Width-ViewportMargin)
	}
	if got.Y != target.Bottom()+ModalOffset {
		t.Fatalf("Y = %v, want %v", got.Y, target.Bottom()+ModalOffset)
	}
}

func TestClampPinsTopLeftWhenOversized(t *testing.T) {
	t.Parallel()

	got := Clamp(Rect{X: -40, Y: 500, Width: 900, Height: 900}, Viewport{Width: 400, Height: 600})
	if got.X != ViewportMargin || got.Y != ViewportMargin {
		t.Fatalf("Clamp() = %+v, want origin pinned at margin", got)
	}
}

func TestPlaceModalStaysInViewport(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		vp := Viewport{
			Width:  rapid.Float64Range(320, 2560).Draw(t, "vpWidth"),
			Height: rapid.Float64Range(320, 1600).Draw(t, "vpHeight"),
		}
		modal := Size{
			Width:  rapid.Float64Range(50, vp.Width-2*ViewportMargin).Draw(t, "modalWidth"),
			Height: rapid.Float64Range(50, vp.Height-2*ViewportMargin).Draw(t, "modalHeight"),
		}
		target := Rect{
			X:      rapid.Float64Range(-200, vp.Width+200).Draw(t, "x"),
			Y:      rapid.Float64Range(-200, vp.Height+200).Draw(t, "y"),
			Width:  rapid.Float64Range(0, 600).Draw(t, "w"),
			Height: rapid.Float64Range(0, 400).Draw(t, "h"),
		}
		placement := rapid.SampledFrom([]Placement{
			PlacementTop, PlacementBottom, PlacementLeft, PlacementRight, PlacementBottomLeft, PlacementCenter,
		}).Draw(t, "placement")

		got := PlaceModal(target, modal, vp, placement)
		const eps = 1e-9
		if got.Left() < ViewportMargin-eps || got.Top() < ViewportMargin-eps {
			t.Fatalf("modal %+v escapes top/left of %+v", got, vp)
		}
		if got.Right() > vp.Width-ViewportMargin+eps || got.Bottom() > vp.Height-ViewportMargin+eps {
			t.Fatalf("modal %+v escapes bottom/right of %+v", got, vp)
		}
		if got.Width != modal.Width || got.Height != modal.Height {
			t.Fatalf("modal size changed: %+v", got)
		}
	})
}
