package tour

import (
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/bitcoinpitch/tour/internal/tutorial/layout"
)

// Element ids the fragments replace.
const (
	RootID    = "tour-root"
	CounterID = "pitch-counter"
	MirrorID  = "content-mirror"
)

// Every tour control replaces the root and posts the layout snapshot
// collected by the client script.
const (
	rootTarget   = "#" + RootID
	snapshotVals = "js:{snapshot: tourSnapshot()}"
)

func fragment(view pageView, routes routeSet) templ.Component {
	return tourRoot(view, routes)
}

func boxStyle(r layout.Rect, sized bool) string {
	parts := []string{
		"left:" + px(r.X),
		"top:" + px(r.Y),
	}
	if sized {
		parts = append(parts, "width:"+px(r.Width), "height:"+px(r.Height))
	}
	return strings.Join(parts, ";")
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}
