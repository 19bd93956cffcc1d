// Package gate decides whether the tour should start by itself.
package gate

import (
	"context"
	"strings"

	"github.com/bitcoinpitch/tour/internal/tutorial/completion"
)

// DefaultPaths are the routes the tour may auto-start on.
var DefaultPaths = []string{"/", "/bitcoin", "/lightning", "/cashu"}

// Signals describe the page the visitor is on.
type Signals struct {
	// Authenticated is true when the page carries a signed-in user indicator.
	Authenticated bool
	// Path is the visited route.
	Path string
}

// Gate is a predicate over page signals and the completion flag.
type Gate struct {
	allowed map[string]struct{}
}

// New returns a gate allowing paths; nil means DefaultPaths.
func New(paths []string) Gate {
	if paths == nil {
		paths = DefaultPaths
	}
	allowed := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		if path = strings.TrimSpace(path); path != "" {
			allowed[path] = struct{}{}
		}
	}
	return Gate{allowed: allowed}
}

// ShouldAutoStart reports whether the tour may auto-start: the visitor is
// signed out, has not completed or skipped it, and is on an allowed route.
func (g Gate) ShouldAutoStart(ctx context.Context, s Signals, flag completion.Flag) bool {
	if s.Authenticated {
		return false
	}
	if flag.IsSet(ctx) {
		return false
	}
	_, ok := g.allowed[s.Path]
	return ok
}
