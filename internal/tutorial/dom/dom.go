// Package dom checks rendered pages against the selectors the tour targets.
package dom

import (
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/bitcoinpitch/tour/internal/tutorial/steps"
)

// Document is a parsed HTML page.
type Document struct {
	root *html.Node
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{root: root}, nil
}

// Query returns the first element in document order matching the
// comma-separated selector list.
func (d *Document) Query(selectorList string) (*html.Node, error) {
	if d == nil || d.root == nil {
		return nil, fmt.Errorf("document is empty")
	}
	group, err := cascadia.ParseGroup(selectorList)
	if err != nil {
		return nil, fmt.Errorf("selector %q: %w", selectorList, err)
	}
	return cascadia.Query(d.root, group), nil
}

// Count returns how many elements match the selector list.
func (d *Document) Count(selectorList string) (int, error) {
	if d == nil || d.root == nil {
		return 0, fmt.Errorf("document is empty")
	}
	group, err := cascadia.ParseGroup(selectorList)
	if err != nil {
		return 0, fmt.Errorf("selector %q: %w", selectorList, err)
	}
	return len(cascadia.QueryAll(d.root, group)), nil
}

// Resolution says how a step would anchor on a page.
type Resolution string

const (
	ResolvedPrimary  Resolution = "primary"
	ResolvedFallback Resolution = "fallback"
	Skipped          Resolution = "skipped"
)

// StepResult is the outcome for one step.
type StepResult struct {
	Index      int        `json:"index"`
	Section    string     `json:"section"`
	Selector   string     `json:"selector,omitempty"`
	Resolution Resolution `json:"resolution"`
	Element    string     `json:"element,omitempty"`
}

// Report lists the outcome of every step in order.
type Report struct {
	Steps []StepResult
}

// Shown counts steps that would render.
func (r Report) Shown() int {
	n := 0
	for _, s := range r.Steps {
		if s.Resolution != Skipped {
			n++
		}
	}
	return n
}

// Check resolves every step against doc the way the engine does: primary
// selector, then fallback, else skipped.
func Check(doc *Document, catalog []steps.Step) (Report, error) {
	report := Report{Steps: make([]StepResult, 0, len(catalog))}
	for i, step := range catalog {
		result := StepResult{Index: i, Section: string(step.Section), Resolution: Skipped}

		node, err := doc.Query(step.TargetSelector)
		if err != nil {
			return Report{}, fmt.Errorf("step %d: %w", i+1, err)
		}
		if node != nil {
			result.Resolution = ResolvedPrimary
			result.Selector = step.TargetSelector
			result.Element = describe(node)
		} else if step.FallbackSelector != "" {
			node, err = doc.Query(step.FallbackSelector)
			if err != nil {
				return Report{}, fmt.Errorf("step %d fallback: %w", i+1, err)
			}
			if node != nil {
				result.Resolution = ResolvedFallback
				result.Selector = step.FallbackSelector
				result.Element = describe(node)
			}
		}
		report.Steps = append(report.Steps, result)
	}
	return report, nil
}

// describe renders a short tag#id.class label for node.
func describe(node *html.Node) string {
	var b strings.Builder
	b.WriteString(node.Data)
	for _, attr := range node.Attr {
		switch attr.Key {
		case "id":
			b.WriteString("#" + attr.Val)
		case "class":
			for _, class := range strings.Fields(attr.Val) {
				b.WriteString("." + class)
			}
		}
	}
	return b.String()
}
