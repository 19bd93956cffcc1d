// Package steps builds the ordered tour step catalog from a language bundle.
package steps

import (
	"errors"
	"fmt"

	"github.com/bitcoinpitch/tour/internal/tutorial/layout"
	"github.com/bitcoinpitch/tour/internal/tutorial/locale"
)

// ErrMissingSection reports a bundle without a section the catalog needs.
var ErrMissingSection = errors.New("missing tour section")

// Step describes one stop of the tour. Its identity is its index.
type Step struct {
	Section          locale.SectionKey
	TargetSelector   string
	FallbackSelector string
	Title            string
	Content          string
	Placement        layout.Placement
	ShowSkip         bool
	IsLast           bool
}

// template is a design-time step with its text still unresolved.
type template struct {
	section   locale.SectionKey
	target    string
	fallback  string
	placement layout.Placement
	showSkip  bool
	isLast    bool
}

var sequence = []template{
	{section: locale.SectionWelcome, target: ".site-title", placement: layout.PlacementBottom, showSkip: true},
	{section: locale.SectionCategories, target: ".nav-tabs", placement: layout.PlacementBottom},
	{section: locale.SectionPitchCards, target: "article.card, .pitch-list", placement: layout.PlacementRight},
	{section: locale.SectionVoting, target: ".votes, .up, .down", placement: layout.PlacementLeft},
	{section: locale.SectionPitchTypes, target: ".pitch-types", fallback: ".nav-tabs", placement: layout.PlacementBottom},
	{section: locale.SectionAddPitch, target: `button[hx-get="/pitch/form"], .button.primary, .add-pitch`, placement: layout.PlacementLeft},
	{section: locale.SectionJoinCommunity, target: ".header-auth, .auth-links", placement: layout.PlacementBottomLeft},
	{section: locale.SectionAllSet, target: ".site-title", placement: layout.PlacementBottom, isLast: true},
}

// Len is the number of steps every catalog has.
func Len() int {
	return len(sequence)
}

// Build resolves the step sequence against bundle. Every section must be
// present; a gap is reported instead of rendering empty text.
func Build(bundle locale.Bundle) ([]Step, error) {
	out := make([]Step, 0, len(sequence))
	for _, tpl := range sequence {
		section, ok := bundle.Section(tpl.section)
		if !ok {
			return nil, fmt.Errorf("language %q section %q: %w", bundle.Code, tpl.section, ErrMissingSection)
		}
		out = append(out, Step{
			Section:          tpl.section,
			TargetSelector:   tpl.target,
			FallbackSelector: tpl.fallback,
			Title:            section.Title,
			Content:          section.Content,
			Placement:        tpl.placement,
			ShowSkip:         tpl.showSkip,
			IsLast:           tpl.isLast,
		})
	}
	return out, nil
}

// MustBuild is Build for bundles known to be complete.
func MustBuild(bundle locale.Bundle) []Step {
	out, err := Build(bundle)
	if err != nil {
		panic(err)
	}
	return out
}

// BuildAll builds the catalog for every language in table.
func BuildAll(table *locale.Table) (map[string][]Step, error) {
	out := map[string][]Step{}
	for _, code := range table.Codes() {
		built, err := Build(table.Resolve(code))
		if err != nil {
			return nil, err
		}
		out[code] = built
	}
	return out, nil
}
