// Package locale holds the tour translation table: one bundle of section
// texts and UI labels per language, with fallback to a default language.
package locale

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bitcoinpitch/tour/internal/platform/i18n/catalog"
	"golang.org/x/text/language"
)

// DefaultCode is the language used when nothing else matches.
const DefaultCode = catalog.BaseLocale

// Namespace is the catalog namespace holding tour messages.
const Namespace = "tutorial"

// SectionKey names one instructional section of the tour.
type SectionKey string

const (
	SectionWelcome       SectionKey = "welcome"
	SectionCategories    SectionKey = "categories"
	SectionPitchCards    SectionKey = "pitch_cards"
	SectionVoting        SectionKey = "voting"
	SectionPitchTypes    SectionKey = "pitch_types"
	SectionAddPitch      SectionKey = "add_pitch"
	SectionJoinCommunity SectionKey = "join_community"
	SectionAllSet        SectionKey = "all_set"
)

// Section is a translated title and content pair. Content may carry inline markup.
type Section struct {
	Title   string
	Content string
}

// Labels are the tour's UI strings.
type Labels struct {
	SkipTour string
	Previous string
	Next     string
	Finish   string
	Of       string
	Close    string
}

// Bundle is the set of tour strings for one language.
type Bundle struct {
	Code     string
	Sections map[SectionKey]Section
	Labels   Labels
}

// Section returns the named section and whether the bundle defines it.
func (b Bundle) Section(key SectionKey) (Section, bool) {
	section, ok := b.Sections[key]
	return section, ok
}

// ErrNoDefault is returned when a table is built without its default language.
var ErrNoDefault = errors.New("default language bundle is required")

// Table maps language codes to bundles.
type Table struct {
	defaultCode string
	bundles     map[string]Bundle
	// matchCodes lists the codes in matcher order, default first.
	matchCodes []string
	matcher    language.Matcher
}

// NewTable builds a table from bundles; one of them must carry defaultCode.
func NewTable(defaultCode string, bundles ...Bundle) (*Table, error) {
	defaultCode = strings.TrimSpace(defaultCode)
	t := &Table{defaultCode: defaultCode, bundles: make(map[string]Bundle, len(bundles))}
	for _, bundle := range bundles {
		code := strings.TrimSpace(bundle.Code)
		if code == "" {
			return nil, fmt.Errorf("bundle language code is required")
		}
		if _, exists := t.bundles[code]; exists {
			return nil, fmt.Errorf("duplicate bundle for language %q", code)
		}
		bundle.Code = code
		t.bundles[code] = bundle
	}
	if _, ok := t.bundles[defaultCode]; !ok {
		return nil, fmt.Errorf("language %q: %w", defaultCode, ErrNoDefault)
	}

	t.matchCodes = []string{defaultCode}
	for _, code := range t.Codes() {
		if code != defaultCode {
			t.matchCodes = append(t.matchCodes, code)
		}
	}
	tags := make([]language.Tag, 0, len(t.matchCodes))
	for _, code := range t.matchCodes {
		tag, err := language.Parse(code)
		if err != nil {
			return nil, fmt.Errorf("language %q: %w", code, err)
		}
		tags = append(tags, tag)
	}
	t.matcher = language.NewMatcher(tags)
	return t, nil
}

// FromCatalog builds a table from the tutorial namespace of every catalog locale.
func FromCatalog(c *catalog.Bundle) (*Table, error) {
	if c == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	locales := c.Locales()
	bundles := make([]Bundle, 0, len(locales))
	for _, code := range locales {
		messages := c.NamespaceMessages(code, Namespace)
		if len(messages) == 0 {
			continue
		}
		bundles = append(bundles, bundleFromMessages(code, messages))
	}
	return NewTable(catalog.BaseLocale, bundles...)
}

// Default returns the table built from the embedded catalog.
func Default() (*Table, error) {
	return FromCatalog(catalog.Default())
}

func bundleFromMessages(code string, messages map[string]string) Bundle {
	bundle := Bundle{Code: code, Sections: map[SectionKey]Section{}}
	for _, key := range AllSections() {
		title, hasTitle := messages[sectionKey(key, "title")]
		content, hasContent := messages[sectionKey(key, "content")]
		if hasTitle && hasContent {
			bundle.Sections[key] = Section{Title: title, Content: content}
		}
	}
	bundle.Labels = Labels{
		SkipTour: messages[Namespace+".ui.skip_tour"],
		Previous: messages[Namespace+".ui.previous"],
		Next:     messages[Namespace+".ui.next"],
		Finish:   messages[Namespace+".ui.finish"],
		Of:       messages[Namespace+".ui.of"],
		Close:    messages[Namespace+".ui.close"],
	}
	return bundle
}

func sectionKey(key SectionKey, field string) string {
	return Namespace + "." + string(key) + "." + field
}

// AllSections lists every section key in tour order.
func AllSections() []SectionKey {
	return []SectionKey{
		SectionWelcome,
		SectionCategories,
		SectionPitchCards,
		SectionVoting,
		SectionPitchTypes,
		SectionAddPitch,
		SectionJoinCommunity,
		SectionAllSet,
	}
}

// DefaultCode returns the table's fallback language.
func (t *Table) DefaultCode() string {
	return t.defaultCode
}

// Codes returns the known language codes, sorted.
func (t *Table) Codes() []string {
	out := make([]string, 0, len(t.bundles))
	for code := range t.bundles {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Known reports whether code maps to a bundle after normalization.
func (t *Table) Known(code string) bool {
	_, ok := t.lookup(code)
	return ok
}

// Resolve returns the bundle for code, or the default bundle when code is unknown.
func (t *Table) Resolve(code string) Bundle {
	if bundle, ok := t.lookup(code); ok {
		return bundle
	}
	return t.bundles[t.defaultCode]
}

// Normalize returns the known code for value, or the default code.
func (t *Table) Normalize(value string) string {
	return t.Resolve(value).Code
}

func (t *Table) lookup(code string) (Bundle, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Bundle{}, false
	}
	if bundle, ok := t.bundles[code]; ok {
		return bundle, true
	}
	tag, err := language.Parse(code)
	if err != nil {
		return Bundle{}, false
	}
	if bundle, ok := t.bundles[tag.String()]; ok {
		return bundle, true
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return Bundle{}, false
	}
	bundle, ok := t.bundles[base.String()]
	return bundle, ok
}
