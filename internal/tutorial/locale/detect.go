package locale

import (
	"net/url"
	"strings"

	"golang.org/x/text/language"
)

// QueryParam is the query parameter carrying a language hint.
const QueryParam = "lang"

// Signals are the page-level language hints available to detection.
// Empty fields mean the signal is not present.
type Signals struct {
	// DocumentLang is the page's declared language attribute.
	DocumentLang string
	// Path is the visited page path.
	Path string
	// RawQuery is the visited page query string, without '?'.
	RawQuery string
	// Cookie is the stored language cookie value.
	Cookie string
	// AcceptLanguage is the browser's Accept-Language header.
	AcceptLanguage string
}

// Source names the signal a detected language came from.
type Source string

const (
	SourceDocument       Source = "document"
	SourcePath           Source = "path"
	SourceQuery          Source = "query"
	SourceCookie         Source = "cookie"
	SourceAcceptLanguage Source = "accept-language"
	SourceDefault        Source = "default"
)

// DetectLanguage picks a known language from signals: document language,
// then path segment or lang query hint, then cookie, then Accept-Language,
// then the default.
func (t *Table) DetectLanguage(s Signals) string {
	code, _ := t.Detect(s)
	return code
}

// Detect is DetectLanguage that also reports which signal decided.
func (t *Table) Detect(s Signals) (string, Source) {
	if bundle, ok := t.lookup(s.DocumentLang); ok {
		return bundle.Code, SourceDocument
	}
	if code, ok := t.pathHint(s.Path); ok {
		return code, SourcePath
	}
	if values, err := url.ParseQuery(s.RawQuery); err == nil {
		if bundle, ok := t.lookup(values.Get(QueryParam)); ok {
			return bundle.Code, SourceQuery
		}
	}
	if bundle, ok := t.lookup(s.Cookie); ok {
		return bundle.Code, SourceCookie
	}
	if code, ok := t.acceptHint(s.AcceptLanguage); ok {
		return code, SourceAcceptLanguage
	}
	return t.defaultCode, SourceDefault
}

// acceptHint matches an Accept-Language header against the known codes.
func (t *Table) acceptHint(header string) (string, bool) {
	if strings.TrimSpace(header) == "" {
		return "", false
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return "", false
	}
	_, index, confidence := t.matcher.Match(tags...)
	if confidence == language.No {
		return "", false
	}
	return t.matchCodes[index], true
}

// pathHint matches a leading or inner path segment that is exactly a known code.
func (t *Table) pathHint(path string) (string, bool) {
	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			continue
		}
		if _, ok := t.bundles[strings.ToLower(segment)]; ok {
			return strings.ToLower(segment), true
		}
	}
	return "", false
}
