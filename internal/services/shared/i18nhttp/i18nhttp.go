package i18nhttp

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bitcoinpitch/tour/internal/services/shared/htmx"
	"github.com/bitcoinpitch/tour/internal/tutorial/locale"
)

const (
	// LangParam is the query parameter used to select a language.
	LangParam = locale.QueryParam
	// LangCookieName stores the visitor's language preference.
	LangCookieName = "language"
	// DocumentLangHeader carries the lang attribute of the visited page.
	DocumentLangHeader = "X-Document-Lang"
	// DocumentLangField is the form field alternative to DocumentLangHeader.
	DocumentLangField = "doc_lang"
	// AcceptLanguageHeader is consulted when no other signal names a language.
	AcceptLanguageHeader = "Accept-Language"
)

// Signals extracts language hints from a tour request. The path and query
// come from the visited page (HX-Current-URL) when present, else the request URL.
func Signals(r *http.Request) locale.Signals {
	if r == nil {
		return locale.Signals{}
	}

	signals := locale.Signals{
		DocumentLang: strings.TrimSpace(r.Header.Get(DocumentLangHeader)),
	}
	if signals.DocumentLang == "" {
		signals.DocumentLang = strings.TrimSpace(r.FormValue(DocumentLangField))
	}

	signals.Path = r.URL.Path
	signals.RawQuery = r.URL.RawQuery
	if current := htmx.CurrentURL(r); current != "" {
		if parsed, err := url.Parse(current); err == nil {
			signals.Path = parsed.Path
			signals.RawQuery = parsed.RawQuery
		}
	}

	if cookie, err := r.Cookie(LangCookieName); err == nil {
		signals.Cookie = strings.TrimSpace(cookie.Value)
	}
	signals.AcceptLanguage = strings.TrimSpace(r.Header.Get(AcceptLanguageHeader))
	return signals
}

// ResolveLanguage detects the language for r against table.
// The bool reports whether callers should persist the choice as a cookie:
// an explicit lang query hint picked it, or a visitor without a usable
// cookie was matched through Accept-Language.
func ResolveLanguage(table *locale.Table, r *http.Request) (string, bool) {
	signals := Signals(r)
	code, source := table.Detect(signals)
	if source == locale.SourceAcceptLanguage {
		return code, true
	}
	values, err := url.ParseQuery(signals.RawQuery)
	if err != nil {
		return code, false
	}
	hint := values.Get(LangParam)
	return code, table.Known(hint) && table.Normalize(hint) == code
}

// SetLanguageCookie persists the selected language on the response.
func SetLanguageCookie(w http.ResponseWriter, code string) {
	if w == nil || strings.TrimSpace(code) == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     LangCookieName,
		Value:    code,
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
}
