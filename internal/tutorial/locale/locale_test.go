package locale

import (
	"errors"
	"reflect"
	"testing"

	"pgregory.net/rapid"
)

func mustDefault(t testing.TB) *Table {
	t.Helper()
	table, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	return table
}

func TestDefaultTableLanguages(t *testing.T) {
	t.Parallel()

	table := mustDefault(t)
	if got := table.Codes(); !reflect.DeepEqual(got, []string{"cs", "en"}) {
		t.Fatalf("Codes() = %v, want [cs en]", got)
	}
	if table.DefaultCode() != "en" {
		t.Fatalf("DefaultCode() = %q, want en", table.DefaultCode())
	}
}

func TestResolveKnownLanguage(t *testing.T) {
	t.Parallel()

	bundle := mustDefault(t).Resolve("cs")
	if bundle.Code != "cs" {
		t.Fatalf("Code = %q, want cs", bundle.Code)
	}
	if bundle.Labels.Next != "Další" {
		t.Fatalf("Labels.Next = %q, want Další", bundle.Labels.Next)
	}
	welcome, ok := bundle.Section(SectionWelcome)
	if !ok || welcome.Title != "Vítejte na BitcoinPitch.org!" {
		t.Fatalf("welcome = %+v, %v", welcome, ok)
	}
}

func TestResolveRegionalTagUsesBaseLanguage(t *testing.T) {
	t.Parallel()

	if got := mustDefault(t).Resolve("cs-CZ").Code; got != "cs" {
		t.Fatalf("Resolve(cs-CZ).Code = %q, want cs", got)
	}
}

func TestResolveUnknownFallsBackToCompleteDefault(t *testing.T) {
	t.Parallel()

	table := mustDefault(t)
	def := table.Resolve("en")
	rapid.Check(t, func(rt *rapid.T) {
		code := rapid.StringMatching(`[a-z]{0,3}(-[A-Z]{2})?`).Draw(rt, "code")
		if table.Known(code) {
			return
		}
		got := table.Resolve(code)
		if got.Code != def.Code {
			rt.Fatalf("Resolve(%q).Code = %q, want %q", code, got.Code, def.Code)
		}
		if len(got.Sections) != len(AllSections()) {
			rt.Fatalf("Resolve(%q) has %d sections, want %d", code, len(got.Sections), len(AllSections()))
		}
		if got.Labels != def.Labels {
			rt.Fatalf("Resolve(%q).Labels = %+v, want %+v", code, got.Labels, def.Labels)
		}
	})
}

func TestDetectReportsSource(t *testing.T) {
	t.Parallel()

	table := mustDefault(t)
	tests := []struct {
		signals  Signals
		wantCode string
		want     Source
	}{
		{Signals{DocumentLang: "cs"}, "cs", SourceDocument},
		{Signals{Path: "/cs/bitcoin"}, "cs", SourcePath},
		{Signals{RawQuery: "lang=cs"}, "cs", SourceQuery},
		{Signals{Cookie: "cs"}, "cs", SourceCookie},
		{Signals{AcceptLanguage: "cs"}, "cs", SourceAcceptLanguage},
		{Signals{AcceptLanguage: "en-US"}, "en", SourceAcceptLanguage},
		{Signals{}, "en", SourceDefault},
	}
	for _, tc := range tests {
		code, source := table.Detect(tc.signals)
		if code != tc.wantCode || source != tc.want {
			t.Fatalf("Detect(%+v) = %q, %q; want %q, %q", tc.signals, code, source, tc.wantCode, tc.want)
		}
	}
}

func TestNewTableRequiresDefault(t *testing.T) {
	t.Parallel()

	_, err := NewTable("en", Bundle{Code: "cs"})
	if !errors.Is(err, ErrNoDefault) {
		t.Fatalf("NewTable() error = %v, want ErrNoDefault", err)
	}
	if _, err := NewTable("en", Bundle{Code: "en"}, Bundle{Code: "en"}); err == nil {
		t.Fatal("expected duplicate bundle error")
	}
}

func TestDetectLanguagePriority(t *testing.T) {
	t.Parallel()

	table := mustDefault(t)
	tests := []struct {
		name    string
		signals Signals
		want    string
	}{
		{name: "no signals", signals: Signals{}, want: "en"},
		{name: "document lang", signals: Signals{DocumentLang: "cs", Cookie: "en"}, want: "cs"},
		{name: "unknown document lang falls through", signals: Signals{DocumentLang: "fr", Cookie: "cs"}, want: "cs"},
		{name: "path segment", signals: Signals{Path: "/cs/bitcoin", Cookie: "en"}, want: "cs"},
		{name: "query hint", signals: Signals{Path: "/", RawQuery: "lang=cs", Cookie: "en"}, want: "cs"},
		{name: "document beats query", signals: Signals{DocumentLang: "en", RawQuery: "lang=cs"}, want: "en"},
		{name: "cookie", signals: Signals{Path: "/lightning", Cookie: "cs"}, want: "cs"},
		{name: "unknown cookie", signals: Signals{Cookie: "de"}, want: "en"},
		{name: "malformed query", signals: Signals{RawQuery: "%zz", Cookie: "cs"}, want: "cs"},
		{name: "accept-language", signals: Signals{AcceptLanguage: "cs-CZ,cs;q=0.9,en;q=0.8"}, want: "cs"},
		{name: "cookie beats accept-language", signals: Signals{Cookie: "en", AcceptLanguage: "cs"}, want: "en"},
		{name: "unknown cookie falls to accept-language", signals: Signals{Cookie: "de", AcceptLanguage: "cs"}, want: "cs"},
		{name: "unmatched accept-language", signals: Signals{AcceptLanguage: "de-DE,fr;q=0.5"}, want: "en"},
		{name: "malformed accept-language", signals: Signals{AcceptLanguage: ";;q=x"}, want: "en"},
	}
	for _, tc := range tests {
		if got := table.DetectLanguage(tc.signals); got != tc.want {
			t.Fatalf("%s: DetectLanguage() = %q, want %q", tc.name, got, tc.want)
		}
	}
}
