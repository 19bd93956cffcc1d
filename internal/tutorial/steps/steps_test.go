package steps

import (
	"errors"
	"testing"

	"github.com/bitcoinpitch/tour/internal/tutorial/layout"
	"github.com/bitcoinpitch/tour/internal/tutorial/locale"
)

func defaultBundle(t *testing.T) locale.Bundle {
	t.Helper()
	table, err := locale.Default()
	if err != nil {
		t.Fatalf("locale.Default() error = %v", err)
	}
	return table.Resolve(table.DefaultCode())
}

func TestBuildDefaultOrder(t *testing.T) {
	t.Parallel()

	bundle := defaultBundle(t)
	got, err := Build(bundle)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(got) != 8 {
		t.Fatalf("len(steps) = %d, want 8", len(got))
	}

	wantTargets := []string{
		".site-title",
		".nav-tabs",
		"article.card, .pitch-list",
		".votes, .up, .down",
		".pitch-types",
		`button[hx-get="/pitch/form"], .button.primary, .add-pitch`,
		".header-auth, .auth-links",
		".site-title",
	}
	for i, step := range got {
		if step.TargetSelector != wantTargets[i] {
			t.Fatalf("steps[%d].TargetSelector = %q, want %q", i, step.TargetSelector, wantTargets[i])
		}
		section, ok := bundle.Section(step.Section)
		if !ok {
			t.Fatalf("steps[%d] section %q missing from bundle", i, step.Section)
		}
		if step.Title != section.Title || step.Content != section.Content {
			t.Fatalf("steps[%d] text = %q/%q, want verbatim bundle text", i, step.Title, step.Content)
		}
	}
}

func TestBuildFlags(t *testing.T) {
	t.Parallel()

	got := MustBuild(defaultBundle(t))
	if !got[0].ShowSkip {
		t.Fatal("first step should show skip")
	}
	for i, step := range got {
		if step.IsLast != (i == len(got)-1) {
			t.Fatalf("steps[%d].IsLast = %t", i, step.IsLast)
		}
	}
	if got[4].FallbackSelector != ".nav-tabs" {
		t.Fatalf("pitch types fallback = %q, want .nav-tabs", got[4].FallbackSelector)
	}
	if got[6].Placement != layout.PlacementBottomLeft {
		t.Fatalf("join community placement = %q, want bottom-left", got[6].Placement)
	}
}

func TestBuildRejectsMissingSection(t *testing.T) {
	t.Parallel()

	bundle := defaultBundle(t)
	partial := locale.Bundle{Code: "xx", Sections: map[locale.SectionKey]locale.Section{}, Labels: bundle.Labels}
	for key, section := range bundle.Sections {
		if key != locale.SectionVoting {
			partial.Sections[key] = section
		}
	}

	_, err := Build(partial)
	if !errors.Is(err, ErrMissingSection) {
		t.Fatalf("Build() error = %v, want ErrMissingSection", err)
	}
}

func TestBuildAllCoversEveryLanguage(t *testing.T) {
	t.Parallel()

	table, err := locale.Default()
	if err != nil {
		t.Fatalf("locale.Default() error = %v", err)
	}
	all, err := BuildAll(table)
	if err != nil {
		t.Fatalf("BuildAll() error = %v", err)
	}
	if len(all["cs"]) != Len() || len(all["en"]) != Len() {
		t.Fatalf("BuildAll() sizes = cs:%d en:%d", len(all["cs"]), len(all["en"]))
	}
	if all["cs"][0].Title == all["en"][0].Title {
		t.Fatal("expected localized titles to differ")
	}
}
