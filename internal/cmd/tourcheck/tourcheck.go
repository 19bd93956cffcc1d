// Package tourcheck reports how tour steps resolve against saved HTML pages.
package tourcheck

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	json "github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	entrypoint "github.com/bitcoinpitch/tour/internal/platform/cmd"
	"github.com/bitcoinpitch/tour/internal/tutorial/dom"
	"github.com/bitcoinpitch/tour/internal/tutorial/locale"
	"github.com/bitcoinpitch/tour/internal/tutorial/steps"
)

const tracerName = "github.com/bitcoinpitch/tour/internal/cmd/tourcheck"

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config holds tourcheck command configuration.
type Config struct {
	Lang   string `env:"BITCOINPITCH_TOURCHECK_LANG" envDefault:"en"`
	Format string `env:"BITCOINPITCH_TOURCHECK_FORMAT" envDefault:"text"`
	Strict bool   `env:"BITCOINPITCH_TOURCHECK_STRICT" envDefault:"false"`
	Paths  []string
}

// ParseConfig parses environment and flags into Config. Remaining
// arguments are the HTML files to check.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Lang, "lang", cfg.Lang, "Language whose step catalog is checked")
	fs.StringVar(&cfg.Format, "format", cfg.Format, "Output format: text or json")
	fs.BoolVar(&cfg.Strict, "strict", cfg.Strict, "Fail when any step would be skipped")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	cfg.Paths = fs.Args()
	if len(cfg.Paths) == 0 {
		return Config{}, errors.New("at least one HTML file is required")
	}
	return cfg, nil
}

// FileReport is the outcome for one page.
type FileReport struct {
	Path  string           `json:"path"`
	Lang  string           `json:"lang"`
	Shown int              `json:"shown"`
	Steps []dom.StepResult `json:"steps"`
}

// Run checks every configured page and writes the reports to out. It
// returns the total number of skipped steps.
func Run(ctx context.Context, cfg Config, out io.Writer) (int, error) {
	skipped := 0
	err := entrypoint.Run(ctx, entrypoint.ServiceTourCheck, entrypoint.RunOptions{}, func(ctx context.Context) error {
		var err error
		skipped, err = check(ctx, cfg, out)
		return err
	})
	return skipped, err
}

func check(ctx context.Context, cfg Config, out io.Writer) (int, error) {
	table, err := locale.Default()
	if err != nil {
		return 0, fmt.Errorf("load translations: %w", err)
	}
	lang := table.Normalize(cfg.Lang)
	catalog, err := steps.Build(table.Resolve(lang))
	if err != nil {
		return 0, err
	}

	reports := make([]FileReport, 0, len(cfg.Paths))
	skipped := 0
	for _, path := range cfg.Paths {
		report, err := checkFile(ctx, path, catalog)
		if err != nil {
			return 0, err
		}
		skipped += len(report.Steps) - report.Shown()
		reports = append(reports, FileReport{Path: path, Lang: lang, Shown: report.Shown(), Steps: report.Steps})
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", FormatText:
		err = writeText(out, reports)
	case FormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		err = enc.Encode(reports)
	default:
		err = fmt.Errorf("unknown format %q", cfg.Format)
	}
	if err != nil {
		return 0, err
	}
	return skipped, nil
}

func checkFile(ctx context.Context, path string, catalog []steps.Step) (dom.Report, error) {
	_, span := otel.Tracer(tracerName).Start(ctx, "tourcheck.file", trace.WithAttributes(attribute.String("tourcheck.path", path)))
	defer span.End()

	f, err := os.Open(path)
	if err != nil {
		return dom.Report{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	doc, err := dom.Parse(f)
	if err != nil {
		return dom.Report{}, fmt.Errorf("%s: %w", path, err)
	}
	report, err := dom.Check(doc, catalog)
	if err != nil {
		return dom.Report{}, fmt.Errorf("%s: %w", path, err)
	}
	return report, nil
}

func writeText(out io.Writer, reports []FileReport) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, report := range reports {
		fmt.Fprintf(tw, "%s (%s): %d/%d steps shown\n", report.Path, report.Lang, report.Shown, len(report.Steps))
		for _, step := range report.Steps {
			fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\n", step.Index+1, step.Section, step.Resolution, step.Element)
		}
	}
	return tw.Flush()
}
