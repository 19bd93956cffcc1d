package tour

import (
	"context"
	"flag"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/bitcoinpitch/tour/internal/tutorial/completion"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("tour", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.HTTPAddr != "localhost:8095" {
		t.Fatalf("HTTPAddr = %q, want localhost:8095", cfg.HTTPAddr)
	}
	if cfg.Store != StoreSQLite {
		t.Fatalf("Store = %q, want %q", cfg.Store, StoreSQLite)
	}
	if cfg.AutoStartDelay != time.Second {
		t.Fatalf("AutoStartDelay = %v, want 1s", cfg.AutoStartDelay)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Fatalf("SessionTTL = %v, want 30m", cfg.SessionTTL)
	}
}

func TestParseConfigEnvAndFlags(t *testing.T) {
	t.Setenv("BITCOINPITCH_TOUR_STORE", "redis")
	t.Setenv("BITCOINPITCH_TOUR_AUTOSTART_PATHS", "/,/bitcoin")

	fs := flag.NewFlagSet("tour", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-http-addr", ":9000", "-autostart-delay", "250ms"})
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.Store != StoreRedis {
		t.Fatalf("Store = %q, want redis", cfg.Store)
	}
	if cfg.HTTPAddr != ":9000" || cfg.AutoStartDelay != 250*time.Millisecond {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if len(cfg.AutoStartPaths) != 2 || cfg.AutoStartPaths[1] != "/bitcoin" {
		t.Fatalf("AutoStartPaths = %v", cfg.AutoStartPaths)
	}
}

func TestParseConfigRejectsUnknownFlag(t *testing.T) {
	fs := flag.NewFlagSet("tour", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if _, err := ParseConfig(fs, []string{"-nope"}); err == nil {
		t.Fatal("expected unknown flag error")
	}
}

func TestOpenStoreBackends(t *testing.T) {
	ctx := context.Background()

	mem, err := openStore(ctx, Config{Store: "memory"})
	if err != nil {
		t.Fatalf("openStore(memory) error = %v", err)
	}
	if _, ok := mem.(*completion.MemoryStore); !ok {
		t.Fatalf("openStore(memory) = %T", mem)
	}

	path := filepath.Join(t.TempDir(), "nested", "tour.db")
	sqlite, err := openStore(ctx, Config{Store: "SQLite", SQLitePath: path})
	if err != nil {
		t.Fatalf("openStore(sqlite) error = %v", err)
	}
	marker := completion.NewFlag(sqlite, "v")
	if err := marker.Mark(ctx); err != nil {
		t.Fatalf("Mark() error = %v", err)
	}
	if closer, ok := sqlite.(io.Closer); ok {
		_ = closer.Close()
	}

	if _, err := openStore(ctx, Config{Store: "redis"}); err == nil {
		t.Fatal("expected redis error without address")
	}
	if _, err := openStore(ctx, Config{Store: "etcd"}); err == nil {
		t.Fatal("expected unknown backend error")
	}
}

func TestRunRejectsBadLogLevel(t *testing.T) {
	if err := Run(context.Background(), Config{LogLevel: "loud"}); err == nil {
		t.Fatal("expected log level error")
	}
}
