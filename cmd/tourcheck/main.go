// Package main checks saved pages against the tour's step selectors.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	tourcheckcmd "github.com/bitcoinpitch/tour/internal/cmd/tourcheck"
	"github.com/bitcoinpitch/tour/internal/platform/config"
)

func main() {
	cfg, err := tourcheckcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[TOURCHECK] ")

	skipped, err := tourcheckcmd.Run(context.Background(), cfg, os.Stdout)
	if err != nil {
		log.Fatalf("check failed: %v", err)
	}
	if cfg.Strict && skipped > 0 {
		config.ExitCodef(2, "%d tour step(s) would be skipped", skipped)
	}
}
