package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"mf_tracker/internal/amfi"
	"mf_tracker/internal/config"
	"mf_tracker/internal/ledger"
	"mf_tracker/internal/logger"
	"mf_tracker/internal/market"
	"mf_tracker/internal/market/alpaca"
	"mf_tracker/internal/market/mfapi"
	"mf_tracker/internal/market/yahoo"
	"mf_tracker/internal/storage"

	"github.com/charmbracelet/glamour"
)

const VersionFile = "version.latest"

// as a CLI application it is short lived, so global flags are fine.
var ledgerFlag = flag.String("ledger", "", "Ledger file: .csv, or .db/.sqlite for SQLite. Overrides LEDGER_PATH.")

// app is what every command needs: configuration, logging and the ledger.
type app struct {
	cfg     *config.Config
	ledger  *ledger.Ledger
	store   ledger.Store
	rotator *logger.Rotator
}

// openApp loads the configuration, sets up logging and opens the ledger.
// console copies log lines to stdout, which only the long-running watch
// command wants.
func openApp(console bool) (*app, error) {
	cfg := config.Load()
	cfg.Version = readVersion()
	if *ledgerFlag != "" {
		cfg.LedgerPath = *ledgerFlag
	}

	a := &app{cfg: cfg}
	if console {
		a.rotator = logger.Setup(cfg.LogFile, cfg.MaxLogSizeMB, cfg.MaxLogBackups, cfg.LogLevel)
	} else {
		a.rotator = logger.SetupFileOnly(cfg.LogFile, cfg.MaxLogSizeMB, cfg.MaxLogBackups, cfg.LogLevel)
	}

	store, err := storage.Open(cfg.LedgerPath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("opening ledger %q: %w", cfg.LedgerPath, err)
	}
	a.store = store

	lg, err := ledger.New(store)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("loading ledger %q: %w", cfg.LedgerPath, err)
	}
	a.ledger = lg
	return a, nil
}

// Close releases the store and the log file.
func (a *app) Close() {
	if c, ok := a.store.(io.Closer); ok {
		c.Close()
	}
	if a.rotator != nil {
		a.rotator.Close()
	}
}

// prices wires the configured NAV and benchmark providers.
func (a *app) prices() market.Sources {
	timeout := a.cfg.HTTPTimeout()
	src := market.Sources{NAV: mfapi.NewProvider(a.cfg.NAVBaseURL, timeout)}
	switch a.cfg.BenchmarkProvider {
	case config.BenchmarkAlpaca:
		src.Benchmark = alpaca.NewProvider()
	default:
		src.Benchmark = yahoo.NewProvider(yahoo.DefaultBaseURL, timeout)
	}
	return src
}

// directory downloads the AMFI fund list.
func (a *app) directory() (*amfi.Directory, error) {
	return amfi.Fetch(a.cfg.AMFIURL, a.cfg.HTTPTimeout())
}

func readVersion() string {
	version, err := os.ReadFile(VersionFile)
	if err != nil {
		return "v0.0.0-dev"
	}
	return strings.TrimSpace(string(version))
}

// printMarkdown renders md for the terminal, or prints it as is when raw.
func printMarkdown(md string, raw bool) {
	if raw {
		fmt.Print(md)
		return
	}
	out, err := glamour.Render(md, "dark")
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}
