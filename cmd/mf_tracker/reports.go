package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"mf_tracker/internal/dip"
	"mf_tracker/internal/report"
	"mf_tracker/internal/valuation"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

// valueCmd prices the ledger at the latest NAVs.
type valueCmd struct {
	raw bool
}

func (*valueCmd) Name() string     { return "value" }
func (*valueCmd) Synopsis() string { return "value the portfolio at the latest NAVs" }
func (*valueCmd) Usage() string {
	return `mf_tracker value [-raw]

  Fetches the latest NAV of every fund in the ledger and shows the current
  value and gain of each lot. Lots whose NAV is unavailable are shown as n/a
  and excluded from the totals except the invested amount.
`
}

func (c *valueCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.raw, "raw", false, "Print Markdown instead of rendering it")
}

func (c *valueCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	snap := valuation.Snapshot(a.ledger, a.prices())
	printMarkdown(report.Portfolio(snap, a.cfg.Currency), c.raw)
	return subcommands.ExitSuccess
}

// dipCmd evaluates the buy-the-dip signal once.
type dipCmd struct {
	symbol    string
	window    int
	threshold float64
	raw       bool
}

func (*dipCmd) Name() string     { return "dip" }
func (*dipCmd) Synopsis() string { return "check the benchmark drawdown and buy signal" }
func (*dipCmd) Usage() string {
	return `mf_tracker dip [-symbol <symbol>] [-window <days>] [-threshold <pct>] [-raw]

  Compares the latest close of the benchmark with its highest close over
  the window. A drawdown at or above the threshold is a BUY signal.
  Defaults come from BENCHMARK_SYMBOL, DIP_WINDOW_DAYS and DIP_BUY_THRESHOLD_PCT.
`
}

func (c *dipCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "symbol", "", "Benchmark symbol, e.g. ^NSEI (yahoo) or SPY (alpaca)")
	f.IntVar(&c.window, "window", 0, "Number of recent closes scanned for the peak")
	f.Float64Var(&c.threshold, "threshold", 0, "Drawdown percentage that triggers BUY")
	f.BoolVar(&c.raw, "raw", false, "Print Markdown instead of rendering it")
}

func (c *dipCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	symbol := a.cfg.BenchmarkSymbol
	if c.symbol != "" {
		symbol = c.symbol
	}
	ev := dip.Evaluator{
		Window:    a.cfg.DipWindowDays,
		Threshold: decimal.NewFromFloat(a.cfg.DipThresholdPct),
	}
	if c.window > 0 {
		ev.Window = c.window
	}
	if c.threshold > 0 {
		ev.Threshold = decimal.NewFromFloat(c.threshold)
	}

	// The fetched history must cover the window.
	days := a.cfg.BenchmarkDays
	if ev.Window*2 > days {
		days = ev.Window * 2
	}

	closes, err := a.prices().BenchmarkSeries(symbol, days)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: benchmark %s: %v\n", symbol, err)
		return subcommands.ExitFailure
	}
	obs, err := ev.Evaluate(closes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot evaluate %s: %v\n", symbol, err)
		return subcommands.ExitFailure
	}

	printMarkdown(report.Dip(symbol, obs), c.raw)
	return subcommands.ExitSuccess
}

// searchCmd finds scheme codes in the AMFI directory.
type searchCmd struct{}

func (*searchCmd) Name() string     { return "search" }
func (*searchCmd) Synopsis() string { return "find a fund's AMFI scheme code" }
func (*searchCmd) Usage() string {
	return `mf_tracker search <search term>

  Searches the AMFI fund directory by name or scheme code and prints
  ready-to-use 'mf_tracker add' commands for the results.
`
}

func (*searchCmd) SetFlags(*flag.FlagSet) {}

func (*searchCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: a search term is required.")
		return subcommands.ExitUsageError
	}
	query := strings.Join(f.Args(), " ")

	a, err := openApp(false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	dir, err := a.directory()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: fund directory: %v\n", err)
		return subcommands.ExitFailure
	}

	funds := dir.Search(query)
	if len(funds) == 0 {
		fmt.Printf("No funds match %q.\n", query)
		return subcommands.ExitSuccess
	}
	for _, fund := range funds {
		fmt.Printf("# %s (NAV %s on %s)\n", fund.Name, fund.NAV, fund.Date)
		fmt.Printf("mf_tracker add -fund %s -units <units> -nav %s\n\n", fund.Code, fund.NAV)
	}
	return subcommands.ExitSuccess
}
