package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"mf_tracker/internal/config"
	"mf_tracker/internal/ledger"
	"mf_tracker/internal/models"
	"mf_tracker/internal/report"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

// addCmd records a purchase.
type addCmd struct {
	fund   string
	units  string
	nav    string
	date   string
	label  string
	lookup bool
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "record a mutual fund purchase" }
func (*addCmd) Usage() string {
	return `mf_tracker add -fund <scheme code> -units <units> -nav <nav> [-date YYYY-MM-DD] [-label <name>]

  Appends a lot to the ledger. Units are rounded to 4 decimals and the cost
  is computed as units x nav, rounded to 2 decimals.
  Without -label, the fund name is looked up in the AMFI directory.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.fund, "fund", "", "AMFI scheme code of the fund")
	f.StringVar(&c.units, "units", "", "Units purchased")
	f.StringVar(&c.nav, "nav", "", "NAV at the time of purchase")
	f.StringVar(&c.date, "date", time.Now().In(config.IstLoc).Format(models.DateFormat), "Purchase date")
	f.StringVar(&c.label, "label", "", "Display name of the fund")
	f.BoolVar(&c.lookup, "lookup", true, "Fill a missing label from the AMFI directory")
}

func (c *addCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	lot, err := parseLot(c.fund, c.units, c.nav, c.date, c.label)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	a, err := openApp(false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if lot.FundLabel == "" && c.lookup {
		lot.FundLabel = lookupLabel(a, lot.FundID)
	}

	pos, err := a.ledger.Append(lot)
	switch {
	case errors.Is(err, ledger.ErrInvalidLot):
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	case errors.Is(err, ledger.ErrStorage):
		fmt.Fprintf(os.Stderr, "Error: lot not saved to %s: %v\n", a.cfg.LedgerPath, err)
		return subcommands.ExitFailure
	case err != nil:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	saved := a.ledger.List()[pos]
	name := saved.FundLabel
	if name == "" {
		name = saved.FundID
	}
	fmt.Printf("✅ Added %s units of %s @ %s (%s) as #%d\n",
		saved.Units.StringFixed(ledger.UnitsPlaces), name, saved.PurchaseNAV,
		report.Money(saved.Cost, a.cfg.Currency), pos)
	return subcommands.ExitSuccess
}

// parseLot turns command-line values into a lot. Range checks are left to
// the ledger.
func parseLot(fund, units, nav, date, label string) (models.Lot, error) {
	lot := models.Lot{
		FundID:    strings.TrimSpace(fund),
		FundLabel: strings.TrimSpace(label),
	}
	if lot.FundID == "" {
		return lot, errors.New("-fund is required")
	}

	var err error
	if lot.Units, err = decimal.NewFromString(strings.TrimSpace(units)); err != nil {
		return lot, fmt.Errorf("invalid -units %q", units)
	}
	if lot.PurchaseNAV, err = decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(nav), ",", "")); err != nil {
		return lot, fmt.Errorf("invalid -nav %q", nav)
	}
	if lot.Date, err = time.ParseInLocation(models.DateFormat, strings.TrimSpace(date), time.UTC); err != nil {
		return lot, fmt.Errorf("invalid -date %q, want YYYY-MM-DD", date)
	}
	return lot, nil
}

// lookupLabel returns the AMFI name of fundID, or "" when it cannot be found.
func lookupLabel(a *app, fundID string) string {
	dir, err := a.directory()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: fund directory unavailable, saving without a label: %v\n", err)
		return ""
	}
	f, ok := dir.Lookup(fundID)
	if !ok {
		fmt.Fprintf(os.Stderr, "Warning: scheme code %s is not in the AMFI directory\n", fundID)
		return ""
	}
	return f.Name
}

// rmCmd deletes a lot by position.
type rmCmd struct{}

func (*rmCmd) Name() string     { return "rm" }
func (*rmCmd) Synopsis() string { return "delete a recorded purchase" }
func (*rmCmd) Usage() string {
	return `mf_tracker rm <position>

  Deletes the lot at <position>, as shown by 'mf_tracker ls'.
  Later lots move up by one position.
`
}

func (*rmCmd) SetFlags(*flag.FlagSet) {}

func (*rmCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one position is required.")
		return subcommands.ExitUsageError
	}
	pos, err := strconv.Atoi(f.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid position %q\n", f.Arg(0))
		return subcommands.ExitUsageError
	}

	a, err := openApp(false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	lots := a.ledger.List()
	if err := a.ledger.Delete(ledger.LotID(pos)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	lot := lots[pos]
	fmt.Printf("🗑️ Removed #%d: %s units of %s bought %s\n",
		pos, lot.Units.StringFixed(ledger.UnitsPlaces), lot.FundID, lot.Date.Format(models.DateFormat))
	return subcommands.ExitSuccess
}

// lsCmd lists the ledger without prices.
type lsCmd struct {
	raw bool
}

func (*lsCmd) Name() string     { return "ls" }
func (*lsCmd) Synopsis() string { return "list recorded purchases" }
func (*lsCmd) Usage() string {
	return `mf_tracker ls [-raw]

  Lists every lot with its position, purchase NAV and cost.
`
}

func (c *lsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.raw, "raw", false, "Print Markdown instead of rendering it")
}

func (c *lsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	printMarkdown(report.Lots(a.ledger.List(), a.cfg.Currency), c.raw)
	return subcommands.ExitSuccess
}
