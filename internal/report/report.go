// Package report renders ledgers, valuation snapshots and dip observations
// as Markdown, for the terminal and for Telegram.
package report

import (
	"fmt"
	"strings"

	"mf_tracker/internal/ledger"
	"mf_tracker/internal/models"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// NA is shown for values that are unknown because a price was unavailable.
const NA = "n/a"

// Money formats amount in currency, e.g. ₹1,234.56.
// Unknown currency codes fall back to "1234.56 XYZ".
func Money(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.StringFixed(2) + " " + currency
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}

// SignedMoney is Money with an explicit + for gains.
func SignedMoney(amount decimal.Decimal, currency string) string {
	if amount.IsPositive() {
		return "+" + Money(amount, currency)
	}
	return Money(amount, currency)
}

// Percent formats p with two decimals and a sign.
func Percent(p decimal.Decimal) string {
	if p.IsPositive() {
		return "+" + p.StringFixed(2) + "%"
	}
	return p.StringFixed(2) + "%"
}

func nullMoney(d decimal.NullDecimal, currency string, signed bool) string {
	if !d.Valid {
		return NA
	}
	if signed {
		return SignedMoney(d.Decimal, currency)
	}
	return Money(d.Decimal, currency)
}

func fundCell(lot models.Lot) string {
	label := lot.FundLabel
	if label == "" {
		return escape(lot.FundID)
	}
	return fmt.Sprintf("%s (%s)", escape(label), escape(lot.FundID))
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

var chatEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "[", `\[`, "`", "\\`")

// EscapeChat makes s safe to interpolate into a Telegram Markdown message,
// outside of any bold or code span.
func EscapeChat(s string) string {
	return chatEscaper.Replace(s)
}

// Lots renders the ledger without prices. Positions are the ones Delete takes.
func Lots(lots []models.Lot, currency string) string {
	var b strings.Builder
	b.WriteString("## Ledger\n\n")
	if len(lots) == 0 {
		b.WriteString("No investments yet. Add one with `mf_tracker add`.\n")
		return b.String()
	}

	b.WriteString("| # | Date | Fund | Units | NAV | Cost |\n")
	b.WriteString("|---|---|---|---:|---:|---:|\n")
	total := decimal.Zero
	for i, lot := range lots {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s |\n",
			i,
			lot.Date.Format(models.DateFormat),
			fundCell(lot),
			lot.Units.StringFixed(ledger.UnitsPlaces),
			lot.PurchaseNAV.String(),
			Money(lot.Cost, currency),
		)
		total = total.Add(lot.Cost)
	}
	fmt.Fprintf(&b, "\n**Invested:** %s across %d lots\n", Money(total, currency), len(lots))
	return b.String()
}

// Portfolio renders a valuation snapshot.
func Portfolio(snap models.ValuationSnapshot, currency string) string {
	var b strings.Builder
	b.WriteString("## Portfolio\n\n")
	if len(snap.Lots) == 0 {
		b.WriteString("No investments yet. Add one with `mf_tracker add`.\n")
		return b.String()
	}

	b.WriteString("| # | Date | Fund | Units | Buy NAV | Cost | Latest NAV | Value | Gain/Loss |\n")
	b.WriteString("|---|---|---|---:|---:|---:|---:|---:|---:|\n")
	for i, v := range snap.Lots {
		nav := NA
		if v.CurrentNAV.Valid {
			nav = v.CurrentNAV.Decimal.String()
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			i,
			v.Lot.Date.Format(models.DateFormat),
			fundCell(v.Lot),
			v.Lot.Units.StringFixed(ledger.UnitsPlaces),
			v.Lot.PurchaseNAV.String(),
			Money(v.Lot.Cost, currency),
			nav,
			nullMoney(v.CurrentValue, currency, false),
			nullMoney(v.GainLoss, currency, true),
		)
	}

	b.WriteString("\n### Summary\n\n")
	fmt.Fprintf(&b, "- **Total invested:** %s\n", Money(snap.TotalCost, currency))
	fmt.Fprintf(&b, "- **Current value:** %s\n", Money(snap.TotalValue, currency))
	fmt.Fprintf(&b, "- **Net gain/loss:** %s (%s)\n", SignedMoney(snap.TotalGainLoss, currency), Percent(snap.GainPct))
	if snap.Unpriced > 0 {
		fmt.Fprintf(&b, "\n_%d of %d lots have no current NAV; they count in the invested total only._\n",
			snap.Unpriced, len(snap.Lots))
	}
	return b.String()
}

// Summary is a short, table-free version of Portfolio for chat messages.
func Summary(snap models.ValuationSnapshot, currency string) string {
	var b strings.Builder
	b.WriteString("💼 *PORTFOLIO*\n")
	fmt.Fprintf(&b, "Invested: %s\n", Money(snap.TotalCost, currency))
	fmt.Fprintf(&b, "Value: %s\n", Money(snap.TotalValue, currency))
	fmt.Fprintf(&b, "Gain/Loss: %s (%s)", SignedMoney(snap.TotalGainLoss, currency), Percent(snap.GainPct))
	if snap.Unpriced > 0 {
		fmt.Fprintf(&b, "\n⚠️ %d lot(s) unpriced", snap.Unpriced)
	}
	return b.String()
}

// Dip renders a dip observation for the benchmark symbol.
func Dip(symbol string, obs models.DipObservation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Dip signal: %s\n\n", escape(symbol))
	b.WriteString("| Latest close | Peak | Drawdown | Signal |\n")
	b.WriteString("|---:|---:|---:|---|\n")
	fmt.Fprintf(&b, "| %s (%s) | %s | %s%% | **%s** |\n",
		obs.LatestClose.StringFixed(2),
		obs.LatestDate.Format(models.DateFormat),
		obs.PeakClose.StringFixed(2),
		obs.DrawdownPct.StringFixed(2),
		signalLabel(obs.Signal),
	)
	fmt.Fprintf(&b, "\nPeak over the last %d sessions; BUY at a drawdown of %s%% or more.\n",
		obs.Window, obs.Threshold.String())
	return b.String()
}

// DipAlert is the chat message sent when the signal turns to BUY.
func DipAlert(symbol string, obs models.DipObservation) string {
	return dipMessage("📉 *DIP ALERT", symbol, obs)
}

// DipStatus is the chat reply to an on-demand dip check.
func DipStatus(symbol string, obs models.DipObservation) string {
	return dipMessage("📊 *DIP CHECK", symbol, obs)
}

func dipMessage(title, symbol string, obs models.DipObservation) string {
	return fmt.Sprintf("%s: %s*\nLatest: %s (%s) | Peak: %s\nDrawdown: %s%% (BUY at %s%%)\nSignal: %s",
		title,
		symbol,
		obs.LatestClose.StringFixed(2),
		obs.LatestDate.Format(models.DateFormat),
		obs.PeakClose.StringFixed(2),
		obs.DrawdownPct.StringFixed(2),
		obs.Threshold.String(),
		signalLabel(obs.Signal),
	)
}

func signalLabel(s models.Signal) string {
	if s == models.SignalBuy {
		return "✅ BUY"
	}
	return "⏳ WAIT"
}
