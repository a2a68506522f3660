package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateFormat is how lot and close dates are written to disk and displayed.
const DateFormat = "2006-01-02"

// Lot represents one purchase of fund units.
//
// Every field is fixed once the lot has been appended to the ledger.
// Cost is stored rather than derived so that historical cost survives any
// later change in rounding rules.
type Lot struct {
	Date        time.Time       `json:"date"`         // Purchase date (UTC midnight)
	FundID      string          `json:"fund_id"`      // AMFI scheme code, key into the NAV source
	FundLabel   string          `json:"fund_label"`   // Display name only
	Units       decimal.Decimal `json:"units"`        // 4 fractional digits
	PurchaseNAV decimal.Decimal `json:"purchase_nav"` // Price per unit at acquisition
	Cost        decimal.Decimal `json:"cost"`         // round(Units * PurchaseNAV, 2)
}

// Fund is an entry of the fund-master directory.
type Fund struct {
	Code string
	Name string
	NAV  decimal.Decimal
	Date string
}

// Close is one daily close of a benchmark index.
type Close struct {
	Date  time.Time
	Price decimal.Decimal
}

// LotValuation is the current value of a single lot.
// Invalid NullDecimals mean the NAV for the fund was unavailable.
type LotValuation struct {
	Lot          Lot                 `json:"lot"`
	CurrentNAV   decimal.NullDecimal `json:"current_nav"`
	CurrentValue decimal.NullDecimal `json:"current_value"`
	GainLoss     decimal.NullDecimal `json:"gain_loss"`
}

// Priced reports whether a current NAV was available for the lot.
func (v LotValuation) Priced() bool { return v.CurrentValue.Valid }

// ValuationSnapshot is the derived state of the whole portfolio at one read.
// It is never persisted.
type ValuationSnapshot struct {
	Lots          []LotValuation  `json:"lots"`
	TotalCost     decimal.Decimal `json:"total_cost"`      // every lot, priced or not
	TotalValue    decimal.Decimal `json:"total_value"`     // priced lots only
	TotalGainLoss decimal.Decimal `json:"total_gain_loss"` // priced lots only
	GainPct       decimal.Decimal `json:"gain_pct"`
	Priced        int             `json:"priced"`
	Unpriced      int             `json:"unpriced"`
}

// Signal is the discrete recommendation of the dip evaluator.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalWait Signal = "WAIT"
)

// DipObservation is the drawdown of a benchmark from its recent peak.
type DipObservation struct {
	LatestDate  time.Time       `json:"latest_date"`
	LatestClose decimal.Decimal `json:"latest_close"`
	PeakClose   decimal.Decimal `json:"peak_close"`
	DrawdownPct decimal.Decimal `json:"drawdown_pct"`
	Signal      Signal          `json:"signal"`
	Window      int             `json:"window"`    // entries actually scanned for the peak
	Threshold   decimal.Decimal `json:"threshold"` // drawdown at or above which the signal is BUY
}
