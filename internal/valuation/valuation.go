package valuation

import (
	"mf_tracker/internal/market"
	"mf_tracker/internal/models"

	"github.com/shopspring/decimal"
)

// ValuePlaces is the precision of current values and gains.
const ValuePlaces = 2

var hundred = decimal.NewFromInt(100)

// Lister is anything that can enumerate lots, typically a *ledger.Ledger.
type Lister interface {
	List() []models.Lot
}

// Snapshot values every lot at the latest NAV of its fund.
//
// Each call queries src afresh; within one call a fund is looked up once and
// every lot of that fund uses the same NAV. A lot whose NAV is unavailable
// keeps unknown current value and gain: it counts towards TotalCost but not
// towards TotalValue or TotalGainLoss.
func Snapshot(lots Lister, src market.NAVSource) models.ValuationSnapshot {
	type quote struct {
		nav decimal.Decimal
		ok  bool
	}
	quotes := make(map[string]quote)
	all := lots.List()

	snap := models.ValuationSnapshot{
		Lots:          make([]models.LotValuation, 0, len(all)),
		TotalCost:     decimal.Zero,
		TotalValue:    decimal.Zero,
		TotalGainLoss: decimal.Zero,
		GainPct:       decimal.Zero,
	}

	for _, lot := range all {
		q, seen := quotes[lot.FundID]
		if !seen {
			q.nav, q.ok = src.LatestNAV(lot.FundID)
			if q.ok && !q.nav.IsPositive() {
				q.ok = false
			}
			quotes[lot.FundID] = q
		}

		v := models.LotValuation{Lot: lot}
		snap.TotalCost = snap.TotalCost.Add(lot.Cost)

		if q.ok {
			value := lot.Units.Mul(q.nav).Round(ValuePlaces)
			gain := value.Sub(lot.Cost).Round(ValuePlaces)
			v.CurrentNAV = decimal.NewNullDecimal(q.nav)
			v.CurrentValue = decimal.NewNullDecimal(value)
			v.GainLoss = decimal.NewNullDecimal(gain)

			snap.TotalValue = snap.TotalValue.Add(value)
			snap.TotalGainLoss = snap.TotalGainLoss.Add(gain)
			snap.Priced++
		} else {
			snap.Unpriced++
		}
		snap.Lots = append(snap.Lots, v)
	}

	if snap.TotalCost.IsPositive() {
		snap.GainPct = snap.TotalGainLoss.Div(snap.TotalCost).Mul(hundred)
	}
	return snap
}
