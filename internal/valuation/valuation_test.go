package valuation

import (
	"reflect"
	"testing"
	"time"

	"mf_tracker/internal/models"

	"github.com/shopspring/decimal"
)

// MockNAVSource implements market.NAVSource for testing
type MockNAVSource struct {
	navs  map[string]decimal.Decimal
	calls map[string]int
}

func (m *MockNAVSource) LatestNAV(fundID string) (decimal.Decimal, bool) {
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[fundID]++
	nav, ok := m.navs[fundID]
	return nav, ok
}

type lots []models.Lot

func (l lots) List() []models.Lot { return l }

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func mkLot(fund, units, nav, cost string) models.Lot {
	return models.Lot{
		Date:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		FundID:      fund,
		Units:       d(units),
		PurchaseNAV: d(nav),
		Cost:        d(cost),
	}
}

func TestSnapshot_AllPriced(t *testing.T) {
	src := &MockNAVSource{navs: map[string]decimal.Decimal{
		"A": d("12.3456"),
		"B": d("50"),
	}}
	ledger := lots{
		mkLot("A", "100", "10", "1000"),
		mkLot("B", "2.5", "40", "100"),
		mkLot("A", "10", "11", "110"),
	}

	snap := Snapshot(ledger, src)

	// A: 100 * 12.3456 = 1234.56 ; gain 234.56
	// B: 2.5 * 50 = 125 ; gain 25
	// A: 10 * 12.3456 = 123.456 -> 123.46 ; gain 13.46
	wantValues := []string{"1234.56", "125", "123.46"}
	wantGains := []string{"234.56", "25", "13.46"}
	for i, v := range snap.Lots {
		if !v.Priced() {
			t.Fatalf("Lot %d should be priced", i)
		}
		if !v.CurrentValue.Decimal.Equal(d(wantValues[i])) {
			t.Errorf("Lot %d value: expected %s, got %s", i, wantValues[i], v.CurrentValue.Decimal)
		}
		if !v.GainLoss.Decimal.Equal(d(wantGains[i])) {
			t.Errorf("Lot %d gain: expected %s, got %s", i, wantGains[i], v.GainLoss.Decimal)
		}
	}

	if !snap.TotalCost.Equal(d("1210")) {
		t.Errorf("TotalCost: got %s", snap.TotalCost)
	}
	if !snap.TotalValue.Equal(d("1483.02")) {
		t.Errorf("TotalValue: got %s", snap.TotalValue)
	}
	if !snap.TotalGainLoss.Equal(d("273.02")) {
		t.Errorf("TotalGainLoss: got %s", snap.TotalGainLoss)
	}
	if got := snap.GainPct.Round(4); !got.Equal(d("22.5636")) {
		t.Errorf("GainPct: got %s", got)
	}

	// One lookup per fund within a pass.
	if src.calls["A"] != 1 || src.calls["B"] != 1 {
		t.Errorf("Expected one lookup per fund, got %v", src.calls)
	}
}

func TestSnapshot_UnavailablePriceIsUnknown(t *testing.T) {
	src := &MockNAVSource{navs: map[string]decimal.Decimal{
		"A":    d("20"),
		"ZERO": d("0"),
	}}
	ledger := lots{
		mkLot("A", "10", "10", "100"),
		mkLot("MISSING", "5", "10", "50"),
		mkLot("ZERO", "1", "10", "10"),
	}

	snap := Snapshot(ledger, src)

	if snap.Priced != 1 || snap.Unpriced != 2 {
		t.Errorf("Expected 1 priced / 2 unpriced, got %d / %d", snap.Priced, snap.Unpriced)
	}
	for _, i := range []int{1, 2} {
		v := snap.Lots[i]
		if v.CurrentNAV.Valid || v.CurrentValue.Valid || v.GainLoss.Valid {
			t.Errorf("Lot %d should have unknown valuation, got %+v", i, v)
		}
	}

	// Cost counts every lot; value and gain only the priced one.
	if !snap.TotalCost.Equal(d("160")) {
		t.Errorf("TotalCost: expected 160, got %s", snap.TotalCost)
	}
	if !snap.TotalValue.Equal(d("200")) {
		t.Errorf("TotalValue: expected 200, got %s", snap.TotalValue)
	}
	if !snap.TotalGainLoss.Equal(d("100")) {
		t.Errorf("TotalGainLoss: expected 100, got %s", snap.TotalGainLoss)
	}
	if !snap.GainPct.Equal(d("62.5")) {
		t.Errorf("GainPct: expected 62.5, got %s", snap.GainPct)
	}
}

func TestSnapshot_EmptyLedger(t *testing.T) {
	snap := Snapshot(lots{}, &MockNAVSource{})

	if !snap.TotalCost.IsZero() || !snap.TotalValue.IsZero() || !snap.GainPct.IsZero() {
		t.Errorf("Expected all-zero totals, got %+v", snap)
	}
	if snap.Lots == nil {
		t.Error("Lots should be an empty slice, not nil")
	}
}

func TestSnapshot_Idempotent(t *testing.T) {
	src := &MockNAVSource{navs: map[string]decimal.Decimal{"A": d("13.37")}}
	ledger := lots{mkLot("A", "3.3333", "12", "40"), mkLot("B", "1", "1", "1")}

	first := Snapshot(ledger, src)
	second := Snapshot(ledger, src)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Snapshots differ:\n%+v\n%+v", first, second)
	}
	// No caching across calls.
	if src.calls["A"] != 2 {
		t.Errorf("Expected a fresh lookup per call, got %d", src.calls["A"])
	}
}

func TestSnapshot_Loss(t *testing.T) {
	src := &MockNAVSource{navs: map[string]decimal.Decimal{"A": d("8.005")}}
	snap := Snapshot(lots{mkLot("A", "10", "10", "100")}, src)

	// 10 * 8.005 = 80.05 ; loss -19.95
	if !snap.TotalGainLoss.Equal(d("-19.95")) {
		t.Errorf("Expected -19.95, got %s", snap.TotalGainLoss)
	}
	if !snap.GainPct.Equal(d("-19.95")) {
		t.Errorf("Expected -19.95%%, got %s", snap.GainPct)
	}
}
