package watcher

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mf_tracker/internal/config"
	"mf_tracker/internal/ledger"
	"mf_tracker/internal/models"
	"mf_tracker/internal/storage"

	"github.com/shopspring/decimal"
)

// fakeLots implements valuation.Lister
type fakeLots struct {
	lots []models.Lot
}

func (f *fakeLots) List() []models.Lot { return f.lots }

// fakePrices implements market.PriceSource
type fakePrices struct {
	navs       map[string]decimal.Decimal
	closes     []models.Close
	err        error
	lastSymbol string
	lastDays   int
}

func (f *fakePrices) LatestNAV(fundID string) (decimal.Decimal, bool) {
	nav, ok := f.navs[fundID]
	return nav, ok
}

func (f *fakePrices) BenchmarkSeries(symbol string, days int) ([]models.Close, error) {
	f.lastSymbol, f.lastDays = symbol, days
	if f.err != nil {
		return nil, f.err
	}
	return f.closes, nil
}

type fakeNotifier struct {
	msgs []string
	err  error
}

func (f *fakeNotifier) Notify(text string) error {
	f.msgs = append(f.msgs, text)
	return f.err
}

func (f *fakeNotifier) count(substr string) int {
	n := 0
	for _, m := range f.msgs {
		if strings.Contains(m, substr) {
			n++
		}
	}
	return n
}

func testConfig() *config.Config {
	return &config.Config{
		Currency:         "INR",
		BenchmarkSymbol:  "^NSEI",
		BenchmarkDays:    60,
		DipWindowDays:    30,
		DipThresholdPct:  5.0,
		PollIntervalMins: 60,
	}
}

// series builds consecutive daily closes ending at the last price.
func series(prices ...float64) []models.Close {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Close, len(prices))
	for i, p := range prices {
		out[i] = models.Close{Date: start.AddDate(0, 0, i), Price: decimal.NewFromFloat(p)}
	}
	return out
}

func TestPoll_AlertsOnlyOnTransitionToBuy(t *testing.T) {
	prices := &fakePrices{}
	notifier := &fakeNotifier{}
	w := New(testConfig(), &fakeLots{}, prices, notifier)

	steps := []struct {
		closes     []models.Close
		wantSignal models.Signal
		wantAlerts int
	}{
		{series(100, 98), models.SignalWait, 0},
		{series(100, 94), models.SignalBuy, 1},
		{series(100, 93), models.SignalBuy, 1}, // still BUY, no repeat
		{series(100, 99), models.SignalWait, 1},
		{series(100, 95), models.SignalBuy, 2}, // exactly 5% is BUY
	}
	for i, step := range steps {
		prices.closes = step.closes
		w.Poll()
		if got := w.LastSignal(); got != step.wantSignal {
			t.Errorf("Step %d: signal = %s, want %s", i, got, step.wantSignal)
		}
		if got := notifier.count("DIP ALERT"); got != step.wantAlerts {
			t.Errorf("Step %d: %d alerts, want %d", i, got, step.wantAlerts)
		}
	}

	if prices.lastSymbol != "^NSEI" || prices.lastDays != 60 {
		t.Errorf("Unexpected benchmark request %s/%d", prices.lastSymbol, prices.lastDays)
	}
}

func TestPoll_FirstObservationBuyAlerts(t *testing.T) {
	notifier := &fakeNotifier{}
	w := New(testConfig(), &fakeLots{}, &fakePrices{closes: series(100, 90)}, notifier)
	w.Poll()
	if notifier.count("DIP ALERT") != 1 {
		t.Errorf("Expected an alert when the first observation is BUY, got %v", notifier.msgs)
	}
}

func TestPoll_FailureKeepsLastSignal(t *testing.T) {
	prices := &fakePrices{closes: series(100, 94)}
	notifier := &fakeNotifier{}
	w := New(testConfig(), &fakeLots{}, prices, notifier)

	w.Poll()
	prices.err = errors.New("feed down")
	w.Poll()
	if w.LastSignal() != models.SignalBuy {
		t.Errorf("Failed check should keep BUY, got %s", w.LastSignal())
	}
	prices.err = nil
	w.Poll()

	if got := notifier.count("DIP ALERT"); got != 1 {
		t.Errorf("Expected a single alert across the outage, got %d", got)
	}
}

func TestPoll_HeartbeatOncePerDay(t *testing.T) {
	lots := &fakeLots{lots: []models.Lot{{
		Date:        time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		FundID:      "120503",
		Units:       decimal.RequireFromString("10"),
		PurchaseNAV: decimal.RequireFromString("90"),
		Cost:        decimal.RequireFromString("900"),
	}}}
	prices := &fakePrices{
		navs: map[string]decimal.Decimal{"120503": decimal.RequireFromString("99")},
		err:  errors.New("no benchmark"),
	}
	notifier := &fakeNotifier{}
	w := New(testConfig(), lots, prices, notifier)

	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	w.Poll()
	if notifier.count("PORTFOLIO") != 1 {
		t.Fatalf("Expected a heartbeat on the first poll, got %v", notifier.msgs)
	}
	if !strings.Contains(notifier.msgs[0], "₹990.00") || !strings.Contains(notifier.msgs[0], "+10.00%") {
		t.Errorf("Unexpected heartbeat %q", notifier.msgs[0])
	}

	now = now.Add(23 * time.Hour)
	w.Poll()
	if notifier.count("PORTFOLIO") != 1 {
		t.Errorf("Heartbeat repeated within 24h")
	}

	now = now.Add(time.Hour)
	w.Poll()
	if notifier.count("PORTFOLIO") != 2 {
		t.Errorf("Expected a second heartbeat after 24h, got %d", notifier.count("PORTFOLIO"))
	}
}

func TestPoll_EmptyLedgerSkipsHeartbeat(t *testing.T) {
	notifier := &fakeNotifier{}
	w := New(testConfig(), &fakeLots{}, &fakePrices{err: errors.New("down")}, notifier)
	w.Poll()
	if len(notifier.msgs) != 0 {
		t.Errorf("Expected no messages, got %v", notifier.msgs)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	prices := &fakePrices{closes: series(100, 94)}
	notifier := &fakeNotifier{}
	w := New(testConfig(), &fakeLots{}, prices, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	if notifier.count("DIP ALERT") != 1 {
		t.Errorf("Run should poll once immediately, got %v", notifier.msgs)
	}
}

func TestWatcher_SeesLotsWrittenByAnotherLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio.csv")
	daemon, err := ledger.New(storage.NewCSVStore(path))
	if err != nil {
		t.Fatalf("Opening daemon ledger failed: %v", err)
	}
	prices := &fakePrices{
		navs: map[string]decimal.Decimal{"120503": decimal.RequireFromString("110")},
		err:  errors.New("no benchmark"),
	}
	notifier := &fakeNotifier{}
	w := New(testConfig(), daemon, prices, notifier)

	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	// Empty ledger at start: no heartbeat, and the slot is not used up.
	w.Poll()
	if len(notifier.msgs) != 0 {
		t.Fatalf("Expected no messages for an empty ledger, got %v", notifier.msgs)
	}

	cli, err := ledger.New(storage.NewCSVStore(path))
	if err != nil {
		t.Fatalf("Opening CLI ledger failed: %v", err)
	}
	if _, err := cli.Append(models.Lot{
		Date:        time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		FundID:      "120503",
		FundLabel:   "Axis ELSS",
		Units:       decimal.RequireFromString("10"),
		PurchaseNAV: decimal.RequireFromString("100"),
	}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if got := w.HandleCommand("/list"); !strings.Contains(got, "Axis ELSS") {
		t.Errorf("/list does not show the lot added by the other ledger: %q", got)
	}
	if got := w.HandleCommand("/value"); !strings.Contains(got, "Value: ₹1,100.00") {
		t.Errorf("/value does not include the new lot: %q", got)
	}

	now = now.Add(time.Hour)
	w.Poll()
	if notifier.count("PORTFOLIO") != 1 {
		t.Errorf("Expected a heartbeat once the ledger has lots, got %v", notifier.msgs)
	}
}
