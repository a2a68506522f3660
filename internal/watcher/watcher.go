package watcher

import (
	"context"
	"log"
	"sync"
	"time"

	"mf_tracker/internal/amfi"
	"mf_tracker/internal/config"
	"mf_tracker/internal/dip"
	"mf_tracker/internal/market"
	"mf_tracker/internal/models"
	"mf_tracker/internal/report"
	"mf_tracker/internal/valuation"

	"github.com/shopspring/decimal"
)

// HeartbeatInterval is the minimum gap between two portfolio summaries.
const HeartbeatInterval = 24 * time.Hour

// Notifier delivers a Markdown message. telegram.Sender implements it.
type Notifier interface {
	Notify(text string) error
}

// Reloader is implemented by listers backed by durable storage that other
// processes may write to, such as *ledger.Ledger.
type Reloader interface {
	Reload() error
}

// DirectoryLoader fetches the fund directory used by /search.
type DirectoryLoader func() (*amfi.Directory, error)

type Watcher struct {
	config   *config.Config
	lots     valuation.Lister
	prices   market.PriceSource
	notifier Notifier
	commands []CommandDoc

	// Funds is optional; without it /search is unavailable.
	Funds DirectoryLoader

	mu            sync.Mutex
	lastSignal    models.Signal // To prevent alert fatigue
	lastHeartbeat time.Time
	directory     *amfi.Directory
	startedAt     time.Time
	now           func() time.Time
}

func New(cfg *config.Config, lots valuation.Lister, prices market.PriceSource, notifier Notifier) *Watcher {
	w := &Watcher{
		config:   cfg,
		lots:     lots,
		prices:   prices,
		notifier: notifier,
		now:      time.Now,
		commands: []CommandDoc{
			{"/ping", "Connectivity check", "/ping"},
			{"/value", "Current portfolio value", "/value"},
			{"/list", "Recorded investments", "/list"},
			{"/dip", "Benchmark drawdown and buy signal", "/dip"},
			{"/search", "Find a fund's scheme code", "/search axis elss"},
			{"/help", "This message", "/help"},
		},
	}
	w.startedAt = w.now()
	return w
}

// Run polls once immediately and then every PollIntervalMins until ctx is
// cancelled.
func (w *Watcher) Run(ctx context.Context) {
	interval := time.Duration(w.config.PollIntervalMins) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}

	w.Poll()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("🛑 Main loop stopping...")
			return
		case <-ticker.C:
			w.Poll()
			nextTick := w.now().In(config.IstLoc).Add(interval)
			log.Printf("Next check scheduled for: %s", nextTick.Format("2006-01-02 15:04:05 MST"))
		}
	}
}

// Poll runs one dip check and, when due, sends the portfolio heartbeat.
func (w *Watcher) Poll() {
	w.checkDip()
	w.checkHeartbeat()
}

func (w *Watcher) evaluateDip() (models.DipObservation, error) {
	closes, err := w.prices.BenchmarkSeries(w.config.BenchmarkSymbol, w.config.BenchmarkDays)
	if err != nil {
		return models.DipObservation{}, err
	}
	ev := dip.Evaluator{
		Window:    w.config.DipWindowDays,
		Threshold: decimal.NewFromFloat(w.config.DipThresholdPct),
	}
	return ev.Evaluate(closes)
}

// checkDip alerts only on the edge into BUY. A failed evaluation leaves the
// last signal untouched so a flaky feed cannot re-trigger the alert.
func (w *Watcher) checkDip() {
	obs, err := w.evaluateDip()
	if err != nil {
		log.Printf("Dip check failed for %s: %v", w.config.BenchmarkSymbol, err)
		return
	}
	log.Printf("Dip check %s: close %s, peak %s, drawdown %s%% -> %s",
		w.config.BenchmarkSymbol, obs.LatestClose.StringFixed(2), obs.PeakClose.StringFixed(2),
		obs.DrawdownPct.StringFixed(2), obs.Signal)

	w.mu.Lock()
	previous := w.lastSignal
	w.lastSignal = obs.Signal
	w.mu.Unlock()

	if obs.Signal != models.SignalBuy || previous == models.SignalBuy {
		return
	}
	if err := w.notifier.Notify(report.DipAlert(w.config.BenchmarkSymbol, obs)); err != nil {
		log.Printf("Failed to send dip alert: %v", err)
	}
}

func (w *Watcher) checkHeartbeat() {
	now := w.now()

	w.mu.Lock()
	due := w.lastHeartbeat.IsZero() || now.Sub(w.lastHeartbeat) >= HeartbeatInterval
	w.mu.Unlock()

	if !due {
		return
	}
	lots := w.currentLots()
	if len(lots) == 0 {
		log.Println("Heartbeat skipped: ledger is empty")
		return
	}

	w.mu.Lock()
	w.lastHeartbeat = now
	w.mu.Unlock()

	snap := valuation.Snapshot(staticLots(lots), w.prices)
	if err := w.notifier.Notify(report.Summary(snap, w.config.Currency)); err != nil {
		log.Printf("Failed to send heartbeat: %v", err)
	}
}

// currentLots re-reads the ledger so lots added by other processes show up.
// When the reload fails the last known content is used.
func (w *Watcher) currentLots() []models.Lot {
	if r, ok := w.lots.(Reloader); ok {
		if err := r.Reload(); err != nil {
			log.Printf("Ledger reload failed, using last known lots: %v", err)
		}
	}
	return w.lots.List()
}

// staticLots serves a list already read by currentLots.
type staticLots []models.Lot

func (s staticLots) List() []models.Lot { return s }

// LastSignal is the signal of the most recent successful dip check, or ""
// before the first one.
func (w *Watcher) LastSignal() models.Signal {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSignal
}
