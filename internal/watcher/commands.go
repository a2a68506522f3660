package watcher

import (
	"fmt"
	"log"
	"strings"
	"time"

	"mf_tracker/internal/amfi"
	"mf_tracker/internal/ledger"
	"mf_tracker/internal/models"
	"mf_tracker/internal/report"
	"mf_tracker/internal/valuation"
)

type CommandDoc struct {
	Name        string
	Description string
	Example     string
}

// HandleCommand answers an inbound chat command. Every command is read-only.
func (w *Watcher) HandleCommand(cmd string) string {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return ""
	}

	// Group chats send "/dip@botname".
	name, _, _ := strings.Cut(strings.ToLower(parts[0]), "@")

	switch name {
	case "/ping":
		return fmt.Sprintf("Pong 🏓 (up %s)", w.now().Sub(w.startedAt).Round(time.Second))
	case "/value", "/status":
		return w.getValue()
	case "/list":
		return w.getList()
	case "/dip":
		return w.getDip()
	case "/search":
		if len(parts) < 2 {
			return "Usage: /search <query>"
		}
		return w.searchFunds(strings.Join(parts[1:], " "))
	case "/help", "/start":
		return w.getHelp()
	default:
		return "Unknown command. Try /value, /list, /dip, /search or /help."
	}
}

func (w *Watcher) getValue() string {
	lots := w.currentLots()
	if len(lots) == 0 {
		return "📭 No investments recorded yet."
	}
	return report.Summary(valuation.Snapshot(staticLots(lots), w.prices), w.config.Currency)
}

func (w *Watcher) getList() string {
	lots := w.currentLots()
	if len(lots) == 0 {
		return "📭 No investments recorded yet."
	}

	var sb strings.Builder
	sb.WriteString("📒 *INVESTMENTS*\n")
	for i, lot := range lots {
		name := lot.FundLabel
		if name == "" {
			name = lot.FundID
		}
		sb.WriteString(fmt.Sprintf("%d. %s %s: %s u @ %s (%s)\n",
			i,
			lot.Date.Format(models.DateFormat),
			report.EscapeChat(name),
			lot.Units.StringFixed(ledger.UnitsPlaces),
			lot.PurchaseNAV.String(),
			report.Money(lot.Cost, w.config.Currency),
		))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (w *Watcher) getDip() string {
	obs, err := w.evaluateDip()
	if err != nil {
		log.Printf("/dip failed: %v", err)
		return fmt.Sprintf("⚠️ Dip check unavailable for %s: %s",
			report.EscapeChat(w.config.BenchmarkSymbol), report.EscapeChat(err.Error()))
	}
	return report.DipStatus(w.config.BenchmarkSymbol, obs)
}

func (w *Watcher) searchFunds(query string) string {
	dir, err := w.loadDirectory()
	if err != nil {
		log.Printf("/search failed: %v", err)
		return "⚠️ Fund directory unavailable."
	}

	funds := dir.Search(query)
	if len(funds) == 0 {
		return fmt.Sprintf("No funds match '%s'.", report.EscapeChat(query))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔎 *Results* for '%s'\n", report.EscapeChat(query)))
	for _, f := range funds {
		sb.WriteString(fmt.Sprintf("`%s` %s (NAV %s on %s)\n", f.Code, report.EscapeChat(f.Name), f.NAV.String(), f.Date))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// loadDirectory fetches the fund directory once per process.
func (w *Watcher) loadDirectory() (*amfi.Directory, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.directory != nil {
		return w.directory, nil
	}
	if w.Funds == nil {
		return nil, fmt.Errorf("fund search is not configured")
	}
	dir, err := w.Funds()
	if err != nil {
		return nil, err
	}
	w.directory = dir
	return dir, nil
}

func (w *Watcher) getHelp() string {
	var sb strings.Builder
	sb.WriteString("🤖 *MF TRACKER COMMANDS*\n\n")
	for _, cmd := range w.commands {
		sb.WriteString(fmt.Sprintf("🔹 *%s*\n%s\n`%s`\n\n", cmd.Name, cmd.Description, cmd.Example))
	}
	return strings.TrimRight(sb.String(), "\n")
}
