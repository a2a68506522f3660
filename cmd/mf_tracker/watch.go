package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"mf_tracker/internal/telegram"
	"mf_tracker/internal/watcher"

	"github.com/google/subcommands"
)

// watchCmd runs the dip watcher and the Telegram command listener until
// interrupted.
type watchCmd struct {
	noListen bool
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "poll the dip signal and send Telegram alerts" }
func (*watchCmd) Usage() string {
	return `mf_tracker watch [-no-listen]

  Checks the benchmark every POLL_INTERVAL_MINS and sends a Telegram alert
  when the signal turns to BUY, plus a daily portfolio summary.
  Unless -no-listen is set, it also answers /value, /list, /dip and /search
  from TELEGRAM_CHAT_ID.
`
}

func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.noListen, "no-listen", false, "Do not answer Telegram commands")
}

func (c *watchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if err := a.cfg.Validate(); err != nil {
		log.Printf("CRITICAL: %v", err)
		return subcommands.ExitFailure
	}

	// Create a context for graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sender := telegram.NewSender(a.cfg.TelegramBotToken, a.cfg.TelegramChatID, a.cfg.HTTPTimeout())
	w := watcher.New(a.cfg, a.ledger, a.prices(), sender)
	w.Funds = a.directory

	if !c.noListen {
		go telegram.NewListener(sender).Run(ctx, w.HandleCommand)
	}

	// Setup Signal Handling (Graceful Shutdown)
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	go func() {
		select {
		case <-sig:
			log.Println("⚠️ Watcher Shutting Down: System signal received.")
			cancel()
		case <-ctx.Done():
		}
	}()

	log.Printf("MF Tracker %s watching %s (%d lots in %s)",
		a.cfg.Version, a.cfg.BenchmarkSymbol, a.ledger.Len(), a.cfg.LedgerPath)
	log.Printf("Polling Interval: %d mins", a.cfg.PollIntervalMins)

	w.Run(ctx)
	return subcommands.ExitSuccess
}
