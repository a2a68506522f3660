package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Update represents a Telegram Update object (partial schema)
type Update struct {
	UpdateID int `json:"update_id"`
	Message  struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		From struct {
			Username string `json:"username"`
		} `json:"from"`
	} `json:"message"`
}

type UpdateResponse struct {
	Ok          bool     `json:"ok"`
	Result      []Update `json:"result"`
	Description string   `json:"description"`
	ErrorCode   int      `json:"error_code"`
}

// CommandHandler maps a command line like "/dip" to a reply.
type CommandHandler func(command string) string

// Listener long-polls getUpdates and answers commands from one chat.
type Listener struct {
	sender      *Sender
	PollTimeout time.Duration
	RetryDelay  time.Duration
	client      *http.Client
}

// NewListener returns a listener that replies through sender and shares its
// credentials.
func NewListener(sender *Sender) *Listener {
	return &Listener{
		sender:      sender,
		PollTimeout: 60 * time.Second,
		RetryDelay:  5 * time.Second,
		// The long poll holds the request open for PollTimeout.
		client: &http.Client{Timeout: 70 * time.Second},
	}
}

// Run blocks until ctx is cancelled.
func (l *Listener) Run(ctx context.Context, handler CommandHandler) {
	if !l.sender.Enabled() {
		log.Println("Telegram Listener: Credentials missing, disabled.")
		return
	}
	authChatID, err := strconv.ParseInt(l.sender.ChatID, 10, 64)
	if err != nil {
		log.Printf("Telegram Listener: invalid chat id %q, disabled.", l.sender.ChatID)
		return
	}

	log.Println("Telegram Listener: Started")
	offset := 0
	for ctx.Err() == nil {
		updates, err := l.getUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Printf("Telegram Listener Error: %v", err)
			l.sleep(ctx)
			continue
		}
		for _, update := range updates {
			offset = update.UpdateID + 1
			l.dispatch(update, authChatID, handler)
		}
	}
	log.Println("Telegram Listener: Stopped")
}

func (l *Listener) dispatch(update Update, authChatID int64, handler CommandHandler) {
	if update.Message.Chat.ID != authChatID {
		// No reply to unknown chats.
		log.Printf("⚠️ Unauthorized command from %s (chat %d): %s",
			update.Message.From.Username, update.Message.Chat.ID, update.Message.Text)
		return
	}

	text := strings.TrimSpace(update.Message.Text)
	if !strings.HasPrefix(text, "/") {
		return
	}
	log.Printf("Command received: %s", text)
	reply := handler(text)
	if reply == "" {
		return
	}
	if err := l.sender.Notify(reply); err != nil {
		log.Printf("Telegram reply failed: %v", err)
	}
}

func (l *Listener) getUpdates(ctx context.Context, offset int) ([]Update, error) {
	url := fmt.Sprintf("%s/bot%s/getUpdates?offset=%d&timeout=%d",
		strings.TrimRight(l.sender.BaseURL, "/"), l.sender.Token, offset, int(l.PollTimeout.Seconds()))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result UpdateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}
	if !result.Ok {
		return nil, fmt.Errorf("telegram API error: %s (code %d)", result.Description, result.ErrorCode)
	}
	return result.Result, nil
}

func (l *Listener) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(l.RetryDelay):
	}
}
