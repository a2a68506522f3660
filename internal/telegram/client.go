package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"mf_tracker/internal/logger"
)

// DefaultBaseURL is the Telegram Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// Sender posts Markdown messages to one chat.
type Sender struct {
	Token   string
	ChatID  string
	BaseURL string
	client  *http.Client
}

// NewSender returns a sender. With an empty token or chat id it is disabled
// and Notify only logs.
func NewSender(token, chatID string, timeout time.Duration) *Sender {
	return &Sender{
		Token:   token,
		ChatID:  chatID,
		BaseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether credentials are configured.
func (s *Sender) Enabled() bool {
	return s.Token != "" && s.ChatID != ""
}

// Notify sends text to the configured chat.
func (s *Sender) Notify(text string) error {
	if !s.Enabled() {
		log.Println("Warning: Telegram credentials missing, skipping notification")
		return nil
	}

	logger.Debugf("Telegram Notify: %s", text)

	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(s.BaseURL, "/"), s.Token)
	payload := map[string]string{
		"chat_id":    s.ChatID,
		"text":       text,
		"parse_mode": "Markdown", // Allows us to use bold/italic in messages
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := s.client.Post(url, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram API error: status %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	return nil
}
