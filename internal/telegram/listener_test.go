package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestListener_DispatchesAuthorizedCommands(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var replies []string
	calls := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			mu.Lock()
			calls++
			n := calls
			mu.Unlock()
			if n == 1 {
				w.Write([]byte(`{"ok":true,"result":[
					{"update_id":10,"message":{"text":"/dip","chat":{"id":99},"from":{"username":"mallory"}}},
					{"update_id":11,"message":{"text":"hello","chat":{"id":42}}},
					{"update_id":12,"message":{"text":" /ping ","chat":{"id":42}}}
				]}`))
				return
			}
			if got := r.URL.Query().Get("offset"); got != "13" {
				t.Errorf("Expected offset 13 after first batch, got %s", got)
			}
			cancel()
			w.Write([]byte(`{"ok":true,"result":[]}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var payload map[string]string
			json.NewDecoder(r.Body).Decode(&payload)
			mu.Lock()
			replies = append(replies, payload["text"])
			mu.Unlock()
			w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer srv.Close()

	sender := NewSender("tok", "42", 5*time.Second)
	sender.BaseURL = srv.URL
	l := NewListener(sender)
	l.RetryDelay = 10 * time.Millisecond

	var handled []string
	l.Run(ctx, func(cmd string) string {
		handled = append(handled, cmd)
		return "Pong"
	})

	if len(handled) != 1 || handled[0] != "/ping" {
		t.Errorf("Expected only /ping to be handled, got %v", handled)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(replies) != 1 || replies[0] != "Pong" {
		t.Errorf("Expected one reply, got %v", replies)
	}
}

func TestListener_DisabledWithoutCredentials(t *testing.T) {
	l := NewListener(NewSender("", "", time.Second))
	done := make(chan struct{})
	go func() {
		l.Run(context.Background(), func(string) string { return "" })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run should return immediately when disabled")
	}
}
