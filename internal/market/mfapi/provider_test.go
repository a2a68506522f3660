package mfapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/mf/120503", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"meta":{"scheme_name":"Axis ELSS"},"data":[{"date":"17-10-2026","nav":"1,234.5670"},{"date":"16-10-2026","nav":"1200.00"}],"status":"SUCCESS"}`))
	})
	mux.HandleFunc("/mf/empty", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"meta":{},"data":[],"status":"SUCCESS"}`))
	})
	mux.HandleFunc("/mf/zero", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"date":"17-10-2026","nav":"0.0000"}]}`))
	})
	mux.HandleFunc("/mf/garbage", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"date":"17-10-2026","nav":"N.A."}]}`))
	})
	mux.HandleFunc("/mf/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLatestNAV(t *testing.T) {
	srv := newTestServer(t)
	p := NewProvider(srv.URL, 5*time.Second)

	nav, ok := p.LatestNAV("120503")
	if !ok {
		t.Fatal("Expected NAV to be available")
	}
	if !nav.Equal(decimal.RequireFromString("1234.567")) {
		t.Errorf("Expected 1234.567, got %s", nav)
	}
}

func TestLatestNAV_Unavailable(t *testing.T) {
	srv := newTestServer(t)
	p := NewProvider(srv.URL, 5*time.Second)

	for _, code := range []string{"empty", "zero", "garbage", "broken", "missing", ""} {
		nav, ok := p.LatestNAV(code)
		if ok {
			t.Errorf("%q: expected unavailable, got %s", code, nav)
		}
		if !nav.IsZero() {
			t.Errorf("%q: unavailable NAV should carry zero value, got %s", code, nav)
		}
	}
}

func TestLatestNAV_ServerDown(t *testing.T) {
	srv := newTestServer(t)
	addr := srv.URL
	srv.Close()

	p := NewProvider(addr, time.Second)
	if _, ok := p.LatestNAV("120503"); ok {
		t.Error("Expected unavailable when the server is down")
	}
}
