package yahoo

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mf_tracker/internal/market"
)

const chartJSON = `{"chart":{"result":[{"meta":{"symbol":"^NSEI","currency":"INR"},
"timestamp":[1715140800,1715227200,1715313600,1715572800],
"indicators":{"quote":[{"close":[22302.5,null,22055.2,22104.05]}]}}],"error":null}}`

func TestBenchmarkSeries(t *testing.T) {
	var gotPath, gotQuery, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(chartJSON))
	}))
	defer srv.Close()

	p := NewProvider(srv.URL, 5*time.Second)
	closes, err := p.BenchmarkSeries(NiftySymbol, 60)
	if err != nil {
		t.Fatalf("BenchmarkSeries failed: %v", err)
	}

	if gotPath != "/v8/finance/chart/^NSEI" {
		t.Errorf("Unexpected path %q", gotPath)
	}
	if gotQuery != "range=60d&interval=1d" {
		t.Errorf("Unexpected query %q", gotQuery)
	}
	if gotUA != market.UserAgent {
		t.Errorf("Expected user agent to be set, got %q", gotUA)
	}

	// The null close is skipped.
	if len(closes) != 3 {
		t.Fatalf("Expected 3 closes, got %d", len(closes))
	}
	if closes[0].Date.Format("2006-01-02") != "2024-05-08" {
		t.Errorf("Unexpected first date %s", closes[0].Date)
	}
	if closes[2].Price.String() != "22104.05" {
		t.Errorf("Unexpected last close %s", closes[2].Price)
	}
}

func TestBenchmarkSeries_Unavailable(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http error", http.StatusNotFound, `{}`},
		{"api error", http.StatusOK, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`},
		{"empty result", http.StatusOK, `{"chart":{"result":[],"error":null}}`},
		{"all null", http.StatusOK, `{"chart":{"result":[{"timestamp":[1715140800],"indicators":{"quote":[{"close":[null]}]}}]}}`},
		{"bad json", http.StatusOK, `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := NewProvider(srv.URL, 5*time.Second)
			if _, err := p.BenchmarkSeries(NiftySymbol, 60); !errors.Is(err, market.ErrUnavailable) {
				t.Errorf("Expected ErrUnavailable, got %v", err)
			}
		})
	}
}
