// Package yahoo reads daily index closes from the Yahoo Finance chart API.
package yahoo

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mf_tracker/internal/market"
	"mf_tracker/internal/models"

	"github.com/shopspring/decimal"
)

// DefaultBaseURL is the production endpoint.
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// NiftySymbol is the Nifty 50 index.
const NiftySymbol = "^NSEI"

// Provider implements market.BenchmarkSource.
type Provider struct {
	BaseURL string
	client  *http.Client
}

// Ensure Provider implements the interface
var _ market.BenchmarkSource = (*Provider)(nil)

// NewProvider returns a provider for baseURL (DefaultBaseURL when empty).
func NewProvider(baseURL string, timeout time.Duration) *Provider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Provider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  market.NewHTTPClient(timeout),
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol   string `json:"symbol"`
				Currency string `json:"currency"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// BenchmarkSeries returns the daily closes of symbol over the last `days`
// calendar days, oldest first. Sessions without a close are skipped.
func (p *Provider) BenchmarkSeries(symbol string, days int) ([]models.Close, error) {
	if days <= 0 {
		return nil, fmt.Errorf("%w: invalid day count %d", market.ErrUnavailable, days)
	}

	addr := fmt.Sprintf("%s/v8/finance/chart/%s?range=%dd&interval=1d", p.BaseURL, url.PathEscape(symbol), days)
	var content chartResponse
	if err := market.GetJSON(p.client, addr, &content); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", market.ErrUnavailable, symbol, err)
	}
	if content.Chart.Error != nil {
		return nil, fmt.Errorf("%w: %s: %s", market.ErrUnavailable, symbol, content.Chart.Error.Description)
	}
	if len(content.Chart.Result) == 0 || len(content.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: %s: empty chart", market.ErrUnavailable, symbol)
	}

	res := content.Chart.Result[0]
	closes := res.Indicators.Quote[0].Close
	var result []models.Close
	for i, ts := range res.Timestamp {
		if i >= len(closes) || closes[i] == nil || *closes[i] <= 0 {
			continue
		}
		y, m, d := time.Unix(ts, 0).UTC().Date()
		result = append(result, models.Close{
			Date:  time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
			Price: decimal.NewFromFloat(*closes[i]),
		})
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%w: %s: no closes", market.ErrUnavailable, symbol)
	}
	return result, nil
}
