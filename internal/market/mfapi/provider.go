// Package mfapi reads mutual fund NAVs from the public mfapi.in API.
package mfapi

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mf_tracker/internal/market"

	"github.com/shopspring/decimal"
)

// DefaultBaseURL is the production endpoint.
const DefaultBaseURL = "https://api.mfapi.in"

// Provider implements market.NAVSource.
type Provider struct {
	BaseURL string
	client  *http.Client
}

// Ensure Provider implements the interface
var _ market.NAVSource = (*Provider)(nil)

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

// schemeResponse is the subset of GET /mf/{code} we read.
//
//	{"meta": {...}, "data": [{"date": "17-10-2026", "nav": "1,234.5670"}, ...], "status": "SUCCESS"}
//
// data is ordered newest first.
type schemeResponse struct {
	Meta struct {
		SchemeName string `json:"scheme_name"`
	} `json:"meta"`
	Data []struct {
		Date string `json:"date"`
		NAV  string `json:"nav"`
	} `json:"data"`
	Status string `json:"status"`
}

// LatestNAV returns the most recent NAV of the scheme code fundID.
// Any failure is logged and reported as unavailable.
func (p *Provider) LatestNAV(fundID string) (decimal.Decimal, bool) {
	nav, err := p.latestNAV(fundID)
	if err != nil {
		log.Printf("Warning: NAV unavailable for %s: %v", fundID, err)
		return decimal.Zero, false
	}
	return nav, true
}

func (p *Provider) latestNAV(fundID string) (decimal.Decimal, error) {
	if strings.TrimSpace(fundID) == "" {
		return decimal.Zero, fmt.Errorf("empty fund id")
	}

	addr := fmt.Sprintf("%s/mf/%s", p.BaseURL, url.PathEscape(fundID))
	var content schemeResponse
	if err := market.GetJSON(p.client, addr, &content); err != nil {
		return decimal.Zero, err
	}
	if len(content.Data) == 0 {
		return decimal.Zero, fmt.Errorf("no NAV history (status %q)", content.Status)
	}

	raw := strings.ReplaceAll(strings.TrimSpace(content.Data[0].NAV), ",", "")
	nav, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("bad nav %q: %w", content.Data[0].NAV, err)
	}
	if !nav.IsPositive() {
		return decimal.Zero, fmt.Errorf("non-positive nav %s", nav)
	}
	return nav, nil
}
