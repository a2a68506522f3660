package alpaca

import (
	"fmt"
	"time"

	"mf_tracker/internal/market"
	"mf_tracker/internal/models"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
)

// barsClient is the slice of the Alpaca market-data client we use.
type barsClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// Provider serves benchmark series from Alpaca daily bars (e.g. SPY).
type Provider struct {
	mdClient barsClient
	now      func() time.Time
}

// Ensure Provider implements the interface
var _ market.BenchmarkSource = (*Provider)(nil)

// NewProvider returns a new Alpaca provider.
// Credentials are read by the SDK from APCA_API_KEY_ID / APCA_API_SECRET_KEY.
func NewProvider() *Provider {
	return &Provider{
		mdClient: marketdata.NewClient(marketdata.ClientOpts{}),
		now:      time.Now,
	}
}

// BenchmarkSeries returns up to the last `days` daily closes of symbol, oldest first.
func (p *Provider) BenchmarkSeries(symbol string, days int) ([]models.Close, error) {
	if days <= 0 {
		return nil, fmt.Errorf("%w: invalid day count %d", market.ErrUnavailable, days)
	}

	// Trading days are ~5/7 of calendar days; add a buffer for holidays.
	start := p.now().AddDate(0, 0, -(days*7/5 + 7))
	bars, err := p.mdClient.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		Feed:      marketdata.IEX,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: alpaca bars for %s: %v", market.ErrUnavailable, symbol, err)
	}

	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}

	result := make([]models.Close, 0, len(bars))
	for _, b := range bars {
		if b.Close <= 0 {
			continue
		}
		y, m, d := b.Timestamp.UTC().Date()
		result = append(result, models.Close{
			Date:  time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
			Price: decimal.NewFromFloat(b.Close),
		})
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%w: no bars for %s", market.ErrUnavailable, symbol)
	}
	return result, nil
}
