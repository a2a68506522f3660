package market

import (
	"errors"

	"mf_tracker/internal/models"

	"github.com/shopspring/decimal"
)

// ErrUnavailable is returned (wrapped) when a benchmark series cannot be produced.
var ErrUnavailable = errors.New("price data unavailable")

// NAVSource looks up the latest net asset value of a fund.
//
// A missing price is a normal state, not an error: implementations log
// transport failures and report ok=false. They never return a zero or
// negative NAV with ok=true.
type NAVSource interface {
	LatestNAV(fundID string) (nav decimal.Decimal, ok bool)
}

// BenchmarkSource returns the recent daily closes of an index, oldest first.
type BenchmarkSource interface {
	BenchmarkSeries(symbol string, days int) ([]models.Close, error)
}

// PriceSource is everything the core reads from the market.
type PriceSource interface {
	NAVSource
	BenchmarkSource
}

// Sources combines independent NAV and benchmark providers.
type Sources struct {
	NAV       NAVSource
	Benchmark BenchmarkSource
}

// Ensure Sources implements the interface
var _ PriceSource = Sources{}

func (s Sources) LatestNAV(fundID string) (decimal.Decimal, bool) {
	if s.NAV == nil {
		return decimal.Zero, false
	}
	return s.NAV.LatestNAV(fundID)
}

func (s Sources) BenchmarkSeries(symbol string, days int) ([]models.Close, error) {
	if s.Benchmark == nil {
		return nil, ErrUnavailable
	}
	return s.Benchmark.BenchmarkSeries(symbol, days)
}
