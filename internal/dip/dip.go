// Package dip turns a benchmark close series into a BUY/WAIT signal based on
// the drawdown of the latest close from its recent peak.
package dip

import (
	"errors"
	"fmt"
	"sort"

	"mf_tracker/internal/models"

	"github.com/shopspring/decimal"
)

// DefaultWindow is the number of most recent closes scanned for the peak.
const DefaultWindow = 30

var (
	// BuyThreshold is the drawdown, in percent, at or above which the signal is BUY.
	BuyThreshold = decimal.NewFromInt(5)

	hundred = decimal.NewFromInt(100)
)

var (
	ErrInsufficientData = errors.New("insufficient benchmark data")
	ErrInvalidPeak      = errors.New("benchmark peak is not positive")
)

// Evaluate computes the drawdown of the latest close from the highest close
// of the last windowDays entries, using the fixed BuyThreshold.
// windowDays <= 0 means DefaultWindow.
func Evaluate(closes []models.Close, windowDays int) (models.DipObservation, error) {
	return Evaluator{Window: windowDays, Threshold: BuyThreshold}.Evaluate(closes)
}

// Evaluator is Evaluate with a configurable threshold.
type Evaluator struct {
	Window    int
	Threshold decimal.Decimal
}

// Evaluate is a pure function of closes; the input slice is not modified.
func (e Evaluator) Evaluate(closes []models.Close) (models.DipObservation, error) {
	if len(closes) == 0 {
		return models.DipObservation{}, ErrInsufficientData
	}

	window := e.Window
	if window <= 0 {
		window = DefaultWindow
	}
	threshold := e.Threshold
	if !threshold.IsPositive() {
		threshold = BuyThreshold
	}

	series := make([]models.Close, len(closes))
	copy(series, closes)
	sort.SliceStable(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })

	if len(series) > window {
		series = series[len(series)-window:]
	}

	latest := series[len(series)-1]
	peak := series[0].Price
	for _, c := range series[1:] {
		if c.Price.GreaterThan(peak) {
			peak = c.Price
		}
	}
	if !peak.IsPositive() {
		return models.DipObservation{}, fmt.Errorf("%w: %s", ErrInvalidPeak, peak)
	}

	drawdown := peak.Sub(latest.Price).Div(peak).Mul(hundred).Round(2)

	signal := models.SignalWait
	if drawdown.GreaterThanOrEqual(threshold) {
		signal = models.SignalBuy
	}

	return models.DipObservation{
		LatestDate:  latest.Date,
		LatestClose: latest.Price,
		PeakClose:   peak,
		DrawdownPct: drawdown,
		Signal:      signal,
		Window:      len(series),
		Threshold:   threshold,
	}, nil
}
