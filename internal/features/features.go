// Package features turns a daily OHLCV window into the feature vector consumed by the
// classifier strategy.
package features

import (
	"fmt"
	"math"
	"sort"

	"github.com/NoCodeNomad/bot/internal/indicators"
	"github.com/NoCodeNomad/bot/internal/models"
)

// Profile selects the moving-average pair. The two pairs correspond to two separately trained
// model families and are never mixed.
type Profile struct {
	Name     string
	ShortSMA int
	LongSMA  int
}

// Known profiles.
var (
	SMA10x30 = Profile{Name: "sma_10_30", ShortSMA: 10, LongSMA: 30}
	SMA10x50 = Profile{Name: "sma_10_50", ShortSMA: 10, LongSMA: 50}
)

// Indicator periods shared by both profiles.
const (
	RSIPeriod       = 14
	MACDFast        = 12
	MACDSlow        = 26
	MACDSignal      = 9
	BollingerPeriod = 20
	BollingerK      = 2.0
)

// Names lists the vector columns in order.
var Names = []string{"sma_short", "sma_long", "rsi", "macd", "macd_signal", "bb_upper", "bb_lower", "volume"}

// Width is the feature vector length.
var Width = len(Names)

// ProfileByName resolves a configured profile name.
func ProfileByName(name string) (Profile, error) {
	switch name {
	case SMA10x30.Name:
		return SMA10x30, nil
	case SMA10x50.Name:
		return SMA10x50, nil
	}
	return Profile{}, fmt.Errorf("unknown feature profile %q", name)
}

// WarmUp returns the number of leading bars left undefined by the slowest indicator.
func (p Profile) WarmUp() int {
	w := p.LongSMA - 1
	if m := MACDSlow + MACDSignal - 2; m > w {
		w = m
	}
	return w
}

// Builder computes feature vectors over a trailing window of daily bars.
type Builder struct {
	Profile Profile
	Window  int
}

// NewBuilder creates a Builder using the last window bars.
func NewBuilder(p Profile, window int) Builder {
	return Builder{Profile: p, Window: window}
}

// Latest sorts bars ascending, trims them to the window, computes every indicator, drops the
// warm-up rows and returns the most recent complete row. It returns models.ErrInsufficientData
// when no complete row remains.
func (b Builder) Latest(bars []models.Bar) ([]float64, error) {
	rows, err := b.Rows(bars)
	if err != nil {
		return nil, err
	}
	return rows[len(rows)-1], nil
}

// Rows returns every complete feature row in chronological order.
func (b Builder) Rows(bars []models.Bar) ([][]float64, error) {
	sorted := make([]models.Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })
	if b.Window > 0 && len(sorted) > b.Window {
		sorted = sorted[len(sorted)-b.Window:]
	}

	closes := make([]float64, len(sorted))
	for i, bar := range sorted {
		closes[i] = bar.Close
	}

	short := indicators.SMA(closes, b.Profile.ShortSMA)
	long := indicators.SMA(closes, b.Profile.LongSMA)
	rsi := indicators.RSI(closes, RSIPeriod)
	macd, signal := indicators.MACD(closes, MACDFast, MACDSlow, MACDSignal)
	_, upper, lower := indicators.Bollinger(closes, BollingerPeriod, BollingerK)

	var rows [][]float64
	for i, bar := range sorted {
		row := []float64{short[i], long[i], rsi[i], macd[i], signal[i], upper[i], lower[i], bar.Volume}
		if hasNaN(row) {
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%d bars, need more than %d for profile %s: %w",
			len(sorted), b.Profile.WarmUp(), b.Profile.Name, models.ErrInsufficientData)
	}
	return rows, nil
}

func hasNaN(row []float64) bool {
	for _, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}
