// Package models provides the data structures shared by the pricing, strategy, ledger and
// storage layers of the trading bot.
package models

import (
	"errors"
	"time"
)

// ErrNoQuoteAvailable is returned when every price source failed for a ticker.
var ErrNoQuoteAvailable = errors.New("no quote available")

// ErrInsufficientData is returned when a series has too few usable points.
var ErrInsufficientData = errors.New("insufficient data")

// Position is the held quantity of a ticker and its weighted average acquisition price.
// A zero Quantity always carries a zero AvgPrice.
type Position struct {
	Quantity float64 `json:"quantity"`
	AvgPrice float64 `json:"avg_price"`
}

// IsOpen reports whether any shares are held.
func (p Position) IsOpen() bool {
	return p.Quantity > 0
}

// MarketValue returns the position value marked at price.
func (p Position) MarketValue(price float64) float64 {
	if p.Quantity <= 0 || price <= 0 {
		return 0
	}
	return p.Quantity * price
}

// Quote is a resolved price for a ticker. PricePrev is only meaningful when HasPrev is set.
type Quote struct {
	Ticker    string    `json:"ticker"`
	PriceNow  float64   `json:"price_now"`
	PricePrev float64   `json:"price_prev,omitempty"`
	HasPrev   bool      `json:"has_prev"`
	At        time.Time `json:"at,omitempty"`
}

// PctChange returns the fractional change from PricePrev to PriceNow, or 0 without history.
func (q Quote) PctChange() float64 {
	if !q.HasPrev || q.PricePrev == 0 {
		return 0
	}
	return (q.PriceNow - q.PricePrev) / q.PricePrev
}

// Bar is a single OHLCV interval.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}
