// Package provider contains the HTTP clients for market data, news and economic calendar
// providers, plus a circuit-breaker decorator shared by all of them.
package provider

import (
	"context"
	"errors"
	"time"

	"github.com/NoCodeNomad/bot/internal/models"
)

// ErrMissingAPIKey is returned by clients constructed without credentials.
var ErrMissingAPIKey = errors.New("provider api key not configured")

// ErrBadPrice is returned when a provider answers with a zero, negative or non-numeric price.
var ErrBadPrice = errors.New("provider returned no usable price")

// Named is implemented by every provider for logging and metrics labels.
type Named interface {
	Name() string
}

// PriceProvider returns the latest traded price for a ticker.
type PriceProvider interface {
	Named
	LatestPrice(ctx context.Context, ticker string) (float64, error)
}

// SeriesProvider returns a short intraday bar series (15 minute interval) in any order.
type SeriesProvider interface {
	Named
	IntradaySeries(ctx context.Context, ticker string) ([]models.Bar, error)
}

// BarsProvider returns up to n daily OHLCV bars in any order.
type BarsProvider interface {
	Named
	DailyBars(ctx context.Context, ticker string, n int) ([]models.Bar, error)
}

// NewsProvider returns recent articles mentioning a ticker, published at or after from.
type NewsProvider interface {
	Named
	Articles(ctx context.Context, ticker string, from time.Time) ([]models.NewsArticle, error)
}

// CalendarProvider returns scheduled economic events.
type CalendarProvider interface {
	Named
	Events(ctx context.Context) ([]models.EconomicEvent, error)
}

// Set groups the concrete providers selected for a run.
type Set struct {
	Prices   []PriceProvider
	Series   []SeriesProvider
	Bars     BarsProvider
	News     NewsProvider
	Calendar CalendarProvider
}
