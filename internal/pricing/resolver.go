// Package pricing resolves current prices and the two-point momentum series for a ticker
// from an ordered fallback chain of providers.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/NoCodeNomad/bot/internal/models"
	"github.com/NoCodeNomad/bot/internal/provider"
)

// Resolver walks its providers in order. It holds no state between calls: no cache and
// no re-ranking of providers.
type Resolver struct {
	prices []provider.PriceProvider
	series []provider.SeriesProvider
	log    logrus.FieldLogger
}

// NewResolver creates a resolver over the given fallback chains.
func NewResolver(prices []provider.PriceProvider, series []provider.SeriesProvider, log logrus.FieldLogger) *Resolver {
	return &Resolver{prices: prices, series: series, log: log}
}

// Resolve returns the first strictly positive price from the chain. Each provider is tried
// once. If every provider fails the error wraps models.ErrNoQuoteAvailable.
func (r *Resolver) Resolve(ctx context.Context, ticker string) (models.Quote, error) {
	var errs []error
	for _, p := range r.prices {
		if err := ctx.Err(); err != nil {
			return models.Quote{}, err
		}
		price, err := safeLatestPrice(ctx, p, ticker)
		if err == nil && (!(price > 0) || math.IsInf(price, 1)) {
			err = fmt.Errorf("%s: %w (%v)", p.Name(), provider.ErrBadPrice, price)
		}
		if err != nil {
			r.log.WithFields(logrus.Fields{"ticker": ticker, "provider": p.Name()}).
				WithError(err).Debug("Price provider failed, trying next")
			errs = append(errs, err)
			continue
		}
		return models.Quote{Ticker: ticker, PriceNow: price}, nil
	}
	return models.Quote{}, noQuote(ticker, errs)
}

// RecentSeries returns the last two closes of the first series source that answers.
// Fewer than two points is models.ErrInsufficientData; every source failing is
// models.ErrNoQuoteAvailable.
func (r *Resolver) RecentSeries(ctx context.Context, ticker string) (models.Quote, error) {
	var errs []error
	for _, s := range r.series {
		if err := ctx.Err(); err != nil {
			return models.Quote{}, err
		}
		bars, err := safeSeries(ctx, s, ticker)
		if err != nil {
			r.log.WithFields(logrus.Fields{"ticker": ticker, "provider": s.Name()}).
				WithError(err).Debug("Series provider failed, trying next")
			errs = append(errs, err)
			continue
		}
		return LastTwo(ticker, bars)
	}
	return models.Quote{}, noQuote(ticker, errs)
}

// LastTwo sorts bars ascending by time and returns the last two closes as a quote.
// The latest close must be finite and positive and the previous one finite and not
// negative; anything else is models.ErrInsufficientData. The input slice is not modified.
func LastTwo(ticker string, bars []models.Bar) (models.Quote, error) {
	if len(bars) < 2 {
		return models.Quote{}, fmt.Errorf("%s: %d points: %w", ticker, len(bars), models.ErrInsufficientData)
	}
	sorted := make([]models.Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	last, prev := sorted[len(sorted)-1], sorted[len(sorted)-2]
	if !(last.Close > 0) || math.IsInf(last.Close, 1) {
		return models.Quote{}, fmt.Errorf("%s: latest close %v: %w", ticker, last.Close, models.ErrInsufficientData)
	}
	if !(prev.Close >= 0) || math.IsInf(prev.Close, 1) {
		return models.Quote{}, fmt.Errorf("%s: previous close %v: %w", ticker, prev.Close, models.ErrInsufficientData)
	}
	return models.Quote{
		Ticker:    ticker,
		PriceNow:  last.Close,
		PricePrev: prev.Close,
		HasPrev:   true,
		At:        last.Time,
	}, nil
}

func noQuote(ticker string, errs []error) error {
	if len(errs) == 0 {
		return fmt.Errorf("%s: no providers configured: %w", ticker, models.ErrNoQuoteAvailable)
	}
	return fmt.Errorf("%s: %w: %w", ticker, models.ErrNoQuoteAvailable, errors.Join(errs...))
}

// safeLatestPrice turns a provider panic into an ordinary failure.
func safeLatestPrice(ctx context.Context, p provider.PriceProvider, ticker string) (price float64, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%s panicked: %v", p.Name(), rec)
		}
	}()
	return p.LatestPrice(ctx, ticker)
}

func safeSeries(ctx context.Context, s provider.SeriesProvider, ticker string) (bars []models.Bar, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%s panicked: %v", s.Name(), rec)
		}
	}()
	return s.IntradaySeries(ctx, ticker)
}
