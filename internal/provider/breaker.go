package provider

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/NoCodeNomad/bot/internal/models"
)

// BreakerSettings configures circuit breaker behavior
type BreakerSettings struct {
	MaxRequests  uint32        // Max requests when half-open
	Interval     time.Duration // Reset counts interval
	Timeout      time.Duration // Open circuit duration
	MinRequests  uint32        // Min requests before tripping
	FailureRatio float64       // Failure ratio threshold
}

// DefaultBreakerSettings returns the settings used when none are configured.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:  3,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		MinRequests:  5,
		FailureRatio: 0.6,
	}
}

func newBreaker(name string, settings BreakerSettings, log logrus.FieldLogger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 || counts.Requests < settings.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= settings.FailureRatio
		},
		// A cancelled pass says nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if log != nil {
				log.WithFields(logrus.Fields{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("Circuit breaker state changed")
			}
		},
	})
}

// execCircuitBreaker is a generic helper for circuit breaker wrapper methods
func execCircuitBreaker[T any](breaker *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T
	res, err := breaker.Execute(func() (interface{}, error) { return fn() })
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	v, ok := res.(T)
	if !ok {
		return zero, errors.New("circuit breaker: type assertion failed")
	}
	return v, nil
}

type breakerPrice struct {
	PriceProvider
	cb *gobreaker.CircuitBreaker
}

func (b *breakerPrice) LatestPrice(ctx context.Context, ticker string) (float64, error) {
	return execCircuitBreaker(b.cb, func() (float64, error) { return b.PriceProvider.LatestPrice(ctx, ticker) })
}

type breakerSeries struct {
	SeriesProvider
	cb *gobreaker.CircuitBreaker
}

func (b *breakerSeries) IntradaySeries(ctx context.Context, ticker string) ([]models.Bar, error) {
	return execCircuitBreaker(b.cb, func() ([]models.Bar, error) { return b.SeriesProvider.IntradaySeries(ctx, ticker) })
}

type breakerBars struct {
	BarsProvider
	cb *gobreaker.CircuitBreaker
}

func (b *breakerBars) DailyBars(ctx context.Context, ticker string, n int) ([]models.Bar, error) {
	return execCircuitBreaker(b.cb, func() ([]models.Bar, error) { return b.BarsProvider.DailyBars(ctx, ticker, n) })
}

type breakerNews struct {
	NewsProvider
	cb *gobreaker.CircuitBreaker
}

func (b *breakerNews) Articles(ctx context.Context, ticker string, from time.Time) ([]models.NewsArticle, error) {
	return execCircuitBreaker(b.cb, func() ([]models.NewsArticle, error) { return b.NewsProvider.Articles(ctx, ticker, from) })
}

type breakerCalendar struct {
	CalendarProvider
	cb *gobreaker.CircuitBreaker
}

func (b *breakerCalendar) Events(ctx context.Context) ([]models.EconomicEvent, error) {
	return execCircuitBreaker(b.cb, func() ([]models.EconomicEvent, error) { return b.CalendarProvider.Events(ctx) })
}

// WithBreakers wraps every provider in the set with its own circuit breaker. A provider
// serving several roles gets one breaker per role. Nil members stay nil.
func (s Set) WithBreakers(settings BreakerSettings, log logrus.FieldLogger) Set {
	out := Set{}
	for _, p := range s.Prices {
		out.Prices = append(out.Prices, &breakerPrice{PriceProvider: p, cb: newBreaker(p.Name()+":price", settings, log)})
	}
	for _, p := range s.Series {
		out.Series = append(out.Series, &breakerSeries{SeriesProvider: p, cb: newBreaker(p.Name()+":series", settings, log)})
	}
	if s.Bars != nil {
		out.Bars = &breakerBars{BarsProvider: s.Bars, cb: newBreaker(s.Bars.Name()+":bars", settings, log)}
	}
	if s.News != nil {
		out.News = &breakerNews{NewsProvider: s.News, cb: newBreaker(s.News.Name()+":news", settings, log)}
	}
	if s.Calendar != nil {
		out.Calendar = &breakerCalendar{CalendarProvider: s.Calendar, cb: newBreaker(s.Calendar.Name()+":calendar", settings, log)}
	}
	return out
}
