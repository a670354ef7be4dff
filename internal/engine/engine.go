// Package engine runs trading passes: load state, evaluate every ticker in order against a
// shared ledger, and persist the result.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/NoCodeNomad/bot/internal/ledger"
	"github.com/NoCodeNomad/bot/internal/models"
	"github.com/NoCodeNomad/bot/internal/sentiment"
	"github.com/NoCodeNomad/bot/internal/storage"
	"github.com/NoCodeNomad/bot/internal/strategy"
	"github.com/NoCodeNomad/bot/internal/tracing"
)

// PriceSource resolves current prices and two-point momentum.
type PriceSource interface {
	Resolve(ctx context.Context, ticker string) (models.Quote, error)
	RecentSeries(ctx context.Context, ticker string) (models.Quote, error)
}

// SentimentSource scores recent news for a ticker. Failures are folded into a neutral result.
type SentimentSource interface {
	ScoreTicker(ctx context.Context, ticker string) sentiment.Result
}

// EventSource lists upcoming high-impact economic events.
type EventSource interface {
	Upcoming(ctx context.Context) []models.EconomicEvent
}

// FeatureSource builds the classifier feature vector for a ticker.
type FeatureSource interface {
	Features(ctx context.Context, ticker string) ([]float64, error)
}

// Deps wires an Engine.
type Deps struct {
	Tickers   []string
	Prices    PriceSource
	Sentiment SentimentSource
	Events    EventSource
	Features  FeatureSource
	Strategy  strategy.Strategy
	Storage   storage.Interface
	// BuyFraction defaults to ledger.DefaultBuyFraction.
	BuyFraction float64
	Observer    Observer
	Logger      logrus.FieldLogger
}

// Engine runs passes. RunPass must not be called concurrently; LastReport may be.
type Engine struct {
	deps Deps
	log  logrus.FieldLogger
	now  func() time.Time

	mu   sync.RWMutex
	last *PassReport
}

// New validates deps and creates an Engine.
func New(d Deps) (*Engine, error) {
	if d.Prices == nil {
		return nil, errors.New("engine: price source is required")
	}
	if d.Strategy == nil {
		return nil, errors.New("engine: strategy is required")
	}
	if d.Storage == nil {
		return nil, errors.New("engine: storage is required")
	}
	req := d.Strategy.Requirements()
	if req.Sentiment && d.Sentiment == nil {
		return nil, fmt.Errorf("engine: strategy %s needs a sentiment source", d.Strategy.Name())
	}
	if req.Features && d.Features == nil {
		return nil, fmt.Errorf("engine: strategy %s needs a feature source", d.Strategy.Name())
	}
	if d.BuyFraction == 0 {
		d.BuyFraction = ledger.DefaultBuyFraction
	}
	if d.Observer == nil {
		d.Observer = nopObserver{}
	}
	log := d.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{deps: d, log: log, now: time.Now}, nil
}

// LastReport returns the most recent completed pass, or nil.
func (e *Engine) LastReport() *PassReport {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.last
}

// RunPass processes every ticker once, sequentially and in configured order, against one
// ledger loaded at the start and saved at the end. A failure on one ticker never stops the
// others. A state load failure aborts before any ticker; a save failure is returned together
// with the report, and the previously persisted state is left in place.
func (e *Engine) RunPass(ctx context.Context) (*PassReport, error) {
	id := uuid.NewString()
	ctx, span := tracing.StartSpan(ctx, "trading.pass", trace.WithAttributes(
		attribute.String("pass.id", id),
		attribute.String("strategy", e.deps.Strategy.Name()),
		attribute.Int("tickers", len(e.deps.Tickers)),
	))
	defer span.End()
	log := e.log.WithField("pass_id", id)

	portfolio, err := e.deps.Storage.Load()
	if err != nil {
		span.SetStatus(codes.Error, "load failed")
		return nil, fmt.Errorf("loading state: %w", err)
	}

	report := &PassReport{
		ID:              id,
		Strategy:        e.deps.Strategy.Name(),
		StartedAt:       e.now(),
		StartingBalance: portfolio.Balance(),
	}
	log.WithFields(logrus.Fields{
		"balance":   portfolio.Balance(),
		"positions": len(portfolio.Tickers()),
	}).Info("Starting trading pass")

	if e.deps.Events != nil {
		report.Events = e.deps.Events.Upcoming(ctx)
		log.WithField("count", len(report.Events)).Info("Upcoming high-impact economic events in window")
		for _, ev := range report.Events {
			log.WithFields(logrus.Fields{"event": ev.Event, "country": ev.Country, "date": ev.Date}).Debug("Economic event")
		}
	}

	for _, ticker := range e.deps.Tickers {
		var res TickerResult
		if err := ctx.Err(); err != nil {
			res = TickerResult{Ticker: ticker, Outcome: OutcomeSkipped, Error: err.Error()}
		} else {
			res = e.processTicker(ctx, log.WithField("ticker", ticker), portfolio, ticker)
		}
		report.Results = append(report.Results, res)
		e.observe(log, func() { e.deps.Observer.ObserveTicker(res) })
	}

	report.EndingBalance = portfolio.Balance()
	report.Positions = portfolio.Positions()

	saveErr := e.deps.Storage.Save(portfolio)
	if saveErr != nil {
		report.SaveError = saveErr.Error()
		span.SetStatus(codes.Error, "save failed")
		log.WithError(saveErr).Error("Failed to persist state; previous state left in place")
	}
	report.FinishedAt = e.now()

	counts := report.Counts()
	log.WithFields(logrus.Fields{
		"balance": report.EndingBalance,
		"bought":  counts[OutcomeBought],
		"sold":    counts[OutcomeSold],
		"held":    counts[OutcomeHeld],
		"skipped": counts[OutcomeSkipped],
		"noop":    counts[OutcomeNoop],
		"failed":  counts[OutcomeFailed],
	}).Info("Trading pass complete")

	e.mu.Lock()
	e.last = report
	e.mu.Unlock()
	e.observe(log, func() { e.deps.Observer.ObservePass(report) })

	if saveErr != nil {
		return report, fmt.Errorf("saving state: %w", saveErr)
	}
	return report, nil
}

// observe runs an observer callback; a panic is logged and dropped.
func (e *Engine) observe(log logrus.FieldLogger, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Recovered panic in pass observer")
		}
	}()
	fn()
}

// processTicker is the per-ticker failure boundary: errors and panics from any stage end up
// in the result instead of escaping.
func (e *Engine) processTicker(ctx context.Context, log logrus.FieldLogger, p *ledger.Portfolio, ticker string) (res TickerResult) {
	start := e.now()
	res = TickerResult{Ticker: ticker}
	ctx, span := tracing.StartSpan(ctx, "trading.ticker", trace.WithAttributes(attribute.String("ticker", ticker)))

	defer func() {
		if r := recover(); r != nil {
			res.Outcome = OutcomeFailed
			res.Error = fmt.Sprintf("panic: %v", r)
			log.WithField("panic", r).Error("Recovered panic while processing ticker")
		}
		res.Duration = e.now().Sub(start)
		span.SetAttributes(attribute.String("outcome", string(res.Outcome)))
		if res.Outcome == OutcomeFailed {
			span.SetStatus(codes.Error, res.Error)
		}
		span.End()
	}()

	if err := e.evaluate(ctx, p, ticker, &res); err != nil {
		res.Error = err.Error()
		if errors.Is(err, models.ErrNoQuoteAvailable) || errors.Is(err, models.ErrInsufficientData) {
			res.Outcome = OutcomeSkipped
			log.WithError(err).Warn("Skipping ticker: no usable price data")
		} else {
			res.Outcome = OutcomeFailed
			log.WithError(err).Error("Ticker processing failed")
		}
		return res
	}

	log.WithFields(logrus.Fields{
		"signal":     res.Signal,
		"outcome":    res.Outcome,
		"price":      res.Price,
		"prev_price": res.PrevPrice,
		"sentiment":  res.Sentiment,
		"shares":     res.Shares,
	}).Info("Ticker processed")
	return res
}

func (e *Engine) evaluate(ctx context.Context, p *ledger.Portfolio, ticker string, res *TickerResult) error {
	req := e.deps.Strategy.Requirements()
	in := strategy.Input{Ticker: ticker, HeldQuantity: p.Position(ticker).Quantity}

	var (
		q   models.Quote
		err error
	)
	if req.Momentum {
		q, err = e.deps.Prices.RecentSeries(ctx, ticker)
	} else {
		q, err = e.deps.Prices.Resolve(ctx, ticker)
	}
	if err != nil {
		return err
	}
	in.PriceNow, in.PricePrev = q.PriceNow, q.PricePrev
	res.Price, res.PrevPrice = q.PriceNow, q.PricePrev

	if req.Sentiment {
		s := e.deps.Sentiment.ScoreTicker(ctx, ticker)
		in.Sentiment = s.Score
		res.Sentiment, res.Articles = s.Score, s.Articles
	}
	if req.Features {
		f, err := e.deps.Features.Features(ctx, ticker)
		if err != nil {
			return fmt.Errorf("building features: %w", err)
		}
		in.Features = f
	}

	sig, err := e.deps.Strategy.Decide(in)
	if err != nil {
		return fmt.Errorf("deciding: %w", err)
	}
	if !sig.Valid() {
		return fmt.Errorf("strategy %s returned invalid signal %q", e.deps.Strategy.Name(), sig)
	}
	res.Signal = sig

	e.apply(p, ticker, q.PriceNow, in.HeldQuantity, res)
	return nil
}

// apply mutates the ledger for a decided signal.
func (e *Engine) apply(p *ledger.Portfolio, ticker string, price, held float64, res *TickerResult) {
	switch res.Signal {
	case models.SignalBuy:
		if t, ok := p.Buy(ticker, price, e.deps.BuyFraction); ok {
			res.Outcome, res.Shares, res.Amount = OutcomeBought, t.Shares, t.Amount
			return
		}
		res.Outcome = OutcomeNoop
	case models.SignalSell:
		if t, ok := p.Sell(ticker, price); ok {
			res.Outcome, res.Shares, res.Amount = OutcomeSold, t.Shares, t.Amount
			return
		}
		res.Outcome = OutcomeNoop
	case models.SignalHold:
		if held > 0 {
			res.Outcome = OutcomeHeld
			return
		}
		res.Outcome = OutcomeNoop
	default:
		res.Outcome = OutcomeSkipped
	}
}
