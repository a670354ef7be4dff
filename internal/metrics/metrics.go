// Package metrics exposes trading pass results as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NoCodeNomad/bot/internal/engine"
)

// Recorder implements engine.Observer on a Prometheus registerer.
type Recorder struct {
	passes       prometheus.Counter
	saveFailures prometheus.Counter
	tickers      *prometheus.CounterVec
	notional     *prometheus.CounterVec
	tickerTime   prometheus.Histogram
	passTime     prometheus.Histogram
	balance      prometheus.Gauge
	positions    prometheus.Gauge
	events       prometheus.Gauge
	lastPass     prometheus.Gauge
}

// NewRecorder registers the bot metrics on reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_passes_total", Help: "Trading passes completed",
		}),
		saveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_save_failures_total", Help: "Passes whose state could not be persisted",
		}),
		tickers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_ticker_results_total", Help: "Per-ticker results by outcome and signal",
		}, []string{"outcome", "signal"}),
		notional: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_trade_notional_total", Help: "Simulated cash moved by trades",
		}, []string{"side"}),
		tickerTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bot_ticker_duration_seconds",
			Help:    "Time spent processing one ticker",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		passTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bot_pass_duration_seconds",
			Help:    "Wall time of a trading pass",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		balance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_cash_balance", Help: "Cash balance after the last pass",
		}),
		positions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_open_positions", Help: "Tickers with a non-zero position after the last pass",
		}),
		events: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_upcoming_high_impact_events", Help: "High-impact economic events in the calendar window",
		}),
		lastPass: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_last_pass_timestamp_seconds", Help: "Unix time the last pass finished",
		}),
	}

	for _, c := range []prometheus.Collector{
		r.passes, r.saveFailures, r.tickers, r.notional, r.tickerTime,
		r.passTime, r.balance, r.positions, r.events, r.lastPass,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ObserveTicker implements engine.Observer.
func (r *Recorder) ObserveTicker(res engine.TickerResult) {
	signal := string(res.Signal)
	if signal == "" {
		signal = "none"
	}
	r.tickers.WithLabelValues(string(res.Outcome), signal).Inc()
	r.tickerTime.Observe(res.Duration.Seconds())
	switch res.Outcome {
	case engine.OutcomeBought:
		r.notional.WithLabelValues("buy").Add(res.Amount)
	case engine.OutcomeSold:
		r.notional.WithLabelValues("sell").Add(res.Amount)
	}
}

// ObservePass implements engine.Observer.
func (r *Recorder) ObservePass(rep *engine.PassReport) {
	r.passes.Inc()
	if rep.SaveError != "" {
		r.saveFailures.Inc()
	}
	r.passTime.Observe(rep.FinishedAt.Sub(rep.StartedAt).Seconds())
	r.balance.Set(rep.EndingBalance)
	open := 0
	for _, pos := range rep.Positions {
		if pos.IsOpen() {
			open++
		}
	}
	r.positions.Set(float64(open))
	r.events.Set(float64(len(rep.Events)))
	r.lastPass.Set(float64(rep.FinishedAt.Unix()))
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// NewServer returns an unstarted HTTP server exposing /metrics on addr.
func NewServer(addr string, g prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(g))
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}

var _ engine.Observer = (*Recorder)(nil)
