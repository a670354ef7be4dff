package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/NoCodeNomad/bot/internal/calendar"
	"github.com/NoCodeNomad/bot/internal/classifier"
	"github.com/NoCodeNomad/bot/internal/config"
	"github.com/NoCodeNomad/bot/internal/dashboard"
	"github.com/NoCodeNomad/bot/internal/engine"
	"github.com/NoCodeNomad/bot/internal/features"
	"github.com/NoCodeNomad/bot/internal/metrics"
	"github.com/NoCodeNomad/bot/internal/mock"
	"github.com/NoCodeNomad/bot/internal/pricing"
	"github.com/NoCodeNomad/bot/internal/provider"
	"github.com/NoCodeNomad/bot/internal/sentiment"
	"github.com/NoCodeNomad/bot/internal/storage"
	"github.com/NoCodeNomad/bot/internal/strategy"
)

const shutdownTimeout = 10 * time.Second

// Bot owns the engine, its scheduler and the optional HTTP servers.
type Bot struct {
	config   *config.Config
	logger   logrus.FieldLogger
	engine   *engine.Engine
	storage  storage.Interface
	registry *prometheus.Registry
	closers  []io.Closer
	now      func() time.Time
}

// NewBot wires providers, strategy, storage and observers from cfg. A missing classifier
// artifact is an error when the model strategy is selected.
func NewBot(cfg *config.Config, logger logrus.FieldLogger) (*Bot, error) {
	b := &Bot{
		config:   cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
		now:      time.Now,
	}

	set, err := b.providers()
	if err != nil {
		return nil, err
	}

	var clf classifier.Classifier
	var feats engine.FeatureSource
	if cfg.UsesModel() {
		profile, err := features.ProfileByName(cfg.Model.Profile)
		if err != nil {
			return nil, err
		}
		onnx, err := classifier.LoadONNX(classifier.Options{
			Path:        cfg.Model.Path,
			LibraryPath: cfg.Model.LibraryPath,
			InputName:   cfg.Model.InputName,
			OutputName:  cfg.Model.OutputName,
			Features:    features.Width,
		})
		if err != nil {
			return nil, fmt.Errorf("loading classifier: %w", err)
		}
		b.closers = append(b.closers, onnx)
		clf = onnx
		feats = engine.BarFeatures{Bars: set.Bars, Builder: features.NewBuilder(profile, cfg.Model.WindowBars)}
		logger.WithFields(logrus.Fields{"model": cfg.Model.Path, "profile": profile.Name}).Info("Classifier loaded")
	}

	strat, err := strategy.Build(cfg.Trading.Strategy, clf)
	if err != nil {
		_ = b.Close()
		return nil, err
	}

	store, err := storage.NewStorage(cfg.Storage.BalancePath, cfg.Storage.PortfolioPath, cfg.Trading.StartingBalance)
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	b.storage = store

	recorder, err := metrics.NewRecorder(b.registry)
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("registering metrics: %w", err)
	}
	b.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	b.engine, err = engine.New(engine.Deps{
		Tickers:   cfg.Trading.Tickers,
		Prices:    pricing.NewResolver(set.Prices, set.Series, logger),
		Sentiment: sentiment.NewScorer(set.News, cfg.News.LookbackDays, logger),
		Events:    calendar.NewFilter(set.Calendar, cfg.GetCalendarWindow(), logger),
		Features:  feats,
		Strategy:  strat,
		Storage:   store,
		Observer:  recorder,
		Logger:    logger,
	})
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	return b, nil
}

func (b *Bot) providers() (provider.Set, error) {
	if b.config.IsMockData() {
		return mock.NewSet(mock.NewDataProvider()), nil
	}
	return provider.FromConfig(b.config, b.logger)
}

// Close releases the classifier session.
func (b *Bot) Close() error {
	var errs []error
	for _, c := range b.closers {
		errs = append(errs, c.Close())
	}
	b.closers = nil
	return errors.Join(errs...)
}

// RunOnce runs a single pass regardless of trading hours.
func (b *Bot) RunOnce(ctx context.Context) (*engine.PassReport, error) {
	return b.engine.RunPass(ctx)
}

// Run starts the enabled servers and runs a pass immediately and then every interval until
// ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	var servers []interface {
		Shutdown(context.Context) error
	}
	if b.config.Dashboard.Enabled {
		var mh http.Handler
		if b.config.Metrics.Enabled {
			mh = metrics.Handler(b.registry)
		}
		dash := dashboard.NewServer(dashboard.Config{
			Port:      b.config.Dashboard.Port,
			AuthToken: b.config.Dashboard.AuthToken,
			Metrics:   mh,
		}, b.storage, b.engine, b.logger)
		servers = append(servers, dash)
		g.Go(dash.Start)
	}
	if b.config.Metrics.Enabled {
		srv := metrics.NewServer(b.config.Metrics.Addr, b.registry)
		servers = append(servers, srv)
		g.Go(func() error {
			b.logger.Infof("Starting metrics server on %s", b.config.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			for _, s := range servers {
				if err := s.Shutdown(sctx); err != nil {
					b.logger.WithError(err).Warn("Server shutdown failed")
				}
			}
		}()
		return b.schedule(ctx)
	})

	return g.Wait()
}

// schedule runs passes on the configured interval. Pass errors are logged and the loop keeps
// going; only ctx cancellation stops it.
func (b *Bot) schedule(ctx context.Context) error {
	interval := b.config.GetInterval()
	b.logger.WithField("interval", interval).Info("Bot starting main loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	b.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			b.tick(ctx)
		}
	}
}

func (b *Bot) tick(ctx context.Context) {
	now := b.now()
	if !b.config.IsWithinTradingHours(now) {
		b.logger.Infof("Outside trading hours (%s - %s %s), skipping pass",
			b.config.Schedule.TradingStart, b.config.Schedule.TradingEnd, b.config.Schedule.Timezone)
		return
	}
	if _, err := b.engine.RunPass(ctx); err != nil {
		b.logger.WithError(err).Error("Trading pass failed")
	}
}
