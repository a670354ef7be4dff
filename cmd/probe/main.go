// Command probe queries every configured provider for one ticker and prints what the bot
// would see, without loading or saving any portfolio state.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/NoCodeNomad/bot/internal/calendar"
	"github.com/NoCodeNomad/bot/internal/config"
	"github.com/NoCodeNomad/bot/internal/features"
	"github.com/NoCodeNomad/bot/internal/logging"
	"github.com/NoCodeNomad/bot/internal/mock"
	"github.com/NoCodeNomad/bot/internal/models"
	"github.com/NoCodeNomad/bot/internal/pricing"
	"github.com/NoCodeNomad/bot/internal/provider"
	"github.com/NoCodeNomad/bot/internal/sentiment"
	"github.com/NoCodeNomad/bot/internal/strategy"
)

// Report is the probe output.
type Report struct {
	Ticker      string                 `json:"ticker"`
	Price       *models.Quote          `json:"price,omitempty"`
	PriceError  string                 `json:"price_error,omitempty"`
	Series      *models.Quote          `json:"series,omitempty"`
	SeriesError string                 `json:"series_error,omitempty"`
	Sentiment   int                    `json:"sentiment"`
	Articles    int                    `json:"articles"`
	NewsError   string                 `json:"news_error,omitempty"`
	Features    map[string]float64     `json:"features,omitempty"`
	FeatureErr  string                 `json:"features_error,omitempty"`
	Events      []models.EconomicEvent `json:"upcoming_events"`
	// RuleSignal is what the rule strategy would decide for a flat position.
	RuleSignal models.Signal `json:"rule_signal,omitempty"`
}

func main() {
	var (
		configPath string
		envFile    string
		ticker     string
		timeout    time.Duration
	)
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.StringVar(&envFile, "env", ".env", "Optional dotenv file loaded before the config")
	flag.StringVar(&ticker, "ticker", "AAPL", "Ticker to probe")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Overall probe timeout")
	flag.Parse()

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logrus.Fatalf("Failed to load %s: %v", envFile, err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	logger, err := logging.New(cfg.Environment.LogLevel, cfg.Environment.LogFormat, nil)
	if err != nil {
		logrus.Fatalf("Failed to configure logging: %v", err)
	}

	var set provider.Set
	if cfg.IsMockData() {
		set = mock.NewSet(mock.NewDataProvider())
	} else if set, err = provider.FromConfig(cfg, logger); err != nil {
		logger.WithError(err).Fatal("Failed to build providers")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	report := probe(ctx, cfg, set, strings.ToUpper(strings.TrimSpace(ticker)), logger)
	if err := writeReport(os.Stdout, report); err != nil {
		logger.WithError(err).Fatal("Failed to write report")
	}
}

func probe(ctx context.Context, cfg *config.Config, set provider.Set, ticker string, log logrus.FieldLogger) Report {
	r := Report{Ticker: ticker}
	resolver := pricing.NewResolver(set.Prices, set.Series, log)

	if q, err := resolver.Resolve(ctx, ticker); err != nil {
		r.PriceError = err.Error()
	} else {
		r.Price = &q
	}
	if q, err := resolver.RecentSeries(ctx, ticker); err != nil {
		r.SeriesError = err.Error()
	} else {
		r.Series = &q
	}

	res := sentiment.NewScorer(set.News, cfg.News.LookbackDays, log).ScoreTicker(ctx, ticker)
	r.Sentiment, r.Articles = res.Score, res.Articles
	if res.Err != nil {
		r.NewsError = res.Err.Error()
	}

	if r.Series != nil {
		r.RuleSignal = strategy.DecideAction(r.Series.PriceNow, r.Series.PricePrev, r.Sentiment, 0)
	}

	r.Features, r.FeatureErr = probeFeatures(ctx, cfg, set.Bars, ticker)
	r.Events = calendar.NewFilter(set.Calendar, cfg.GetCalendarWindow(), log).Upcoming(ctx)
	return r
}

func probeFeatures(ctx context.Context, cfg *config.Config, bars provider.BarsProvider, ticker string) (map[string]float64, string) {
	if bars == nil {
		return nil, "no daily bars provider configured"
	}
	profile, err := features.ProfileByName(cfg.Model.Profile)
	if err != nil {
		return nil, err.Error()
	}
	window, err := bars.DailyBars(ctx, ticker, cfg.Model.WindowBars)
	if err != nil {
		return nil, err.Error()
	}
	row, err := features.NewBuilder(profile, cfg.Model.WindowBars).Latest(window)
	if err != nil {
		return nil, err.Error()
	}
	out := make(map[string]float64, len(row))
	for i, name := range features.Names {
		out[name] = row[i]
	}
	return out, ""
}

func writeReport(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
