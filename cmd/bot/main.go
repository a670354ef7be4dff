package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/NoCodeNomad/bot/internal/config"
	"github.com/NoCodeNomad/bot/internal/logging"
	"github.com/NoCodeNomad/bot/internal/tracing"
)

var version = "dev"

func main() {
	var (
		configPath string
		envFile    string
		once       bool
	)
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.StringVar(&envFile, "env", ".env", "Optional dotenv file loaded before the config")
	flag.BoolVar(&once, "once", false, "Run a single trading pass and exit")
	flag.Parse()

	if err := loadEnv(envFile); err != nil {
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

	if err := run(cfg, logger, once); err != nil {
		logger.WithError(err).Error("Bot error")
		os.Exit(1)
	}
	logger.Info("Bot stopped successfully")
}

func run(cfg *config.Config, logger *logrus.Logger, once bool) error {
	if err := tracing.Init(cfg.Tracing.Enabled, nil, version); err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(ctx); err != nil {
			logger.WithError(err).Warn("Tracing shutdown failed")
		}
	}()

	logger.WithFields(logrus.Fields{
		"mode":     cfg.Environment.Mode,
		"strategy": cfg.Trading.Strategy,
		"tickers":  len(cfg.Trading.Tickers),
		"version":  version,
	}).Info("Starting swing bot")
	if cfg.IsMockData() {
		logger.Info("MOCK DATA MODE - prices, news and events are simulated")
	} else {
		logger.Info("PAPER TRADING MODE - no real orders are placed")
	}

	bot, err := NewBot(cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing bot: %w", err)
	}
	defer func() {
		if err := bot.Close(); err != nil {
			logger.WithError(err).Warn("Failed to release resources")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if once {
		_, err := bot.RunOnce(ctx)
		return err
	}
	return bot.Run(ctx)
}

// loadEnv loads a dotenv file when present. Variables already set in the environment win.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}
