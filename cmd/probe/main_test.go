package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NoCodeNomad/bot/internal/config"
	"github.com/NoCodeNomad/bot/internal/features"
	"github.com/NoCodeNomad/bot/internal/mock"
	"github.com/NoCodeNomad/bot/internal/provider"
)

func mockCfg(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte("environment:\n  mode: mock\n"))
	require.NoError(t, err)
	return cfg
}

func TestProbe_MockProviders(t *testing.T) {
	cfg := mockCfg(t)
	logger, _ := test.NewNullLogger()
	set := mock.NewSet(mock.NewDataProvider())

	r := probe(context.Background(), cfg, set, "AAPL", logger)
	assert.Equal(t, "AAPL", r.Ticker)
	require.NotNil(t, r.Price)
	assert.Greater(t, r.Price.PriceNow, 0.0)
	require.NotNil(t, r.Series)
	assert.True(t, r.Series.HasPrev)
	assert.NotEmpty(t, r.RuleSignal)
	assert.Empty(t, r.FeatureErr)
	assert.Len(t, r.Features, features.Width)

	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, r))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "AAPL", decoded["ticker"])
}

func TestProbe_NoProviders(t *testing.T) {
	cfg := mockCfg(t)
	logger, _ := test.NewNullLogger()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r := probe(ctx, cfg, provider.Set{}, "MSFT", logger)

	assert.Nil(t, r.Price)
	assert.Contains(t, r.PriceError, "no quote available")
	assert.Nil(t, r.Series)
	assert.NotEmpty(t, r.SeriesError)
	assert.Zero(t, r.Sentiment)
	assert.Empty(t, r.RuleSignal)
	assert.Equal(t, "no daily bars provider configured", r.FeatureErr)
	assert.Empty(t, r.Events)
}
