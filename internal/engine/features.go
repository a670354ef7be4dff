package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/NoCodeNomad/bot/internal/features"
	"github.com/NoCodeNomad/bot/internal/provider"
)

// BarFeatures fetches a daily bar window and builds the latest feature row from it.
type BarFeatures struct {
	Bars    provider.BarsProvider
	Builder features.Builder
}

// Features implements FeatureSource.
func (b BarFeatures) Features(ctx context.Context, ticker string) ([]float64, error) {
	if b.Bars == nil {
		return nil, errors.New("no daily bars provider configured")
	}
	bars, err := b.Bars.DailyBars(ctx, ticker, b.Builder.Window)
	if err != nil {
		return nil, fmt.Errorf("%s daily bars: %w", b.Bars.Name(), err)
	}
	return b.Builder.Latest(bars)
}
