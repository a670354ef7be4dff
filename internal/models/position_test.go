package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuote_PctChange(t *testing.T) {
	tests := []struct {
		name  string
		quote Quote
		want  float64
	}{
		{"rise", Quote{PriceNow: 101, PricePrev: 100, HasPrev: true}, 0.01},
		{"fall", Quote{PriceNow: 99, PricePrev: 100, HasPrev: true}, -0.01},
		{"no history", Quote{PriceNow: 99}, 0},
		{"zero previous", Quote{PriceNow: 99, PricePrev: 0, HasPrev: true}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.quote.PctChange(), 1e-12)
		})
	}
}

func TestPosition_MarketValue(t *testing.T) {
	assert.Equal(t, 0.0, Position{}.MarketValue(100))
	assert.Equal(t, 250.0, Position{Quantity: 2.5, AvgPrice: 90}.MarketValue(100))
	assert.Equal(t, 0.0, Position{Quantity: 2.5, AvgPrice: 90}.MarketValue(0))
	assert.True(t, Position{Quantity: 1}.IsOpen())
	assert.False(t, Position{}.IsOpen())
}

func TestSignal_Valid(t *testing.T) {
	for _, s := range []Signal{SignalBuy, SignalSell, SignalHold, SignalSkip} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, Signal("buy").Valid())
	assert.False(t, Signal("").Valid())
}

func TestEconomicEvent_IsHighImpact(t *testing.T) {
	assert.True(t, EconomicEvent{Impact: "High"}.IsHighImpact())
	assert.True(t, EconomicEvent{Impact: " high "}.IsHighImpact())
	assert.False(t, EconomicEvent{Impact: "medium"}.IsHighImpact())
	assert.False(t, EconomicEvent{}.IsHighImpact())
}

func TestNewsArticle_Text(t *testing.T) {
	a := NewsArticle{Title: "Shares rise", Description: "on profit beat"}
	assert.Equal(t, "Shares rise on profit beat", a.Text())
	assert.Equal(t, " ", NewsArticle{}.Text())
}
