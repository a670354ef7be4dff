// Package mock provides an offline random-walk market, news and calendar provider so a
// trading pass can run without network access or API keys.
package mock

import (
	"context"
	"crypto/rand"
	"fmt"
	"hash/fnv"
	"math"
	"math/big"
	"sync"
	"time"

	"github.com/NoCodeNomad/bot/internal/models"
	"github.com/NoCodeNomad/bot/internal/provider"
)

// DataProvider implements every provider interface with simulated data.
type DataProvider struct {
	mu     sync.Mutex
	prices map[string]float64
	rnd    func() float64
	now    func() time.Time
}

// secureFloat64 generates a cryptographically secure random float64 between 0 and 1
func secureFloat64() float64 {
	n, err := rand.Int(rand.Reader, big.NewInt(1<<53))
	if err != nil {
		// Fallback to a reasonable default if crypto/rand fails
		return 0.5
	}
	return float64(n.Int64()) / (1 << 53)
}

// NewDataProvider creates a mock provider backed by crypto/rand.
func NewDataProvider() *DataProvider {
	return NewDataProviderWithSource(secureFloat64, time.Now)
}

// NewDataProviderWithSource creates a mock provider with an injected [0,1) source and clock.
func NewDataProviderWithSource(rnd func() float64, now func() time.Time) *DataProvider {
	return &DataProvider{
		prices: make(map[string]float64),
		rnd:    rnd,
		now:    now,
	}
}

// NewSet returns a provider.Set served entirely by one mock provider.
func NewSet(m *DataProvider) provider.Set {
	return provider.Set{
		Prices:   []provider.PriceProvider{m},
		Series:   []provider.SeriesProvider{m},
		Bars:     m,
		News:     m,
		Calendar: m,
	}
}

// Name returns the provider name.
func (m *DataProvider) Name() string { return "mock" }

// basePrice seeds each ticker deterministically between 20 and 520.
func basePrice(ticker string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(ticker))
	return 20 + float64(h.Sum32()%50000)/100
}

// step moves the price by up to ±0.5% and keeps it positive.
func (m *DataProvider) step(p float64) float64 {
	next := p * (1 + (m.rnd()-0.5)*0.01)
	return math.Max(next, 0.01)
}

// LatestPrice simulates a small price movement since the previous call.
func (m *DataProvider) LatestPrice(ctx context.Context, ticker string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prices[ticker]
	if !ok {
		p = basePrice(ticker)
	}
	p = m.step(p)
	m.prices[ticker] = p
	return p, nil
}

// IntradaySeries returns 30 bars at a 15 minute interval ending at the current price.
func (m *DataProvider) IntradaySeries(ctx context.Context, ticker string) ([]models.Bar, error) {
	return m.walk(ctx, ticker, 30, 15*time.Minute)
}

// DailyBars returns n daily bars ending at the current price.
func (m *DataProvider) DailyBars(ctx context.Context, ticker string, n int) ([]models.Bar, error) {
	if n <= 0 {
		return nil, fmt.Errorf("mock: bar count must be positive, got %d", n)
	}
	return m.walk(ctx, ticker, n, 24*time.Hour)
}

// walk builds n bars backwards from the current price. Returned newest first, like the
// live providers, so callers must sort.
func (m *DataProvider) walk(ctx context.Context, ticker string, n int, every time.Duration) ([]models.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	closePrice, ok := m.prices[ticker]
	if !ok {
		closePrice = basePrice(ticker)
		m.prices[ticker] = closePrice
	}
	end := m.now().UTC().Truncate(every)

	bars := make([]models.Bar, 0, n)
	for i := 0; i < n; i++ {
		open := m.step(closePrice)
		high := math.Max(open, closePrice) * (1 + m.rnd()*0.003)
		low := math.Min(open, closePrice) * (1 - m.rnd()*0.003)
		bars = append(bars, models.Bar{
			Time:   end.Add(-time.Duration(i) * every),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: math.Round(1e5 + m.rnd()*1e7),
		})
		closePrice = open
	}
	return bars, nil
}

var headlines = []struct {
	title       string
	description string
}{
	{"%s shares rise after earnings beat", "Analysts see continued growth."},
	{"%s slips as guidance disappoints", "Investors weigh a possible decline in margins."},
	{"%s trades flat ahead of macro data", "Volume was light across the sector."},
	{"Bull case for %s strengthens", "Profit outlook lifted by new product cycle."},
	{"%s faces regulatory risk", "Shares could fall further, bears argue."},
}

// Articles returns up to five simulated headlines published inside the window.
func (m *DataProvider) Articles(ctx context.Context, ticker string, from time.Time) ([]models.NewsArticle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	count := int(m.rnd() * 6)
	out := make([]models.NewsArticle, 0, count)
	for i := 0; i < count; i++ {
		h := headlines[int(m.rnd()*float64(len(headlines)))%len(headlines)]
		published := now.Add(-time.Duration(m.rnd()*float64(now.Sub(from))))
		out = append(out, models.NewsArticle{
			Title:       fmt.Sprintf(h.title, ticker),
			Description: h.description,
			URL:         fmt.Sprintf("https://example.invalid/news/%s/%d", ticker, i),
			PublishedAt: published,
		})
	}
	return out, nil
}

// Events returns a fixed calendar relative to now: two high-impact events inside the next day,
// one medium-impact event, and one high-impact event outside the window.
func (m *DataProvider) Events(ctx context.Context) ([]models.EconomicEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := m.now().UTC().Truncate(time.Minute)
	return []models.EconomicEvent{
		{Country: "United States", Event: "CPI YoY", Date: now.Add(3 * time.Hour), Impact: "High"},
		{Country: "United States", Event: "Fed Interest Rate Decision", Date: now.Add(20 * time.Hour), Impact: "high"},
		{Country: "Euro Area", Event: "ZEW Economic Sentiment", Date: now.Add(6 * time.Hour), Impact: "Medium"},
		{Country: "United States", Event: "Non Farm Payrolls", Date: now.Add(40 * time.Hour), Impact: "High"},
	}, nil
}

var (
	_ provider.PriceProvider    = (*DataProvider)(nil)
	_ provider.SeriesProvider   = (*DataProvider)(nil)
	_ provider.BarsProvider     = (*DataProvider)(nil)
	_ provider.NewsProvider     = (*DataProvider)(nil)
	_ provider.CalendarProvider = (*DataProvider)(nil)
)
