// Package ledger holds the simulated cash balance and per-ticker positions mutated by a
// trading pass.
package ledger

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/NoCodeNomad/bot/internal/models"
)

// DefaultBuyFraction is the share of the current balance spent by a single buy.
const DefaultBuyFraction = 0.1

// Side identifies the direction of an applied trade.
type Side string

const (
	// Buy spends cash for shares.
	Buy Side = "buy"
	// Sell liquidates shares for cash.
	Sell Side = "sell"
)

// Trade describes a mutation applied by Buy or Sell.
type Trade struct {
	Ticker string  `json:"ticker"`
	Side   Side    `json:"side"`
	Shares float64 `json:"shares"`
	Price  float64 `json:"price"`
	Amount float64 `json:"amount"`
}

// Portfolio is the cash balance plus the ticker -> position mapping. Cash and each
// position's cost basis are held as exact decimals; share counts and average prices stay
// float64.
//
// A Portfolio is owned by a single pass and is not safe for concurrent use.
type Portfolio struct {
	balance   decimal.Decimal
	positions map[string]models.Position
	cost      map[string]decimal.Decimal
}

// New creates a portfolio from a balance and an optional position map. Negative or
// non-finite balances are clamped to zero and malformed positions are normalized.
func New(balance float64, positions map[string]models.Position) *Portfolio {
	if !finitePositive(balance) {
		balance = 0
	}
	p := &Portfolio{
		balance:   decimal.NewFromFloat(balance),
		positions: make(map[string]models.Position, len(positions)),
		cost:      make(map[string]decimal.Decimal, len(positions)),
	}
	for ticker, pos := range positions {
		pos = normalize(pos)
		p.positions[ticker] = pos
		if pos.IsOpen() {
			p.cost[ticker] = decimal.NewFromFloat(pos.Quantity).Mul(decimal.NewFromFloat(pos.AvgPrice))
		}
	}
	return p
}

// Balance returns the available cash.
func (p *Portfolio) Balance() float64 {
	return p.balance.InexactFloat64()
}

// Position returns the position for ticker; absent tickers hold the zero position.
func (p *Portfolio) Position(ticker string) models.Position {
	return p.positions[ticker]
}

// Positions returns a copy of the ticker -> position mapping.
func (p *Portfolio) Positions() map[string]models.Position {
	out := make(map[string]models.Position, len(p.positions))
	for ticker, pos := range p.positions {
		out[ticker] = pos
	}
	return out
}

// Tickers returns the tickers that have a position entry, sorted.
func (p *Portfolio) Tickers() []string {
	out := make([]string, 0, len(p.positions))
	for ticker := range p.positions {
		out = append(out, ticker)
	}
	sort.Strings(out)
	return out
}

// Buy spends fraction of the current balance on ticker at price, blending the weighted
// average cost. It is a no-op when the balance is empty, when the price is not a finite
// positive number, or when fraction is outside (0, 1].
func (p *Portfolio) Buy(ticker string, price, fraction float64) (Trade, bool) {
	if p.balance.Sign() <= 0 || !finitePositive(price) || !(fraction > 0) || fraction > 1 {
		return Trade{}, false
	}

	spend := p.balance.Mul(decimal.NewFromFloat(fraction))
	amount := spend.InexactFloat64()
	shares := amount / price
	if !finitePositive(shares) {
		return Trade{}, false
	}

	cur := p.positions[ticker]
	cost := p.cost[ticker].Add(spend)
	next := models.Position{Quantity: cur.Quantity + shares, AvgPrice: price}
	if cur.IsOpen() {
		next.AvgPrice = cost.InexactFloat64() / next.Quantity
	}

	p.positions[ticker] = next
	p.cost[ticker] = cost
	p.balance = p.balance.Sub(spend)
	if p.balance.IsNegative() {
		p.balance = decimal.Zero
	}

	return Trade{Ticker: ticker, Side: Buy, Shares: shares, Price: price, Amount: amount}, true
}

// Sell liquidates the full position in ticker at price. Selling at exactly the average
// price credits the recorded cost basis. It is a no-op when nothing is held or the price is
// not a finite positive number.
func (p *Portfolio) Sell(ticker string, price float64) (Trade, bool) {
	cur := p.positions[ticker]
	if !cur.IsOpen() || !finitePositive(price) {
		return Trade{}, false
	}

	proceeds := decimal.NewFromFloat(cur.Quantity).Mul(decimal.NewFromFloat(price))
	if cost, ok := p.cost[ticker]; ok && price == cur.AvgPrice {
		proceeds = cost
	}
	p.balance = p.balance.Add(proceeds)
	p.positions[ticker] = models.Position{}
	delete(p.cost, ticker)

	return Trade{Ticker: ticker, Side: Sell, Shares: cur.Quantity, Price: price, Amount: proceeds.InexactFloat64()}, true
}

// Equity returns cash plus positions marked at the supplied prices. Tickers without a mark
// are valued at their average price.
func (p *Portfolio) Equity(marks map[string]float64) float64 {
	equity := p.Balance()
	for ticker, pos := range p.positions {
		mark, ok := marks[ticker]
		if !ok || mark <= 0 {
			mark = pos.AvgPrice
		}
		equity += pos.MarketValue(mark)
	}
	return equity
}

func normalize(pos models.Position) models.Position {
	if !finitePositive(pos.Quantity) {
		return models.Position{}
	}
	if !(pos.AvgPrice > 0) || math.IsInf(pos.AvgPrice, 1) {
		pos.AvgPrice = 0
	}
	return pos
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}
