package engine

import (
	"time"

	"github.com/NoCodeNomad/bot/internal/models"
)

// Outcome is what a pass did with one ticker.
type Outcome string

// Ticker outcomes.
const (
	OutcomeBought  Outcome = "bought"
	OutcomeSold    Outcome = "sold"
	OutcomeHeld    Outcome = "held"
	OutcomeSkipped Outcome = "skipped"
	// OutcomeNoop is a signal the ledger declined, e.g. SELL with no position or BUY with
	// no cash.
	OutcomeNoop   Outcome = "noop"
	OutcomeFailed Outcome = "failed"
)

// TickerResult reports one ticker's processing within a pass.
type TickerResult struct {
	Ticker    string        `json:"ticker"`
	Signal    models.Signal `json:"signal,omitempty"`
	Outcome   Outcome       `json:"outcome"`
	Price     float64       `json:"price,omitempty"`
	PrevPrice float64       `json:"prev_price,omitempty"`
	Sentiment int           `json:"sentiment"`
	Articles  int           `json:"articles"`
	Shares    float64       `json:"shares,omitempty"`
	Amount    float64       `json:"amount,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
}

// PassReport summarizes one pass over every configured ticker.
type PassReport struct {
	ID              string                     `json:"id"`
	Strategy        string                     `json:"strategy"`
	StartedAt       time.Time                  `json:"started_at"`
	FinishedAt      time.Time                  `json:"finished_at"`
	StartingBalance float64                    `json:"starting_balance"`
	EndingBalance   float64                    `json:"ending_balance"`
	Events          []models.EconomicEvent     `json:"upcoming_events"`
	Results         []TickerResult             `json:"results"`
	Positions       map[string]models.Position `json:"positions"`
	SaveError       string                     `json:"save_error,omitempty"`
}

// Counts tallies results by outcome.
func (r *PassReport) Counts() map[Outcome]int {
	out := make(map[Outcome]int)
	for _, res := range r.Results {
		out[res.Outcome]++
	}
	return out
}

// Result returns the result for ticker, if present.
func (r *PassReport) Result(ticker string) (TickerResult, bool) {
	for _, res := range r.Results {
		if res.Ticker == ticker {
			return res, true
		}
	}
	return TickerResult{}, false
}

// Observer receives pass results as they are produced.
type Observer interface {
	ObserveTicker(res TickerResult)
	ObservePass(report *PassReport)
}

type nopObserver struct{}

func (nopObserver) ObserveTicker(TickerResult) {}
func (nopObserver) ObservePass(*PassReport)    {}
