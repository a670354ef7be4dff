package models

import (
	"strings"
	"time"
)

// NewsArticle is a news record used for sentiment scoring. Title and Description default to
// the empty string when the provider omits them.
type NewsArticle struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty"`
}

// Text returns the scoring text of the article.
func (a NewsArticle) Text() string {
	return a.Title + " " + a.Description
}

// ImpactHigh is the impact level kept by the economic calendar filter.
const ImpactHigh = "high"

// EconomicEvent is a scheduled macro event. Impact is empty when the provider omits it.
type EconomicEvent struct {
	Country string    `json:"country,omitempty"`
	Event   string    `json:"event,omitempty"`
	Date    time.Time `json:"date"`
	Impact  string    `json:"impact"`
}

// IsHighImpact reports whether the event carries a high impact level.
func (e EconomicEvent) IsHighImpact() bool {
	return strings.EqualFold(strings.TrimSpace(e.Impact), ImpactHigh)
}

// Signal is the trade decision of a strategy for one ticker in one pass.
type Signal string

const (
	// SignalBuy opens or adds to a position
	SignalBuy Signal = "BUY"
	// SignalSell liquidates the full position
	SignalSell Signal = "SELL"
	// SignalHold keeps an existing position
	SignalHold Signal = "HOLD"
	// SignalSkip leaves a flat ticker untouched
	SignalSkip Signal = "SKIP"
)

// Valid returns true if the Signal is one of the defined constants
func (s Signal) Valid() bool {
	switch s {
	case SignalBuy, SignalSell, SignalHold, SignalSkip:
		return true
	default:
		return false
	}
}
