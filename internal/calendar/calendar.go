// Package calendar filters economic calendar events down to upcoming high-impact ones.
// The result is informational only; nothing in the decision path consumes it.
package calendar

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/NoCodeNomad/bot/internal/models"
	"github.com/NoCodeNomad/bot/internal/provider"
)

// DefaultWindow is the look-ahead used when none is configured.
const DefaultWindow = 24 * time.Hour

// UpcomingHighImpact returns the high-impact events scheduled within [now, now+window],
// ordered by date.
func UpcomingHighImpact(events []models.EconomicEvent, now time.Time, window time.Duration) []models.EconomicEvent {
	var out []models.EconomicEvent
	for _, e := range events {
		delta := e.Date.Sub(now)
		if delta < 0 || delta > window {
			continue
		}
		if !e.IsHighImpact() {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Filter fetches events from a calendar provider and applies UpcomingHighImpact.
type Filter struct {
	source provider.CalendarProvider
	window time.Duration
	now    func() time.Time
	log    logrus.FieldLogger
}

// NewFilter creates a Filter. A nil source always yields no events.
func NewFilter(source provider.CalendarProvider, window time.Duration, log logrus.FieldLogger) *Filter {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Filter{source: source, window: window, now: time.Now, log: log}
}

// Upcoming returns upcoming high-impact events. A provider failure is logged and treated as
// an empty calendar.
func (f *Filter) Upcoming(ctx context.Context) []models.EconomicEvent {
	if f.source == nil {
		return nil
	}
	events, err := f.source.Events(ctx)
	if err != nil {
		f.log.WithField("provider", f.source.Name()).WithError(err).
			Warn("Economic calendar fetch failed, continuing without events")
		return nil
	}
	return UpcomingHighImpact(events, f.now().UTC(), f.window)
}
