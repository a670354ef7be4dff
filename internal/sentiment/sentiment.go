// Package sentiment scores news coverage with a fixed keyword vocabulary.
package sentiment

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/NoCodeNomad/bot/internal/models"
	"github.com/NoCodeNomad/bot/internal/provider"
)

// Keyword vocabularies. Matching is by substring, so "up" also counts inside "update".
var (
	PositiveWords = []string{"gain", "rise", "bull", "up", "beat", "growth", "profit"}
	NegativeWords = []string{"loss", "fall", "bear", "down", "miss", "decline", "risk"}
)

// Score sums, over every article, the occurrences of positive keywords minus the occurrences
// of negative keywords in the lowercased title and description. The result is not normalized
// by article count; an empty list scores 0.
func Score(articles []models.NewsArticle) int {
	score := 0
	for _, a := range articles {
		score += ScoreText(a.Text())
	}
	return score
}

// ScoreText scores a single piece of text.
func ScoreText(text string) int {
	text = strings.ToLower(text)
	score := 0
	for _, w := range PositiveWords {
		score += strings.Count(text, w)
	}
	for _, w := range NegativeWords {
		score -= strings.Count(text, w)
	}
	return score
}

// Scorer fetches recent articles for a ticker and scores them.
type Scorer struct {
	news     provider.NewsProvider
	lookback time.Duration
	now      func() time.Time
	log      logrus.FieldLogger
}

// NewScorer creates a Scorer. A nil news provider always scores 0.
func NewScorer(news provider.NewsProvider, lookbackDays int, log logrus.FieldLogger) *Scorer {
	return &Scorer{
		news:     news,
		lookback: time.Duration(lookbackDays) * 24 * time.Hour,
		now:      time.Now,
		log:      log,
	}
}

// Result is a scored fetch.
type Result struct {
	Score    int
	Articles int
	// Err is set when the provider failed; Score is 0 in that case.
	Err error
}

// ScoreTicker fetches and scores articles for ticker. Provider failures are not returned as
// errors: they yield a neutral score and are recorded in Result.Err.
func (s *Scorer) ScoreTicker(ctx context.Context, ticker string) Result {
	if s.news == nil {
		return Result{}
	}
	from := s.now().UTC().Add(-s.lookback)
	articles, err := s.news.Articles(ctx, ticker, from)
	if err != nil {
		s.log.WithFields(logrus.Fields{"ticker": ticker, "provider": s.news.Name()}).
			WithError(err).Warn("News fetch failed, using neutral sentiment")
		return Result{Err: err}
	}
	return Result{Score: Score(articles), Articles: len(articles)}
}
