package provider

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/NoCodeNomad/bot/internal/models"
)

// Default news and calendar endpoints.
const (
	NewsAPIBaseURL          = "https://newsapi.org/v2"
	TradingEconomicsBaseURL = "https://api.tradingeconomics.com"
)

// NewsAPI implements NewsProvider via the /everything endpoint.
type NewsAPI struct {
	client
	pageSize int
	language string
}

// NewNewsAPI creates a NewsAPI client returning at most pageSize articles in language.
func NewNewsAPI(opts Options, pageSize int, language string) *NewsAPI {
	if pageSize <= 0 {
		pageSize = 5
	}
	if language == "" {
		language = "en"
	}
	return &NewsAPI{
		client:   newClient("newsapi", NewsAPIBaseURL, opts),
		pageSize: pageSize,
		language: language,
	}
}

type newsAPIResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// Articles returns the newest articles matching ticker published since from.
func (n *NewsAPI) Articles(ctx context.Context, ticker string, from time.Time) ([]models.NewsArticle, error) {
	if err := n.requireKey(); err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("q", ticker)
	params.Set("from", from.UTC().Format("2006-01-02"))
	params.Set("sortBy", "publishedAt")
	params.Set("language", n.language)
	params.Set("pageSize", strconv.Itoa(n.pageSize))
	params.Set("apiKey", n.apiKey)

	var resp newsAPIResponse
	if err := n.getJSON(ctx, "/everything", params, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "ok" {
		return nil, &APIError{Provider: n.name, Status: 200, Body: fmt.Sprintf("status %q: %s %s", resp.Status, resp.Code, resp.Message)}
	}

	articles := make([]models.NewsArticle, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		article := models.NewsArticle{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
		}
		if ts, err := time.Parse(time.RFC3339, a.PublishedAt); err == nil {
			article.PublishedAt = ts
		}
		articles = append(articles, article)
	}
	return articles, nil
}

// TradingEconomics implements CalendarProvider via the /calendar endpoint.
type TradingEconomics struct {
	client
}

// NewTradingEconomics creates a Trading Economics client.
func NewTradingEconomics(opts Options) *TradingEconomics {
	return &TradingEconomics{client: newClient("tradingeconomics", TradingEconomicsBaseURL, opts)}
}

type tradingEconomicsEvent struct {
	Country    string `json:"Country"`
	Event      string `json:"Event"`
	Date       string `json:"Date"`
	Impact     string `json:"Impact"`
	Importance int    `json:"Importance"`
}

// calendarDateLayout is the calendar's timestamp format (UTC, no zone designator).
const calendarDateLayout = "2006-01-02T15:04:05"

// Events returns the calendar. Entries with an unparseable date are dropped.
func (te *TradingEconomics) Events(ctx context.Context) ([]models.EconomicEvent, error) {
	if err := te.requireKey(); err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("c", te.apiKey)
	params.Set("f", "json")

	var resp []tradingEconomicsEvent
	if err := te.getJSON(ctx, "/calendar", params, &resp); err != nil {
		return nil, err
	}

	events := make([]models.EconomicEvent, 0, len(resp))
	for _, e := range resp {
		ts, err := time.Parse(calendarDateLayout, strings.TrimSuffix(e.Date, "Z"))
		if err != nil {
			te.log.WithField("date", e.Date).Debug("Dropping calendar event with unparseable date")
			continue
		}
		impact := e.Impact
		if impact == "" && e.Importance >= 3 {
			impact = models.ImpactHigh
		}
		events = append(events, models.EconomicEvent{
			Country: e.Country,
			Event:   e.Event,
			Date:    ts,
			Impact:  impact,
		})
	}
	return events, nil
}
