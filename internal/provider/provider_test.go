package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

func serve(t *testing.T, wantPath string, status int, body string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != wantPath {
			t.Errorf("path = %q, want %q", r.URL.Path, wantPath)
		}
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAPIError_Error(t *testing.T) {
	err := &APIError{Provider: "finnhub", Status: 429, Body: "too many requests"}
	want := "finnhub API error 429: too many requests"
	if got := err.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestFinnhub_LatestPrice(t *testing.T) {
	srv := serve(t, "/quote", http.StatusOK, `{"c": 187.12, "pc": 185.0, "t": 1700000000}`, func(r *http.Request) {
		if got := r.URL.Query().Get("symbol"); got != "AAPL" {
			t.Errorf("symbol = %q", got)
		}
		if got := r.URL.Query().Get("token"); got != "k" {
			t.Errorf("token = %q", got)
		}
	})
	f := NewFinnhub(Options{APIKey: "k", BaseURL: srv.URL})

	got, err := f.LatestPrice(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("LatestPrice: %v", err)
	}
	if got != 187.12 {
		t.Fatalf("price = %v, want 187.12", got)
	}
}

func TestFinnhub_BadPrices(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero", `{"c": 0}`},
		{"negative", `{"c": -1}`},
		{"missing", `{"pc": 3}`},
		{"null", `{"c": null}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, "/quote", http.StatusOK, tt.body, nil)
			_, err := NewFinnhub(Options{APIKey: "k", BaseURL: srv.URL}).LatestPrice(context.Background(), "X")
			if !errors.Is(err, ErrBadPrice) {
				t.Fatalf("err = %v, want ErrBadPrice", err)
			}
		})
	}
}

func TestFinnhub_NonNumeric(t *testing.T) {
	srv := serve(t, "/quote", http.StatusOK, `{"c": "abc"}`, nil)
	if _, err := NewFinnhub(Options{APIKey: "k", BaseURL: srv.URL}).LatestPrice(context.Background(), "X"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestClient_HTTPErrorDoesNotLeakKey(t *testing.T) {
	srv := serve(t, "/quote", http.StatusTooManyRequests, `{"error":"limit"}`, nil)
	_, err := NewFinnhub(Options{APIKey: "s3cret", BaseURL: srv.URL}).LatestPrice(context.Background(), "X")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusTooManyRequests {
		t.Fatalf("status = %d", apiErr.Status)
	}
	if strings.Contains(err.Error(), "s3cret") {
		t.Fatalf("error leaks api key: %v", err)
	}
}

func TestClient_MissingKey(t *testing.T) {
	_, err := NewPolygon(Options{BaseURL: "http://unused.invalid"}).LatestPrice(context.Background(), "X")
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
}

func TestNewClient_BaseURLNormalization(t *testing.T) {
	if got := NewFinnhub(Options{}).baseURL; got != FinnhubBaseURL {
		t.Fatalf("default baseURL = %q", got)
	}
	if got := NewFinnhub(Options{BaseURL: "https://example.test/api/"}).baseURL; got != "https://example.test/api" {
		t.Fatalf("trimmed baseURL = %q", got)
	}
}

func TestPolygon_LatestPrice(t *testing.T) {
	srv := serve(t, "/v1/last/stocks/MSFT", http.StatusOK,
		`{"status":"success","symbol":"MSFT","last":{"price":412.5,"size":100,"timestamp":1}}`, nil)
	got, err := NewPolygon(Options{APIKey: "k", BaseURL: srv.URL}).LatestPrice(context.Background(), "MSFT")
	if err != nil || got != 412.5 {
		t.Fatalf("LatestPrice = %v, %v", got, err)
	}

	missing := serve(t, "/v1/last/stocks/MSFT", http.StatusOK, `{"status":"NOT_FOUND"}`, nil)
	if _, err := NewPolygon(Options{APIKey: "k", BaseURL: missing.URL}).LatestPrice(context.Background(), "MSFT"); !errors.Is(err, ErrBadPrice) {
		t.Fatalf("err = %v, want ErrBadPrice", err)
	}
}

func TestTwelveData_LatestPrice(t *testing.T) {
	srv := serve(t, "/price", http.StatusOK, `{"price":"101.25000"}`, nil)
	got, err := NewTwelveData(Options{APIKey: "k", BaseURL: srv.URL}).LatestPrice(context.Background(), "IBM")
	if err != nil || got != 101.25 {
		t.Fatalf("LatestPrice = %v, %v", got, err)
	}

	bad := serve(t, "/price", http.StatusOK, `{"price":"n/a"}`, nil)
	if _, err := NewTwelveData(Options{APIKey: "k", BaseURL: bad.URL}).LatestPrice(context.Background(), "IBM"); !errors.Is(err, ErrBadPrice) {
		t.Fatalf("err = %v, want ErrBadPrice", err)
	}

	apiErr := serve(t, "/price", http.StatusOK, `{"code":404,"message":"symbol not found","status":"error"}`, nil)
	_, err = NewTwelveData(Options{APIKey: "k", BaseURL: apiErr.URL}).LatestPrice(context.Background(), "IBM")
	var ae *APIError
	if !errors.As(err, &ae) || ae.Status != 404 {
		t.Fatalf("err = %v, want APIError 404", err)
	}
}

func TestTwelveData_Series(t *testing.T) {
	body := `{"status":"ok","values":[
		{"datetime":"2025-03-12 15:45:00","open":"10","high":"11","low":"9","close":"10.5","volume":"100"},
		{"datetime":"2025-03-12 15:30:00","open":"9","high":"10","low":"8","close":"9.5","volume":"90"}]}`
	srv := serve(t, "/time_series", http.StatusOK, body, func(r *http.Request) {
		if got := r.URL.Query().Get("interval"); got != "15min" {
			t.Errorf("interval = %q", got)
		}
	})
	bars, err := NewTwelveData(Options{APIKey: "k", BaseURL: srv.URL}).IntradaySeries(context.Background(), "IBM")
	if err != nil {
		t.Fatalf("IntradaySeries: %v", err)
	}
	if len(bars) != 2 || bars[0].Close != 10.5 || bars[1].Volume != 90 {
		t.Fatalf("bars = %+v", bars)
	}
}

func TestAlphaVantage_IntradaySeries(t *testing.T) {
	body := `{"Meta Data":{},"Time Series (15min)":{
		"2025-03-12 15:45:00":{"1. open":"1","2. high":"2","3. low":"0.5","4. close":"1.5","5. volume":"10"},
		"2025-03-12 16:00:00":{"1. open":"1.5","2. high":"2","3. low":"1","4. close":"1.75","5. volume":"12"},
		"2025-03-12 15:30:00":{"1. open":"1","2. high":"1","3. low":"1","4. close":"1.0","5. volume":"5"}}}`
	srv := serve(t, "/query", http.StatusOK, body, func(r *http.Request) {
		q := r.URL.Query()
		if q.Get("function") != "TIME_SERIES_INTRADAY" || q.Get("interval") != "15min" || q.Get("outputsize") != "compact" {
			t.Errorf("query = %v", q)
		}
	})
	bars, err := NewAlphaVantage(Options{APIKey: "k", BaseURL: srv.URL}).IntradaySeries(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("IntradaySeries: %v", err)
	}
	if len(bars) != 3 {
		t.Fatalf("len = %d", len(bars))
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	if bars[2].Close != 1.75 || bars[1].Close != 1.5 {
		t.Fatalf("closes = %v %v", bars[1].Close, bars[2].Close)
	}
}

func TestAlphaVantage_RateLimitNote(t *testing.T) {
	srv := serve(t, "/query", http.StatusOK, `{"Note":"Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`, nil)
	_, err := NewAlphaVantage(Options{APIKey: "k", BaseURL: srv.URL}).IntradaySeries(context.Background(), "AAPL")
	var ae *APIError
	if !errors.As(err, &ae) || !strings.Contains(ae.Body, "call frequency") {
		t.Fatalf("err = %v, want APIError with note", err)
	}
}

func TestAlphaVantage_DailyOutputSize(t *testing.T) {
	var mu sync.Mutex
	var seen string
	srv := serve(t, "/query", http.StatusOK, `{"Time Series (Daily)":{}}`, func(r *http.Request) {
		mu.Lock()
		seen = r.URL.Query().Get("outputsize")
		mu.Unlock()
	})
	got := func() string {
		mu.Lock()
		defer mu.Unlock()
		return seen
	}
	a := NewAlphaVantage(Options{APIKey: "k", BaseURL: srv.URL})
	if _, err := a.DailyBars(context.Background(), "AAPL", 60); err != nil {
		t.Fatalf("DailyBars: %v", err)
	}
	if got() != "compact" {
		t.Fatalf("outputsize = %q, want compact", got())
	}
	if _, err := a.DailyBars(context.Background(), "AAPL", 250); err != nil {
		t.Fatalf("DailyBars: %v", err)
	}
	if got() != "full" {
		t.Fatalf("outputsize = %q, want full", got())
	}
}

func TestNewsAPI_Articles(t *testing.T) {
	from := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)
	body := `{"status":"ok","totalResults":2,"articles":[
		{"title":"AAPL shares rise","description":"Strong growth","url":"https://x.test/1","publishedAt":"2025-03-11T10:00:00Z"},
		{"title":"Quiet day","description":null,"url":"https://x.test/2","publishedAt":"bogus"}]}`
	srv := serve(t, "/everything", http.StatusOK, body, func(r *http.Request) {
		q := r.URL.Query()
		if q.Get("q") != "AAPL" || q.Get("from") != "2025-03-09" || q.Get("sortBy") != "publishedAt" ||
			q.Get("language") != "en" || q.Get("pageSize") != "5" || q.Get("apiKey") != "k" {
			t.Errorf("query = %v", q)
		}
	})

	articles, err := NewNewsAPI(Options{APIKey: "k", BaseURL: srv.URL}, 5, "en").Articles(context.Background(), "AAPL", from)
	if err != nil {
		t.Fatalf("Articles: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("len = %d", len(articles))
	}
	if articles[0].Title != "AAPL shares rise" || articles[0].PublishedAt.IsZero() {
		t.Fatalf("article[0] = %+v", articles[0])
	}
	if articles[1].Description != "" || !articles[1].PublishedAt.IsZero() {
		t.Fatalf("article[1] = %+v", articles[1])
	}
}

func TestNewsAPI_StatusNotOK(t *testing.T) {
	srv := serve(t, "/everything", http.StatusOK, `{"status":"error","code":"rateLimited","message":"slow down"}`, nil)
	if _, err := NewNewsAPI(Options{APIKey: "k", BaseURL: srv.URL}, 0, "").Articles(context.Background(), "AAPL", time.Now()); err == nil {
		t.Fatal("expected error for status != ok")
	}
}

func TestTradingEconomics_Events(t *testing.T) {
	body := `[
		{"Country":"United States","Event":"CPI","Date":"2025-03-12T12:30:00","Impact":"High"},
		{"Country":"Germany","Event":"ZEW","Date":"2025-03-12T10:00:00","Importance":3},
		{"Country":"Japan","Event":"PPI","Date":"not a date","Impact":"high"},
		{"Country":"France","Event":"CPI","Date":"2025-03-12T07:45:00","Importance":1}]`
	srv := serve(t, "/calendar", http.StatusOK, body, func(r *http.Request) {
		if r.URL.Query().Get("c") != "k" || r.URL.Query().Get("f") != "json" {
			t.Errorf("query = %v", r.URL.Query())
		}
	})
	events, err := NewTradingEconomics(Options{APIKey: "k", BaseURL: srv.URL}).Events(context.Background())
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("len = %d, want 3 (bad date dropped)", len(events))
	}
	want := time.Date(2025, 3, 12, 12, 30, 0, 0, time.UTC)
	if !events[0].Date.Equal(want) || !events[0].IsHighImpact() {
		t.Fatalf("event[0] = %+v", events[0])
	}
	if !events[1].IsHighImpact() {
		t.Fatalf("importance 3 should map to high: %+v", events[1])
	}
	if events[2].IsHighImpact() {
		t.Fatalf("importance 1 is not high: %+v", events[2])
	}
}

type flakyPrice struct {
	calls int
	err   error
}

func (f *flakyPrice) Name() string { return "flaky" }

func (f *flakyPrice) LatestPrice(context.Context, string) (float64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return 1, nil
}

func TestWithBreakers_TripsAndShortCircuits(t *testing.T) {
	inner := &flakyPrice{err: errors.New("down")}
	settings := BreakerSettings{MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute, MinRequests: 3, FailureRatio: 0.5}
	set := Set{Prices: []PriceProvider{inner}}.WithBreakers(settings, nil)

	p := set.Prices[0]
	if p.Name() != "flaky" {
		t.Fatalf("Name() = %q", p.Name())
	}
	for i := 0; i < 3; i++ {
		_, _ = p.LatestPrice(context.Background(), "X")
	}
	_, err := p.LatestPrice(context.Background(), "X")
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("err = %v, want ErrOpenState", err)
	}
	if inner.calls != 3 {
		t.Fatalf("inner calls = %d, want 3", inner.calls)
	}
}

func TestWithBreakers_CancelDoesNotTrip(t *testing.T) {
	inner := &flakyPrice{err: context.Canceled}
	settings := BreakerSettings{MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute, MinRequests: 2, FailureRatio: 0.5}
	p := Set{Prices: []PriceProvider{inner}}.WithBreakers(settings, nil).Prices[0]
	for i := 0; i < 5; i++ {
		_, _ = p.LatestPrice(context.Background(), "X")
	}
	if inner.calls != 5 {
		t.Fatalf("inner calls = %d, want 5", inner.calls)
	}
}

func TestWithBreakers_NilMembers(t *testing.T) {
	set := Set{}.WithBreakers(DefaultBreakerSettings(), nil)
	if set.News != nil || set.Calendar != nil || set.Bars != nil {
		t.Fatalf("nil members must stay nil: %+v", set)
	}
}
