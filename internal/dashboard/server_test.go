package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NoCodeNomad/bot/internal/engine"
	"github.com/NoCodeNomad/bot/internal/models"
	"github.com/NoCodeNomad/bot/internal/storage"
)

type staticReports struct {
	report *engine.PassReport
}

func (s staticReports) LastReport() *engine.PassReport { return s.report }

func newTestServer(t *testing.T, token string, report *engine.PassReport) (*Server, *storage.MockStorage) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	store := storage.NewMockStorage(8000)
	store.SetPosition("AAPL", models.Position{Quantity: 10, AvgPrice: 100})
	store.SetPosition("MSFT", models.Position{Quantity: 4, AvgPrice: 250})
	store.SetPosition("GONE", models.Position{})
	s := NewServer(Config{Port: 8080, AuthToken: token}, store, staticReports{report: report}, logger)
	return s, store
}

func get(t *testing.T, h http.Handler, path string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, "secret", nil)
	rec := get(t, s.Handler(), "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestAuthMiddleware(t *testing.T) {
	s, _ := newTestServer(t, "secret", nil)
	h := s.Handler()

	assert.Equal(t, http.StatusUnauthorized, get(t, h, "/api/portfolio", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, h, "/api/portfolio", map[string]string{"X-Auth-Token": "wrong"}).Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/api/portfolio", map[string]string{"X-Auth-Token": "secret"}).Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/api/portfolio?token=secret", nil).Code)
}

func TestPortfolioMarksFromLastPass(t *testing.T) {
	report := &engine.PassReport{
		ID:         "pass-1",
		FinishedAt: time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC),
		Results: []engine.TickerResult{
			{Ticker: "AAPL", Price: 110, Outcome: engine.OutcomeHeld, Signal: models.SignalHold},
		},
	}
	s, _ := newTestServer(t, "", report)

	rec := get(t, s.Handler(), "/api/portfolio", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var view PortfolioView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.InDelta(t, 8000, view.Balance, 1e-9)
	assert.InDelta(t, 8000+1100+1000, view.Equity, 1e-9)
	require.Len(t, view.Positions, 2)

	aapl := view.Positions[0]
	assert.Equal(t, "AAPL", aapl.Ticker)
	assert.InDelta(t, 110, aapl.LastPrice, 1e-9)
	assert.InDelta(t, 100, aapl.PnL, 1e-9)
	assert.InDelta(t, 10, aapl.PnLPercent, 1e-9)
	assert.True(t, aapl.IsProfit)

	msft := view.Positions[1]
	assert.Equal(t, "MSFT", msft.Ticker)
	assert.Zero(t, msft.LastPrice)
	assert.InDelta(t, 1000, msft.Value, 1e-9)
	assert.Zero(t, msft.PnL)
}

func TestLastPass(t *testing.T) {
	s, _ := newTestServer(t, "", nil)
	assert.Equal(t, http.StatusNotFound, get(t, s.Handler(), "/api/passes/last", nil).Code)

	report := &engine.PassReport{
		ID:       "pass-2",
		Strategy: "rules",
		Results: []engine.TickerResult{
			{Ticker: "AAPL", Outcome: engine.OutcomeBought, Signal: models.SignalBuy, Amount: 800},
		},
	}
	s, _ = newTestServer(t, "", report)

	rec := get(t, s.Handler(), "/api/passes/last", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got engine.PassReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "pass-2", got.ID)
	require.Len(t, got.Results, 1)
	assert.Equal(t, engine.OutcomeBought, got.Results[0].Outcome)

	rec = get(t, s.Handler(), "/api/passes/last/AAPL", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"outcome":"bought"`)

	assert.Equal(t, http.StatusNotFound, get(t, s.Handler(), "/api/passes/last/NVDA", nil).Code)
}

func TestDashboardPage(t *testing.T) {
	report := &engine.PassReport{
		ID:         "pass-3",
		Strategy:   "rules",
		FinishedAt: time.Now(),
		Results:    []engine.TickerResult{{Ticker: "AAPL", Outcome: engine.OutcomeHeld, Price: 101}},
	}
	s, _ := newTestServer(t, "", report)

	rec := get(t, s.Handler(), "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "pass-3"))
	assert.Contains(t, body, "MSFT")
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}

func TestPortfolioLoadError(t *testing.T) {
	s, store := newTestServer(t, "", nil)
	store.SetLoadError(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, get(t, s.Handler(), "/api/portfolio", nil).Code)
}

func TestMetricsMount(t *testing.T) {
	logger, _ := test.NewNullLogger()
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("bot_passes_total 1\n"))
	})
	s := NewServer(Config{Metrics: metrics}, storage.NewMockStorage(0), nil, logger)
	rec := get(t, s.Handler(), "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bot_passes_total")
}
