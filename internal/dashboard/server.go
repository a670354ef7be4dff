// Package dashboard serves a read-only view of the simulated portfolio and the last trading
// pass.
package dashboard

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/NoCodeNomad/bot/internal/engine"
	"github.com/NoCodeNomad/bot/internal/ledger"
	"github.com/NoCodeNomad/bot/internal/storage"
)

//go:embed web/templates/*
var templateFS embed.FS

var dashboardTmpl = template.Must(template.ParseFS(templateFS, "web/templates/dashboard.html"))

// ReportSource returns the most recent completed pass, or nil before the first one.
type ReportSource interface {
	LastReport() *engine.PassReport
}

// Config configures the dashboard server.
type Config struct {
	Port      int
	AuthToken string
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

// Server is the dashboard HTTP server.
type Server struct {
	router    *chi.Mux
	server    *http.Server
	storage   storage.Interface
	reports   ReportSource
	logger    logrus.FieldLogger
	port      int
	authToken string
	now       func() time.Time
}

// PositionView is one open position as shown by the dashboard.
type PositionView struct {
	Ticker     string  `json:"ticker"`
	Quantity   float64 `json:"quantity"`
	AvgPrice   float64 `json:"avg_price"`
	CostBasis  float64 `json:"cost_basis"`
	LastPrice  float64 `json:"last_price,omitempty"`
	Value      float64 `json:"value"`
	PnL        float64 `json:"pnl"`
	PnLPercent float64 `json:"pnl_percent"`
	IsProfit   bool    `json:"is_profit"`
}

// PortfolioView is the persisted state plus marks from the last pass.
type PortfolioView struct {
	Balance   float64        `json:"balance"`
	Equity    float64        `json:"equity"`
	Positions []PositionView `json:"positions"`
	MarkedAt  *time.Time     `json:"marked_at,omitempty"`
}

// DashboardData feeds the HTML template.
type DashboardData struct {
	Portfolio  PortfolioView
	LastPass   *engine.PassReport
	Counts     map[engine.Outcome]int
	LastUpdate time.Time
}

// NewServer creates a dashboard server. reports may be nil.
func NewServer(cfg Config, store storage.Interface, reports ReportSource, logger logrus.FieldLogger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Server{
		router:    chi.NewRouter(),
		storage:   store,
		reports:   reports,
		logger:    logger,
		port:      cfg.Port,
		authToken: cfg.AuthToken,
		now:       time.Now,
	}
	s.setupRoutes(cfg.Metrics)
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes(metrics http.Handler) {
	s.router.Use(middleware.RequestID)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	if s.authToken != "" {
		s.router.Use(s.authMiddleware)
	}

	s.router.Get("/", s.handleDashboard)
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/api/portfolio", s.handleGetPortfolio)
	s.router.Get("/api/passes/last", s.handleGetLastPass)
	s.router.Get("/api/passes/last/{ticker}", s.handleGetTickerResult)
	if metrics != nil {
		s.router.Handle("/metrics", metrics)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("Dashboard request")
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get("X-Auth-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Start listens on the configured port until Shutdown. Shutdown before Start makes Start
// return immediately.
func (s *Server) Start() error {
	s.logger.Infof("Starting dashboard server on port %d", s.port)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	data, err := s.getDashboardData()
	if err != nil {
		s.logger.WithError(err).Error("Failed to get dashboard data")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTmpl.Execute(w, data); err != nil {
		s.logger.WithError(err).Error("Failed to execute dashboard template")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": s.now().Unix(),
	}
	if last := s.lastReport(); last != nil {
		health["last_pass"] = last.FinishedAt
	}
	s.writeJSON(w, health)
}

func (s *Server) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	view, err := s.portfolioView()
	if err != nil {
		s.logger.WithError(err).Error("Failed to load portfolio")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, view)
}

func (s *Server) handleGetLastPass(w http.ResponseWriter, r *http.Request) {
	last := s.lastReport()
	if last == nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, last)
}

func (s *Server) handleGetTickerResult(w http.ResponseWriter, r *http.Request) {
	last := s.lastReport()
	if last == nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	res, ok := last.Result(chi.URLParam(r, "ticker"))
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, res)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) lastReport() *engine.PassReport {
	if s.reports == nil {
		return nil
	}
	return s.reports.LastReport()
}

func (s *Server) getDashboardData() (*DashboardData, error) {
	view, err := s.portfolioView()
	if err != nil {
		return nil, err
	}
	data := &DashboardData{Portfolio: *view, LastUpdate: s.now()}
	if last := s.lastReport(); last != nil {
		data.LastPass = last
		data.Counts = last.Counts()
	}
	return data, nil
}

// portfolioView loads persisted state and marks open positions at the prices observed in the
// last pass. Unmarked positions are valued at their average price.
func (s *Server) portfolioView() (*PortfolioView, error) {
	p, err := s.storage.Load()
	if err != nil {
		return nil, err
	}

	marks := make(map[string]float64)
	view := &PortfolioView{Balance: p.Balance()}
	if last := s.lastReport(); last != nil {
		for _, res := range last.Results {
			if res.Price > 0 {
				marks[res.Ticker] = res.Price
			}
		}
		at := last.FinishedAt
		view.MarkedAt = &at
	}

	view.Positions = positionViews(p, marks)
	view.Equity = p.Equity(marks)
	return view, nil
}

func positionViews(p *ledger.Portfolio, marks map[string]float64) []PositionView {
	views := make([]PositionView, 0)
	for ticker, pos := range p.Positions() {
		if !pos.IsOpen() {
			continue
		}
		cost := pos.Quantity * pos.AvgPrice
		v := PositionView{
			Ticker:    ticker,
			Quantity:  pos.Quantity,
			AvgPrice:  pos.AvgPrice,
			CostBasis: cost,
			Value:     cost,
		}
		if mark, ok := marks[ticker]; ok {
			v.LastPrice = mark
			v.Value = pos.MarketValue(mark)
		}
		v.PnL = v.Value - cost
		if cost > 0 {
			v.PnLPercent = v.PnL / cost * 100
		}
		v.IsProfit = v.PnL > 0
		views = append(views, v)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Ticker < views[j].Ticker })
	return views
}
