// Package http exposes the planner session as a JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"moneyplanner/internal/core"
	"moneyplanner/internal/ledger"
	applog "moneyplanner/internal/log"
	"moneyplanner/internal/metrics"
	"moneyplanner/internal/middleware/ratelimit"
	"moneyplanner/internal/middleware/security"
	"moneyplanner/internal/middleware/trace"
)

// maxBodyBytes bounds request bodies, imports included.
const maxBodyBytes = 5 << 20

// Planner is the session the API drives. *services.PlannerService satisfies it.
type Planner interface {
	RecordIncome(ctx context.Context, amount, source string) (core.Transaction, error)
	RecordExpense(ctx context.Context, amount, category string) (core.Transaction, error)
	SetGoals(ctx context.Context, savingsGoal, budgetLimit string) error
	Reset(ctx context.Context) error
	SetCurrency(ctx context.Context, code string) (core.Currency, error)
	Import(ctx context.Context, data []byte) error

	Snapshot() (ledger.State, core.Currency)
	BudgetProgress() core.Progress
	SavingsProgress() core.Progress
	CategoryBreakdown() []core.CategoryShare
	RecentTransactions(limit int) []core.Transaction

	ExportJSON() ([]byte, error)
	ExportCSV() (string, error)
	ExportTabSeparated() (string, error)
}

// Options tunes a Server. The zero value is usable.
type Options struct {
	RateLimitPerMinute int
	RecentLimit        int
	Metrics            metrics.Collector
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
	// Ready backs /readyz; nil means always ready.
	Ready  func(ctx context.Context) error
	Logger *applog.Logger
	Now    func() time.Time
}

type Server struct {
	http.Server
	planner     Planner
	rateLimiter *ratelimit.Limiter
	ready       func(ctx context.Context) error
	recentLimit int
	now         func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, planner Planner, opts Options) *Server {
	if opts.Metrics == nil {
		opts.Metrics = metrics.NoOp{}
	}
	if opts.RecentLimit < 1 {
		opts.RecentLimit = core.DefaultRecentLimit
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		planner:     planner,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		ready:       opts.Ready,
		recentLimit: opts.RecentLimit,
		now:         opts.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", opts.MetricsHandler)
	}

	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/income", s.handleRecordIncome)
	mux.HandleFunc("POST /api/expenses", s.handleRecordExpense)
	mux.HandleFunc("POST /api/goals", s.handleSetGoals)
	mux.HandleFunc("POST /api/reset", s.handleReset)
	mux.HandleFunc("PUT /api/currency", s.handleSetCurrency)
	mux.HandleFunc("GET /api/progress", s.handleProgress)
	mux.HandleFunc("GET /api/breakdown", s.handleBreakdown)
	mux.HandleFunc("GET /api/transactions", s.handleTransactions)
	mux.HandleFunc("GET /api/export/json", s.handleExportJSON)
	mux.HandleFunc("GET /api/export/csv", s.handleExportCSV)
	mux.HandleFunc("GET /api/export/tsv", s.handleExportTSV)
	mux.HandleFunc("POST /api/import", s.handleImport)
	mux.HandleFunc("GET /api/categories", handleCategories)
	mux.HandleFunc("GET /api/currencies", s.handleCurrencies)

	detector := security.NewDetector()
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(detector.ExtractClientIP, opts.Metrics.RecordHTTP).
		WithRoute(func(r *http.Request) string {
			if _, pattern := mux.Handler(r); pattern != "" {
				return pattern
			}
			return "unmatched"
		})
	limit := s.rateLimiter.Middleware(detector.ExtractClientIP, ratelimit.ReadOnly, func(w http.ResponseWriter, r *http.Request) {
		_ = ErrorResponse(http.StatusTooManyRequests, "rate-limited").Write(w)
	})

	var handler http.Handler = mux
	handler = limit(handler)
	handler = applog.RequestIDMiddleware(trace.RequestID)(handler)
	handler = applog.Middleware(opts.Logger)(handler)
	handler = detector.Middleware(handler)
	handler = tracer.Middleware(handler)
	handler = headers.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and the rate limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			slog.WarnContext(r.Context(), "Readiness check failed", "error", err)
			_ = ErrorResponse(http.StatusServiceUnavailable, "not-ready").Write(w)
			return
		}
	}
	_ = NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}
