package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"finbot/internal/chat"
	"finbot/internal/core"
	"finbot/internal/ledger"
	"finbot/internal/log"
	"finbot/internal/middleware/ratelimit"
	"finbot/internal/middleware/security"
	"finbot/internal/middleware/trace"
)

// Ledger is what the API reads and mutates.
type Ledger interface {
	MonthlyStats() ledger.Stats
	StatsFor(year int, month time.Month) ledger.Stats
	CategoryStats() []ledger.CategoryStat
	WeeklySeries() []ledger.DayTotals
	BudgetStatus() ledger.Budget
	SetMonthlyBudget(ctx context.Context, amount decimal.Decimal) error
	AddTransaction(ctx context.Context, typ core.TransactionType, amount decimal.Decimal, description string, category core.CategoryKey) (core.Transaction, error)
	Goals() []core.Goal
	Goal(id string) (core.Goal, error)
	AddGoal(ctx context.Context, title string, target decimal.Decimal, description string) (core.Goal, error)
	UpdateGoalProgress(ctx context.Context, id string, delta decimal.Decimal) error
	GoalStatus(g core.Goal) ledger.GoalStatus
	GoalsSummary() ledger.GoalsSummary
}

// Sessions hands out chat sessions by id.
type Sessions interface {
	Session(id string) (*chat.Session, bool)
	Len() int
}

// ReadinessCheck reports whether a dependency is reachable.
type ReadinessCheck func(ctx context.Context) error

type Server struct {
	http.Server

	ledger   Ledger
	sessions Sessions
	checks   map[string]ReadinessCheck
	logger   *log.Logger
	now      func() time.Time

	secureCookies bool

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	appMetrics   *appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	messages     int64
	transactions int64
	goals        int64
	uptime       time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithReadinessCheck adds a named dependency to /readyz.
func WithReadinessCheck(name string, check ReadinessCheck) Option {
	return func(s *Server) { s.checks[name] = check }
}

// WithTrustedProxies adds proxy networks whose forwarding headers name the
// client. Invalid CIDRs are logged and skipped.
func WithTrustedProxies(cidrs ...string) Option {
	return func(s *Server) {
		for _, cidr := range cidrs {
			if err := s.securityDetector.AddTrustedProxy(cidr); err != nil {
				s.logger.Warn("Ignoring trusted proxy", log.FieldError, err)
			}
		}
	}
}

// WithRateLimit sets the per-client write limit per minute.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) {
		cfg := ratelimit.DefaultConfig()
		cfg.RequestsPerMinute = perMinute
		s.rateLimiter.Stop()
		s.rateLimiter = ratelimit.NewLimiter(cfg)
	}
}

// WithSecureCookies marks the session cookie Secure.
func WithSecureCookies(secure bool) Option {
	return func(s *Server) { s.secureCookies = secure }
}

// WithClock overrides the time source for month defaults.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, l Ledger, sessions Sessions, opts ...Option) *Server {
	s := &Server{
		ledger:           l,
		sessions:         sessions,
		checks:           make(map[string]ReadinessCheck),
		logger:           log.NewLogger(log.ComponentHTTP),
		now:              time.Now,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		securityDetector: security.NewDetector(),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP)

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.wrap(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/messages", s.handleListMessages)
	mux.HandleFunc("POST /api/messages", s.handleSendMessage)
	mux.HandleFunc("DELETE /api/messages", s.handleClearMessages)
	mux.HandleFunc("GET /api/suggestions", s.handleSuggestions)

	mux.HandleFunc("GET /api/stats/monthly", s.handleMonthlyStats)
	mux.HandleFunc("GET /api/stats/categories", s.handleCategoryStats)
	mux.HandleFunc("GET /api/stats/weekly", s.handleWeeklyStats)
	mux.HandleFunc("GET /api/budget", s.handleGetBudget)
	mux.HandleFunc("PUT /api/budget", s.handleSetBudget)

	mux.HandleFunc("POST /api/transactions", s.handleAddTransaction)
	mux.HandleFunc("GET /api/goals", s.handleListGoals)
	mux.HandleFunc("POST /api/goals", s.handleAddGoal)
	mux.HandleFunc("POST /api/goals/{id}/progress", s.handleGoalProgress)
}

// wrap applies middleware outermost first: trace, security headers,
// suspicious request detection, then rate limiting of writes.
func (s *Server) wrap(h http.Handler) http.Handler {
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
	}
	h = log.Middleware(s.logger, func(r *http.Request) string { return trace.GetRequestID(r.Context()) })(h)
	h = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, onLimit)(h)
	h = s.securityDetector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.traceMiddleware.Middleware(h)
	return h
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
