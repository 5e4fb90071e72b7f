package http

import (
	"errors"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"finbot/internal/core"
	"finbot/internal/ledger"
	"finbot/internal/log"
)

// persistWarning is returned alongside a mutation that is kept in memory but
// could not be written to the store.
const persistWarning = "saved in memory but not persisted"

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type transactionRequest struct {
	Type        core.TransactionType `json:"type"`
	Amount      decimal.Decimal      `json:"amount"`
	Description string               `json:"description"`
	Category    core.CategoryKey     `json:"category"`
}

type goalRequest struct {
	Title        string          `json:"title"`
	TargetAmount decimal.Decimal `json:"targetAmount"`
	Description  string          `json:"description"`
}

type goalView struct {
	core.Goal
	Status ledger.GoalStatus `json:"status"`
}

// isValidationError separates rejected input from persistence failures.
func isValidationError(err error) bool {
	return errors.Is(err, ledger.ErrInvalidAmount) ||
		errors.Is(err, core.ErrInvalidAmount) ||
		errors.Is(err, core.ErrInvalidType) ||
		errors.Is(err, core.ErrEmptyTitle)
}

// writeMutation answers a ledger write. Validation errors are 422; a failed
// persist still returns the kept value with a warning.
func (s *Server) writeMutation(w http.ResponseWriter, r *http.Request, status int, body map[string]any, err error) {
	if err != nil && isValidationError(err) {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Ledger mutation not persisted", log.FieldError, err)
		body["warning"] = persistWarning
	}
	NewResponse().Status(status).JSON(body).Write(w)
}

func (s *Server) handleMonthlyStats(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	stats := s.ledger.MonthlyStats()
	if params.Explicit {
		stats = s.ledger.StatsFor(params.Year, params.Month)
	}
	NewResponse().JSON(stats).Write(w)
}

func (s *Server) handleCategoryStats(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{"categories": s.ledger.CategoryStats()}).Write(w)
}

func (s *Server) handleWeeklyStats(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{"days": s.ledger.WeeklySeries()}).Write(w)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.ledger.BudgetStatus()).Write(w)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := DecodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	err := s.ledger.SetMonthlyBudget(r.Context(), req.Amount)
	s.writeMutation(w, r, http.StatusOK, map[string]any{"budget": s.ledger.BudgetStatus()}, err)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := DecodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	desc := sanitizeInput(req.Description)
	category := core.CategoryKey(strings.ToLower(strings.TrimSpace(string(req.Category))))
	if category == "" && req.Type == core.Expense {
		category = core.Classify(desc)
	}

	tx, err := s.ledger.AddTransaction(r.Context(), req.Type, req.Amount, desc, category)
	if err == nil || !isValidationError(err) {
		atomic.AddInt64(&s.appMetrics.transactions, 1)
	}
	s.writeMutation(w, r, http.StatusCreated, map[string]any{"transaction": tx}, err)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals := s.ledger.Goals()
	views := make([]goalView, 0, len(goals))
	for _, g := range goals {
		views = append(views, goalView{Goal: g, Status: s.ledger.GoalStatus(g)})
	}
	NewResponse().JSON(map[string]any{
		"goals":   views,
		"summary": s.ledger.GoalsSummary(),
	}).Write(w)
}

func (s *Server) handleAddGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := DecodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	g, err := s.ledger.AddGoal(r.Context(), sanitizeInput(req.Title), req.TargetAmount, sanitizeInput(req.Description))
	if err == nil || !isValidationError(err) {
		atomic.AddInt64(&s.appMetrics.goals, 1)
	}
	s.writeMutation(w, r, http.StatusCreated, map[string]any{"goal": goalView{Goal: g, Status: s.ledger.GoalStatus(g)}}, err)
}

func (s *Server) handleGoalProgress(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.ledger.Goal(id); errors.Is(err, ledger.ErrGoalNotFound) {
		NotFoundError("goal not found").Write(w)
		return
	}

	var req amountRequest
	if err := DecodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if !req.Amount.IsPositive() {
		UnprocessableEntityError(ledger.ErrInvalidAmount.Error()).Write(w)
		return
	}

	err := s.ledger.UpdateGoalProgress(r.Context(), id, req.Amount)
	g, _ := s.ledger.Goal(id)
	s.writeMutation(w, r, http.StatusOK, map[string]any{"goal": goalView{Goal: g, Status: s.ledger.GoalStatus(g)}}, err)
}
