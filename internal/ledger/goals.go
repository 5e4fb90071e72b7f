package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"finbot/internal/core"
)

// GoalState is the progress label shown next to a goal.
type GoalState string

const (
	GoalCompleted GoalState = "completed"
	GoalNear      GoalState = "near"
	GoalBehind    GoalState = "behind"
	GoalOnTrack   GoalState = "on-track"
)

const behindAfter = 30 * 24 * time.Hour

var (
	nearPercent   = decimal.NewFromInt(75)
	behindPercent = decimal.NewFromInt(25)
	fullPercent   = decimal.NewFromInt(100)
)

// GoalStatus is the derived state of one goal.
type GoalStatus struct {
	State    GoalState       `json:"state"`
	Label    string          `json:"label"`
	Progress decimal.Decimal `json:"progress"`
}

// GoalsSummary aggregates all goals.
type GoalsSummary struct {
	Active     int             `json:"active"`
	Completed  int             `json:"completed"`
	TotalSaved decimal.Decimal `json:"totalSaved"`
}

// StatusOf classifies g as of now.
func StatusOf(g core.Goal, now time.Time) GoalStatus {
	p := g.Progress()
	st := GoalStatus{Progress: p}
	switch {
	case p.GreaterThanOrEqual(fullPercent):
		st.State, st.Label = GoalCompleted, "¡Meta alcanzada!"
	case p.GreaterThanOrEqual(nearPercent):
		st.State, st.Label = GoalNear, "¡Casi lo logras!"
	case now.Sub(g.CreatedAt) > behindAfter && p.LessThan(behindPercent):
		st.State, st.Label = GoalBehind, "Necesitas acelerar"
	default:
		st.State, st.Label = GoalOnTrack, "En buen camino"
	}
	return st
}

// Summarize counts active and completed goals and sums what has been saved.
func Summarize(goals []core.Goal) GoalsSummary {
	s := GoalsSummary{TotalSaved: decimal.Zero}
	for _, g := range goals {
		if g.IsCompleted() {
			s.Completed++
		} else {
			s.Active++
		}
		s.TotalSaved = s.TotalSaved.Add(g.CurrentAmount)
	}
	return s
}
