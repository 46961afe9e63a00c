// Package budget implements the spend ledger and Budget & Safety Gate
// (spec §4.9): per-call/daily/monthly caps, budget_warning at >=80%
// utilisation, budget_exceeded at >=100%, calendar rollover in UTC.
package budget

import (
	"sync"
	"time"

	"github.com/haasonsaas/agentrt/pkg/models"
)

// Decision is the Gate's verdict for a proposed charge.
type Decision struct {
	Allowed bool
	Event   string // "", "budget_warning", or "budget_exceeded"
	Reason  string
}

const (
	warningThreshold = 0.8
	maxLedgerEntries = 10000
)

// Ledger tracks spend against daily/monthly/per-call caps. All mutation is
// single-writer under mu; readers may take a snapshot (spec §5 "Budget
// ledger: single-writer or serialised writes; readers may see a
// snapshot"), grounded on the teacher's usage.Tracker.
type Ledger struct {
	mu    sync.Mutex
	state models.BudgetState
	now   func() time.Time
}

// New builds a Ledger with the given caps. dailyLimit/monthlyLimit/
// perCallLimit <= 0 means "no cap" for that dimension.
func New(dailyLimit, monthlyLimit, perCallLimit float64) *Ledger {
	now := time.Now().UTC()
	return &Ledger{
		state: models.BudgetState{
			DailyLimit:     dailyLimit,
			MonthlyLimit:   monthlyLimit,
			PerCallLimit:   perCallLimit,
			DailyResetAt:   nextUTCMidnight(now),
			MonthlyResetAt: nextUTCMonthBoundary(now),
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Check evaluates whether a call estimated to cost estimatedCost may
// proceed without breaching any cap, rolling over expired windows first.
func (l *Ledger) Check(estimatedCost float64) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rolloverLocked()

	if l.state.PerCallLimit > 0 && estimatedCost > l.state.PerCallLimit {
		return Decision{Allowed: false, Event: "budget_exceeded", Reason: "per_call_limit"}
	}
	if l.state.DailyLimit > 0 && l.state.DailySpent+estimatedCost > l.state.DailyLimit {
		return Decision{Allowed: false, Event: "budget_exceeded", Reason: "daily_limit"}
	}
	if l.state.MonthlyLimit > 0 && l.state.MonthlySpent+estimatedCost > l.state.MonthlyLimit {
		return Decision{Allowed: false, Event: "budget_exceeded", Reason: "monthly_limit"}
	}

	if l.state.DailyLimit > 0 && (l.state.DailySpent+estimatedCost)/l.state.DailyLimit >= warningThreshold {
		return Decision{Allowed: true, Event: "budget_warning", Reason: "daily_limit"}
	}
	if l.state.MonthlyLimit > 0 && (l.state.MonthlySpent+estimatedCost)/l.state.MonthlyLimit >= warningThreshold {
		return Decision{Allowed: true, Event: "budget_warning", Reason: "monthly_limit"}
	}
	return Decision{Allowed: true}
}

// Charge records a completed call's cost. Invariant: after any successful
// charge, DailySpent <= DailyLimit and MonthlySpent <= MonthlyLimit
// (spec §3); callers must have gotten an Allowed Decision from Check first.
func (l *Ledger) Charge(c models.Charge) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rolloverLocked()

	if c.Timestamp.IsZero() {
		c.Timestamp = l.now()
	}
	l.state.DailySpent += c.EstimatedCost
	l.state.MonthlySpent += c.EstimatedCost
	l.state.Ledger = append(l.state.Ledger, c)
	if len(l.state.Ledger) > maxLedgerEntries {
		l.state.Ledger = l.state.Ledger[len(l.state.Ledger)-maxLedgerEntries:]
	}
}

// Snapshot returns a copy of the current budget state.
func (l *Ledger) Snapshot() models.BudgetState {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rolloverLocked()
	snap := l.state
	snap.Ledger = append([]models.Charge(nil), l.state.Ledger...)
	return snap
}

// rolloverLocked resets spend counters once their calendar window has
// passed. Must be called with mu held.
func (l *Ledger) rolloverLocked() {
	now := l.now()
	if !now.Before(l.state.DailyResetAt) {
		l.state.DailySpent = 0
		l.state.DailyResetAt = nextUTCMidnight(now)
	}
	if !now.Before(l.state.MonthlyResetAt) {
		l.state.MonthlySpent = 0
		l.state.MonthlyResetAt = nextUTCMonthBoundary(now)
	}
}

func nextUTCMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}

func nextUTCMonthBoundary(now time.Time) time.Time {
	y, m, _ := now.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}
