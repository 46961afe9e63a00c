package models

import "time"

// Charge is one ledger entry: a single provider call's token usage and its
// estimated USD cost.
type Charge struct {
	Timestamp     time.Time `json:"timestamp"`
	Provider      string    `json:"provider"`
	Model         string    `json:"model"`
	TokensIn      int64     `json:"tokens_in"`
	TokensOut     int64     `json:"tokens_out"`
	EstimatedCost float64   `json:"estimated_cost"`
}

// BudgetState is the spend-cap bookkeeping for one runtime instance.
// Invariant: after any successful charge, DailySpent <= DailyLimit and
// MonthlySpent <= MonthlyLimit (spec §3).
type BudgetState struct {
	DailySpent    float64   `json:"daily_spent"`
	DailyLimit    float64   `json:"daily_limit"`
	MonthlySpent  float64   `json:"monthly_spent"`
	MonthlyLimit  float64   `json:"monthly_limit"`
	PerCallLimit  float64   `json:"per_call_limit"`
	Ledger        []Charge  `json:"ledger"`
	DailyResetAt  time.Time `json:"daily_reset_at"`
	MonthlyResetAt time.Time `json:"monthly_reset_at"`
}
