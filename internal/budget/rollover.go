package budget

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// rolloverParser accepts the same cron dialect the teacher's scheduler
// packages use (seconds optional, plus descriptors like "@daily").
var rolloverParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// RolloverTicker proactively nudges a Ledger's calendar rollover on a cron
// schedule, independent of whether any Charge/Check call happens to trigger
// it lazily. This exists so rollover events (and the metrics/logging they
// drive) fire even during a quiet period with no traffic, grounded on the
// teacher's internal/cron schedule-parsing pattern.
type RolloverTicker struct {
	ledger   *Ledger
	schedule cron.Schedule
	logger   *slog.Logger
}

// NewRolloverTicker parses expr (e.g. "@daily") and binds it to ledger.
func NewRolloverTicker(ledger *Ledger, expr string, logger *slog.Logger) (*RolloverTicker, error) {
	sched, err := rolloverParser.Parse(expr)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RolloverTicker{ledger: ledger, schedule: sched, logger: logger}, nil
}

// Run blocks, firing the ledger's rollover check at each scheduled tick
// until ctx is cancelled.
func (t *RolloverTicker) Run(ctx context.Context) {
	next := t.schedule.Next(time.Now().UTC())
	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			state := t.ledger.Snapshot() // Snapshot forces rolloverLocked
			t.logger.Info("budget ledger rollover tick",
				"daily_reset_at", state.DailyResetAt, "monthly_reset_at", state.MonthlyResetAt)
			next = t.schedule.Next(time.Now().UTC())
			timer.Reset(time.Until(next))
		}
	}
}
