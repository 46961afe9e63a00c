package sessions

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

var reaperParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// DefaultIdleTimeout is the default inactivity window before a session
// is reaped (spec §4.3: "default 1 hour").
const DefaultIdleTimeout = time.Hour

// Reaper periodically reaps idle sessions from a Registry on a cron
// schedule, grounded on the same internal/cron + internal/tasks
// parser/schedule pattern used for the budget ledger's rollover ticker.
type Reaper struct {
	registry   *Registry
	schedule   cron.Schedule
	idleWindow time.Duration
	logger     *slog.Logger
}

// NewReaper parses expr (e.g. "@every 1m") and binds it to registry,
// reaping sessions idle for at least idleWindow on each tick.
func NewReaper(registry *Registry, expr string, idleWindow time.Duration, logger *slog.Logger) (*Reaper, error) {
	sched, err := reaperParser.Parse(expr)
	if err != nil {
		return nil, err
	}
	if idleWindow <= 0 {
		idleWindow = DefaultIdleTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reaper{registry: registry, schedule: sched, idleWindow: idleWindow, logger: logger}, nil
}

// Run blocks, reaping idle sessions at each scheduled tick until ctx is
// cancelled.
func (r *Reaper) Run(ctx context.Context) {
	next := r.schedule.Next(time.Now())
	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if n := r.registry.ReapIdle(r.idleWindow); n > 0 {
				r.logger.Info("reaped idle sessions", "count", n, "idle_window", r.idleWindow)
			}
			next = r.schedule.Next(time.Now())
			timer.Reset(time.Until(next))
		}
	}
}
