package budget

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/agentrt/pkg/models"
)

func TestCheckAllowsUnderCaps(t *testing.T) {
	l := New(10, 100, 1)
	d := l.Check(0.5)
	assert.True(t, d.Allowed)
	assert.Empty(t, d.Event)
}

func TestCheckDeniesOverPerCallLimit(t *testing.T) {
	l := New(10, 100, 1)
	d := l.Check(2)
	assert.False(t, d.Allowed)
	assert.Equal(t, "budget_exceeded", d.Event)
	assert.Equal(t, "per_call_limit", d.Reason)
}

func TestCheckWarnsAtEightyPercent(t *testing.T) {
	l := New(10, 1000, 100)
	l.Charge(models.Charge{EstimatedCost: 7.5})
	d := l.Check(0.6)
	assert.True(t, d.Allowed)
	assert.Equal(t, "budget_warning", d.Event)
}

func TestCheckDeniesOverDailyLimit(t *testing.T) {
	l := New(10, 1000, 100)
	l.Charge(models.Charge{EstimatedCost: 9.5})
	d := l.Check(1)
	assert.False(t, d.Allowed)
	assert.Equal(t, "budget_exceeded", d.Event)
	assert.Equal(t, "daily_limit", d.Reason)
}

func TestChargeMaintainsInvariant(t *testing.T) {
	l := New(10, 100, 5)
	for i := 0; i < 5; i++ {
		l.Charge(models.Charge{EstimatedCost: 1})
	}
	snap := l.Snapshot()
	assert.LessOrEqual(t, snap.DailySpent, snap.DailyLimit)
	assert.LessOrEqual(t, snap.MonthlySpent, snap.MonthlyLimit)
}

func TestRolloverResetsSpendAtUTCBoundary(t *testing.T) {
	l := New(10, 100, 5)
	l.Charge(models.Charge{EstimatedCost: 5})
	require.Equal(t, 5.0, l.Snapshot().DailySpent)

	// force the clock past the daily boundary
	oldResetAt := l.state.DailyResetAt
	l.now = func() time.Time { return oldResetAt.Add(time.Minute) }
	snap := l.Snapshot()
	assert.Equal(t, 0.0, snap.DailySpent)
	assert.True(t, snap.DailyResetAt.After(oldResetAt))
}

func TestSnapshotLedgerIsIndependentCopy(t *testing.T) {
	l := New(10, 100, 5)
	l.Charge(models.Charge{EstimatedCost: 1})
	snap := l.Snapshot()
	snap.Ledger[0].EstimatedCost = 999
	assert.NotEqual(t, 999.0, l.Snapshot().Ledger[0].EstimatedCost)
}
