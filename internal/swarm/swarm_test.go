package swarm

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/agentrt/internal/eventbus"
	"github.com/haasonsaas/agentrt/pkg/models"
)

// deterministicPlanner always returns a fixed plan, standing in for
// spec §8's "deterministic planner producing three roles".
type deterministicPlanner struct {
	plan []models.PlanItem
}

func (p deterministicPlanner) Plan(ctx context.Context, task string, maxAgents int) ([]models.PlanItem, error) {
	return p.plan, nil
}

// countingWorker records how many times Run was called and returns a
// canned per-role output, optionally blocking until released so tests can
// observe a swarm mid-flight.
type countingWorker struct {
	calls   int64
	release chan struct{}
}

func (w *countingWorker) Run(ctx context.Context, item models.PlanItem, input string) (string, error) {
	atomic.AddInt64(&w.calls, 1)
	if w.release != nil {
		select {
		case <-w.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "done:" + item.Role, nil
}

type stubSynthesizer struct{ calls int64 }

func (s *stubSynthesizer) Synthesize(ctx context.Context, task string, pattern models.SwarmPattern, results []models.WorkerResult) (string, error) {
	atomic.AddInt64(&s.calls, 1)
	return fmt.Sprintf("synthesis of %d results", len(results)), nil
}

func threeRolePlan() []models.PlanItem {
	return []models.PlanItem{{Role: "a", SubtaskText: "t"}, {Role: "b", SubtaskText: "t"}, {Role: "c", SubtaskText: "t"}}
}

// TestParallelSwarmCompletesWithOneSynthesisAndOneEvent is spec §8's
// "Parallel swarm" scenario: three workers run concurrently, then exactly
// one synthesis call runs and exactly one swarm_completed is observed.
func TestParallelSwarmCompletesWithOneSynthesisAndOneEvent(t *testing.T) {
	bus := eventbus.NewHub(nil)
	sub, cancel := bus.SubscribeFirehose()
	defer cancel()

	worker := &countingWorker{}
	synth := &stubSynthesizer{}
	orch := New(deterministicPlanner{plan: threeRolePlan()}, worker, synth, bus, nil)

	swarmID, err := orch.Launch(context.Background(), "Plan a launch", models.PatternParallel, 3, time.Second)
	require.NoError(t, err)

	var final models.Swarm
	require.Eventually(t, func() bool {
		final, err = orch.Get(swarmID)
		return err == nil && final.Status == models.SwarmCompleted
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, int64(3), atomic.LoadInt64(&worker.calls))
	assert.Equal(t, int64(1), atomic.LoadInt64(&synth.calls))
	assert.Equal(t, "synthesis of 3 results", final.Synthesis)
	assert.Len(t, final.Results, 3)

	var completedCount int
	drain(sub, func(evt models.Event) {
		if evt.Type == models.EventSwarmCompleted {
			completedCount++
		}
	})
	assert.Equal(t, 1, completedCount)
}

// TestCancelRaceDecrementsActiveCountExactlyOnce is spec §8's "Swarm
// cancel race" scenario: cancelling mid-flight transitions to cancelled,
// late worker completion is ignored, and swarm_cancelled fires exactly
// once.
func TestCancelRaceDecrementsActiveCountExactlyOnce(t *testing.T) {
	bus := eventbus.NewHub(nil)
	sub, cancel := bus.SubscribeFirehose()
	defer cancel()

	worker := &countingWorker{release: make(chan struct{})}
	orch := New(deterministicPlanner{plan: threeRolePlan()}, worker, &stubSynthesizer{}, bus, nil)

	swarmID, err := orch.Launch(context.Background(), "Plan a launch", models.PatternParallel, 3, time.Minute)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return atomic.LoadInt64(&worker.calls) == 3 }, time.Second, 5*time.Millisecond)

	require.Equal(t, 1, orch.ActiveCount())
	require.NoError(t, orch.Cancel(swarmID))
	assert.Equal(t, 0, orch.ActiveCount())

	close(worker.release) // let the blocked workers return late

	time.Sleep(20 * time.Millisecond)
	final, err := orch.Get(swarmID)
	require.NoError(t, err)
	assert.Equal(t, models.SwarmCancelled, final.Status)

	var cancelledCount int
	drain(sub, func(evt models.Event) {
		if evt.Type == models.EventSwarmCancelled {
			cancelledCount++
		}
		assert.NotEqual(t, models.EventSwarmCompleted, evt.Type)
	})
	assert.Equal(t, 1, cancelledCount)
}

// TestCancelOnTerminalSwarmIsIdempotent is spec §8 property 10.
func TestCancelOnTerminalSwarmIsIdempotent(t *testing.T) {
	bus := eventbus.NewHub(nil)
	orch := New(deterministicPlanner{plan: threeRolePlan()}, &countingWorker{}, &stubSynthesizer{}, bus, nil)

	swarmID, err := orch.Launch(context.Background(), "task", models.PatternParallel, 3, time.Second)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s, _ := orch.Get(swarmID)
		return s.Status == models.SwarmCompleted
	}, time.Second, 5*time.Millisecond)

	err = orch.Cancel(swarmID)
	assert.ErrorIs(t, err, ErrNotRunning)

	err = orch.Cancel("unknown-id")
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestLaunchRejectsInvalidPattern(t *testing.T) {
	orch := New(nil, &countingWorker{}, nil, nil, nil)
	_, err := orch.Launch(context.Background(), "task", "bogus", 3, time.Second)
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

func TestLaunchFallsBackToSingleAgentPlanOnPlannerFailure(t *testing.T) {
	failing := PlannerFunc(func(ctx context.Context, task string, maxAgents int) ([]models.PlanItem, error) {
		return nil, fmt.Errorf("boom")
	})
	worker := &countingWorker{}
	orch := New(failing, worker, &stubSynthesizer{}, nil, nil)

	swarmID, err := orch.Launch(context.Background(), "task", models.PatternParallel, 3, time.Second)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s, _ := orch.Get(swarmID)
		return s.Status == models.SwarmCompleted
	}, time.Second, 5*time.Millisecond)

	s, err := orch.Get(swarmID)
	require.NoError(t, err)
	require.Len(t, s.Plan, 1)
	assert.Equal(t, "generalist", s.Plan[0].Role)
}

func TestPipelineFeedsPriorOutputForward(t *testing.T) {
	var seenInputs []string
	worker := WorkerFunc(func(ctx context.Context, item models.PlanItem, input string) (string, error) {
		seenInputs = append(seenInputs, input)
		return "out:" + item.Role, nil
	})
	orch := New(deterministicPlanner{plan: threeRolePlan()}, worker, nil, nil, nil)

	swarmID, err := orch.Launch(context.Background(), "task", models.PatternPipeline, 3, time.Second)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s, _ := orch.Get(swarmID)
		return s.Status == models.SwarmCompleted
	}, time.Second, 5*time.Millisecond)

	require.Len(t, seenInputs, 3)
	assert.Equal(t, "", seenInputs[0])
	assert.Equal(t, "out:a", seenInputs[1])
	assert.Equal(t, "out:b", seenInputs[2])
}

func drain(ch <-chan models.Event, fn func(models.Event)) {
	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				return
			}
			fn(evt)
		default:
			return
		}
	}
}
