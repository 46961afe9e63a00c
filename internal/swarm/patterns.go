package swarm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/haasonsaas/agentrt/pkg/models"
)

// runPattern dispatches to the pattern-specific executor (spec §4.10
// "Patterns"). ctx carries the swarm's timeout deadline; a worker observing
// ctx.Err() mid-call should return promptly, letting run() classify the
// outer timeout once all in-flight workers have unwound.
func (o *Orchestrator) runPattern(ctx context.Context, pattern models.SwarmPattern, task string, plan []models.PlanItem) ([]models.WorkerResult, error) {
	switch pattern {
	case models.PatternParallel:
		return o.runParallel(ctx, task, plan)
	case models.PatternPipeline:
		return o.runPipeline(ctx, plan)
	case models.PatternDebate:
		return o.runDebate(ctx, task, plan)
	case models.PatternReview:
		return o.runReview(ctx, task, plan)
	default:
		return nil, ErrInvalidPattern
	}
}

func (o *Orchestrator) poolSize() int {
	if o.MaxAgentsPerSwarm > 0 {
		return o.MaxAgentsPerSwarm
	}
	return DefaultMaxAgentsPerSwarm
}

// runParallel runs every plan item simultaneously against the original
// task, bounded by a semaphore sized o.poolSize() (spec §4.10 "parallel").
// An individual worker error is recorded as that worker's failure, not an
// abort signal; only the swarm's own ctx (explicit cancel or the deadline
// from run()) stops the pool early, grounded on the teacher's
// Swarm.Execute semaphore+WaitGroup fan-out.
func (o *Orchestrator) runParallel(ctx context.Context, task string, plan []models.PlanItem) ([]models.WorkerResult, error) {
	sem := make(chan struct{}, o.poolSize())
	var wg sync.WaitGroup
	var mu sync.Mutex
	results := make([]models.WorkerResult, 0, len(plan))

	for _, item := range plan {
		item := item
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			output, err := o.Worker.Run(ctx, item, task)
			r := models.WorkerResult{Role: item.Role, Output: output}
			if err != nil {
				r.Err = err.Error()
			}
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Role < results[j].Role })
	return results, nil
}

// runPipeline runs plan items sequentially, passing worker k's output as
// worker k+1's input; the first worker's input is empty (spec §4.10
// "pipeline").
func (o *Orchestrator) runPipeline(ctx context.Context, plan []models.PlanItem) ([]models.WorkerResult, error) {
	results := make([]models.WorkerResult, 0, len(plan))
	input := ""
	for _, item := range plan {
		if ctx.Err() != nil {
			return results, nil
		}
		output, err := o.Worker.Run(ctx, item, input)
		r := models.WorkerResult{Role: item.Role, Output: output}
		if err != nil {
			r.Err = err.Error()
			results = append(results, r)
			continue
		}
		results = append(results, r)
		input = output
	}
	return results, nil
}

// runDebate runs up to o.RoundCap rounds; every worker sees every other
// worker's previous-round output folded into its input, and the round
// loop stops early once no worker's output changed from the prior round
// (spec §4.10 "debate": "terminates on configured convergence or round
// cap").
func (o *Orchestrator) runDebate(ctx context.Context, task string, plan []models.PlanItem) ([]models.WorkerResult, error) {
	rounds := o.RoundCap
	if rounds <= 0 {
		rounds = DefaultRoundCap
	}

	prior := make(map[string]string, len(plan))
	for _, item := range plan {
		prior[item.Role] = task
	}

	var last []models.WorkerResult
	for round := 1; round <= rounds; round++ {
		if ctx.Err() != nil {
			break
		}
		current := o.runDebateRound(ctx, task, plan, prior, round)
		converged := len(last) > 0 && sameOutputs(last, current)
		last = current
		next := make(map[string]string, len(plan))
		for _, r := range current {
			next[r.Role] = r.Output
		}
		prior = next
		if converged {
			break
		}
	}
	return last, nil
}

func (o *Orchestrator) runDebateRound(ctx context.Context, task string, plan []models.PlanItem, prior map[string]string, round int) []models.WorkerResult {
	sem := make(chan struct{}, o.poolSize())
	var wg sync.WaitGroup
	var mu sync.Mutex
	results := make([]models.WorkerResult, 0, len(plan))

	for _, item := range plan {
		item := item
		input := debateInput(task, item.Role, prior)
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			output, err := o.Worker.Run(ctx, item, input)
			r := models.WorkerResult{Role: item.Role, Output: output, Round: round}
			if err != nil {
				r.Err = err.Error()
			}
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		}()
	}
	wg.Wait()
	sort.Slice(results, func(i, j int) bool { return results[i].Role < results[j].Role })
	return results
}

func debateInput(task, selfRole string, prior map[string]string) string {
	input := "Task: " + task + "\n\nPrevious round's positions:\n"
	for role, output := range prior {
		if role == selfRole {
			continue
		}
		input += fmt.Sprintf("- %s: %s\n", role, output)
	}
	return input
}

func sameOutputs(a, b []models.WorkerResult) bool {
	if len(a) != len(b) {
		return false
	}
	byRole := make(map[string]string, len(a))
	for _, r := range a {
		byRole[r.Role] = r.Output
	}
	for _, r := range b {
		if byRole[r.Role] != r.Output {
			return false
		}
	}
	return true
}

// runReview treats plan[0] as the author and the remainder as reviewers:
// the author drafts, reviewers critique in parallel, the author revises,
// and the loop repeats until a round approves (every reviewer's output
// contains the literal "approved") or o.RoundCap is reached (spec §4.10
// "review").
func (o *Orchestrator) runReview(ctx context.Context, task string, plan []models.PlanItem) ([]models.WorkerResult, error) {
	if len(plan) == 0 {
		return nil, nil
	}
	author := plan[0]
	reviewers := plan[1:]

	rounds := o.RoundCap
	if rounds <= 0 {
		rounds = DefaultRoundCap
	}

	draft, err := o.Worker.Run(ctx, author, task)
	authorResult := models.WorkerResult{Role: author.Role, Output: draft}
	if err != nil {
		authorResult.Err = err.Error()
		return []models.WorkerResult{authorResult}, nil
	}

	var reviewResults []models.WorkerResult
	for round := 1; round <= rounds; round++ {
		if ctx.Err() != nil {
			break
		}
		reviewResults = o.runReviewRound(ctx, task, reviewers, draft, round)
		if allApproved(reviewResults) || round == rounds {
			break
		}
		revised, revErr := o.Worker.Run(ctx, author, reviseInput(task, draft, reviewResults))
		if revErr != nil {
			break
		}
		draft = revised
		authorResult = models.WorkerResult{Role: author.Role, Output: draft, Round: round}
	}

	out := append([]models.WorkerResult{authorResult}, reviewResults...)
	return out, nil
}

func (o *Orchestrator) runReviewRound(ctx context.Context, task string, reviewers []models.PlanItem, draft string, round int) []models.WorkerResult {
	sem := make(chan struct{}, o.poolSize())
	var wg sync.WaitGroup
	var mu sync.Mutex
	results := make([]models.WorkerResult, 0, len(reviewers))

	input := "Task: " + task + "\n\nDraft to review:\n" + draft

	for _, item := range reviewers {
		item := item
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			output, err := o.Worker.Run(ctx, item, input)
			r := models.WorkerResult{Role: item.Role, Output: output, Round: round}
			if err != nil {
				r.Err = err.Error()
			}
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		}()
	}
	wg.Wait()
	sort.Slice(results, func(i, j int) bool { return results[i].Role < results[j].Role })
	return results
}

func reviseInput(task, draft string, reviews []models.WorkerResult) string {
	input := "Task: " + task + "\n\nYour previous draft:\n" + draft + "\n\nReviewer feedback:\n"
	for _, r := range reviews {
		input += fmt.Sprintf("- %s: %s\n", r.Role, r.Output)
	}
	input += "\nRevise the draft to address the feedback."
	return input
}

func allApproved(reviews []models.WorkerResult) bool {
	if len(reviews) == 0 {
		return false
	}
	for _, r := range reviews {
		if r.Err != "" || !containsApproved(r.Output) {
			return false
		}
	}
	return true
}

func containsApproved(s string) bool {
	return strings.Contains(strings.ToLower(s), "approved")
}
