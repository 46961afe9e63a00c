package swarm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/haasonsaas/agentrt/internal/providers"
	"github.com/haasonsaas/agentrt/pkg/models"
)

// complete drains a single non-streaming completion out of provider,
// ignoring any tool calls the model attempts: swarm workers reason in
// text only, they don't dispatch tools (spec §4.10 describes workers as
// producing text output for synthesis, not as agent-loop instances).
func complete(ctx context.Context, provider providers.LLMProvider, system, prompt string) (string, error) {
	chunks, err := provider.Complete(ctx, &providers.CompletionRequest{
		System:   system,
		Messages: []models.Message{{Role: models.RoleUser, Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	var out strings.Builder
	for chunk := range chunks {
		if chunk == nil {
			continue
		}
		if chunk.Error != nil {
			return out.String(), chunk.Error
		}
		out.WriteString(chunk.Text)
		if chunk.Done {
			break
		}
	}
	return out.String(), nil
}

// ProviderPlanner decomposes a task via a single provider call that must
// return a JSON array of {"role", "subtask_text"} objects. A response that
// fails to parse is treated as a planner failure, triggering Launch's
// single-agent fallback (spec §4.10 step 2).
type ProviderPlanner struct {
	Provider providers.LLMProvider
}

const plannerSystemPrompt = `You split a task into independent subtasks for a team of worker agents.
Respond with only a JSON array of objects shaped {"role": "<short role name>", "subtask_text": "<subtask>"}.
Use at most %d items.`

func (p ProviderPlanner) Plan(ctx context.Context, task string, maxAgents int) ([]models.PlanItem, error) {
	system := fmt.Sprintf(plannerSystemPrompt, maxAgents)
	text, err := complete(ctx, p.Provider, system, task)
	if err != nil {
		return nil, err
	}
	var plan []models.PlanItem
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &plan); err != nil {
		return nil, fmt.Errorf("swarm: planner returned non-JSON plan: %w", err)
	}
	if len(plan) == 0 {
		return nil, fmt.Errorf("swarm: planner returned an empty plan")
	}
	return plan, nil
}

// ProviderWorker runs one plan item as a single completion call, with the
// item's role folded into the system prompt so every worker reasons from
// its assigned perspective.
type ProviderWorker struct {
	Provider providers.LLMProvider
}

func (w ProviderWorker) Run(ctx context.Context, item models.PlanItem, input string) (string, error) {
	system := fmt.Sprintf("You are the %q worker in a multi-agent swarm. Focus only on your assigned subtask: %s", item.Role, item.SubtaskText)
	return complete(ctx, w.Provider, system, input)
}

// ProviderSynthesizer combines every worker's output into a single answer
// via one provider call (spec §4.10 "Synthesis").
type ProviderSynthesizer struct {
	Provider providers.LLMProvider
}

const synthesisSystemPrompt = "You combine multiple worker agents' outputs into one coherent final answer for the original task."

func (s ProviderSynthesizer) Synthesize(ctx context.Context, task string, pattern models.SwarmPattern, results []models.WorkerResult) (string, error) {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Original task: %s\nCoordination pattern: %s\n\nWorker outputs:\n", task, pattern)
	for _, r := range results {
		if r.Err != "" {
			fmt.Fprintf(&prompt, "- %s: (failed: %s)\n", r.Role, r.Err)
			continue
		}
		fmt.Fprintf(&prompt, "- %s: %s\n", r.Role, r.Output)
	}
	return complete(ctx, s.Provider, synthesisSystemPrompt, prompt.String())
}
