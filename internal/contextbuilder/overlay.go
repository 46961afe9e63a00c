package contextbuilder

import (
	"fmt"
	"strings"
	"time"

	"github.com/haasonsaas/agentrt/pkg/models"
)

const truncationMarker = "[...truncated...]"

// blockSeparator joins fitted blocks (spec §4.5: "concatenated with a
// fixed separator").
const blockSeparator = "\n\n---\n\n"

// Block is one candidate piece of the dynamic overlay.
type Block struct {
	Name     string
	Content  string
	Priority int // 1 (highest, never truncated) .. 4
}

// RuntimeContext is the P1 environment/runtime information every call
// includes in full.
type RuntimeContext struct {
	Timestamp    time.Time
	Channel      string
	SessionID    string
	Cwd          string
	OS           string
	Provider     string
	Model        string
	PlanModeNote string // optional plan-mode directive
}

// Overlay is everything needed to assemble the P2-P4 tiers.
type Overlay struct {
	MemoryExcerpts        string // P2: long-term memory relevant to current text
	TaskList              string // P2
	WorkflowState         string // P2
	CommunicationProfile  string // P3
	MemoryBulletin        string // P3
	MachineTemplateAddend string // P4
}

// BuildDynamicOverlay assembles the P1-P4 tiers within budget tokens,
// per spec §4.5's fitting algorithm: P1 blocks are always included in
// full; P2 is capped at 40% of budget, P3 at 30%, P4 takes what is left.
// A block that does not fully fit is truncated at a word boundary with
// a trailing marker rather than dropped. Grounded on the teacher's
// internal/context.Truncator (keep-first/keep-last budget accounting),
// adapted from a message-list truncator to a priority-tiered text-block
// fitter since the spec's unit here is named blocks, not messages.
func BuildDynamicOverlay(signal models.Signal, rc RuntimeContext, ov Overlay, budget int) string {
	p1 := p1Blocks(signal, rc)
	var out []string
	used := 0
	for _, b := range p1 {
		out = append(out, b.Content)
		used += EstimateTokens(b.Content)
	}
	remaining := budget - used
	if remaining < 0 {
		remaining = 0
	}

	p2Budget := int(float64(budget) * 0.40)
	p2 := p2Blocks(ov)
	fitted, spent := fitBlocks(p2, min(p2Budget, remaining))
	out = append(out, fitted...)
	remaining -= spent

	p3Budget := int(float64(budget) * 0.30)
	p3 := p3Blocks(ov)
	fitted, spent = fitBlocks(p3, min(p3Budget, remaining))
	out = append(out, fitted...)
	remaining -= spent

	p4 := p4Blocks(ov)
	fitted, _ = fitBlocks(p4, remaining)
	out = append(out, fitted...)

	return strings.Join(out, blockSeparator)
}

func p1Blocks(signal models.Signal, rc RuntimeContext) []Block {
	blocks := []Block{
		{
			Name: "signal",
			Content: fmt.Sprintf("Signal: mode=%s genre=%s type=%s format=%s weight=%.2f",
				signal.Mode, signal.Genre, signal.Type, signal.Format, signal.Weight),
			Priority: 1,
		},
		{
			Name: "runtime",
			Content: fmt.Sprintf("Runtime: timestamp=%s channel=%s session_id=%s",
				rc.Timestamp.Format(time.RFC3339), rc.Channel, rc.SessionID),
			Priority: 1,
		},
		{
			Name: "environment",
			Content: fmt.Sprintf("Environment: cwd=%s os=%s provider=%s model=%s",
				rc.Cwd, rc.OS, rc.Provider, rc.Model),
			Priority: 1,
		},
	}
	if rc.PlanModeNote != "" {
		blocks = append(blocks, Block{Name: "plan_mode", Content: rc.PlanModeNote, Priority: 1})
	}
	return blocks
}

func p2Blocks(ov Overlay) []Block {
	var blocks []Block
	if ov.MemoryExcerpts != "" {
		blocks = append(blocks, Block{Name: "memory_excerpts", Content: ov.MemoryExcerpts, Priority: 2})
	}
	if ov.TaskList != "" {
		blocks = append(blocks, Block{Name: "task_list", Content: ov.TaskList, Priority: 2})
	}
	if ov.WorkflowState != "" {
		blocks = append(blocks, Block{Name: "workflow_state", Content: ov.WorkflowState, Priority: 2})
	}
	return blocks
}

func p3Blocks(ov Overlay) []Block {
	var blocks []Block
	if ov.CommunicationProfile != "" {
		blocks = append(blocks, Block{Name: "communication_profile", Content: ov.CommunicationProfile, Priority: 3})
	}
	if ov.MemoryBulletin != "" {
		blocks = append(blocks, Block{Name: "memory_bulletin", Content: ov.MemoryBulletin, Priority: 3})
	}
	return blocks
}

func p4Blocks(ov Overlay) []Block {
	var blocks []Block
	if ov.MachineTemplateAddend != "" {
		blocks = append(blocks, Block{Name: "machine_template", Content: ov.MachineTemplateAddend, Priority: 4})
	}
	return blocks
}

// fitBlocks includes each block in full while budget allows; a block
// that would overflow is truncated at a word boundary with a trailing
// marker. Returns the fitted block texts and the tokens spent.
func fitBlocks(blocks []Block, budget int) ([]string, int) {
	if budget <= 0 {
		return nil, 0
	}
	var out []string
	spent := 0
	for _, b := range blocks {
		cost := EstimateTokens(b.Content)
		if spent+cost <= budget {
			out = append(out, b.Content)
			spent += cost
			continue
		}
		remaining := budget - spent
		if remaining <= 0 {
			break
		}
		truncated := truncateToTokens(b.Content, remaining)
		if truncated == "" {
			break
		}
		out = append(out, truncated+" "+truncationMarker)
		spent = budget
		break
	}
	return out, spent
}

// truncateToTokens trims text at a word boundary so its estimated token
// count fits within maxTokens.
func truncateToTokens(text string, maxTokens int) string {
	words := strings.Fields(text)
	var kept []string
	for _, w := range words {
		candidate := strings.Join(append(append([]string{}, kept...), w), " ")
		if EstimateTokens(candidate) > maxTokens {
			break
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
