// Package classifier implements the Signal Classifier and Noise Filter
// (spec §4.1, §4.2): a deterministic, side-effect-free mapping from a raw
// message to a five-dimensional Signal, followed by a stateless weight
// threshold gate.
//
// The matching style (lowercase, word-boundary regexes evaluated in a fixed
// rule order) is grounded on the teacher's internal/agent/routing heuristic
// request classifier.
package classifier

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/haasonsaas/agentrt/pkg/models"
)

// word builds a case-insensitive whole-word alternation regex.
func word(alts ...string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(` + strings.Join(alts, "|") + `)\b`)
}

var (
	buildRe    = word("build", "create", "generate", "scaffold", "new")
	executeRe  = word("run", "execute", "send", "trigger", "sync", "import", "export")
	analyzeRe  = word("analyze", "analyse", "report", "dashboard", "metrics", "trend", "kpi")
	maintainRe = word("fix", "update", "migrate", "backup", "restore", "upgrade", "rollback")

	directImperativeRe = word("please", "do", "run", "make", "send", "create")
	commitRe           = regexp.MustCompile(`(?i)\b(i will|i'll|let me|i promise|i commit)\b`)
	decideRe           = word("approve", "reject", "cancel", "confirm", "decide", "set")
	expressRe          = word("thanks", "love", "hate", "great", "terrible", "wow")

	whWordsRe   = word("who", "what", "when", "where", "why", "how", "which")
	issueRe     = word("error", "bug", "broken", "fail", "crash")
	schedulingRe = word("remind", "schedule", "later", "tomorrow")
	summaryRe   = word("summarize", "summary", "brief", "recap")

	urgentRe = word("urgent", "asap", "critical", "emergency", "immediately", "now")
	noiseRe  = word("hi", "ok", "hey", "sure", "thanks", "lol", "haha", "hello")
)

// DefaultNoiseThreshold is the default lower bound below which a Signal's
// Weight causes the Noise Filter to drop the input (spec §3).
const DefaultNoiseThreshold = 0.3

// Classifier maps raw inbound text + channel to a Signal. It holds no
// mutable state: Classify(msg, channel) is pure for a fixed configuration
// (spec invariant 1).
type Classifier struct{}

// New returns a ready-to-use Classifier.
func New() *Classifier { return &Classifier{} }

// Classify implements spec §4.1's algorithm. now is injected so that tests
// can assert purity without depending on wall-clock time.
func (c *Classifier) Classify(raw, channel string, now time.Time) models.Signal {
	if strings.TrimSpace(raw) == "" {
		return models.Signal{
			Mode:      models.ModeAssist,
			Genre:     models.GenreInform,
			Type:      "general",
			Format:    formatForChannel(channel),
			Weight:    0.2,
			RawText:   raw,
			Channel:   channel,
			Timestamp: now,
		}
	}

	lower := foldCase(raw)

	sig := models.Signal{
		Mode:      classifyMode(lower),
		Genre:     classifyGenre(lower, raw),
		Type:      classifyType(lower, raw),
		Format:    formatForChannel(channel),
		RawText:   raw,
		Channel:   channel,
		Timestamp: now,
	}
	sig.Weight = computeWeight(lower, raw)
	return sig
}

// foldCase performs unicode-consistent case folding so the matching tables
// behave the same for non-ASCII input as for ASCII input (spec §4.1 edge
// case policy).
func foldCase(s string) string {
	return strings.Map(unicode.ToLower, s)
}

func classifyMode(lower string) models.Mode {
	switch {
	case buildRe.MatchString(lower):
		return models.ModeBuild
	case executeRe.MatchString(lower):
		return models.ModeExecute
	case analyzeRe.MatchString(lower):
		return models.ModeAnalyze
	case maintainRe.MatchString(lower):
		return models.ModeMaintain
	default:
		return models.ModeAssist
	}
}

func classifyGenre(lower, raw string) models.Genre {
	switch {
	case directImperativeRe.MatchString(lower) || strings.HasSuffix(strings.TrimSpace(raw), "!"):
		return models.GenreDirect
	case commitRe.MatchString(lower):
		return models.GenreCommit
	case decideRe.MatchString(lower):
		return models.GenreDecide
	case expressRe.MatchString(lower):
		return models.GenreExpress
	default:
		return models.GenreInform
	}
}

func classifyType(lower, raw string) string {
	switch {
	case strings.Contains(raw, "?") || whWordsRe.MatchString(lower):
		return "question"
	case issueRe.MatchString(lower):
		return "issue"
	case schedulingRe.MatchString(lower):
		return "scheduling"
	case summaryRe.MatchString(lower):
		return "summary"
	default:
		return "general"
	}
}

func formatForChannel(channel string) models.Format {
	switch strings.ToLower(channel) {
	case "cli", "command":
		return models.FormatCommand
	case "document", "upload":
		return models.FormatDocument
	case "notification", "webhook":
		return models.FormatNotification
	case "transcript", "voice":
		return models.FormatTranscript
	default:
		return models.FormatMessage
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// computeWeight implements the §4.1 formula exactly:
//
//	0.5 + min(length/500, 0.2) + 0.15*[has '?'] + 0.20*[urgent] - 0.30*[noise]
func computeWeight(lower, raw string) float64 {
	weight := 0.5
	weight += min(float64(len(raw))/500.0, 0.2)
	if strings.Contains(raw, "?") {
		weight += 0.15
	}
	if urgentRe.MatchString(lower) {
		weight += 0.20
	}
	if noiseRe.MatchString(lower) {
		weight -= 0.30
	}
	return clamp01(weight)
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
