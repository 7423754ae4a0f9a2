package evaluation

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// AgentDigest captures one agent as seen by the evaluator.
type AgentDigest struct {
	Role      string
	Goal      string
	Backstory string
	Tools     []string
}

// TaskDigest captures one executed task.
type TaskDigest struct {
	Description    string
	AgentRole      string
	ExpectedOutput string
}

// ExecutionMeta carries the finalized execution facts the evaluator sees.
type ExecutionMeta struct {
	CrewName string
	Topic    string
	Duration string
	Status   string
}

// Digest is the structured snapshot of a finished execution handed to the
// evaluation tiers. It never includes engine internals, only what the crew
// declared and what came out.
type Digest struct {
	Agents      []AgentDigest
	Tasks       []TaskDigest
	Meta        ExecutionMeta
	Result      string
	ResultChars int
	TokenCount  int
}

// ToolsByRole maps each agent role to its tool list.
func (d *Digest) ToolsByRole() map[string][]string {
	out := make(map[string][]string, len(d.Agents))
	for _, a := range d.Agents {
		out[a.Role] = a.Tools
	}
	return out
}

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// countTokens estimates the token footprint of the result text. It uses the
// cl100k encoding when its data is available and falls back to a CJK-aware
// character estimate when it is not.
func countTokens(text string) int {
	if text == "" {
		return 0
	}
	encOnce.Do(func() {
		enc, _ = tiktoken.GetEncoding("cl100k_base")
	})
	if enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	total := utf8.RuneCountInString(text)
	cjk := 0
	for _, r := range text {
		if isCJK(r) {
			cjk++
		}
	}
	// CJK characters run about 1.5 chars per token, ASCII about 4.
	estimated := int(float64(cjk)/1.5 + float64(total-cjk)/4.0)
	if estimated == 0 {
		estimated = 1
	}
	return estimated
}

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x3040 && r <= 0x30FF) ||
		(r >= 0xAC00 && r <= 0xD7AF)
}

// NewDigest assembles the evaluation snapshot.
func NewDigest(agents []AgentDigest, tasks []TaskDigest, meta ExecutionMeta, result string) *Digest {
	return &Digest{
		Agents:      agents,
		Tasks:       tasks,
		Meta:        meta,
		Result:      result,
		ResultChars: len(result),
		TokenCount:  countTokens(result),
	}
}

// RenderContext renders the digest into the prompt context block fed to the
// evaluator agent.
func (d *Digest) RenderContext() string {
	var sb strings.Builder
	sb.WriteString("DATA FOR COMPREHENSIVE EVALUATION:\n\n")
	fmt.Fprintf(&sb, "1. EXECUTION:\n")
	fmt.Fprintf(&sb, "   - Crew: %s\n", valueOr(d.Meta.CrewName))
	fmt.Fprintf(&sb, "   - Topic: %s\n", valueOr(d.Meta.Topic))
	fmt.Fprintf(&sb, "   - Duration: %s\n", valueOr(d.Meta.Duration))
	fmt.Fprintf(&sb, "   - Status: %s\n", valueOr(d.Meta.Status))

	sb.WriteString("\n2. AGENTS AND TOOLS:\n")
	for _, a := range d.Agents {
		fmt.Fprintf(&sb, "   - %s: %d tools\n", a.Role, len(a.Tools))
		fmt.Fprintf(&sb, "     Tools: %s\n", strings.Join(a.Tools, ", "))
	}

	fmt.Fprintf(&sb, "\n3. TASKS EXECUTED: %d\n", len(d.Tasks))
	for i, t := range d.Tasks {
		fmt.Fprintf(&sb, "   %d. Agent: %s\n", i+1, t.AgentRole)
		fmt.Fprintf(&sb, "      Description: %s\n", truncate(t.Description, 100))
	}

	sb.WriteString("\n4. FINAL RESULT:\n")
	fmt.Fprintf(&sb, "   Size: %d characters (~%d tokens)\n", d.ResultChars, d.TokenCount)
	return sb.String()
}

func valueOr(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
