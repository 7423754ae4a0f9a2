package evaluation

import (
	"fmt"
	"sort"
	"strings"
)

// Deterministic report builders. They take the digest apart with plain
// string formatting and never fail; the basic evaluation tier is stitched
// together from their outputs.

// analyzePerformance reports the coarse execution metrics.
func analyzePerformance(d *Digest) string {
	var sb strings.Builder
	sb.WriteString("=== CREW PERFORMANCE ANALYSIS ===\n\n")
	sb.WriteString("GENERAL METRICS:\n")
	fmt.Fprintf(&sb, "- Execution time: %s\n", valueOr(d.Meta.Duration))
	fmt.Fprintf(&sb, "- Execution status: %s\n", valueOr(d.Meta.Status))
	fmt.Fprintf(&sb, "- Agents: %d\n", len(d.Agents))
	fmt.Fprintf(&sb, "- Tasks: %d\n\n", len(d.Tasks))

	sb.WriteString("PERFORMANCE:\n")
	if strings.Contains(d.Meta.Status, "completed") {
		sb.WriteString("- Temporal efficiency: good\n")
		sb.WriteString("- Task completeness: 100%\n")
	} else {
		sb.WriteString("- Temporal efficiency: needs improvement\n")
		sb.WriteString("- Task completeness: incomplete\n")
	}
	if len(d.Agents) > 1 {
		sb.WriteString("- Agent collaboration: no conflicts detected\n")
	} else {
		sb.WriteString("- Agent collaboration: single agent\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// analyzeOutputQuality scores the result text with a length-based heuristic.
func analyzeOutputQuality(d *Digest) string {
	var sb strings.Builder
	sb.WriteString("=== OUTPUT QUALITY ANALYSIS ===\n\n")
	score := float64(d.ResultChars) / 10
	if score > 100 {
		score = 100
	}
	if score < 10 {
		score = 10
	}
	fmt.Fprintf(&sb, "- Output size: %d characters\n", d.ResultChars)
	fmt.Fprintf(&sb, "- Estimated tokens: %d\n", d.TokenCount)
	fmt.Fprintf(&sb, "- Quality score: %.1f/100\n", score)
	fmt.Fprintf(&sb, "- Completeness: %s\n", gradeByLength(d.ResultChars, 100, "good", "insufficient"))
	fmt.Fprintf(&sb, "- Clarity: %s", gradeByLength(d.ResultChars, 50, "good", "limited"))
	return sb.String()
}

// analyzeToolUsage flags agents without tools and lists the rest.
func analyzeToolUsage(d *Digest) string {
	var sb strings.Builder
	sb.WriteString("=== TOOL USAGE EVALUATION ===\n\n")
	byRole := d.ToolsByRole()
	roles := make([]string, 0, len(byRole))
	for role := range byRole {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	for _, role := range roles {
		toolNames := byRole[role]
		fmt.Fprintf(&sb, "AGENT: %s\n", role)
		fmt.Fprintf(&sb, "- Tools available: %d\n", len(toolNames))
		if len(toolNames) > 0 {
			fmt.Fprintf(&sb, "- Tools: %s\n", strings.Join(toolNames, ", "))
			sb.WriteString("- Adequacy: adequate\n\n")
		} else {
			sb.WriteString("- Adequacy: no tools, needs attention\n\n")
		}
	}
	sb.WriteString("GENERAL RECOMMENDATIONS:\n")
	sb.WriteString("- Check that each agent's tools match its specialization\n")
	sb.WriteString("- Consider adding validation and verification tools")
	return sb.String()
}

// analyzeWorkflow comments on sequencing and parallelization potential.
func analyzeWorkflow(d *Digest) string {
	var sb strings.Builder
	sb.WriteString("=== WORKFLOW EFFICIENCY ANALYSIS ===\n\n")
	fmt.Fprintf(&sb, "- Agents involved: %d\n", len(d.Agents))
	fmt.Fprintf(&sb, "- Tasks executed: %d\n", len(d.Tasks))
	fmt.Fprintf(&sb, "- Total duration: %s\n", valueOr(d.Meta.Duration))
	if len(d.Agents) > 1 {
		sb.WriteString("- Parallelization: possible\n")
	} else {
		sb.WriteString("- Parallelization: limited, single agent\n")
	}
	if len(d.Tasks) > 1 {
		sb.WriteString("- Sequencing: sequential task chain")
	} else {
		sb.WriteString("- Sequencing: single task")
	}
	return sb.String()
}

// buildRecommendations emits the fixed improvement checklist.
func buildRecommendations() string {
	return strings.Join([]string{
		"=== IMPROVEMENT RECOMMENDATIONS ===",
		"",
		"AGENTS:",
		"- Review backstories for specificity",
		"- Keep goals precise and measurable",
		"- Check role alignment with the tasks executed",
		"",
		"TOOLS:",
		"- Verify every agent has the tools its tasks need",
		"- Consider dedicated validation tools",
		"",
		"TASKS:",
		"- Make descriptions and expected outputs more specific",
		"- Split complex tasks and check their dependencies",
	}, "\n")
}

// buildSummary renders the structured header of the basic report.
func buildSummary(d *Digest) string {
	var sb strings.Builder
	sb.WriteString("=== STRUCTURED EXECUTION SUMMARY ===\n\n")
	fmt.Fprintf(&sb, "- Crew: %s\n", valueOr(d.Meta.CrewName))
	fmt.Fprintf(&sb, "- Topic: %s\n", valueOr(d.Meta.Topic))
	fmt.Fprintf(&sb, "- Status: %s\n", valueOr(d.Meta.Status))
	fmt.Fprintf(&sb, "- Duration: %s\n\n", valueOr(d.Meta.Duration))

	fmt.Fprintf(&sb, "AGENTS (%d):\n", len(d.Agents))
	for i, a := range d.Agents {
		fmt.Fprintf(&sb, "   %d. %s with %d tools\n", i+1, a.Role, len(a.Tools))
	}
	fmt.Fprintf(&sb, "\nTASKS (%d):\n", len(d.Tasks))
	for i, t := range d.Tasks {
		fmt.Fprintf(&sb, "   %d. %s\n", i+1, truncate(t.Description, 100))
	}
	fmt.Fprintf(&sb, "\nRESULT:\n")
	fmt.Fprintf(&sb, "- Output size: %d characters\n", d.ResultChars)
	fmt.Fprintf(&sb, "- Apparent quality: %s", gradeResult(d.ResultChars))
	return sb.String()
}

func gradeResult(chars int) string {
	switch {
	case chars > 500:
		return "good"
	case chars > 100:
		return "limited"
	default:
		return "insufficient"
	}
}

func gradeByLength(chars, threshold int, above, below string) string {
	if chars > threshold {
		return above
	}
	return below
}
