// Package evaluation produces a post-execution quality report for every
// completed crew run. Three tiers back each other up: an evaluator agent run
// through the engine, a deterministic analyzer report, and a minimal
// template. The pipeline never returns an error; the caller always receives
// some report text.
package evaluation

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/crewdeck/agent/registry"
	"github.com/BaSui01/crewdeck/agent/tasks"
	"github.com/BaSui01/crewdeck/engine"
	"github.com/BaSui01/crewdeck/internal/metrics"
)

// Names of the evaluator agent definition and its task definition. Both are
// ordinary entries in the configuration store so operators can tune them.
const (
	EvaluatorAgentName = "crew_evaluator"
	EvaluationTaskName = "crew_evaluation_task"
)

// emptyReportPlaceholder is returned verbatim when the evaluator crew runs
// but produces no text.
const emptyReportPlaceholder = "Evaluation report not generated."

// Pipeline runs the tiered post-execution evaluation.
type Pipeline struct {
	agents  *registry.Registry
	binder  *tasks.Binder
	engine  engine.Engine
	logger  *zap.Logger
	metrics *metrics.Collector
}

// NewPipeline creates the evaluation pipeline. The collector may be nil.
func NewPipeline(agents *registry.Registry, binder *tasks.Binder, eng engine.Engine, collector *metrics.Collector, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		agents:  agents,
		binder:  binder,
		engine:  eng,
		logger:  logger.With(zap.String("component", "evaluation")),
		metrics: collector,
	}
}

func (p *Pipeline) recordTier(tier string) {
	if p.metrics != nil {
		p.metrics.RecordEvaluation(tier)
	}
}

// Evaluate produces a report for the digested execution. Failures degrade
// through the tiers and are logged; the caller always gets report text and
// never an error. The primary execution result is the caller's to keep, the
// pipeline only ever reads it.
func (p *Pipeline) Evaluate(ctx context.Context, digest *Digest) string {
	report, err := p.comprehensive(ctx, digest)
	if err == nil {
		p.recordTier("comprehensive")
		return report
	}
	p.logger.Warn("comprehensive evaluation failed, falling back", zap.Error(err))

	report, err = p.basic(digest)
	if err == nil {
		p.recordTier("basic")
		return report
	}
	p.logger.Warn("basic evaluation failed, using minimal report", zap.Error(err))

	p.recordTier("minimal")
	return minimalReport(digest)
}

// comprehensive is the first tier: a dedicated evaluator agent runs as a
// single-agent crew over the digest.
func (p *Pipeline) comprehensive(ctx context.Context, digest *Digest) (string, error) {
	if digest == nil {
		return "", fmt.Errorf("no execution digest")
	}
	evaluator, err := p.agents.GetOrCreate(EvaluatorAgentName)
	if err != nil {
		return "", fmt.Errorf("evaluator agent unavailable: %w", err)
	}
	task := p.binder.CreateTaskWithParams(EvaluationTaskName, evaluator, map[string]string{
		"topic":   digest.Meta.Topic,
		"context": digest.RenderContext(),
	})
	if task == nil {
		return "", fmt.Errorf("evaluation task %q unavailable", EvaluationTaskName)
	}

	spec := engine.CrewSpec{
		Name: "evaluation",
		Agents: []engine.AgentSpec{{
			Role:      evaluator.Role,
			Goal:      evaluator.Goal,
			Backstory: evaluator.Backstory,
			Tools:     evaluator.ToolNames(),
		}},
		Tasks: []engine.TaskSpec{{
			Description:    task.Description,
			ExpectedOutput: task.ExpectedOutput,
			AgentRole:      evaluator.Role,
		}},
	}

	p.logger.Info("running comprehensive evaluation", zap.String("crew", digest.Meta.CrewName))
	out, err := p.engine.Kickoff(ctx, spec)
	if err != nil {
		return "", fmt.Errorf("evaluator crew: %w", err)
	}
	if strings.TrimSpace(out) == "" {
		return emptyReportPlaceholder, nil
	}
	return out, nil
}

// basic is the second tier: a deterministic report assembled from the
// analyzer functions, no engine involved.
func (p *Pipeline) basic(digest *Digest) (string, error) {
	if digest == nil {
		return "", fmt.Errorf("no execution digest")
	}
	sections := []string{
		buildSummary(digest),
		analyzePerformance(digest),
		analyzeOutputQuality(digest),
		analyzeToolUsage(digest),
		analyzeWorkflow(digest),
		buildRecommendations(),
	}
	return strings.Join(sections, "\n\n"), nil
}

// minimalReport is the last tier: counts only, no analysis content.
func minimalReport(digest *Digest) string {
	agents, taskCount, chars := 0, 0, 0
	hasResult := "no"
	if digest != nil {
		agents = len(digest.Agents)
		taskCount = len(digest.Tasks)
		chars = digest.ResultChars
		if digest.Result != "" {
			hasResult = "yes"
		}
	}
	var sb strings.Builder
	sb.WriteString("=== MINIMAL EVALUATION ===\n\n")
	fmt.Fprintf(&sb, "- Agents in crew: %d\n", agents)
	fmt.Fprintf(&sb, "- Tasks executed: %d\n", taskCount)
	fmt.Fprintf(&sb, "- Result produced: %s\n", hasResult)
	fmt.Fprintf(&sb, "- Result size: %d characters\n\n", chars)
	sb.WriteString("STATUS: execution finished\n")
	sb.WriteString("EVALUATION: evaluation system unavailable")
	return sb.String()
}

// FormatSeparator renders the visual delimiter placed between the primary
// execution result and the evaluation report.
func FormatSeparator() string {
	return strings.Join([]string{
		"==============================================================",
		"                     EVALUATION REPORT",
		"                Automated Quality Assessment",
		"==============================================================",
	}, "\n")
}
