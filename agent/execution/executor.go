// Package execution runs crews, owns the execution record lifecycle and
// triggers the post-run evaluation.
package execution

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/crewdeck/agent/crews"
	"github.com/BaSui01/crewdeck/agent/evaluation"
	"github.com/BaSui01/crewdeck/agent/registry"
	"github.com/BaSui01/crewdeck/engine"
	"github.com/BaSui01/crewdeck/internal/metrics"
	"github.com/BaSui01/crewdeck/storage"
	"github.com/BaSui01/crewdeck/types"
)

// defaultTopic is recorded when the caller supplies no topic input.
const defaultTopic = "Execution without topic"

// Executor drives one crew run end to end: record creation, optional dynamic
// task synthesis, engine kickoff, evaluation, record finalization.
type Executor struct {
	crews     *crews.Assembler
	engine    engine.Engine
	store     *storage.Store
	evaluator *evaluation.Pipeline
	metrics   *metrics.Collector
	logger    *zap.Logger
}

// NewExecutor creates the executor. The collector may be nil.
func NewExecutor(assembler *crews.Assembler, eng engine.Engine, store *storage.Store, evaluator *evaluation.Pipeline, collector *metrics.Collector, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		crews:     assembler,
		engine:    eng,
		store:     store,
		evaluator: evaluator,
		metrics:   collector,
		logger:    logger.With(zap.String("component", "executor")),
	}
}

// ExecuteCrew runs the named crew. With pre-bound tasks the crew runs as is;
// without them a single task is synthesized from inputs["topic"], picking the
// best-matching agent. Exactly one terminal transition is recorded per run.
//
// The dynamic task never touches the crew itself; a failed run leaves the
// crew exactly as it was.
func (e *Executor) ExecuteCrew(ctx context.Context, crewName string, inputs map[string]string) (string, error) {
	crew := e.crews.GetCrew(crewName)
	if crew == nil {
		e.logger.Warn("crew not found", zap.String("crew", crewName))
		return "", types.NewError(types.ErrNotFound, "crew %q not found", crewName)
	}

	topic, hasTopic := inputs["topic"]
	recordedTopic := topic
	if !hasTopic || topic == "" {
		recordedTopic = defaultTopic
	}

	start := time.Now()
	executionID, err := e.store.SaveExecution(crewName, recordedTopic, start)
	if err != nil {
		e.logger.Error("failed to record execution start", zap.String("crew", crewName), zap.Error(err))
		return "", err
	}

	runSpec := crew.Spec()
	if len(runSpec.Tasks) == 0 {
		if !hasTopic || topic == "" {
			e.logger.Warn("crew has no tasks and no topic was provided", zap.String("crew", crewName))
			e.finalize(executionID, crewName, "Error: topic not provided", start,
				types.ExecutionError, "topic parameter not provided")
			return "", types.NewError(types.ErrValidation, "crew %q has no tasks and no topic was provided", crewName)
		}
		e.logger.Info("synthesizing dynamic task",
			zap.String("crew", crewName), zap.String("topic", topic))
		agent := selectBestAgent(crew.Agents, topic)
		runSpec.Tasks = []engine.TaskSpec{{
			Description:    fmt.Sprintf("Execute the following task: %s", topic),
			ExpectedOutput: "Detailed result of the task execution",
			AgentRole:      agent.Role,
		}}
	}

	result, err := e.engine.Kickoff(ctx, runSpec)
	if err != nil {
		e.logger.Error("crew execution failed", zap.String("crew", crewName), zap.Error(err))
		e.finalize(executionID, crewName, "", start, types.ExecutionError, err.Error())
		return "", types.NewError(types.ErrEngine, "execute crew %q", crewName).WithCause(err)
	}

	end := time.Now()
	duration := formatDuration(end.Sub(start))

	digest := e.buildDigest(crew, runSpec, recordedTopic, duration, result)
	report := e.evaluator.Evaluate(ctx, digest)
	combined := fmt.Sprintf("%s\n\n%s\n%s", result, evaluation.FormatSeparator(), report)

	if err := e.store.SaveEvaluationReport(executionID, report); err != nil {
		e.logger.Error("failed to persist evaluation report",
			zap.Uint("execution_id", executionID), zap.Error(err))
	}

	e.finalize(executionID, crewName, combined, start, types.ExecutionCompleted, "")
	e.logger.Info("crew execution completed",
		zap.String("crew", crewName),
		zap.Uint("execution_id", executionID),
		zap.String("duration", duration))
	return combined, nil
}

// finalize performs the single terminal transition of the execution record
// and emits the run metrics. Persistence errors here are logged, not
// propagated; the run outcome is already decided.
func (e *Executor) finalize(id uint, crewName, result string, start time.Time, status types.ExecutionStatus, errMsg string) {
	end := time.Now()
	elapsed := end.Sub(start)
	if err := e.store.UpdateExecutionResult(id, result, end, formatDuration(elapsed), status, errMsg); err != nil {
		e.logger.Error("failed to finalize execution record",
			zap.Uint("execution_id", id), zap.Error(err))
	}
	if e.metrics != nil {
		e.metrics.RecordExecution(crewName, string(status), elapsed)
	}
}

func (e *Executor) buildDigest(crew *crews.Crew, runSpec engine.CrewSpec, topic, duration, result string) *evaluation.Digest {
	agents := make([]evaluation.AgentDigest, 0, len(crew.Agents))
	for _, a := range crew.Agents {
		agents = append(agents, evaluation.AgentDigest{
			Role:      a.Role,
			Goal:      a.Goal,
			Backstory: a.Backstory,
			Tools:     a.ToolNames(),
		})
	}
	tasks := make([]evaluation.TaskDigest, 0, len(runSpec.Tasks))
	for _, t := range runSpec.Tasks {
		tasks = append(tasks, evaluation.TaskDigest{
			Description:    t.Description,
			AgentRole:      t.AgentRole,
			ExpectedOutput: t.ExpectedOutput,
		})
	}
	return evaluation.NewDigest(agents, tasks, evaluation.ExecutionMeta{
		CrewName: crew.Name,
		Topic:    topic,
		Duration: duration,
		Status:   string(types.ExecutionCompleted),
	}, result)
}

// selectBestAgent scores each agent against the lower-cased topic: 2 points
// when the agent's role appears as a substring, 1 per matching tool name.
// Ties keep the first agent encountered; with no score the first agent wins.
func selectBestAgent(agents []*registry.Agent, topic string) *registry.Agent {
	lowered := strings.ToLower(topic)
	var best *registry.Agent
	maxScore := 0
	for _, agent := range agents {
		score := 0
		if agent.Role != "" && strings.Contains(lowered, strings.ToLower(agent.Role)) {
			score += 2
		}
		for _, tool := range agent.Tools {
			if strings.Contains(lowered, strings.ToLower(tool.Name())) {
				score++
			}
		}
		if score > maxScore {
			maxScore = score
			best = agent
		}
	}
	if best == nil && len(agents) > 0 {
		best = agents[0]
	}
	return best
}

// formatDuration renders an elapsed time as H:MM:SS with unpadded hours.
// A zero-length run renders as "0:00:00".
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// History returns all execution records, newest first.
func (e *Executor) History() ([]storage.ExecutionRecord, error) {
	return e.store.GetAllExecutions()
}

// Stats returns the aggregate execution statistics.
func (e *Executor) Stats() (*types.ExecutionStats, error) {
	return e.store.Stats()
}
