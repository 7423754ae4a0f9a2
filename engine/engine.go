// Package engine defines the boundary to the external agent-execution
// engine. The core hands it a crew spec (agent roster plus task list) and
// receives text back; everything behind that boundary is opaque.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AgentSpec is the engine-facing view of one agent.
type AgentSpec struct {
	Role            string   `json:"role"`
	Goal            string   `json:"goal"`
	Backstory       string   `json:"backstory"`
	Tools           []string `json:"tools"`
	AllowDelegation bool     `json:"allow_delegation"`
}

// TaskSpec is the engine-facing view of one task.
type TaskSpec struct {
	Description    string `json:"description"`
	ExpectedOutput string `json:"expected_output"`
	AgentRole      string `json:"agent_role"`
}

// CrewSpec is what a kickoff consumes.
type CrewSpec struct {
	Name   string      `json:"name"`
	Agents []AgentSpec `json:"agents"`
	Tasks  []TaskSpec  `json:"tasks"`
}

// Engine runs a crew spec to completion and returns the textual result.
type Engine interface {
	Kickoff(ctx context.Context, crew CrewSpec) (string, error)
}

// ChatFunc is a single blocking LLM completion call.
type ChatFunc func(ctx context.Context, prompt string) (string, error)

// LLMEngine renders the crew spec into one prompt per task and feeds the
// accumulated context through a ChatFunc. Tasks run sequentially; there are
// no retries and no timeout of its own, the caller's context bounds the run.
type LLMEngine struct {
	chat   ChatFunc
	model  string
	logger *zap.Logger
}

// NewLLMEngine creates an engine over the given completion function.
func NewLLMEngine(model string, chat ChatFunc, logger *zap.Logger) *LLMEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMEngine{
		chat:   chat,
		model:  model,
		logger: logger.With(zap.String("component", "engine"), zap.String("model", model)),
	}
}

// Kickoff runs the crew's tasks in order. Each task sees the previous task
// outputs as context; the final task's output is the crew result.
func (e *LLMEngine) Kickoff(ctx context.Context, crew CrewSpec) (string, error) {
	if e.chat == nil {
		return "", fmt.Errorf("engine has no completion backend configured")
	}
	if len(crew.Tasks) == 0 {
		return "", fmt.Errorf("crew %q has no tasks to run", crew.Name)
	}

	runID := uuid.NewString()
	e.logger.Info("kickoff",
		zap.String("run_id", runID),
		zap.String("crew", crew.Name),
		zap.Int("agents", len(crew.Agents)),
		zap.Int("tasks", len(crew.Tasks)))

	var previous []string
	var result string
	for i, task := range crew.Tasks {
		prompt := renderTaskPrompt(crew, task, previous)
		out, err := e.chat(ctx, prompt)
		if err != nil {
			return "", fmt.Errorf("task %d/%d (%s): %w", i+1, len(crew.Tasks), task.AgentRole, err)
		}
		previous = append(previous, out)
		result = out
	}

	e.logger.Info("kickoff finished", zap.String("run_id", runID), zap.Int("result_chars", len(result)))
	return result, nil
}

func renderTaskPrompt(crew CrewSpec, task TaskSpec, previous []string) string {
	var sb strings.Builder
	for _, a := range crew.Agents {
		if a.Role != task.AgentRole {
			continue
		}
		fmt.Fprintf(&sb, "You are %s.\nGoal: %s\n", a.Role, a.Goal)
		if a.Backstory != "" {
			fmt.Fprintf(&sb, "Backstory: %s\n", a.Backstory)
		}
		if len(a.Tools) > 0 {
			fmt.Fprintf(&sb, "Available tools: %s\n", strings.Join(a.Tools, ", "))
		}
		break
	}
	if len(previous) > 0 {
		sb.WriteString("\nContext from earlier tasks:\n")
		for _, p := range previous {
			sb.WriteString(p)
			sb.WriteString("\n---\n")
		}
	}
	fmt.Fprintf(&sb, "\nTask: %s\nExpected output: %s\n", task.Description, task.ExpectedOutput)
	return sb.String()
}
