package execution

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/crewdeck/agent/crews"
	"github.com/BaSui01/crewdeck/agent/evaluation"
	"github.com/BaSui01/crewdeck/agent/registry"
	"github.com/BaSui01/crewdeck/agent/tasks"
	"github.com/BaSui01/crewdeck/config"
	"github.com/BaSui01/crewdeck/engine"
	"github.com/BaSui01/crewdeck/storage"
	"github.com/BaSui01/crewdeck/tools"
	"github.com/BaSui01/crewdeck/types"
)

// mockEngine implements engine.Engine with a function callback.
type mockEngine struct {
	kickoffFn func(ctx context.Context, crew engine.CrewSpec) (string, error)
}

func (m *mockEngine) Kickoff(ctx context.Context, crew engine.CrewSpec) (string, error) {
	if m.kickoffFn != nil {
		return m.kickoffFn(ctx, crew)
	}
	return "primary result", nil
}

type fixture struct {
	executor  *Executor
	assembler *crews.Assembler
	configs   *config.Store
	store     *storage.Store
	engine    *mockEngine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	configs := config.NewStore(&config.Config{
		AgentsPath:     filepath.Join(dir, "agents.yaml"),
		TasksPath:      filepath.Join(dir, "tasks.yaml"),
		AgentToolsPath: filepath.Join(dir, "agent_tools.yaml"),
	}, zap.NewNop())
	toolRegistry := tools.NewRegistry(zap.NewNop(), tools.NewNativeProvider(), tools.NewCustomProvider())
	agents := registry.New(configs, toolRegistry, zap.NewNop())
	binder := tasks.NewBinder(configs, zap.NewNop())
	store, err := storage.Open(":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	eng := &mockEngine{}
	evaluator := evaluation.NewPipeline(agents, binder, eng, nil, zap.NewNop())
	assembler := crews.NewAssembler(agents, binder, store, zap.NewNop())
	executor := NewExecutor(assembler, eng, store, evaluator, nil, zap.NewNop())

	return &fixture{executor: executor, assembler: assembler, configs: configs, store: store, engine: eng}
}

func (f *fixture) seedAgent(t *testing.T, name, role string, toolNames ...string) {
	t.Helper()
	require.NoError(t, f.configs.Agents.Upsert(name, types.AgentDefinition{
		Role: role, Goal: "goal", Backstory: "story",
	}))
	require.NoError(t, f.configs.Bindings.Upsert(name, types.ToolBinding{Tools: toolNames}))
}

func (f *fixture) lastExecution(t *testing.T) storage.ExecutionRecord {
	t.Helper()
	recs, err := f.store.GetAllExecutions()
	require.NoError(t, err)
	require.NotEmpty(t, recs)
	return recs[0]
}

func TestExecuteCrew_UnknownCrew(t *testing.T) {
	f := newFixture(t)
	_, err := f.executor.ExecuteCrew(context.Background(), "ghost", nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrNotFound, types.GetErrorCode(err))

	// Fail-fast: no record is written.
	recs, err := f.store.GetAllExecutions()
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestExecuteCrew_NoTasksNoTopic(t *testing.T) {
	f := newFixture(t)
	f.seedAgent(t, "researcher", "Researcher", "simple_research_tool")
	require.NotNil(t, f.assembler.CreateCrew("solo", []string{"researcher"}, ""))

	_, err := f.executor.ExecuteCrew(context.Background(), "solo", nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrValidation, types.GetErrorCode(err))

	rec := f.lastExecution(t)
	assert.Equal(t, types.ExecutionError, rec.Status)
	assert.Equal(t, "0:00:00", rec.Duration)
	assert.Equal(t, "Execution without topic", rec.Topic)
	assert.NotEmpty(t, rec.ErrorMsg)
}

func TestExecuteCrew_DynamicTask(t *testing.T) {
	f := newFixture(t)
	f.seedAgent(t, "engineer", "Structural Engineer", "validate_records")
	f.seedAgent(t, "writer", "Writer", "generate_report")
	require.NotNil(t, f.assembler.CreateCrew("pair", []string{"writer", "engineer"}, ""))

	var ran engine.CrewSpec
	f.engine.kickoffFn = func(_ context.Context, crew engine.CrewSpec) (string, error) {
		ran = crew
		return "engine says ok", nil
	}

	out, err := f.executor.ExecuteCrew(context.Background(), "pair",
		map[string]string{"topic": "structural analysis report"})
	require.NoError(t, err)
	assert.Contains(t, out, "engine says ok")

	// One synthesized task, bound to the best-scoring agent: the role
	// substring match beats any tool match.
	require.Len(t, ran.Tasks, 1)
	assert.Equal(t, "Execute the following task: structural analysis report", ran.Tasks[0].Description)
	assert.Equal(t, "Structural Engineer", ran.Tasks[0].AgentRole)

	// The crew itself keeps its empty task list.
	assert.Empty(t, f.assembler.GetCrew("pair").Tasks)
}

func TestExecuteCrew_AppendsEvaluationReport(t *testing.T) {
	f := newFixture(t)
	f.seedAgent(t, "researcher", "Researcher", "simple_research_tool")
	require.NotNil(t, f.assembler.CreateCrew("solo", []string{"researcher"}, ""))

	out, err := f.executor.ExecuteCrew(context.Background(), "solo",
		map[string]string{"topic": "anything"})
	require.NoError(t, err)

	// Primary result is never dropped, the report block follows the
	// separator. With no evaluator agent defined the basic tier applies.
	assert.Contains(t, out, "primary result")
	assert.Contains(t, out, "EVALUATION REPORT")
	assert.Less(t,
		strings.Index(out, "primary result"),
		strings.Index(out, "EVALUATION REPORT"))

	rec := f.lastExecution(t)
	assert.Equal(t, types.ExecutionCompleted, rec.Status)
	assert.Contains(t, rec.Result, "EVALUATION REPORT")

	reports, err := f.store.GetEvaluationReports(rec.ID)
	require.NoError(t, err)
	require.Len(t, reports, 1)
}

func TestExecuteCrew_EngineFailure(t *testing.T) {
	f := newFixture(t)
	f.seedAgent(t, "researcher", "Researcher", "simple_research_tool")
	require.NotNil(t, f.assembler.CreateCrew("solo", []string{"researcher"}, ""))

	f.engine.kickoffFn = func(_ context.Context, _ engine.CrewSpec) (string, error) {
		return "", errors.New("model exploded")
	}

	_, err := f.executor.ExecuteCrew(context.Background(), "solo",
		map[string]string{"topic": "anything"})
	require.Error(t, err)
	assert.Equal(t, types.ErrEngine, types.GetErrorCode(err))

	rec := f.lastExecution(t)
	assert.Equal(t, types.ExecutionError, rec.Status)
	assert.Contains(t, rec.ErrorMsg, "model exploded")
	assert.Empty(t, rec.Result)
}

func TestExecuteCrew_PreboundTasksRunAsIs(t *testing.T) {
	f := newFixture(t)
	f.seedAgent(t, "researcher", "Researcher", "simple_research_tool")
	require.NoError(t, f.configs.Tasks.Upsert("research_task", types.TaskDefinition{
		Description: "Research everything", ExpectedOutput: "notes", Agent: "researcher",
	}))
	require.NotNil(t, f.assembler.CreateCrewWithTasks("solo", []string{"researcher"},
		[]string{"research_task"}, "", nil))

	var ran engine.CrewSpec
	f.engine.kickoffFn = func(_ context.Context, crew engine.CrewSpec) (string, error) {
		ran = crew
		return "done", nil
	}

	// No topic needed when tasks are pre-bound.
	_, err := f.executor.ExecuteCrew(context.Background(), "solo", nil)
	require.NoError(t, err)
	require.Len(t, ran.Tasks, 1)
	assert.Equal(t, "Research everything", ran.Tasks[0].Description)
}

func TestSelectBestAgent(t *testing.T) {
	engineer := &registry.Agent{Role: "Structural Engineer"}
	writer := &registry.Agent{Role: "Writer"}

	picked := selectBestAgent([]*registry.Agent{writer, engineer}, "Structural Analysis Report")
	assert.Same(t, engineer, picked)

	// No score at all falls back to the first agent.
	picked = selectBestAgent([]*registry.Agent{writer, engineer}, "quarterly budget")
	assert.Same(t, writer, picked)

	// Empty roster yields nil.
	assert.Nil(t, selectBestAgent(nil, "anything"))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0:00:00", formatDuration(0))
	assert.Equal(t, "0:00:00", formatDuration(500*time.Millisecond))
	assert.Equal(t, "0:01:35", formatDuration(95*time.Second))
	assert.Equal(t, "2:05:07", formatDuration(2*time.Hour+5*time.Minute+7*time.Second))
	assert.Equal(t, "27:00:00", formatDuration(27*time.Hour))
	assert.Equal(t, "0:00:00", formatDuration(-time.Second))
}

func TestStatsAndHistory(t *testing.T) {
	f := newFixture(t)
	f.seedAgent(t, "researcher", "Researcher", "simple_research_tool")
	require.NotNil(t, f.assembler.CreateCrew("solo", []string{"researcher"}, ""))

	_, err := f.executor.ExecuteCrew(context.Background(), "solo",
		map[string]string{"topic": "anything"})
	require.NoError(t, err)

	history, err := f.executor.History()
	require.NoError(t, err)
	assert.Len(t, history, 1)

	stats, err := f.executor.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalExecutions)
	assert.Equal(t, "solo", stats.MostExecutedCrew)
}
