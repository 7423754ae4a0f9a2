package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/crewdeck/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestExecutionLifecycle(t *testing.T) {
	store := newTestStore(t)

	start := time.Now()
	id, err := store.SaveExecution("research_crew", "solar power", start)
	require.NoError(t, err)
	require.NotZero(t, id)

	rec, err := store.GetExecution(id)
	require.NoError(t, err)
	assert.Equal(t, types.ExecutionRunning, rec.Status)
	assert.Equal(t, "solar power", rec.Topic)
	assert.Nil(t, rec.EndTime)

	end := start.Add(95 * time.Second)
	require.NoError(t, store.UpdateExecutionResult(id, "the result", end, "0:01:35", types.ExecutionCompleted, ""))

	rec, err = store.GetExecution(id)
	require.NoError(t, err)
	assert.Equal(t, types.ExecutionCompleted, rec.Status)
	assert.Equal(t, "the result", rec.Result)
	assert.Equal(t, "0:01:35", rec.Duration)
	require.NotNil(t, rec.EndTime)
}

func TestUpdateExecutionResult_Missing(t *testing.T) {
	store := newTestStore(t)
	err := store.UpdateExecutionResult(99, "", time.Now(), "0:00:00", types.ExecutionError, "boom")
	require.Error(t, err)
	assert.Equal(t, types.ErrNotFound, types.GetErrorCode(err))
}

func TestGetExecution_Missing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetExecution(42)
	require.Error(t, err)
	assert.Equal(t, types.ErrNotFound, types.GetErrorCode(err))
}

func TestGetAllExecutions_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	first, err := store.SaveExecution("a", "t1", time.Now())
	require.NoError(t, err)
	second, err := store.SaveExecution("b", "t2", time.Now())
	require.NoError(t, err)

	recs, err := store.GetAllExecutions()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, second, recs[0].ID)
	assert.Equal(t, first, recs[1].ID)
}

func TestEvaluationReports(t *testing.T) {
	store := newTestStore(t)
	id, err := store.SaveExecution("crew", "topic", time.Now())
	require.NoError(t, err)

	require.NoError(t, store.SaveEvaluationReport(id, "looks good"))
	reports, err := store.GetEvaluationReports(id)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "looks good", reports[0].Report)

	none, err := store.GetEvaluationReports(id + 1)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCrewConfigs_NewestWinsPerName(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SaveCrewConfig("alpha", "v1", []string{"a"}))
	require.NoError(t, store.SaveCrewConfig("beta", "only", []string{"b", "c"}))
	require.NoError(t, store.SaveCrewConfig("alpha", "v2", []string{"a", "d"}))

	configs, err := store.GetAllCrewConfigs()
	require.NoError(t, err)
	require.Len(t, configs, 2)
	// First-saved order, newest row per name.
	assert.Equal(t, "alpha", configs[0].Name)
	assert.Equal(t, "v2", configs[0].Description)
	assert.Equal(t, []string{"a", "d"}, configs[0].AgentNames)
	assert.Equal(t, "beta", configs[1].Name)
}

func TestStats(t *testing.T) {
	store := newTestStore(t)

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Zero(t, stats.TotalExecutions)

	for i := 0; i < 3; i++ {
		id, err := store.SaveExecution("busy_crew", "t", time.Now())
		require.NoError(t, err)
		status := types.ExecutionCompleted
		if i == 2 {
			status = types.ExecutionError
		}
		require.NoError(t, store.UpdateExecutionResult(id, "", time.Now(), "0:00:01", status, ""))
	}
	id, err := store.SaveExecution("quiet_crew", "t", time.Now())
	require.NoError(t, err)
	require.NoError(t, store.UpdateExecutionResult(id, "", time.Now(), "0:00:01", types.ExecutionCompleted, ""))

	stats, err = store.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalExecutions)
	assert.InDelta(t, 0.75, stats.SuccessRate, 0.001)
	assert.Equal(t, "busy_crew", stats.MostExecutedCrew)
}
