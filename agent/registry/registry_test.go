package registry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/BaSui01/crewdeck/config"
	"github.com/BaSui01/crewdeck/tools"
	"github.com/BaSui01/crewdeck/types"
)

func newTestRegistry(t *testing.T) (*Registry, *config.Store) {
	t.Helper()
	dir := t.TempDir()
	store := config.NewStore(&config.Config{
		AgentsPath:     filepath.Join(dir, "agents.yaml"),
		TasksPath:      filepath.Join(dir, "tasks.yaml"),
		AgentToolsPath: filepath.Join(dir, "agent_tools.yaml"),
	}, zap.NewNop())
	toolRegistry := tools.NewRegistry(zap.NewNop(), tools.NewNativeProvider(), tools.NewCustomProvider())
	return New(store, toolRegistry, zap.NewNop()), store
}

func seedAgent(t *testing.T, store *config.Store, name, role string, toolNames ...string) {
	t.Helper()
	require.NoError(t, store.Agents.Upsert(name, types.AgentDefinition{
		Role: role, Goal: "goal of " + name, Backstory: "backstory",
	}))
	if len(toolNames) > 0 {
		require.NoError(t, store.Bindings.Upsert(name, types.ToolBinding{Tools: toolNames}))
	}
}

func TestCreateAgent_FromBinding(t *testing.T) {
	reg, store := newTestRegistry(t)
	seedAgent(t, store, "analyst", "Analyst", "read_records", "generate_report")

	agent, err := reg.CreateAgent("analyst", nil)
	require.NoError(t, err)
	assert.Equal(t, "Analyst", agent.Role)
	assert.Equal(t, []string{"read_records", "generate_report"}, agent.ToolNames())
}

func TestCreateAgent_Unknown(t *testing.T) {
	reg, _ := newTestRegistry(t)
	_, err := reg.CreateAgent("ghost", nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrNotFound, types.GetErrorCode(err))
}

func TestCreateAgent_ToolOverride(t *testing.T) {
	reg, store := newTestRegistry(t)
	seedAgent(t, store, "analyst", "Analyst", "read_records")

	agent, err := reg.CreateAgent("analyst", []string{"generate_report"})
	require.NoError(t, err)
	assert.Equal(t, []string{"generate_report"}, agent.ToolNames())
}

func TestCreateAgent_SkipsUnresolvableTools(t *testing.T) {
	reg, store := newTestRegistry(t)
	seedAgent(t, store, "analyst", "Analyst", "read_records", "imaginary_tool")

	agent, err := reg.CreateAgent("analyst", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"read_records"}, agent.ToolNames())
}

func TestCreateAgent_NoBindingMeansNoTools(t *testing.T) {
	reg, store := newTestRegistry(t)
	seedAgent(t, store, "bare", "Bare Agent")

	agent, err := reg.CreateAgent("bare", nil)
	require.NoError(t, err)
	assert.Empty(t, agent.Tools)
}

func TestGetAgent_CacheOnly(t *testing.T) {
	reg, store := newTestRegistry(t)
	seedAgent(t, store, "analyst", "Analyst", "read_records")

	assert.Nil(t, reg.GetAgent("analyst"))
	_, err := reg.CreateAgent("analyst", nil)
	require.NoError(t, err)
	assert.NotNil(t, reg.GetAgent("analyst"))
}

func TestGetOrCreate_ReusesCache(t *testing.T) {
	reg, store := newTestRegistry(t)
	seedAgent(t, store, "analyst", "Analyst", "read_records")

	first, err := reg.GetOrCreate("analyst")
	require.NoError(t, err)
	second, err := reg.GetOrCreate("analyst")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestAgentInfo_Idempotent(t *testing.T) {
	reg, store := newTestRegistry(t)
	seedAgent(t, store, "analyst", "Analyst", "read_records")

	a, ok := reg.AgentInfo("analyst")
	require.True(t, ok)
	b, ok := reg.AgentInfo("analyst")
	require.True(t, ok)
	assert.Equal(t, a, b)
}

func TestUpdateAgentConfig_MergesPatch(t *testing.T) {
	reg, store := newTestRegistry(t)
	seedAgent(t, store, "analyst", "Analyst")

	require.True(t, reg.UpdateAgentConfig("analyst", types.AgentDefinition{Goal: "new goal", Verbose: true}))
	def, _ := reg.AgentInfo("analyst")
	assert.Equal(t, "Analyst", def.Role)
	assert.Equal(t, "new goal", def.Goal)
	assert.True(t, def.Verbose)
}

func TestUpdateAgentConfig_BoolsComeFromPatch(t *testing.T) {
	reg, store := newTestRegistry(t)
	seedAgent(t, store, "analyst", "Analyst")
	require.True(t, reg.UpdateAgentConfig("analyst", types.AgentDefinition{
		Verbose: true, AllowDelegation: true,
	}))

	// A string-only patch resets the flags; keeping a flag set requires
	// sending the full definition.
	require.True(t, reg.UpdateAgentConfig("analyst", types.AgentDefinition{Goal: "new goal"}))
	def, _ := reg.AgentInfo("analyst")
	assert.Equal(t, "new goal", def.Goal)
	assert.False(t, def.Verbose)
	assert.False(t, def.AllowDelegation)
}

func TestUpdateAgentConfig_Unknown(t *testing.T) {
	reg, _ := newTestRegistry(t)
	assert.False(t, reg.UpdateAgentConfig("ghost", types.AgentDefinition{}))
}

func TestUpdateAgentTools(t *testing.T) {
	reg, store := newTestRegistry(t)
	seedAgent(t, store, "analyst", "Analyst")

	require.True(t, reg.UpdateAgentTools("analyst", []string{"validate_records"}))
	assert.Equal(t, []string{"validate_records"}, reg.AgentTools("analyst"))
}

func TestRenameAgent_MovesEverything(t *testing.T) {
	reg, store := newTestRegistry(t)
	seedAgent(t, store, "analyst", "Analyst", "read_records")
	_, err := reg.CreateAgent("analyst", nil)
	require.NoError(t, err)

	require.True(t, reg.RenameAgent("analyst", "senior_analyst"))

	_, ok := store.Agents.Get("analyst")
	assert.False(t, ok)
	_, ok = store.Bindings.Get("analyst")
	assert.False(t, ok)
	assert.Nil(t, reg.GetAgent("analyst"))

	agent := reg.GetAgent("senior_analyst")
	require.NotNil(t, agent)
	assert.Equal(t, "senior_analyst", agent.Name)
}

func TestRenameAgent_Guards(t *testing.T) {
	reg, store := newTestRegistry(t)
	seedAgent(t, store, "a", "A")
	seedAgent(t, store, "b", "B")

	assert.False(t, reg.RenameAgent("ghost", "x"))
	assert.False(t, reg.RenameAgent("a", "b"))
}

// Renaming A to B and back must restore the definition, the binding and the
// cache entry under A, with B gone from every table.
func TestRenameAgent_RoundTrip(t *testing.T) {
	reg, store := newTestRegistry(t)
	rapid.Check(t, func(t *rapid.T) {
		oldName := rapid.StringMatching(`[a-z]{3,10}`).Draw(t, "old")
		newName := rapid.StringMatching(`[a-z]{3,10}`).Draw(t, "new")
		if oldName == newName {
			return
		}
		// Names left over from earlier iterations would break the guards.
		if _, ok := store.Agents.Get(oldName); ok {
			return
		}
		if _, ok := store.Agents.Get(newName); ok {
			return
		}

		def := types.AgentDefinition{Role: "Role " + oldName, Goal: "g"}
		if err := store.Agents.Upsert(oldName, def); err != nil {
			t.Fatal(err)
		}
		if err := store.Bindings.Upsert(oldName, types.ToolBinding{Tools: []string{"read_records"}}); err != nil {
			t.Fatal(err)
		}
		if _, err := reg.CreateAgent(oldName, nil); err != nil {
			t.Fatal(err)
		}

		if !reg.RenameAgent(oldName, newName) || !reg.RenameAgent(newName, oldName) {
			t.Fatal("rename round trip failed")
		}

		got, ok := store.Agents.Get(oldName)
		if !ok || got.Role != def.Role || got.Goal != def.Goal {
			t.Fatalf("definition not restored under %q", oldName)
		}
		if _, ok := store.Agents.Get(newName); ok {
			t.Fatalf("definition still present under %q", newName)
		}
		if _, ok := store.Bindings.Get(newName); ok {
			t.Fatalf("binding still present under %q", newName)
		}
		binding, ok := store.Bindings.Get(oldName)
		if !ok || len(binding.Tools) != 1 {
			t.Fatalf("binding not restored under %q", oldName)
		}
		if reg.GetAgent(newName) != nil {
			t.Fatalf("cache entry still present under %q", newName)
		}
		agent := reg.GetAgent(oldName)
		if agent == nil || agent.Name != oldName {
			t.Fatalf("cache entry not restored under %q", oldName)
		}
	})
}

func TestDeleteAgent(t *testing.T) {
	reg, store := newTestRegistry(t)
	seedAgent(t, store, "analyst", "Analyst", "read_records")
	_, err := reg.CreateAgent("analyst", nil)
	require.NoError(t, err)

	require.True(t, reg.DeleteAgent("analyst"))
	_, ok := store.Agents.Get("analyst")
	assert.False(t, ok)
	assert.Nil(t, reg.GetAgent("analyst"))
	assert.False(t, reg.DeleteAgent("analyst"))
}

func TestAvailableAgentNames(t *testing.T) {
	reg, store := newTestRegistry(t)
	seedAgent(t, store, "b_agent", "B")
	seedAgent(t, store, "a_agent", "A")

	assert.Equal(t, []string{"a_agent", "b_agent"}, reg.AvailableAgentNames())
}
