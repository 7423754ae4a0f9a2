// Package crews assembles runtime crews from agent definitions, validates
// them, and keeps the in-memory crew registry in step with durable storage.
package crews

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/crewdeck/agent/registry"
	"github.com/BaSui01/crewdeck/agent/tasks"
	"github.com/BaSui01/crewdeck/engine"
	"github.com/BaSui01/crewdeck/storage"
	"github.com/BaSui01/crewdeck/types"
)

// Crew is a runtime crew: an ordered agent roster plus its bound tasks.
type Crew struct {
	Name        string
	Description string
	Agents      []*registry.Agent
	Tasks       []*tasks.Task
	Info        types.CrewInfo
}

// Spec renders the crew into the engine-facing shape.
func (c *Crew) Spec() engine.CrewSpec {
	spec := engine.CrewSpec{Name: c.Name}
	for _, a := range c.Agents {
		spec.Agents = append(spec.Agents, engine.AgentSpec{
			Role:            a.Role,
			Goal:            a.Goal,
			Backstory:       a.Backstory,
			Tools:           a.ToolNames(),
			AllowDelegation: a.AllowDelegation,
		})
	}
	for _, t := range c.Tasks {
		role := ""
		if t.Agent != nil {
			role = t.Agent.Role
		}
		spec.Tasks = append(spec.Tasks, engine.TaskSpec{
			Description:    t.Description,
			ExpectedOutput: t.ExpectedOutput,
			AgentRole:      role,
		})
	}
	return spec
}

// Assembler builds crews and owns the in-memory crew registry.
type Assembler struct {
	agents *registry.Registry
	binder *tasks.Binder
	store  *storage.Store
	logger *zap.Logger

	mu    sync.RWMutex
	crews map[string]*Crew
}

// NewAssembler creates a crew assembler. Call LoadSavedCrews afterwards to
// rehydrate previously persisted crews.
func NewAssembler(agents *registry.Registry, binder *tasks.Binder, store *storage.Store, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{
		agents: agents,
		binder: binder,
		store:  store,
		logger: logger.With(zap.String("component", "crew_assembler")),
		crews:  make(map[string]*Crew),
	}
}

// CreateCrew resolves (or creates) each named agent, validates that every
// agent carries at least one tool, registers the crew in memory and persists
// its configuration.
//
// A name already registered in memory is rejected. A persistence failure is
// logged but does NOT roll the in-memory crew back; the crew stays usable
// and only its durable copy is missing.
func (a *Assembler) CreateCrew(name string, agentNames []string, description string) *Crew {
	a.mu.RLock()
	_, exists := a.crews[name]
	a.mu.RUnlock()
	if exists {
		a.logger.Warn("crew name already in use", zap.String("crew", name))
		return nil
	}

	crew := a.buildCrew(name, agentNames, description)
	if crew == nil {
		return nil
	}
	crew.Info.CreatedAt = time.Now()

	if !a.validateAgentTools(crew) {
		a.logger.Warn("crew creation aborted: one or more agents have no tools",
			zap.String("crew", name))
		return nil
	}

	a.mu.Lock()
	a.crews[name] = crew
	a.mu.Unlock()

	if err := a.store.SaveCrewConfig(name, description, agentNames); err != nil {
		a.logger.Error("crew created in memory but not persisted",
			zap.String("crew", name), zap.Error(err))
	}

	a.logger.Info("crew created",
		zap.String("crew", name), zap.Int("agents", len(crew.Agents)))
	return crew
}

// buildCrew resolves the roster. Agents that fail to resolve are skipped;
// an empty roster fails the build.
func (a *Assembler) buildCrew(name string, agentNames []string, description string) *Crew {
	var roster []*registry.Agent
	for _, agentName := range agentNames {
		agent, err := a.agents.GetOrCreate(agentName)
		if err != nil {
			a.logger.Warn("skipping unresolvable agent",
				zap.String("crew", name), zap.String("agent", agentName), zap.Error(err))
			continue
		}
		roster = append(roster, agent)
	}
	if len(roster) == 0 {
		a.logger.Warn("no valid agents for crew", zap.String("crew", name))
		return nil
	}
	return &Crew{
		Name:        name,
		Description: description,
		Agents:      roster,
		Info: types.CrewInfo{
			Description: description,
			AgentNames:  agentNames,
		},
	}
}

// validateAgentTools checks the >=1 tool invariant, logging every offending
// agent's role before failing.
func (a *Assembler) validateAgentTools(crew *Crew) bool {
	var offending []string
	for _, agent := range crew.Agents {
		if len(agent.Tools) == 0 {
			offending = append(offending, agent.Role)
		}
	}
	if len(offending) > 0 {
		for _, role := range offending {
			a.logger.Warn("agent has no tools configured",
				zap.String("crew", crew.Name), zap.String("role", role))
		}
		return false
	}
	return true
}

// AddTaskToCrew binds the task's declared agent and appends the resulting
// runtime task to the crew. It returns false when the crew, the task type,
// or its declared agent cannot be resolved.
func (a *Assembler) AddTaskToCrew(crewName, taskType string, params map[string]string) bool {
	crew := a.GetCrew(crewName)
	if crew == nil {
		a.logger.Warn("crew not found", zap.String("crew", crewName))
		return false
	}
	info, ok := a.binder.TaskInfo(taskType)
	if !ok {
		a.logger.Warn("task type not found", zap.String("task", taskType))
		return false
	}
	if info.Agent == "" {
		a.logger.Warn("task has no agent declared", zap.String("task", taskType))
		return false
	}
	agent := a.agents.GetAgent(info.Agent)
	if agent == nil {
		a.logger.Warn("declared agent not found",
			zap.String("task", taskType), zap.String("agent", info.Agent))
		return false
	}
	task := a.binder.CreateTaskWithParams(taskType, agent, params)
	if task == nil {
		return false
	}

	a.mu.Lock()
	crew.Tasks = append(crew.Tasks, task)
	a.mu.Unlock()

	a.logger.Info("task added to crew",
		zap.String("crew", crewName), zap.String("task", taskType))
	return true
}

// CreateCrewWithTasks composes CreateCrew and AddTaskToCrew over a task list.
// Task types that fail to bind are skipped; the crew itself is returned as
// long as creation succeeded.
func (a *Assembler) CreateCrewWithTasks(name string, agentNames, taskTypes []string, description string, params map[string]string) *Crew {
	crew := a.CreateCrew(name, agentNames, description)
	if crew == nil {
		return nil
	}
	for _, taskType := range taskTypes {
		a.AddTaskToCrew(name, taskType, params)
	}
	return crew
}

// LoadSavedCrews rehydrates persisted crew configurations into memory.
// Only agent membership is restored; task lists start empty. Crews already
// in memory are skipped. Returns the number of crews loaded.
func (a *Assembler) LoadSavedCrews() int {
	configs, err := a.store.GetAllCrewConfigs()
	if err != nil {
		a.logger.Error("failed to load saved crews", zap.Error(err))
		return 0
	}
	loaded := 0
	for _, cfg := range configs {
		a.mu.RLock()
		_, exists := a.crews[cfg.Name]
		a.mu.RUnlock()
		if exists {
			continue
		}
		crew := a.buildCrew(cfg.Name, cfg.AgentNames, cfg.Description)
		if crew == nil {
			a.logger.Warn("failed to rehydrate crew", zap.String("crew", cfg.Name))
			continue
		}
		crew.Info.CreatedAt = cfg.CreatedAt
		crew.Info.Loaded = true

		a.mu.Lock()
		a.crews[cfg.Name] = crew
		a.mu.Unlock()
		loaded++
	}
	a.logger.Info("crews rehydrated from storage",
		zap.Int("loaded", loaded), zap.Int("persisted", len(configs)))
	return loaded
}

// ReloadCrews clears the in-memory registry and rehydrates from storage.
func (a *Assembler) ReloadCrews() int {
	a.mu.Lock()
	a.crews = make(map[string]*Crew)
	a.mu.Unlock()
	return a.LoadSavedCrews()
}

// GetCrew returns the registered crew under name, or nil.
func (a *Assembler) GetCrew(name string) *Crew {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.crews[name]
}

// CrewInfo returns the in-memory metadata of a crew.
func (a *Assembler) CrewInfo(name string) (types.CrewInfo, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	crew, ok := a.crews[name]
	if !ok {
		return types.CrewInfo{}, false
	}
	return crew.Info, true
}

// ListCrewNames lists the crews currently registered in memory.
func (a *Assembler) ListCrewNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, 0, len(a.crews))
	for name := range a.crews {
		names = append(names, name)
	}
	return names
}

// DeleteCrew removes the crew from memory only; the persisted configuration
// and execution records survive.
func (a *Assembler) DeleteCrew(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.crews[name]; !ok {
		return false
	}
	delete(a.crews, name)
	return true
}

// SavedCrewsInfo joins persisted crew rows with their in-memory state.
func (a *Assembler) SavedCrewsInfo() []types.SavedCrewInfo {
	configs, err := a.store.GetAllCrewConfigs()
	if err != nil {
		a.logger.Error("failed to read saved crews", zap.Error(err))
		return nil
	}
	infos := make([]types.SavedCrewInfo, 0, len(configs))
	for _, cfg := range configs {
		infos = append(infos, types.SavedCrewInfo{
			Name:        cfg.Name,
			Description: cfg.Description,
			AgentNames:  cfg.AgentNames,
			AgentCount:  len(cfg.AgentNames),
			CreatedAt:   cfg.CreatedAt,
			InMemory:    a.GetCrew(cfg.Name) != nil,
		})
	}
	return infos
}
