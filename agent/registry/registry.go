// Package registry materializes agent definitions into runnable agents and
// caches them by name.
package registry

import (
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/crewdeck/config"
	"github.com/BaSui01/crewdeck/tools"
	"github.com/BaSui01/crewdeck/types"
)

// Agent is a runtime agent: a definition plus its resolved tool handles.
// Agents are owned by the Registry that created them.
type Agent struct {
	Name            string
	Role            string
	Goal            string
	Backstory       string
	Verbose         bool
	AllowDelegation bool
	Tools           []tools.Handle
}

// ToolNames returns the names of the agent's resolved tools, in order.
func (a *Agent) ToolNames() []string {
	names := make([]string, 0, len(a.Tools))
	for _, t := range a.Tools {
		names = append(names, t.Name())
	}
	return names
}

// Registry creates and caches runtime agents. The cache is the only place
// runtime agents live; definitions stay in the configuration store.
type Registry struct {
	store    *config.Store
	registry *tools.Registry
	logger   *zap.Logger

	mu     sync.RWMutex
	agents map[string]*Agent
}

// New creates an agent registry over the given stores.
func New(store *config.Store, toolRegistry *tools.Registry, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		store:    store,
		registry: toolRegistry,
		logger:   logger.With(zap.String("component", "agent_registry")),
		agents:   make(map[string]*Agent),
	}
}

// CreateAgent materializes the named definition into a runtime agent and
// caches it, overwriting any previous cache entry under that name.
//
// When toolOverride is nil, tool names come from the agent's tool binding
// (empty when no binding is recorded). Unresolvable tool names are skipped
// with a logged warning, never an error.
func (r *Registry) CreateAgent(name string, toolOverride []string) (*Agent, error) {
	def, ok := r.store.Agents.Get(name)
	if !ok {
		r.logger.Warn("agent definition not found", zap.String("agent", name))
		return nil, types.NewError(types.ErrNotFound, "agent %q not found", name)
	}

	toolNames := toolOverride
	if toolNames == nil {
		if binding, ok := r.store.Bindings.Get(name); ok {
			toolNames = binding.Tools
		}
	}

	agent := &Agent{
		Name:            name,
		Role:            def.Role,
		Goal:            def.Goal,
		Backstory:       def.Backstory,
		Verbose:         def.Verbose,
		AllowDelegation: def.AllowDelegation,
		Tools:           r.registry.ResolveAll(toolNames),
	}

	r.mu.Lock()
	r.agents[name] = agent
	r.mu.Unlock()

	r.logger.Info("agent created",
		zap.String("agent", name),
		zap.String("role", def.Role),
		zap.Int("tools", len(agent.Tools)))
	return agent, nil
}

// GetAgent returns the cached agent under name, or nil. It never creates.
func (r *Registry) GetAgent(name string) *Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.agents[name]
}

// GetOrCreate returns the cached agent or creates one from its definition.
func (r *Registry) GetOrCreate(name string) (*Agent, error) {
	if a := r.GetAgent(name); a != nil {
		return a, nil
	}
	return r.CreateAgent(name, nil)
}

// AllAgents returns a snapshot of the cache.
func (r *Registry) AllAgents() map[string]*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*Agent, len(r.agents))
	for k, v := range r.agents {
		out[k] = v
	}
	return out
}

// AvailableAgentNames lists every defined agent name.
func (r *Registry) AvailableAgentNames() []string {
	return r.store.Agents.Names()
}

// AgentInfo returns the raw definition of an agent.
func (r *Registry) AgentInfo(name string) (types.AgentDefinition, bool) {
	return r.store.Agents.Get(name)
}

// AgentTools returns the tool names bound to an agent.
func (r *Registry) AgentTools(name string) []string {
	if binding, ok := r.store.Bindings.Get(name); ok {
		return binding.Tools
	}
	return nil
}

// UpdateAgentConfig merges a patch into the named definition and persists.
// It returns false (with a logged reason) on unknown names and persistence
// failures; it never propagates the error to the caller.
func (r *Registry) UpdateAgentConfig(name string, patch types.AgentDefinition) bool {
	def, ok := r.store.Agents.Get(name)
	if !ok {
		r.logger.Warn("cannot update unknown agent", zap.String("agent", name))
		return false
	}
	merged := mergeDefinition(def, patch)
	if err := r.store.Agents.Upsert(name, merged); err != nil {
		r.logger.Error("failed to persist agent config", zap.String("agent", name), zap.Error(err))
		return false
	}
	return true
}

// mergeDefinition overlays non-zero string and slice patch fields onto def.
// Bool fields always come from the patch, so a patch that changes a flag, or
// wants to keep one set, must carry the full definition.
func mergeDefinition(def, patch types.AgentDefinition) types.AgentDefinition {
	if patch.Role != "" {
		def.Role = patch.Role
	}
	if patch.Goal != "" {
		def.Goal = patch.Goal
	}
	if patch.Backstory != "" {
		def.Backstory = patch.Backstory
	}
	if patch.Tools != nil {
		def.Tools = patch.Tools
	}
	def.Verbose = patch.Verbose
	def.AllowDelegation = patch.AllowDelegation
	return def
}

// UpdateAgentTools replaces the tool binding of an agent and persists it.
func (r *Registry) UpdateAgentTools(name string, toolNames []string) bool {
	binding, _ := r.store.Bindings.Get(name)
	binding.Tools = toolNames
	if err := r.store.Bindings.Upsert(name, binding); err != nil {
		r.logger.Error("failed to persist agent tools", zap.String("agent", name), zap.Error(err))
		return false
	}
	return true
}

// RenameAgent relocates the definition, the tool binding and any cached
// runtime agent from oldName to newName. It fails when oldName is missing
// or newName already exists.
func (r *Registry) RenameAgent(oldName, newName string) bool {
	if _, ok := r.store.Agents.Get(oldName); !ok {
		r.logger.Warn("cannot rename unknown agent", zap.String("agent", oldName))
		return false
	}
	if _, exists := r.store.Agents.Get(newName); exists {
		r.logger.Warn("agent name already taken", zap.String("agent", newName))
		return false
	}
	if err := r.store.Agents.Rename(oldName, newName); err != nil {
		r.logger.Error("failed to rename agent definition", zap.Error(err))
		return false
	}
	// The binding table may have no entry for this agent.
	if _, ok := r.store.Bindings.Get(oldName); ok {
		if err := r.store.Bindings.Rename(oldName, newName); err != nil {
			r.logger.Error("failed to rename tool binding", zap.Error(err))
		}
	}

	r.mu.Lock()
	if agent, ok := r.agents[oldName]; ok {
		delete(r.agents, oldName)
		agent.Name = newName
		r.agents[newName] = agent
	}
	r.mu.Unlock()

	r.logger.Info("agent renamed", zap.String("from", oldName), zap.String("to", newName))
	return true
}

// DeleteAgent removes the definition, the tool binding and the cached
// runtime agent.
func (r *Registry) DeleteAgent(name string) bool {
	if _, ok := r.store.Agents.Get(name); !ok {
		return false
	}
	if err := r.store.Agents.Delete(name); err != nil {
		r.logger.Error("failed to delete agent definition", zap.String("agent", name), zap.Error(err))
		return false
	}
	if err := r.store.Bindings.Delete(name); err != nil {
		r.logger.Error("failed to delete tool binding", zap.String("agent", name), zap.Error(err))
	}
	r.mu.Lock()
	delete(r.agents, name)
	r.mu.Unlock()
	return true
}

// ReloadConfigs re-reads the definition tables from disk. Cached runtime
// agents are kept; they pick up changes on the next CreateAgent.
func (r *Registry) ReloadConfigs() bool {
	if err := r.store.Reload(); err != nil {
		r.logger.Error("failed to reload configs", zap.Error(err))
		return false
	}
	return true
}
