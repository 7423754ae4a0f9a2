// Package tasks binds task definitions to agents, substituting runtime
// parameters into the task text.
package tasks

import (
	"go.uber.org/zap"

	"github.com/BaSui01/crewdeck/agent/registry"
	"github.com/BaSui01/crewdeck/config"
	"github.com/BaSui01/crewdeck/types"
)

// Task is a runtime task: resolved text bound to one agent.
type Task struct {
	Type           string
	Description    string
	ExpectedOutput string
	Agent          *registry.Agent
}

// Binder turns task definitions into runtime tasks.
type Binder struct {
	store  *config.Store
	logger *zap.Logger
}

// NewBinder creates a task binder over the configuration store.
func NewBinder(store *config.Store, logger *zap.Logger) *Binder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Binder{
		store:  store,
		logger: logger.With(zap.String("component", "task_binder")),
	}
}

// CreateTaskWithParams looks up the named definition, substitutes {name}
// placeholders in description and expected output from params, and binds the
// supplied agent. It returns nil for unknown task names, never an error.
func (b *Binder) CreateTaskWithParams(taskType string, agent *registry.Agent, params map[string]string) *Task {
	def, ok := b.store.Tasks.Get(taskType)
	if !ok {
		b.logger.Warn("task definition not found", zap.String("task", taskType))
		return nil
	}
	return &Task{
		Type:           taskType,
		Description:    Substitute(def.Description, params),
		ExpectedOutput: Substitute(def.ExpectedOutput, params),
		Agent:          agent,
	}
}

// TaskInfo returns the raw definition of a task.
func (b *Binder) TaskInfo(taskType string) (types.TaskDefinition, bool) {
	return b.store.Tasks.Get(taskType)
}

// AvailableTaskTypes lists every defined task name.
func (b *Binder) AvailableTaskTypes() []string {
	return b.store.Tasks.Names()
}

// UpsertTask inserts or replaces a task definition.
func (b *Binder) UpsertTask(taskType string, def types.TaskDefinition) bool {
	if err := b.store.Tasks.Upsert(taskType, def); err != nil {
		b.logger.Error("failed to persist task definition", zap.String("task", taskType), zap.Error(err))
		return false
	}
	return true
}

// DeleteTask removes a task definition.
func (b *Binder) DeleteTask(taskType string) bool {
	if _, ok := b.store.Tasks.Get(taskType); !ok {
		return false
	}
	if err := b.store.Tasks.Delete(taskType); err != nil {
		b.logger.Error("failed to delete task definition", zap.String("task", taskType), zap.Error(err))
		return false
	}
	return true
}

// RenameTask relocates a task definition.
func (b *Binder) RenameTask(oldType, newType string) bool {
	if err := b.store.Tasks.Rename(oldType, newType); err != nil {
		b.logger.Warn("failed to rename task", zap.String("from", oldType), zap.String("to", newType), zap.Error(err))
		return false
	}
	return true
}

// ReloadConfigs re-reads the task table from disk.
func (b *Binder) ReloadConfigs() bool {
	if err := b.store.Tasks.Reload(); err != nil {
		b.logger.Error("failed to reload task configs", zap.Error(err))
		return false
	}
	return true
}
