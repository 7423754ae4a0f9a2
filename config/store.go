package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/BaSui01/crewdeck/types"
)

// Table is one named YAML table of definitions keyed by name.
// A missing file reads as an empty collection; every mutation persists the
// whole table back to the same file.
type Table[T any] struct {
	path    string
	entries map[string]T
	logger  *zap.Logger
	mu      sync.RWMutex
}

// NewTable loads the table at path. A missing file yields an empty table;
// a malformed file is logged and also yields an empty table, so a broken
// config never takes the console down.
func NewTable[T any](path string, logger *zap.Logger) *Table[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Table[T]{
		path:    path,
		entries: make(map[string]T),
		logger:  logger.With(zap.String("component", "config_table"), zap.String("path", path)),
	}
	if err := t.load(); err != nil {
		t.logger.Warn("failed to load table, starting empty", zap.Error(err))
	}
	return t
}

func (t *Table[T]) load() error {
	data, err := os.ReadFile(t.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", t.path, err)
	}
	entries := make(map[string]T)
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse %s: %w", t.path, err)
	}
	if entries == nil {
		// A null document ("null", "~", comments only) decodes to a nil
		// map; mutations need a real one.
		entries = make(map[string]T)
	}
	t.entries = entries
	return nil
}

// Reload re-reads the table from disk, replacing the in-memory view.
func (t *Table[T]) Reload() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.load()
}

// save writes the table back to its file. Caller holds the lock.
func (t *Table[T]) save() error {
	data, err := yaml.Marshal(t.entries)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", t.path, err)
	}
	if dir := filepath.Dir(t.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(t.path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", t.path, err)
	}
	return nil
}

// Get returns the entry for name.
func (t *Table[T]) Get(name string) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.entries[name]
	return v, ok
}

// Names returns all entry names, sorted for stable iteration.
func (t *Table[T]) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns a copy of the whole table.
func (t *Table[T]) All() map[string]T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]T, len(t.entries))
	for k, v := range t.entries {
		out[k] = v
	}
	return out
}

// Len returns the number of entries.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Upsert inserts or replaces the entry under name and persists the table.
func (t *Table[T]) Upsert(name string, value T) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	old, existed := t.entries[name]
	t.entries[name] = value
	if err := t.save(); err != nil {
		// Keep memory and file consistent on write failure.
		if existed {
			t.entries[name] = old
		} else {
			delete(t.entries, name)
		}
		return types.NewError(types.ErrPersistence, "upsert %q", name).WithCause(err)
	}
	return nil
}

// Delete removes the entry under name and persists the table. Deleting a
// missing name is a no-op.
func (t *Table[T]) Delete(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	old, existed := t.entries[name]
	if !existed {
		return nil
	}
	delete(t.entries, name)
	if err := t.save(); err != nil {
		t.entries[name] = old
		return types.NewError(types.ErrPersistence, "delete %q", name).WithCause(err)
	}
	return nil
}

// Rename relocates the entry from oldName to newName. It fails when oldName
// is missing or newName already exists.
func (t *Table[T]) Rename(oldName, newName string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.entries[oldName]
	if !ok {
		return types.NewError(types.ErrNotFound, "entry %q not found", oldName)
	}
	if _, exists := t.entries[newName]; exists {
		return types.NewError(types.ErrValidation, "entry %q already exists", newName)
	}
	delete(t.entries, oldName)
	t.entries[newName] = v
	if err := t.save(); err != nil {
		delete(t.entries, newName)
		t.entries[oldName] = v
		return types.NewError(types.ErrPersistence, "rename %q to %q", oldName, newName).WithCause(err)
	}
	return nil
}

// Store bundles the three definition tables of the console.
type Store struct {
	Agents   *Table[types.AgentDefinition]
	Tasks    *Table[types.TaskDefinition]
	Bindings *Table[types.ToolBinding]

	logger *zap.Logger
}

// NewStore opens the three tables. When the agent-tools table is missing it
// is seeded with the default bindings and written out.
func NewStore(cfg *Config, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		Agents:   NewTable[types.AgentDefinition](cfg.AgentsPath, logger),
		Tasks:    NewTable[types.TaskDefinition](cfg.TasksPath, logger),
		Bindings: NewTable[types.ToolBinding](cfg.AgentToolsPath, logger),
		logger:   logger.With(zap.String("component", "config_store")),
	}
	if _, err := os.Stat(cfg.AgentToolsPath); os.IsNotExist(err) {
		s.seedDefaultBindings()
	}
	return s
}

// seedDefaultBindings materializes the default agent tool bindings.
func (s *Store) seedDefaultBindings() {
	defaults := map[string]types.ToolBinding{
		"researcher": {
			Tools:       []string{"simple_research_tool", "read_records", "compare_text_similarity"},
			Description: "Tools for research and information gathering",
		},
		"analyst": {
			Tools:       []string{"analyze_similarity", "detect_data_patterns", "generate_report"},
			Description: "Tools for advanced analysis and report generation",
		},
		"writer": {
			Tools:       []string{"generate_report"},
			Description: "Tools for content and report generation",
		},
		"reviewer": {
			Tools:       []string{"validate_records", "detect_data_patterns"},
			Description: "Tools for validation and data review",
		},
		"coordinator": {
			Tools:       []string{"read_records", "validate_records"},
			Description: "Basic coordination tools",
		},
	}
	for name, binding := range defaults {
		if err := s.Bindings.Upsert(name, binding); err != nil {
			s.logger.Warn("failed to seed default tool binding",
				zap.String("agent", name), zap.Error(err))
			return
		}
	}
	s.logger.Info("seeded default agent tool bindings", zap.Int("count", len(defaults)))
}

// Reload re-reads all three tables from disk.
func (s *Store) Reload() error {
	for _, err := range []error{s.Agents.Reload(), s.Tasks.Reload(), s.Bindings.Reload()} {
		if err != nil {
			return err
		}
	}
	return nil
}
