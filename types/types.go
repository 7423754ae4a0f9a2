package types

import "time"

// AgentDefinition describes one configurable agent. Definitions are keyed by
// agent name in the configuration store; the name itself is not a field.
type AgentDefinition struct {
	Role            string   `yaml:"role" json:"role"`
	Goal            string   `yaml:"goal" json:"goal"`
	Backstory       string   `yaml:"backstory" json:"backstory"`
	Tools           []string `yaml:"tools,omitempty" json:"tools,omitempty"`
	Verbose         bool     `yaml:"verbose" json:"verbose"`
	AllowDelegation bool     `yaml:"allow_delegation" json:"allow_delegation"`
}

// ToolBinding lists the tool names bound to an agent, kept in a separate
// table so tool assignments can be edited without touching the definition.
type ToolBinding struct {
	Tools       []string `yaml:"tools" json:"tools"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
}

// TaskDefinition describes one configurable task. Description and
// ExpectedOutput may contain {name} placeholders substituted at bind time.
type TaskDefinition struct {
	Description    string            `yaml:"description" json:"description"`
	ExpectedOutput string            `yaml:"expected_output" json:"expected_output"`
	Agent          string            `yaml:"agent,omitempty" json:"agent,omitempty"`
	Tools          []string          `yaml:"tools,omitempty" json:"tools,omitempty"`
	Params         map[string]string `yaml:"params,omitempty" json:"params,omitempty"`
	// DependsOn is informational only; ordering is not enforced.
	DependsOn []string `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
	Deadline  string   `yaml:"deadline,omitempty" json:"deadline,omitempty"`
	Status    string   `yaml:"status,omitempty" json:"status,omitempty"`
}

// CrewInfo is the in-memory metadata kept alongside a registered crew.
type CrewInfo struct {
	Description string    `json:"description"`
	AgentNames  []string  `json:"agent_names"`
	CreatedAt   time.Time `json:"created_at"`
	// Loaded marks crews rehydrated from durable storage rather than
	// created in this process.
	Loaded bool `json:"loaded_from_storage"`
}

// SavedCrewInfo joins a persisted crew row with its in-memory state.
type SavedCrewInfo struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	AgentNames  []string  `json:"agent_names"`
	AgentCount  int       `json:"agent_count"`
	CreatedAt   time.Time `json:"created_at"`
	InMemory    bool      `json:"is_loaded_in_memory"`
}

// ExecutionStatus is the lifecycle state of one execution record.
// Transitions: running -> completed | error, exactly once.
type ExecutionStatus string

const (
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionError     ExecutionStatus = "error"
)

// ExecutionStats is the aggregate view over all execution records.
type ExecutionStats struct {
	TotalExecutions  int64   `json:"total_executions"`
	SuccessRate      float64 `json:"success_rate"`
	MostExecutedCrew string  `json:"most_executed_crew"`
}
