package storage

import (
	"time"

	"github.com/BaSui01/crewdeck/types"
)

// ExecutionRecord is one crew execution. It is created with status running
// and finalized exactly once as completed or error; after that only the
// attached evaluation report may be added.
type ExecutionRecord struct {
	ID        uint                  `gorm:"primaryKey" json:"id"`
	CrewName  string                `gorm:"index;size:255" json:"crew_name"`
	Topic     string                `json:"topic"`
	StartTime time.Time             `json:"start_time"`
	EndTime   *time.Time            `json:"end_time,omitempty"`
	Duration  string                `gorm:"size:32" json:"duration"`
	Status    types.ExecutionStatus `gorm:"index;size:16" json:"status"`
	Result    string                `json:"result"`
	ErrorMsg  string                `json:"error_message,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
}

// EvaluationReport is the post-hoc evaluation text of one execution.
// The schema allows several per execution; the common path writes one.
type EvaluationReport struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ExecutionID uint      `gorm:"index" json:"execution_id"`
	Report      string    `json:"report"`
	CreatedAt   time.Time `json:"created_at"`
}

// CrewConfigRecord is one persisted crew definition. Saving a config for an
// existing crew name inserts a new row (versioning); rehydration takes the
// newest row per name. Rows are never deleted, so history survives in-memory
// crew deletion.
type CrewConfigRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CrewName    string    `gorm:"index;size:255" json:"crew_name"`
	Description string    `json:"description"`
	// AgentNames is the ordered agent list, JSON-encoded.
	AgentNames string    `json:"agent_names"`
	CreatedAt  time.Time `json:"created_at"`
}
