// Package synccheck detects drift between the configuration store and the
// persisted crew definitions at startup. It counts and logs; it does not
// rewrite anything on either side.
package synccheck

import (
	"go.uber.org/zap"

	"github.com/BaSui01/crewdeck/config"
	"github.com/BaSui01/crewdeck/storage"
)

// Result summarizes one sync pass.
type Result struct {
	Status        string   `json:"status"`
	CrewsChecked  int      `json:"crews_checked"`
	DriftedCrews  []string `json:"drifted_crews,omitempty"`
	MissingAgents []string `json:"missing_agents,omitempty"`
}

// Status is the point-in-time view used by status displays.
type Status struct {
	Available       bool `json:"sync_available"`
	CrewsInDatabase int  `json:"crews_in_database"`
	AgentsDefined   int  `json:"agents_defined"`
}

// Checker compares persisted crews against the current agent definitions.
type Checker struct {
	store  *storage.Store
	config *config.Store
	logger *zap.Logger
}

// New creates a sync checker.
func New(store *storage.Store, cfg *config.Store, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{
		store:  store,
		config: cfg,
		logger: logger.With(zap.String("component", "synccheck")),
	}
}

// PerformFullSync walks every persisted crew and flags members whose agent
// definition no longer exists. Drift is reported, never repaired; the
// rehydration path skips unresolvable agents on its own.
func (c *Checker) PerformFullSync() Result {
	configs, err := c.store.GetAllCrewConfigs()
	if err != nil {
		c.logger.Warn("sync check skipped, storage unavailable", zap.Error(err))
		return Result{Status: "error"}
	}

	result := Result{Status: "completed", CrewsChecked: len(configs)}
	seenMissing := make(map[string]bool)
	for _, cfg := range configs {
		drifted := false
		for _, agentName := range cfg.AgentNames {
			if _, ok := c.config.Agents.Get(agentName); ok {
				continue
			}
			drifted = true
			if !seenMissing[agentName] {
				seenMissing[agentName] = true
				result.MissingAgents = append(result.MissingAgents, agentName)
			}
		}
		if drifted {
			result.DriftedCrews = append(result.DriftedCrews, cfg.Name)
			c.logger.Warn("persisted crew references undefined agents",
				zap.String("crew", cfg.Name))
		}
	}

	c.logger.Info("sync check finished",
		zap.Int("crews_checked", result.CrewsChecked),
		zap.Int("drifted", len(result.DriftedCrews)))
	return result
}

// CurrentStatus reports the current crew and agent counts.
func (c *Checker) CurrentStatus() Status {
	status := Status{AgentsDefined: c.config.Agents.Len()}
	configs, err := c.store.GetAllCrewConfigs()
	if err != nil {
		c.logger.Warn("sync status degraded, storage unavailable", zap.Error(err))
		return status
	}
	status.Available = true
	status.CrewsInDatabase = len(configs)
	return status
}
