// Package storage provides the durable store for executions, evaluation
// reports and crew configurations, backed by an embedded sqlite database.
package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/BaSui01/crewdeck/types"
)

// Store wraps the gorm handle. All methods are safe for the single-caller
// model this core assumes; gorm serializes access to the sqlite file itself.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open opens (or creates) the database at dsn and migrates the schema.
// Use ":memory:" for an ephemeral store in tests.
func Open(dsn string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", dsn, err)
	}
	if err := db.AutoMigrate(&ExecutionRecord{}, &EvaluationReport{}, &CrewConfigRecord{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &Store{db: db, log: log.With(zap.String("component", "storage"))}, nil
}

// NewWithDB wraps an already-open gorm handle and migrates the schema.
func NewWithDB(db *gorm.DB, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := db.AutoMigrate(&ExecutionRecord{}, &EvaluationReport{}, &CrewConfigRecord{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &Store{db: db, log: log.With(zap.String("component", "storage"))}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveExecution inserts a new record with status running and returns its id.
func (s *Store) SaveExecution(crewName, topic string, start time.Time) (uint, error) {
	rec := ExecutionRecord{
		CrewName:  crewName,
		Topic:     topic,
		StartTime: start,
		Status:    types.ExecutionRunning,
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return 0, types.NewError(types.ErrPersistence, "save execution for crew %q", crewName).WithCause(err)
	}
	return rec.ID, nil
}

// UpdateExecutionResult finalizes the record: end time, duration, terminal
// status, result text and optional error message.
func (s *Store) UpdateExecutionResult(id uint, result string, end time.Time, duration string, status types.ExecutionStatus, errMsg string) error {
	updates := map[string]any{
		"end_time":  end,
		"duration":  duration,
		"status":    status,
		"result":    result,
		"error_msg": errMsg,
	}
	tx := s.db.Model(&ExecutionRecord{}).Where("id = ?", id).Updates(updates)
	if tx.Error != nil {
		return types.NewError(types.ErrPersistence, "update execution %d", id).WithCause(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return types.NewError(types.ErrNotFound, "execution %d not found", id)
	}
	return nil
}

// GetExecution returns one record by id.
func (s *Store) GetExecution(id uint) (*ExecutionRecord, error) {
	var rec ExecutionRecord
	if err := s.db.First(&rec, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, types.NewError(types.ErrNotFound, "execution %d not found", id)
		}
		return nil, types.NewError(types.ErrPersistence, "get execution %d", id).WithCause(err)
	}
	return &rec, nil
}

// GetAllExecutions returns every record, newest first.
func (s *Store) GetAllExecutions() ([]ExecutionRecord, error) {
	var recs []ExecutionRecord
	if err := s.db.Order("id desc").Find(&recs).Error; err != nil {
		return nil, types.NewError(types.ErrPersistence, "list executions").WithCause(err)
	}
	return recs, nil
}

// SaveEvaluationReport attaches an evaluation report to an execution.
func (s *Store) SaveEvaluationReport(executionID uint, report string) error {
	rec := EvaluationReport{ExecutionID: executionID, Report: report}
	if err := s.db.Create(&rec).Error; err != nil {
		return types.NewError(types.ErrPersistence, "save evaluation report for execution %d", executionID).WithCause(err)
	}
	return nil
}

// GetEvaluationReports returns the reports attached to an execution.
func (s *Store) GetEvaluationReports(executionID uint) ([]EvaluationReport, error) {
	var recs []EvaluationReport
	if err := s.db.Where("execution_id = ?", executionID).Order("id asc").Find(&recs).Error; err != nil {
		return nil, types.NewError(types.ErrPersistence, "list evaluation reports for execution %d", executionID).WithCause(err)
	}
	return recs, nil
}

// SaveCrewConfig inserts a crew configuration row. Existing rows for the
// same name are kept; the newest row wins at rehydration time.
func (s *Store) SaveCrewConfig(name, description string, agentNames []string) error {
	encoded, err := json.Marshal(agentNames)
	if err != nil {
		return types.NewError(types.ErrPersistence, "encode agent names for crew %q", name).WithCause(err)
	}
	rec := CrewConfigRecord{
		CrewName:    name,
		Description: description,
		AgentNames:  string(encoded),
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return types.NewError(types.ErrPersistence, "save crew config %q", name).WithCause(err)
	}
	return nil
}

// CrewConfig is the decoded form of a persisted crew definition.
type CrewConfig struct {
	Name        string
	Description string
	AgentNames  []string
	CreatedAt   time.Time
}

// GetAllCrewConfigs returns the newest configuration per crew name, in
// first-saved order.
func (s *Store) GetAllCrewConfigs() ([]CrewConfig, error) {
	var recs []CrewConfigRecord
	if err := s.db.Order("id asc").Find(&recs).Error; err != nil {
		return nil, types.NewError(types.ErrPersistence, "list crew configs").WithCause(err)
	}
	latest := make(map[string]int, len(recs))
	var order []string
	for i, rec := range recs {
		if _, seen := latest[rec.CrewName]; !seen {
			order = append(order, rec.CrewName)
		}
		latest[rec.CrewName] = i
	}
	configs := make([]CrewConfig, 0, len(order))
	for _, name := range order {
		rec := recs[latest[name]]
		var agentNames []string
		if err := json.Unmarshal([]byte(rec.AgentNames), &agentNames); err != nil {
			s.log.Warn("skipping crew config with malformed agent list",
				zap.String("crew", rec.CrewName), zap.Error(err))
			continue
		}
		configs = append(configs, CrewConfig{
			Name:        rec.CrewName,
			Description: rec.Description,
			AgentNames:  agentNames,
			CreatedAt:   rec.CreatedAt,
		})
	}
	return configs, nil
}

// Stats computes the aggregate execution statistics: total count, success
// rate over terminal records, and the most-executed crew name.
func (s *Store) Stats() (*types.ExecutionStats, error) {
	var total int64
	if err := s.db.Model(&ExecutionRecord{}).Count(&total).Error; err != nil {
		return nil, types.NewError(types.ErrPersistence, "count executions").WithCause(err)
	}
	stats := &types.ExecutionStats{TotalExecutions: total}
	if total == 0 {
		return stats, nil
	}

	var completed int64
	if err := s.db.Model(&ExecutionRecord{}).
		Where("status = ?", types.ExecutionCompleted).
		Count(&completed).Error; err != nil {
		return nil, types.NewError(types.ErrPersistence, "count completed executions").WithCause(err)
	}
	stats.SuccessRate = float64(completed) / float64(total)

	var top struct {
		CrewName string
		N        int64
	}
	err := s.db.Model(&ExecutionRecord{}).
		Select("crew_name, count(*) as n").
		Group("crew_name").
		Order("n desc").
		Limit(1).
		Scan(&top).Error
	if err != nil {
		return nil, types.NewError(types.ErrPersistence, "find most-executed crew").WithCause(err)
	}
	stats.MostExecutedCrew = top.CrewName
	return stats, nil
}
