package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/larasedova/alpina-gpt-builder/internal/domain"
)

const executionColumns = `id, bot_id, scenario_id, user_session, current_step_id, conversation_history, is_completed, version, created_at, updated_at`

// FindExecution retrieves the execution of a (bot, session) pair.
func (s *SQLStore) FindExecution(ctx context.Context, botID int64, userSession string) (*domain.Execution, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(
		`SELECT `+executionColumns+` FROM executions WHERE bot_id = ? AND user_session = ?`), botID, userSession)
	return scanExecutionRow(row)
}

// GetExecution retrieves an execution by ID.
func (s *SQLStore) GetExecution(ctx context.Context, executionID string) (*domain.Execution, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(
		`SELECT `+executionColumns+` FROM executions WHERE id = ?`), executionID)
	return scanExecutionRow(row)
}

// SaveExecution implements Store.
func (s *SQLStore) SaveExecution(ctx context.Context, exec *domain.Execution) error {
	history, err := marshalHistory(exec.History)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	if exec.Version == 0 {
		return s.insertExecution(ctx, exec, history, now)
	}

	res, err := s.db.ExecContext(ctx, s.dialect.rebind(
		`UPDATE executions SET scenario_id = ?, current_step_id = ?, conversation_history = ?, is_completed = ?,
		 version = version + 1, updated_at = ? WHERE id = ? AND version = ?`),
		nullInt64(exec.ScenarioID), nullInt64(exec.CurrentStepID), history, exec.IsCompleted,
		now, exec.ID, exec.Version)
	if err != nil {
		return fmt.Errorf("failed to update execution: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("execution %s at version %d: %w", exec.ID, exec.Version, domain.ErrVersionConflict)
	}

	exec.Version++
	exec.UpdatedAt = now
	return nil
}

// insertExecution writes a new execution at version 1. A row that already exists
// for the id or the (bot, session) pair is reported as a version conflict.
func (s *SQLStore) insertExecution(ctx context.Context, exec *domain.Execution, history string, now time.Time) error {
	if exec.CreatedAt.IsZero() {
		exec.CreatedAt = now
	}
	res, err := s.db.ExecContext(ctx, s.dialect.rebind(
		`INSERT INTO executions (id, bot_id, scenario_id, user_session, current_step_id, conversation_history, is_completed, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?) ON CONFLICT DO NOTHING`),
		exec.ID, exec.BotID, nullInt64(exec.ScenarioID), exec.UserSession, nullInt64(exec.CurrentStepID),
		history, exec.IsCompleted, exec.CreatedAt, now)
	if err != nil {
		return fmt.Errorf("failed to insert execution: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("execution for bot %d session %q already exists: %w", exec.BotID, exec.UserSession, domain.ErrVersionConflict)
	}

	exec.Version = 1
	exec.UpdatedAt = now
	return nil
}

func marshalHistory(history []domain.Turn) (string, error) {
	if history == nil {
		history = []domain.Turn{}
	}
	data, err := json.Marshal(history)
	if err != nil {
		return "", fmt.Errorf("failed to marshal conversation history: %w", err)
	}
	return string(data), nil
}

func scanExecutionRow(row *sql.Row) (*domain.Execution, error) {
	var exec domain.Execution
	var scenarioID, currentStepID sql.NullInt64
	var history string
	err := row.Scan(&exec.ID, &exec.BotID, &scenarioID, &exec.UserSession, &currentStepID, &history,
		&exec.IsCompleted, &exec.Version, &exec.CreatedAt, &exec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	exec.ScenarioID = int64Ptr(scenarioID)
	exec.CurrentStepID = int64Ptr(currentStepID)
	if err := json.Unmarshal([]byte(history), &exec.History); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation history: %w", err)
	}
	return &exec, nil
}
