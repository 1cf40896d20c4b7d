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

const stepColumns = `id, scenario_id, name, step_type, step_order, content, next_step_id, created_at`

// CreateStep creates a new step and sets its ID.
func (s *SQLStore) CreateStep(ctx context.Context, step *domain.Step) error {
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(
		`INSERT INTO steps (scenario_id, name, step_type, step_order, content, next_step_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		step.ScenarioID, step.Name, step.Type, step.Order, string(step.Content),
		nullInt64(step.NextStepID), step.CreatedAt).Scan(&step.ID)
	if err != nil {
		return fmt.Errorf("failed to insert step: %w", err)
	}
	return nil
}

// GetStep retrieves a step by ID.
func (s *SQLStore) GetStep(ctx context.Context, stepID int64) (*domain.Step, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT `+stepColumns+` FROM steps WHERE id = ?`), stepID)
	step, err := scanStep(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return step, nil
}

// UpdateStep overwrites a step. The owning scenario never changes.
func (s *SQLStore) UpdateStep(ctx context.Context, step *domain.Step) error {
	res, err := s.db.ExecContext(ctx, s.dialect.rebind(
		`UPDATE steps SET name = ?, step_type = ?, step_order = ?, content = ?, next_step_id = ? WHERE id = ?`),
		step.Name, step.Type, step.Order, string(step.Content), nullInt64(step.NextStepID), step.ID)
	if err != nil {
		return fmt.Errorf("failed to update step: %w", err)
	}
	return expectOne(res, "step", step.ID)
}

// DeleteStep deletes a step. Static edges and the scenario entry point that
// referenced it are cleared in the same transaction.
func (s *SQLStore) DeleteStep(ctx context.Context, stepID int64) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				err = errors.Join(err, fmt.Errorf("failed to rollback transaction: %w", rollbackErr))
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, s.dialect.rebind(
		`UPDATE steps SET next_step_id = NULL WHERE next_step_id = ?`), stepID); err != nil {
		return fmt.Errorf("failed to clear step edges: %w", err)
	}
	if _, err = tx.ExecContext(ctx, s.dialect.rebind(
		`UPDATE scenarios SET initial_step_id = NULL, updated_at = ? WHERE initial_step_id = ?`),
		time.Now().UTC(), stepID); err != nil {
		return fmt.Errorf("failed to clear entry point: %w", err)
	}

	res, err := tx.ExecContext(ctx, s.dialect.rebind(`DELETE FROM steps WHERE id = ?`), stepID)
	if err != nil {
		return fmt.Errorf("failed to delete step: %w", err)
	}
	if err = expectOne(res, "step", stepID); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListSteps lists the steps of a scenario in display order.
func (s *SQLStore) ListSteps(ctx context.Context, scenarioID int64) ([]domain.Step, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(
		`SELECT `+stepColumns+` FROM steps WHERE scenario_id = ? ORDER BY step_order, id`), scenarioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []domain.Step
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		steps = append(steps, *step)
	}
	return steps, rows.Err()
}

func scanStep(row rowScanner) (*domain.Step, error) {
	var step domain.Step
	var content string
	var next sql.NullInt64
	err := row.Scan(&step.ID, &step.ScenarioID, &step.Name, &step.Type, &step.Order, &content, &next, &step.CreatedAt)
	if err != nil {
		return nil, err
	}
	step.Content = json.RawMessage(content)
	step.NextStepID = int64Ptr(next)
	return &step, nil
}
