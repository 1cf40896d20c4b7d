package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/larasedova/alpina-gpt-builder/internal/domain"
)

const scenarioColumns = `id, bot_id, name, description, initial_step_id, is_active, created_at, updated_at`

// CreateScenario creates a new scenario and sets its ID.
func (s *SQLStore) CreateScenario(ctx context.Context, scenario *domain.Scenario) error {
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(
		`INSERT INTO scenarios (bot_id, name, description, initial_step_id, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		scenario.BotID, scenario.Name, scenario.Description, nullInt64(scenario.InitialStepID),
		scenario.IsActive, scenario.CreatedAt, scenario.UpdatedAt).Scan(&scenario.ID)
	if err != nil {
		return fmt.Errorf("failed to insert scenario: %w", err)
	}
	return nil
}

// GetScenario retrieves a scenario by ID.
func (s *SQLStore) GetScenario(ctx context.Context, scenarioID int64) (*domain.Scenario, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT `+scenarioColumns+` FROM scenarios WHERE id = ?`), scenarioID)
	return scanScenarioRow(row)
}

// ListScenarios lists the scenarios of a bot.
func (s *SQLStore) ListScenarios(ctx context.Context, botID int64) ([]domain.Scenario, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(
		`SELECT `+scenarioColumns+` FROM scenarios WHERE bot_id = ? ORDER BY id`), botID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scenarios []domain.Scenario
	for rows.Next() {
		scenario, err := scanScenario(rows)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, *scenario)
	}
	return scenarios, rows.Err()
}

// FirstActiveScenario returns the oldest active scenario of a bot.
func (s *SQLStore) FirstActiveScenario(ctx context.Context, botID int64) (*domain.Scenario, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(
		`SELECT `+scenarioColumns+` FROM scenarios WHERE bot_id = ? AND is_active = ? ORDER BY id LIMIT 1`),
		botID, true)
	return scanScenarioRow(row)
}

// SetInitialStep sets or clears the entry point of a scenario.
func (s *SQLStore) SetInitialStep(ctx context.Context, scenarioID int64, stepID *int64) error {
	res, err := s.db.ExecContext(ctx, s.dialect.rebind(
		`UPDATE scenarios SET initial_step_id = ?, updated_at = ? WHERE id = ?`),
		nullInt64(stepID), time.Now().UTC(), scenarioID)
	if err != nil {
		return fmt.Errorf("failed to update scenario: %w", err)
	}
	return expectOne(res, "scenario", scenarioID)
}

// UpdateScenario overwrites the name, description and activation flag of a scenario.
func (s *SQLStore) UpdateScenario(ctx context.Context, scenario *domain.Scenario) error {
	res, err := s.db.ExecContext(ctx, s.dialect.rebind(
		`UPDATE scenarios SET name = ?, description = ?, is_active = ?, updated_at = ? WHERE id = ?`),
		scenario.Name, scenario.Description, scenario.IsActive, scenario.UpdatedAt, scenario.ID)
	if err != nil {
		return fmt.Errorf("failed to update scenario: %w", err)
	}
	return expectOne(res, "scenario", scenario.ID)
}

// DeleteScenario deletes a scenario and its steps. Executions bound to it keep
// their transcript and lose the scenario reference.
func (s *SQLStore) DeleteScenario(ctx context.Context, scenarioID int64) error {
	res, err := s.db.ExecContext(ctx, s.dialect.rebind(`DELETE FROM scenarios WHERE id = ?`), scenarioID)
	if err != nil {
		return fmt.Errorf("failed to delete scenario: %w", err)
	}
	return expectOne(res, "scenario", scenarioID)
}

func scanScenarioRow(row *sql.Row) (*domain.Scenario, error) {
	scenario, err := scanScenario(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return scenario, nil
}

func scanScenario(row rowScanner) (*domain.Scenario, error) {
	var scenario domain.Scenario
	var initial sql.NullInt64
	err := row.Scan(&scenario.ID, &scenario.BotID, &scenario.Name, &scenario.Description, &initial,
		&scenario.IsActive, &scenario.CreatedAt, &scenario.UpdatedAt)
	if err != nil {
		return nil, err
	}
	scenario.InitialStepID = int64Ptr(initial)
	return &scenario, nil
}
