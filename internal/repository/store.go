// Package repository persists bots, scenario graphs and executions.
package repository

import (
	"context"

	"github.com/larasedova/alpina-gpt-builder/internal/domain"
)

// Store defines the interface for data persistence. Get and Find methods return
// (nil, nil) when the record does not exist.
type Store interface {
	// Bot operations
	CreateBot(ctx context.Context, bot *domain.Bot) error
	GetBot(ctx context.Context, botID int64) (*domain.Bot, error)
	ListBots(ctx context.Context) ([]domain.Bot, error)
	UpdateBot(ctx context.Context, bot *domain.Bot) error
	DeleteBot(ctx context.Context, botID int64) error

	// Scenario operations
	CreateScenario(ctx context.Context, scenario *domain.Scenario) error
	GetScenario(ctx context.Context, scenarioID int64) (*domain.Scenario, error)
	ListScenarios(ctx context.Context, botID int64) ([]domain.Scenario, error)
	FirstActiveScenario(ctx context.Context, botID int64) (*domain.Scenario, error)
	SetInitialStep(ctx context.Context, scenarioID int64, stepID *int64) error
	UpdateScenario(ctx context.Context, scenario *domain.Scenario) error
	DeleteScenario(ctx context.Context, scenarioID int64) error

	// Step operations
	CreateStep(ctx context.Context, step *domain.Step) error
	GetStep(ctx context.Context, stepID int64) (*domain.Step, error)
	UpdateStep(ctx context.Context, step *domain.Step) error
	ListSteps(ctx context.Context, scenarioID int64) ([]domain.Step, error)
	DeleteStep(ctx context.Context, stepID int64) error

	// Execution operations
	FindExecution(ctx context.Context, botID int64, userSession string) (*domain.Execution, error)
	GetExecution(ctx context.Context, executionID string) (*domain.Execution, error)
	// SaveExecution atomically writes transcript, current step, scenario and
	// completed flag. An execution at version 0 is inserted; otherwise it fails
	// with domain.ErrVersionConflict when exec.Version no longer matches the
	// stored row. Inserting over an existing (bot, session) row is also a
	// version conflict. exec.Version is bumped on success.
	SaveExecution(ctx context.Context, exec *domain.Execution) error

	Close() error
}
