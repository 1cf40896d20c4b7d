package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/larasedova/alpina-gpt-builder/internal/domain"
)

// GetExecution returns an execution by ID.
func (s *Service) GetExecution(ctx context.Context, executionID string) (*domain.Execution, error) {
	exec, err := s.store.GetExecution(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get execution: %w", err)
	}
	if exec == nil {
		return nil, domain.NotFound("execution", executionID)
	}
	return exec, nil
}

// loadExecution returns the stored execution of (bot, session), or a new one
// bound to scenarioID at version 0. A new execution is only written by the
// turn's final SaveExecution. The caller must hold the turn lock.
func (s *Service) loadExecution(ctx context.Context, botID int64, userSession string, scenarioID *int64) (*domain.Execution, error) {
	exec, err := s.store.FindExecution(ctx, botID, userSession)
	if err != nil {
		return nil, fmt.Errorf("failed to find execution: %w", err)
	}
	if exec != nil {
		return exec, nil
	}

	now := s.now()
	exec = &domain.Execution{
		ID:          "exec_" + uuid.New().String(),
		BotID:       botID,
		ScenarioID:  scenarioID,
		UserSession: userSession,
		History:     []domain.Turn{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.logger.Debug("Starting new execution", zap.String("execution_id", exec.ID),
		zap.Int64("bot_id", botID), zap.String("user_session", userSession))
	return exec, nil
}
