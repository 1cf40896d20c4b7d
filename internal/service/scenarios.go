package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/larasedova/alpina-gpt-builder/internal/domain"
)

func (s *Service) CreateScenario(ctx context.Context, botID int64, req domain.CreateScenarioRequest) (*domain.Scenario, error) {
	if err := domain.Normalize(&req); err != nil {
		return nil, err
	}
	if _, err := s.GetBot(ctx, botID); err != nil {
		return nil, err
	}

	now := s.now()
	scenario := &domain.Scenario{
		BotID:       botID,
		Name:        req.Name,
		Description: req.Description,
		IsActive:    *req.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateScenario(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to create scenario: %w", err)
	}

	s.logger.Info("Scenario created", zap.Int64("scenario_id", scenario.ID), zap.Int64("bot_id", botID))
	return scenario, nil
}

func (s *Service) GetScenario(ctx context.Context, scenarioID int64) (*domain.Scenario, error) {
	scenario, err := s.store.GetScenario(ctx, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("failed to get scenario: %w", err)
	}
	if scenario == nil {
		return nil, domain.NotFound("scenario", scenarioID)
	}
	return scenario, nil
}

func (s *Service) ListScenarios(ctx context.Context, botID int64) ([]domain.Scenario, error) {
	if _, err := s.GetBot(ctx, botID); err != nil {
		return nil, err
	}
	scenarios, err := s.store.ListScenarios(ctx, botID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	return scenarios, nil
}

// UpdateScenario applies a partial update. Deactivating a scenario removes it
// from the first-active fallback; executions already bound to it keep running.
func (s *Service) UpdateScenario(ctx context.Context, scenarioID int64, req domain.UpdateScenarioRequest) (*domain.Scenario, error) {
	if err := domain.Validate(&req); err != nil {
		return nil, err
	}
	scenario, err := s.GetScenario(ctx, scenarioID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		scenario.Name = *req.Name
	}
	if req.Description != nil {
		scenario.Description = *req.Description
	}
	if req.IsActive != nil {
		scenario.IsActive = *req.IsActive
	}
	scenario.UpdatedAt = s.now()

	if err := s.store.UpdateScenario(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to update scenario: %w", err)
	}
	return scenario, nil
}

// DeleteScenario deletes a scenario with its steps. Executions bound to it are
// rebound on their next turn.
func (s *Service) DeleteScenario(ctx context.Context, scenarioID int64) error {
	if err := s.store.DeleteScenario(ctx, scenarioID); err != nil {
		return fmt.Errorf("failed to delete scenario: %w", err)
	}
	s.logger.Info("Scenario deleted", zap.Int64("scenario_id", scenarioID))
	return nil
}

// SetInitialStep sets or clears the entry point. The step must belong to the scenario.
func (s *Service) SetInitialStep(ctx context.Context, scenarioID int64, req domain.SetInitialStepRequest) (*domain.Scenario, error) {
	scenario, err := s.GetScenario(ctx, scenarioID)
	if err != nil {
		return nil, err
	}
	if req.StepID != nil {
		if err := s.checkStepInScenario(ctx, "initial_step", *req.StepID, scenarioID); err != nil {
			return nil, err
		}
	}

	if err := s.store.SetInitialStep(ctx, scenarioID, req.StepID); err != nil {
		return nil, fmt.Errorf("failed to set initial step: %w", err)
	}
	scenario.InitialStepID = req.StepID
	scenario.UpdatedAt = s.now()
	return scenario, nil
}

// CreateStep adds a step to a scenario. The content must match the step type
// and a static successor must belong to the same scenario.
func (s *Service) CreateStep(ctx context.Context, scenarioID int64, req domain.StepRequest) (*domain.Step, error) {
	if err := s.validateStep(&req); err != nil {
		return nil, err
	}
	if _, err := s.GetScenario(ctx, scenarioID); err != nil {
		return nil, err
	}
	if req.NextStepID != nil {
		if err := s.checkStepInScenario(ctx, "next_step", *req.NextStepID, scenarioID); err != nil {
			return nil, err
		}
	}

	step := &domain.Step{
		ScenarioID: scenarioID,
		Name:       req.Name,
		Type:       req.StepType,
		Order:      req.Order,
		Content:    req.Content,
		NextStepID: req.NextStepID,
		CreatedAt:  s.now(),
	}
	if err := s.store.CreateStep(ctx, step); err != nil {
		return nil, fmt.Errorf("failed to create step: %w", err)
	}
	return step, nil
}

// UpdateStep replaces a step's definition. Executions positioned on it pick up
// the change on their next turn.
func (s *Service) UpdateStep(ctx context.Context, stepID int64, req domain.StepRequest) (*domain.Step, error) {
	if err := s.validateStep(&req); err != nil {
		return nil, err
	}
	step, err := s.store.GetStep(ctx, stepID)
	if err != nil {
		return nil, fmt.Errorf("failed to get step: %w", err)
	}
	if step == nil {
		return nil, domain.NotFound("step", stepID)
	}
	if req.NextStepID != nil {
		if err := s.checkStepInScenario(ctx, "next_step", *req.NextStepID, step.ScenarioID); err != nil {
			return nil, err
		}
	}

	step.Name = req.Name
	step.Type = req.StepType
	step.Order = req.Order
	step.Content = req.Content
	step.NextStepID = req.NextStepID
	if err := s.store.UpdateStep(ctx, step); err != nil {
		return nil, fmt.Errorf("failed to update step: %w", err)
	}
	return step, nil
}

// DeleteStep deletes a step and clears the edges and entry point that pointed
// at it. Executions positioned on it get the misconfiguration response.
func (s *Service) DeleteStep(ctx context.Context, stepID int64) error {
	if err := s.store.DeleteStep(ctx, stepID); err != nil {
		return fmt.Errorf("failed to delete step: %w", err)
	}
	s.logger.Info("Step deleted", zap.Int64("step_id", stepID))
	return nil
}

// ListSteps lists the steps of a scenario ordered by their display order.
func (s *Service) ListSteps(ctx context.Context, scenarioID int64) ([]domain.Step, error) {
	if _, err := s.GetScenario(ctx, scenarioID); err != nil {
		return nil, err
	}
	steps, err := s.store.ListSteps(ctx, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("failed to list steps: %w", err)
	}
	return steps, nil
}

func (s *Service) validateStep(req *domain.StepRequest) error {
	if err := domain.Validate(req); err != nil {
		return err
	}
	if _, err := domain.ParseContent(req.StepType, req.Content); err != nil {
		return err
	}
	return nil
}

func (s *Service) checkStepInScenario(ctx context.Context, field string, stepID, scenarioID int64) error {
	step, err := s.store.GetStep(ctx, stepID)
	if err != nil {
		return fmt.Errorf("failed to get step: %w", err)
	}
	if step == nil || step.ScenarioID != scenarioID {
		return domain.NewValidationError(field, fmt.Sprintf("step %d does not belong to scenario %d", stepID, scenarioID))
	}
	return nil
}
