package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/larasedova/alpina-gpt-builder/internal/domain"
	"github.com/larasedova/alpina-gpt-builder/internal/engine"
	"github.com/larasedova/alpina-gpt-builder/internal/lock"
)

// RunTurn drives one scenario turn for (bot, session). Turns of the same pair
// are serialized; validation failures persist nothing.
func (s *Service) RunTurn(ctx context.Context, req domain.RunTurnRequest) (*domain.TurnOutcome, error) {
	if err := domain.Normalize(&req); err != nil {
		return nil, err
	}

	bot, err := s.activeBot(ctx, req.BotID)
	if err != nil {
		return nil, err
	}
	scenario, err := s.resolveScenario(ctx, bot.ID, req.ScenarioID)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, lock.TurnKey(bot.ID, req.UserSession))
	if err != nil {
		return nil, err
	}
	defer release()

	outcome, err := s.runTurnOnce(ctx, scenario, req)
	if errors.Is(err, domain.ErrVersionConflict) {
		s.logger.Warn("Execution changed concurrently, retrying turn",
			zap.Int64("bot_id", bot.ID), zap.String("user_session", req.UserSession))
		outcome, err = s.runTurnOnce(ctx, scenario, req)
	}
	return outcome, err
}

func (s *Service) runTurnOnce(ctx context.Context, resolved *domain.Scenario, req domain.RunTurnRequest) (*domain.TurnOutcome, error) {
	exec, err := s.loadExecution(ctx, resolved.BotID, req.UserSession, &resolved.ID)
	if err != nil {
		return nil, err
	}

	scenario, err := s.executionScenario(ctx, exec, resolved)
	if err != nil {
		return nil, err
	}

	steps, err := s.store.ListSteps(ctx, scenario.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario steps: %w", err)
	}

	if req.Message != nil {
		exec.AppendTurn(domain.RoleUser, *req.Message)
	}

	result := s.engine.Run(&engine.Context{Execution: exec, Graph: engine.NewGraph(scenario, steps)}, req.Message)
	if result.Fault {
		s.logger.Warn("Scenario configuration fault", zap.String("execution_id", exec.ID),
			zap.Int64("scenario_id", scenario.ID), zap.String("response", result.Response))
	}

	exec.AppendTurn(domain.RoleAssistant, result.Response)
	if err := s.store.SaveExecution(ctx, exec); err != nil {
		return nil, fmt.Errorf("failed to save execution: %w", err)
	}

	return &domain.TurnOutcome{
		Response:     result.Response,
		Completed:    result.Completed,
		WaitForInput: result.WaitForInput,
		ExecutionID:  exec.ID,
	}, nil
}

// executionScenario returns the scenario an existing execution is bound to. An
// execution without one (direct chat, or its scenario was deleted) is rebound
// to the resolved scenario and restarted.
func (s *Service) executionScenario(ctx context.Context, exec *domain.Execution, resolved *domain.Scenario) (*domain.Scenario, error) {
	if exec.ScenarioID == nil {
		id := resolved.ID
		exec.ScenarioID = &id
		exec.CurrentStepID = nil
		exec.IsCompleted = false
		return resolved, nil
	}
	if *exec.ScenarioID == resolved.ID {
		return resolved, nil
	}

	scenario, err := s.store.GetScenario(ctx, *exec.ScenarioID)
	if err != nil {
		return nil, fmt.Errorf("failed to get scenario: %w", err)
	}
	if scenario == nil {
		id := resolved.ID
		exec.ScenarioID = &id
		exec.CurrentStepID = nil
		exec.IsCompleted = false
		return resolved, nil
	}
	return scenario, nil
}

// activeBot loads a bot that may take part in conversations.
func (s *Service) activeBot(ctx context.Context, botID int64) (*domain.Bot, error) {
	bot, err := s.GetBot(ctx, botID)
	if err != nil {
		return nil, err
	}
	if !bot.IsActive {
		return nil, domain.NewValidationError("bot_id", fmt.Sprintf("bot %d is not active", botID))
	}
	return bot, nil
}

// resolveScenario returns the requested scenario, which must belong to the bot,
// or the bot's first active scenario.
func (s *Service) resolveScenario(ctx context.Context, botID int64, scenarioID *int64) (*domain.Scenario, error) {
	if scenarioID != nil {
		scenario, err := s.store.GetScenario(ctx, *scenarioID)
		if err != nil {
			return nil, fmt.Errorf("failed to get scenario: %w", err)
		}
		if scenario == nil || scenario.BotID != botID {
			return nil, domain.NewValidationError("scenario_id", fmt.Sprintf("scenario %d does not belong to bot %d", *scenarioID, botID))
		}
		return scenario, nil
	}

	scenario, err := s.store.FirstActiveScenario(ctx, botID)
	if err != nil {
		return nil, fmt.Errorf("failed to get scenario: %w", err)
	}
	if scenario == nil {
		return nil, domain.NewValidationError("scenario_id", fmt.Sprintf("bot %d has no active scenario", botID))
	}
	return scenario, nil
}
