package service

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/larasedova/alpina-gpt-builder/internal/adapter/llm"
	"github.com/larasedova/alpina-gpt-builder/internal/domain"
)

// CreateBot creates a bot. Omitted settings take their defaults; a temperature
// outside [0, 2] is rejected.
func (s *Service) CreateBot(ctx context.Context, req domain.CreateBotRequest) (*domain.Bot, error) {
	if err := domain.Normalize(&req); err != nil {
		return nil, err
	}

	now := s.now()
	bot := &domain.Bot{
		Name:         req.Name,
		Description:  req.Description,
		BotType:      req.BotType,
		Model:        req.Model,
		Temperature:  *req.Temperature,
		MaxTokens:    req.MaxTokens,
		SystemPrompt: req.SystemPrompt,
		IsActive:     *req.IsActive,
		CreatedBy:    req.CreatedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateBot(ctx, bot); err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	s.logger.Info("Bot created", zap.Int64("bot_id", bot.ID), zap.String("name", bot.Name))
	return bot, nil
}

func (s *Service) GetBot(ctx context.Context, botID int64) (*domain.Bot, error) {
	bot, err := s.store.GetBot(ctx, botID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bot: %w", err)
	}
	if bot == nil {
		return nil, domain.NotFound("bot", botID)
	}
	return bot, nil
}

func (s *Service) ListBots(ctx context.Context) ([]domain.Bot, error) {
	bots, err := s.store.ListBots(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list bots: %w", err)
	}
	return bots, nil
}

// UpdateBot applies a partial update.
func (s *Service) UpdateBot(ctx context.Context, botID int64, req domain.UpdateBotRequest) (*domain.Bot, error) {
	if err := domain.Validate(&req); err != nil {
		return nil, err
	}

	bot, err := s.GetBot(ctx, botID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		bot.Name = *req.Name
	}
	if req.Description != nil {
		bot.Description = *req.Description
	}
	if req.BotType != nil {
		bot.BotType = *req.BotType
	}
	if req.Model != nil {
		bot.Model = *req.Model
	}
	if req.Temperature != nil {
		bot.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		bot.MaxTokens = *req.MaxTokens
	}
	if req.SystemPrompt != nil {
		bot.SystemPrompt = *req.SystemPrompt
	}
	if req.IsActive != nil {
		bot.IsActive = *req.IsActive
	}
	bot.UpdatedAt = s.now()

	if err := s.store.UpdateBot(ctx, bot); err != nil {
		return nil, fmt.Errorf("failed to update bot: %w", err)
	}
	return bot, nil
}

// DeleteBot deletes a bot with its scenarios and executions.
func (s *Service) DeleteBot(ctx context.Context, botID int64) error {
	if err := s.store.DeleteBot(ctx, botID); err != nil {
		return fmt.Errorf("failed to delete bot: %w", err)
	}
	s.logger.Info("Bot deleted", zap.Int64("bot_id", botID))
	return nil
}

// botConfigInput is the document the bot policy evaluates.
type botConfigInput struct {
	Name         string  `json:"name"`
	BotType      string  `json:"bot_type"`
	Model        string  `json:"gpt_model"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
	SystemPrompt string  `json:"system_prompt"`
	IsActive     bool    `json:"is_active"`
}

// ValidateBotConfig checks a stored bot against the field rules and the bot policy.
func (s *Service) ValidateBotConfig(ctx context.Context, botID int64) (*domain.ConfigCheckResult, error) {
	bot, err := s.GetBot(ctx, botID)
	if err != nil {
		return nil, err
	}

	var problems []string
	temperature := bot.Temperature
	isActive := bot.IsActive
	fields := domain.CreateBotRequest{
		Name:        bot.Name,
		BotType:     bot.BotType,
		Model:       bot.Model,
		Temperature: &temperature,
		MaxTokens:   bot.MaxTokens,
		IsActive:    &isActive,
	}
	if err := domain.Validate(&fields); err != nil {
		if vErr, ok := err.(*domain.ValidationError); ok {
			problems = append(problems, vErr.Message)
		} else {
			problems = append(problems, err.Error())
		}
	}

	if s.policyEngine != nil {
		violations, err := s.policyEngine.Evaluate(ctx, botConfigInput{
			Name:         bot.Name,
			BotType:      string(bot.BotType),
			Model:        bot.Model,
			Temperature:  bot.Temperature,
			MaxTokens:    bot.MaxTokens,
			SystemPrompt: bot.SystemPrompt,
			IsActive:     bot.IsActive,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate bot policy: %w", err)
		}
		for _, v := range violations {
			if !slices.Contains(problems, v) {
				problems = append(problems, v)
			}
		}
	}

	return &domain.ConfigCheckResult{Valid: len(problems) == 0, Errors: problems}, nil
}

// TestConnection checks that the generation backend answers and lists the bot's
// model. Backend failures are reported in the result, not as an error.
func (s *Service) TestConnection(ctx context.Context, botID int64) (*domain.ConnectionCheckResult, error) {
	bot, err := s.GetBot(ctx, botID)
	if err != nil {
		return nil, err
	}

	if s.config != nil && s.config.LLMTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.LLMTimeout)
		defer cancel()
	}

	result := &domain.ConnectionCheckResult{Model: bot.Model}
	models, err := s.llmClient.ListModels(ctx)
	if err != nil {
		s.logger.Warn("Connection test failed", zap.Int64("bot_id", bot.ID), zap.Error(err))
		result.Message = err.Error()
		return result, nil
	}

	result.Connected = true
	if slices.ContainsFunc(models, func(m llm.Model) bool { return m.ID == bot.Model }) {
		result.Message = "connection established, model is available"
	} else {
		result.Message = fmt.Sprintf("connection established, model %s is not listed by the backend", bot.Model)
	}
	return result, nil
}
