package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/larasedova/alpina-gpt-builder/internal/adapter/llm"
	"github.com/larasedova/alpina-gpt-builder/internal/domain"
	"github.com/larasedova/alpina-gpt-builder/internal/lock"
)

// Completion is the text produced by the generation backend.
type Completion struct {
	Text       string
	TokenCount *int
}

// Complete sends the transcript, preceded by the system prompt when set, to the
// generation backend. Every failure, including the timeout, is a *domain.GenerationError.
func (s *Service) Complete(ctx context.Context, messages []domain.Turn, cfg domain.GenerationConfig) (*Completion, error) {
	if s.config != nil && s.config.LLMTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.LLMTimeout)
		defer cancel()
	}

	chat := make([]llm.ChatMessage, 0, len(messages)+1)
	if cfg.SystemPrompt != "" {
		chat = append(chat, llm.ChatMessage{Role: string(domain.RoleSystem), Content: cfg.SystemPrompt})
	}
	for _, m := range messages {
		chat = append(chat, llm.ChatMessage{Role: string(m.Role), Content: m.Content})
	}

	temperature := cfg.Temperature
	maxTokens := cfg.MaxTokens
	resp, err := s.llmClient.CreateChatCompletion(ctx, &llm.ChatCompletionRequest{
		Model:       cfg.Model,
		Messages:    chat,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return nil, &domain.GenerationError{Model: cfg.Model, Err: err}
	}

	text, ok := resp.Text()
	if !ok {
		return nil, &domain.GenerationError{Model: cfg.Model, Err: errors.New("response has no choices")}
	}

	completion := &Completion{Text: text}
	if resp.Usage != nil {
		total := resp.Usage.TotalTokens
		completion.TokenCount = &total
	}
	return completion, nil
}

// CompleteDirect answers a free-form message with the bot's generation settings,
// outside the step graph. Only chat bots take direct chat. When generation fails the user turn and an apology are
// persisted and the *domain.GenerationError is returned.
func (s *Service) CompleteDirect(ctx context.Context, req domain.DirectChatRequest) (*domain.DirectChatResult, error) {
	if err := domain.Normalize(&req); err != nil {
		return nil, err
	}

	bot, err := s.activeBot(ctx, req.BotID)
	if err != nil {
		return nil, err
	}
	if bot.BotType != domain.BotTypeChat {
		return nil, domain.NewValidationError("bot_id", fmt.Sprintf("bot %d is a %s bot and does not take direct chat", bot.ID, bot.BotType))
	}

	var scenarioID *int64
	scenario, err := s.store.FirstActiveScenario(ctx, bot.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get scenario: %w", err)
	}
	if scenario != nil {
		scenarioID = &scenario.ID
	}

	release, err := s.locker.Acquire(ctx, lock.TurnKey(bot.ID, req.UserSession))
	if err != nil {
		return nil, err
	}
	defer release()

	exec, err := s.loadExecution(ctx, bot.ID, req.UserSession, scenarioID)
	if err != nil {
		return nil, err
	}

	exec.AppendTurn(domain.RoleUser, req.Message)
	completion, genErr := s.Complete(ctx, exec.History, bot.GenerationConfig())

	reply := domain.ResponseApology
	if genErr == nil {
		reply = completion.Text
	} else {
		s.logger.Error("Text generation failed", zap.Int64("bot_id", bot.ID),
			zap.String("execution_id", exec.ID), zap.Error(genErr))
	}

	if err := s.saveDirectTurn(ctx, exec, req.Message, reply); err != nil {
		if genErr != nil {
			s.logger.Error("Failed to persist apology turn", zap.String("execution_id", exec.ID), zap.Error(err))
			return nil, genErr
		}
		return nil, err
	}
	if genErr != nil {
		return nil, genErr
	}

	return &domain.DirectChatResult{
		Response:    completion.Text,
		ExecutionID: exec.ID,
		TokensUsed:  completion.TokenCount,
	}, nil
}

// saveDirectTurn persists the user turn already appended to exec together with
// reply. On a version conflict both turns are replayed onto the stored execution
// once, so the generated reply is never requested twice.
func (s *Service) saveDirectTurn(ctx context.Context, exec *domain.Execution, message, reply string) error {
	exec.AppendTurn(domain.RoleAssistant, reply)
	err := s.store.SaveExecution(ctx, exec)
	if !errors.Is(err, domain.ErrVersionConflict) {
		if err != nil {
			return fmt.Errorf("failed to save execution: %w", err)
		}
		return nil
	}

	s.logger.Warn("Execution changed concurrently, replaying chat turn", zap.String("execution_id", exec.ID))
	fresh, err := s.store.FindExecution(ctx, exec.BotID, exec.UserSession)
	if err != nil {
		return fmt.Errorf("failed to reload execution: %w", err)
	}
	if fresh == nil {
		return domain.NotFound("execution", exec.ID)
	}
	fresh.AppendTurn(domain.RoleUser, message)
	fresh.AppendTurn(domain.RoleAssistant, reply)
	if err := s.store.SaveExecution(ctx, fresh); err != nil {
		return fmt.Errorf("failed to save execution: %w", err)
	}
	*exec = *fresh
	return nil
}
