package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/larasedova/alpina-gpt-builder/internal/domain"
)

const (
	demoBotName   = "Alpina Digital demo bot"
	demoCreatedBy = "demo_user"
)

// SeedDemoBot creates the demo bot with a small onboarding scenario. It is
// idempotent by bot name.
func (s *Service) SeedDemoBot(ctx context.Context) (*domain.DemoBotResult, error) {
	bots, err := s.ListBots(ctx)
	if err != nil {
		return nil, err
	}
	for i := range bots {
		if bots[i].Name == demoBotName {
			return &domain.DemoBotResult{Created: false, Bot: &bots[i]}, nil
		}
	}

	temperature := 0.7
	bot, err := s.CreateBot(ctx, domain.CreateBotRequest{
		Name:         demoBotName,
		Description:  "Demo bot showing the platform capabilities",
		BotType:      domain.BotTypeChat,
		Model:        "alpina-demo",
		Temperature:  &temperature,
		MaxTokens:    1000,
		SystemPrompt: "You are a helpful assistant demonstrating the Alpina Digital platform.",
		CreatedBy:    demoCreatedBy,
	})
	if err != nil {
		return nil, err
	}

	if err := s.seedDemoScenario(ctx, bot.ID); err != nil {
		return nil, fmt.Errorf("failed to seed demo scenario: %w", err)
	}

	s.logger.Info("Demo bot seeded", zap.Int64("bot_id", bot.ID))
	return &domain.DemoBotResult{Created: true, Bot: bot}, nil
}

func (s *Service) seedDemoScenario(ctx context.Context, botID int64) error {
	scenario, err := s.CreateScenario(ctx, botID, domain.CreateScenarioRequest{
		Name:        "Onboarding",
		Description: "Greets the user and asks about a tour",
	})
	if err != nil {
		return err
	}

	// Created bottom-up so every edge points at an existing step.
	tour, err := s.CreateStep(ctx, scenario.ID, domain.StepRequest{
		Name: "Tour", StepType: domain.StepTypeMessage, Order: 4,
		Content: []byte(`{"message":"Great! Start by creating a scenario for your bot."}`),
	})
	if err != nil {
		return err
	}
	bye, err := s.CreateStep(ctx, scenario.ID, domain.StepRequest{
		Name: "Goodbye", StepType: domain.StepTypeMessage, Order: 5,
		Content: []byte(`{"message":"No problem. Come back any time."}`),
	})
	if err != nil {
		return err
	}
	choice, err := s.CreateStep(ctx, scenario.ID, domain.StepRequest{
		Name: "Tour choice", StepType: domain.StepTypeCondition, Order: 3,
		Content: []byte(fmt.Sprintf(
			`{"conditions":{"yes":%d,"no":%d},"responses":{"yes":"Let's go.","no":"Alright."},"default_response":"Please answer yes or no."}`,
			tour.ID, bye.ID)),
	})
	if err != nil {
		return err
	}
	ask, err := s.CreateStep(ctx, scenario.ID, domain.StepRequest{
		Name: "Ask name", StepType: domain.StepTypeQuestion, Order: 2,
		Content:    []byte(`{"question":"What is your name?","response_template":"Nice to meet you, {user_input}! Would you like a tour?"}`),
		NextStepID: &choice.ID,
	})
	if err != nil {
		return err
	}
	welcome, err := s.CreateStep(ctx, scenario.ID, domain.StepRequest{
		Name: "Welcome", StepType: domain.StepTypeMessage, Order: 1,
		Content:    []byte(`{"message":"Welcome to Alpina Digital!"}`),
		NextStepID: &ask.ID,
	})
	if err != nil {
		return err
	}

	_, err = s.SetInitialStep(ctx, scenario.ID, domain.SetInitialStepRequest{StepID: &welcome.ID})
	return err
}
