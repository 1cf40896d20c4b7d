package domain

import "encoding/json"

// CreateBotRequest is the input of bot creation.
type CreateBotRequest struct {
	Name         string   `json:"name" validate:"required,max=100"`
	Description  string   `json:"description"`
	BotType      BotType  `json:"bot_type" default:"chat" validate:"oneof=completion chat"`
	Model        string   `json:"gpt_model" default:"gpt-3.5-turbo" validate:"required,max=50"`
	Temperature  *float64 `json:"temperature" default:"0.7" validate:"required,gte=0,lte=2"`
	MaxTokens    int      `json:"max_tokens" default:"1000" validate:"gt=0"`
	SystemPrompt string   `json:"system_prompt"`
	IsActive     *bool    `json:"is_active" default:"true"`
	CreatedBy    string   `json:"created_by"`
}

// UpdateBotRequest is a partial bot update; nil fields are left unchanged.
type UpdateBotRequest struct {
	Name         *string  `json:"name" validate:"omitempty,min=1,max=100"`
	Description  *string  `json:"description"`
	BotType      *BotType `json:"bot_type" validate:"omitempty,oneof=completion chat"`
	Model        *string  `json:"gpt_model" validate:"omitempty,min=1,max=50"`
	Temperature  *float64 `json:"temperature" validate:"omitempty,gte=0,lte=2"`
	MaxTokens    *int     `json:"max_tokens" validate:"omitempty,gt=0"`
	SystemPrompt *string  `json:"system_prompt"`
	IsActive     *bool    `json:"is_active"`
}

// CreateScenarioRequest is the input of scenario creation.
type CreateScenarioRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active" default:"true"`
}

// UpdateScenarioRequest is a partial scenario update; nil fields are left unchanged.
type UpdateScenarioRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

// SetInitialStepRequest sets or clears (nil) the scenario entry point.
type SetInitialStepRequest struct {
	StepID *int64 `json:"initial_step"`
}

// StepRequest is the input of step creation and full step replacement.
type StepRequest struct {
	Name       string          `json:"name" validate:"required,max=100"`
	StepType   StepType        `json:"step_type" validate:"required,oneof=message question condition api_call"`
	Order      int             `json:"order" validate:"gte=0"`
	Content    json.RawMessage `json:"content" validate:"required"`
	NextStepID *int64          `json:"next_step"`
}

// RunTurnRequest is the input of one scenario-driven turn.
type RunTurnRequest struct {
	BotID       int64   `json:"bot_id" validate:"gt=0"`
	ScenarioID  *int64  `json:"scenario_id"`
	UserSession string  `json:"user_session" default:"default_session" validate:"required,max=255"`
	Message     *string `json:"message" validate:"omitempty,max=1000"`
}

// TurnOutcome is the result of one scenario-driven turn.
type TurnOutcome struct {
	Response     string `json:"response"`
	Completed    bool   `json:"completed"`
	WaitForInput bool   `json:"wait_for_input"`
	ExecutionID  string `json:"execution_id"`
}

// DirectChatRequest is the input of a direct completion without step processing.
type DirectChatRequest struct {
	BotID       int64  `json:"bot_id" validate:"gt=0"`
	Message     string `json:"message" validate:"required,max=1000"`
	UserSession string `json:"user_session" default:"default_session" validate:"required,max=255"`
}

// DirectChatResult is the result of a direct completion.
type DirectChatResult struct {
	Response    string `json:"response"`
	ExecutionID string `json:"execution_id"`
	TokensUsed  *int   `json:"tokens_used,omitempty"`
}

// ConfigCheckResult reports whether a bot configuration is acceptable.
type ConfigCheckResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ConnectionCheckResult reports whether the text-generation backend is reachable.
type ConnectionCheckResult struct {
	Connected bool   `json:"connected"`
	Model     string `json:"model"`
	Message   string `json:"message"`
}

// DemoBotResult is the result of seeding the demo bot.
type DemoBotResult struct {
	Created bool `json:"created"`
	Bot     *Bot `json:"bot"`
}
