package domain

import (
	"encoding/json"
	"time"
)

// Bot is an operator-defined conversational bot and its generation settings.
type Bot struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	BotType      BotType   `json:"bot_type"`
	Model        string    `json:"gpt_model"`
	Temperature  float64   `json:"temperature"`
	MaxTokens    int       `json:"max_tokens"`
	SystemPrompt string    `json:"system_prompt"`
	IsActive     bool      `json:"is_active"`
	CreatedBy    string    `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// GenerationConfig returns the settings passed to the text-generation backend.
func (b *Bot) GenerationConfig() GenerationConfig {
	return GenerationConfig{
		Model:        b.Model,
		Temperature:  b.Temperature,
		MaxTokens:    b.MaxTokens,
		SystemPrompt: b.SystemPrompt,
	}
}

// GenerationConfig holds the per-call text-generation settings.
type GenerationConfig struct {
	Model        string  `json:"model"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
	SystemPrompt string  `json:"system_prompt"`
}

// Scenario is a directed graph of steps belonging to one bot.
type Scenario struct {
	ID            int64     `json:"id"`
	BotID         int64     `json:"bot_id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	InitialStepID *int64    `json:"initial_step,omitempty"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Step is a typed unit of bot behavior with an optional static successor.
// Order is for authoring and display only; execution follows NextStepID.
type Step struct {
	ID         int64           `json:"id"`
	ScenarioID int64           `json:"scenario_id"`
	Name       string          `json:"name"`
	Type       StepType        `json:"step_type"`
	Order      int             `json:"order"`
	Content    json.RawMessage `json:"content"`
	NextStepID *int64          `json:"next_step,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Turn is one entry of an execution transcript.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Execution is the persistent per-user progress record through a scenario.
type Execution struct {
	ID            string    `json:"id"`
	BotID         int64     `json:"bot_id"`
	ScenarioID    *int64    `json:"scenario_id,omitempty"`
	UserSession   string    `json:"user_session"`
	CurrentStepID *int64    `json:"current_step,omitempty"`
	History       []Turn    `json:"conversation_history"`
	IsCompleted   bool      `json:"is_completed"`
	Version       int64     `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AppendTurn appends a turn to the transcript. Turns are never removed.
func (e *Execution) AppendTurn(role Role, content string) {
	e.History = append(e.History, Turn{Role: role, Content: content})
}

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 {
	return &v
}
