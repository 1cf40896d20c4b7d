// Package domain defines the core domain models for the bot builder.
package domain

// BotType selects how a bot talks to the text-generation backend.
type BotType string

const (
	BotTypeCompletion BotType = "completion"
	BotTypeChat       BotType = "chat"
)

// StepType is the type tag of a scenario step.
type StepType string

const (
	StepTypeMessage   StepType = "message"
	StepTypeQuestion  StepType = "question"
	StepTypeCondition StepType = "condition"
	StepTypeAPICall   StepType = "api_call"
)

// AcceptsInput reports whether steps of this type consume user input when re-entered.
func (t StepType) AcceptsInput() bool {
	return t == StepTypeQuestion || t == StepTypeCondition
}

// Role is the author of a transcript turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Fixed user-facing texts produced by the engine.
const (
	ResponseNoEntryPoint      = "scenario has no entry point"
	ResponseUnknownStepType   = "unrecognized step type"
	ResponseMisconfiguredStep = "scenario step is misconfigured"
	ResponseScenarioCompleted = "scenario is completed"
	ResponseApology           = "Sorry, something went wrong. Please try again later."
	DefaultConditionResponse  = "Sorry, I did not understand your answer."
)

// DefaultUserSession is used when a caller does not name a session.
const DefaultUserSession = "default_session"

// MaxMessageLength bounds a single user message.
const MaxMessageLength = 1000
