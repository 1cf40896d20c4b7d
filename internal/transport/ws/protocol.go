package ws

// Frame types from client to server.
const (
	TypeTurn = "turn"
	TypeChat = "chat"
)

// Frame types from server to client.
const (
	TypeTurnResult = "turn_result"
	TypeChatResult = "chat_result"
	TypeError      = "error"
)

// ErrorCodeInvalidMessage is sent for frames that cannot be parsed or dispatched.
const ErrorCodeInvalidMessage = "invalid_message"

// BaseFrame contains common fields for all frames.
type BaseFrame struct {
	Type        string `json:"type"`
	Ts          int64  `json:"ts,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
	BotID       int64  `json:"bot_id,omitempty"`
	UserSession string `json:"user_session,omitempty"`
}

// InboundFrame is a turn or chat request. Message is absent for a turn that
// only advances the scenario.
type InboundFrame struct {
	BaseFrame
	Message    *string `json:"message,omitempty"`
	ScenarioID *int64  `json:"scenario_id,omitempty"`
}

// TurnResultFrame carries the outcome of a scenario turn.
type TurnResultFrame struct {
	BaseFrame
	Response     string `json:"response"`
	Completed    bool   `json:"completed"`
	WaitForInput bool   `json:"wait_for_input"`
	ExecutionID  string `json:"execution_id"`
}

// ChatResultFrame carries a direct completion.
type ChatResultFrame struct {
	BaseFrame
	Response    string `json:"response"`
	ExecutionID string `json:"execution_id"`
	TokensUsed  *int   `json:"tokens_used,omitempty"`
}

// ErrorFrame is sent when a request fails.
type ErrorFrame struct {
	BaseFrame
	Code    string `json:"code"`
	Message string `json:"message"`
}
