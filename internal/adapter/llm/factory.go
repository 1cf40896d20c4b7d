package llm

import (
	"os"
	"time"

	"github.com/larasedova/alpina-gpt-builder/internal/log"
)

const (
	// EnvMode is the environment variable name for mode selection.
	EnvMode = "BOTBUILDER_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// NewLLMClient creates a client based on the BOTBUILDER_MODE environment variable.
// If BOTBUILDER_MODE=MOCK, returns a MockClient; otherwise returns a real Client.
func NewLLMClient(baseURL, apiKey string, timeout time.Duration, maxRetries int) LLMClient {
	if os.Getenv(EnvMode) == ModeMock {
		log.Component("LLMFactory").Info("BOTBUILDER_MODE=MOCK detected, using mock LLM client")
		return NewMockClient()
	}
	return NewClient(baseURL, apiKey, timeout, maxRetries)
}
