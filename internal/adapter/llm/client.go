package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const retryWait = 200 * time.Millisecond

// Client is an OpenAI-compatible HTTP client.
type Client struct {
	http *resty.Client
}

// NewClient creates a new client. maxRetries applies to transport failures and
// 5xx answers only.
func NewClient(baseURL, apiKey string, timeout time.Duration, maxRetries int) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(maxRetries).
		SetRetryWaitTime(retryWait).
		SetHeader("Content-Type", "application/json").
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err != nil || (resp != nil && resp.StatusCode() >= http.StatusInternalServerError)
		})
	if apiKey != "" {
		httpClient.SetAuthToken(apiKey)
	}
	return &Client{http: httpClient}
}

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Message    string
	Type       string
}

func (e *StatusError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("LLM API error [%d]: %s (type: %s)", e.StatusCode, e.Message, e.Type)
	}
	return fmt.Sprintf("LLM API error [%d]: %s", e.StatusCode, e.Message)
}

// CreateChatCompletion sends a chat completion request.
func (c *Client) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	var result ChatCompletionResponse
	var errResp ErrorResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		SetError(&errResp).
		Post("/v1/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	if resp.IsError() {
		return nil, newStatusError(resp, &errResp)
	}
	return &result, nil
}

// ListModels retrieves the list of available models.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	var result ModelList
	var errResp ErrorResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&errResp).
		Get("/v1/models")
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	if resp.IsError() {
		return nil, newStatusError(resp, &errResp)
	}
	return result.Data, nil
}

func newStatusError(resp *resty.Response, errResp *ErrorResponse) *StatusError {
	if errResp.Error != nil {
		return &StatusError{
			StatusCode: resp.StatusCode(),
			Message:    errResp.Error.Message,
			Type:       errResp.Error.Type,
		}
	}
	return &StatusError{StatusCode: resp.StatusCode(), Message: resp.String()}
}
