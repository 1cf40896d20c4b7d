package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larasedova/alpina-gpt-builder/internal/adapter/llm"
	"github.com/larasedova/alpina-gpt-builder/internal/config"
	"github.com/larasedova/alpina-gpt-builder/internal/domain"
	"github.com/larasedova/alpina-gpt-builder/internal/lock"
	"github.com/larasedova/alpina-gpt-builder/internal/policy"
	"github.com/larasedova/alpina-gpt-builder/internal/repository"
	"github.com/larasedova/alpina-gpt-builder/internal/service"
	"github.com/larasedova/alpina-gpt-builder/internal/transport/apierror"
	"github.com/larasedova/alpina-gpt-builder/tests/helpers"
)

func newTestHandler(t *testing.T) (*Handler, repository.Store) {
	t.Helper()
	cfg := &config.Config{LLMTimeout: time.Second, LockWait: time.Second}
	db := helpers.NewTestSQLiteStore(t)
	policyEngine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	svc := service.New(db, llm.NewMockClient(), lock.NewMemory(cfg.LockWait), policyEngine, cfg)
	return NewHandler(svc), db
}

func newTestRouter(t *testing.T) (*echo.Echo, repository.Store) {
	t.Helper()
	h, db := newTestHandler(t)
	e := echo.New()
	h.RegisterRoutes(e)
	return e, db
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body == "" {
		reader = &bytes.Buffer{}
	} else {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func createBot(t *testing.T, e *echo.Echo, body string) domain.Bot {
	t.Helper()
	rec := do(e, http.MethodPost, "/v1/bots", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[domain.Bot](t, rec)
}

func TestHealth(t *testing.T) {
	e, _ := newTestRouter(t)

	rec := do(e, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestCreateBotValidation(t *testing.T) {
	e, _ := newTestRouter(t)

	rec := do(e, http.MethodPost, "/v1/bots", `{"name":"Hot","temperature":3}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[apierror.Body](t, rec)
	assert.Equal(t, "temperature", body.Field)
	assert.Equal(t, apierror.CodeInvalidRequest, body.Code)

	rec = do(e, http.MethodPost, "/v1/bots", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBotLifecycle(t *testing.T) {
	e, _ := newTestRouter(t)

	bot := createBot(t, e, `{"name":"Support","temperature":0}`)
	assert.Equal(t, 0.0, bot.Temperature)
	assert.Equal(t, "gpt-3.5-turbo", bot.Model)

	rec := do(e, http.MethodPut, fmt.Sprintf("/v1/bots/%d", bot.ID), `{"system_prompt":"Be kind."}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Be kind.", decode[domain.Bot](t, rec).SystemPrompt)

	rec = do(e, http.MethodGet, "/v1/bots", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[map[string][]domain.Bot](t, rec)
	assert.Len(t, list["bots"], 1)

	rec = do(e, http.MethodPost, fmt.Sprintf("/v1/bots/%d/validate_config", bot.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[domain.ConfigCheckResult](t, rec).Valid)

	rec = do(e, http.MethodPost, fmt.Sprintf("/v1/bots/%d/test_connection", bot.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[domain.ConnectionCheckResult](t, rec).Connected)

	rec = do(e, http.MethodDelete, fmt.Sprintf("/v1/bots/%d", bot.ID), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(e, http.MethodGet, fmt.Sprintf("/v1/bots/%d", bot.ID), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetBotHandlerDirect(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/bots/abc", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("bot_id")
	c.SetParamValues("abc")

	if err := h.GetBot(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestScenarioAuthoringAndTurns(t *testing.T) {
	e, _ := newTestRouter(t)
	bot := createBot(t, e, `{"name":"Quiz"}`)

	rec := do(e, http.MethodPost, fmt.Sprintf("/v1/bots/%d/scenarios", bot.ID), `{"name":"Main"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	scenario := decode[domain.Scenario](t, rec)
	assert.True(t, scenario.IsActive)

	stepsPath := fmt.Sprintf("/v1/scenarios/%d/steps", scenario.ID)
	rec = do(e, http.MethodPost, stepsPath, `{"name":"Bye","step_type":"message","order":2,"content":{"message":"Bye"}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	bye := decode[domain.Step](t, rec)

	rec = do(e, http.MethodPost, stepsPath, fmt.Sprintf(
		`{"name":"Ask","step_type":"question","order":1,"content":{"question":"Colour?","response_template":"You said {user_input}"},"next_step":%d}`, bye.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ask := decode[domain.Step](t, rec)

	rec = do(e, http.MethodPost, stepsPath, `{"name":"Bad","step_type":"message","content":"oops"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodGet, stepsPath, "")
	require.Equal(t, http.StatusOK, rec.Code)
	steps := decode[map[string][]domain.Step](t, rec)["steps"]
	require.Len(t, steps, 2)
	assert.Equal(t, "Ask", steps[0].Name)

	rec = do(e, http.MethodPut, fmt.Sprintf("/v1/scenarios/%d/initial_step", scenario.ID), fmt.Sprintf(`{"initial_step":%d}`, ask.ID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	turnsPath := fmt.Sprintf("/v1/bots/%d/turns", bot.ID)
	rec = do(e, http.MethodPost, turnsPath, `{"user_session":"u1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decode[domain.TurnOutcome](t, rec)
	assert.Equal(t, "Colour?", first.Response)
	assert.True(t, first.WaitForInput)

	rec = do(e, http.MethodPost, turnsPath, `{"user_session":"u1","message":"blue"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "You said blue", decode[domain.TurnOutcome](t, rec).Response)

	rec = do(e, http.MethodPost, turnsPath, fmt.Sprintf(`{"user_session":"u1","message":"%s"}`, strings.Repeat("x", 1001)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodGet, "/v1/executions/"+first.ExecutionID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	exec := decode[domain.Execution](t, rec)
	assert.Len(t, exec.History, 3)

	rec = do(e, http.MethodGet, "/v1/executions/exec_missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChat(t *testing.T) {
	e, db := newTestRouter(t)
	bot := createBot(t, e, `{"name":"Chatty","system_prompt":"Be brief."}`)

	rec := do(e, http.MethodPost, fmt.Sprintf("/v1/bots/%d/chat", bot.ID), `{"message":"Hello"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[domain.DirectChatResult](t, rec)
	assert.Contains(t, result.Response, "Hello")
	assert.NotNil(t, result.TokensUsed)

	exec, err := db.FindExecution(context.Background(), bot.ID, domain.DefaultUserSession)
	require.NoError(t, err)
	require.NotNil(t, exec)
	assert.Equal(t, result.ExecutionID, exec.ID)

	rec = do(e, http.MethodPost, fmt.Sprintf("/v1/bots/%d/chat", bot.ID), `{"message":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSeedDemoBot(t *testing.T) {
	e, _ := newTestRouter(t)

	rec := do(e, http.MethodPost, "/v1/demo/bot", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[domain.DemoBotResult](t, rec)
	require.NotNil(t, created.Bot)

	rec = do(e, http.MethodPost, "/v1/demo/bot", "")
	require.Equal(t, http.StatusOK, rec.Code)
	again := decode[domain.DemoBotResult](t, rec)
	assert.False(t, again.Created)
	assert.Equal(t, created.Bot.ID, again.Bot.ID)

	rec = do(e, http.MethodGet, fmt.Sprintf("/v1/bots/%d/scenarios", created.Bot.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]domain.Scenario](t, rec)["scenarios"], 1)
}

func TestScenarioAndStepMaintenance(t *testing.T) {
	e, _ := newTestRouter(t)
	bot := createBot(t, e, `{"name":"Quiz"}`)

	rec := do(e, http.MethodPost, fmt.Sprintf("/v1/bots/%d/scenarios", bot.ID), `{"name":"Main"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	scenario := decode[domain.Scenario](t, rec)
	scenarioPath := fmt.Sprintf("/v1/scenarios/%d", scenario.ID)

	rec = do(e, http.MethodPut, scenarioPath, `{"is_active":false,"description":"paused"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[domain.Scenario](t, rec)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "paused", updated.Description)
	assert.Equal(t, "Main", updated.Name)

	rec = do(e, http.MethodPost, fmt.Sprintf("/v1/bots/%d/turns", bot.ID), `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "no active scenario left")

	rec = do(e, http.MethodPut, scenarioPath, `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, scenarioPath+"/steps", `{"name":"Hi","step_type":"message","content":{"message":"Hi"}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	step := decode[domain.Step](t, rec)

	rec = do(e, http.MethodDelete, fmt.Sprintf("/v1/steps/%d", step.ID), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(e, http.MethodDelete, fmt.Sprintf("/v1/steps/%d", step.ID), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodDelete, scenarioPath, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(e, http.MethodGet, scenarioPath, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(e, http.MethodPut, scenarioPath, `{"is_active":true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
