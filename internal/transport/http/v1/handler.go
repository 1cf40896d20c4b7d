// Package v1 provides the JSON HTTP handlers of the bot builder.
package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/larasedova/alpina-gpt-builder/internal/domain"
	"github.com/larasedova/alpina-gpt-builder/internal/log"
	"github.com/larasedova/alpina-gpt-builder/internal/service"
	"github.com/larasedova/alpina-gpt-builder/internal/transport/apierror"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	logger  *zap.Logger
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
		logger:  log.Component("HTTPHandler"),
	}
}

// RegisterRoutes registers the v1 routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Bots
	e.POST("/v1/bots", h.CreateBot)
	e.GET("/v1/bots", h.ListBots)
	e.GET("/v1/bots/:bot_id", h.GetBot)
	e.PUT("/v1/bots/:bot_id", h.UpdateBot)
	e.DELETE("/v1/bots/:bot_id", h.DeleteBot)
	e.POST("/v1/bots/:bot_id/validate_config", h.ValidateBotConfig)
	e.POST("/v1/bots/:bot_id/test_connection", h.TestConnection)
	e.POST("/v1/demo/bot", h.SeedDemoBot)

	// Conversations
	e.POST("/v1/bots/:bot_id/chat", h.Chat)
	e.POST("/v1/bots/:bot_id/turns", h.RunTurn)
	e.GET("/v1/executions/:execution_id", h.GetExecution)

	// Scenario authoring
	e.POST("/v1/bots/:bot_id/scenarios", h.CreateScenario)
	e.GET("/v1/bots/:bot_id/scenarios", h.ListScenarios)
	e.GET("/v1/scenarios/:scenario_id", h.GetScenario)
	e.PUT("/v1/scenarios/:scenario_id", h.UpdateScenario)
	e.DELETE("/v1/scenarios/:scenario_id", h.DeleteScenario)
	e.PUT("/v1/scenarios/:scenario_id/initial_step", h.SetInitialStep)
	e.POST("/v1/scenarios/:scenario_id/steps", h.CreateStep)
	e.GET("/v1/scenarios/:scenario_id/steps", h.ListSteps)
	e.PUT("/v1/steps/:step_id", h.UpdateStep)
	e.DELETE("/v1/steps/:step_id", h.DeleteStep)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// respondError writes the classified error. Server-side failures are logged
// with the underlying cause.
func (h *Handler) respondError(c echo.Context, err error) error {
	status, body := apierror.Classify(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("method", c.Request().Method),
			zap.String("path", c.Path()), zap.Int("status", status), zap.Error(err))
	}
	return c.JSON(status, body)
}

func badRequest(c echo.Context, field, message string) error {
	return c.JSON(http.StatusBadRequest, apierror.Body{Error: message, Code: apierror.CodeInvalidRequest, Field: field})
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError(name, "must be a positive integer")
	}
	return id, nil
}
