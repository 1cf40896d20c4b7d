package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/larasedova/alpina-gpt-builder/internal/domain"
)

// RunTurn drives one scenario turn.
// POST /v1/bots/:bot_id/turns
func (h *Handler) RunTurn(c echo.Context) error {
	botID, err := pathID(c, "bot_id")
	if err != nil {
		return h.respondError(c, err)
	}
	var req domain.RunTurnRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "", "invalid request body")
	}
	req.BotID = botID

	outcome, err := h.service.RunTurn(c.Request().Context(), req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, outcome)
}

// Chat answers a message with the bot's model, outside the scenario.
// POST /v1/bots/:bot_id/chat
func (h *Handler) Chat(c echo.Context) error {
	botID, err := pathID(c, "bot_id")
	if err != nil {
		return h.respondError(c, err)
	}
	var req domain.DirectChatRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "", "invalid request body")
	}
	req.BotID = botID

	result, err := h.service.CompleteDirect(c.Request().Context(), req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// GetExecution returns an execution with its transcript.
// GET /v1/executions/:execution_id
func (h *Handler) GetExecution(c echo.Context) error {
	exec, err := h.service.GetExecution(c.Request().Context(), c.Param("execution_id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, exec)
}
