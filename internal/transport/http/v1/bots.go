package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/larasedova/alpina-gpt-builder/internal/domain"
)

// CreateBot creates a bot.
// POST /v1/bots
func (h *Handler) CreateBot(c echo.Context) error {
	var req domain.CreateBotRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "", "invalid request body")
	}

	bot, err := h.service.CreateBot(c.Request().Context(), req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, bot)
}

// ListBots lists all bots.
// GET /v1/bots
func (h *Handler) ListBots(c echo.Context) error {
	bots, err := h.service.ListBots(c.Request().Context())
	if err != nil {
		return h.respondError(c, err)
	}
	if bots == nil {
		bots = []domain.Bot{}
	}
	return c.JSON(http.StatusOK, map[string]any{"bots": bots})
}

// GetBot gets a bot by ID.
// GET /v1/bots/:bot_id
func (h *Handler) GetBot(c echo.Context) error {
	botID, err := pathID(c, "bot_id")
	if err != nil {
		return h.respondError(c, err)
	}

	bot, err := h.service.GetBot(c.Request().Context(), botID)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, bot)
}

// UpdateBot partially updates a bot.
// PUT /v1/bots/:bot_id
func (h *Handler) UpdateBot(c echo.Context) error {
	botID, err := pathID(c, "bot_id")
	if err != nil {
		return h.respondError(c, err)
	}
	var req domain.UpdateBotRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "", "invalid request body")
	}

	bot, err := h.service.UpdateBot(c.Request().Context(), botID, req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, bot)
}

// DeleteBot deletes a bot.
// DELETE /v1/bots/:bot_id
func (h *Handler) DeleteBot(c echo.Context) error {
	botID, err := pathID(c, "bot_id")
	if err != nil {
		return h.respondError(c, err)
	}

	if err := h.service.DeleteBot(c.Request().Context(), botID); err != nil {
		return h.respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ValidateBotConfig checks a bot configuration.
// POST /v1/bots/:bot_id/validate_config
func (h *Handler) ValidateBotConfig(c echo.Context) error {
	botID, err := pathID(c, "bot_id")
	if err != nil {
		return h.respondError(c, err)
	}

	result, err := h.service.ValidateBotConfig(c.Request().Context(), botID)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// TestConnection checks the text-generation backend for a bot.
// POST /v1/bots/:bot_id/test_connection
func (h *Handler) TestConnection(c echo.Context) error {
	botID, err := pathID(c, "bot_id")
	if err != nil {
		return h.respondError(c, err)
	}

	result, err := h.service.TestConnection(c.Request().Context(), botID)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// SeedDemoBot creates the demo bot unless it already exists.
// POST /v1/demo/bot
func (h *Handler) SeedDemoBot(c echo.Context) error {
	result, err := h.service.SeedDemoBot(c.Request().Context())
	if err != nil {
		return h.respondError(c, err)
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	return c.JSON(status, result)
}
