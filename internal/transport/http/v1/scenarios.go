package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/larasedova/alpina-gpt-builder/internal/domain"
)

// CreateScenario creates a scenario for a bot.
// POST /v1/bots/:bot_id/scenarios
func (h *Handler) CreateScenario(c echo.Context) error {
	botID, err := pathID(c, "bot_id")
	if err != nil {
		return h.respondError(c, err)
	}
	var req domain.CreateScenarioRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "", "invalid request body")
	}

	scenario, err := h.service.CreateScenario(c.Request().Context(), botID, req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, scenario)
}

// ListScenarios lists the scenarios of a bot.
// GET /v1/bots/:bot_id/scenarios
func (h *Handler) ListScenarios(c echo.Context) error {
	botID, err := pathID(c, "bot_id")
	if err != nil {
		return h.respondError(c, err)
	}

	scenarios, err := h.service.ListScenarios(c.Request().Context(), botID)
	if err != nil {
		return h.respondError(c, err)
	}
	if scenarios == nil {
		scenarios = []domain.Scenario{}
	}
	return c.JSON(http.StatusOK, map[string]any{"scenarios": scenarios})
}

// GetScenario gets a scenario by ID.
// GET /v1/scenarios/:scenario_id
func (h *Handler) GetScenario(c echo.Context) error {
	scenarioID, err := pathID(c, "scenario_id")
	if err != nil {
		return h.respondError(c, err)
	}

	scenario, err := h.service.GetScenario(c.Request().Context(), scenarioID)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, scenario)
}

// UpdateScenario applies a partial scenario update.
// PUT /v1/scenarios/:scenario_id
func (h *Handler) UpdateScenario(c echo.Context) error {
	scenarioID, err := pathID(c, "scenario_id")
	if err != nil {
		return h.respondError(c, err)
	}
	var req domain.UpdateScenarioRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "", "invalid request body")
	}

	scenario, err := h.service.UpdateScenario(c.Request().Context(), scenarioID, req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, scenario)
}

// DeleteScenario deletes a scenario and its steps.
// DELETE /v1/scenarios/:scenario_id
func (h *Handler) DeleteScenario(c echo.Context) error {
	scenarioID, err := pathID(c, "scenario_id")
	if err != nil {
		return h.respondError(c, err)
	}

	if err := h.service.DeleteScenario(c.Request().Context(), scenarioID); err != nil {
		return h.respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SetInitialStep sets or clears the scenario entry point.
// PUT /v1/scenarios/:scenario_id/initial_step
func (h *Handler) SetInitialStep(c echo.Context) error {
	scenarioID, err := pathID(c, "scenario_id")
	if err != nil {
		return h.respondError(c, err)
	}
	var req domain.SetInitialStepRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "", "invalid request body")
	}

	scenario, err := h.service.SetInitialStep(c.Request().Context(), scenarioID, req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, scenario)
}

// CreateStep adds a step to a scenario.
// POST /v1/scenarios/:scenario_id/steps
func (h *Handler) CreateStep(c echo.Context) error {
	scenarioID, err := pathID(c, "scenario_id")
	if err != nil {
		return h.respondError(c, err)
	}
	var req domain.StepRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "", "invalid request body")
	}

	step, err := h.service.CreateStep(c.Request().Context(), scenarioID, req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, step)
}

// ListSteps lists the steps of a scenario in display order.
// GET /v1/scenarios/:scenario_id/steps
func (h *Handler) ListSteps(c echo.Context) error {
	scenarioID, err := pathID(c, "scenario_id")
	if err != nil {
		return h.respondError(c, err)
	}

	steps, err := h.service.ListSteps(c.Request().Context(), scenarioID)
	if err != nil {
		return h.respondError(c, err)
	}
	if steps == nil {
		steps = []domain.Step{}
	}
	return c.JSON(http.StatusOK, map[string]any{"steps": steps})
}

// UpdateStep replaces a step definition.
// PUT /v1/steps/:step_id
func (h *Handler) UpdateStep(c echo.Context) error {
	stepID, err := pathID(c, "step_id")
	if err != nil {
		return h.respondError(c, err)
	}
	var req domain.StepRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "", "invalid request body")
	}

	step, err := h.service.UpdateStep(c.Request().Context(), stepID, req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, step)
}

// DeleteStep deletes a step.
// DELETE /v1/steps/:step_id
func (h *Handler) DeleteStep(c echo.Context) error {
	stepID, err := pathID(c, "step_id")
	if err != nil {
		return h.respondError(c, err)
	}

	if err := h.service.DeleteStep(c.Request().Context(), stepID); err != nil {
		return h.respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
