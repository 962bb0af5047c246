package matching

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"carpool-backend/internal/models"
	"carpool-backend/pkg/utils"
)

// Handler handles HTTP requests for candidate matching.
type Handler struct {
	svc ServiceInterface
}

// NewHandler creates a new matching handler.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

// GetCandidates handles POST /routes/:routeId/candidates.
func (h *Handler) GetCandidates(c echo.Context) error {
	targetID, err := uuid.Parse(c.Param("routeId"))
	if err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid route ID")
	}

	var req models.CandidatesRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	ids, err := h.svc.GetCandidates(c.Request().Context(), targetID, req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	if ids == nil {
		ids = []string{}
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string][]string{"candidates": ids})
}
