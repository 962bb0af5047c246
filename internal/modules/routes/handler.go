package routes

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"carpool-backend/internal/models"
	"carpool-backend/pkg/utils"
)

// Handler handles HTTP requests for route composition.
type Handler struct {
	svc ServiceInterface
}

// NewHandler creates a new route handler.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

// CreateRoutes handles POST /routes.
func (h *Handler) CreateRoutes(c echo.Context) error {
	var req models.DirectionsRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	res, err := h.svc.Directions(c.Request().Context(), req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusCreated, res)
}

// GetRoute handles GET /routes/:routeId. ?full=false returns only the
// straight endpoint line.
func (h *Handler) GetRoute(c echo.Context) error {
	routeID, err := uuid.Parse(c.Param("routeId"))
	if err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid route ID")
	}
	full := c.QueryParam("full") != "false"

	res, err := h.svc.GetRoute(c.Request().Context(), routeID, full)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, res)
}

// CommitTrip handles PUT /routes/:routeId.
func (h *Handler) CommitTrip(c echo.Context) error {
	routeID, err := uuid.Parse(c.Param("routeId"))
	if err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid route ID")
	}

	var req models.CommitTripRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	if err := h.svc.CommitTrip(c.Request().Context(), routeID, req); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]string{"message": "Trip committed"})
}
