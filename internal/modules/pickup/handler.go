package pickup

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"carpool-backend/internal/models"
	"carpool-backend/pkg/utils"
)

// Handler handles HTTP requests for pickup and drop-off points.
type Handler struct {
	svc ServiceInterface
}

// NewHandler creates a new pickup handler.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) bindPoint(c echo.Context) (*models.MeetingPointRequest, error) {
	var req models.MeetingPointRequest
	if err := c.Bind(&req); err != nil {
		return nil, utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return nil, utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}
	return &req, nil
}

// SetPickup handles POST /pickup.
func (h *Handler) SetPickup(c echo.Context) error {
	req, err := h.bindPoint(c)
	if req == nil {
		return err
	}
	feature, err := h.svc.SetPickup(c.Request().Context(), *req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusCreated, feature)
}

// SetDropoff handles POST /dropoff.
func (h *Handler) SetDropoff(c echo.Context) error {
	req, err := h.bindPoint(c)
	if req == nil {
		return err
	}
	feature, err := h.svc.SetDropoff(c.Request().Context(), *req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusCreated, feature)
}

// DeletePickup handles DELETE /pickup/:routeId.
func (h *Handler) DeletePickup(c echo.Context) error {
	routeID, err := uuid.Parse(c.Param("routeId"))
	if err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid route ID")
	}
	if err := h.svc.DeletePickup(c.Request().Context(), routeID); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteDropoff handles DELETE /dropoff/:routeId.
func (h *Handler) DeleteDropoff(c echo.Context) error {
	routeID, err := uuid.Parse(c.Param("routeId"))
	if err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid route ID")
	}
	if err := h.svc.DeleteDropoff(c.Request().Context(), routeID); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func routeAndPosition(c echo.Context) (uuid.UUID, models.LatLon, error) {
	routeID, err := uuid.Parse(c.Param("routeId"))
	if err != nil {
		return uuid.Nil, models.LatLon{}, utils.RespondWithError(c, http.StatusBadRequest, "Invalid route ID")
	}
	position, err := models.ParseLatLon(c.QueryParam("position"))
	if err != nil {
		return uuid.Nil, models.LatLon{}, utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}
	return routeID, position, nil
}

// SuggestPickup handles GET /routes/:routeId/suggest_pickup?position=lat,lon.
func (h *Handler) SuggestPickup(c echo.Context) error {
	routeID, position, err := routeAndPosition(c)
	if err != nil {
		return err
	}
	suggestion, err := h.svc.SuggestPickup(c.Request().Context(), routeID, position)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, suggestion)
}

// IsAtPickup handles GET /routes/:routeId/is_at_pickup?position=lat,lon.
func (h *Handler) IsAtPickup(c echo.Context) error {
	routeID, position, err := routeAndPosition(c)
	if err != nil {
		return err
	}
	arrived, err := h.svc.IsAtPickupPoint(c.Request().Context(), routeID, position)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]bool{"is_at_pickup": arrived})
}

// Remainder handles GET /routes/:routeId/remainder?position=lat,lon.
func (h *Handler) Remainder(c echo.Context) error {
	routeID, position, err := routeAndPosition(c)
	if err != nil {
		return err
	}
	feature, err := h.svc.Remainder(c.Request().Context(), routeID, position)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, feature)
}

// SnapPositions handles POST /positions/snap.
func (h *Handler) SnapPositions(c echo.Context) error {
	var req models.SnapRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}
	positions, err := h.svc.SnapPositions(c.Request().Context(), req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string][]models.LatLon{"positions": positions})
}
