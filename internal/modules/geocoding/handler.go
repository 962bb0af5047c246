package geocoding

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/paulmach/orb"

	"carpool-backend/internal/models"
	"carpool-backend/internal/routing"
	"carpool-backend/pkg/utils"
)

// Geocoder is the slice of the routing gateway this handler consumes.
type Geocoder interface {
	Geocode(ctx context.Context, text string) (*routing.Place, error)
	ReverseGeocode(ctx context.Context, point orb.Point) (*routing.Place, error)
	Suggest(ctx context.Context, text string) ([]routing.Place, error)
}

// Handler handles geocoding passthrough requests. There is no service layer:
// the gateway already owns provider selection and error wrapping.
type Handler struct {
	geocoder Geocoder
}

// NewHandler creates a new geocoding handler.
func NewHandler(geocoder Geocoder) *Handler {
	return &Handler{geocoder: geocoder}
}

// Geocode handles GET /geocode?text=.
func (h *Handler) Geocode(c echo.Context) error {
	text := c.QueryParam("text")
	if text == "" {
		return utils.RespondWithError(c, http.StatusBadRequest, "Query parameter 'text' is required")
	}
	place, err := h.geocoder.Geocode(c.Request().Context(), text)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	if place == nil {
		return utils.RespondWithError(c, http.StatusNotFound, "Address not found")
	}
	return utils.RespondWithJSON(c, http.StatusOK, place)
}

// Reverse handles GET /reverse?position=lat,lon.
func (h *Handler) Reverse(c echo.Context) error {
	position, err := models.ParseLatLon(c.QueryParam("position"))
	if err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}
	place, err := h.geocoder.ReverseGeocode(c.Request().Context(), position.Point())
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	if place == nil {
		return utils.RespondWithError(c, http.StatusNotFound, "No address at this position")
	}
	return utils.RespondWithJSON(c, http.StatusOK, place)
}

// Suggest handles GET /suggest?text=.
func (h *Handler) Suggest(c echo.Context) error {
	text := c.QueryParam("text")
	if text == "" {
		return utils.RespondWithError(c, http.StatusBadRequest, "Query parameter 'text' is required")
	}
	places, err := h.geocoder.Suggest(c.Request().Context(), text)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	if len(places) == 0 {
		return utils.RespondWithError(c, http.StatusNotFound, "No matches")
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string][]routing.Place{"places": places})
}
