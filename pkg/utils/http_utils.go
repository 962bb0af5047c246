package utils

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"carpool-backend/internal/models"
)

var validate = validator.New()

// Validator wraps the shared validator instance behind the interface the
// handlers use.
type Validator struct {
	v *validator.Validate
}

// GetValidator returns the process-wide request validator.
func GetValidator() *Validator {
	return &Validator{v: validate}
}

// Validate runs struct-tag validation on a bound request.
func (v *Validator) Validate(i interface{}) error {
	return v.v.Struct(i)
}

// RespondWithJSON writes a JSON response.
func RespondWithJSON(c echo.Context, status int, payload interface{}) error {
	return c.JSON(status, payload)
}

// RespondWithError writes a JSON error body with the given status.
func RespondWithError(c echo.Context, status int, message string) error {
	return c.JSON(status, models.ErrorResponse{Message: message})
}

// HandleServiceError maps service-layer sentinel errors onto HTTP statuses.
// Anything unmapped is a plain 500 so internals never leak to clients.
func HandleServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return RespondWithError(c, http.StatusNotFound, "Resource not found")
	case errors.Is(err, models.ErrNoDiscardableRoutes):
		return RespondWithError(c, http.StatusNotFound, "No discardable routes for this user")
	case errors.Is(err, models.ErrDuplicatePosition):
		return RespondWithError(c, http.StatusBadRequest, "Positions must be distinct")
	case errors.Is(err, models.ErrTripExists):
		return RespondWithError(c, http.StatusBadRequest, "A route for this trip already exists")
	case errors.Is(err, models.ErrProfileNotAllowed):
		return RespondWithError(c, http.StatusBadRequest, "Operation not allowed for this travel mode")
	case errors.Is(err, models.ErrUpstreamRouting):
		return RespondWithError(c, http.StatusBadGateway, "Directions provider unavailable")
	case errors.Is(err, models.ErrUpstreamGeocoding):
		return RespondWithError(c, http.StatusBadGateway, "Geocoding provider unavailable")
	default:
		return RespondWithError(c, http.StatusInternalServerError, "Something went wrong")
	}
}
