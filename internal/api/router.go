package api

import (
	"net/http"

	"carpool-backend/internal/modules/geocoding"
	"carpool-backend/internal/modules/matching"
	"carpool-backend/internal/modules/pickup"
	"carpool-backend/internal/modules/routes"

	"github.com/labstack/echo/v4"
)

// SetupRoutes sets up all the API endpoints for the application.
func SetupRoutes(
	e *echo.Echo,
	routeHandler *routes.Handler,
	matchingHandler *matching.Handler,
	pickupHandler *pickup.Handler,
	geocodingHandler *geocoding.Handler,
) {
	// --- Healthcheck ---
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "OK"})
	})

	// --- Route Composition ---
	routeGroup := e.Group("/routes")
	{
		routeGroup.POST("", routeHandler.CreateRoutes)
		routeGroup.GET("/:routeId", routeHandler.GetRoute)
		routeGroup.PUT("/:routeId", routeHandler.CommitTrip)

		// Matching and in-trip queries hang off a single route.
		routeGroup.POST("/:routeId/candidates", matchingHandler.GetCandidates)
		routeGroup.GET("/:routeId/suggest_pickup", pickupHandler.SuggestPickup)
		routeGroup.GET("/:routeId/is_at_pickup", pickupHandler.IsAtPickup)
		routeGroup.GET("/:routeId/remainder", pickupHandler.Remainder)
	}

	// --- Meeting Points ---
	e.POST("/pickup", pickupHandler.SetPickup)
	e.DELETE("/pickup/:routeId", pickupHandler.DeletePickup)
	e.POST("/dropoff", pickupHandler.SetDropoff)
	e.DELETE("/dropoff/:routeId", pickupHandler.DeleteDropoff)
	e.POST("/positions/snap", pickupHandler.SnapPositions)

	// --- Geocoding Passthrough ---
	e.GET("/geocode", geocodingHandler.Geocode)
	e.GET("/reverse", geocodingHandler.Reverse)
	e.GET("/suggest", geocodingHandler.Suggest)
}
