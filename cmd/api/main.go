package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"carpool-backend/internal/api"
	"carpool-backend/internal/config"
	"carpool-backend/internal/modules/geocoding"
	"carpool-backend/internal/modules/matching"
	"carpool-backend/internal/modules/pickup"
	"carpool-backend/internal/modules/routes"
	"carpool-backend/internal/routing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/paulmach/orb"
	"go.uber.org/zap"
)

func main() {
	// 1. --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// 2. --- HTTP Server & Middleware ---
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.ClientOrigin},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	// 3. --- Database Connection ---
	dbConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Unable to parse database configuration", zap.Error(err))
	}
	dbPool, err := pgxpool.NewWithConfig(context.Background(), dbConfig)
	if err != nil {
		logger.Fatal("Unable to create connection pool", zap.Error(err))
	}
	defer dbPool.Close()

	if err := dbPool.Ping(context.Background()); err != nil {
		logger.Fatal("Unable to ping database", zap.Error(err))
	}
	logger.Info("Connected to the database")

	// 4. --- Routing Gateway ---
	primary := routing.NewORSDirections(cfg.DirectionsURL, cfg.DirectionsAPIKey, cfg.MaxAlternatives, cfg.ProviderTimeout)
	var fallback routing.DirectionsProvider
	if cfg.FallbackDirectionsURL != "" {
		fallback = routing.NewOSRMDirections(cfg.FallbackDirectionsURL, cfg.MaxAlternatives, cfg.ProviderTimeout)
	}
	geocoder := routing.NewPeliasGeocoder(
		cfg.GeocoderURL, cfg.GeocoderAPIKey,
		parseFocusPoint(cfg.FocusPoint, logger),
		cfg.BoundaryCountry, cfg.SupportedRegions, cfg.ProviderTimeout,
	)
	gateway := routing.NewGateway(primary, fallback, geocoder, logger)

	// 5. --- Dependency Injection ---
	routeRepo := routes.NewRepository(dbPool)
	routeService := routes.NewService(routeRepo, gateway, cfg, logger)
	routeHandler := routes.NewHandler(routeService)

	matchingRepo := matching.NewRepository(dbPool)
	matchingService := matching.NewService(matchingRepo, cfg, logger)
	matchingHandler := matching.NewHandler(matchingService)

	pickupRepo := pickup.NewRepository(dbPool)
	pickupService := pickup.NewService(pickupRepo, gateway, cfg, logger)
	pickupHandler := pickup.NewHandler(pickupService)

	geocodingHandler := geocoding.NewHandler(gateway)

	// 6. --- Router ---
	api.SetupRoutes(e, routeHandler, matchingHandler, pickupHandler, geocodingHandler)

	// 7. --- Start Server with graceful shutdown ---
	go func() {
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server stopped unexpectedly", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server exiting")
}

// parseFocusPoint reads the "lon,lat" focus setting. A bad value falls back
// to the zero point instead of failing startup: geocoding still works, the
// ranking just loses its bias.
func parseFocusPoint(s string, logger *zap.Logger) orb.Point {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		logger.Warn("Invalid FOCUS_POINT, expected \"lon,lat\"", zap.String("value", s))
		return orb.Point{}
	}
	lon, errLon := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLon != nil || errLat != nil {
		logger.Warn("Invalid FOCUS_POINT, expected \"lon,lat\"", zap.String("value", s))
		return orb.Point{}
	}
	return orb.Point{lon, lat}
}
