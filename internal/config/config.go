package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every runtime setting the service needs. Values come from a
// config file (config.yaml) with environment-variable overrides, so the same
// binary runs locally, in CI and in production.
type Config struct {
	ServerPort   string `mapstructure:"SERVER_PORT"`
	ClientOrigin string `mapstructure:"CLIENT_ORIGIN"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`

	// Directions providers. The primary speaks the GeoJSON directions dialect,
	// the fallback the encoded-polyline one. A quota failure on the primary
	// flips the gateway to the fallback for the rest of the process lifetime.
	DirectionsURL         string        `mapstructure:"DIRECTIONS_URL"`
	DirectionsAPIKey      string        `mapstructure:"DIRECTIONS_API_KEY"`
	FallbackDirectionsURL string        `mapstructure:"FALLBACK_DIRECTIONS_URL"`
	GeocoderURL           string        `mapstructure:"GEOCODER_URL"`
	GeocoderAPIKey        string        `mapstructure:"GEOCODER_API_KEY"`
	ProviderTimeout       time.Duration `mapstructure:"PROVIDER_TIMEOUT"`

	// The geocoder focuses ranking around this point: "lon,lat".
	FocusPoint       string   `mapstructure:"FOCUS_POINT"`
	SupportedRegions []string `mapstructure:"SUPPORTED_REGIONS"`
	BoundaryCountry  string   `mapstructure:"BOUNDARY_COUNTRY"`

	// Business parameters, all distances in meters.
	MaxAlternatives         int     `mapstructure:"MAX_ALTERNATIVES"`
	MaxPreparedRoutes       int     `mapstructure:"MAX_PREPARED_ROUTES"`
	PointProximityThreshold float64 `mapstructure:"POINT_PROXIMITY_THRESHOLD"`
	SnapTolerance           float64 `mapstructure:"SNAP_TOLERANCE"`
	CandidateDistanceLimit  float64 `mapstructure:"CANDIDATE_DISTANCE_LIMIT"`
	PickupStartThreshold    float64 `mapstructure:"PICKUP_START_THRESHOLD"`
	PickupProximity         float64 `mapstructure:"PICKUP_PROXIMITY"`
	MinPickupRadius         float64 `mapstructure:"MIN_PICKUP_RADIUS"`
	MaxPickupRadius         float64 `mapstructure:"MAX_PICKUP_RADIUS"`
}

// LoadConfig reads config.yaml from the given path, then lets environment
// variables override individual keys.
func LoadConfig(path string) (Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("SERVER_PORT", "8000")
	viper.SetDefault("CLIENT_ORIGIN", "http://localhost:5173")
	viper.SetDefault("DIRECTIONS_URL", "http://localhost:8080/ors")
	viper.SetDefault("FALLBACK_DIRECTIONS_URL", "")
	viper.SetDefault("GEOCODER_URL", "http://localhost:4000/v1")
	viper.SetDefault("PROVIDER_TIMEOUT", "10s")
	viper.SetDefault("FOCUS_POINT", "37.622311,55.754801")
	viper.SetDefault("SUPPORTED_REGIONS", []string{"Moscow", "Moscow Oblast", "Irkutsk", "Mari El"})
	viper.SetDefault("BOUNDARY_COUNTRY", "RU")
	viper.SetDefault("MAX_ALTERNATIVES", 3)
	viper.SetDefault("MAX_PREPARED_ROUTES", 2)
	viper.SetDefault("POINT_PROXIMITY_THRESHOLD", 1000.0)
	viper.SetDefault("SNAP_TOLERANCE", 25.0)
	viper.SetDefault("CANDIDATE_DISTANCE_LIMIT", 30000.0)
	viper.SetDefault("PICKUP_START_THRESHOLD", 500.0)
	viper.SetDefault("PICKUP_PROXIMITY", 150.0)
	viper.SetDefault("MIN_PICKUP_RADIUS", 100.0)
	viper.SetDefault("MAX_PICKUP_RADIUS", 2000.0)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// A missing file is fine: defaults plus env cover everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}
