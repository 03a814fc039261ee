package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds the process-wide configuration. It is read once at startup
// and treated as immutable for the process lifetime.
type AppConfig struct {
	// WeatherAPIKey selects the commercial upstream when non-empty.
	WeatherAPIKey     string
	WeatherAPIBaseURL string

	// Free provider endpoints.
	OpenMeteoGeocodeURL  string
	OpenMeteoForecastURL string

	// IP-geolocation fallback endpoint (client-side last resort).
	IPGeoURL string

	// HTTPTimeout is the outer bound on the shared outbound HTTP client.
	HTTPTimeout time.Duration

	// RefreshInterval controls the background forecast refresh.
	RefreshInterval time.Duration

	Port string
}

// Load reads configuration from the environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{}

	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_KEY")
	cfg.WeatherAPIBaseURL = getenvDefault("WEATHERAPI_BASE_URL", "https://api.weatherapi.com/v1")
	cfg.OpenMeteoGeocodeURL = getenvDefault("OPENMETEO_GEOCODE_URL", "https://geocoding-api.open-meteo.com/v1")
	cfg.OpenMeteoForecastURL = getenvDefault("OPENMETEO_FORECAST_URL", "https://api.open-meteo.com/v1/forecast")
	cfg.IPGeoURL = getenvDefault("IPGEO_URL", "https://ipapi.co/json/")

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "30s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	refreshStr := getenvDefault("REFRESH_INTERVAL", "15m")
	refresh, err := time.ParseDuration(refreshStr)
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_INTERVAL: %w", err)
	}
	cfg.RefreshInterval = refresh

	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
