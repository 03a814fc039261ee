package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/nimbusweather/nimbus/internal/api/http"
	"github.com/nimbusweather/nimbus/internal/config"
	"github.com/nimbusweather/nimbus/internal/providers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound upstream calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Upstream strategy, chosen once by credential presence.
	provider := providers.Select(httpClient, providers.Options{
		WeatherAPIKey:        cfg.WeatherAPIKey,
		WeatherAPIBaseURL:    cfg.WeatherAPIBaseURL,
		OpenMeteoGeocodeURL:  cfg.OpenMeteoGeocodeURL,
		OpenMeteoForecastURL: cfg.OpenMeteoForecastURL,
	})
	log.Printf("nimbus: serving with upstream %s", provider.Name())

	app := httpapi.NewApp(provider)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
