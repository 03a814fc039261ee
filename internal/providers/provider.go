// Package providers holds the server-side upstream adapters. One strategy is
// selected at process start from configuration and injected into the HTTP
// handlers; there is no per-request provider branching.
package providers

import (
	"context"

	"github.com/nimbusweather/nimbus/internal/weather"
)

// Provider abstracts an upstream weather/geocoding service. Both
// implementations emit the same canonical schema; nothing in the output
// reveals which upstream produced it.
type Provider interface {
	Name() string

	// Search resolves a free-text place name into candidate locations,
	// capped at 8.
	Search(ctx context.Context, query string) ([]weather.GeoLocation, error)

	// Reverse resolves coordinates into candidate locations, best first.
	Reverse(ctx context.Context, lat, lon float64) ([]weather.GeoLocation, error)

	// Forecast returns a schema-validated snapshot for the coordinates.
	Forecast(ctx context.Context, lat, lon float64) (*weather.WeatherData, error)
}

// maxSearchResults is the provider-side cap on search candidates.
const maxSearchResults = 8
