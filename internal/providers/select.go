package providers

import (
	"log"
	"net/http"
)

// Options carries the upstream endpoints and the optional commercial
// credential. Values are read once at process start and treated as immutable.
type Options struct {
	WeatherAPIKey        string
	WeatherAPIBaseURL    string
	OpenMeteoGeocodeURL  string
	OpenMeteoForecastURL string
}

// Select constructs the upstream strategy once from configuration: the
// commercial provider when a credential is present, the free provider
// otherwise. Handlers receive the result by injection and never branch on
// credentials themselves.
func Select(httpClient *http.Client, opts Options) Provider {
	if opts.WeatherAPIKey != "" {
		return NewWeatherAPI(httpClient, opts.WeatherAPIKey, opts.WeatherAPIBaseURL)
	}
	log.Println("providers: no WeatherAPI credential; using Open-Meteo for search and forecast")
	return NewOpenMeteo(httpClient, opts.OpenMeteoGeocodeURL, opts.OpenMeteoForecastURL)
}
