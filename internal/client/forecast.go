// Package client holds the interactive-side core: forecast fetching with a
// direct-provider fallback, debounced search-as-you-type, and the process-wide
// location selection bus.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nimbusweather/nimbus/internal/fetch"
	"github.com/nimbusweather/nimbus/internal/weather"
)

// ForecastClient fetches canonical forecast snapshots: same-origin proxy
// first, direct Open-Meteo as fallback. Every returned snapshot has passed
// schema validation.
type ForecastClient struct {
	proxy     *fetch.Client
	http      *http.Client
	directURL string
}

// NewForecastClient builds the client. origin is the proxy base URL;
// directURL may be empty to use the public Open-Meteo forecast endpoint.
func NewForecastClient(httpClient *http.Client, origin, directURL string) *ForecastClient {
	if directURL == "" {
		directURL = "https://api.open-meteo.com/v1/forecast"
	}
	return &ForecastClient{
		proxy:     fetch.NewClient(httpClient, origin, fetch.WeatherPolicy()),
		http:      httpClient,
		directURL: directURL,
	}
}

// Fetch returns a schema-validated snapshot for the coordinates. The proxy
// path is tried first; on its failure the direct provider is remapped into
// the canonical schema. When both fail, the primary path's error is
// surfaced and the fallback's own error is swallowed in its favor.
func (f *ForecastClient) Fetch(ctx context.Context, lat, lon float64) (*weather.WeatherData, error) {
	w, primaryErr := f.fetchProxy(ctx, lat, lon)
	if primaryErr == nil {
		return w, nil
	}

	w, fallbackErr := f.fetchDirect(ctx, lat, lon)
	if fallbackErr != nil {
		return nil, primaryErr
	}
	return w, nil
}

func (f *ForecastClient) fetchProxy(ctx context.Context, lat, lon float64) (*weather.WeatherData, error) {
	target := fmt.Sprintf("/api/weather/forecast?lat=%s&lon=%s",
		url.QueryEscape(formatCoord(lat)), url.QueryEscape(formatCoord(lon)))
	body, err := f.proxy.Get(ctx, target)
	if err != nil {
		return nil, err
	}
	return weather.ParseWeatherData(body)
}

// omLegacyForecast mirrors the Open-Meteo response under its legacy hourly
// and daily field names, which get remapped onto the canonical layout.
type omLegacyForecast struct {
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	Timezone       string   `json:"timezone"`
	CurrentWeather *struct {
		Time          string   `json:"time"`
		Temperature   *float64 `json:"temperature"`
		WindSpeed     *float64 `json:"windspeed"`
		WindDirection *float64 `json:"winddirection"`
		IsDay         *int     `json:"is_day"`
		WeatherCode   *int     `json:"weathercode"`
	} `json:"current_weather"`
	Hourly *struct {
		Time                     []string  `json:"time"`
		Temperature2m            []float64 `json:"temperature_2m"`
		ApparentTemperature      []float64 `json:"apparent_temperature"`
		WeatherCode              []int     `json:"weathercode"`
		PrecipitationProbability []float64 `json:"precipitation_probability"`
		RelativeHumidity2m       []float64 `json:"relativehumidity_2m"`
		WindSpeed10m             []float64 `json:"wind_speed_10m"`
	} `json:"hourly"`
	Daily *struct {
		Time                        []string  `json:"time"`
		WeatherCode                 []int     `json:"weathercode"`
		Temperature2mMax            []float64 `json:"temperature_2m_max"`
		Temperature2mMin            []float64 `json:"temperature_2m_min"`
		Sunrise                     []string  `json:"sunrise"`
		Sunset                      []string  `json:"sunset"`
		PrecipitationProbabilityMax []float64 `json:"precipitation_probability_max"`
		WindSpeed10mMax             []float64 `json:"wind_speed_10m_max"`
	} `json:"daily"`
}

func (f *ForecastClient) fetchDirect(ctx context.Context, lat, lon float64) (*weather.WeatherData, error) {
	values := url.Values{}
	values.Set("latitude", formatCoord(lat))
	values.Set("longitude", formatCoord(lon))
	values.Set("hourly", strings.Join([]string{
		"temperature_2m",
		"apparent_temperature",
		"weathercode",
		"precipitation_probability",
		"relativehumidity_2m",
		"wind_speed_10m",
	}, ","))
	values.Set("daily", strings.Join([]string{
		"weathercode",
		"temperature_2m_max",
		"temperature_2m_min",
		"sunrise",
		"sunset",
		"precipitation_probability_max",
		"wind_speed_10m_max",
	}, ","))
	values.Set("current_weather", "true")
	values.Set("timezone", "auto")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.directURL+"?"+values.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("forecast fallback failed: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var om omLegacyForecast
	if err := json.Unmarshal(body, &om); err != nil {
		return nil, err
	}
	return remapLegacyForecast(om, lat, lon)
}

// remapLegacyForecast translates the provider's naming differences onto the
// canonical schema, defaults absent values, and re-validates the remapped
// payload before returning it.
func remapLegacyForecast(om omLegacyForecast, lat, lon float64) (*weather.WeatherData, error) {
	hourly := weather.HourlySeries{
		Time:                     []string{},
		Temperature2m:            []float64{},
		ApparentTemperature:      []float64{},
		WeatherCode:              []int{},
		PrecipitationProbability: []float64{},
		RelativeHumidity2m:       []float64{},
		WindSpeed10m:             []float64{},
	}
	if om.Hourly != nil {
		h := om.Hourly
		if h.Time != nil {
			hourly.Time = h.Time
		}
		if h.Temperature2m != nil {
			hourly.Temperature2m = h.Temperature2m
		}
		if h.ApparentTemperature != nil {
			hourly.ApparentTemperature = h.ApparentTemperature
		}
		if h.WeatherCode != nil {
			hourly.WeatherCode = h.WeatherCode
		}
		if h.PrecipitationProbability != nil {
			hourly.PrecipitationProbability = h.PrecipitationProbability
		}
		if h.RelativeHumidity2m != nil {
			hourly.RelativeHumidity2m = h.RelativeHumidity2m
		}
		if h.WindSpeed10m != nil {
			hourly.WindSpeed10m = h.WindSpeed10m
		}
	}

	daily := weather.DailySeries{
		Time:                        []string{},
		WeatherCode:                 []int{},
		Temperature2mMax:            []float64{},
		Temperature2mMin:            []float64{},
		Sunrise:                     []string{},
		Sunset:                      []string{},
		PrecipitationProbabilityMax: []float64{},
		WindSpeed10mMax:             []float64{},
	}
	if om.Daily != nil {
		d := om.Daily
		if d.Time != nil {
			daily.Time = d.Time
		}
		if d.WeatherCode != nil {
			daily.WeatherCode = d.WeatherCode
		}
		if d.Temperature2mMax != nil {
			daily.Temperature2mMax = d.Temperature2mMax
		}
		if d.Temperature2mMin != nil {
			daily.Temperature2mMin = d.Temperature2mMin
		}
		if d.Sunrise != nil {
			daily.Sunrise = d.Sunrise
		}
		if d.Sunset != nil {
			daily.Sunset = d.Sunset
		}
		if d.PrecipitationProbabilityMax != nil {
			daily.PrecipitationProbabilityMax = d.PrecipitationProbabilityMax
		}
		if d.WindSpeed10mMax != nil {
			daily.WindSpeed10mMax = d.WindSpeed10mMax
		}
	}

	cur := weather.CurrentConditions{
		Time:        time.Now().UTC().Format(time.RFC3339),
		WeatherCode: 3,
	}
	cw := om.CurrentWeather
	if cw != nil && cw.Time != "" {
		cur.Time = cw.Time
	}

	// Missing current temperature falls back to the first hourly sample.
	switch {
	case cw != nil && cw.Temperature != nil:
		cur.Temperature2m = *cw.Temperature
	case len(hourly.Temperature2m) > 0:
		cur.Temperature2m = hourly.Temperature2m[0]
	}

	switch {
	case cw != nil && cw.WeatherCode != nil:
		cur.WeatherCode = *cw.WeatherCode
	case len(hourly.WeatherCode) > 0:
		cur.WeatherCode = hourly.WeatherCode[0]
	}

	if len(hourly.RelativeHumidity2m) > 0 {
		rh := hourly.RelativeHumidity2m[0]
		cur.RelativeHumidity2m = &rh
	}
	if len(hourly.ApparentTemperature) > 0 {
		at := hourly.ApparentTemperature[0]
		cur.ApparentTemperature = &at
	}
	if cw != nil && cw.IsDay != nil {
		cur.IsDay = cw.IsDay
	}

	// The legacy layout carries no current precipitation reading.
	precip := 0.0
	cur.Precipitation = &precip

	windSpeed := 0.0
	if cw != nil && cw.WindSpeed != nil {
		windSpeed = *cw.WindSpeed
	} else if len(hourly.WindSpeed10m) > 0 {
		windSpeed = hourly.WindSpeed10m[0]
	}
	cur.WindSpeed10m = &windSpeed

	windDir := 0.0
	if cw != nil && cw.WindDirection != nil {
		windDir = *cw.WindDirection
	}
	cur.WindDirection10m = &windDir

	tz := om.Timezone
	if tz == "" {
		tz = "UTC"
	}

	w := &weather.WeatherData{
		Latitude:  lat,
		Longitude: lon,
		Timezone:  tz,
		Current:   cur,
		Hourly:    hourly,
		Daily:     daily,
	}
	if om.Latitude != nil {
		w.Latitude = *om.Latitude
	}
	if om.Longitude != nil {
		w.Longitude = *om.Longitude
	}

	// Round-trip through the canonical parser so the remapped payload faces
	// the exact same validation as a proxy response.
	encoded, err := json.Marshal(w)
	if err != nil {
		return nil, err
	}
	return weather.ParseWeatherData(encoded)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
