package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nimbusweather/nimbus/internal/fetch"
	"github.com/nimbusweather/nimbus/internal/weather"
)

// OpenMeteo is the free, keyless upstream. It serves as the default strategy
// when no commercial credential is configured and as the direct fallback tier
// on the client side.
type OpenMeteo struct {
	name        string
	geocodeBase string
	forecastURL string
	client      *fetch.Client
}

// NewOpenMeteo builds the adapter. geocodeBase and forecastURL may be empty
// to use the public endpoints.
func NewOpenMeteo(httpClient *http.Client, geocodeBase, forecastURL string) *OpenMeteo {
	if geocodeBase == "" {
		geocodeBase = "https://geocoding-api.open-meteo.com/v1"
	}
	if forecastURL == "" {
		forecastURL = "https://api.open-meteo.com/v1/forecast"
	}
	return &OpenMeteo{
		name:        "openmeteo",
		geocodeBase: strings.TrimRight(geocodeBase, "/"),
		forecastURL: forecastURL,
		client:      fetch.NewClient(httpClient, "", fetch.WeatherPolicy()),
	}
}

func (p *OpenMeteo) Name() string {
	return p.name
}

// geocodeResult is the shape shared by the search and reverse endpoints.
type geocodeResult struct {
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Country     string  `json:"country"`
	CountryCode string  `json:"country_code"`
	Admin1      string  `json:"admin1"`
	Timezone    string  `json:"timezone"`
}

type geocodeResponse struct {
	Results []geocodeResult `json:"results"`
}

// NormalizeGeocodeResult converts one Open-Meteo geocoding entry into the
// canonical GeoLocation shape. The display name joins place and region when
// a region is available.
func NormalizeGeocodeResult(r geocodeResult) weather.GeoLocation {
	name := r.Name
	if r.Admin1 != "" {
		name = r.Name + ", " + r.Admin1
	}
	if name == "" {
		name = "Location"
	}

	country := r.Country
	if country == "" {
		country = r.CountryCode
	}

	var admin1 *string
	if r.Admin1 != "" {
		a := r.Admin1
		admin1 = &a
	}

	return weather.GeoLocation{
		Name:      name,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Country:   country,
		Admin1:    admin1,
		Timezone:  r.Timezone,
	}
}

func (p *OpenMeteo) geocode(ctx context.Context, endpoint string, values url.Values) ([]weather.GeoLocation, error) {
	var payload geocodeResponse
	target := fmt.Sprintf("%s/%s?%s", p.geocodeBase, endpoint, values.Encode())
	if err := p.client.GetJSON(ctx, target, &payload); err != nil {
		return nil, fmt.Errorf("openmeteo %s: %w", endpoint, err)
	}

	locations := make([]weather.GeoLocation, 0, len(payload.Results))
	for _, r := range payload.Results {
		loc := NormalizeGeocodeResult(r)
		if loc.Validate() != nil {
			continue
		}
		locations = append(locations, loc)
		if len(locations) >= maxSearchResults {
			break
		}
	}
	return locations, nil
}

func (p *OpenMeteo) Search(ctx context.Context, query string) ([]weather.GeoLocation, error) {
	values := url.Values{}
	values.Set("name", query)
	values.Set("count", fmt.Sprintf("%d", maxSearchResults))
	values.Set("language", "en")
	values.Set("format", "json")
	return p.geocode(ctx, "search", values)
}

func (p *OpenMeteo) Reverse(ctx context.Context, lat, lon float64) ([]weather.GeoLocation, error) {
	values := url.Values{}
	values.Set("latitude", formatCoord(lat))
	values.Set("longitude", formatCoord(lon))
	values.Set("language", "en")
	values.Set("format", "json")
	return p.geocode(ctx, "reverse", values)
}

var (
	hourlyFields = []string{
		"temperature_2m",
		"apparent_temperature",
		"weather_code",
		"precipitation_probability",
		"relative_humidity_2m",
		"wind_speed_10m",
	}
	dailyFields = []string{
		"weather_code",
		"temperature_2m_max",
		"temperature_2m_min",
		"sunrise",
		"sunset",
		"precipitation_probability_max",
		"wind_speed_10m_max",
	}
	currentFields = []string{
		"temperature_2m",
		"relative_humidity_2m",
		"apparent_temperature",
		"is_day",
		"precipitation",
		"weather_code",
		"wind_speed_10m",
		"wind_direction_10m",
	}
)

// omForecast mirrors the Open-Meteo response. The hourly and daily blocks
// already use the canonical field layout when requested by these names.
type omForecast struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Timezone  string   `json:"timezone"`
	Current   *struct {
		Time               *string  `json:"time"`
		Temperature2m      *float64 `json:"temperature_2m"`
		RelativeHumidity2m *float64 `json:"relative_humidity_2m"`
		Apparent           *float64 `json:"apparent_temperature"`
		IsDay              *int     `json:"is_day"`
		Precipitation      *float64 `json:"precipitation"`
		WeatherCode        *int     `json:"weather_code"`
		WindSpeed10m       *float64 `json:"wind_speed_10m"`
		WindDirection10m   *float64 `json:"wind_direction_10m"`
	} `json:"current"`
	Hourly *weather.HourlySeries `json:"hourly"`
	Daily  *weather.DailySeries  `json:"daily"`
}

// Forecast proxies to Open-Meteo, passing through its native field layout
// with defaulting for absent fields.
func (p *OpenMeteo) Forecast(ctx context.Context, lat, lon float64) (*weather.WeatherData, error) {
	values := url.Values{}
	values.Set("latitude", formatCoord(lat))
	values.Set("longitude", formatCoord(lon))
	values.Set("hourly", strings.Join(hourlyFields, ","))
	values.Set("daily", strings.Join(dailyFields, ","))
	values.Set("current", strings.Join(currentFields, ","))
	values.Set("timezone", "auto")

	var om omForecast
	target := fmt.Sprintf("%s?%s", p.forecastURL, values.Encode())
	if err := p.client.GetJSON(ctx, target, &om); err != nil {
		return nil, fmt.Errorf("openmeteo forecast: %w", err)
	}

	w := &weather.WeatherData{
		Latitude:  orDefault(om.Latitude, lat),
		Longitude: orDefault(om.Longitude, lon),
		Timezone:  om.Timezone,
	}
	if w.Timezone == "" {
		w.Timezone = "UTC"
	}

	cur := weather.CurrentConditions{
		Time:        time.Now().UTC().Format(time.RFC3339),
		WeatherCode: 3,
	}
	if om.Current != nil {
		c := om.Current
		if c.Time != nil {
			cur.Time = *c.Time
		}
		cur.Temperature2m = orDefault(c.Temperature2m, 0)
		cur.RelativeHumidity2m = orZero(c.RelativeHumidity2m)
		if c.Apparent != nil {
			cur.ApparentTemperature = c.Apparent
		} else {
			apparent := cur.Temperature2m
			cur.ApparentTemperature = &apparent
		}
		if c.IsDay != nil {
			cur.IsDay = c.IsDay
		} else {
			day := 1
			cur.IsDay = &day
		}
		cur.Precipitation = orZero(c.Precipitation)
		if c.WeatherCode != nil {
			cur.WeatherCode = *c.WeatherCode
		}
		cur.WindSpeed10m = orZero(c.WindSpeed10m)
		cur.WindDirection10m = orZero(c.WindDirection10m)
	}
	w.Current = cur

	if om.Hourly != nil {
		w.Hourly = *om.Hourly
	}
	if om.Daily != nil {
		w.Daily = *om.Daily
	}
	fillRequiredSeries(w)

	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// fillRequiredSeries substitutes empty arrays for absent required series so
// the canonical shape always carries its index axes.
func fillRequiredSeries(w *weather.WeatherData) {
	if w.Hourly.Time == nil {
		w.Hourly.Time = []string{}
	}
	if w.Hourly.Temperature2m == nil {
		w.Hourly.Temperature2m = []float64{}
	}
	if w.Hourly.WeatherCode == nil {
		w.Hourly.WeatherCode = []int{}
	}
	if w.Daily.Time == nil {
		w.Daily.Time = []string{}
	}
	if w.Daily.WeatherCode == nil {
		w.Daily.WeatherCode = []int{}
	}
	if w.Daily.Temperature2mMax == nil {
		w.Daily.Temperature2mMax = []float64{}
	}
	if w.Daily.Temperature2mMin == nil {
		w.Daily.Temperature2mMin = []float64{}
	}
	if w.Daily.Sunrise == nil {
		w.Daily.Sunrise = []string{}
	}
	if w.Daily.Sunset == nil {
		w.Daily.Sunset = []string{}
	}
}

func formatCoord(v float64) string {
	return fmt.Sprintf("%g", v)
}

func orDefault(v *float64, def float64) float64 {
	if v != nil {
		return *v
	}
	return def
}

// orZero normalizes a missing optional reading to an explicit zero.
func orZero(v *float64) *float64 {
	if v != nil {
		return v
	}
	zero := 0.0
	return &zero
}
