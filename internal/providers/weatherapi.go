package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/nimbusweather/nimbus/internal/common"
	"github.com/nimbusweather/nimbus/internal/fetch"
	"github.com/nimbusweather/nimbus/internal/weather"
)

// forecastDays is the outlook length requested from WeatherAPI.
const forecastDays = 7

// maxHourlyEntries caps the flattened hourly series; per-day hour buckets are
// concatenated until the cap is reached.
const maxHourlyEntries = 36

// WeatherAPI is the commercial upstream, selected when a credential is
// configured. Its free-text condition vocabulary is translated into WMO codes
// and its units (already °C / km/h / mm) pass through the canonical contract.
type WeatherAPI struct {
	name    string
	apiKey  string
	baseURL string
	client  *fetch.Client
	limiter *rate.Limiter
}

// NewWeatherAPI builds the adapter. baseURL may be empty to use the public
// endpoint. Calls are rate limited to protect the key's quota.
func NewWeatherAPI(httpClient *http.Client, apiKey, baseURL string) *WeatherAPI {
	if baseURL == "" {
		baseURL = "https://api.weatherapi.com/v1"
	}
	return &WeatherAPI{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  fetch.NewClient(httpClient, "", fetch.WeatherPolicy()),
		limiter: rate.NewLimiter(rate.Limit(10), 20),
	}
}

func (p *WeatherAPI) Name() string {
	return p.name
}

// MapConditionTextToWMO derives a WMO-style weather code from WeatherAPI's
// free-text condition strings by keyword matching. Checks run in order; the
// first match wins, and unrecognized text maps to overcast (3).
func MapConditionTextToWMO(text string) int {
	switch {
	case common.HasAny(text, "clear", "sunny"):
		return 0
	case common.HasAny(text, "partly", "cloud"):
		return 2
	case common.HasAny(text, "fog", "mist", "haze"):
		return 45
	case common.HasAny(text, "drizzle"):
		return 51
	case common.HasAny(text, "rain", "shower"):
		return 61
	case common.HasAny(text, "snow", "sleet", "blizzard", "flurr"):
		return 71
	case common.HasAny(text, "thunder"):
		return 95
	default:
		return 3
	}
}

type waSearchResult struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
	Region  string  `json:"region"`
	TzID    string  `json:"tz_id"`
}

func (p *WeatherAPI) search(ctx context.Context, q string) ([]weather.GeoLocation, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	values := url.Values{}
	values.Set("key", p.apiKey)
	values.Set("q", q)

	var results []waSearchResult
	target := fmt.Sprintf("%s/search.json?%s", p.baseURL, values.Encode())
	if err := p.client.GetJSON(ctx, target, &results); err != nil {
		return nil, fmt.Errorf("weatherapi search: %w", err)
	}

	locations := make([]weather.GeoLocation, 0, len(results))
	for _, it := range results {
		var admin1 *string
		if it.Region != "" {
			region := it.Region
			admin1 = &region
		}
		loc := weather.GeoLocation{
			Name:      it.Name,
			Latitude:  it.Lat,
			Longitude: it.Lon,
			Country:   it.Country,
			Admin1:    admin1,
			Timezone:  it.TzID,
		}
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

func (p *WeatherAPI) Search(ctx context.Context, query string) ([]weather.GeoLocation, error) {
	return p.search(ctx, query)
}

// Reverse goes through the same search endpoint; WeatherAPI accepts a
// "lat,lon" query and returns the nearest places.
func (p *WeatherAPI) Reverse(ctx context.Context, lat, lon float64) ([]weather.GeoLocation, error) {
	return p.search(ctx, fmt.Sprintf("%s,%s", formatCoord(lat), formatCoord(lon)))
}

type waCondition struct {
	Text string `json:"text"`
}

type waForecastResponse struct {
	Location struct {
		TzID string `json:"tz_id"`
	} `json:"location"`
	Current struct {
		LastUpdated string      `json:"last_updated"`
		TempC       float64     `json:"temp_c"`
		Humidity    float64     `json:"humidity"`
		FeelslikeC  *float64    `json:"feelslike_c"`
		IsDay       *int        `json:"is_day"`
		PrecipMm    float64     `json:"precip_mm"`
		WindKph     float64     `json:"wind_kph"`
		WindDegree  float64     `json:"wind_degree"`
		Condition   waCondition `json:"condition"`
	} `json:"current"`
	Forecast struct {
		ForecastDay []struct {
			Date string `json:"date"`
			Day  struct {
				MaxTempC          float64     `json:"maxtemp_c"`
				MinTempC          float64     `json:"mintemp_c"`
				MaxWindKph        float64     `json:"maxwind_kph"`
				DailyChanceOfRain float64     `json:"daily_chance_of_rain"`
				DailyChanceOfSnow float64     `json:"daily_chance_of_snow"`
				Condition         waCondition `json:"condition"`
			} `json:"day"`
			Astro struct {
				Sunrise string `json:"sunrise"`
				Sunset  string `json:"sunset"`
			} `json:"astro"`
			Hour []struct {
				Time         string      `json:"time"`
				TempC        float64     `json:"temp_c"`
				FeelslikeC   float64     `json:"feelslike_c"`
				Humidity     float64     `json:"humidity"`
				WindKph      float64     `json:"wind_kph"`
				ChanceOfRain float64     `json:"chance_of_rain"`
				ChanceOfSnow float64     `json:"chance_of_snow"`
				Condition    waCondition `json:"condition"`
			} `json:"hour"`
		} `json:"forecastday"`
	} `json:"forecast"`
}

// Forecast calls the combined current + multi-day endpoint and flattens it
// into the canonical schema.
func (p *WeatherAPI) Forecast(ctx context.Context, lat, lon float64) (*weather.WeatherData, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	values := url.Values{}
	values.Set("key", p.apiKey)
	values.Set("q", fmt.Sprintf("%s,%s", formatCoord(lat), formatCoord(lon)))
	values.Set("days", fmt.Sprintf("%d", forecastDays))
	values.Set("aqi", "no")
	values.Set("alerts", "no")

	var payload waForecastResponse
	target := fmt.Sprintf("%s/forecast.json?%s", p.baseURL, values.Encode())
	if err := p.client.GetJSON(ctx, target, &payload); err != nil {
		return nil, fmt.Errorf("weatherapi forecast: %w", err)
	}

	tz := payload.Location.TzID
	if tz == "" {
		tz = "UTC"
	}

	hourly := weather.HourlySeries{
		Time:                     []string{},
		Temperature2m:            []float64{},
		ApparentTemperature:      []float64{},
		WeatherCode:              []int{},
		PrecipitationProbability: []float64{},
		RelativeHumidity2m:       []float64{},
		WindSpeed10m:             []float64{},
	}
	for _, d := range payload.Forecast.ForecastDay {
		for _, h := range d.Hour {
			if len(hourly.Time) >= maxHourlyEntries {
				break
			}
			hourly.Time = append(hourly.Time, h.Time)
			hourly.Temperature2m = append(hourly.Temperature2m, h.TempC)
			hourly.ApparentTemperature = append(hourly.ApparentTemperature, h.FeelslikeC)
			hourly.WeatherCode = append(hourly.WeatherCode, MapConditionTextToWMO(h.Condition.Text))
			hourly.PrecipitationProbability = append(hourly.PrecipitationProbability, firstNonZero(h.ChanceOfRain, h.ChanceOfSnow))
			hourly.RelativeHumidity2m = append(hourly.RelativeHumidity2m, h.Humidity)
			hourly.WindSpeed10m = append(hourly.WindSpeed10m, h.WindKph)
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
	for _, d := range payload.Forecast.ForecastDay {
		daily.Time = append(daily.Time, d.Date)
		daily.WeatherCode = append(daily.WeatherCode, MapConditionTextToWMO(d.Day.Condition.Text))
		daily.Temperature2mMax = append(daily.Temperature2mMax, d.Day.MaxTempC)
		daily.Temperature2mMin = append(daily.Temperature2mMin, d.Day.MinTempC)
		daily.Sunrise = append(daily.Sunrise, orString(d.Astro.Sunrise, "06:00 AM"))
		daily.Sunset = append(daily.Sunset, orString(d.Astro.Sunset, "06:00 PM"))
		daily.PrecipitationProbabilityMax = append(daily.PrecipitationProbabilityMax, firstNonZero(d.Day.DailyChanceOfRain, d.Day.DailyChanceOfSnow))
		daily.WindSpeed10mMax = append(daily.WindSpeed10mMax, d.Day.MaxWindKph)
	}

	cur := payload.Current
	apparent := cur.TempC
	if cur.FeelslikeC != nil {
		apparent = *cur.FeelslikeC
	}
	humidity := cur.Humidity
	isDay := 1
	if cur.IsDay != nil {
		isDay = *cur.IsDay
	}
	precip := cur.PrecipMm
	windSpeed := cur.WindKph
	windDir := cur.WindDegree

	w := &weather.WeatherData{
		Latitude:  lat,
		Longitude: lon,
		Timezone:  tz,
		Current: weather.CurrentConditions{
			Time:                orString(cur.LastUpdated, time.Now().UTC().Format(time.RFC3339)),
			Temperature2m:       cur.TempC,
			RelativeHumidity2m:  &humidity,
			ApparentTemperature: &apparent,
			IsDay:               &isDay,
			Precipitation:       &precip,
			WeatherCode:         MapConditionTextToWMO(cur.Condition.Text),
			WindSpeed10m:        &windSpeed,
			WindDirection10m:    &windDir,
		},
		Hourly: hourly,
		Daily:  daily,
	}

	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// firstNonZero implements the chance-of-rain-preferred rule: the rain value
// wins unless it is zero, then the snow value is used.
func firstNonZero(rain, snow float64) float64 {
	if rain != 0 {
		return rain
	}
	return snow
}

func orString(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
