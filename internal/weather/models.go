package weather

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// GeoLocation is a resolved place. Provider adapters always emit coordinates
// within valid ranges; raw device coordinates supplied by a caller pass
// through unvalidated.
type GeoLocation struct {
	Name      string  `json:"name" validate:"required"`
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
	Country   string  `json:"country,omitempty"`
	Admin1    *string `json:"admin1"`
	Timezone  string  `json:"timezone,omitempty"`
}

// Validate enforces the adapter-side invariants: a display name and
// coordinates within [-90,90] / [-180,180].
func (l GeoLocation) Validate() error {
	return validate.Struct(l)
}

// coordEpsilon bounds how far apart two readings can be and still refer to
// the same place. Refinements echo their input coordinates, so this only
// needs to absorb float formatting noise.
const coordEpsilon = 1e-6

// SameIdentity reports whether two locations refer to the same place.
func SameIdentity(a, b GeoLocation) bool {
	return math.Abs(a.Latitude-b.Latitude) < coordEpsilon &&
		math.Abs(a.Longitude-b.Longitude) < coordEpsilon
}

// MergeRefinement merges a late-arriving refinement over a provisional
// location with the same identity. Coordinates are retained from prev;
// label, country, admin1 and timezone are upgraded when next provides them.
func MergeRefinement(prev, next GeoLocation) GeoLocation {
	merged := prev
	if next.Name != "" {
		merged.Name = next.Name
	}
	if next.Country != "" {
		merged.Country = next.Country
	}
	if next.Admin1 != nil {
		merged.Admin1 = next.Admin1
	}
	if next.Timezone != "" {
		merged.Timezone = next.Timezone
	}
	return merged
}

// WeatherData is the canonical forecast snapshot all providers are
// normalized into. It is constructed once per successful fetch, never
// patched, and replaced wholesale on the next fetch.
type WeatherData struct {
	Latitude  float64           `json:"latitude"`
	Longitude float64           `json:"longitude"`
	Timezone  string            `json:"timezone"`
	Current   CurrentConditions `json:"current"`
	Hourly    HourlySeries      `json:"hourly"`
	Daily     DailySeries       `json:"daily"`
}

// CurrentConditions is a single observation. Temperatures are °C, wind km/h,
// precipitation mm on every path.
type CurrentConditions struct {
	Time                string   `json:"time"`
	Temperature2m       float64  `json:"temperature_2m"`
	RelativeHumidity2m  *float64 `json:"relative_humidity_2m,omitempty"`
	ApparentTemperature *float64 `json:"apparent_temperature,omitempty"`
	IsDay               *int     `json:"is_day,omitempty"`
	Precipitation       *float64 `json:"precipitation,omitempty"`
	WeatherCode         int      `json:"weather_code"`
	WindSpeed10m        *float64 `json:"wind_speed_10m,omitempty"`
	WindDirection10m    *float64 `json:"wind_direction_10m,omitempty"`
}

// HourlySeries holds parallel arrays with Time as the index axis.
type HourlySeries struct {
	Time                     []string  `json:"time"`
	Temperature2m            []float64 `json:"temperature_2m"`
	ApparentTemperature      []float64 `json:"apparent_temperature,omitempty"`
	WeatherCode              []int     `json:"weather_code"`
	PrecipitationProbability []float64 `json:"precipitation_probability,omitempty"`
	RelativeHumidity2m       []float64 `json:"relative_humidity_2m,omitempty"`
	WindSpeed10m             []float64 `json:"wind_speed_10m,omitempty"`
}

// DailySeries holds parallel arrays, one entry per day. Sunrise/Sunset are
// either ISO timestamps or provider-local "hh:mm AM/PM" strings.
type DailySeries struct {
	Time                        []string  `json:"time"`
	WeatherCode                 []int     `json:"weather_code"`
	Temperature2mMax            []float64 `json:"temperature_2m_max"`
	Temperature2mMin            []float64 `json:"temperature_2m_min"`
	Sunrise                     []string  `json:"sunrise"`
	Sunset                      []string  `json:"sunset"`
	PrecipitationProbabilityMax []float64 `json:"precipitation_probability_max,omitempty"`
	WindSpeed10mMax             []float64 `json:"wind_speed_10m_max,omitempty"`
}

// ValidationError names a canonical-schema field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("weather: invalid payload: %s: %s", e.Field, e.Reason)
}

func fieldErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// rawWeather mirrors WeatherData with pointers on required fields so that
// absence can be told apart from a zero value during decoding.
type rawWeather struct {
	Latitude  *float64    `json:"latitude"`
	Longitude *float64    `json:"longitude"`
	Timezone  *string     `json:"timezone"`
	Current   *rawCurrent `json:"current"`
	Hourly    *rawHourly  `json:"hourly"`
	Daily     *rawDaily   `json:"daily"`
}

type rawCurrent struct {
	Time                *string  `json:"time"`
	Temperature2m       *float64 `json:"temperature_2m"`
	RelativeHumidity2m  *float64 `json:"relative_humidity_2m"`
	ApparentTemperature *float64 `json:"apparent_temperature"`
	IsDay               *int     `json:"is_day"`
	Precipitation       *float64 `json:"precipitation"`
	WeatherCode         *int     `json:"weather_code"`
	WindSpeed10m        *float64 `json:"wind_speed_10m"`
	WindDirection10m    *float64 `json:"wind_direction_10m"`
}

type rawHourly struct {
	Time                     []string  `json:"time"`
	Temperature2m            []float64 `json:"temperature_2m"`
	ApparentTemperature      []float64 `json:"apparent_temperature"`
	WeatherCode              []int     `json:"weather_code"`
	PrecipitationProbability []float64 `json:"precipitation_probability"`
	RelativeHumidity2m       []float64 `json:"relative_humidity_2m"`
	WindSpeed10m             []float64 `json:"wind_speed_10m"`
}

type rawDaily struct {
	Time                        []string  `json:"time"`
	WeatherCode                 []int     `json:"weather_code"`
	Temperature2mMax            []float64 `json:"temperature_2m_max"`
	Temperature2mMin            []float64 `json:"temperature_2m_min"`
	Sunrise                     []string  `json:"sunrise"`
	Sunset                      []string  `json:"sunset"`
	PrecipitationProbabilityMax []float64 `json:"precipitation_probability_max"`
	WindSpeed10mMax             []float64 `json:"wind_speed_10m_max"`
}

// ParseWeatherData decodes and validates a canonical forecast payload.
// Every missing required field produces a named ValidationError; a type
// mismatch fails the decode. Malformed payloads are rejected, never passed
// through to consumers.
func ParseWeatherData(data []byte) (*WeatherData, error) {
	var raw rawWeather
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("weather: decode payload: %w", err)
	}

	var errs []error
	req := func(ok bool, field string) {
		if !ok {
			errs = append(errs, fieldErr(field, "required"))
		}
	}

	req(raw.Latitude != nil, "latitude")
	req(raw.Longitude != nil, "longitude")
	req(raw.Timezone != nil, "timezone")
	req(raw.Current != nil, "current")
	req(raw.Hourly != nil, "hourly")
	req(raw.Daily != nil, "daily")
	if raw.Current != nil {
		req(raw.Current.Time != nil, "current.time")
		req(raw.Current.Temperature2m != nil, "current.temperature_2m")
		req(raw.Current.WeatherCode != nil, "current.weather_code")
	}
	if raw.Hourly != nil {
		req(raw.Hourly.Time != nil, "hourly.time")
		req(raw.Hourly.Temperature2m != nil, "hourly.temperature_2m")
		req(raw.Hourly.WeatherCode != nil, "hourly.weather_code")
	}
	if raw.Daily != nil {
		d := raw.Daily
		req(d.Time != nil, "daily.time")
		req(d.WeatherCode != nil, "daily.weather_code")
		req(d.Temperature2mMax != nil, "daily.temperature_2m_max")
		req(d.Temperature2mMin != nil, "daily.temperature_2m_min")
		req(d.Sunrise != nil, "daily.sunrise")
		req(d.Sunset != nil, "daily.sunset")
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	w := &WeatherData{
		Latitude:  *raw.Latitude,
		Longitude: *raw.Longitude,
		Timezone:  *raw.Timezone,
		Current: CurrentConditions{
			Time:                *raw.Current.Time,
			Temperature2m:       *raw.Current.Temperature2m,
			RelativeHumidity2m:  raw.Current.RelativeHumidity2m,
			ApparentTemperature: raw.Current.ApparentTemperature,
			IsDay:               raw.Current.IsDay,
			Precipitation:       raw.Current.Precipitation,
			WeatherCode:         *raw.Current.WeatherCode,
			WindSpeed10m:        raw.Current.WindSpeed10m,
			WindDirection10m:    raw.Current.WindDirection10m,
		},
		Hourly: HourlySeries{
			Time:                     raw.Hourly.Time,
			Temperature2m:            raw.Hourly.Temperature2m,
			ApparentTemperature:      raw.Hourly.ApparentTemperature,
			WeatherCode:              raw.Hourly.WeatherCode,
			PrecipitationProbability: raw.Hourly.PrecipitationProbability,
			RelativeHumidity2m:       raw.Hourly.RelativeHumidity2m,
			WindSpeed10m:             raw.Hourly.WindSpeed10m,
		},
		Daily: DailySeries{
			Time:                        raw.Daily.Time,
			WeatherCode:                 raw.Daily.WeatherCode,
			Temperature2mMax:            raw.Daily.Temperature2mMax,
			Temperature2mMin:            raw.Daily.Temperature2mMin,
			Sunrise:                     raw.Daily.Sunrise,
			Sunset:                      raw.Daily.Sunset,
			PrecipitationProbabilityMax: raw.Daily.PrecipitationProbabilityMax,
			WindSpeed10mMax:             raw.Daily.WindSpeed10mMax,
		},
	}

	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// Validate enforces the structural invariants on an already-built snapshot:
// every hourly/daily array present must share the length of its time axis.
func (w *WeatherData) Validate() error {
	var errs []error

	n := len(w.Hourly.Time)
	hourly := func(name string, l int, present bool) {
		if present && l != n {
			errs = append(errs, fieldErr("hourly."+name,
				fmt.Sprintf("length %d does not match hourly.time length %d", l, n)))
		}
	}
	hourly("temperature_2m", len(w.Hourly.Temperature2m), w.Hourly.Temperature2m != nil)
	hourly("weather_code", len(w.Hourly.WeatherCode), w.Hourly.WeatherCode != nil)
	hourly("apparent_temperature", len(w.Hourly.ApparentTemperature), w.Hourly.ApparentTemperature != nil)
	hourly("precipitation_probability", len(w.Hourly.PrecipitationProbability), w.Hourly.PrecipitationProbability != nil)
	hourly("relative_humidity_2m", len(w.Hourly.RelativeHumidity2m), w.Hourly.RelativeHumidity2m != nil)
	hourly("wind_speed_10m", len(w.Hourly.WindSpeed10m), w.Hourly.WindSpeed10m != nil)

	m := len(w.Daily.Time)
	daily := func(name string, l int, present bool) {
		if present && l != m {
			errs = append(errs, fieldErr("daily."+name,
				fmt.Sprintf("length %d does not match daily.time length %d", l, m)))
		}
	}
	daily("weather_code", len(w.Daily.WeatherCode), w.Daily.WeatherCode != nil)
	daily("temperature_2m_max", len(w.Daily.Temperature2mMax), w.Daily.Temperature2mMax != nil)
	daily("temperature_2m_min", len(w.Daily.Temperature2mMin), w.Daily.Temperature2mMin != nil)
	daily("sunrise", len(w.Daily.Sunrise), w.Daily.Sunrise != nil)
	daily("sunset", len(w.Daily.Sunset), w.Daily.Sunset != nil)
	daily("precipitation_probability_max", len(w.Daily.PrecipitationProbabilityMax), w.Daily.PrecipitationProbabilityMax != nil)
	daily("wind_speed_10m_max", len(w.Daily.WindSpeed10mMax), w.Daily.WindSpeed10mMax != nil)

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
