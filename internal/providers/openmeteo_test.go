package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenMeteoSearchNormalization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("name"); got != "paris" {
			t.Errorf("name = %q, want paris", got)
		}
		if got := r.URL.Query().Get("count"); got != "8" {
			t.Errorf("count = %q, want 8", got)
		}
		w.Write([]byte(`{"results":[
			{"name":"Paris","latitude":48.8566,"longitude":2.3522,"country":"France","admin1":"Île-de-France","timezone":"Europe/Paris"},
			{"name":"Paris","latitude":33.66,"longitude":-95.55,"country_code":"US","admin1":"Texas"}
		]}`))
	}))
	defer srv.Close()

	p := NewOpenMeteo(srv.Client(), srv.URL, "")
	results, err := p.Search(context.Background(), "paris")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	if results[0].Name != "Paris, Île-de-France" {
		t.Errorf("name = %q, want place joined with region", results[0].Name)
	}
	if results[0].Country != "France" || results[0].Timezone != "Europe/Paris" {
		t.Errorf("unexpected first result: %+v", results[0])
	}
	if results[1].Country != "US" {
		t.Errorf("country should fall back to country_code, got %q", results[1].Country)
	}
	if results[1].Admin1 == nil || *results[1].Admin1 != "Texas" {
		t.Errorf("admin1 = %v, want Texas", results[1].Admin1)
	}
}

func TestOpenMeteoSearchSkipsInvalidCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[
			{"name":"Broken","latitude":200,"longitude":0},
			{"name":"Fine","latitude":10,"longitude":20}
		]}`))
	}))
	defer srv.Close()

	p := NewOpenMeteo(srv.Client(), srv.URL, "")
	results, err := p.Search(context.Background(), "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].Name != "Fine" {
		t.Fatalf("expected only the valid entry, got %+v", results)
	}
}

func TestOpenMeteoForecastDefaulting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("timezone") != "auto" {
			t.Errorf("timezone param = %q, want auto", q.Get("timezone"))
		}
		w.Write([]byte(`{
			"latitude": 48.9,
			"longitude": 2.35,
			"timezone": "Europe/Paris",
			"current": {
				"time": "2024-05-01T12:00",
				"temperature_2m": 17.0,
				"weather_code": 61
			},
			"hourly": {
				"time": ["2024-05-01T12:00"],
				"temperature_2m": [17.0],
				"weather_code": [61]
			},
			"daily": {
				"time": ["2024-05-01"],
				"weather_code": [61],
				"temperature_2m_max": [20.0],
				"temperature_2m_min": [12.0],
				"sunrise": ["2024-05-01T06:30"],
				"sunset": ["2024-05-01T21:05"]
			}
		}`))
	}))
	defer srv.Close()

	p := NewOpenMeteo(srv.Client(), "", srv.URL)
	w, err := p.Forecast(context.Background(), 48.8566, 2.3522)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if w.Latitude != 48.9 {
		t.Errorf("latitude = %v, want the provider's 48.9", w.Latitude)
	}
	if w.Current.WeatherCode != 61 {
		t.Errorf("weather code = %d, want 61", w.Current.WeatherCode)
	}
	// Absent optional readings are defaulted, not dropped.
	if w.Current.ApparentTemperature == nil || *w.Current.ApparentTemperature != 17.0 {
		t.Errorf("apparent temperature should default to the air temperature, got %v", w.Current.ApparentTemperature)
	}
	if w.Current.IsDay == nil || *w.Current.IsDay != 1 {
		t.Errorf("is_day should default to 1, got %v", w.Current.IsDay)
	}
	if w.Current.Precipitation == nil || *w.Current.Precipitation != 0 {
		t.Errorf("precipitation should default to 0, got %v", w.Current.Precipitation)
	}
}

func TestOpenMeteoForecastRejectsMismatchedSeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"latitude": 1, "longitude": 2, "timezone": "UTC",
			"current": {"time": "t", "temperature_2m": 1, "weather_code": 0},
			"hourly": {"time": ["a","b"], "temperature_2m": [1], "weather_code": [0,0]},
			"daily": {"time": [], "weather_code": [], "temperature_2m_max": [], "temperature_2m_min": [], "sunrise": [], "sunset": []}
		}`))
	}))
	defer srv.Close()

	p := NewOpenMeteo(srv.Client(), "", srv.URL)
	if _, err := p.Forecast(context.Background(), 1, 2); err == nil {
		t.Fatal("expected validation error for mismatched hourly arrays")
	}
}
