package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/nimbusweather/nimbus/internal/providers"
)

func newFailingServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
}

func TestSearchPrefersProxy(t *testing.T) {
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/weather/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`[{"name":"Paris, Île-de-France","latitude":48.8566,"longitude":2.3522,"country":"France","admin1":"Île-de-France"}]`))
	}))
	defer proxy.Close()

	direct := providers.NewOpenMeteo(proxy.Client(), "http://127.0.0.1:1", "")
	r := NewResolver(proxy.Client(), proxy.URL, direct, "", nil)

	results := r.Search(context.Background(), "Paris")
	if len(results) != 1 || results[0].Name != "Paris, Île-de-France" {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestSearchFallsBackToDirectProvider(t *testing.T) {
	proxy := newFailingServer(t)
	defer proxy.Close()

	geocode := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[{"name":"Paris","latitude":48.8566,"longitude":2.3522,"country":"France","admin1":"Île-de-France","timezone":"Europe/Paris"}]}`))
	}))
	defer geocode.Close()

	direct := providers.NewOpenMeteo(geocode.Client(), geocode.URL, "")
	r := NewResolver(proxy.Client(), proxy.URL, direct, "", nil)

	results := r.Search(context.Background(), "Paris")
	if len(results) != 1 {
		t.Fatalf("expected the direct provider's results, got %+v", results)
	}
	if results[0].Name != "Paris, Île-de-France" {
		t.Errorf("name = %q, want normalized join of place and region", results[0].Name)
	}
}

func TestSearchTotalFailureReturnsEmptyList(t *testing.T) {
	proxy := newFailingServer(t)
	defer proxy.Close()

	direct := providers.NewOpenMeteo(proxy.Client(), proxy.URL, "")
	r := NewResolver(proxy.Client(), proxy.URL, direct, "", nil)

	results := r.Search(context.Background(), "Paris")
	if results == nil {
		t.Fatal("expected empty list, got nil")
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %+v", results)
	}
}

func TestReverseKeepsInputCoordinates(t *testing.T) {
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "37.77,-122.42" {
			t.Errorf("q = %q, want coordinate literal", got)
		}
		// The server reports slightly different coordinates; they must not win.
		w.Write([]byte(`[{"name":"San Francisco","latitude":37.7749,"longitude":-122.4194,"country":"USA"}]`))
	}))
	defer proxy.Close()

	direct := providers.NewOpenMeteo(proxy.Client(), "http://127.0.0.1:1", "")
	r := NewResolver(proxy.Client(), proxy.URL, direct, "", nil)

	loc := r.Reverse(context.Background(), 37.77, -122.42)
	if loc == nil {
		t.Fatal("expected a location")
	}
	if loc.Latitude != 37.77 || loc.Longitude != -122.42 {
		t.Errorf("coordinates = %v,%v, want the device reading 37.77,-122.42", loc.Latitude, loc.Longitude)
	}
	if loc.Name != "San Francisco" {
		t.Errorf("name = %q", loc.Name)
	}
}

func TestReverseFallsBackToDirectProvider(t *testing.T) {
	proxy := newFailingServer(t)
	defer proxy.Close()

	geocode := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reverse" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"results":[{"name":"San Francisco","latitude":37.7749,"longitude":-122.4194,"country":"United States","admin1":"California","timezone":"America/Los_Angeles"}]}`))
	}))
	defer geocode.Close()

	direct := providers.NewOpenMeteo(geocode.Client(), geocode.URL, "")
	r := NewResolver(proxy.Client(), proxy.URL, direct, "", nil)

	loc := r.Reverse(context.Background(), 37.77, -122.42)
	if loc == nil {
		t.Fatal("expected a location from the direct tier")
	}
	if loc.Latitude != 37.77 || loc.Longitude != -122.42 {
		t.Errorf("coordinates = %v,%v, want the input reading", loc.Latitude, loc.Longitude)
	}
	if loc.Name != "San Francisco, California" {
		t.Errorf("name = %q", loc.Name)
	}
}

func TestReverseOfflineShortCircuits(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	direct := providers.NewOpenMeteo(srv.Client(), srv.URL, "")
	offline := func() bool { return false }
	r := NewResolver(srv.Client(), srv.URL, direct, "", offline)

	if loc := r.Reverse(context.Background(), 37.77, -122.42); loc != nil {
		t.Fatalf("expected nil when offline, got %+v", loc)
	}
	if calls.Load() != 0 {
		t.Errorf("expected no network calls when offline, got %d", calls.Load())
	}
}

func TestReverseTotalFailureReturnsNil(t *testing.T) {
	proxy := newFailingServer(t)
	defer proxy.Close()

	direct := providers.NewOpenMeteo(proxy.Client(), proxy.URL, "")
	r := NewResolver(proxy.Client(), proxy.URL, direct, "", nil)

	if loc := r.Reverse(context.Background(), 1, 2); loc != nil {
		t.Fatalf("expected nil, got %+v", loc)
	}
}

func TestIPFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"city":"san francisco","region":"california","country_name":"United States","timezone":"America/Los_Angeles","latitude":37.7749,"longitude":-122.4194}`))
	}))
	defer srv.Close()

	direct := providers.NewOpenMeteo(srv.Client(), "http://127.0.0.1:1", "")
	r := NewResolver(srv.Client(), "", direct, srv.URL, nil)

	loc := r.IPFallback(context.Background())
	if loc == nil {
		t.Fatal("expected a location")
	}
	if loc.Name != "San Francisco, California" {
		t.Errorf("name = %q, want title-cased city and region", loc.Name)
	}
	if loc.Country != "United States" || loc.Timezone != "America/Los_Angeles" {
		t.Errorf("unexpected location: %+v", loc)
	}
}

func TestIPFallbackProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": true, "reason": "RateLimited"}`))
	}))
	defer srv.Close()

	direct := providers.NewOpenMeteo(srv.Client(), "http://127.0.0.1:1", "")
	r := NewResolver(srv.Client(), "", direct, srv.URL, nil)

	if loc := r.IPFallback(context.Background()); loc != nil {
		t.Fatalf("expected nil on provider-reported error, got %+v", loc)
	}
}
