// Package geo orchestrates location resolution across three tiers: the
// same-origin proxy, the direct free geocoding provider, and an IP-based
// last resort. Failures stay silent; callers always get a location or none,
// never an error mid-flow.
package geo

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nimbusweather/nimbus/internal/fetch"
	"github.com/nimbusweather/nimbus/internal/providers"
	"github.com/nimbusweather/nimbus/internal/weather"
)

// CurrentLocationLabel is the provisional name shown until a reverse lookup
// refines it.
const CurrentLocationLabel = "Current location"

// Resolver runs the resolution pipeline. The zero connectivity probe assumes
// the network is reachable.
type Resolver struct {
	proxy  *fetch.Client
	direct *providers.OpenMeteo
	ip     *fetch.Client
	ipURL  string
	online func() bool
	titler cases.Caser
}

// NewResolver builds a Resolver. origin is the proxy's base URL; direct is
// the free geocoding adapter used when the proxy is unreachable; ipURL is the
// IP-geolocation endpoint; online reports runtime connectivity (nil to
// assume online).
func NewResolver(httpClient *http.Client, origin string, direct *providers.OpenMeteo, ipURL string, online func() bool) *Resolver {
	return &Resolver{
		proxy:  fetch.NewClient(httpClient, origin, fetch.WeatherPolicy()),
		direct: direct,
		ip:     fetch.NewClient(httpClient, "", fetch.IPGeoPolicy()),
		ipURL:  ipURL,
		online: online,
		titler: cases.Title(language.English),
	}
}

// Search resolves a free-text query (or "lat,lon" literal) into candidate
// locations. The proxy tier's normalized list is returned verbatim; on any
// failure the direct provider is tried; total exhaustion yields an empty
// list, never an error.
func (r *Resolver) Search(ctx context.Context, query string) []weather.GeoLocation {
	var results []weather.GeoLocation
	err := r.proxy.GetJSON(ctx, "/api/weather/search?q="+url.QueryEscape(query), &results)
	if err == nil {
		return results
	}

	results, err = r.direct.Search(ctx, query)
	if err != nil {
		return []weather.GeoLocation{}
	}
	return results
}

// Reverse resolves coordinates into a labelled location. The returned
// coordinates are always the inputs; server-reported coordinates are not
// trusted over the original device reading. Total failure returns nil and
// the caller keeps its provisional label.
func (r *Resolver) Reverse(ctx context.Context, lat, lon float64) *weather.GeoLocation {
	if r.online != nil && !r.online() {
		return nil
	}

	q := formatCoord(lat) + "," + formatCoord(lon)
	var results []weather.GeoLocation
	err := r.proxy.GetJSON(ctx, "/api/weather/search?q="+url.QueryEscape(q), &results)
	if err == nil && len(results) > 0 {
		best := results[0]
		best.Latitude = lat
		best.Longitude = lon
		return &best
	}

	direct, err := r.direct.Reverse(ctx, lat, lon)
	if err == nil && len(direct) > 0 {
		best := direct[0]
		best.Latitude = lat
		best.Longitude = lon
		// Reverse results without a real place name keep the provisional label.
		if best.Name == "" || best.Name == "Location" {
			best.Name = CurrentLocationLabel
		}
		return &best
	}

	return nil
}

// ipGeoResponse is the ipapi.co payload. A provider-reported error field
// invalidates the whole response.
type ipGeoResponse struct {
	City        string   `json:"city"`
	Region      string   `json:"region"`
	CountryName string   `json:"country_name"`
	Country     string   `json:"country"`
	Timezone    string   `json:"timezone"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Error       bool     `json:"error"`
}

// IPFallback is the last-resort location source when geolocation is
// unavailable or denied: one direct call, 6s budget, no retry, nil on any
// error.
func (r *Resolver) IPFallback(ctx context.Context) *weather.GeoLocation {
	var payload ipGeoResponse
	if err := r.ip.GetJSON(ctx, r.ipURL, &payload); err != nil {
		return nil
	}
	if payload.Error || payload.Latitude == nil || payload.Longitude == nil {
		return nil
	}

	name := r.label(payload.City, payload.Region)
	if name == "" {
		name = CurrentLocationLabel
	}

	country := payload.CountryName
	if country == "" {
		country = payload.Country
	}

	var admin1 *string
	if payload.Region != "" {
		region := r.titler.String(payload.Region)
		admin1 = &region
	}

	return &weather.GeoLocation{
		Name:      name,
		Latitude:  *payload.Latitude,
		Longitude: *payload.Longitude,
		Country:   country,
		Admin1:    admin1,
		Timezone:  payload.Timezone,
	}
}

// label joins city and region into a display name, title-cased since IP
// databases are inconsistent about casing.
func (r *Resolver) label(city, region string) string {
	switch {
	case city != "" && region != "":
		return r.titler.String(city) + ", " + r.titler.String(region)
	case city != "":
		return r.titler.String(city)
	default:
		return ""
	}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
