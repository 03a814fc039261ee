// Package refresh keeps the displayed forecast current by periodically
// re-fetching it for the selected location.
package refresh

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/nimbusweather/nimbus/internal/client"
	"github.com/nimbusweather/nimbus/internal/weather"
)

// ForecastFetcher is the slice of the forecast client the scheduler needs.
type ForecastFetcher interface {
	Fetch(ctx context.Context, lat, lon float64) (*weather.WeatherData, error)
}

// Scheduler periodically refreshes the forecast for the currently selected
// location and hands each fresh snapshot to onUpdate. A failed refresh is
// logged and the previous snapshot stays in place.
type Scheduler struct {
	scheduler *gocron.Scheduler
	bus       *client.LocationBus
	fetcher   ForecastFetcher
	interval  time.Duration
	onUpdate  func(weather.GeoLocation, *weather.WeatherData)
}

// New creates a Scheduler refreshing every interval.
func New(bus *client.LocationBus, fetcher ForecastFetcher, interval time.Duration, onUpdate func(weather.GeoLocation, *weather.WeatherData)) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		bus:       bus,
		fetcher:   fetcher,
		interval:  interval,
		onUpdate:  onUpdate,
	}
}

// Start schedules the periodic refresh job and starts the underlying
// scheduler.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(s.runOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *Scheduler) runOnce() {
	loc, ok := s.bus.Current()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	w, err := s.fetcher.Fetch(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		log.Printf("refresh: forecast refresh failed for %s: %v", loc.Name, err)
		return
	}
	s.onUpdate(loc, w)
}
