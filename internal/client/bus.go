package client

import (
	"sync"

	"github.com/nimbusweather/nimbus/internal/weather"
)

// LocationBus broadcasts the selected location process-wide. Multiple
// publishers exist (search selection, geolocation callback, its async
// refinement); a late-arriving refinement with the same identity is merged
// over the provisional value instead of clobbering it, and any other publish
// replaces the current value wholesale.
type LocationBus struct {
	mu      sync.Mutex
	current *weather.GeoLocation
	subs    map[int]func(weather.GeoLocation)
	nextID  int
}

func NewLocationBus() *LocationBus {
	return &LocationBus{subs: make(map[int]func(weather.GeoLocation))}
}

// Publish announces a location selection. Subscribers are invoked outside
// the bus lock, in no particular order.
func (b *LocationBus) Publish(loc weather.GeoLocation) {
	b.mu.Lock()
	if b.current != nil && weather.SameIdentity(*b.current, loc) {
		loc = weather.MergeRefinement(*b.current, loc)
	}
	b.current = &loc

	notify := make([]func(weather.GeoLocation), 0, len(b.subs))
	for _, fn := range b.subs {
		notify = append(notify, fn)
	}
	b.mu.Unlock()

	for _, fn := range notify {
		fn(loc)
	}
}

// Subscribe registers fn for future publishes and returns its cancel func.
// If a location is already current, fn is invoked with it immediately.
func (b *LocationBus) Subscribe(fn func(weather.GeoLocation)) (cancel func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	current := b.current
	b.mu.Unlock()

	if current != nil {
		fn(*current)
	}

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Current returns the latest published location, if any.
func (b *LocationBus) Current() (weather.GeoLocation, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return weather.GeoLocation{}, false
	}
	return *b.current, true
}
