package client

import (
	"context"
	"sync"
	"time"

	"github.com/nimbusweather/nimbus/internal/geo"
	"github.com/nimbusweather/nimbus/internal/weather"
)

const (
	// searchDebounce is the quiet period after the last keystroke before a
	// search is issued.
	searchDebounce = 250 * time.Millisecond

	// minQueryLength is enforced before any network call is made.
	minQueryLength = 2

	// maxDisplayedResults truncates the suggestion list for display.
	maxDisplayedResults = 8
)

// Searcher runs debounced search-as-you-type. Each keystroke allocates a
// monotonically increasing request id; only the response matching the latest
// id is delivered, so stale in-flight results never race a newer query.
type Searcher struct {
	resolver  *geo.Resolver
	delay     time.Duration
	onResults func([]weather.GeoLocation)

	mu    sync.Mutex
	seq   uint64
	timer *time.Timer
}

// NewSearcher builds a Searcher delivering suggestion lists to onResults.
// Deliveries happen on the goroutine that resolved the search.
func NewSearcher(resolver *geo.Resolver, onResults func([]weather.GeoLocation)) *Searcher {
	return &Searcher{
		resolver:  resolver,
		delay:     searchDebounce,
		onResults: onResults,
	}
}

// SetQuery registers a keystroke. Queries below the minimum length clear the
// suggestions immediately without any network call; anything longer restarts
// the debounce timer.
func (s *Searcher) SetQuery(ctx context.Context, query string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	id := s.seq
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	if len([]rune(query)) < minQueryLength {
		s.onResults([]weather.GeoLocation{})
		return
	}

	s.timer = time.AfterFunc(s.delay, func() {
		s.run(ctx, id, query)
	})
}

// Close cancels any pending debounce timer.
func (s *Searcher) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Searcher) run(ctx context.Context, id uint64, query string) {
	if !s.isLatest(id) {
		return
	}

	results := s.resolver.Search(ctx, query)
	if len(results) > maxDisplayedResults {
		results = results[:maxDisplayedResults]
	}

	// A newer keystroke may have arrived while the search was in flight;
	// its results win and these are discarded.
	if !s.isLatest(id) {
		return
	}
	s.onResults(results)
}

func (s *Searcher) isLatest(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return id == s.seq
}
