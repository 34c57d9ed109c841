package discover

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"truckspot/internal/geocode"
)

type stubPlaceClient struct {
	mu      sync.Mutex
	queries []string
	places  []geocode.Place
	delay   time.Duration
}

func (s *stubPlaceClient) Search(ctx context.Context, query string) ([]geocode.Place, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.places, nil
}

func (s *stubPlaceClient) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

type resultSink struct {
	mu     sync.Mutex
	query  string
	places []geocode.Place
	got    int
}

func (r *resultSink) deliver(query string, places []geocode.Place) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.query = query
	r.places = places
	r.got++
}

func (r *resultSink) deliveries() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.got
}

func TestDebouncerOnlyLatestFires(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var mu sync.Mutex
	var fired []int
	for i := 0; i < 5; i++ {
		i := i
		d.Trigger(func(ctx context.Context) {
			mu.Lock()
			fired = append(fired, i)
			mu.Unlock()
		})
		time.Sleep(5 * time.Millisecond)
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(fired) == 1 && fired[0] == 4
	}, time.Second, 10*time.Millisecond)
}

func TestDebouncerStopCancelsPending(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	fired := make(chan struct{}, 1)
	d.Trigger(func(ctx context.Context) { fired <- struct{}{} })
	d.Stop()

	select {
	case <-fired:
		t.Fatal("stopped call still fired")
	case <-time.After(80 * time.Millisecond):
	}
}

func TestSearcherDebouncesKeystrokes(t *testing.T) {
	client := &stubPlaceClient{places: []geocode.Place{{Lat: 59.33, Lng: 18.06, DisplayName: "Stockholm"}}}
	sink := &resultSink{}
	s := NewSearcher(client, NewDebouncer(25*time.Millisecond), sink.deliver, testLogger())
	defer s.Stop()

	// Simulated typing: only the final query should reach the client.
	s.Query("sto")
	s.Query("stoc")
	s.Query("stockholm")

	require.Eventually(t, func() bool { return sink.deliveries() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"stockholm"}, client.seen())
	assert.Equal(t, "stockholm", sink.query)
	require.Len(t, sink.places, 1)
}

func TestSearcherShortQueryClearsWithoutLookup(t *testing.T) {
	client := &stubPlaceClient{}
	sink := &resultSink{}
	s := NewSearcher(client, NewDebouncer(10*time.Millisecond), sink.deliver, testLogger())

	s.Query("st")

	assert.Equal(t, 1, sink.deliveries())
	assert.Nil(t, sink.places)
	assert.Empty(t, client.seen())
}

func TestRecenterTarget(t *testing.T) {
	assert.Nil(t, RecenterTarget(nil))
	assert.Nil(t, RecenterTarget([]geocode.Place{{Lat: 99, Lng: 18}}))

	target := RecenterTarget([]geocode.Place{
		{Lat: 99, Lng: 18, DisplayName: "bad"},
		{Lat: 59.33, Lng: 18.06, DisplayName: "Stockholm"},
	})
	require.NotNil(t, target)
	assert.InDelta(t, 59.33, target.Lat, 1e-9)
}
