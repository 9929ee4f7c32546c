package location

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type step struct {
	fix Fix
	err error
}

type scriptedGeolocator struct {
	steps    []step
	calls    int
	timeouts []time.Duration
}

func (g *scriptedGeolocator) CurrentPosition(ctx context.Context, opts PositionOptions) (Fix, error) {
	g.timeouts = append(g.timeouts, opts.Timeout)
	s := g.steps[g.calls]
	g.calls++
	return s.fix, s.err
}

type fakeGeocoder struct {
	addr string
	err  error
}

func (f fakeGeocoder) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	return f.addr, f.err
}

func newTestService(geo Geolocator, gc Geocoder) *Service {
	s := NewService(geo, gc)
	s.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return s
}

func TestAcquireStopsAtFirstAccurateFix(t *testing.T) {
	geo := &scriptedGeolocator{steps: []step{
		{fix: Fix{Latitude: 45.1, Longitude: 9.1, Accuracy: 120}},
		{fix: Fix{Latitude: 45.2, Longitude: 9.2, Accuracy: 40}},
		{fix: Fix{Latitude: 45.3, Longitude: 9.3, Accuracy: 5}},
	}}
	s := newTestService(geo, fakeGeocoder{addr: "Via Roma 1, Milano"})

	loc, err := s.Acquire(context.Background(), Options{RequiredAccuracy: 50, MaxRetries: 3})
	require.NoError(t, err)

	assert.Equal(t, 2, geo.calls)
	assert.Equal(t, 40.0, loc.Accuracy)
	assert.Equal(t, "Via Roma 1, Milano", loc.Address)
	assert.Equal(t, []time.Duration{FirstAttemptTimeout, RetryTimeout}, geo.timeouts)
	assert.False(t, s.Loading())

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, loc, cur)
}

func TestAcquireKeepsBestFixAfterRetries(t *testing.T) {
	geo := &scriptedGeolocator{steps: []step{
		{fix: Fix{Latitude: 1, Longitude: 1, Accuracy: 300}},
		{err: ErrTimeout},
		{fix: Fix{Latitude: 2, Longitude: 2, Accuracy: 90}},
		{fix: Fix{Latitude: 3, Longitude: 3, Accuracy: 150}},
	}}
	s := newTestService(geo, fakeGeocoder{err: errors.New("rate limited")})

	loc, err := s.Acquire(context.Background(), Options{RequiredAccuracy: 20, MaxRetries: 4})
	require.NoError(t, err)

	assert.Equal(t, 4, geo.calls)
	assert.Equal(t, 90.0, loc.Accuracy)
	assert.Equal(t, "2.000000, 2.000000", loc.Address, "raw coordinates when geocoding fails")
}

func TestAcquirePermissionDeniedAbortsAtOnce(t *testing.T) {
	geo := &scriptedGeolocator{steps: []step{{err: ErrPermissionDenied}, {fix: Fix{Accuracy: 5}}}}
	s := newTestService(geo, nil)

	_, err := s.Acquire(context.Background(), Options{RequiredAccuracy: 50, MaxRetries: 3})
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, 1, geo.calls)
	assert.False(t, s.Loading())
	assert.NotEmpty(t, UserMessage(err))

	_, ok := s.Current()
	assert.False(t, ok)
}

func TestAcquireTotalFailureSurfacesLastClass(t *testing.T) {
	geo := &scriptedGeolocator{steps: []step{
		{err: errors.New("gps chip asleep")},
		{err: ErrTimeout},
	}}
	s := newTestService(geo, nil)

	_, err := s.Acquire(context.Background(), Options{RequiredAccuracy: 50, MaxRetries: 2})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestUnknownErrorsBecomeUnavailable(t *testing.T) {
	geo := &scriptedGeolocator{steps: []step{{err: errors.New("gps chip asleep")}}}
	s := newTestService(geo, nil)

	_, err := s.Acquire(context.Background(), Options{MaxRetries: 1})
	assert.ErrorIs(t, err, ErrPositionUnavailable)
}

func TestClearDropsCurrent(t *testing.T) {
	s := newTestService(StaticGeolocator{Latitude: 45.46, Longitude: 9.19, Accuracy: 10}, nil)

	_, err := s.Acquire(context.Background(), DefaultOptions())
	require.NoError(t, err)
	_, ok := s.Current()
	require.True(t, ok)

	s.Clear()
	_, ok = s.Current()
	assert.False(t, ok)
}

func TestStaticGeolocatorUnconfigured(t *testing.T) {
	_, err := StaticGeolocator{}.CurrentPosition(context.Background(), PositionOptions{})
	assert.ErrorIs(t, err, ErrPositionUnavailable)
}

func TestNominatimReverse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "45.464200", r.URL.Query().Get("lat"))
		assert.Equal(t, "crew-agent/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"display_name":"Piazza del Duomo, Milano"}`))
	}))
	defer srv.Close()

	g := NewNominatimGeocoder(srv.URL+"/", "crew-agent/1.0")
	addr, err := g.Reverse(context.Background(), 45.4642, 9.19)
	require.NoError(t, err)
	assert.Equal(t, "Piazza del Duomo, Milano", addr)
}

func TestNominatimErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"Unable to geocode"}`))
	}))
	defer srv.Close()

	_, err := NewNominatimGeocoder(srv.URL, "").Reverse(context.Background(), 0, 0)
	assert.Error(t, err)
}
