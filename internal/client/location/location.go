// Package location acquires a GPS fix good enough for a check-in and keeps
// the device's single current location.
package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrTimeout             = errors.New("location request timed out")
)

const (
	FirstAttemptTimeout = 15 * time.Second
	RetryTimeout        = 20 * time.Second
)

// UserMessage is the text shown to the crew member for an acquisition error.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "Location access was denied. Enable location permission or check in without GPS."
	case errors.Is(err, ErrTimeout):
		return "Getting your position took too long. Move to an open area and try again."
	case errors.Is(err, ErrPositionUnavailable):
		return "Your position is not available right now. Try again or check in without GPS."
	case err == nil:
		return ""
	default:
		return "Could not determine your position."
	}
}

// Fix is a raw position reading. Accuracy is the radius in meters, lower is
// better.
type Fix struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
	Timestamp time.Time
}

type PositionOptions struct {
	EnableHighAccuracy bool
	Timeout            time.Duration
	MaximumAge         time.Duration
}

// Geolocator is the device position source. Implementations return one of
// the package errors on failure.
type Geolocator interface {
	CurrentPosition(ctx context.Context, opts PositionOptions) (Fix, error)
}

// Location is an acquired fix plus its display address.
type Location struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   float64   `json:"accuracy"`
	Address    string    `json:"address"`
	AcquiredAt time.Time `json:"acquired_at"`
}

type Options struct {
	RequiredAccuracy float64 // meters
	MaxRetries       int     // total attempts
	RetryDelay       time.Duration
}

func DefaultOptions() Options {
	return Options{RequiredAccuracy: 50, MaxRetries: 3, RetryDelay: 2 * time.Second}
}

// Service is the only writer of the current location.
type Service struct {
	geo      Geolocator
	geocoder Geocoder

	mu      sync.RWMutex
	current *Location
	loading atomic.Bool

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewService(geo Geolocator, geocoder Geocoder) *Service {
	return &Service{
		geo:      geo,
		geocoder: geocoder,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Acquire requests fixes until one is within opts.RequiredAccuracy or
// opts.MaxRetries attempts were made, then keeps the best one seen. A
// permission denial stops at once.
func (s *Service) Acquire(ctx context.Context, opts Options) (Location, error) {
	s.loading.Store(true)
	defer s.loading.Store(false)

	attempts := opts.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var best *Fix
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			if err := s.sleep(ctx, opts.RetryDelay); err != nil {
				return Location{}, err
			}
		}

		timeout := FirstAttemptTimeout
		if i > 0 {
			timeout = RetryTimeout
		}
		fix, err := s.request(ctx, timeout)
		if err != nil {
			if ctx.Err() != nil {
				return Location{}, ctx.Err()
			}
			if errors.Is(err, ErrPermissionDenied) {
				return Location{}, err
			}
			lastErr = err
			slog.Debug("location attempt failed", "attempt", i+1, "error", err)
			continue
		}

		if best == nil || fix.Accuracy < best.Accuracy {
			f := fix
			best = &f
		}
		if fix.Accuracy <= opts.RequiredAccuracy {
			break
		}
	}

	if best == nil {
		if lastErr == nil {
			lastErr = ErrPositionUnavailable
		}
		return Location{}, lastErr
	}

	loc := Location{
		Latitude:   best.Latitude,
		Longitude:  best.Longitude,
		Accuracy:   best.Accuracy,
		Address:    s.address(ctx, best.Latitude, best.Longitude),
		AcquiredAt: s.now(),
	}

	s.mu.Lock()
	s.current = &loc
	s.mu.Unlock()

	return loc, nil
}

func (s *Service) request(ctx context.Context, timeout time.Duration) (Fix, error) {
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fix, err := s.geo.CurrentPosition(actx, PositionOptions{
		EnableHighAccuracy: true,
		Timeout:            timeout,
	})
	switch {
	case err == nil:
		return fix, nil
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, ErrPositionUnavailable), errors.Is(err, ErrTimeout):
		return Fix{}, err
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		return Fix{}, ErrTimeout
	default:
		return Fix{}, fmt.Errorf("%w: %v", ErrPositionUnavailable, err)
	}
}

// address reverse-geocodes once and falls back to the raw coordinates.
func (s *Service) address(ctx context.Context, lat, lon float64) string {
	fallback := fmt.Sprintf("%.6f, %.6f", lat, lon)
	if s.geocoder == nil {
		return fallback
	}
	addr, err := s.geocoder.Reverse(ctx, lat, lon)
	if err != nil || addr == "" {
		slog.Debug("reverse geocoding failed", "error", err)
		return fallback
	}
	return addr
}

// Current returns the last acquired location. It may be stale.
func (s *Service) Current() (Location, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Location{}, false
	}
	return *s.current, true
}

func (s *Service) Clear() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

// Loading reports whether an acquisition is in flight.
func (s *Service) Loading() bool {
	return s.loading.Load()
}

// Watch re-acquires every interval while active reports true. Failures keep
// the previous location.
func (s *Service) Watch(ctx context.Context, every time.Duration, opts Options, active func() bool) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !active() {
				continue
			}
			if _, err := s.Acquire(ctx, opts); err != nil && ctx.Err() == nil {
				slog.Warn("periodic location refresh failed", "error", err)
			}
		}
	}
}

// StaticGeolocator reports a configured position, for fixed kiosk devices.
type StaticGeolocator struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
}

func (g StaticGeolocator) CurrentPosition(ctx context.Context, opts PositionOptions) (Fix, error) {
	if err := ctx.Err(); err != nil {
		return Fix{}, ErrTimeout
	}
	if g.Latitude == 0 && g.Longitude == 0 {
		return Fix{}, ErrPositionUnavailable
	}
	return Fix{Latitude: g.Latitude, Longitude: g.Longitude, Accuracy: g.Accuracy, Timestamp: time.Now()}, nil
}
