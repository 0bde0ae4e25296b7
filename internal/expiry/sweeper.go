// Package expiry flips donations past their expiry time to expired. Sweeps
// run inline with the requests that read donations.
package expiry

import (
	"context"
	"math"
	"time"

	"foodshare/internal/model"
	"foodshare/internal/repository"
)

// Store is the slice of the donation repository the sweeper writes through.
type Store interface {
	MarkExpired(ctx context.Context, id string, now time.Time) (bool, error)
	MarkExpiredMatching(ctx context.Context, scope repository.ExpiryScope, now time.Time) (int64, error)
}

// Recorder observes how many donations a sweep expired.
type Recorder interface {
	Expired(n int64)
}

type Sweeper struct {
	store    Store
	recorder Recorder
	now      func() time.Time
}

type Option func(*Sweeper)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

// WithRecorder reports expirations to r.
func WithRecorder(r Recorder) Option {
	return func(s *Sweeper) { s.recorder = r }
}

func New(store Store, opts ...Option) *Sweeper {
	s := &Sweeper{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the sweeper's clock reading.
func (s *Sweeper) Now() time.Time {
	return s.now()
}

// Sweep marks d expired when it is due, persisting only the flag and updating
// d in place. Sweeping an already expired donation is a no-op.
func (s *Sweeper) Sweep(ctx context.Context, d *model.Donation) (bool, error) {
	if d == nil {
		return false, nil
	}
	now := s.now()
	if !d.ExpiryDue(now) {
		return false, nil
	}
	changed, err := s.store.MarkExpired(ctx, d.ID, now)
	if err != nil {
		return false, err
	}
	d.IsExpired = true
	if changed {
		s.record(1)
	}
	return changed, nil
}

// SweepMatching expires every due donation in scope.
func (s *Sweeper) SweepMatching(ctx context.Context, scope repository.ExpiryScope) (int64, error) {
	n, err := s.store.MarkExpiredMatching(ctx, scope, s.now())
	if err != nil {
		return 0, err
	}
	s.record(n)
	return n, nil
}

func (s *Sweeper) record(n int64) {
	if s.recorder != nil && n > 0 {
		s.recorder.Expired(n)
	}
}

// RemainingSeconds is nil when d has no expiry or is already expired,
// otherwise the whole seconds left, floored at zero.
func RemainingSeconds(d *model.Donation, now time.Time) *int64 {
	if d == nil || d.ExpiryTime == nil || d.IsExpired {
		return nil
	}
	left := d.ExpiryTime.Sub(now).Seconds()
	secs := int64(math.Max(0, math.Floor(left)))
	return &secs
}
