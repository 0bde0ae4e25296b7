package expiry

import (
	"context"
	"errors"
	"testing"
	"time"

	"foodshare/internal/model"
	"foodshare/internal/repository"
	"foodshare/internal/repository/memory"
	repoMocks "foodshare/internal/repository/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type countRecorder struct{ n int64 }

func (c *countRecorder) Expired(n int64) { c.n += n }

func at(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestSweep(t *testing.T) {
	now := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	ctx := context.Background()
	store := memory.New()
	rec := &countRecorder{}
	s := New(store, WithClock(at(now)), WithRecorder(rec))

	past := now.Add(-time.Second)
	_, err := store.Create(ctx, model.Actor{ID: "donor"}, &model.Donation{ID: "d-1", DonorID: "donor", ExpiryTime: &past, CreatedAt: now})
	require.NoError(t, err)

	d, err := store.FindByID(ctx, "d-1")
	require.NoError(t, err)

	changed, err := s.Sweep(ctx, d)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, d.IsExpired)

	changed, err = s.Sweep(ctx, d)
	require.NoError(t, err)
	assert.False(t, changed)

	stored, err := store.FindByID(ctx, "d-1")
	require.NoError(t, err)
	assert.True(t, stored.IsExpired)
	assert.False(t, stored.IsClaimed)
	assert.Equal(t, int64(1), rec.n)
}

func TestSweep_NotDue(t *testing.T) {
	now := time.Now()
	repo := new(repoMocks.MockDonationRepository)
	s := New(repo, WithClock(at(now)))

	future := now.Add(time.Minute)
	for _, d := range []*model.Donation{
		nil,
		{ID: "no-expiry"},
		{ID: "future", ExpiryTime: &future},
		{ID: "flagged", ExpiryTime: &now, IsExpired: true},
	} {
		changed, err := s.Sweep(context.Background(), d)
		assert.NoError(t, err)
		assert.False(t, changed)
	}
	repo.AssertNotCalled(t, "MarkExpired", mock.Anything, mock.Anything, mock.Anything)
}

func TestSweep_StoreError(t *testing.T) {
	now := time.Now()
	repo := new(repoMocks.MockDonationRepository)
	repo.On("MarkExpired", mock.Anything, "d-1", now).Return(false, errors.New("db down"))
	s := New(repo, WithClock(at(now)))

	d := &model.Donation{ID: "d-1", ExpiryTime: &now}
	_, err := s.Sweep(context.Background(), d)

	assert.EqualError(t, err, "db down")
	assert.False(t, d.IsExpired)
	repo.AssertExpectations(t)
}

func TestSweepMatching(t *testing.T) {
	now := time.Now()
	repo := new(repoMocks.MockDonationRepository)
	rec := &countRecorder{}
	scope := repository.ExpiryScope{DonorID: "donor-1"}
	repo.On("MarkExpiredMatching", mock.Anything, scope, now).Return(int64(4), nil).Once()

	n, err := New(repo, WithClock(at(now)), WithRecorder(rec)).SweepMatching(context.Background(), scope)

	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.Equal(t, int64(4), rec.n)
	repo.AssertExpectations(t)
}

func TestRemainingSeconds(t *testing.T) {
	now := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	in90 := now.Add(90*time.Second + 700*time.Millisecond)
	ago := now.Add(-5 * time.Second)

	tests := []struct {
		name string
		d    *model.Donation
		want *int64
	}{
		{name: "nil donation", d: nil, want: nil},
		{name: "no expiry", d: &model.Donation{}, want: nil},
		{name: "expired flag", d: &model.Donation{ExpiryTime: &in90, IsExpired: true}, want: nil},
		{name: "floors fraction", d: &model.Donation{ExpiryTime: &in90}, want: ptr(90)},
		{name: "past but unflagged clamps to zero", d: &model.Donation{ExpiryTime: &ago}, want: ptr(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RemainingSeconds(tt.d, now))
		})
	}
}

func TestRemainingSeconds_NonIncreasing(t *testing.T) {
	now := time.Now()
	exp := now.Add(10 * time.Second)
	d := &model.Donation{ExpiryTime: &exp}

	prev := *RemainingSeconds(d, now)
	for i := 1; i <= 12; i++ {
		cur := *RemainingSeconds(d, now.Add(time.Duration(i)*time.Second))
		assert.LessOrEqual(t, cur, prev)
		assert.GreaterOrEqual(t, cur, int64(0))
		prev = cur
	}
}

func ptr(v int64) *int64 { return &v }
