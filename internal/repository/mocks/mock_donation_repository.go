package mocks

import (
	"context"
	"time"

	"foodshare/internal/model"
	"foodshare/internal/repository"

	"github.com/stretchr/testify/mock"
)

type MockDonationRepository struct {
	mock.Mock
}

func (m *MockDonationRepository) Create(ctx context.Context, donor model.Actor, d *model.Donation) (*model.Donation, error) {
	args := m.Called(ctx, donor, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Donation), args.Error(1)
}

func (m *MockDonationRepository) FindByID(ctx context.Context, id string) (*model.Donation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Donation), args.Error(1)
}

func (m *MockDonationRepository) List(ctx context.Context, f repository.DonationFilter) (*repository.PageResult[model.Donation], error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Donation]), args.Error(1)
}

func (m *MockDonationRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDonationRepository) MarkExpired(ctx context.Context, id string, now time.Time) (bool, error) {
	args := m.Called(ctx, id, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockDonationRepository) MarkExpiredMatching(ctx context.Context, scope repository.ExpiryScope, now time.Time) (int64, error) {
	args := m.Called(ctx, scope, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDonationRepository) ApplyClaim(ctx context.Context, t *model.ClaimTransition) (*model.Donation, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Donation), args.Error(1)
}

func (m *MockDonationRepository) Stats(ctx context.Context, donorID string) (model.DonationStats, error) {
	args := m.Called(ctx, donorID)
	return args.Get(0).(model.DonationStats), args.Error(1)
}

func (m *MockDonationRepository) AddImage(ctx context.Context, img *model.DonationImage) (*model.DonationImage, error) {
	args := m.Called(ctx, img)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DonationImage), args.Error(1)
}

func (m *MockDonationRepository) ListOrdersByUser(ctx context.Context, userID string) ([]repository.OrderWithDonation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.OrderWithDonation), args.Error(1)
}

func (m *MockDonationRepository) DeleteUser(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
