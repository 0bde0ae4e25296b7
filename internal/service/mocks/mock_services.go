package mocks

import (
	"context"
	"io"

	"foodshare/internal/model"
	"foodshare/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockDonationService struct {
	mock.Mock
}

func (m *MockDonationService) Create(ctx context.Context, actor model.Actor, in service.CreateDonationInput) (*service.DonationView, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DonationView), args.Error(1)
}

func (m *MockDonationService) Get(ctx context.Context, id string) (*service.DonationView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DonationView), args.Error(1)
}

func (m *MockDonationService) List(ctx context.Context, q service.ListQuery) (*service.DonationListResult, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DonationListResult), args.Error(1)
}

func (m *MockDonationService) Delete(ctx context.Context, actor model.Actor, id string) error {
	args := m.Called(ctx, actor, id)
	return args.Error(0)
}

func (m *MockDonationService) Claim(ctx context.Context, actor model.Actor, id string) (*service.DonationView, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DonationView), args.Error(1)
}

func (m *MockDonationService) AddImage(ctx context.Context, actor model.Actor, id string, r io.Reader, size int64) (*model.DonationImage, error) {
	args := m.Called(ctx, actor, id, r, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DonationImage), args.Error(1)
}

func (m *MockDonationService) Stats(ctx context.Context, actor model.Actor) (*service.StatsResult, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.StatsResult), args.Error(1)
}

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) Confirm(ctx context.Context, actor model.Actor, in service.ConfirmOrderInput) (*service.OrderView, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.OrderView), args.Error(1)
}

func (m *MockOrderService) List(ctx context.Context, actor model.Actor) ([]service.OrderView, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.OrderView), args.Error(1)
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Delete(ctx context.Context, actor model.Actor, id string) error {
	args := m.Called(ctx, actor, id)
	return args.Error(0)
}
