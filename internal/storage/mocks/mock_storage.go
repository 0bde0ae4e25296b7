package mocks

import (
	"context"
	"io"
	"time"

	"foodshare/internal/storage"

	"github.com/stretchr/testify/mock"
)

// MockStorage returns canned values; Put and PresignGet also accept funcs
// computing the result from their arguments.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Put(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) (storage.ObjectInfo, error) {
	args := m.Called(ctx, key, r, opt)
	if f, ok := args.Get(0).(func(context.Context, string, io.Reader, storage.PutObjectOptions) storage.ObjectInfo); ok {
		return f(ctx, key, r, opt), args.Error(1)
	}
	return args.Get(0).(storage.ObjectInfo), args.Error(1)
}

func (m *MockStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockStorage) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, expiry)
	if f, ok := args.Get(0).(func(string) string); ok {
		return f(key), args.Error(1)
	}
	return args.String(0), args.Error(1)
}
