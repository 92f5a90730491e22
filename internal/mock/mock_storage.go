// Package mock provides testify mocks of the storage and repository interfaces.
package mock

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a mock implementation of the storage.Storage interface.
type MockStorage struct {
	mock.Mock
}

// Put mocks the Put method.
func (m *MockStorage) Put(ctx context.Context, key string, r io.Reader) error {
	args := m.Called(ctx, key, r)
	return args.Error(0)
}

// PutFile mocks the PutFile method.
func (m *MockStorage) PutFile(ctx context.Context, key string, localPath string) error {
	args := m.Called(ctx, key, localPath)
	return args.Error(0)
}

// Get mocks the Get method.
func (m *MockStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

// Fetch mocks the Fetch method.
func (m *MockStorage) Fetch(ctx context.Context, key string, localPath string) error {
	args := m.Called(ctx, key, localPath)
	return args.Error(0)
}

// Delete mocks the Delete method.
func (m *MockStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// Exists mocks the Exists method.
func (m *MockStorage) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// URL mocks the URL method.
func (m *MockStorage) URL(key string) string {
	args := m.Called(key)
	return args.String(0)
}

// ExpectFetch sets up an expectation for Fetch into any local path.
func (m *MockStorage) ExpectFetch(key string, err error) *mock.Call {
	return m.On("Fetch", mock.Anything, key, mock.Anything).Return(err)
}

// ExpectPutFile sets up an expectation for PutFile.
func (m *MockStorage) ExpectPutFile(key, localPath string, err error) *mock.Call {
	return m.On("PutFile", mock.Anything, key, localPath).Return(err)
}

// ExpectURL sets up an expectation for URL.
func (m *MockStorage) ExpectURL(key, url string) *mock.Call {
	return m.On("URL", key).Return(url)
}
