package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/allergenscan/backend/internal/domain"
)

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	mu        sync.Mutex
	data      map[string][]byte
	getError  error
	setError  error
	getCalled bool
	setCalled bool
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		data: make(map[string][]byte),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalled = true
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalled = true
	if m.setError != nil {
		return m.setError
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = data
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

// MockProductClient is a mock implementation of domain.ProductClient
type MockProductClient struct {
	mu      sync.Mutex
	product *domain.OFFProduct
	err     error
	calls   int
	// delay holds each call until it passes or ctx ends
	delay time.Duration
}

func NewMockProductClient(product *domain.OFFProduct) *MockProductClient {
	return &MockProductClient{product: product}
}

func (m *MockProductClient) GetProduct(ctx context.Context, barcode string) (*domain.OFFProduct, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, &domain.UpstreamError{Err: ctx.Err()}
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.product, nil
}

func (m *MockProductClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockProfileBackend is a mock implementation of domain.ProfileBackend
type MockProfileBackend struct {
	mu        sync.Mutex
	data      []byte
	loadError error
	saveError error
	saves     int
}

func (m *MockProfileBackend) Load(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadError != nil {
		return nil, m.loadError
	}
	return m.data, nil
}

func (m *MockProfileBackend) Save(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	m.data = append([]byte(nil), data...)
	m.saves++
	return nil
}

func (m *MockProfileBackend) Stored() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.data)
}
