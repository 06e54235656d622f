package product

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// MockService — конфигурируемая заглушка ProductService для тестов и локального запуска.
type MockService struct {
	mu      sync.Mutex
	catalog map[string]domain.Product

	Err     error
	Calls   int
	LastIDs []string
}

// NewMockService возвращает mock, знающий только переданные товары.
func NewMockService(products ...domain.Product) *MockService {
	m := &MockService{catalog: make(map[string]domain.Product, len(products))}
	for _, p := range products {
		m.catalog[p.ID] = p
	}
	return m
}

// Put добавляет или заменяет товар в каталоге.
func (m *MockService) Put(p domain.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalog[p.ID] = p
}

// ValidateProducts возвращает известные товары из запроса и считает вызовы.
// Неизвестные идентификаторы пропускаются.
func (m *MockService) ValidateProducts(_ context.Context, ids []string) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls++
	m.LastIDs = append([]string(nil), ids...)
	if m.Err != nil {
		return nil, m.Err
	}

	products := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.catalog[id]; ok {
			products = append(products, p)
		}
	}
	return products, nil
}

// CallCount возвращает число вызовов.
func (m *MockService) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

var _ domain.ProductService = (*MockService)(nil)
