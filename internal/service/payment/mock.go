package payment

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// MockService — конфигурируемая заглушка PaymentService для тестов.
type MockService struct {
	mu sync.Mutex

	Session domain.PaymentSession
	Err     error

	Calls       int
	LastRequest domain.PaymentSessionRequest
}

// NewMockService возвращает mock с успешным сценарием по умолчанию.
func NewMockService() *MockService {
	return &MockService{
		Session: domain.PaymentSession{
			"url":        "https://checkout.example.com/session",
			"successUrl": "https://shop.example.com/payments/success",
			"cancelUrl":  "https://shop.example.com/payments/cancel",
		},
	}
}

// CreatePaymentSession возвращает заранее настроенный результат и считает вызовы.
func (m *MockService) CreatePaymentSession(_ context.Context, req domain.PaymentSessionRequest) (domain.PaymentSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls++
	m.LastRequest = req
	if m.Err != nil {
		return nil, m.Err
	}
	session := make(domain.PaymentSession, len(m.Session)+1)
	for k, v := range m.Session {
		session[k] = v
	}
	session["orderId"] = req.OrderID
	return session, nil
}

var _ domain.PaymentService = (*MockService)(nil)
