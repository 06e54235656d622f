package domain

import "context"

// ProductService описывает обращение к сервису товаров.
type ProductService interface {
	// ValidateProducts возвращает товары по идентификаторам или ошибку, если сервис их отклонил.
	ValidateProducts(ctx context.Context, ids []string) ([]Product, error)
}

// PaymentSession — описание сессии, как его вернул платёжный провайдер.
type PaymentSession map[string]any

// PaymentService описывает взаимодействие с платёжным сервисом.
type PaymentService interface {
	// CreatePaymentSession создаёт платёжную сессию по позициям заказа.
	CreatePaymentSession(ctx context.Context, req PaymentSessionRequest) (PaymentSession, error)
}

// EventType — тип события жизненного цикла заказа.
type EventType string

const (
	EventOrderCreated       EventType = "order.created"
	EventOrderStatusChanged EventType = "order.status_changed"
	EventOrderPaid          EventType = "order.paid"
)

// EventPublisher публикует события жизненного цикла заказа во внешнюю шину.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, eventType EventType, order Order) error
}
