// Package messaging содержит события, которыми сервис заказов обменивается через брокеры.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// PaymentSucceededEvent — уведомление платёжного сервиса об успешной оплате.
type PaymentSucceededEvent struct {
	OrderID         string `json:"orderId"`
	StripePaymentID string `json:"stripePaymentId"`
	ReceiptURL      string `json:"receiptUrl"`
}

// Confirmation переводит событие в доменную команду.
func (e PaymentSucceededEvent) Confirmation() domain.PaymentConfirmation {
	return domain.PaymentConfirmation{
		OrderID:         e.OrderID,
		StripePaymentID: e.StripePaymentID,
		ReceiptURL:      e.ReceiptURL,
	}
}

// DecodePaymentSucceeded разбирает тело сообщения об оплате.
func DecodePaymentSucceeded(body []byte) (PaymentSucceededEvent, error) {
	var event PaymentSucceededEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return PaymentSucceededEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return event, nil
}

// ErrMalformedEvent — тело сообщения не удалось разобрать.
var ErrMalformedEvent = errors.New("malformed event payload")

// PaymentHandler — получатель подтверждений оплаты.
type PaymentHandler interface {
	PaidOrder(ctx context.Context, confirmation domain.PaymentConfirmation) (domain.Order, error)
}

// HandlePayment разбирает событие и передаёт подтверждение в сервис заказов.
func HandlePayment(ctx context.Context, handler PaymentHandler, body []byte) (domain.Order, error) {
	event, err := DecodePaymentSucceeded(body)
	if err != nil {
		return domain.Order{}, err
	}
	return handler.PaidOrder(ctx, event.Confirmation())
}

// IsPermanent сообщает, что повторная доставка того же сообщения не изменит результат.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrMalformedEvent) || domain.IsValidation(err) || domain.IsNotFound(err)
}

// OrderEvent — событие жизненного цикла заказа для внешних подписчиков.
type OrderEvent struct {
	EventType   domain.EventType `json:"eventType"`
	OrderID     string           `json:"orderId"`
	Status      string           `json:"status"`
	TotalAmount decimal.Decimal  `json:"totalAmount"`
	TotalItems  int32            `json:"totalItems"`
	Paid        bool             `json:"paid"`
	Timestamp   time.Time        `json:"timestamp"`
}

// NewOrderEvent создаёт событие по текущему состоянию заказа.
func NewOrderEvent(eventType domain.EventType, order domain.Order, now time.Time) OrderEvent {
	return OrderEvent{
		EventType:   eventType,
		OrderID:     order.ID,
		Status:      string(order.Status),
		TotalAmount: order.TotalAmount,
		TotalItems:  order.TotalItems,
		Paid:        order.Paid,
		Timestamp:   now.UTC(),
	}
}
