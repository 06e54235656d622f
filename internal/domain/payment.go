package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentCurrency — валюта, в которой создаются платёжные сессии.
const PaymentCurrency = "usd"

// Product — товар, подтверждённый сервисом товаров.
type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

// PaymentSessionItem — позиция платёжной сессии.
type PaymentSessionItem struct {
	Name     string
	Price    decimal.Decimal
	Quantity int32
}

// PaymentSessionRequest — запрос на создание платёжной сессии по заказу.
type PaymentSessionRequest struct {
	OrderID  string
	Currency string
	Items    []PaymentSessionItem
}

// NewPaymentSessionRequest строит запрос сессии из заказа с названиями товаров.
func NewPaymentSessionRequest(order Order) PaymentSessionRequest {
	items := make([]PaymentSessionItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, PaymentSessionItem{
			Name:     item.Name,
			Price:    item.UnitPrice,
			Quantity: item.Quantity,
		})
	}
	return PaymentSessionRequest{
		OrderID:  order.ID,
		Currency: PaymentCurrency,
		Items:    items,
	}
}

// PaymentConfirmation — уведомление платёжного сервиса об успешной оплате.
type PaymentConfirmation struct {
	OrderID         string
	StripePaymentID string
	ReceiptURL      string
}

// Validate проверяет обязательные поля уведомления.
func (p PaymentConfirmation) Validate() error {
	switch {
	case strings.TrimSpace(p.OrderID) == "":
		return ErrOrderIDRequired
	case strings.TrimSpace(p.StripePaymentID) == "":
		return ErrPaymentReferenceRequired
	case strings.TrimSpace(p.ReceiptURL) == "":
		return ErrReceiptURLRequired
	}
	return nil
}

// PaidOrderUpdate — данные атомарной отметки заказа оплаченным.
type PaidOrderUpdate struct {
	OrderID         string
	StripePaymentID string
	Receipt         OrderReceipt
	PaidAt          time.Time
}
