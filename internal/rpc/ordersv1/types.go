// Package ordersv1 описывает контракт orders.v1.OrdersService.
package ordersv1

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem - позиция заказа на проводе.
type OrderItem struct {
	ID        string          `json:"id,omitempty"`
	ProductID string          `json:"productId"`
	Quantity  int32           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Name      string          `json:"name,omitempty"`
}

// Receipt - чек об оплате.
type Receipt struct {
	ID         string    `json:"id"`
	ReceiptURL string    `json:"receiptUrl"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Order - заказ на проводе.
type Order struct {
	ID             string          `json:"id"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	TotalItems     int32           `json:"totalItems"`
	Status         string          `json:"status"`
	Paid           bool            `json:"paid"`
	PaidAt         *time.Time      `json:"paidAt"`
	StripeChargeID string          `json:"stripeChargeId,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	Items          []OrderItem     `json:"items"`
	Receipt        *Receipt        `json:"receipt,omitempty"`
}

// CreateOrderItem - позиция запроса на создание заказа.
type CreateOrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int32  `json:"quantity"`
}

type CreateOrderRequest struct {
	Items []CreateOrderItem `json:"items"`
}

// FindAllOrdersRequest - параметры страницы; нулевые значения заменяются значениями по умолчанию.
type FindAllOrdersRequest struct {
	Page   int32  `json:"page,omitempty"`
	Limit  int32  `json:"limit,omitempty"`
	Status string `json:"status,omitempty"`
}

type PageMeta struct {
	Total    int32 `json:"total"`
	Page     int32 `json:"page"`
	LastPage int32 `json:"lastPage"`
}

type FindAllOrdersResponse struct {
	Data []Order  `json:"data"`
	Meta PageMeta `json:"meta"`
}

type FindOneOrderRequest struct {
	ID string `json:"id"`
}

type ChangeOrderStatusRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// PaidOrderRequest - уведомление об успешной оплате.
type PaidOrderRequest struct {
	OrderID         string `json:"orderId"`
	StripePaymentID string `json:"stripePaymentId"`
	ReceiptURL      string `json:"receiptUrl"`
}
