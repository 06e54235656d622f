package gormstore

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

type orderModel struct {
	ID             string          `gorm:"primaryKey;type:varchar(36)"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TotalItems     int32           `gorm:"not null"`
	Status         string          `gorm:"type:varchar(16);not null;default:PENDING;index:idx_orders_status_created_at_id,priority:1"`
	Paid           bool            `gorm:"not null;default:false"`
	PaidAt         *time.Time
	StripeChargeID *string          `gorm:"type:varchar(255)"`
	Items          []orderItemModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Receipt        *receiptModel    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time        `gorm:"not null;index:idx_orders_created_at_id,priority:1;index:idx_orders_status_created_at_id,priority:2"`
	UpdatedAt      time.Time        `gorm:"not null"`
}

func (orderModel) TableName() string { return "orders" }

type orderItemModel struct {
	ID        string          `gorm:"primaryKey;type:varchar(36)"`
	OrderID   string          `gorm:"type:varchar(36);not null;index:idx_order_items_order_id_position,priority:1"`
	Position  int             `gorm:"not null;default:0;index:idx_order_items_order_id_position,priority:2"`
	ProductID string          `gorm:"type:varchar(255);not null"`
	Quantity  int32           `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt time.Time       `gorm:"not null"`
}

func (orderItemModel) TableName() string { return "order_items" }

type receiptModel struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)"`
	OrderID    string    `gorm:"type:varchar(36);not null;uniqueIndex"`
	ReceiptURL string    `gorm:"type:text;not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (receiptModel) TableName() string { return "order_receipts" }

func fromDomain(order domain.Order) orderModel {
	model := orderModel{
		ID:          order.ID,
		TotalAmount: order.TotalAmount,
		TotalItems:  order.TotalItems,
		Status:      string(order.Status),
		Paid:        order.Paid,
		PaidAt:      order.PaidAt,
		Items:       make([]orderItemModel, 0, len(order.Items)),
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	}
	if order.StripeChargeID != "" {
		chargeID := order.StripeChargeID
		model.StripeChargeID = &chargeID
	}
	// Название товара не сохраняется: его источник — сервис товаров.
	for position, item := range order.Items {
		model.Items = append(model.Items, orderItemModel{
			ID:        item.ID,
			OrderID:   order.ID,
			Position:  position,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			CreatedAt: item.CreatedAt,
		})
	}
	return model
}

func (m orderModel) toDomain() domain.Order {
	order := domain.Order{
		ID:          m.ID,
		TotalAmount: m.TotalAmount,
		TotalItems:  m.TotalItems,
		Status:      domain.OrderStatus(m.Status),
		Paid:        m.Paid,
		Items:       make([]domain.OrderItem, 0, len(m.Items)),
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
	if m.PaidAt != nil {
		paidAt := m.PaidAt.UTC()
		order.PaidAt = &paidAt
	}
	if m.StripeChargeID != nil {
		order.StripeChargeID = *m.StripeChargeID
	}
	for _, item := range m.Items {
		order.Items = append(order.Items, domain.OrderItem{
			ID:        item.ID,
			OrderID:   item.OrderID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			CreatedAt: item.CreatedAt.UTC(),
		})
	}
	if m.Receipt != nil {
		order.Receipt = &domain.OrderReceipt{
			ID:         m.Receipt.ID,
			OrderID:    m.Receipt.OrderID,
			ReceiptURL: m.Receipt.ReceiptURL,
			CreatedAt:  m.Receipt.CreatedAt.UTC(),
		}
	}
	return order
}
