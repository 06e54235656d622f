package grpcsvc

import (
	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/rpc/ordersv1"
)

func toWireOrder(order domain.Order) *ordersv1.Order {
	items := make([]ordersv1.OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, ordersv1.OrderItem{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.UnitPrice,
			Name:      item.Name,
		})
	}

	wire := &ordersv1.Order{
		ID:             order.ID,
		TotalAmount:    order.TotalAmount,
		TotalItems:     order.TotalItems,
		Status:         string(order.Status),
		Paid:           order.Paid,
		PaidAt:         order.PaidAt,
		StripeChargeID: order.StripeChargeID,
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
		Items:          items,
	}
	if order.Receipt != nil {
		wire.Receipt = &ordersv1.Receipt{
			ID:         order.Receipt.ID,
			ReceiptURL: order.Receipt.ReceiptURL,
			CreatedAt:  order.Receipt.CreatedAt,
		}
	}
	return wire
}

func fromWireOrder(wire *ordersv1.Order) domain.Order {
	items := make([]domain.OrderItem, 0, len(wire.Items))
	for _, item := range wire.Items {
		items = append(items, domain.OrderItem{
			ID:        item.ID,
			OrderID:   wire.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
			Name:      item.Name,
		})
	}

	order := domain.Order{
		ID:             wire.ID,
		TotalAmount:    wire.TotalAmount,
		TotalItems:     wire.TotalItems,
		Status:         domain.OrderStatus(wire.Status),
		Paid:           wire.Paid,
		PaidAt:         wire.PaidAt,
		StripeChargeID: wire.StripeChargeID,
		Items:          items,
		CreatedAt:      wire.CreatedAt,
		UpdatedAt:      wire.UpdatedAt,
	}
	if wire.Receipt != nil {
		order.Receipt = &domain.OrderReceipt{
			ID:         wire.Receipt.ID,
			OrderID:    wire.ID,
			ReceiptURL: wire.Receipt.ReceiptURL,
			CreatedAt:  wire.Receipt.CreatedAt,
		}
	}
	return order
}
