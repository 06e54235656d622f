package domain

import (
	"context"
	"time"
)

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create атомарно сохраняет заказ вместе с позициями. ErrOrderAlreadyExists при повторном ID.
	Create(ctx context.Context, order Order) error
	// Get возвращает заказ с позициями и чеком или ErrOrderNotFound.
	Get(ctx context.Context, id string) (Order, error)
	// List возвращает заказы по фильтру в порядке created_at ASC, id ASC.
	List(ctx context.Context, filter ListFilter) ([]Order, error)
	// Count возвращает число заказов с указанным статусом (пустой статус — все заказы).
	Count(ctx context.Context, status OrderStatus) (int, error)
	// UpdateStatus переводит заказ из статуса from в to и возвращает обновлённую запись.
	// Запись условная: если текущий статус уже не from, возвращается ErrStatusTransition.
	UpdateStatus(ctx context.Context, id string, from, to OrderStatus, updatedAt time.Time) (Order, error)
	// MarkPaid в одной транзакции отмечает оплату и создаёт чек.
	// ErrOrderNotFound — заказа нет, ErrOrderAlreadyPaid — оплата уже зафиксирована,
	// ErrStatusTransition — заказ отменён и оплату принять нельзя.
	MarkPaid(ctx context.Context, update PaidOrderUpdate) (Order, error)
}
