package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// orderRepositoryInMemory — простая in-memory реализация OrderRepository.
type orderRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Order
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items: make(map[string]domain.Order),
	}
}

// Create сохраняет новый заказ, если ID ещё не занят.
func (r *orderRepositoryInMemory) Create(_ context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[order.ID]; exists {
		return domain.ErrOrderAlreadyExists
	}
	// Названия товаров не хранятся, как и в SQL-хранилищах.
	stored := cloneOrder(order)
	for i := range stored.Items {
		stored.Items[i].Name = ""
	}
	r.items[order.ID] = stored
	return nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) Get(_ context.Context, id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

// List возвращает страницу заказов в порядке создания.
func (r *orderRepositoryInMemory) List(_ context.Context, filter domain.ListFilter) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		result = append(result, order)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	if filter.Offset >= len(result) {
		return []domain.Order{}, nil
	}
	result = result[filter.Offset:]
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}

	page := make([]domain.Order, 0, len(result))
	for _, order := range result {
		page = append(page, cloneOrder(order))
	}
	return page, nil
}

// Count возвращает количество заказов с учётом фильтра по статусу.
func (r *orderRepositoryInMemory) Count(_ context.Context, status domain.OrderStatus) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if status == "" {
		return len(r.items), nil
	}
	count := 0
	for _, order := range r.items {
		if order.Status == status {
			count++
		}
	}
	return count, nil
}

// UpdateStatus меняет статус заказа, если он всё ещё равен from.
func (r *orderRepositoryInMemory) UpdateStatus(_ context.Context, id string, from, to domain.OrderStatus, updatedAt time.Time) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if order.Status != from {
		return domain.Order{}, fmt.Errorf("%w: %s -> %s", domain.ErrStatusTransition, order.Status, to)
	}
	order.Status = to
	order.UpdatedAt = updatedAt
	r.items[id] = order
	return cloneOrder(order), nil
}

// MarkPaid отмечает оплату и сохраняет чек под одной блокировкой.
func (r *orderRepositoryInMemory) MarkPaid(_ context.Context, update domain.PaidOrderUpdate) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.items[update.OrderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if order.Paid {
		return cloneOrder(order), domain.ErrOrderAlreadyPaid
	}
	if order.Status == domain.OrderStatusCancelled {
		return domain.Order{}, fmt.Errorf("%w: %s -> %s", domain.ErrStatusTransition, order.Status, domain.OrderStatusPaid)
	}

	paidAt := update.PaidAt
	receipt := update.Receipt
	receipt.OrderID = order.ID

	order.Paid = true
	order.PaidAt = &paidAt
	order.StripeChargeID = update.StripePaymentID
	order.Receipt = &receipt
	order.UpdatedAt = update.PaidAt
	if order.Status == domain.OrderStatusPending {
		order.Status = domain.OrderStatusPaid
	}
	r.items[order.ID] = order
	return cloneOrder(order), nil
}

func cloneOrder(order domain.Order) domain.Order {
	if order.Items != nil {
		order.Items = append([]domain.OrderItem(nil), order.Items...)
	}
	if order.PaidAt != nil {
		paidAt := *order.PaidAt
		order.PaidAt = &paidAt
	}
	if order.Receipt != nil {
		receipt := *order.Receipt
		order.Receipt = &receipt
	}
	return order
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
