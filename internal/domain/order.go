package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан и ожидает оплаты.
	OrderStatusPending OrderStatus = "PENDING"
	// OrderStatusPaid — оплата подтверждена платёжным сервисом.
	OrderStatusPaid OrderStatus = "PAID"
	// OrderStatusDelivered — заказ доставлен покупателю.
	OrderStatusDelivered OrderStatus = "DELIVERED"
	// OrderStatusCancelled — заказ отменён до оплаты.
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// MoneyScale — число знаков после запятой в денежных колонках хранилищ.
const MoneyScale = 2

// OrderStatusList — фиксированный список допустимых статусов.
var OrderStatusList = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// Разрешённые переходы: PENDING → PAID → DELIVERED, PENDING → CANCELLED.
var statusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:    {OrderStatusDelivered},
}

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	for _, status := range OrderStatusList {
		if s == status {
			return true
		}
	}
	return false
}

// CanTransitionTo сообщает, допускает ли жизненный цикл переход в next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseOrderStatus разбирает статус из внешнего представления.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !status.Valid() {
		names := make([]string, 0, len(OrderStatusList))
		for _, s := range OrderStatusList {
			names = append(names, string(s))
		}
		return "", fmt.Errorf("%w %q: must be one of %s", ErrOrderStatusInvalid, raw, strings.Join(names, ", "))
	}
	return status, nil
}

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	ID      string
	OrderID string
	// ProductID — внешний идентификатор товара, локально не проверяется.
	ProductID string
	Quantity  int32
	// UnitPrice — цена за единицу на момент создания заказа.
	UnitPrice decimal.Decimal
	// Name не хранится, подставляется из ответа сервиса товаров.
	Name      string
	CreatedAt time.Time
}

// Subtotal возвращает unitPrice × quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt32(i.Quantity))
}

// OrderReceipt — подтверждение оплаты, привязанное к заказу.
type OrderReceipt struct {
	ID         string
	OrderID    string
	ReceiptURL string
	CreatedAt  time.Time
}

// Order агрегирует состояние заказа и его позиции.
type Order struct {
	ID             string
	TotalAmount    decimal.Decimal
	TotalItems     int32
	Status         OrderStatus
	Paid           bool
	PaidAt         *time.Time
	StripeChargeID string
	Items          []OrderItem
	Receipt        *OrderReceipt
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ItemRequest — позиция из запроса на создание заказа.
type ItemRequest struct {
	ProductID string
	Quantity  int32
}

// ValidateItemRequests проверяет состав запроса и возвращает первое нарушение.
func ValidateItemRequests(items []ItemRequest) error {
	if len(items) == 0 {
		return ErrItemsRequired
	}
	for idx, item := range items {
		if strings.TrimSpace(item.ProductID) == "" {
			return fmt.Errorf("items[%d]: %w", idx, ErrProductIDRequired)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("items[%d]: %w", idx, ErrItemQtyInvalid)
		}
	}
	return nil
}

// DistinctProductIDs возвращает идентификаторы товаров без повторов в порядке первого появления.
func DistinctProductIDs(items []ItemRequest) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

// NewOrder собирает заказ в статусе PENDING, фиксируя цены из подтверждённого списка товаров.
// Если хотя бы один товар отсутствует в списке, заказ не создаётся.
func NewOrder(id string, items []ItemRequest, products []Product, now time.Time, newID func() string) (Order, error) {
	if err := ValidateItemRequests(items); err != nil {
		return Order{}, err
	}

	catalog := indexProducts(products)
	if missing := missingProducts(DistinctProductIDs(items), catalog); len(missing) > 0 {
		return Order{}, fmt.Errorf("%w: %s", ErrProductNotFound, strings.Join(missing, ", "))
	}

	order := Order{
		ID:          id,
		Status:      OrderStatusPending,
		TotalAmount: decimal.Zero,
		Items:       make([]OrderItem, 0, len(items)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for idx, req := range items {
		product := catalog[req.ProductID]
		if !product.Price.Equal(product.Price.Round(MoneyScale)) {
			return Order{}, fmt.Errorf("items[%d]: %w: %s", idx, ErrItemPriceScale, product.Price)
		}
		item := OrderItem{
			ID:        newID(),
			OrderID:   id,
			ProductID: req.ProductID,
			Quantity:  req.Quantity,
			UnitPrice: product.Price,
			Name:      product.Name,
			CreatedAt: now,
		}
		order.Items = append(order.Items, item)
		order.TotalAmount = order.TotalAmount.Add(item.Subtotal())
		order.TotalItems += item.Quantity
	}

	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return Order{}, errs[0]
	}
	return order, nil
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.TotalAmount.IsNegative() {
		errs = append(errs, ErrAmountNegative)
	}

	// Сверяем итоги с позициями: Σ(unitPrice × quantity) и Σ(quantity).
	calcAmount := decimal.Zero
	var calcItems int32
	for _, item := range o.Items {
		if item.Quantity <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if !item.UnitPrice.IsPositive() {
			errs = append(errs, ErrItemPriceInvalid)
		}
		if !item.UnitPrice.Equal(item.UnitPrice.Round(MoneyScale)) {
			errs = append(errs, ErrItemPriceScale)
		}
		calcAmount = calcAmount.Add(item.Subtotal())
		calcItems += item.Quantity
	}
	if !calcAmount.Equal(o.TotalAmount) {
		errs = append(errs, ErrAmountMismatch)
	}
	if calcItems != o.TotalItems {
		errs = append(errs, ErrTotalItemsMismatch)
	}

	return errs
}

// ProductIDs возвращает идентификаторы товаров заказа без повторов.
func (o *Order) ProductIDs() []string {
	reqs := make([]ItemRequest, 0, len(o.Items))
	for _, item := range o.Items {
		reqs = append(reqs, ItemRequest{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return DistinctProductIDs(reqs)
}

// WithProductNames возвращает копию заказа с названиями товаров в позициях.
func (o Order) WithProductNames(products []Product) (Order, error) {
	catalog := indexProducts(products)
	if missing := missingProducts(o.ProductIDs(), catalog); len(missing) > 0 {
		return Order{}, fmt.Errorf("%w: %s", ErrProductNotFound, strings.Join(missing, ", "))
	}

	items := make([]OrderItem, len(o.Items))
	for i, item := range o.Items {
		item.Name = catalog[item.ProductID].Name
		items[i] = item
	}
	o.Items = items
	return o, nil
}

func indexProducts(products []Product) map[string]Product {
	catalog := make(map[string]Product, len(products))
	for _, p := range products {
		catalog[p.ID] = p
	}
	return catalog
}

func missingProducts(ids []string, catalog map[string]Product) []string {
	var missing []string
	for _, id := range ids {
		if _, ok := catalog[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
