package domain_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("item-%d", n)
	}
}

// helper для создания базового заказа с одной позицией.
func makeOrder() domain.Order {
	now := time.Now().UTC()
	return domain.Order{
		ID:          "order-1",
		Status:      domain.OrderStatusPending,
		TotalAmount: decimal.NewFromInt(500),
		TotalItems:  5,
		Items: []domain.OrderItem{
			{
				ID:        "item-1",
				ProductID: "sku-1",
				Quantity:  5,
				UnitPrice: decimal.NewFromInt(100),
				CreatedAt: now,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestNewOrder_ComputesTotals(t *testing.T) {
	now := time.Now().UTC()
	products := []domain.Product{{ID: "A", Name: "Widget", Price: decimal.NewFromInt(10)}}

	order, err := domain.NewOrder("order-1", []domain.ItemRequest{{ProductID: "A", Quantity: 2}}, products, now, sequentialIDs())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !order.TotalAmount.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected total amount 20, got %s", order.TotalAmount)
	}
	if order.TotalItems != 2 {
		t.Fatalf("expected total items 2, got %d", order.TotalItems)
	}
	if order.Status != domain.OrderStatusPending || order.Paid {
		t.Fatalf("unexpected initial state: status=%s paid=%v", order.Status, order.Paid)
	}
	if len(order.Items) != 1 || order.Items[0].Name != "Widget" || !order.Items[0].UnitPrice.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected items: %+v", order.Items)
	}
	if order.Items[0].OrderID != "order-1" || order.Items[0].ID != "item-1" {
		t.Fatalf("unexpected item identity: %+v", order.Items[0])
	}
}

func TestNewOrder_SumsAcrossItems(t *testing.T) {
	products := []domain.Product{
		{ID: "A", Name: "Widget", Price: decimal.RequireFromString("19.99")},
		{ID: "B", Name: "Gadget", Price: decimal.RequireFromString("0.50")},
	}
	items := []domain.ItemRequest{
		{ProductID: "A", Quantity: 3},
		{ProductID: "B", Quantity: 4},
		{ProductID: "A", Quantity: 1},
	}

	order, err := domain.NewOrder("order-2", items, products, time.Now().UTC(), sequentialIDs())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 3*19.99 + 4*0.50 + 1*19.99 = 81.96
	if !order.TotalAmount.Equal(decimal.RequireFromString("81.96")) {
		t.Fatalf("expected 81.96, got %s", order.TotalAmount)
	}
	if order.TotalItems != 8 {
		t.Fatalf("expected 8 items, got %d", order.TotalItems)
	}
	if len(order.Items) != 3 {
		t.Fatalf("expected 3 item rows, got %d", len(order.Items))
	}
}

func TestNewOrder_MissingProduct(t *testing.T) {
	products := []domain.Product{{ID: "A", Name: "Widget", Price: decimal.NewFromInt(10)}}
	items := []domain.ItemRequest{{ProductID: "A", Quantity: 1}, {ProductID: "Z", Quantity: 1}}

	_, err := domain.NewOrder("order-3", items, products, time.Now().UTC(), sequentialIDs())
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestNewOrder_PriceScale(t *testing.T) {
	cases := []struct {
		name    string
		price   string
		wantErr bool
	}{
		{name: "sub-cent price", price: "0.333", wantErr: true},
		{name: "tenth of a cent", price: "10.001", wantErr: true},
		{name: "cents", price: "0.33", wantErr: false},
		{name: "trailing zeros", price: "1.500", wantErr: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			products := []domain.Product{{ID: "A", Name: "Widget", Price: decimal.RequireFromString(tc.price)}}
			order, err := domain.NewOrder("order-4", []domain.ItemRequest{{ProductID: "A", Quantity: 3}}, products, time.Now().UTC(), sequentialIDs())

			if !tc.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				// Сумма должна совпадать с тем, что вернут колонки NUMERIC(12,2).
				if !order.TotalAmount.Equal(order.TotalAmount.Round(domain.MoneyScale)) {
					t.Fatalf("total %s does not fit money scale", order.TotalAmount)
				}
				return
			}
			if !errors.Is(err, domain.ErrItemPriceScale) {
				t.Fatalf("expected ErrItemPriceScale, got %v", err)
			}
			if !domain.IsValidation(err) {
				t.Fatalf("price scale error must be a validation error: %v", err)
			}
		})
	}
}

func TestValidateItemRequests(t *testing.T) {
	cases := []struct {
		name  string
		items []domain.ItemRequest
		want  error
	}{
		{name: "empty", items: nil, want: domain.ErrItemsRequired},
		{name: "blank product", items: []domain.ItemRequest{{ProductID: " ", Quantity: 1}}, want: domain.ErrProductIDRequired},
		{name: "zero quantity", items: []domain.ItemRequest{{ProductID: "A", Quantity: 0}}, want: domain.ErrItemQtyInvalid},
		{name: "negative quantity", items: []domain.ItemRequest{{ProductID: "A", Quantity: -3}}, want: domain.ErrItemQtyInvalid},
		{name: "valid", items: []domain.ItemRequest{{ProductID: "A", Quantity: 1}}, want: nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := domain.ValidateItemRequests(tc.items)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestDistinctProductIDs(t *testing.T) {
	ids := domain.DistinctProductIDs([]domain.ItemRequest{
		{ProductID: "B", Quantity: 1},
		{ProductID: "A", Quantity: 1},
		{ProductID: "B", Quantity: 2},
	})
	if len(ids) != 2 || ids[0] != "B" || ids[1] != "A" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestOrderValidateInvariants_Ok(t *testing.T) {
	order := makeOrder()
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestOrderValidateInvariants_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(o *domain.Order)
	}{
		{
			name: "negative amount",
			mut: func(o *domain.Order) {
				o.TotalAmount = decimal.NewFromInt(-1)
			},
		},
		{
			name: "no items",
			mut: func(o *domain.Order) {
				o.Items = nil
			},
		},
		{
			name: "qty invalid",
			mut: func(o *domain.Order) {
				o.Items[0].Quantity = 0
			},
		},
		{
			name: "price invalid",
			mut: func(o *domain.Order) {
				o.Items[0].UnitPrice = decimal.Zero
			},
		},
		{
			name: "price scale",
			mut: func(o *domain.Order) {
				o.Items[0].UnitPrice = decimal.RequireFromString("100.005")
			},
		},
		{
			name: "amount mismatch",
			mut: func(o *domain.Order) {
				o.TotalAmount = decimal.NewFromInt(999)
			},
		},
		{
			name: "total items mismatch",
			mut: func(o *domain.Order) {
				o.TotalItems = 7
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := makeOrder()
			// Копируем позиции, чтобы мутации не влияли на другие кейсы.
			order.Items = append([]domain.OrderItem(nil), order.Items...)
			tc.mut(&order)

			if len(order.ValidateInvariants()) == 0 {
				t.Fatalf("expected validation errors for case %s", tc.name)
			}
		})
	}
}

func TestOrderWithProductNames(t *testing.T) {
	order := makeOrder()

	named, err := order.WithProductNames([]domain.Product{{ID: "sku-1", Name: "Keyboard", Price: decimal.NewFromInt(120)}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if named.Items[0].Name != "Keyboard" {
		t.Fatalf("expected name Keyboard, got %q", named.Items[0].Name)
	}
	// Цена позиции — исторический снимок, а не текущая цена товара.
	if !named.Items[0].UnitPrice.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unit price must not change, got %s", named.Items[0].UnitPrice)
	}
	if order.Items[0].Name != "" {
		t.Fatal("source order must not be mutated")
	}

	if _, err := order.WithProductNames(nil); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to domain.OrderStatus
		want     bool
	}{
		{domain.OrderStatusPending, domain.OrderStatusPaid, true},
		{domain.OrderStatusPending, domain.OrderStatusCancelled, true},
		{domain.OrderStatusPaid, domain.OrderStatusDelivered, true},
		{domain.OrderStatusPaid, domain.OrderStatusPending, false},
		{domain.OrderStatusPending, domain.OrderStatusDelivered, false},
		{domain.OrderStatusDelivered, domain.OrderStatusCancelled, false},
		{domain.OrderStatusCancelled, domain.OrderStatusPending, false},
	}

	for _, tc := range tests {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
				t.Fatalf("CanTransitionTo=%v, want %v", got, tc.want)
			}
		})
	}
}

func TestParseOrderStatus(t *testing.T) {
	status, err := domain.ParseOrderStatus(" paid ")
	if err != nil || status != domain.OrderStatusPaid {
		t.Fatalf("unexpected result: %s %v", status, err)
	}

	if _, err := domain.ParseOrderStatus("SHIPPED"); !errors.Is(err, domain.ErrOrderStatusInvalid) {
		t.Fatalf("expected ErrOrderStatusInvalid, got %v", err)
	}
}
