package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

func TestOrderRepository_PostgresCreateGetListCount(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)
	ctx := context.Background()

	now := time.Now().UTC().Round(time.Microsecond)
	order1 := sampleOrder(now.Add(-2 * time.Minute))
	order2 := sampleOrder(now.Add(-time.Minute))
	order2.Status = domain.OrderStatusCancelled

	if err := repo.Create(ctx, order1); err != nil {
		t.Fatalf("create order1: %v", err)
	}
	if err := repo.Create(ctx, order2); err != nil {
		t.Fatalf("create order2: %v", err)
	}

	got, err := repo.Get(ctx, order1.ID)
	if err != nil {
		t.Fatalf("get order1: %v", err)
	}
	if got.ID != order1.ID || got.Status != domain.OrderStatusPending || got.Paid {
		t.Fatalf("unexpected order payload: %+v", got)
	}
	if !got.TotalAmount.Equal(order1.TotalAmount) || got.TotalItems != order1.TotalItems {
		t.Fatalf("unexpected totals: amount=%s items=%d", got.TotalAmount, got.TotalItems)
	}
	if len(got.Items) != len(order1.Items) {
		t.Fatalf("unexpected items count: got=%d want=%d", len(got.Items), len(order1.Items))
	}
	for i := range order1.Items {
		if got.Items[i].ID != order1.Items[i].ID {
			t.Fatalf("item %d: got %s, want %s (items must keep request order)", i, got.Items[i].ID, order1.Items[i].ID)
		}
	}
	if got.Items[0].Name != "" {
		t.Fatalf("product name must not be persisted: %q", got.Items[0].Name)
	}
	if got.PaidAt != nil || got.Receipt != nil {
		t.Fatalf("new order must not carry payment data: %+v", got)
	}

	firstPage, err := repo.List(ctx, domain.ListFilter{Limit: 1})
	if err != nil {
		t.Fatalf("list first page: %v", err)
	}
	if len(firstPage) != 1 || firstPage[0].ID != order1.ID {
		t.Fatalf("unexpected first page: %+v", firstPage)
	}

	secondPage, err := repo.List(ctx, domain.ListFilter{Offset: 1, Limit: 1})
	if err != nil {
		t.Fatalf("list second page: %v", err)
	}
	if len(secondPage) != 1 || secondPage[0].ID != order2.ID {
		t.Fatalf("unexpected second page: %+v", secondPage)
	}

	cancelled, err := repo.List(ctx, domain.ListFilter{Status: domain.OrderStatusCancelled, Limit: 10})
	if err != nil {
		t.Fatalf("list cancelled: %v", err)
	}
	if len(cancelled) != 1 || cancelled[0].ID != order2.ID {
		t.Fatalf("unexpected cancelled list: %+v", cancelled)
	}

	total, err := repo.Count(ctx, "")
	if err != nil {
		t.Fatalf("count all: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 orders, got %d", total)
	}

	pending, err := repo.Count(ctx, domain.OrderStatusPending)
	if err != nil {
		t.Fatalf("count pending: %v", err)
	}
	if pending != 1 {
		t.Fatalf("expected 1 pending order, got %d", pending)
	}
}

func TestOrderRepository_PostgresUpdateStatusAndMarkPaid(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)
	ctx := context.Background()

	now := time.Now().UTC().Round(time.Microsecond)
	order := sampleOrder(now)
	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("create order: %v", err)
	}

	paidAt := now.Add(time.Minute)
	update := domain.PaidOrderUpdate{
		OrderID:         order.ID,
		StripePaymentID: "ch_123",
		PaidAt:          paidAt,
		Receipt: domain.OrderReceipt{
			ID:         uuid.NewString(),
			OrderID:    order.ID,
			ReceiptURL: "https://pay.example.com/receipts/123",
			CreatedAt:  paidAt,
		},
	}

	paid, err := repo.MarkPaid(ctx, update)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if !paid.Paid || paid.Status != domain.OrderStatusPaid || paid.StripeChargeID != "ch_123" {
		t.Fatalf("unexpected paid order: %+v", paid)
	}
	if paid.PaidAt == nil || !paid.PaidAt.Equal(paidAt) {
		t.Fatalf("unexpected paid_at: %v", paid.PaidAt)
	}
	if paid.Receipt == nil || paid.Receipt.ReceiptURL != update.Receipt.ReceiptURL {
		t.Fatalf("unexpected receipt: %+v", paid.Receipt)
	}

	again := update
	again.StripePaymentID = "ch_other"
	again.Receipt.ID = uuid.NewString()
	stored, err := repo.MarkPaid(ctx, again)
	if !errors.Is(err, domain.ErrOrderAlreadyPaid) {
		t.Fatalf("expected ErrOrderAlreadyPaid, got %v", err)
	}
	if stored.StripeChargeID != "ch_123" {
		t.Fatalf("second confirmation must not overwrite payment: %+v", stored)
	}

	delivered, err := repo.UpdateStatus(ctx, order.ID, domain.OrderStatusPaid, domain.OrderStatusDelivered, now.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if delivered.Status != domain.OrderStatusDelivered || !delivered.Paid {
		t.Fatalf("unexpected delivered order: %+v", delivered)
	}
}

func TestOrderRepository_PostgresUpdateStatusIsConditional(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)
	ctx := context.Background()

	now := time.Now().UTC().Round(time.Microsecond)
	order := sampleOrder(now)
	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("create order: %v", err)
	}

	paidAt := now.Add(time.Minute)
	if _, err := repo.MarkPaid(ctx, domain.PaidOrderUpdate{
		OrderID:         order.ID,
		StripePaymentID: "ch_race",
		PaidAt:          paidAt,
		Receipt:         domain.OrderReceipt{ID: uuid.NewString(), ReceiptURL: "https://r/1", CreatedAt: paidAt},
	}); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	// Отмена была проверена против PENDING, но заказ уже оплачен.
	_, err := repo.UpdateStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusCancelled, now.Add(2*time.Minute))
	if !errors.Is(err, domain.ErrStatusTransition) {
		t.Fatalf("expected ErrStatusTransition, got %v", err)
	}

	stored, err := repo.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if stored.Status != domain.OrderStatusPaid || !stored.Paid {
		t.Fatalf("paid order must stay PAID: %+v", stored)
	}
}

func TestOrderRepository_PostgresMarkPaidRejectsCancelled(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)
	ctx := context.Background()

	now := time.Now().UTC().Round(time.Microsecond)
	order := sampleOrder(now)
	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := repo.UpdateStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusCancelled, now); err != nil {
		t.Fatalf("cancel order: %v", err)
	}

	_, err := repo.MarkPaid(ctx, domain.PaidOrderUpdate{
		OrderID:         order.ID,
		StripePaymentID: "ch_late",
		PaidAt:          now,
		Receipt:         domain.OrderReceipt{ID: uuid.NewString(), ReceiptURL: "https://r/2", CreatedAt: now},
	})
	if !errors.Is(err, domain.ErrStatusTransition) {
		t.Fatalf("expected ErrStatusTransition, got %v", err)
	}

	stored, err := repo.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if stored.Paid || stored.Receipt != nil || stored.Status != domain.OrderStatusCancelled {
		t.Fatalf("cancelled order must stay unpaid: %+v", stored)
	}
}

func TestOrderRepository_PostgresErrors(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)
	ctx := context.Background()

	now := time.Now().UTC().Round(time.Microsecond)
	base := sampleOrder(now)

	if _, err := repo.Get(ctx, uuid.NewString()); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if _, err := repo.Get(ctx, "not-a-uuid"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound for malformed id, got %v", err)
	}
	if _, err := repo.UpdateStatus(ctx, uuid.NewString(), domain.OrderStatusPending, domain.OrderStatusPaid, now); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound on update, got %v", err)
	}
	if _, err := repo.MarkPaid(ctx, domain.PaidOrderUpdate{
		OrderID: uuid.NewString(),
		Receipt: domain.OrderReceipt{ID: uuid.NewString(), ReceiptURL: "https://r"},
		PaidAt:  now,
	}); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound on mark paid, got %v", err)
	}

	if err := repo.Create(ctx, base); err != nil {
		t.Fatalf("create base order: %v", err)
	}
	if err := repo.Create(ctx, base); !errors.Is(err, domain.ErrOrderAlreadyExists) {
		t.Fatalf("expected ErrOrderAlreadyExists, got %v", err)
	}

	broken := sampleOrder(now)
	broken.Items[0].Quantity = 0
	if err := repo.Create(ctx, broken); err == nil {
		t.Fatal("expected check constraint violation for zero quantity")
	}
	if _, err := repo.Get(ctx, broken.ID); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("failed create must roll back, got %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Fatal("expected unique violation")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatal("foreign key violation must not be treated as unique")
	}
	if isUniqueViolation(errors.New("boom")) {
		t.Fatal("plain error must not be treated as unique")
	}
}

func sampleOrder(createdAt time.Time) domain.Order {
	orderID := uuid.NewString()
	// Идентификаторы идут по убыванию, чтобы сортировка по id не совпадала с порядком запроса.
	items := []domain.OrderItem{
		{
			ID:        "ffffffff-0000-4000-8000-" + orderID[24:],
			OrderID:   orderID,
			ProductID: "1",
			Quantity:  2,
			UnitPrice: decimal.RequireFromString("10.50"),
			Name:      "Keyboard",
			CreatedAt: createdAt,
		},
		{
			ID:        "00000000-0000-4000-8000-" + orderID[24:],
			OrderID:   orderID,
			ProductID: "7",
			Quantity:  1,
			UnitPrice: decimal.RequireFromString("3.00"),
			CreatedAt: createdAt,
		},
	}
	return domain.Order{
		ID:          orderID,
		TotalAmount: decimal.RequireFromString("24.00"),
		TotalItems:  3,
		Status:      domain.OrderStatusPending,
		Items:       items,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}
