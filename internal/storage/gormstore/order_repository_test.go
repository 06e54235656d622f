package gormstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

func openSQLiteForTests(t *testing.T) *Store {
	t.Helper()

	ctx := context.Background()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	store, err := OpenSQLite(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})

	require.NoError(t, store.AutoMigrate(ctx))
	return store
}

func sampleOrder(createdAt time.Time) domain.Order {
	orderID := uuid.NewString()
	return domain.Order{
		ID:          orderID,
		TotalAmount: decimal.RequireFromString("24.00"),
		TotalItems:  3,
		Status:      domain.OrderStatusPending,
		Items: []domain.OrderItem{
			{
				ID:        uuid.NewString(),
				OrderID:   orderID,
				ProductID: "1",
				Quantity:  2,
				UnitPrice: decimal.RequireFromString("10.50"),
				Name:      "Keyboard",
				CreatedAt: createdAt,
			},
			{
				ID:        uuid.NewString(),
				OrderID:   orderID,
				ProductID: "7",
				Quantity:  1,
				UnitPrice: decimal.RequireFromString("3"),
				CreatedAt: createdAt,
			},
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestOrderRepository_CreateGetListCount(t *testing.T) {
	repo := NewOrderRepository(openSQLiteForTests(t))
	ctx := context.Background()

	now := time.Now().UTC().Round(time.Microsecond)
	first := sampleOrder(now.Add(-2 * time.Minute))
	second := sampleOrder(now.Add(-time.Minute))
	second.Status = domain.OrderStatusCancelled

	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))
	require.ErrorIs(t, repo.Create(ctx, first), domain.ErrOrderAlreadyExists)

	got, err := repo.Get(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusPending, got.Status)
	require.True(t, got.TotalAmount.Equal(first.TotalAmount))
	require.EqualValues(t, 3, got.TotalItems)
	require.Len(t, got.Items, 2)
	require.Empty(t, got.Items[0].Name)
	require.Nil(t, got.PaidAt)
	require.Nil(t, got.Receipt)
	require.Empty(t, got.StripeChargeID)

	var total decimal.Decimal
	for _, item := range got.Items {
		total = total.Add(item.Subtotal())
	}
	require.True(t, total.Equal(got.TotalAmount))

	page, err := repo.List(ctx, domain.ListFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, first.ID, page[0].ID)

	page, err = repo.List(ctx, domain.ListFilter{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, second.ID, page[0].ID)

	page, err = repo.List(ctx, domain.ListFilter{Offset: 5, Limit: 10})
	require.NoError(t, err)
	require.Empty(t, page)

	cancelled, err := repo.List(ctx, domain.ListFilter{Status: domain.OrderStatusCancelled, Limit: 10})
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	require.Equal(t, second.ID, cancelled[0].ID)

	count, err := repo.Count(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	count, err = repo.Count(ctx, domain.OrderStatusPending)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestOrderRepository_UpdateStatus(t *testing.T) {
	repo := NewOrderRepository(openSQLiteForTests(t))
	ctx := context.Background()

	now := time.Now().UTC().Round(time.Microsecond)
	order := sampleOrder(now)
	require.NoError(t, repo.Create(ctx, order))

	updated, err := repo.UpdateStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusCancelled, now.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusCancelled, updated.Status)
	require.True(t, updated.UpdatedAt.Equal(now.Add(time.Minute)))
	require.Len(t, updated.Items, 2)

	_, err = repo.UpdateStatus(ctx, uuid.NewString(), domain.OrderStatusPending, domain.OrderStatusPaid, now)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = repo.Get(ctx, uuid.NewString())
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestOrderRepository_UpdateStatusExpectsCurrentStatus(t *testing.T) {
	repo := NewOrderRepository(openSQLiteForTests(t))
	ctx := context.Background()

	now := time.Now().UTC().Round(time.Microsecond)
	order := sampleOrder(now)
	require.NoError(t, repo.Create(ctx, order))

	_, err := repo.MarkPaid(ctx, domain.PaidOrderUpdate{
		OrderID:         order.ID,
		StripePaymentID: "ch_first",
		PaidAt:          now,
		Receipt:         domain.OrderReceipt{ID: uuid.NewString(), ReceiptURL: "https://r/1", CreatedAt: now},
	})
	require.NoError(t, err)

	_, err = repo.UpdateStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusCancelled, now.Add(time.Minute))
	require.ErrorIs(t, err, domain.ErrStatusTransition)

	stored, err := repo.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusPaid, stored.Status)
	require.True(t, stored.Paid)
}

func TestOrderRepository_ItemsKeepRequestOrder(t *testing.T) {
	repo := NewOrderRepository(openSQLiteForTests(t))
	ctx := context.Background()

	now := time.Now().UTC().Round(time.Microsecond)
	order := sampleOrder(now)
	// Позиция B идёт первой, хотя её id больше id позиции A.
	order.Items[0].ID = "ffffffff-0000-4000-8000-000000000000"
	order.Items[0].ProductID = "B"
	order.Items[1].ID = "00000000-0000-4000-8000-000000000000"
	order.Items[1].ProductID = "A"
	require.NoError(t, repo.Create(ctx, order))

	got, err := repo.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	require.Equal(t, "B", got.Items[0].ProductID)
	require.Equal(t, "A", got.Items[1].ProductID)

	page, err := repo.List(ctx, domain.ListFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "B", page[0].Items[0].ProductID)
}

func TestOrderRepository_MarkPaidRejectsCancelledOrder(t *testing.T) {
	repo := NewOrderRepository(openSQLiteForTests(t))
	ctx := context.Background()

	now := time.Now().UTC().Round(time.Microsecond)
	order := sampleOrder(now)
	require.NoError(t, repo.Create(ctx, order))
	_, err := repo.UpdateStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusCancelled, now)
	require.NoError(t, err)

	_, err = repo.MarkPaid(ctx, domain.PaidOrderUpdate{
		OrderID:         order.ID,
		StripePaymentID: "ch_late",
		PaidAt:          now,
		Receipt:         domain.OrderReceipt{ID: uuid.NewString(), ReceiptURL: "https://r/2", CreatedAt: now},
	})
	require.ErrorIs(t, err, domain.ErrStatusTransition)

	stored, err := repo.Get(ctx, order.ID)
	require.NoError(t, err)
	require.False(t, stored.Paid)
	require.Nil(t, stored.Receipt)
	require.Equal(t, domain.OrderStatusCancelled, stored.Status)
}

func TestOrderRepository_MarkPaid(t *testing.T) {
	repo := NewOrderRepository(openSQLiteForTests(t))
	ctx := context.Background()

	now := time.Now().UTC().Round(time.Microsecond)
	order := sampleOrder(now)
	require.NoError(t, repo.Create(ctx, order))

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
	require.NoError(t, err)
	require.True(t, paid.Paid)
	require.Equal(t, domain.OrderStatusPaid, paid.Status)
	require.Equal(t, "ch_123", paid.StripeChargeID)
	require.NotNil(t, paid.PaidAt)
	require.True(t, paid.PaidAt.Equal(paidAt))
	require.NotNil(t, paid.Receipt)
	require.Equal(t, update.Receipt.ReceiptURL, paid.Receipt.ReceiptURL)

	again := update
	again.StripePaymentID = "ch_other"
	again.Receipt.ID = uuid.NewString()
	stored, err := repo.MarkPaid(ctx, again)
	require.ErrorIs(t, err, domain.ErrOrderAlreadyPaid)
	require.Equal(t, "ch_123", stored.StripeChargeID)
	require.Equal(t, paid.Receipt.ID, stored.Receipt.ID)

	_, err = repo.MarkPaid(ctx, domain.PaidOrderUpdate{
		OrderID: uuid.NewString(),
		Receipt: domain.OrderReceipt{ID: uuid.NewString(), ReceiptURL: "https://r"},
		PaidAt:  now,
	})
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestStore_Guards(t *testing.T) {
	var store *Store
	ctx := context.Background()

	require.Error(t, store.Ping(ctx))
	require.Error(t, store.AutoMigrate(ctx))
	require.NoError(t, store.Close())

	_, err := OpenSQLite(ctx, "")
	require.Error(t, err)
	_, err = OpenMySQL(ctx, "")
	require.Error(t, err)
}
