package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

const (
	opTimeout = 5 * time.Second

	selectOrderColumns = `
		SELECT o.id, o.total_amount, o.total_items, o.status, o.paid, o.paid_at,
		       o.stripe_charge_id, o.created_at, o.updated_at,
		       r.id, r.receipt_url, r.created_at
		FROM orders o
		LEFT JOIN order_receipts r ON r.order_id = o.id
	`
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

func (r *orderRepository) Create(ctx context.Context, order domain.Order) (err error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, total_amount, total_items, status, paid, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		order.ID, order.TotalAmount, order.TotalItems, string(order.Status),
		order.Paid, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrOrderAlreadyExists
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for position, item := range order.Items {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (
				id, order_id, position, product_id, quantity, unit_price, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7)
		`,
			item.ID, order.ID, position, item.ProductID, item.Quantity, item.UnitPrice, item.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}

	return nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	if !isOrderID(id) {
		return domain.Order{}, domain.ErrOrderNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	order, err := scanOrder(r.db.QueryRowContext(ctx, selectOrderColumns+` WHERE o.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	items, err := r.loadItems(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items

	return order, nil
}

func (r *orderRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		rows *sql.Rows
		err  error
	)
	if filter.Status != "" {
		rows, err = r.db.QueryContext(ctx, selectOrderColumns+`
			WHERE o.status = $1
			ORDER BY o.created_at ASC, o.id ASC
			LIMIT $2 OFFSET $3
		`, string(filter.Status), filter.Limit, filter.Offset)
	} else {
		rows, err = r.db.QueryContext(ctx, selectOrderColumns+`
			ORDER BY o.created_at ASC, o.id ASC
			LIMIT $1 OFFSET $2
		`, filter.Limit, filter.Offset)
	}
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, filter.Limit)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	for i := range orders {
		items, err := r.loadItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}

	return orders, nil
}

func (r *orderRepository) Count(ctx context.Context, status domain.OrderStatus) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		total int
		err   error
	)
	if status != "" {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE status = $1`, string(status)).Scan(&total)
	} else {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total)
	}
	if err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return total, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, updatedAt time.Time) (domain.Order, error) {
	if !isOrderID(id) {
		return domain.Order{}, domain.ErrOrderNotFound
	}

	execCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(execCtx, `
		UPDATE orders
		SET status = $1,
		    updated_at = $2
		WHERE id = $3
		  AND status = $4
	`, string(to), updatedAt, id, string(from))
	if err != nil {
		return domain.Order{}, fmt.Errorf("update order status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Order{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		// Строки нет либо статус успели сменить между чтением и записью.
		current, err := r.Get(ctx, id)
		if err != nil {
			return domain.Order{}, err
		}
		return domain.Order{}, fmt.Errorf("%w: %s -> %s", domain.ErrStatusTransition, current.Status, to)
	}

	return r.Get(ctx, id)
}

func (r *orderRepository) MarkPaid(ctx context.Context, update domain.PaidOrderUpdate) (domain.Order, error) {
	if !isOrderID(update.OrderID) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err := r.markPaidTx(ctx, update); err != nil {
		if errors.Is(err, domain.ErrOrderAlreadyPaid) {
			order, getErr := r.Get(ctx, update.OrderID)
			if getErr != nil {
				return domain.Order{}, getErr
			}
			return order, err
		}
		return domain.Order{}, err
	}
	return r.Get(ctx, update.OrderID)
}

func (r *orderRepository) markPaidTx(ctx context.Context, update domain.PaidOrderUpdate) (err error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET paid = TRUE,
		    paid_at = $2,
		    stripe_charge_id = $3,
		    status = CASE WHEN status = 'PENDING' THEN 'PAID' ELSE status END,
		    updated_at = $2
		WHERE id = $1
		  AND paid = FALSE
		  AND status <> 'CANCELLED'
	`, update.OrderID, update.PaidAt, update.StripePaymentID)
	if err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		err = paymentRejection(ctx, tx, update.OrderID)
		return err
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO order_receipts (id, order_id, receipt_url, created_at)
		VALUES ($1,$2,$3,$4)
	`, update.Receipt.ID, update.OrderID, update.Receipt.ReceiptURL, update.Receipt.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			err = domain.ErrOrderAlreadyPaid
			return err
		}
		return fmt.Errorf("insert order receipt: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit mark paid: %w", err)
	}

	return nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY position ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order          domain.Order
		status         string
		paidAt         sql.NullTime
		stripeChargeID sql.NullString
		receiptID      sql.NullString
		receiptURL     sql.NullString
		receiptCreated sql.NullTime
	)

	if err := row.Scan(
		&order.ID, &order.TotalAmount, &order.TotalItems, &status, &order.Paid, &paidAt,
		&stripeChargeID, &order.CreatedAt, &order.UpdatedAt,
		&receiptID, &receiptURL, &receiptCreated,
	); err != nil {
		return domain.Order{}, err
	}

	order.Status = domain.OrderStatus(status)
	if paidAt.Valid {
		t := paidAt.Time
		order.PaidAt = &t
	}
	order.StripeChargeID = stripeChargeID.String
	if receiptID.Valid {
		order.Receipt = &domain.OrderReceipt{
			ID:         receiptID.String,
			OrderID:    order.ID,
			ReceiptURL: receiptURL.String,
			CreatedAt:  receiptCreated.Time,
		}
	}
	return order, nil
}

// paymentRejection объясняет, почему UPDATE оплаты не затронул ни одной строки.
func paymentRejection(ctx context.Context, tx *sql.Tx, orderID string) error {
	var (
		paid   bool
		status string
	)
	err := tx.QueryRowContext(ctx, `SELECT paid, status FROM orders WHERE id = $1`, orderID).Scan(&paid, &status)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.ErrOrderNotFound
	case err != nil:
		return fmt.Errorf("check order payment state: %w", err)
	case paid:
		return domain.ErrOrderAlreadyPaid
	default:
		return fmt.Errorf("%w: %s -> %s", domain.ErrStatusTransition, status, domain.OrderStatusPaid)
	}
}

// isOrderID отсекает идентификаторы, которые не могут быть ключом колонки UUID.
func isOrderID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.OrderRepository = (*orderRepository)(nil)
