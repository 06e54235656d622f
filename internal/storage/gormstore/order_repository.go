package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

const opTimeout = 5 * time.Second

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository создаёт GORM-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

func (r *orderRepository) Create(ctx context.Context, order domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	model := fromDomain(order)
	// Заказ и позиции пишутся одной транзакцией GORM.
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrOrderAlreadyExists
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.get(r.db.WithContext(ctx), id)
}

func (r *orderRepository) get(db *gorm.DB, id string) (domain.Order, error) {
	var model orderModel
	err := withRelations(db).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}
	return model.toDomain(), nil
}

func (r *orderRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := withRelations(r.db.WithContext(ctx))
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}

	var models []orderModel
	err := query.
		Order("created_at ASC").
		Order("id ASC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	orders := make([]domain.Order, 0, len(models))
	for _, model := range models {
		orders = append(orders, model.toDomain())
	}
	return orders, nil
}

func (r *orderRepository) Count(ctx context.Context, status domain.OrderStatus) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := r.db.WithContext(ctx).Model(&orderModel{})
	if status != "" {
		query = query.Where("status = ?", string(status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return int(total), nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, updatedAt time.Time) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	result := r.db.WithContext(ctx).Model(&orderModel{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(map[string]interface{}{
			"status":     string(to),
			"updated_at": updatedAt,
		})
	if result.Error != nil {
		return domain.Order{}, fmt.Errorf("update order status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		current, err := r.get(r.db.WithContext(ctx), id)
		if err != nil {
			return domain.Order{}, err
		}
		return domain.Order{}, fmt.Errorf("%w: %s -> %s", domain.ErrStatusTransition, current.Status, to)
	}

	return r.get(r.db.WithContext(ctx), id)
}

func (r *orderRepository) MarkPaid(ctx context.Context, update domain.PaidOrderUpdate) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var order domain.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&orderModel{}).
			Where("id = ? AND paid = ? AND status <> ?", update.OrderID, false, string(domain.OrderStatusCancelled)).
			Updates(map[string]interface{}{
				"paid":             true,
				"paid_at":          update.PaidAt,
				"stripe_charge_id": update.StripePaymentID,
				"status":           gorm.Expr("CASE WHEN status = ? THEN ? ELSE status END", string(domain.OrderStatusPending), string(domain.OrderStatusPaid)),
				"updated_at":       update.PaidAt,
			})
		if result.Error != nil {
			return fmt.Errorf("mark order paid: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			current, err := r.get(tx, update.OrderID)
			if err != nil {
				return err
			}
			if current.Paid {
				return domain.ErrOrderAlreadyPaid
			}
			return fmt.Errorf("%w: %s -> %s", domain.ErrStatusTransition, current.Status, domain.OrderStatusPaid)
		}

		receipt := receiptModel{
			ID:         update.Receipt.ID,
			OrderID:    update.OrderID,
			ReceiptURL: update.Receipt.ReceiptURL,
			CreatedAt:  update.Receipt.CreatedAt,
		}
		if err := tx.Create(&receipt).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrOrderAlreadyPaid
			}
			return fmt.Errorf("insert order receipt: %w", err)
		}

		stored, err := r.get(tx, update.OrderID)
		if err != nil {
			return err
		}
		order = stored
		return nil
	})
	if errors.Is(err, domain.ErrOrderAlreadyPaid) {
		stored, getErr := r.get(r.db.WithContext(ctx), update.OrderID)
		if getErr != nil {
			return domain.Order{}, getErr
		}
		return stored, err
	}
	if err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position ASC").Order("id ASC")
		}).
		Preload("Receipt")
}

var _ domain.OrderRepository = (*orderRepository)(nil)
