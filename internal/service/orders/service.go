// Package orders содержит бизнес-логику сервиса заказов.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/metrics"
	"github.com/vladislavdragonenkov/orders/internal/rpc"
)

const (
	operationCreate               = "create"
	operationFindAll              = "find_all"
	operationFindOne              = "find_one"
	operationChangeStatus         = "change_status"
	operationCreatePaymentSession = "create_payment_session"
	operationPaidOrder            = "paid_order"

	upstreamProducts = "products"
	upstreamPayments = "payments"
)

// Service — единственный компонент с бизнес-логикой: проверка товаров, расчёт итогов,
// жизненный цикл статусов и фиксация оплаты.
type Service struct {
	repo     domain.OrderRepository
	products domain.ProductService
	payments domain.PaymentService
	events   domain.EventPublisher
	metrics  *metrics.OrderMetrics
	logger   *log.Entry

	now   func() time.Time
	newID func() string
}

// Option настраивает необязательные зависимости сервиса.
type Option func(*Service)

// WithEventPublisher включает публикацию событий жизненного цикла.
func WithEventPublisher(publisher domain.EventPublisher) Option {
	return func(s *Service) {
		s.events = publisher
	}
}

// WithMetrics включает запись метрик.
func WithMetrics(m *metrics.OrderMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator подменяет генератор идентификаторов.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		s.newID = newID
	}
}

// NewService конструирует сервис заказов.
func NewService(
	repo domain.OrderRepository,
	products domain.ProductService,
	payments domain.PaymentService,
	logger *log.Entry,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "orders")
	}
	s := &Service{
		repo:     repo,
		products: products,
		payments: payments,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create проверяет позиции, сверяет товары с сервисом товаров и сохраняет заказ в статусе PENDING.
// Возвращённый заказ содержит названия товаров в позициях.
func (s *Service) Create(ctx context.Context, items []domain.ItemRequest) (order domain.Order, err error) {
	defer s.observe(operationCreate, time.Now(), &err)

	if err := domain.ValidateItemRequests(items); err != nil {
		return domain.Order{}, err
	}

	products, err := s.validateProducts(ctx, domain.DistinctProductIDs(items))
	if err != nil {
		return domain.Order{}, err
	}

	order, err = domain.NewOrder(s.newID(), items, products, s.now(), s.newID)
	if err != nil {
		return domain.Order{}, err
	}

	if err := s.repo.Create(ctx, order); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Error("failed to create order")
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}

	s.logger.WithFields(log.Fields{
		"order_id":     order.ID,
		"total_amount": order.TotalAmount.StringFixed(2),
		"total_items":  order.TotalItems,
	}).Info("order created")
	s.metrics.RecordOrderCreated()
	s.publish(ctx, domain.EventOrderCreated, order)

	return order, nil
}

// FindAll возвращает страницу заказов и метаданные пагинации.
func (s *Service) FindAll(ctx context.Context, req domain.PageRequest) (page domain.OrderPage, err error) {
	defer s.observe(operationFindAll, time.Now(), &err)

	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return domain.OrderPage{}, err
	}

	total, err := s.repo.Count(ctx, req.Status)
	if err != nil {
		s.logger.WithError(err).Error("failed to count orders")
		return domain.OrderPage{}, fmt.Errorf("count orders: %w", err)
	}

	data, err := s.repo.List(ctx, domain.ListFilter{
		Status: req.Status,
		Offset: req.Offset(),
		Limit:  req.Limit,
	})
	if err != nil {
		s.logger.WithError(err).Error("failed to list orders")
		return domain.OrderPage{}, fmt.Errorf("list orders: %w", err)
	}

	return domain.OrderPage{
		Data: data,
		Meta: domain.PageMeta{
			Total:    total,
			Page:     req.Page,
			LastPage: domain.LastPage(total, req.Limit),
		},
	}, nil
}

// FindOne загружает заказ и подставляет названия товаров.
func (s *Service) FindOne(ctx context.Context, id string) (order domain.Order, err error) {
	defer s.observe(operationFindOne, time.Now(), &err)

	order, err = s.load(ctx, id, operationFindOne)
	if err != nil {
		return domain.Order{}, err
	}

	products, err := s.validateProducts(ctx, order.ProductIDs())
	if err != nil {
		return domain.Order{}, err
	}
	return order.WithProductNames(products)
}

// ChangeOrderStatus переводит заказ в новый статус по графу жизненного цикла.
// Повторная установка текущего статуса ничего не записывает.
func (s *Service) ChangeOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (order domain.Order, err error) {
	defer s.observe(operationChangeStatus, time.Now(), &err)

	if !status.Valid() {
		return domain.Order{}, fmt.Errorf("%w %q", domain.ErrOrderStatusInvalid, status)
	}

	order, err = s.load(ctx, id, operationChangeStatus)
	if err != nil {
		return domain.Order{}, err
	}
	if order.Status == status {
		return order, nil
	}
	if !order.Status.CanTransitionTo(status) {
		return domain.Order{}, fmt.Errorf("%w: %s -> %s", domain.ErrStatusTransition, order.Status, status)
	}

	// Запись проходит только если статус не поменялся после чтения.
	previous := order.Status
	updated, err := s.repo.UpdateStatus(ctx, order.ID, previous, status, s.now())
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrStatusTransition):
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("order status changed concurrently")
		return domain.Order{}, err
	case errors.Is(err, domain.ErrOrderNotFound):
		s.logger.WithError(err).WithField("order_id", order.ID).Error("failed to update order status")
		return domain.Order{}, err
	default:
		s.logger.WithError(err).WithField("order_id", order.ID).Error("failed to update order status")
		return domain.Order{}, fmt.Errorf("update order status: %w", err)
	}

	s.logger.WithFields(log.Fields{
		"order_id": updated.ID,
		"from":     previous,
		"to":       updated.Status,
	}).Info("order status changed")
	s.metrics.RecordStatusChange(string(previous), string(updated.Status))
	s.publish(ctx, domain.EventOrderStatusChanged, updated)

	return updated, nil
}

// CreatePaymentSession запрашивает платёжную сессию по заказу с названиями товаров.
// Ответ провайдера возвращается без изменений, ошибки платёжного сервиса не переводятся.
func (s *Service) CreatePaymentSession(ctx context.Context, order domain.Order) (session domain.PaymentSession, err error) {
	defer s.observe(operationCreatePaymentSession, time.Now(), &err)

	if strings.TrimSpace(order.ID) == "" {
		return nil, domain.ErrOrderIDRequired
	}

	start := time.Now()
	session, err = s.payments.CreatePaymentSession(ctx, domain.NewPaymentSessionRequest(order))
	s.metrics.RecordUpstreamCall(upstreamPayments, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// PaidOrder фиксирует подтверждённую оплату: paid, paidAt, ссылку на платёж, статус PAID и чек.
// Повторное уведомление по уже оплаченному заказу возвращает сохранённый заказ без второго чека.
// Оплата отменённого заказа отклоняется с ErrStatusTransition.
func (s *Service) PaidOrder(ctx context.Context, confirmation domain.PaymentConfirmation) (order domain.Order, err error) {
	defer s.observe(operationPaidOrder, time.Now(), &err)

	if err := confirmation.Validate(); err != nil {
		return domain.Order{}, err
	}

	now := s.now()
	order, err = s.repo.MarkPaid(ctx, domain.PaidOrderUpdate{
		OrderID:         confirmation.OrderID,
		StripePaymentID: confirmation.StripePaymentID,
		PaidAt:          now,
		Receipt: domain.OrderReceipt{
			ID:         s.newID(),
			OrderID:    confirmation.OrderID,
			ReceiptURL: confirmation.ReceiptURL,
			CreatedAt:  now,
		},
	})
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrOrderAlreadyPaid):
		s.logger.WithField("order_id", confirmation.OrderID).Info("повторное уведомление об оплате, заказ уже оплачен")
		return order, nil
	case errors.Is(err, domain.ErrOrderNotFound):
		s.logger.WithField("order_id", confirmation.OrderID).Warn("payment confirmation for unknown order")
		return domain.Order{}, err
	case errors.Is(err, domain.ErrStatusTransition):
		s.logger.WithError(err).WithField("order_id", confirmation.OrderID).Warn("payment confirmation for cancelled order")
		return domain.Order{}, err
	default:
		s.logger.WithError(err).WithField("order_id", confirmation.OrderID).Error("failed to mark order paid")
		return domain.Order{}, fmt.Errorf("mark order paid: %w", err)
	}

	s.logger.WithFields(log.Fields{
		"order_id":          order.ID,
		"stripe_payment_id": confirmation.StripePaymentID,
	}).Info("order paid")
	s.metrics.RecordOrderPaid()
	s.publish(ctx, domain.EventOrderPaid, order)

	return order, nil
}

func (s *Service) load(ctx context.Context, id, operation string) (domain.Order, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Order{}, domain.ErrOrderIDRequired
	}

	order, err := s.repo.Get(ctx, id)
	if err == nil {
		return order, nil
	}

	s.logger.WithError(err).WithFields(log.Fields{
		"operation": operation,
		"order_id":  id,
	}).Warn("failed to load order")

	if errors.Is(err, domain.ErrOrderNotFound) {
		return domain.Order{}, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
	}
	return domain.Order{}, fmt.Errorf("load order: %w", err)
}

func (s *Service) validateProducts(ctx context.Context, ids []string) ([]domain.Product, error) {
	start := time.Now()
	products, err := s.products.ValidateProducts(ctx, ids)
	s.metrics.RecordUpstreamCall(upstreamProducts, time.Since(start), err)
	return products, err
}

func (s *Service) publish(ctx context.Context, eventType domain.EventType, order domain.Order) {
	if s.events == nil {
		return
	}
	err := s.events.PublishOrderEvent(ctx, eventType, order)
	s.metrics.RecordEventPublished(string(eventType), err)
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Warn("failed to publish order event")
	}
}

func (s *Service) observe(operation string, start time.Time, errp *error) {
	statusCode := 0
	if errp != nil && *errp != nil {
		statusCode = rpc.FromDomain(*errp).StatusCode
	}
	s.metrics.RecordOperation(operation, time.Since(start), statusCode)
}
