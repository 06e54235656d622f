package grpcsvc

import (
	"context"
	"net/http"

	log "github.com/sirupsen/logrus"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/rpc"
	"github.com/vladislavdragonenkov/orders/internal/rpc/ordersv1"
)

// Orders — операции сервиса заказов, доступные через gRPC.
type Orders interface {
	Create(ctx context.Context, items []domain.ItemRequest) (domain.Order, error)
	FindAll(ctx context.Context, req domain.PageRequest) (domain.OrderPage, error)
	FindOne(ctx context.Context, id string) (domain.Order, error)
	ChangeOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.Order, error)
	CreatePaymentSession(ctx context.Context, order domain.Order) (domain.PaymentSession, error)
	PaidOrder(ctx context.Context, confirmation domain.PaymentConfirmation) (domain.Order, error)
}

// OrderService реализует gRPC API поверх сервиса заказов.
type OrderService struct {
	orders Orders
	logger *log.Entry
}

// NewOrderService конструирует gRPC-обработчик.
func NewOrderService(orders Orders, logger *log.Entry) *OrderService {
	if logger == nil {
		logger = log.New().WithField("component", "order-grpc")
	}
	return &OrderService{
		orders: orders,
		logger: logger,
	}
}

// CreateOrder создаёт заказ.
func (s *OrderService) CreateOrder(ctx context.Context, req *ordersv1.CreateOrderRequest) (*ordersv1.Order, error) {
	if req == nil {
		return nil, rpc.NewError(http.StatusBadRequest, "request is required")
	}

	items := make([]domain.ItemRequest, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, domain.ItemRequest{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	order, err := s.orders.Create(ctx, items)
	if err != nil {
		return nil, s.fail("CreateOrder", "", err)
	}
	return toWireOrder(order), nil
}

// FindAllOrders возвращает страницу заказов.
func (s *OrderService) FindAllOrders(ctx context.Context, req *ordersv1.FindAllOrdersRequest) (*ordersv1.FindAllOrdersResponse, error) {
	if req == nil {
		req = &ordersv1.FindAllOrdersRequest{}
	}

	pageReq := domain.PageRequest{Page: int(req.Page), Limit: int(req.Limit)}
	if req.Status != "" {
		status, err := domain.ParseOrderStatus(req.Status)
		if err != nil {
			return nil, s.fail("FindAllOrders", "", err)
		}
		pageReq.Status = status
	}

	page, err := s.orders.FindAll(ctx, pageReq)
	if err != nil {
		return nil, s.fail("FindAllOrders", "", err)
	}

	data := make([]ordersv1.Order, 0, len(page.Data))
	for _, order := range page.Data {
		data = append(data, *toWireOrder(order))
	}
	return &ordersv1.FindAllOrdersResponse{
		Data: data,
		Meta: ordersv1.PageMeta{
			Total:    int32(page.Meta.Total),    //nolint:gosec // размер выборки ограничен хранилищем
			Page:     int32(page.Meta.Page),     //nolint:gosec // номер страницы пришёл из int32
			LastPage: int32(page.Meta.LastPage), //nolint:gosec // не больше Total
		},
	}, nil
}

// FindOneOrder возвращает заказ с названиями товаров.
func (s *OrderService) FindOneOrder(ctx context.Context, req *ordersv1.FindOneOrderRequest) (*ordersv1.Order, error) {
	if req == nil || req.ID == "" {
		return nil, s.fail("FindOneOrder", "", domain.ErrOrderIDRequired)
	}

	order, err := s.orders.FindOne(ctx, req.ID)
	if err != nil {
		return nil, s.fail("FindOneOrder", req.ID, err)
	}
	return toWireOrder(order), nil
}

// ChangeOrderStatus меняет статус заказа.
func (s *OrderService) ChangeOrderStatus(ctx context.Context, req *ordersv1.ChangeOrderStatusRequest) (*ordersv1.Order, error) {
	if req == nil || req.ID == "" {
		return nil, s.fail("ChangeOrderStatus", "", domain.ErrOrderIDRequired)
	}

	status, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		return nil, s.fail("ChangeOrderStatus", req.ID, err)
	}

	order, err := s.orders.ChangeOrderStatus(ctx, req.ID, status)
	if err != nil {
		return nil, s.fail("ChangeOrderStatus", req.ID, err)
	}
	return toWireOrder(order), nil
}

// CreatePaymentSession создаёт платёжную сессию для заказа с названиями товаров.
func (s *OrderService) CreatePaymentSession(ctx context.Context, req *ordersv1.Order) (*structpb.Struct, error) {
	if req == nil {
		return nil, s.fail("CreatePaymentSession", "", domain.ErrOrderIDRequired)
	}

	session, err := s.orders.CreatePaymentSession(ctx, fromWireOrder(req))
	if err != nil {
		return nil, s.fail("CreatePaymentSession", req.ID, err)
	}

	result, err := structpb.NewStruct(session)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", req.ID).Error("payment session is not a JSON object")
		return nil, rpc.NewError(http.StatusBadGateway, "payment session has unsupported format")
	}
	return result, nil
}

// PaidOrder принимает уведомление об успешной оплате.
func (s *OrderService) PaidOrder(ctx context.Context, req *ordersv1.PaidOrderRequest) (*ordersv1.Order, error) {
	if req == nil {
		return nil, s.fail("PaidOrder", "", domain.ErrOrderIDRequired)
	}

	order, err := s.orders.PaidOrder(ctx, domain.PaymentConfirmation{
		OrderID:         req.OrderID,
		StripePaymentID: req.StripePaymentID,
		ReceiptURL:      req.ReceiptURL,
	})
	if err != nil {
		return nil, s.fail("PaidOrder", req.OrderID, err)
	}
	return toWireOrder(order), nil
}

// fail переводит ошибку в единый формат и пишет её в лог.
func (s *OrderService) fail(operation, orderID string, err error) error {
	rpcErr := rpc.FromDomain(err)

	entry := s.logger.WithError(err).WithFields(log.Fields{
		"operation":   operation,
		"status_code": rpcErr.StatusCode,
	})
	if orderID != "" {
		entry = entry.WithField("order_id", orderID)
	}
	if rpcErr.StatusCode >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}
	return rpcErr
}

var _ ordersv1.OrdersServiceServer = (*OrderService)(nil)
