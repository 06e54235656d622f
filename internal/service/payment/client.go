package payment

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/rpc"
	"github.com/vladislavdragonenkov/orders/internal/rpc/paymentsv1"
)

// ServiceName используется в UpstreamError и логах.
const ServiceName = "payments"

// Client создаёт платёжные сессии через платёжный сервис.
type Client struct {
	client  paymentsv1.PaymentsServiceClient
	timeout time.Duration
	logger  *log.Entry
}

// NewClient создаёт клиента; timeout <= 0 отключает собственный дедлайн вызова.
func NewClient(cc grpc.ClientConnInterface, timeout time.Duration, logger *log.Entry) *Client {
	if logger == nil {
		logger = log.New().WithField("component", "payment-client")
	}
	return &Client{
		client:  paymentsv1.NewPaymentsServiceClient(cc),
		timeout: timeout,
		logger:  logger,
	}
}

// CreatePaymentSession возвращает описание сессии без изменений.
func (c *Client) CreatePaymentSession(ctx context.Context, req domain.PaymentSessionRequest) (domain.PaymentSession, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	items := make([]paymentsv1.SessionItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, paymentsv1.SessionItem{
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
		})
	}

	session, err := c.client.CreatePaymentSession(ctx, &paymentsv1.CreatePaymentSessionRequest{
		OrderID:  req.OrderID,
		Currency: req.Currency,
		Items:    items,
	})
	if err != nil {
		upstreamErr := rpc.UpstreamError(ServiceName, err)
		c.logger.WithError(upstreamErr).WithField("order_id", req.OrderID).Warn("create payment session failed")
		return nil, upstreamErr
	}

	return domain.PaymentSession(session.AsMap()), nil
}

var _ domain.PaymentService = (*Client)(nil)
