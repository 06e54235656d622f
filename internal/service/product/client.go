package product

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/rpc"
	"github.com/vladislavdragonenkov/orders/internal/rpc/productsv1"
)

// ServiceName используется в UpstreamError и логах.
const ServiceName = "products"

// Client обращается к сервису товаров по gRPC.
type Client struct {
	client  productsv1.ProductsServiceClient
	timeout time.Duration
	retry   rpc.RetryConfig
	breaker *rpc.CircuitBreaker
	logger  *log.Entry
}

// Option настраивает Client.
type Option func(*Client)

// WithRetry включает повторы временных отказов. Запрос товаров идемпотентен.
func WithRetry(cfg rpc.RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithCircuitBreaker пропускает вызовы через breaker.
func WithCircuitBreaker(breaker *rpc.CircuitBreaker) Option {
	return func(c *Client) { c.breaker = breaker }
}

// NewClient создаёт клиента; timeout <= 0 отключает собственный дедлайн вызова.
// Дедлайн действует на каждую попытку отдельно.
func NewClient(cc grpc.ClientConnInterface, timeout time.Duration, logger *log.Entry, opts ...Option) *Client {
	if logger == nil {
		logger = log.New().WithField("component", "product-client")
	}
	c := &Client{
		client:  productsv1.NewProductsServiceClient(cc),
		timeout: timeout,
		retry:   rpc.RetryConfig{MaxAttempts: 1},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ValidateProducts запрашивает товары по идентификаторам.
// Отказ сервиса возвращается как domain.UpstreamError с исходным кодом.
func (c *Client) ValidateProducts(ctx context.Context, ids []string) ([]domain.Product, error) {
	req := productsv1.ValidateProductsRequest(ids)

	var resp *productsv1.ValidateProductsResponse
	err := rpc.Retry(ctx, c.retry, c.logger, "ValidateProducts", func(ctx context.Context) error {
		var callErr error
		resp, callErr = c.call(ctx, &req)
		return callErr
	})
	if err != nil {
		upstreamErr := rpc.UpstreamError(ServiceName, err)
		c.logger.WithError(upstreamErr).WithField("product_ids", ids).Warn("validate products failed")
		return nil, upstreamErr
	}

	products := make([]domain.Product, 0, len(*resp))
	for _, p := range *resp {
		products = append(products, domain.Product{
			ID:    p.ID,
			Name:  p.Name,
			Price: p.Price,
		})
	}
	return products, nil
}

func (c *Client) call(ctx context.Context, req *productsv1.ValidateProductsRequest) (*productsv1.ValidateProductsResponse, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if c.breaker == nil {
		return c.client.ValidateProducts(ctx, req)
	}

	var resp *productsv1.ValidateProductsResponse
	err := c.breaker.Execute("ValidateProducts", func() error {
		var callErr error
		resp, callErr = c.client.ValidateProducts(ctx, req)
		return callErr
	})
	if errors.Is(err, rpc.ErrCircuitOpen) {
		return nil, status.Error(codes.Unavailable, "products service is unavailable")
	}
	return resp, err
}

var _ domain.ProductService = (*Client)(nil)
