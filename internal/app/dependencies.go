package app

import (
	"fmt"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/orders/internal/health"
	"github.com/vladislavdragonenkov/orders/internal/rpc"
	"github.com/vladislavdragonenkov/orders/internal/service/payment"
	"github.com/vladislavdragonenkov/orders/internal/service/product"
)

// upstreamDeps содержит клиентов внешних сервисов и их подключения.
type upstreamDeps struct {
	products domain.ProductService
	payments domain.PaymentService
	checkers map[string]healthcheck.Checker
	conns    []*grpc.ClientConn
}

// initUpstreams подключается к сервисам продуктов и платежей.
// NOTE: пустой адрес означает локальную заглушку; подходит только для разработки.
func initUpstreams(cfg Config, logger *log.Entry) (*upstreamDeps, error) {
	deps := &upstreamDeps{checkers: make(map[string]healthcheck.Checker)}

	if cfg.ProductsAddr == "" {
		logger.Warn("ORDERS_PRODUCTS_ADDR не задан, используем mock products service")
		deps.products = product.NewMockService(devCatalog()...)
	} else {
		conn, err := rpc.Dial(cfg.ProductsAddr)
		if err != nil {
			return nil, fmt.Errorf("dial products service: %w", err)
		}
		deps.conns = append(deps.conns, conn)
		productsLogger := logger.WithField("upstream", "products")
		retry := rpc.DefaultRetryConfig()
		retry.MaxAttempts = cfg.UpstreamRetryAttempts
		deps.products = product.NewClient(conn, cfg.UpstreamTimeout, productsLogger,
			product.WithRetry(retry),
			product.WithCircuitBreaker(rpc.NewCircuitBreaker(cfg.UpstreamBreakerFailures, cfg.UpstreamBreakerReset, productsLogger)),
		)
		deps.checkers["products"] = healthcheck.NewConnChecker("products", conn)
	}

	if cfg.PaymentsAddr == "" {
		logger.Warn("ORDERS_PAYMENTS_ADDR не задан, используем mock payments service")
		deps.payments = payment.NewMockService()
	} else {
		conn, err := rpc.Dial(cfg.PaymentsAddr)
		if err != nil {
			deps.close(logger)
			return nil, fmt.Errorf("dial payments service: %w", err)
		}
		deps.conns = append(deps.conns, conn)
		deps.payments = payment.NewClient(conn, cfg.UpstreamTimeout, logger.WithField("upstream", "payments"))
		deps.checkers["payments"] = healthcheck.NewConnChecker("payments", conn)
	}

	return deps, nil
}

func (d *upstreamDeps) close(logger *log.Entry) {
	if d == nil {
		return
	}
	for _, conn := range d.conns {
		if err := conn.Close(); err != nil {
			logger.WithError(err).Warn("failed to close upstream connection")
		}
	}
	d.conns = nil
}

// devCatalog - товары локальной заглушки каталога.
func devCatalog() []domain.Product {
	return []domain.Product{
		{ID: "1", Name: "Mechanical keyboard", Price: decimal.RequireFromString("89.90")},
		{ID: "2", Name: "Wireless mouse", Price: decimal.RequireFromString("24.50")},
		{ID: "3", Name: "USB-C hub", Price: decimal.RequireFromString("39.00")},
	}
}
