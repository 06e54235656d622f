package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/vladislavdragonenkov/orders/internal/gateway"
	"github.com/vladislavdragonenkov/orders/internal/rpc"
)

func runInBackground(t *testing.T, cfg Config) (context.CancelFunc, <-chan error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, cfg)
	}()
	t.Cleanup(cancel)
	return cancel, done
}

func waitRunStopped(t *testing.T, done <-chan error) error {
	t.Helper()

	select {
	case err := <-done:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not stop in time")
		return nil
	}
}

func TestRun_MemoryGracefulShutdown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"

	cancel, done := runInBackground(t, cfg)
	time.Sleep(150 * time.Millisecond)
	cancel()

	if err := waitRunStopped(t, done); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRun_InvalidStorageDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = "invalid-driver"
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"

	err := Run(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "unsupported storage driver") {
		t.Fatalf("expected unsupported storage driver error, got %v", err)
	}
}

func TestRun_GatewayAndGRPCHealth(t *testing.T) {
	grpcAddr := fmt.Sprintf("127.0.0.1:%d", findFreePort(t))
	httpAddr := fmt.Sprintf("127.0.0.1:%d", findFreePort(t))
	metricsAddr := fmt.Sprintf("127.0.0.1:%d", findFreePort(t))

	cfg := DefaultConfig()
	cfg.GRPCAddr = grpcAddr
	cfg.HTTPAddr = httpAddr
	cfg.MetricsAddr = metricsAddr

	cancel, done := runInBackground(t, cfg)

	waitForHTTP(t, "http://"+metricsAddr+"/livez")
	waitForHTTP(t, "http://"+httpAddr+"/orders")

	body, _ := json.Marshal(map[string]any{
		"items": []map[string]any{{"productId": "1", "quantity": 2}},
	})
	resp, err := http.Post("http://"+httpAddr+"/orders", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /orders: %v", err)
	}
	var created gateway.CreateOrderResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if decodeErr != nil {
		t.Fatalf("decode created order: %v", decodeErr)
	}
	if created.Order == nil || created.Order.Status != "PENDING" || created.Order.TotalItems != 2 {
		t.Fatalf("unexpected created order: %+v", created.Order)
	}
	if created.PaymentSession["orderId"] != created.Order.ID {
		t.Fatalf("payment session must reference the order: %+v", created.PaymentSession)
	}

	resp, err = http.Get("http://" + httpAddr + "/orders/00000000-0000-0000-0000-000000000000")
	if err != nil {
		t.Fatalf("GET /orders/:id: %v", err)
	}
	var notFound rpc.Error
	decodeErr = json.NewDecoder(resp.Body).Decode(&notFound)
	resp.Body.Close()
	if decodeErr != nil {
		t.Fatalf("decode error body: %v", decodeErr)
	}
	if resp.StatusCode != http.StatusNotFound || notFound.StatusCode != http.StatusNotFound {
		t.Fatalf("expected uniform 404, got http=%d body=%+v", resp.StatusCode, notFound)
	}

	conn, err := rpc.Dial(grpcAddr)
	if err != nil {
		t.Fatalf("dial grpc: %v", err)
	}
	defer conn.Close()

	ctx, cancelCheck := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancelCheck()
	healthResp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("grpc health check: %v", err)
	}
	if healthResp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected SERVING, got %s", healthResp.GetStatus())
	}

	cancel()
	if err := waitRunStopped(t, done); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestShutdownHelpers(t *testing.T) {
	logger := log.WithField("test", "shutdown")

	closeKafkaProducer(nil, logger)
	stopPaymentConsumers(nil, logger)

	var gw *gatewayRuntime
	gw.shutdown(logger)

	var upstreams *upstreamDeps
	upstreams.close(logger)
}

func TestStartPaymentConsumers_Disabled(t *testing.T) {
	consumers := startPaymentConsumers(context.Background(), DefaultConfig(), nil, nil, nil, log.WithField("test", "consumers"))
	if len(consumers) != 0 {
		t.Fatalf("expected no consumers without kafka and rabbitmq, got %d", len(consumers))
	}
}

func TestInitUpstreams_MocksWhenAddressesEmpty(t *testing.T) {
	deps, err := initUpstreams(DefaultConfig(), log.WithField("test", "upstreams"))
	if err != nil {
		t.Fatalf("initUpstreams failed: %v", err)
	}
	defer deps.close(log.WithField("test", "upstreams"))

	if deps.products == nil || deps.payments == nil {
		t.Fatal("expected mock upstreams")
	}
	if len(deps.checkers) != 0 || len(deps.conns) != 0 {
		t.Fatalf("mock upstreams must not open connections: %+v", deps)
	}

	products, err := deps.products.ValidateProducts(context.Background(), []string{"1", "404"})
	if err != nil {
		t.Fatalf("validate products: %v", err)
	}
	if len(products) != 1 || products[0].ID != "1" {
		t.Fatalf("unexpected dev catalog lookup: %+v", products)
	}
}

func TestInitUpstreams_RealClients(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ProductsAddr = "127.0.0.1:1"
	cfg.PaymentsAddr = "127.0.0.1:2"

	deps, err := initUpstreams(cfg, log.WithField("test", "upstreams"))
	if err != nil {
		t.Fatalf("initUpstreams failed: %v", err)
	}
	defer deps.close(log.WithField("test", "upstreams"))

	if len(deps.conns) != 2 {
		t.Fatalf("expected 2 upstream connections, got %d", len(deps.conns))
	}
	if _, ok := deps.checkers["products"]; !ok {
		t.Fatal("expected products connection checker")
	}
	if _, ok := deps.checkers["payments"]; !ok {
		t.Fatal("expected payments connection checker")
	}
}
