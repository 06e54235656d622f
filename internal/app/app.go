package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/vladislavdragonenkov/orders/internal/gateway"
	healthcheck "github.com/vladislavdragonenkov/orders/internal/health"
	"github.com/vladislavdragonenkov/orders/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/orders/internal/metrics"
	"github.com/vladislavdragonenkov/orders/internal/rpc"
	"github.com/vladislavdragonenkov/orders/internal/rpc/ordersv1"
	grpcsvc "github.com/vladislavdragonenkov/orders/internal/service/grpc"
	"github.com/vladislavdragonenkov/orders/internal/service/orders"
	"github.com/vladislavdragonenkov/orders/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Run собирает зависимости сервиса заказов и обслуживает gRPC до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	storage, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStorage(storage, logger)

	upstreams, err := initUpstreams(cfg, logger)
	if err != nil {
		return err
	}
	defer upstreams.close(logger)

	orderMetrics := metrics.NewOrderMetrics()

	// Kafka опциональна: без брокеров события не публикуются
	kafkaProducer := initKafkaProducer(cfg.Kafka.Brokers, logger)
	defer closeKafkaProducer(kafkaProducer, logger)

	serviceOpts := []orders.Option{orders.WithMetrics(orderMetrics)}
	if kafkaProducer != nil {
		serviceOpts = append(serviceOpts, orders.WithEventPublisher(kafka.NewOrderEventPublisher(kafkaProducer, cfg.Kafka.OrdersTopic)))
	}
	orderSvc := orders.NewService(
		storage.repo,
		upstreams.products,
		upstreams.payments,
		logger.WithField("layer", "service"),
		serviceOpts...,
	)

	consumersCtx, cancelConsumers := context.WithCancel(ctx)
	defer cancelConsumers()
	consumers := startPaymentConsumers(consumersCtx, cfg, orderSvc, orderMetrics, kafkaProducer, logger)

	grpcServer, healthServer := newGRPCServer(orderSvc, logger)

	// HTTP Health checks
	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", storage.storageChecker)
	for name, checker := range upstreams.checkers {
		healthHandler.RegisterChecker(name, checker)
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		shutdownHTTP(metricsSrv, logger)
		stopPaymentConsumers(consumers, logger)
		return err
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Infof("gRPC сервер слушает %s", lis.Addr())
		errCh <- grpcServer.Serve(lis)
	}()

	var gw *gatewayRuntime
	if cfg.HTTPAddr != "" {
		gw, err = startGateway(cfg.HTTPAddr, lis.Addr(), errCh, logger)
		if err != nil {
			grpcServer.Stop()
			shutdownHTTP(metricsSrv, logger)
			stopPaymentConsumers(consumers, logger)
			return err
		}
	}

	shutdown := func() {
		gw.shutdown(logger)
		cancelConsumers()
		stopPaymentConsumers(consumers, logger)
		stopGRPC(grpcServer, healthServer, logger)
		shutdownHTTP(metricsSrv, logger)
	}

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем gRPC сервер")
		shutdown()
		return ctx.Err()
	case err := <-errCh:
		shutdown()
		if errors.Is(err, grpc.ErrServerStopped) || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// newGRPCServer регистрирует OrdersService, reflection и grpc health с метриками Prometheus.
func newGRPCServer(orderSvc grpcsvc.Orders, logger *log.Entry) (*grpc.Server, *health.Server) {
	grpcMetrics := promgrpc.NewServerMetrics()
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))
	if err := prometheus.Register(grpcMetrics); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok2 := are.ExistingCollector.(*promgrpc.ServerMetrics); ok2 {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	ordersv1.RegisterOrdersServiceServer(grpcServer, grpcsvc.NewOrderService(orderSvc, logger.WithField("layer", "grpc")))
	grpcMetrics.InitializeMetrics(grpcServer)

	reflection.Register(grpcServer)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ordersv1.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	return grpcServer, healthServer
}

// stopGRPC останавливает сервер, переводя health в NOT_SERVING.
func stopGRPC(grpcServer *grpc.Server, healthServer *health.Server, logger *log.Entry) {
	healthServer.Shutdown()

	stoppedCh := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stoppedCh)
	}()
	select {
	case <-stoppedCh:
	case <-time.After(shutdownTimeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		grpcServer.Stop()
	}
}

// gatewayRuntime - HTTP-шлюз и его loopback-подключение к gRPC.
type gatewayRuntime struct {
	server *gateway.Server
	conn   *grpc.ClientConn
}

// startGateway поднимает HTTP-шлюз, который ходит в собственный gRPC-сервер.
func startGateway(httpAddr string, grpcAddr net.Addr, errCh chan<- error, logger *log.Entry) (*gatewayRuntime, error) {
	conn, err := rpc.Dial(loopbackTarget(grpcAddr))
	if err != nil {
		return nil, fmt.Errorf("dial orders grpc for gateway: %w", err)
	}

	server := gateway.NewServer(ordersv1.NewOrdersServiceClient(conn), logger.WithField("component", "http-gateway"))
	go func() {
		if err := server.Start(httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http gateway: %w", err)
		}
	}()

	return &gatewayRuntime{server: server, conn: conn}, nil
}

func (g *gatewayRuntime) shutdown(logger *log.Entry) {
	if g == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := g.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http gateway shutdown with error")
	}
	if err := g.conn.Close(); err != nil {
		logger.WithError(err).Warn("failed to close gateway grpc connection")
	}
}

// loopbackTarget превращает адрес прослушивания вида [::]:50051 в адрес для локального клиента.
func loopbackTarget(addr net.Addr) string {
	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok {
		return addr.String()
	}
	host := "127.0.0.1"
	if tcpAddr.IP != nil && !tcpAddr.IP.IsUnspecified() {
		host = tcpAddr.IP.String()
	}
	return net.JoinHostPort(host, fmt.Sprint(tcpAddr.Port))
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus и health-пробы.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	srv := &http.Server{Addr: addr, Handler: newMetricsMux(healthHandler), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

func newMetricsMux(healthHandler *healthcheck.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	return mux
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
