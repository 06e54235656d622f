// Команда loadtest нагружает OrdersService по gRPC и печатает сводку задержек.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/orders/internal/rpc"
	"github.com/vladislavdragonenkov/orders/internal/rpc/ordersv1"
)

type loadMode string

const (
	modeCreate       loadMode = "create"
	modeCreateRead   loadMode = "create-read"
	modeCreatePay    loadMode = "create-pay"
	modeCreateCancel loadMode = "create-cancel"
)

type config struct {
	addr        string
	total       int
	totalSet    bool
	duration    time.Duration
	concurrency int
	connections int
	timeout     time.Duration
	mode        loadMode
	products    []string
	quantity    int
	pageLimit   int
	outputPath  string
}

func parseConfig(fs *flag.FlagSet, args []string) (config, error) {
	var (
		cfg         config
		modeValue   string
		productsRaw string
	)

	fs.StringVar(&cfg.addr, "addr", "localhost:50051", "gRPC target address")
	fs.IntVar(&cfg.total, "total", 400, "total scenarios in count mode; with -duration only used when explicitly set")
	fs.DurationVar(&cfg.duration, "duration", 0, "optional time-based run duration (e.g. 10m)")
	fs.IntVar(&cfg.concurrency, "concurrency", 40, "number of concurrent workers")
	fs.IntVar(&cfg.connections, "connections", 20, "number of gRPC client connections")
	fs.DurationVar(&cfg.timeout, "timeout", 5*time.Second, "per-RPC timeout")
	fs.StringVar(&modeValue, "mode", string(modeCreate), "load mode: create | create-read | create-pay | create-cancel")
	fs.StringVar(&productsRaw, "products", "1,2,3", "comma-separated product ids cycled across scenarios")
	fs.IntVar(&cfg.quantity, "quantity", 1, "quantity per order item")
	fs.IntVar(&cfg.pageLimit, "page-limit", 10, "page size for FindAllOrders in create-read mode")
	fs.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})

	mode, err := parseMode(modeValue)
	if err != nil {
		return cfg, err
	}
	cfg.mode = mode

	for _, id := range strings.Split(productsRaw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			cfg.products = append(cfg.products, id)
		}
	}

	switch {
	case cfg.duration < 0:
		return cfg, errors.New("duration must be >= 0")
	case cfg.duration == 0 && cfg.total <= 0:
		return cfg, errors.New("total must be > 0 when duration is not set")
	case cfg.duration > 0 && cfg.totalSet && cfg.total <= 0:
		return cfg, errors.New("total must be > 0 when explicitly set with duration")
	case cfg.concurrency <= 0:
		return cfg, errors.New("concurrency must be > 0")
	case cfg.connections <= 0:
		return cfg, errors.New("connections must be > 0")
	case cfg.timeout <= 0:
		return cfg, errors.New("timeout must be > 0")
	case len(cfg.products) == 0:
		return cfg, errors.New("at least one product id is required")
	case cfg.quantity <= 0:
		return cfg, errors.New("quantity must be > 0")
	case cfg.pageLimit <= 0:
		return cfg, errors.New("page-limit must be > 0")
	}

	return cfg, nil
}

func parseMode(value string) (loadMode, error) {
	switch mode := loadMode(strings.TrimSpace(value)); mode {
	case modeCreate, modeCreateRead, modeCreatePay, modeCreateCancel:
		return mode, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
}

func main() {
	cfg, err := parseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	conns := make([]*grpc.ClientConn, 0, cfg.connections)
	defer func() {
		for _, conn := range conns {
			_ = conn.Close()
		}
	}()

	clients := make([]ordersv1.OrdersServiceClient, 0, cfg.connections)
	for i := 0; i < cfg.connections; i++ {
		conn, dialErr := rpc.Dial(cfg.addr)
		if dialErr != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to create grpc client connection: %v\n", dialErr)
			os.Exit(1)
		}
		conns = append(conns, conn)
		clients = append(clients, ordersv1.NewOrdersServiceClient(conn))
	}

	result := runLoad(clients, cfg)
	printReport(os.Stdout, result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}

	if result.FailedScenarios > 0 {
		os.Exit(1)
	}
}

// runLoad распределяет сценарии между воркерами и собирает отчёт.
func runLoad(clients []ordersv1.OrdersServiceClient, cfg config) report {
	startedAt := time.Now()
	col := newCollector()
	jobs := make(chan int, cfg.concurrency*2)

	var wg sync.WaitGroup
	for workerID := 0; workerID < cfg.concurrency; workerID++ {
		wg.Add(1)
		go func(cli ordersv1.OrdersServiceClient) {
			defer wg.Done()
			for index := range jobs {
				_ = runScenario(cli, cfg, index, col)
			}
		}(clients[workerID%len(clients)])
	}

	dispatchJobs(jobs, cfg)
	wg.Wait()

	return col.buildReport(startedAt, time.Since(startedAt))
}

func dispatchJobs(jobs chan<- int, cfg config) {
	defer close(jobs)

	if cfg.duration <= 0 {
		for i := 0; i < cfg.total; i++ {
			jobs <- i
		}
		return
	}

	timer := time.NewTimer(cfg.duration)
	defer timer.Stop()

	for i := 0; ; i++ {
		if cfg.totalSet && i >= cfg.total {
			return
		}
		select {
		case <-timer.C:
			return
		case jobs <- i:
		}
	}
}

func runScenario(client ordersv1.OrdersServiceClient, cfg config, index int, col *collector) (err error) {
	started := time.Now()
	defer func() {
		col.record(scenarioMethod, time.Since(started), grpcCode(err))
	}()

	productID := cfg.products[index%len(cfg.products)]
	var order *ordersv1.Order
	err = timedCall(col, "CreateOrder", cfg.timeout, func(ctx context.Context) error {
		var callErr error
		order, callErr = client.CreateOrder(ctx, &ordersv1.CreateOrderRequest{
			Items: []ordersv1.CreateOrderItem{{ProductID: productID, Quantity: int32(cfg.quantity)}},
		})
		return callErr
	})
	if err != nil {
		return err
	}
	if order == nil || order.ID == "" {
		return status.Error(codes.Internal, "create response returned empty order id")
	}

	switch cfg.mode {
	case modeCreateRead:
		err = timedCall(col, "FindOneOrder", cfg.timeout, func(ctx context.Context) error {
			_, callErr := client.FindOneOrder(ctx, &ordersv1.FindOneOrderRequest{ID: order.ID})
			return callErr
		})
		if err != nil {
			return err
		}
		return timedCall(col, "FindAllOrders", cfg.timeout, func(ctx context.Context) error {
			_, callErr := client.FindAllOrders(ctx, &ordersv1.FindAllOrdersRequest{Page: 1, Limit: int32(cfg.pageLimit)})
			return callErr
		})
	case modeCreatePay:
		err = timedCall(col, "PaidOrder", cfg.timeout, func(ctx context.Context) error {
			_, callErr := client.PaidOrder(ctx, &ordersv1.PaidOrderRequest{
				OrderID:         order.ID,
				StripePaymentID: fmt.Sprintf("ch_load_%d", index),
				ReceiptURL:      fmt.Sprintf("https://pay.example/receipts/load-%d", index),
			})
			return callErr
		})
		if err != nil {
			return err
		}
		return changeStatus(client, cfg, col, order.ID, "DELIVERED")
	case modeCreateCancel:
		return changeStatus(client, cfg, col, order.ID, "CANCELLED")
	default:
		return nil
	}
}

func changeStatus(client ordersv1.OrdersServiceClient, cfg config, col *collector, orderID, target string) error {
	return timedCall(col, "ChangeOrderStatus", cfg.timeout, func(ctx context.Context) error {
		_, err := client.ChangeOrderStatus(ctx, &ordersv1.ChangeOrderStatusRequest{ID: orderID, Status: target})
		return err
	})
}

func timedCall(col *collector, method string, timeout time.Duration, fn func(context.Context) error) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := fn(ctx)
	col.record(method, time.Since(start), grpcCode(err))
	return err
}

func grpcCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	return status.Code(err)
}
