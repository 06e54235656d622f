// Package gateway публикует операции сервиса заказов по HTTP/JSON поверх gRPC-клиента.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/rpc/ordersv1"
)

// Server - HTTP-шлюз заказов.
type Server struct {
	echo    *echo.Echo
	handler *OrdersHandler
	logger  *log.Entry
}

// NewServer собирает echo-сервер с маршрутами /orders.
func NewServer(client ordersv1.OrdersServiceClient, logger *log.Entry) *Server {
	if logger == nil {
		logger = log.WithField("component", "http-gateway")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewErrorHandler(logger)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			entry := logger.WithFields(log.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency_ms": v.Latency.Milliseconds(),
			})
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Debug("http request")
			return nil
		},
	}))

	s := &Server{
		echo:    e,
		handler: NewOrdersHandler(client),
		logger:  logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	orders := s.echo.Group("/orders")
	orders.POST("", s.handler.Create)
	orders.GET("", s.handler.FindAll)
	// статический /paid имеет приоритет над /:id
	orders.POST("/paid", s.handler.Paid)
	orders.GET("/:id", s.handler.FindOne)
	orders.PATCH("/:id", s.handler.ChangeStatus)
}

// ServeHTTP позволяет использовать шлюз как http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start запускает HTTP-сервер и блокируется до остановки.
func (s *Server) Start(address string) error {
	s.logger.WithField("addr", address).Info("http gateway listening")
	if err := s.echo.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown корректно останавливает сервер.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}
