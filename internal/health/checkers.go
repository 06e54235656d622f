package health

import (
	"context"
	"time"

	"google.golang.org/grpc/connectivity"
)

// SimpleChecker простая проверка с функцией
type SimpleChecker struct {
	name    string
	checkFn func(ctx context.Context) error
}

// NewSimpleChecker создаёт простую проверку
func NewSimpleChecker(name string, checkFn func(ctx context.Context) error) *SimpleChecker {
	return &SimpleChecker{
		name:    name,
		checkFn: checkFn,
	}
}

// Check выполняет проверку
func (c *SimpleChecker) Check(ctx context.Context) Check {
	start := time.Now()
	err := c.checkFn(ctx)
	duration := time.Since(start)

	if err != nil {
		return Check{
			Name:       c.name,
			Status:     StatusUnhealthy,
			Message:    err.Error(),
			DurationMs: duration.Milliseconds(),
		}
	}

	return Check{
		Name:       c.name,
		Status:     StatusHealthy,
		DurationMs: duration.Milliseconds(),
	}
}

// Pinger - хранилище, умеющее проверить подключение.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewStorageChecker проверяет хранилище заказов через Ping.
func NewStorageChecker(name string, pinger Pinger) *SimpleChecker {
	return NewSimpleChecker(name, pinger.Ping)
}

// ConnStater - клиентское gRPC-подключение (*grpc.ClientConn).
type ConnStater interface {
	GetState() connectivity.State
}

// ConnChecker отражает состояние подключения к внешнему сервису:
// Connecting и TransientFailure дают degraded, Shutdown - unhealthy.
type ConnChecker struct {
	name string
	conn ConnStater
}

// NewConnChecker создаёт проверку gRPC-подключения.
func NewConnChecker(name string, conn ConnStater) *ConnChecker {
	return &ConnChecker{name: name, conn: conn}
}

// Check возвращает статус по connectivity.State.
func (c *ConnChecker) Check(context.Context) Check {
	state := c.conn.GetState()
	check := Check{Name: c.name, Message: state.String()}

	switch state {
	case connectivity.Ready, connectivity.Idle:
		check.Status = StatusHealthy
		check.Message = ""
	case connectivity.Connecting, connectivity.TransientFailure:
		check.Status = StatusDegraded
	default:
		check.Status = StatusUnhealthy
	}
	return check
}
