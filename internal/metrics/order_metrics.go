package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics содержит метрики операций с заказами.
// Все методы безопасны для nil-получателя.
type OrderMetrics struct {
	// Счётчики бизнес-событий
	ordersCreated prometheus.Counter
	ordersPaid    prometheus.Counter
	statusChanges *prometheus.CounterVec

	// Операции сервиса
	operationDuration *prometheus.HistogramVec
	operationErrors   *prometheus.CounterVec

	// Внешние вызовы
	upstreamDuration *prometheus.HistogramVec

	// Сообщения
	eventsPublished *prometheus.CounterVec
	paymentEvents   *prometheus.CounterVec
}

// NewOrderMetrics регистрирует метрики в глобальном реестре Prometheus.
func NewOrderMetrics() *OrderMetrics {
	return NewOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewOrderMetricsWithRegisterer регистрирует метрики в переданном реестре.
func NewOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Total number of orders created",
		}),
		ordersPaid: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orders_paid_total",
			Help: "Total number of orders marked as paid",
		}),
		statusChanges: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "orders_status_changes_total",
			Help: "Total number of order status transitions",
		}, []string{"from", "to"}),
		operationDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "orders_operation_duration_seconds",
			Help:    "Duration of orders service operations in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		operationErrors: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "orders_operation_errors_total",
			Help: "Total number of failed orders service operations by status code",
		}, []string{"operation", "status_code"}),
		upstreamDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "orders_upstream_duration_seconds",
			Help:    "Duration of calls to product and payment services in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}, []string{"service", "result"}),
		eventsPublished: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "orders_events_published_total",
			Help: "Total number of order lifecycle events published",
		}, []string{"type", "result"}),
		paymentEvents: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "orders_payment_events_total",
			Help: "Total number of inbound payment events processed",
		}, []string{"source", "result"}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *OrderMetrics) RecordOrderCreated() {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
}

// RecordOrderPaid увеличивает счётчик оплаченных заказов.
func (m *OrderMetrics) RecordOrderPaid() {
	if m == nil {
		return
	}
	m.ordersPaid.Inc()
}

// RecordStatusChange учитывает переход статуса.
func (m *OrderMetrics) RecordStatusChange(from, to string) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(from, to).Inc()
}

// RecordOperation записывает длительность операции и, при ошибке, её HTTP-код.
func (m *OrderMetrics) RecordOperation(operation string, duration time.Duration, statusCode int) {
	if m == nil {
		return
	}
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if statusCode != 0 {
		m.operationErrors.WithLabelValues(operation, strconv.Itoa(statusCode)).Inc()
	}
}

// RecordUpstreamCall записывает длительность вызова внешнего сервиса.
func (m *OrderMetrics) RecordUpstreamCall(service string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.upstreamDuration.WithLabelValues(service, resultLabel(err)).Observe(duration.Seconds())
}

// RecordEventPublished учитывает публикацию события жизненного цикла.
func (m *OrderMetrics) RecordEventPublished(eventType string, err error) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(eventType, resultLabel(err)).Inc()
}

// RecordPaymentEvent учитывает обработку входящего события оплаты.
func (m *OrderMetrics) RecordPaymentEvent(source string, err error) {
	if m == nil {
		return
	}
	m.paymentEvents.WithLabelValues(source, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
