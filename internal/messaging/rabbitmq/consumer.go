// Package rabbitmq принимает события об оплате из очереди RabbitMQ.
package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/messaging"
	"github.com/vladislavdragonenkov/orders/internal/metrics"
)

const (
	consumerTag   = "orders-service"
	metricsSource = "rabbitmq"
	prefetchCount = 10
)

// Channel - подмножество *amqp.Channel, нужное consumer'у.
type Channel interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// Consumer читает события PaymentSucceeded и подтверждает оплату заказов.
// Сообщение подтверждается (ack) после успешной обработки, иначе уходит в dead-letter очередь.
type Consumer struct {
	conn     *amqp.Connection
	channel  Channel
	queue    string
	payments messaging.PaymentHandler
	metrics  *metrics.OrderMetrics
	logger   *log.Entry
	wg       sync.WaitGroup
}

// Dial подключается к RabbitMQ и объявляет очередь с dead-letter очередью.
func Dial(url, queue string, payments messaging.PaymentHandler, m *metrics.OrderMetrics, logger *log.Entry) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	consumer, err := NewConsumer(ch, queue, payments, m, logger)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	consumer.conn = conn
	return consumer, nil
}

// NewConsumer создаёт consumer поверх открытого канала и объявляет топологию очередей.
func NewConsumer(ch Channel, queue string, payments messaging.PaymentHandler, m *metrics.OrderMetrics, logger *log.Entry) (*Consumer, error) {
	if queue == "" {
		return nil, errors.New("rabbitmq queue name is empty")
	}
	if logger == nil {
		logger = log.WithField("component", "rabbitmq-consumer")
	}

	c := &Consumer{
		channel:  ch,
		queue:    queue,
		payments: payments,
		metrics:  m,
		logger:   logger,
	}
	if err := c.setupQueues(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Consumer) setupQueues() error {
	dlq := DeadLetterQueue(c.queue)
	dlx := dlq + "_exchange"

	if err := c.channel.ExchangeDeclare(dlx, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dead-letter exchange: %w", err)
	}
	if _, err := c.channel.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dead-letter queue: %w", err)
	}
	if err := c.channel.QueueBind(dlq, dlq, dlx, false, nil); err != nil {
		return fmt.Errorf("bind dead-letter queue: %w", err)
	}

	if _, err := c.channel.QueueDeclare(c.queue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    dlx,
		"x-dead-letter-routing-key": dlq,
	}); err != nil {
		return fmt.Errorf("declare queue %s: %w", c.queue, err)
	}
	if err := c.channel.Qos(prefetchCount, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	return nil
}

// DeadLetterQueue возвращает имя dead-letter очереди для queue.
func DeadLetterQueue(queue string) string {
	return queue + ".dlq"
}

// Start регистрирует consumer и обрабатывает сообщения до отмены ctx.
func (c *Consumer) Start(ctx context.Context) error {
	deliveries, err := c.channel.Consume(c.queue, consumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx, deliveries)
	}()

	c.logger.WithField("queue", c.queue).Info("rabbitmq consumer started")
	return nil
}

func (c *Consumer) run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case delivery, ok := <-deliveries:
			if !ok {
				c.logger.Warn("rabbitmq delivery channel closed")
				return
			}
			c.handle(ctx, delivery)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, delivery amqp.Delivery) {
	fields := log.Fields{
		"queue":        c.queue,
		"delivery_tag": delivery.DeliveryTag,
		"redelivered":  delivery.Redelivered,
	}

	order, err := messaging.HandlePayment(ctx, c.payments, delivery.Body)
	c.metrics.RecordPaymentEvent(metricsSource, err)
	if err != nil {
		c.logger.WithError(err).WithFields(fields).WithField("permanent", messaging.IsPermanent(err)).
			Warn("payment event rejected")
		if nackErr := delivery.Nack(false, false); nackErr != nil {
			c.logger.WithError(nackErr).WithFields(fields).Error("failed to nack message")
		}
		return
	}

	if ackErr := delivery.Ack(false); ackErr != nil {
		c.logger.WithError(ackErr).WithFields(fields).Error("failed to ack message")
		return
	}
	c.logger.WithFields(fields).WithField("order_id", order.ID).Info("payment event applied")
}

// Stop закрывает канал и соединение и ждёт завершения обработки.
func (c *Consumer) Stop() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close rabbitmq channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close rabbitmq connection: %w", err))
		}
	}
	c.wg.Wait()
	c.logger.Info("rabbitmq consumer stopped")
	return errors.Join(errs...)
}
