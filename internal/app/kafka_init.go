package app

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/messaging"
	"github.com/vladislavdragonenkov/orders/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/orders/internal/messaging/rabbitmq"
	"github.com/vladislavdragonenkov/orders/internal/metrics"
)

// initKafkaProducer создаёт Kafka producer, если брокеры заданы.
// Ошибка подключения не фатальна: сервис продолжает работать без событий.
func initKafkaProducer(brokers []string, logger *log.Entry) *kafka.Producer {
	if len(brokers) == 0 {
		return nil
	}

	producer, err := kafka.NewProducer(brokers, logger.WithField("component", "kafka-producer"))
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil
	}

	logger.WithField("brokers", brokers).Info("kafka producer initialized")
	return producer
}

// closeKafkaProducer закрывает Kafka producer если он не nil.
func closeKafkaProducer(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}

// paymentConsumer - источник событий PaymentSucceeded.
type paymentConsumer interface {
	Start(ctx context.Context) error
	Stop() error
}

// startPaymentConsumers подписывает сервис заказов на события оплаты из Kafka и RabbitMQ.
// Producer используется как DLQ для Kafka consumer'а.
func startPaymentConsumers(
	ctx context.Context,
	cfg Config,
	payments messaging.PaymentHandler,
	orderMetrics *metrics.OrderMetrics,
	dlqProducer *kafka.Producer,
	logger *log.Entry,
) []paymentConsumer {
	var consumers []paymentConsumer

	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.PaymentsTopic != "" {
		consumerLogger := logger.WithField("component", "kafka-consumer")
		handler := kafka.NewPaymentEventHandler(payments, orderMetrics, consumerLogger)
		consumer, err := kafka.NewConsumerWithDLQ(
			cfg.Kafka.Brokers,
			cfg.Kafka.GroupID,
			[]string{cfg.Kafka.PaymentsTopic},
			handler,
			dlqProducer,
			consumerLogger,
		)
		if err != nil {
			logger.WithError(err).Warn("failed to create kafka consumer, payment events from kafka are disabled")
		} else if err := consumer.Start(ctx); err != nil {
			logger.WithError(err).Warn("failed to start kafka consumer")
		} else {
			consumers = append(consumers, consumer)
		}
	}

	if cfg.RabbitMQ.URL != "" {
		consumerLogger := logger.WithField("component", "rabbitmq-consumer")
		consumer, err := rabbitmq.Dial(cfg.RabbitMQ.URL, cfg.RabbitMQ.PaymentsQueue, payments, orderMetrics, consumerLogger)
		if err != nil {
			logger.WithError(err).Warn("failed to connect to rabbitmq, payment events from rabbitmq are disabled")
		} else if err := consumer.Start(ctx); err != nil {
			logger.WithError(err).Warn("failed to start rabbitmq consumer")
			_ = consumer.Stop()
		} else {
			consumers = append(consumers, consumer)
		}
	}

	return consumers
}

// stopPaymentConsumers останавливает consumer'ов в обратном порядке.
func stopPaymentConsumers(consumers []paymentConsumer, logger *log.Entry) {
	for i := len(consumers) - 1; i >= 0; i-- {
		if err := consumers[i].Stop(); err != nil {
			logger.WithError(err).Warn("failed to stop payment consumer")
		}
	}
}
