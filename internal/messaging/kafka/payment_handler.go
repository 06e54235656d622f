package kafka

import (
	"context"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/messaging"
	"github.com/vladislavdragonenkov/orders/internal/metrics"
)

const metricsSource = "kafka"

// NewPaymentEventHandler создаёт обработчик событий об успешной оплате.
// Повторная доставка безопасна: оплаченный заказ возвращается без изменений.
func NewPaymentEventHandler(payments messaging.PaymentHandler, m *metrics.OrderMetrics, logger *log.Entry) MessageHandler {
	if logger == nil {
		logger = log.WithField("component", "kafka-payment-handler")
	}

	return func(ctx context.Context, message *sarama.ConsumerMessage) error {
		order, err := messaging.HandlePayment(ctx, payments, message.Value)
		m.RecordPaymentEvent(metricsSource, err)
		if err != nil {
			logger.WithError(err).WithFields(log.Fields{
				"topic":     message.Topic,
				"offset":    message.Offset,
				"permanent": messaging.IsPermanent(err),
			}).Warn("payment event rejected")
			return err
		}

		logger.WithFields(log.Fields{
			"order_id": order.ID,
			"status":   order.Status,
		}).Info("payment event applied")
		return nil
	}
}
