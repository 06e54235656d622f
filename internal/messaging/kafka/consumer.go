package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

// MessageHandler обрабатывает сообщение из Kafka
type MessageHandler func(ctx context.Context, message *sarama.ConsumerMessage) error

// Consumer представляет Kafka consumer с поддержкой DLQ
type Consumer struct {
	consumer    sarama.ConsumerGroup
	topics      []string
	handler     MessageHandler
	logger      *log.Entry
	wg          sync.WaitGroup
	dlqProducer *Producer // Producer для отправки в DLQ
}

// NewConsumer создает новый Kafka consumer без DLQ
func NewConsumer(brokers []string, groupID string, topics []string, handler MessageHandler, logger *log.Entry) (*Consumer, error) {
	return NewConsumerWithDLQ(brokers, groupID, topics, handler, nil, logger)
}

// NewConsumerWithDLQ создает consumer с поддержкой Dead Letter Queue
func NewConsumerWithDLQ(brokers []string, groupID string, topics []string, handler MessageHandler, dlqProducer *Producer, logger *log.Entry) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Consumer.Return.Errors = true

	consumer, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	if logger == nil {
		logger = log.WithField("component", "kafka-consumer")
	}

	return &Consumer{
		consumer:    consumer,
		topics:      topics,
		handler:     handler,
		logger:      logger,
		dlqProducer: dlqProducer,
	}, nil
}

// Start запускает consumer
func (c *Consumer) Start(ctx context.Context) error {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			// Consume должен вызываться в цикле, так как при rebalance он завершается
			if err := c.consumer.Consume(ctx, c.topics, c); err != nil {
				c.logger.WithError(err).Error("error from consumer")
			}

			if ctx.Err() != nil {
				return
			}
		}
	}()

	// Обработка ошибок
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for err := range c.consumer.Errors() {
			c.logger.WithError(err).Error("consumer error")
		}
	}()

	c.logger.WithField("topics", c.topics).Info("kafka consumer started")
	return nil
}

// Stop останавливает consumer
func (c *Consumer) Stop() error {
	if err := c.consumer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka consumer: %w", err)
	}
	c.wg.Wait()
	c.logger.Info("kafka consumer stopped")
	return nil
}

// Setup вызывается при старте consumer session
func (c *Consumer) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

// Cleanup вызывается при завершении consumer session
func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim обрабатывает сообщения из partition
func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}

			fields := log.Fields{
				"topic":     message.Topic,
				"partition": message.Partition,
				"offset":    message.Offset,
			}
			c.logger.WithFields(fields).Debug("received message")

			if err := c.handleMessage(session.Context(), message); err != nil {
				// Дальше по partition не идём: отметка следующего offset закоммитила бы
				// и этот. Сообщение будет перечитано после rebalance или рестарта.
				c.logger.WithError(err).WithFields(fields).Error("message processing failed, stopping partition")
				return fmt.Errorf("process %s/%d@%d: %w", message.Topic, message.Partition, message.Offset, err)
			}

			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

// handleMessage обрабатывает сообщение и при ошибке перекладывает его в DLQ
func (c *Consumer) handleMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	err := c.handler(ctx, message)
	if err == nil {
		return nil
	}

	if c.dlqProducer == nil {
		return err
	}

	if dlqErr := c.sendToDLQ(message, err); dlqErr != nil {
		return fmt.Errorf("failed to send to DLQ: %w (handler error: %v)", dlqErr, err)
	}
	c.logger.WithError(err).WithField("topic", message.Topic).Warn("message sent to DLQ")
	return nil // Считаем обработанным, так как отправили в DLQ
}

// sendToDLQ отправляет failed message в Dead Letter Queue
func (c *Consumer) sendToDLQ(message *sarama.ConsumerMessage, processingErr error) error {
	failedAt := time.Now().UTC().Format(time.RFC3339)
	letter := DeadLetter{
		OriginalTopic:     message.Topic,
		OriginalPartition: message.Partition,
		OriginalOffset:    message.Offset,
		OriginalKey:       string(message.Key),
		OriginalValue:     string(message.Value),
		ErrorMessage:      processingErr.Error(),
		FailedAt:          failedAt,
	}

	return c.dlqProducer.PublishEvent(
		TopicDeadLetterQueue,
		string(message.Key),
		letter,
		sarama.RecordHeader{Key: []byte(HeaderOriginalTopic), Value: []byte(message.Topic)},
		sarama.RecordHeader{Key: []byte(HeaderErrorMessage), Value: []byte(processingErr.Error())},
		sarama.RecordHeader{Key: []byte(HeaderFailedAt), Value: []byte(failedAt)},
	)
}
