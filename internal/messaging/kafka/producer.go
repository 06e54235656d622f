package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/messaging"
)

// Producer представляет Kafka producer для публикации событий
type Producer struct {
	producer sarama.SyncProducer
	logger   *log.Entry
}

// NewProducer создает новый Kafka producer
func NewProducer(brokers []string, logger *log.Entry) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll // Wait for all in-sync replicas
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true // Включаем идемпотентность
	config.Net.MaxOpenRequests = 1    // Для идемпотентности

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return newProducer(producer, logger), nil
}

func newProducer(producer sarama.SyncProducer, logger *log.Entry) *Producer {
	if logger == nil {
		logger = log.WithField("component", "kafka-producer")
	}
	return &Producer{producer: producer, logger: logger}
}

// PublishEvent публикует событие в Kafka
func (p *Producer) PublishEvent(topic string, key string, event interface{}, headers ...sarama.RecordHeader) error {
	eventData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(eventData),
		Headers:   headers,
		Timestamp: time.Now(),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).WithFields(log.Fields{
			"topic": topic,
			"key":   key,
		}).Error("failed to send message to kafka")
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.logger.WithFields(log.Fields{
		"topic":     topic,
		"key":       key,
		"partition": partition,
		"offset":    offset,
	}).Debug("message sent to kafka")

	return nil
}

// Close закрывает producer
func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka producer: %w", err)
	}
	return nil
}

// OrderEventPublisher публикует события жизненного цикла заказа; ключ сообщения - ID заказа.
type OrderEventPublisher struct {
	producer *Producer
	topic    string
	now      func() time.Time
}

// NewOrderEventPublisher создаёт publisher поверх producer. Пустой topic заменяется на TopicOrderEvents.
func NewOrderEventPublisher(producer *Producer, topic string) *OrderEventPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &OrderEventPublisher{
		producer: producer,
		topic:    topic,
		now:      time.Now,
	}
}

// PublishOrderEvent реализует domain.EventPublisher.
func (p *OrderEventPublisher) PublishOrderEvent(ctx context.Context, eventType domain.EventType, order domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	event := messaging.NewOrderEvent(eventType, order, p.now())
	return p.producer.PublishEvent(p.topic, order.ID, event,
		sarama.RecordHeader{Key: []byte("event-type"), Value: []byte(eventType)},
	)
}

var _ domain.EventPublisher = (*OrderEventPublisher)(nil)
