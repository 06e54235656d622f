// Команда dlq-reprocess перечитывает dead-letter топик и возвращает события оплаты
// в исходный топик после того, как причина отказа устранена.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/messaging"
	"github.com/vladislavdragonenkov/orders/internal/messaging/kafka"
)

const (
	defaultReplayLimit = 100
	defaultIdleTimeout = 2 * time.Second
	replayedByHeader   = "x-replayed-by"
)

type config struct {
	brokers     []string
	sourceTopic string
	targetTopic string
	orderID     string
	limit       int
	execute     bool
	idleTimeout time.Duration
}

type offsetClient interface {
	GetOffset(topic string, partition int32, time int64) (int64, error)
	Partitions(topic string) ([]int32, error)
	Close() error
}

type partitionConsumer interface {
	Messages() <-chan *sarama.ConsumerMessage
	Errors() <-chan *sarama.ConsumerError
	Close() error
}

type partitionConsumerSource interface {
	ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error)
	Close() error
}

type replayProducer interface {
	SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error)
	Close() error
}

type saramaConsumerAdapter struct {
	consumer sarama.Consumer
}

func (a saramaConsumerAdapter) ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error) {
	return a.consumer.ConsumePartition(topic, partition, offset)
}

func (a saramaConsumerAdapter) Close() error {
	return a.consumer.Close()
}

// replayCandidate - событие оплаты, извлечённое из dead letter.
type replayCandidate struct {
	topic string
	key   string
	value []byte
	event messaging.PaymentSucceededEvent
}

// replayStats - итог обхода DLQ.
type replayStats struct {
	scanned  int
	replayed int
	skipped  int
}

func (s *replayStats) add(other replayStats) {
	s.scanned += other.scanned
	s.replayed += other.replayed
	s.skipped += other.skipped
}

var newReplayDependencies = func(cfg config) (offsetClient, partitionConsumerSource, replayProducer, error) {
	clientConfig := sarama.NewConfig()
	clientConfig.Consumer.Return.Errors = true

	client, err := sarama.NewClient(cfg.brokers, clientConfig)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create kafka client: %w", err)
	}

	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("create kafka consumer: %w", err)
	}

	if !cfg.execute {
		return client, saramaConsumerAdapter{consumer: consumer}, nil, nil
	}

	producerConfig := sarama.NewConfig()
	producerConfig.Producer.RequiredAcks = sarama.WaitForAll
	producerConfig.Producer.Return.Successes = true
	producer, err := sarama.NewSyncProducer(cfg.brokers, producerConfig)
	if err != nil {
		_ = consumer.Close()
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return client, saramaConsumerAdapter{consumer: consumer}, producer, nil
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
	_ = godotenv.Load()

	cfg, err := readConfig(flag.CommandLine, os.Args[1:], os.Getenv)
	if err != nil {
		fail("%v", err)
	}

	if err := run(context.Background(), cfg); err != nil {
		fail("dlq replay failed: %v", err)
	}
}

func readConfig(fs *flag.FlagSet, args []string, getenv func(string) string) (config, error) {
	var (
		brokersRaw string
		cfg        config
	)

	fs.StringVar(&brokersRaw, "brokers", "", "Kafka brokers as comma-separated list (fallback: KAFKA_BROKERS)")
	fs.StringVar(&cfg.sourceTopic, "source-topic", kafka.TopicDeadLetterQueue, "dead-letter topic to scan")
	fs.StringVar(&cfg.targetTopic, "target-topic", "", "replay topic; empty means the original topic of each letter")
	fs.StringVar(&cfg.orderID, "order-id", "", "replay only events of this order")
	fs.IntVar(&cfg.limit, "limit", defaultReplayLimit, "max number of dead letters to scan")
	fs.BoolVar(&cfg.execute, "execute", false, "publish replayed events; default is dry-run")
	fs.DurationVar(&cfg.idleTimeout, "idle-timeout", defaultIdleTimeout, "idle timeout per partition")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	if strings.TrimSpace(brokersRaw) == "" {
		brokersRaw = getenv("KAFKA_BROKERS")
	}
	cfg.brokers = parseBrokers(brokersRaw)
	cfg.orderID = strings.TrimSpace(cfg.orderID)

	switch {
	case len(cfg.brokers) == 0:
		return config{}, errors.New("kafka brokers are required (-brokers or KAFKA_BROKERS)")
	case strings.TrimSpace(cfg.sourceTopic) == "":
		return config{}, errors.New("source-topic is required")
	case cfg.limit <= 0:
		return config{}, errors.New("limit must be > 0")
	case cfg.idleTimeout <= 0:
		return config{}, errors.New("idle-timeout must be > 0")
	}

	return cfg, nil
}

func parseBrokers(raw string) []string {
	var brokers []string
	for _, chunk := range strings.Split(raw, ",") {
		if broker := strings.TrimSpace(chunk); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}

func run(ctx context.Context, cfg config) error {
	client, consumer, producer, err := newReplayDependencies(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if producer != nil {
			_ = producer.Close()
		}
		_ = consumer.Close()
		_ = client.Close()
	}()

	r := &replayer{cfg: cfg, client: client, consumer: consumer, producer: producer, logger: log.WithField("component", "dlq-reprocess")}
	_, err = r.run(ctx)
	return err
}

// replayer обходит партиции DLQ от самого старого сообщения до текущего конца.
type replayer struct {
	cfg      config
	client   offsetClient
	consumer partitionConsumerSource
	producer replayProducer
	logger   *log.Entry
}

func (r *replayer) run(ctx context.Context) (replayStats, error) {
	var total replayStats
	if r.cfg.execute && r.producer == nil {
		return total, errors.New("producer is required in execute mode")
	}

	r.logger.WithFields(log.Fields{
		"source_topic": r.cfg.sourceTopic,
		"target_topic": r.cfg.targetTopic,
		"order_id":     r.cfg.orderID,
		"limit":        r.cfg.limit,
		"execute":      r.cfg.execute,
	}).Info("starting dlq replay")

	partitions, err := r.client.Partitions(r.cfg.sourceTopic)
	if err != nil {
		return total, fmt.Errorf("get partitions for topic %s: %w", r.cfg.sourceTopic, err)
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

	for _, partition := range partitions {
		if total.scanned >= r.cfg.limit {
			break
		}
		stats, err := r.scanPartition(ctx, partition, r.cfg.limit-total.scanned)
		total.add(stats)
		if err != nil {
			return total, err
		}
	}

	mode := "dry-run"
	if r.cfg.execute {
		mode = "execute"
	}
	r.logger.WithFields(log.Fields{
		"mode":     mode,
		"scanned":  total.scanned,
		"replayed": total.replayed,
		"skipped":  total.skipped,
	}).Info("dlq replay finished")

	return total, nil
}

func (r *replayer) scanPartition(ctx context.Context, partition int32, limit int) (replayStats, error) {
	var stats replayStats

	oldest, err := r.client.GetOffset(r.cfg.sourceTopic, partition, sarama.OffsetOldest)
	if err != nil {
		return stats, fmt.Errorf("get oldest offset for partition %d: %w", partition, err)
	}
	newest, err := r.client.GetOffset(r.cfg.sourceTopic, partition, sarama.OffsetNewest)
	if err != nil {
		return stats, fmt.Errorf("get newest offset for partition %d: %w", partition, err)
	}
	if newest <= oldest {
		return stats, nil
	}

	pc, err := r.consumer.ConsumePartition(r.cfg.sourceTopic, partition, oldest)
	if err != nil {
		return stats, fmt.Errorf("consume partition %d: %w", partition, err)
	}
	defer func() { _ = pc.Close() }()

	idle := time.NewTimer(r.cfg.idleTimeout)
	defer idle.Stop()

	for stats.scanned < limit {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case <-idle.C:
			return stats, nil
		case consumerErr := <-pc.Errors():
			if consumerErr != nil {
				return stats, fmt.Errorf("partition %d consumer error: %w", partition, consumerErr)
			}
		case msg, ok := <-pc.Messages():
			if !ok || msg == nil || msg.Offset >= newest {
				return stats, nil
			}
			idle.Reset(r.cfg.idleTimeout)

			stats.scanned++
			if err := r.handleLetter(msg); err != nil {
				if errors.Is(err, errSkipLetter) {
					stats.skipped++
				} else {
					return stats, err
				}
			} else {
				stats.replayed++
			}

			if msg.Offset+1 >= newest {
				return stats, nil
			}
		}
	}

	return stats, nil
}

var errSkipLetter = errors.New("dead letter skipped")

func (r *replayer) handleLetter(msg *sarama.ConsumerMessage) error {
	fields := log.Fields{"partition": msg.Partition, "offset": msg.Offset}

	candidate, err := extractReplayCandidate(msg, r.cfg.targetTopic)
	if err != nil {
		r.logger.WithError(err).WithFields(fields).Warn("skip dead letter")
		return errSkipLetter
	}
	if r.cfg.orderID != "" && candidate.event.OrderID != r.cfg.orderID {
		return errSkipLetter
	}

	fields["order_id"] = candidate.event.OrderID
	fields["target_topic"] = candidate.topic
	if !r.cfg.execute {
		r.logger.WithFields(fields).Info("dlq replay candidate")
		return nil
	}

	if _, _, err := r.producer.SendMessage(&sarama.ProducerMessage{
		Topic:     candidate.topic,
		Key:       sarama.StringEncoder(candidate.key),
		Value:     sarama.ByteEncoder(candidate.value),
		Timestamp: time.Now().UTC(),
		Headers: []sarama.RecordHeader{
			{Key: []byte(replayedByHeader), Value: []byte("dlq-reprocess")},
		},
	}); err != nil {
		return fmt.Errorf("publish replay for order %s: %w", candidate.event.OrderID, err)
	}
	r.logger.WithFields(fields).Info("payment event replayed")
	return nil
}

// extractReplayCandidate разбирает dead letter и проверяет, что внутри событие оплаты.
// Письма с неразборчивым событием не переотправляются: повторная обработка снова завершится отказом.
func extractReplayCandidate(msg *sarama.ConsumerMessage, targetTopic string) (replayCandidate, error) {
	var letter kafka.DeadLetter
	if err := json.Unmarshal(msg.Value, &letter); err != nil {
		return replayCandidate{}, fmt.Errorf("decode dead letter: %w", err)
	}
	if letter.OriginalValue == "" {
		return replayCandidate{}, errors.New("dead letter has no original value")
	}

	event, err := messaging.DecodePaymentSucceeded([]byte(letter.OriginalValue))
	if err != nil {
		return replayCandidate{}, err
	}

	topic := strings.TrimSpace(targetTopic)
	if topic == "" {
		topic = strings.TrimSpace(letter.OriginalTopic)
	}
	if topic == "" {
		topic = kafka.TopicPaymentEvents
	}

	key := letter.OriginalKey
	if key == "" {
		key = event.OrderID
	}

	return replayCandidate{
		topic: topic,
		key:   key,
		value: []byte(letter.OriginalValue),
		event: event,
	}, nil
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
