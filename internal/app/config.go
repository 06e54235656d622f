package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Поддерживаемые драйверы хранилища заказов.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
	StorageDriverSQLite   = "sqlite"
	StorageDriverMySQL    = "mysql"
)

// Config описывает настройки запуска сервиса заказов.
// Значения читаются из переменных окружения, пустые берутся из envDefault.
type Config struct {
	GRPCAddr    string `env:"ORDERS_GRPC_ADDR" envDefault:":50051"`
	MetricsAddr string `env:"ORDERS_METRICS_ADDR" envDefault:":9090"`
	// HTTPAddr включает HTTP-шлюз; пустое значение отключает его.
	HTTPAddr string `env:"ORDERS_HTTP_ADDR"`

	StorageDriver       string `env:"ORDERS_STORAGE_DRIVER" envDefault:"memory"`
	PostgresDSN         string `env:"ORDERS_POSTGRES_DSN"`
	PostgresAutoMigrate bool   `env:"ORDERS_POSTGRES_AUTO_MIGRATE" envDefault:"true"`
	SQLitePath          string `env:"ORDERS_SQLITE_PATH" envDefault:"orders.db"`
	MySQLDSN            string `env:"ORDERS_MYSQL_DSN"`

	// Пустой адрес upstream-сервиса заменяется in-process заглушкой.
	ProductsAddr    string        `env:"ORDERS_PRODUCTS_ADDR"`
	PaymentsAddr    string        `env:"ORDERS_PAYMENTS_ADDR"`
	UpstreamTimeout time.Duration `env:"ORDERS_UPSTREAM_TIMEOUT" envDefault:"5s"`

	// Повторы и breaker применяются только к идемпотентному запросу товаров.
	// По умолчанию повторов нет: одна попытка на вызов.
	UpstreamRetryAttempts   int           `env:"ORDERS_UPSTREAM_RETRY_ATTEMPTS" envDefault:"1"`
	UpstreamBreakerFailures int           `env:"ORDERS_UPSTREAM_BREAKER_FAILURES" envDefault:"5"`
	UpstreamBreakerReset    time.Duration `env:"ORDERS_UPSTREAM_BREAKER_RESET" envDefault:"30s"`

	Kafka    KafkaConfig
	RabbitMQ RabbitMQConfig
	Log      LogConfig
}

// KafkaConfig настраивает публикацию событий заказов и чтение событий оплаты.
type KafkaConfig struct {
	Brokers       []string `env:"KAFKA_BROKERS" envSeparator:","`
	GroupID       string   `env:"KAFKA_GROUP_ID" envDefault:"orders-service"`
	PaymentsTopic string   `env:"KAFKA_PAYMENTS_TOPIC" envDefault:"payments.succeeded"`
	OrdersTopic   string   `env:"KAFKA_ORDERS_TOPIC" envDefault:"orders.events"`
}

// RabbitMQConfig настраивает альтернативный канал событий оплаты.
type RabbitMQConfig struct {
	URL           string `env:"RABBITMQ_URL"`
	PaymentsQueue string `env:"RABBITMQ_PAYMENTS_QUEUE" envDefault:"payments.succeeded"`
}

// LogConfig - уровень и формат логов процесса.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// DefaultConfig возвращает конфигурацию без учёта окружения процесса.
func DefaultConfig() Config {
	cfg, err := parseConfig(map[string]string{})
	if err != nil {
		panic(fmt.Sprintf("default config: %v", err))
	}
	return cfg
}

// LoadConfig читает конфигурацию из окружения процесса.
func LoadConfig() (Config, error) {
	return parseConfig(nil)
}

// LoadConfigFromMap читает конфигурацию из переданного набора переменных.
func LoadConfigFromMap(environ map[string]string) (Config, error) {
	if environ == nil {
		environ = map[string]string{}
	}
	return parseConfig(environ)
}

func parseConfig(environ map[string]string) (Config, error) {
	var cfg Config
	opts := env.Options{Environment: environ}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	cfg.Kafka.Brokers = compactBrokers(cfg.Kafka.Brokers)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет согласованность настроек хранилища и таймаутов.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("ORDERS_POSTGRES_DSN is required for storage driver %q", c.StorageDriver)
		}
	case StorageDriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("ORDERS_SQLITE_PATH is required for storage driver %q", c.StorageDriver)
		}
	case StorageDriverMySQL:
		if strings.TrimSpace(c.MySQLDSN) == "" {
			return fmt.Errorf("ORDERS_MYSQL_DSN is required for storage driver %q", c.StorageDriver)
		}
	default:
		return fmt.Errorf("unsupported storage driver: %s", c.StorageDriver)
	}
	if c.UpstreamRetryAttempts < 1 {
		return fmt.Errorf("ORDERS_UPSTREAM_RETRY_ATTEMPTS must be >= 1, got %d", c.UpstreamRetryAttempts)
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("ORDERS_UPSTREAM_TIMEOUT must be > 0, got %s", c.UpstreamTimeout)
	}
	return nil
}

func compactBrokers(brokers []string) []string {
	out := make([]string, 0, len(brokers))
	for _, broker := range brokers {
		if broker = strings.TrimSpace(broker); broker != "" {
			out = append(out, broker)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
