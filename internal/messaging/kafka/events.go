package kafka

// Topics для Kafka
const (
	TopicOrderEvents     = "orders.events"
	TopicPaymentEvents   = "payments.succeeded"
	TopicDeadLetterQueue = "orders.dlq" // Dead Letter Queue для необработанных сообщений
)

// Kafka headers, которыми помечаются сообщения в DLQ
const (
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// DeadLetter - содержимое сообщения, отправленного в DLQ.
type DeadLetter struct {
	OriginalTopic     string `json:"original_topic"`
	OriginalPartition int32  `json:"original_partition"`
	OriginalOffset    int64  `json:"original_offset"`
	OriginalKey       string `json:"original_key"`
	OriginalValue     string `json:"original_value"`
	ErrorMessage      string `json:"error_message"`
	FailedAt          string `json:"failed_at"`
}
