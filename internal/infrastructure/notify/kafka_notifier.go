package notify

import (
	"context"
	"fmt"
	"time"

	"commerce-import-layer/internal/domain"
	"commerce-import-layer/internal/ports"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes user notifications to a Kafka topic keyed by account
type KafkaNotifier struct {
	writer messageWriter
	now    func() time.Time
	logger zerolog.Logger
}

// NewKafkaNotifier creates a notifier writing to topic on brokers
func NewKafkaNotifier(brokers []string, topic string, logger zerolog.Logger) *KafkaNotifier {
	return newKafkaNotifier(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}, logger)
}

func newKafkaNotifier(writer messageWriter, logger zerolog.Logger) *KafkaNotifier {
	return &KafkaNotifier{writer: writer, now: time.Now, logger: logger}
}

func (k *KafkaNotifier) Notify(ctx context.Context, n domain.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = k.now().UTC()
	}
	value, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	if err := k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(n.AccountID),
		Value: value,
		Time:  n.CreatedAt,
	}); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	k.logger.Debug().Str("notification_id", n.ID).Str("account_id", n.AccountID).Msg("Notification published")
	return nil
}

// Close flushes pending messages
func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}

// LogNotifier writes notifications to the log. It backs local runs without a broker.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(_ context.Context, n domain.Notification) error {
	l.logger.Info().
		Str("account_id", n.AccountID).
		Str("user_id", n.UserID).
		Str("link", n.Link).
		Msg(n.Message)
	return nil
}

var (
	_ ports.NotificationSink = (*KafkaNotifier)(nil)
	_ ports.NotificationSink = (*LogNotifier)(nil)
)
