package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"profile-service/internal/infrastructure/monitoring"
)

// Publisher is the best-effort outbound event capability. Every method may
// fail; callers are contractually allowed to log the error and continue, and
// the HTTP layer never fails a response because of one.
type Publisher interface {
	PublishProfileUpdated(ctx context.Context, ev CustomerProfileUpdatedEvent) error
	PublishAnalyticsNotification(ctx context.Context, ev AnalyticsNotificationEvent) error
	PublishSyncReply(ctx context.Context, ev CustomerPreferenceSyncReplyEvent) error
}

type Topics struct {
	ProfileUpdated string
	SyncReply      string
	Notification   string
}

// KafkaPublisher writes JSON events to Kafka through one shared writer. The
// writer is created on first use and reused for the process lifetime; there
// is no reconnect logic beyond what the client does internally.
type KafkaPublisher struct {
	brokers []string
	topics  Topics
	logger  *slog.Logger

	once   sync.Once
	writer *kafka.Writer
}

var _ Publisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(brokers []string, topics Topics, logger *slog.Logger) *KafkaPublisher {
	if len(brokers) == 0 {
		panic("at least one Kafka broker address is required")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &KafkaPublisher{
		brokers: brokers,
		topics:  topics,
		logger:  logger.With("component", "KafkaPublisher"),
	}
}

func (p *KafkaPublisher) PublishProfileUpdated(ctx context.Context, ev CustomerProfileUpdatedEvent) error {
	return p.publish(ctx, p.topics.ProfileUpdated, ev.CustomerID, ev)
}

func (p *KafkaPublisher) PublishAnalyticsNotification(ctx context.Context, ev AnalyticsNotificationEvent) error {
	return p.publish(ctx, p.topics.Notification, ev.RequestID, ev)
}

func (p *KafkaPublisher) PublishSyncReply(ctx context.Context, ev CustomerPreferenceSyncReplyEvent) error {
	return p.publish(ctx, p.topics.SyncReply, ev.CustomerID, ev)
}

func (p *KafkaPublisher) publish(ctx context.Context, topic, key string, payload any) error {
	p.once.Do(func() {
		p.logger.Info("Initializing Kafka writer", "brokers", p.brokers)
		p.writer = &kafka.Writer{
			Addr:         kafka.TCP(p.brokers...),
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 10 * time.Millisecond,
			Async:        false,
		}
	})

	logCtx := p.logger.With(slog.String("topic", topic), slog.String("key", key))

	body, err := json.Marshal(payload)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to marshal event payload to JSON", slog.Any("error", err))
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: body,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		monitoring.RecordEventPublish(topic, false)
		logCtx.ErrorContext(ctx, "Failed to publish message to Kafka", slog.Any("error", err))
		return fmt.Errorf("failed to publish to topic '%s': %w", topic, err)
	}

	monitoring.RecordEventPublish(topic, true)
	logCtx.DebugContext(ctx, "Successfully published message", "bodySize", len(body))
	return nil
}

// Close shuts down the shared writer if it was ever created.
func (p *KafkaPublisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
