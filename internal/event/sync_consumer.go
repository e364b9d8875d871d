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

// SyncRequestHandler processes one validated preference sync request.
type SyncRequestHandler func(ctx context.Context, req CustomerPreferenceSyncRequestEvent)

// SyncConsumer reads preference sync requests from the inbound topic and
// hands each well-formed message to its handler. Malformed messages are
// dropped without reply; offsets commit through the reader's group semantics
// either way. The loop runs until Stop or context cancellation.
type SyncConsumer struct {
	reader  *kafka.Reader
	handler SyncRequestHandler
	logger  *slog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewSyncConsumer(brokers []string, topic, groupID string, handler SyncRequestHandler, logger *slog.Logger) (*SyncConsumer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one Kafka broker address is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("sync request topic cannot be empty")
	}
	if handler == nil {
		return nil, fmt.Errorf("sync request handler cannot be nil")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})

	return &SyncConsumer{
		reader:  reader,
		handler: handler,
		logger:  logger.With("component", "SyncConsumer", "topic", topic),
	}, nil
}

func (c *SyncConsumer) Start(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.logger.Info("Consumer goroutine started.")
		for {
			msg, err := c.reader.ReadMessage(loopCtx)
			if err != nil {
				if loopCtx.Err() != nil {
					c.logger.Info("Consumer context cancelled. Exiting consumption loop.")
					return
				}
				c.logger.Warn("Failed to read message", slog.Any("error", err))
				continue
			}

			req, ok := decodeSyncRequest(msg.Value)
			if !ok {
				monitoring.RecordSyncRequestDropped()
				c.logger.DebugContext(loopCtx, "Dropping malformed sync request", "offset", msg.Offset)
				continue
			}

			monitoring.RecordSyncRequestProcessed()
			c.handler(loopCtx, req)
		}
	}()
}

func (c *SyncConsumer) Stop() {
	if c.cancel == nil {
		c.logger.Warn("Consumer stop called before start")
		return
	}
	c.logger.Info("Stopping consumer...")
	c.cancel()
	c.wg.Wait()

	if err := c.reader.Close(); err != nil {
		c.logger.Error("Failed to close consumer reader", slog.Any("error", err))
	} else {
		c.logger.Info("Consumer reader closed.")
	}
}

// decodeSyncRequest enforces the inbound contract: valid JSON with string
// requestId, customerId and requestedAt. Wrong types fail the unmarshal,
// missing fields fail the completeness check; both mean drop.
func decodeSyncRequest(body []byte) (CustomerPreferenceSyncRequestEvent, bool) {
	var req CustomerPreferenceSyncRequestEvent
	if err := json.Unmarshal(body, &req); err != nil {
		return CustomerPreferenceSyncRequestEvent{}, false
	}
	if !req.Complete() {
		return CustomerPreferenceSyncRequestEvent{}, false
	}
	return req, true
}
