package kafka

import (
	"context"
	"encoding/json"
	"log"

	"github.com/segmentio/kafka-go"

	"github.com/dimas1q/quick-estimate/internal/audit"
)

// EntryHandler processes one audit entry from the feed.
type EntryHandler func(ctx context.Context, entry audit.Entry) error

// FeedConsumer reads audit entries from the feed topic. Entries that fail
// to decode or fail in the handler are logged and skipped; the feed is a
// best-effort side channel, the database remains the source of truth.
type FeedConsumer struct {
	reader *kafka.Reader
}

func NewFeedConsumer(brokers []string, topic, groupID string) *FeedConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &FeedConsumer{reader: reader}
}

func (c *FeedConsumer) Consume(ctx context.Context, handler EntryHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Printf("Error reading message: %v", err)
				continue
			}

			var entry audit.Entry
			if err := json.Unmarshal(msg.Value, &entry); err != nil {
				log.Printf("Error decoding audit entry (key %s): %v", msg.Key, err)
				continue
			}

			if err := handler(ctx, entry); err != nil {
				log.Printf("Error handling audit entry %s: %v", entry.ID, err)
			}
		}
	}
}

func (c *FeedConsumer) Close() error {
	return c.reader.Close()
}
