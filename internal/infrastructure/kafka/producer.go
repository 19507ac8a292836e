package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dimas1q/quick-estimate/internal/audit"
)

// Feed streams audit entries to a Kafka topic. It satisfies
// audit.Publisher; entries are keyed by aggregate id so all changes to one
// estimate or client stay in order within a partition.
type Feed struct {
	writer *kafka.Writer
}

var _ audit.Publisher = (*Feed)(nil)

func NewFeed(brokers []string, topic string) *Feed {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Feed{writer: writer}
}

func (f *Feed) Publish(ctx context.Context, key string, entry any) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	return f.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	})
}

func (f *Feed) Close() error {
	return f.writer.Close()
}
