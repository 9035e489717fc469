package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, groupID, topic string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			StartOffset:       kafka.FirstOffset,
			MaxBytes:          1 << 20,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Consume hands messages to handler in partition order. An offset is committed
// only after handler accepted the message; a handler error stops consumption
// with that message uncommitted.
func (c *Consumer) Consume(ctx context.Context, handler func(context.Context, kafka.Message) error) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}
		if err := handler(ctx, msg); err != nil {
			return fmt.Errorf("handle %s[%d]@%d: %w", msg.Topic, msg.Partition, msg.Offset, err)
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return fmt.Errorf("commit %s[%d]@%d: %w", msg.Topic, msg.Partition, msg.Offset, err)
		}
	}
}

// ItineraryHandler adapts a typed handler to Consume. Undecodable messages are
// passed to onBad and skipped.
func ItineraryHandler(handle func(context.Context, ItineraryEvent) error, onBad func(kafka.Message, error)) func(context.Context, kafka.Message) error {
	return func(ctx context.Context, msg kafka.Message) error {
		event, err := DecodeItineraryEvent(msg.Value)
		if err != nil {
			if onBad != nil {
				onBad(msg, err)
			}
			return nil
		}
		return handle(ctx, event)
	}
}
