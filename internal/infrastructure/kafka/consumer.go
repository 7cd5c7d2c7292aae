package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

type MessageHandler func(ctx context.Context, key, value []byte) error

// messageReader is the part of *kafka.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader messageReader
	logger *log.Entry
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return newConsumer(reader)
}

func newConsumer(r messageReader) *Consumer {
	return &Consumer{reader: r, logger: log.WithField("component", "kafka-consumer")}
}

// Consume runs handler for every message until ctx is cancelled. Offsets are
// committed after the handler returns; a failed message is logged and skipped.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.WithError(err).Warn("fetch message failed")
			continue
		}

		entry := c.logger.WithFields(log.Fields{
			"partition": msg.Partition,
			"offset":    msg.Offset,
		})
		if err := handler(ctx, msg.Key, msg.Value); err != nil {
			entry.WithError(err).Error("handle message failed")
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			entry.WithError(err).Warn("commit failed")
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
