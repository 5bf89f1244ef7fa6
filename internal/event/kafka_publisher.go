package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// messageKey pins every tally event to one partition so consumers see them in order.
const messageKey = "votes"

type KafkaPublisher struct {
	writer *kafka.Writer
}

/*
The writer runs in async mode: WriteMessages only enqueues, and delivery
errors surface in Completion, where they are logged. A broken broker never
slows down or fails a vote.

RequiredAcks: kafka.RequireAll waits for all in-sync replicas before a batch
counts as delivered. Events are small JSON documents, so Snappy keeps
bandwidth low.
*/
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher: no brokers configured")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka publisher: no topic configured")
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
		MaxAttempts:            5,
		Compression:            kafka.Snappy,
		Async:                  true,
		AllowAutoTopicCreation: true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("failed to deliver vote events",
					zap.Int("count", len(messages)), zap.Error(err))
			}
		},
	}

	return &KafkaPublisher{writer: w}, nil
}

func (kp *KafkaPublisher) Publish(ctx context.Context, evt VoteEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal vote event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(messageKey),
		Value: body,
		Time:  evt.Timestamp,
	}
	if err := kp.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

// Close flushes pending messages.
func (kp *KafkaPublisher) Close() error {
	if err := kp.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer: %w", err)
	}
	return nil
}
