package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/rs/zerolog"

	"github.com/weiawesome/huddle-sync/pkg/log"
)

// ConfluentConsumer implements MessageEventConsumer using confluent-kafka-go.
type ConfluentConsumer struct {
	consumer *kafka.Consumer
	topic    string
	handler  MessageEventHandler
	logger   zerolog.Logger
	doneCh   chan struct{}
	started  bool
}

// NewConfluentConsumer creates a new Kafka consumer for message events.
func NewConfluentConsumer(brokers, topic, groupID string, handler MessageEventHandler) (*ConfluentConsumer, error) {
	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  brokers,
		"group.id":           groupID,
		"auto.offset.reset":  "latest",
		"enable.auto.commit": true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	return &ConfluentConsumer{
		consumer: c,
		topic:    topic,
		handler:  handler,
		logger:   log.L().With().Str("component", "message_consumer").Logger(),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start subscribes and consumes on a background goroutine until ctx is done.
func (cc *ConfluentConsumer) Start(ctx context.Context) error {
	if err := cc.consumer.Subscribe(cc.topic, nil); err != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", cc.topic, err)
	}

	cc.logger.Info().Str("topic", cc.topic).Msg("kafka consumer started")

	cc.started = true
	go cc.consumeLoop(ctx)

	return nil
}

func (cc *ConfluentConsumer) consumeLoop(ctx context.Context) {
	defer close(cc.doneCh)

	for {
		select {
		case <-ctx.Done():
			cc.logger.Info().Msg("kafka consumer shutting down")
			return
		default:
			msg, err := cc.consumer.ReadMessage(100 * time.Millisecond)
			if err != nil {
				var kerr kafka.Error
				if errors.As(err, &kerr) && kerr.Code() == kafka.ErrTimedOut {
					continue
				}
				cc.logger.Warn().Err(err).Msg("kafka consumer error")
				continue
			}

			cc.processMessage(ctx, msg.Value)
		}
	}
}

func (cc *ConfluentConsumer) processMessage(ctx context.Context, value []byte) {
	event, err := DecodeMessageEvent(value)
	if err != nil {
		cc.logger.Warn().Err(err).Msg("dropping undecodable message event")
		return
	}

	cc.logger.Debug().
		Str(log.FieldRoomID, event.RoomID).
		Str(log.FieldUserID, event.AuthorID).
		Str("message_id", event.MessageID).
		Msg("received message event")

	if err := cc.handler.HandleMessageEvent(ctx, event); err != nil {
		cc.logger.Error().Err(err).Str(log.FieldRoomID, event.RoomID).Msg("failed to handle message event")
	}
}

// DecodeMessageEvent parses and validates a message event payload.
func DecodeMessageEvent(value []byte) (*MessageEvent, error) {
	var event MessageEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message event: %w", err)
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}
	return &event, nil
}

// Close stops the consumer and waits for the consume loop to exit. The
// context passed to Start must be cancelled first. Close is safe after a
// failed Start.
func (cc *ConfluentConsumer) Close() error {
	if cc.started {
		<-cc.doneCh
	}
	if err := cc.consumer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka consumer: %w", err)
	}
	return nil
}
