package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/rs/zerolog"

	"github.com/weiawesome/huddle-sync/pkg/log"
)

// ConfluentProducer publishes presence events keyed by user id.
type ConfluentProducer struct {
	producer *kafka.Producer
	topic    string
	now      func() time.Time
	logger   zerolog.Logger
	doneCh   chan struct{}
}

func NewConfluentProducer(brokers, topic string, partitions int) (*ConfluentProducer, error) {
	logger := log.L().With().Str("component", "presence_producer").Logger()
	if err := ensureTopic(brokers, topic, partitions); err != nil {
		logger.Warn().Err(err).Str("topic", topic).Msg("failed to ensure topic (may already exist)")
	}

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "1",
		"linger.ms":         5,
		"compression.type":  "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	cp := &ConfluentProducer{
		producer: p,
		topic:    topic,
		now:      time.Now,
		logger:   logger,
		doneCh:   make(chan struct{}),
	}

	go cp.deliveryReportHandler()

	return cp, nil
}

func ensureTopic(brokers, topic string, partitions int) error {
	if partitions <= 0 {
		partitions = 1
	}
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{
		{
			Topic:             topic,
			NumPartitions:     partitions,
			ReplicationFactor: 1,
		},
	})
	if err != nil {
		return err
	}

	for _, result := range results {
		if result.Error.Code() != kafka.ErrNoError && result.Error.Code() != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("failed to create topic %s: %v", result.Topic, result.Error)
		}
	}

	return nil
}

func (cp *ConfluentProducer) deliveryReportHandler() {
	for e := range cp.producer.Events() {
		if ev, ok := e.(*kafka.Message); ok && ev.TopicPartition.Error != nil {
			cp.logger.Warn().Err(ev.TopicPartition.Error).Msg("kafka delivery failed")
		}
	}
	close(cp.doneCh)
}

// PresenceChanged enqueues a presence event. Produce is asynchronous, so
// this is safe to call from the event loop.
func (cp *ConfluentProducer) PresenceChanged(userID string, online bool) {
	value, err := json.Marshal(NewPresenceEvent(userID, online, cp.now()))
	if err != nil {
		cp.logger.Error().Err(err).Msg("failed to marshal presence event")
		return
	}

	err = cp.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &cp.topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(userID),
		Value: value,
	}, nil)
	if err != nil {
		cp.logger.Warn().Err(err).Str(log.FieldUserID, userID).Msg("failed to produce presence event")
	}
}

// NewPresenceEvent builds the payload for a presence transition.
func NewPresenceEvent(userID string, online bool, at time.Time) PresenceEvent {
	typ := EventUserOffline
	if online {
		typ = EventUserOnline
	}
	return PresenceEvent{Type: typ, UserID: userID, Timestamp: at.UnixMilli()}
}

func (cp *ConfluentProducer) Close() error {
	cp.producer.Flush(5000)
	cp.producer.Close()
	<-cp.doneCh
	return nil
}
