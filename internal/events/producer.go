package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

type KafkaProducer struct {
	producer sarama.SyncProducer
	topic    string
	logger   *logrus.Logger
}

// NewKafkaProducer connects to a comma separated list of brokers.
func NewKafkaProducer(brokers string, logger *logrus.Logger) (*KafkaProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1
	config.Version = sarama.V2_6_0_0

	producer, err := sarama.NewSyncProducer(strings.Split(brokers, ","), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return newKafkaProducer(producer, Topic, logger), nil
}

func newKafkaProducer(producer sarama.SyncProducer, topic string, logger *logrus.Logger) *KafkaProducer {
	return &KafkaProducer{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

// Publish sends the event keyed by its order id so the events of one order
// stay in one partition.
func (p *KafkaProducer) Publish(ctx context.Context, event *Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.OrderID()),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).WithField("event_id", event.ID).Error("Failed to send event to Kafka")
		return fmt.Errorf("failed to publish event %s: %w", event.ID, err)
	}

	p.logger.WithFields(logrus.Fields{
		"topic":      p.topic,
		"partition":  partition,
		"offset":     offset,
		"event_id":   event.ID,
		"event_type": event.Type,
	}).Info("Event published to Kafka")

	return nil
}

func (p *KafkaProducer) Close() error {
	return p.producer.Close()
}
