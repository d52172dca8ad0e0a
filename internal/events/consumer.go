package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

// DeadLetterTopic receives the events a handler kept failing on.
const DeadLetterTopic = Topic + ".dlq"

// EventHandler receives the events read from Kafka.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *Event) error
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(ctx context.Context, event *Event) error

func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

type KafkaConsumer struct {
	consumerGroup sarama.ConsumerGroup
	handler       *consumerGroupHandler
	logger        *logrus.Logger
	topics        []string
}

type consumerGroupHandler struct {
	handler    EventHandler
	logger     *logrus.Logger
	maxRetries int
	retryDelay time.Duration
	deadLetter sarama.SyncProducer
	topics     []string
}

type ConsumerOption func(*consumerGroupHandler)

// WithRetries retries a failing handler up to n times, doubling delay after
// each attempt.
func WithRetries(n int, delay time.Duration) ConsumerOption {
	return func(h *consumerGroupHandler) {
		h.maxRetries = max(n, 0)
		h.retryDelay = delay
	}
}

// WithDeadLetter sends events that still fail after the retries to
// DeadLetterTopic and moves on. Without it a failed event ends the claim
// unmarked, and Start consumes the partition again from that event.
func WithDeadLetter(producer sarama.SyncProducer) ConsumerOption {
	return func(h *consumerGroupHandler) { h.deadLetter = producer }
}

// WithTopics consumes topics instead of Topic, for example DeadLetterTopic
// to inspect the events that were given up on.
func WithTopics(topics ...string) ConsumerOption {
	return func(h *consumerGroupHandler) { h.topics = topics }
}

func newConsumerGroupHandler(handler EventHandler, logger *logrus.Logger, opts ...ConsumerOption) *consumerGroupHandler {
	h := &consumerGroupHandler{
		handler:    handler,
		logger:     logger,
		retryDelay: time.Second,
		topics:     []string{Topic},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func NewKafkaConsumer(brokers, groupID string, handler EventHandler, logger *logrus.Logger, opts ...ConsumerOption) (*KafkaConsumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Version = sarama.V2_6_0_0

	consumerGroup, err := sarama.NewConsumerGroup(strings.Split(brokers, ","), groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer group: %w", err)
	}

	h := newConsumerGroupHandler(handler, logger, opts...)
	return &KafkaConsumer{
		consumerGroup: consumerGroup,
		handler:       h,
		logger:        logger,
		topics:        h.topics,
	}, nil
}

// Start consumes until ctx is canceled.
func (c *KafkaConsumer) Start(ctx context.Context) error {
	for {
		if err := c.consumerGroup.Consume(ctx, c.topics, c.handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			c.logger.WithError(err).Error("Error consuming from Kafka")
			return err
		}
		if ctx.Err() != nil {
			c.logger.Info("Kafka consumer context cancelled")
			return nil
		}
	}
}

func (c *KafkaConsumer) Close() error {
	return c.consumerGroup.Close()
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	h.logger.Debug("Kafka consumer group session setup")
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.logger.Debug("Kafka consumer group session cleanup")
	return nil
}

func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}

			if err := h.process(session.Context(), message); err != nil {
				h.logger.WithError(err).WithFields(logrus.Fields{
					"partition": message.Partition,
					"offset":    message.Offset,
				}).Error("Failed to handle event, restarting from the last committed offset")
				// Marking a later message would commit past this one.
				return err
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *consumerGroupHandler) handleMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	var event Event
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if !event.Type.Valid() {
		h.logger.WithField("event_type", event.Type).Warn("Skipping unknown event type")
		return nil
	}

	h.logger.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
		"key":        string(message.Key),
	}).Info("Processing order event")

	return h.handler.HandleEvent(ctx, &event)
}

// process handles a message with retries. It returns an error only when the
// message must not be marked as consumed.
func (h *consumerGroupHandler) process(ctx context.Context, message *sarama.ConsumerMessage) error {
	delay := h.retryDelay
	var err error

	for attempt := 0; attempt <= h.maxRetries; attempt++ {
		if attempt > 0 {
			h.logger.WithFields(logrus.Fields{
				"offset":  message.Offset,
				"attempt": attempt,
				"delay":   delay.String(),
			}).Warn("Retrying event")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		if err = h.handleMessage(ctx, message); err == nil {
			return nil
		}
	}

	if h.deadLetter == nil {
		return err
	}
	if dlqErr := h.sendToDeadLetter(message, err); dlqErr != nil {
		return errors.Join(err, dlqErr)
	}
	return nil
}

func (h *consumerGroupHandler) sendToDeadLetter(message *sarama.ConsumerMessage, cause error) error {
	msg := &sarama.ProducerMessage{
		Topic: DeadLetterTopic,
		Key:   sarama.ByteEncoder(message.Key),
		Value: sarama.ByteEncoder(message.Value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("original_topic"), Value: []byte(message.Topic)},
			{Key: []byte("original_partition"), Value: []byte(strconv.FormatInt(int64(message.Partition), 10))},
			{Key: []byte("original_offset"), Value: []byte(strconv.FormatInt(message.Offset, 10))},
			{Key: []byte("error"), Value: []byte(cause.Error())},
		},
	}

	if _, _, err := h.deadLetter.SendMessage(msg); err != nil {
		return fmt.Errorf("failed to send event to dead letter topic: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"topic":  DeadLetterTopic,
		"offset": message.Offset,
		"error":  cause.Error(),
	}).Warn("Event sent to dead letter topic")
	return nil
}
