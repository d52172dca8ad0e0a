package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/IBM/sarama"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/jogardn/orders-client/internal/events"
)

// watch prints order events as they happen. It reads the Kafka topic when
// brokers are configured and the mock API's websocket stream otherwise.
func (a *app) watch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	streamURL := fs.String("url", "", "websocket stream; defaults to the API base url")
	types := fs.String("types", "", "comma separated event types to show")
	deadLetter := fs.Bool("dlq", false, "send events that fail to print to the dead letter topic")
	deadLetters := fs.Bool("dead-letters", false, "read the dead letter topic instead of the event topic")
	if err := fs.Parse(args); err != nil {
		return err
	}

	handler := a.eventPrinter(*types)

	if a.cfg.Kafka.Brokers != "" && *streamURL == "" {
		topic := events.Topic
		if *deadLetters {
			topic = events.DeadLetterTopic
		}
		return a.watchKafka(ctx, handler, topic, *deadLetter && !*deadLetters)
	}
	if *deadLetters {
		return errors.New("watch: -dead-letters needs KAFKA_BROKERS")
	}

	target := *streamURL
	if target == "" {
		var err error
		if target, err = eventStreamURL(a.cfg.Client.BaseURL, *types); err != nil {
			return err
		}
	}
	return streamEvents(ctx, target, a.cfg.Client.APIKey, handler, a.logger)
}

// eventPrinter writes each event as one JSON line. Kafka carries every
// type, so the filter is applied here as well.
func (a *app) eventPrinter(types string) events.EventHandler {
	wanted := make(map[events.EventType]bool)
	for _, t := range strings.Split(types, ",") {
		if t = strings.TrimSpace(t); t != "" {
			wanted[events.EventType(t)] = true
		}
	}

	var mu sync.Mutex
	enc := json.NewEncoder(a.out)
	return events.EventHandlerFunc(func(_ context.Context, event *events.Event) error {
		if len(wanted) > 0 && !wanted[event.Type] {
			return nil
		}
		mu.Lock()
		defer mu.Unlock()
		return enc.Encode(event)
	})
}

func (a *app) watchKafka(ctx context.Context, handler events.EventHandler, topic string, deadLetter bool) error {
	opts := []events.ConsumerOption{
		events.WithRetries(a.cfg.Kafka.Retries, a.cfg.Kafka.RetryDelay),
		events.WithTopics(topic),
	}

	if deadLetter {
		config := sarama.NewConfig()
		config.Producer.RequiredAcks = sarama.WaitForAll
		config.Producer.Return.Successes = true
		producer, err := sarama.NewSyncProducer(strings.Split(a.cfg.Kafka.Brokers, ","), config)
		if err != nil {
			return fmt.Errorf("failed to create dead letter producer: %w", err)
		}
		defer producer.Close()
		opts = append(opts, events.WithDeadLetter(producer))
	}

	consumer, err := events.NewKafkaConsumer(a.cfg.Kafka.Brokers, a.cfg.Kafka.GroupID, handler, a.logger, opts...)
	if err != nil {
		return err
	}
	defer consumer.Close()

	a.logger.WithFields(logrus.Fields{
		"brokers":  a.cfg.Kafka.Brokers,
		"group_id": a.cfg.Kafka.GroupID,
		"topic":    topic,
	}).Info("Watching order events")
	return consumer.Start(ctx)
}

// eventStreamURL maps http(s)://host to ws(s)://host/v1/events/ws.
func eventStreamURL(baseURL, types string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported base url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/v1/events/ws"
	u.RawQuery = ""
	if types != "" {
		u.RawQuery = url.Values{"types": {types}}.Encode()
	}
	return u.String(), nil
}

// streamEvents reads events from the websocket until ctx is canceled or the
// server closes the stream.
func streamEvents(ctx context.Context, target, apiKey string, handler events.EventHandler, logger *logrus.Logger) error {
	header := http.Header{}
	if apiKey != "" {
		header.Set("Authorization", "Bearer "+apiKey)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, header)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", target, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	})
	defer stop()

	logger.WithField("url", target).Info("Watching order events")

	for {
		var event events.Event
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				logger.WithError(err).Warn("Skipping malformed event")
				continue
			}
			return fmt.Errorf("event stream failed: %w", err)
		}

		if err := handler.HandleEvent(ctx, &event); err != nil {
			logger.WithError(err).WithField("event_id", event.ID).Error("Failed to handle event")
		}
	}
}
