package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jogardn/orders-client/pkg/models"
)

// Topic is the Kafka topic order events are published to.
const Topic = "orders.events"

type EventType string

const (
	OrderCreated          EventType = "order.created"
	OrderUpdated          EventType = "order.updated"
	OrderPaymentSucceeded EventType = "order.payment_succeeded"
	OrderReturnCreated    EventType = "order_return.created"
)

func (t EventType) Valid() bool {
	switch t {
	case OrderCreated, OrderUpdated, OrderPaymentSucceeded, OrderReturnCreated:
		return true
	}
	return false
}

// Event is the envelope the API wraps object notifications in.
type Event struct {
	ID       string    `json:"id"`
	Object   string    `json:"object"`
	Type     EventType `json:"type"`
	Created  int64     `json:"created"`
	Livemode bool      `json:"livemode"`
	Data     EventData `json:"data"`
}

type EventData struct {
	Object json.RawMessage `json:"object"`
	// PreviousAttributes holds the old values of the fields an update changed.
	PreviousAttributes json.RawMessage `json:"previous_attributes,omitempty"`
}

func NewEvent(eventType EventType, object any, created time.Time) (*Event, error) {
	if !eventType.Valid() {
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}

	data, err := json.Marshal(object)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event object: %w", err)
	}

	return &Event{
		ID:      "evt_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Object:  "event",
		Type:    eventType,
		Created: created.Unix(),
		Data:    EventData{Object: data},
	}, nil
}

// WithPreviousAttributes records the changed fields of an update.
func (e *Event) WithPreviousAttributes(previous map[string]any) (*Event, error) {
	data, err := json.Marshal(previous)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal previous attributes: %w", err)
	}
	e.Data.PreviousAttributes = data
	return e, nil
}

// Order decodes the data of an order.* event.
func (e *Event) Order() (*models.Order, error) {
	if !strings.HasPrefix(string(e.Type), "order.") {
		return nil, fmt.Errorf("event %s of type %s does not carry an order", e.ID, e.Type)
	}

	var order models.Order
	if err := json.Unmarshal(e.Data.Object, &order); err != nil {
		return nil, fmt.Errorf("failed to decode order of event %s: %w", e.ID, err)
	}
	return &order, nil
}

// OrderReturn decodes the data of an order_return.* event.
func (e *Event) OrderReturn() (*models.OrderReturn, error) {
	if !strings.HasPrefix(string(e.Type), "order_return.") {
		return nil, fmt.Errorf("event %s of type %s does not carry an order return", e.ID, e.Type)
	}

	var ret models.OrderReturn
	if err := json.Unmarshal(e.Data.Object, &ret); err != nil {
		return nil, fmt.Errorf("failed to decode order return of event %s: %w", e.ID, err)
	}
	return &ret, nil
}

// OrderID is the id of the order the event is about. Events of one order
// share it as their partition key.
func (e *Event) OrderID() string {
	var ref struct {
		ID    string            `json:"id"`
		Order models.Expandable `json:"order"`
	}
	if err := json.Unmarshal(e.Data.Object, &ref); err != nil {
		return ""
	}
	if strings.HasPrefix(string(e.Type), "order_return.") {
		return ref.Order.ID
	}
	return ref.ID
}
