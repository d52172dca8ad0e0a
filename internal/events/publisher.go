package events

import (
	"context"
	"errors"
)

// Publisher delivers an event to its subscribers.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
}

// Publishers fans an event out to several publishers. Every publisher is
// tried; the errors are joined.
type Publishers []Publisher

func (p Publishers) Publish(ctx context.Context, event *Event) error {
	var errs []error
	for _, publisher := range p {
		if publisher == nil {
			continue
		}
		if err := publisher.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
