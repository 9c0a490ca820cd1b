package event

import (
	"context"
	"sync/atomic"

	"github.com/dshills/calcstorm/internal/event/topic"
)

// Handler processes a published payload.
// The payload is type-erased; handlers should type-assert.
type Handler interface {
	Handle(ctx context.Context, t topic.Topic, payload any) error
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ctx context.Context, t topic.Topic, payload any) error

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, t topic.Topic, payload any) error {
	return f(ctx, t, payload)
}

// Subscription represents an active registration on the bus.
type Subscription struct {
	id        string
	pattern   topic.Topic
	handler   Handler
	cancelled atomic.Bool
}

// ID returns the unique subscription identifier.
func (s *Subscription) ID() string {
	return s.id
}

// Pattern returns the subscribed topic pattern.
func (s *Subscription) Pattern() topic.Topic {
	return s.pattern
}

// IsActive returns true if the subscription can still receive payloads.
func (s *Subscription) IsActive() bool {
	return !s.cancelled.Load()
}

// Cancel permanently cancels the subscription.
// A cancelled subscription receives no further deliveries even if it has
// not yet been removed from the bus.
func (s *Subscription) Cancel() {
	s.cancelled.Store(true)
}
