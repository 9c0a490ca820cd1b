// Package event provides the in-process change bus that propagates engine
// state mutations to dependent subsystems.
//
// Delivery is synchronous and insertion-ordered: Publish returns only after
// every matching handler has run. A handler that returns an error or panics
// is isolated; later handlers for the same publish still run.
package event

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dshills/calcstorm/internal/event/topic"
)

// Stats contains bus delivery counters.
type Stats struct {
	// Published is the total number of payloads published.
	Published uint64

	// Delivered is the total number of successful handler deliveries.
	Delivered uint64

	// HandlerErrors is the number of handlers that returned errors.
	HandlerErrors uint64

	// HandlerPanics is the number of handlers that panicked.
	HandlerPanics uint64

	// ActiveSubscribers is the current number of active subscriptions.
	ActiveSubscribers int
}

// Bus is a synchronous publish/subscribe bus keyed by topic.
// It is safe for concurrent use.
type Bus struct {
	mu   sync.RWMutex
	subs []*Subscription

	published     atomic.Uint64
	delivered     atomic.Uint64
	handlerErrors atomic.Uint64
	handlerPanics atomic.Uint64

	// onPanic, when set, observes recovered handler panics.
	onPanic func(err *PanicError)
}

// Option configures a Bus.
type Option func(*Bus)

// WithPanicObserver sets a callback invoked when a handler panics.
// The callback runs in the publisher's goroutine after recovery.
func WithPanicObserver(fn func(err *PanicError)) Option {
	return func(b *Bus) {
		b.onPanic = fn
	}
}

// NewBus creates a new change bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a handler for topics matching the given pattern.
// Handlers are delivered in subscription order.
func (b *Bus) Subscribe(pattern topic.Topic, h Handler) (*Subscription, error) {
	if h == nil {
		return nil, ErrNilHandler
	}
	if !pattern.IsValid() {
		return nil, ErrInvalidTopic
	}

	sub := &Subscription{
		id:      uuid.NewString(),
		pattern: pattern,
		handler: h,
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	return sub, nil
}

// SubscribeFunc is a convenience method for subscribing with a function.
func (b *Bus) SubscribeFunc(pattern topic.Topic, fn HandlerFunc) (*Subscription, error) {
	return b.Subscribe(pattern, fn)
}

// Unsubscribe cancels and removes a subscription.
func (b *Bus) Unsubscribe(sub *Subscription) error {
	if sub == nil {
		return ErrInvalidSubscription
	}

	sub.Cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for i, existing := range b.subs {
		if existing.id == sub.id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return nil
		}
	}
	return ErrSubscriptionNotFound
}

// Publish delivers a payload to every active subscription matching the topic,
// in subscription order, within the caller's goroutine. It returns after all
// handlers have run. Handler errors and panics are counted and isolated; they
// never prevent delivery to subsequent handlers.
func (b *Bus) Publish(ctx context.Context, t topic.Topic, payload any) error {
	if !t.IsValid() {
		return ErrInvalidTopic
	}

	// Snapshot matching subscriptions so handlers may subscribe or
	// unsubscribe without deadlocking on the bus lock.
	b.mu.RLock()
	matched := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		if t.Matches(sub.pattern) {
			matched = append(matched, sub)
		}
	}
	b.mu.RUnlock()

	b.published.Add(1)

	for _, sub := range matched {
		if !sub.IsActive() {
			continue
		}
		b.deliver(ctx, sub, t, payload)
	}

	return nil
}

// deliver runs a single handler with panic isolation.
func (b *Bus) deliver(ctx context.Context, sub *Subscription, t topic.Topic, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.handlerPanics.Add(1)
			if b.onPanic != nil {
				b.onPanic(&PanicError{
					SubscriptionID: sub.id,
					Topic:          t.String(),
					Value:          r,
				})
			}
		}
	}()

	if err := sub.handler.Handle(ctx, t, payload); err != nil {
		b.handlerErrors.Add(1)
		return
	}
	b.delivered.Add(1)
}

// Stats returns current bus statistics.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	active := 0
	for _, sub := range b.subs {
		if sub.IsActive() {
			active++
		}
	}
	b.mu.RUnlock()

	return Stats{
		Published:         b.published.Load(),
		Delivered:         b.delivered.Load(),
		HandlerErrors:     b.handlerErrors.Load(),
		HandlerPanics:     b.handlerPanics.Load(),
		ActiveSubscribers: active,
	}
}

// SubscriberCount returns the number of registered subscriptions,
// including cancelled ones not yet removed.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
