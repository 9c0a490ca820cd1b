package event

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/calcstorm/internal/event/topic"
)

func TestSubscribeAndPublish(t *testing.T) {
	bus := NewBus()

	var got any
	_, err := bus.SubscribeFunc("engine.value.changed", func(_ context.Context, _ topic.Topic, payload any) error {
		got = payload
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := bus.Publish(context.Background(), "engine.value.changed", "42"); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if got != "42" {
		t.Errorf("payload = %v, want %q", got, "42")
	}
}

func TestSubscribeNilHandler(t *testing.T) {
	bus := NewBus()
	if _, err := bus.Subscribe("engine.value.changed", nil); !errors.Is(err, ErrNilHandler) {
		t.Errorf("err = %v, want ErrNilHandler", err)
	}
}

func TestSubscribeInvalidTopic(t *testing.T) {
	bus := NewBus()
	if _, err := bus.SubscribeFunc("", func(_ context.Context, _ topic.Topic, _ any) error { return nil }); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("err = %v, want ErrInvalidTopic", err)
	}
}

func TestPublishInsertionOrder(t *testing.T) {
	bus := NewBus()

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		_, err := bus.SubscribeFunc("engine.value.changed", func(_ context.Context, _ topic.Topic, _ any) error {
			order = append(order, i)
			return nil
		})
		if err != nil {
			t.Fatalf("Subscribe failed: %v", err)
		}
	}

	if err := bus.Publish(context.Background(), "engine.value.changed", nil); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	for i, v := range order {
		if v != i {
			t.Fatalf("delivery order = %v, want insertion order", order)
		}
	}
}

func TestPublishWildcardPattern(t *testing.T) {
	bus := NewBus()

	count := 0
	_, err := bus.SubscribeFunc("engine.*.changed", func(_ context.Context, _ topic.Topic, _ any) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	_ = bus.Publish(context.Background(), "engine.value.changed", nil)
	_ = bus.Publish(context.Background(), "engine.memory.changed", nil)
	_ = bus.Publish(context.Background(), "engine.state.reset", nil)

	if count != 2 {
		t.Errorf("deliveries = %d, want 2", count)
	}
}

func TestHandlerErrorIsolation(t *testing.T) {
	bus := NewBus()

	_, _ = bus.SubscribeFunc("engine.value.changed", func(_ context.Context, _ topic.Topic, _ any) error {
		return errors.New("broken handler")
	})

	ran := false
	_, _ = bus.SubscribeFunc("engine.value.changed", func(_ context.Context, _ topic.Topic, _ any) error {
		ran = true
		return nil
	})

	if err := bus.Publish(context.Background(), "engine.value.changed", nil); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if !ran {
		t.Error("handler after failing handler did not run")
	}
	if stats := bus.Stats(); stats.HandlerErrors != 1 {
		t.Errorf("HandlerErrors = %d, want 1", stats.HandlerErrors)
	}
}

func TestHandlerPanicIsolation(t *testing.T) {
	var observed *PanicError
	bus := NewBus(WithPanicObserver(func(err *PanicError) {
		observed = err
	}))

	_, _ = bus.SubscribeFunc("engine.value.changed", func(_ context.Context, _ topic.Topic, _ any) error {
		panic("ui handler exploded")
	})

	ran := false
	_, _ = bus.SubscribeFunc("engine.value.changed", func(_ context.Context, _ topic.Topic, _ any) error {
		ran = true
		return nil
	})

	if err := bus.Publish(context.Background(), "engine.value.changed", nil); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if !ran {
		t.Error("handler after panicking handler did not run")
	}
	if observed == nil {
		t.Fatal("panic observer not called")
	}
	if !errors.Is(observed, ErrHandlerPanic) {
		t.Error("PanicError should match ErrHandlerPanic")
	}
	if stats := bus.Stats(); stats.HandlerPanics != 1 {
		t.Errorf("HandlerPanics = %d, want 1", stats.HandlerPanics)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()

	count := 0
	sub, err := bus.SubscribeFunc("engine.value.changed", func(_ context.Context, _ topic.Topic, _ any) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	_ = bus.Publish(context.Background(), "engine.value.changed", nil)

	if err := bus.Unsubscribe(sub); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}

	_ = bus.Publish(context.Background(), "engine.value.changed", nil)

	if count != 1 {
		t.Errorf("deliveries = %d, want 1", count)
	}
}

func TestUnsubscribeTwice(t *testing.T) {
	bus := NewBus()

	sub, _ := bus.SubscribeFunc("engine.value.changed", func(_ context.Context, _ topic.Topic, _ any) error { return nil })

	if err := bus.Unsubscribe(sub); err != nil {
		t.Fatalf("first Unsubscribe failed: %v", err)
	}
	if err := bus.Unsubscribe(sub); !errors.Is(err, ErrSubscriptionNotFound) {
		t.Errorf("second Unsubscribe err = %v, want ErrSubscriptionNotFound", err)
	}
}

func TestCancelledSubscriptionSkipped(t *testing.T) {
	bus := NewBus()

	count := 0
	sub, _ := bus.SubscribeFunc("engine.value.changed", func(_ context.Context, _ topic.Topic, _ any) error {
		count++
		return nil
	})

	sub.Cancel()
	_ = bus.Publish(context.Background(), "engine.value.changed", nil)

	if count != 0 {
		t.Errorf("cancelled subscription received %d deliveries", count)
	}
}

func TestPublishNoSubscribers(t *testing.T) {
	bus := NewBus()
	if err := bus.Publish(context.Background(), "engine.value.changed", nil); err != nil {
		t.Errorf("Publish with no subscribers failed: %v", err)
	}
}

func TestStatsCounters(t *testing.T) {
	bus := NewBus()

	_, _ = bus.SubscribeFunc("engine.value.changed", func(_ context.Context, _ topic.Topic, _ any) error { return nil })

	_ = bus.Publish(context.Background(), "engine.value.changed", nil)
	_ = bus.Publish(context.Background(), "engine.value.changed", nil)

	stats := bus.Stats()
	if stats.Published != 2 {
		t.Errorf("Published = %d, want 2", stats.Published)
	}
	if stats.Delivered != 2 {
		t.Errorf("Delivered = %d, want 2", stats.Delivered)
	}
	if stats.ActiveSubscribers != 1 {
		t.Errorf("ActiveSubscribers = %d, want 1", stats.ActiveSubscribers)
	}
}
