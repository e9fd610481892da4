package events

import (
	"testing"
	"time"
)

func TestPublishReachesSubscribers(t *testing.T) {
	b := NewBus()
	ch, cancel := b.Subscribe()
	defer cancel()
	b.Publish(Event{Type: TypeExtraction, ID: "x"})
	select {
	case ev := <-ch:
		if ev.ID != "x" || ev.At.IsZero() {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("event not delivered")
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewBus()
	_, cancel := b.Subscribe()
	for i := 0; i < 100; i++ {
		b.Publish(Event{Type: TypeNormalized})
	}
	cancel()
	cancel()
	b.Publish(Event{Type: TypeNormalized})

	var nilBus *Bus
	nilBus.Publish(Event{})
}
