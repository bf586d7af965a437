package events

import (
	"testing"
	"time"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	bus := NewBus()
	a := bus.Subscribe(EventPlayerState)
	b := bus.Subscribe(EventPlayerState)

	bus.Publish(EventPlayerState, Payload{"status": "playing"})

	for name, sub := range map[string]Subscriber{"a": a, "b": b} {
		select {
		case payload := <-sub:
			if payload["status"] != "playing" {
				t.Fatalf("subscriber %s: unexpected payload %+v", name, payload)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %s: no event received", name)
		}
	}
}

func TestPublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventTrackChanged)

	// Fill the subscriber buffer and keep publishing; Publish must return.
	done := make(chan struct{})
	go func() {
		for i := 0; i < cap(sub)*3; i++ {
			bus.Publish(EventTrackChanged, Payload{"i": i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventPlaylistFinished)
	bus.Unsubscribe(EventPlaylistFinished, sub)

	if _, ok := <-sub; ok {
		t.Fatal("expected closed channel after unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	bus.Publish(EventPlaylistFinished, Payload{})
}
