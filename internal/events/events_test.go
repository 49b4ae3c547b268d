package events

import (
	"context"
	"sync"
	"testing"
	"time"
)

func receiveEvent(t *testing.T, ch <-chan ProgressEvent) ProgressEvent {
	t.Helper()

	timer := time.NewTimer(500 * time.Millisecond)
	defer timer.Stop()

	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("channel closed before receive")
		}
		return ev
	case <-timer.C:
		t.Fatal("timed out waiting for event")
	}

	return ProgressEvent{}
}

func waitForClosed(t *testing.T, ch <-chan ProgressEvent) {
	t.Helper()

	timer := time.NewTimer(500 * time.Millisecond)
	defer timer.Stop()

	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-timer.C:
			t.Fatal("timed out waiting for channel close")
		}
	}
}

func TestSubscribePublish(t *testing.T) {
	b := NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := b.Subscribe(ctx, "req-1")
	b.Publish(ProgressEvent{RequestID: "req-1", Type: TypeProgress, Phase: PhaseScout, Percent: 25})

	ev := receiveEvent(t, ch)
	if ev.Phase != PhaseScout || ev.Percent != 25 {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestPublish_OtherRequestNotDelivered(t *testing.T) {
	b := NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := b.Subscribe(ctx, "req-1")
	b.Publish(ProgressEvent{RequestID: "req-2", Type: TypeProgress})

	select {
	case ev := <-ch:
		t.Fatalf("unexpected delivery: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribe_UnsubscribeOnCancel(t *testing.T) {
	b := NewBroker()
	ctx, cancel := context.WithCancel(context.Background())

	ch := b.Subscribe(ctx, "req-1")
	cancel()
	waitForClosed(t, ch)

	b.mu.RLock()
	_, exists := b.subscribers["req-1"]
	b.mu.RUnlock()
	if exists {
		t.Fatal("subscriber not removed after cancel")
	}
}

func TestPublish_ConcurrentWithUnsubscribe(t *testing.T) {
	b := NewBroker()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				b.Publish(ProgressEvent{RequestID: "req-1", Type: TypeProgress})
			}
		}
	}()

	// A client disconnecting mid-run must never panic the publisher with a
	// send on a closed channel.
	for i := 0; i < 200; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		ch := b.Subscribe(ctx, "req-1")
		b.Publish(ProgressEvent{RequestID: "req-1", Type: TypeProgress})
		cancel()
		waitForClosed(t, ch)
	}

	close(stop)
	wg.Wait()
}

func TestPublish_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_ = b.Subscribe(ctx, "req-1")
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(ProgressEvent{RequestID: "req-1", Seq: int64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber channel")
	}
}
