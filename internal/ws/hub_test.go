package ws

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingSubscriber struct {
	mu       sync.Mutex
	messages [][]byte
	fail     bool
	closed   bool
}

func (r *recordingSubscriber) Send(p []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("broken pipe")
	}
	r.messages = append(r.messages, p)
	return nil
}

func (r *recordingSubscriber) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

func (r *recordingSubscriber) snapshot() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages), r.closed
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestBroadcastReachesOnlyProjectSubscribers(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	a := &recordingSubscriber{}
	b := &recordingSubscriber{}
	hub.Register("p1", a)
	hub.Register("p2", b)

	hub.Broadcast("p1", []byte(`{"event":"created"}`))
	waitFor(t, func() bool { n, _ := a.snapshot(); return n == 1 })
	if n, _ := b.snapshot(); n != 0 {
		t.Fatalf("unexpected delivery to other project: %d", n)
	}
}

func TestFailingSubscriberIsDropped(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	broken := &recordingSubscriber{fail: true}
	hub.Register("p1", broken)
	hub.Broadcast("p1", []byte("x"))

	waitFor(t, func() bool { _, closed := broken.snapshot(); return closed })
	if got := hub.Subscribers("p1"); got != 0 {
		t.Fatalf("expected subscriber removal, got %d", got)
	}
}

func TestUnregisterAndClose(t *testing.T) {
	hub := NewHub()
	sub := &recordingSubscriber{}
	hub.Register("p1", sub)
	if got := hub.Subscribers("p1"); got != 1 {
		t.Fatalf("expected 1 subscriber, got %d", got)
	}
	hub.Unregister("p1", sub)
	if got := hub.Subscribers("p1"); got != 0 {
		t.Fatalf("expected 0 subscribers, got %d", got)
	}

	other := &recordingSubscriber{}
	hub.Register("p2", other)
	hub.Close()
	waitFor(t, func() bool { _, closed := other.snapshot(); return closed })
	hub.Broadcast("p2", []byte("ignored"))
}
