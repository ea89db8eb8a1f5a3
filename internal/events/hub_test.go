package events

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/garcia/facebook-api/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHub_FansOutToAllSubscribers(t *testing.T) {
	t.Parallel()

	h := NewHub(4, discardLogger())
	a, cancelA := h.Subscribe()
	defer cancelA()
	b, cancelB := h.Subscribe()
	defer cancelB()

	ev := domain.PostEvent{ID: "e1", Type: domain.EventCreated, PostID: 7}
	if err := h.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	for name, ch := range map[string]<-chan domain.PostEvent{"a": a, "b": b} {
		select {
		case got := <-ch:
			if got.ID != "e1" || got.PostID != 7 {
				t.Fatalf("%s got=%+v", name, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s: no event delivered", name)
		}
	}
}

func TestHub_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	t.Parallel()

	h := NewHub(1, discardLogger())
	ch, cancel := h.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			_ = h.Publish(context.Background(), domain.PostEvent{PostID: int64(i)})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Publish blocked on a full subscriber")
	}

	got := <-ch
	if got.PostID != 0 {
		t.Fatalf("first buffered PostID=%d want=0", got.PostID)
	}
}

func TestHub_CancelUnsubscribesAndCloses(t *testing.T) {
	t.Parallel()

	h := NewHub(0, discardLogger())
	ch, cancel := h.Subscribe()
	if n := h.Subscribers(); n != 1 {
		t.Fatalf("Subscribers()=%d want=1", n)
	}

	cancel()
	cancel()

	if n := h.Subscribers(); n != 0 {
		t.Fatalf("Subscribers()=%d want=0", n)
	}
	if _, ok := <-ch; ok {
		t.Fatalf("channel still open after cancel")
	}
	// Publishing with no subscribers is a no-op.
	if err := h.Publish(context.Background(), domain.PostEvent{}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
}
