package docstore

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	var zero T
	return zero
}

func TestWatch_EmitsInitialSnapshot(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := Watch(ctx, WatchOpts[int]{
		Collection: Messages,
		Load:       func(context.Context) (int, error) { return 7, nil },
	})
	if got := recv(t, ch); got != 7 {
		t.Errorf("snapshot = %d, want 7", got)
	}
}

func TestWatch_ReemitsOnChange(t *testing.T) {
	feed := NewMemoryFeed()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var n atomic.Int64
	ch := Watch(ctx, WatchOpts[int64]{
		Feed:       feed,
		Collection: Messages,
		Load:       func(context.Context) (int64, error) { return n.Load(), nil },
	})
	if got := recv(t, ch); got != 0 {
		t.Fatalf("initial = %d, want 0", got)
	}

	n.Store(3)
	feed.Publish(ctx, Messages)
	if got := recv(t, ch); got != 3 {
		t.Errorf("after change = %d, want 3", got)
	}
}

func TestWatch_EqualSuppressesDuplicates(t *testing.T) {
	feed := NewMemoryFeed()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := Watch(ctx, WatchOpts[string]{
		Feed:       feed,
		Collection: Messages,
		Load:       func(context.Context) (string, error) { return "same", nil },
		Equal:      func(a, b string) bool { return a == b },
	})
	recv(t, ch)

	feed.Publish(ctx, Messages)
	select {
	case v := <-ch:
		t.Fatalf("unexpected duplicate emission %q", v)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatch_PollPicksUpExternalWrites(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var n atomic.Int64
	ch := Watch(ctx, WatchOpts[int64]{
		Collection: Messages,
		Poll:       10 * time.Millisecond,
		Load:       func(context.Context) (int64, error) { return n.Load(), nil },
		Equal:      func(a, b int64) bool { return a == b },
	})
	recv(t, ch)

	n.Store(5)
	if got := recv(t, ch); got != 5 {
		t.Errorf("polled snapshot = %d, want 5", got)
	}
}

func TestWatch_LoadErrorKeepsSubscription(t *testing.T) {
	feed := NewMemoryFeed()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var fail atomic.Bool
	fail.Store(true)
	ch := Watch(ctx, WatchOpts[int]{
		Feed:       feed,
		Collection: Messages,
		Load: func(context.Context) (int, error) {
			if fail.Load() {
				return 0, errors.New("store unavailable")
			}
			return 1, nil
		},
	})

	select {
	case v := <-ch:
		t.Fatalf("unexpected emission %d while store failing", v)
	case <-time.After(50 * time.Millisecond):
	}

	fail.Store(false)
	feed.Publish(ctx, Messages)
	if got := recv(t, ch); got != 1 {
		t.Errorf("snapshot after recovery = %d, want 1", got)
	}
}

func TestWatch_SlowConsumerSeesLatest(t *testing.T) {
	feed := NewMemoryFeed()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var n atomic.Int64
	loads := make(chan struct{}, 16)
	ch := Watch(ctx, WatchOpts[int64]{
		Feed:       feed,
		Collection: Messages,
		Load: func(context.Context) (int64, error) {
			v := n.Load()
			loads <- struct{}{}
			return v, nil
		},
	})
	<-loads // initial load, left unread in the channel

	n.Store(9)
	feed.Publish(ctx, Messages)
	<-loads

	// Give the producer time to replace the buffered snapshot.
	time.Sleep(20 * time.Millisecond)
	if got := recv(t, ch); got != 9 {
		t.Errorf("snapshot = %d, want latest 9", got)
	}
}

func TestWatch_ClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := Watch(ctx, WatchOpts[int]{
		Feed:       NewMemoryFeed(),
		Collection: Messages,
		Load:       func(context.Context) (int, error) { return 1, nil },
	})
	recv(t, ch)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}
