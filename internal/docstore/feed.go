// Package docstore provides the real-time subscription primitive of the
// Showroom document store: a change feed that writers publish to and a
// Watch loop that re-reads a query and emits full snapshots.
package docstore

import (
	"context"
	"sync"
)

// Collection names published on the change feed.
const (
	Messages = "chat_messages"
	Presence = "presence_statuses"
	Leads    = "leads"
)

// Feed notifies subscribers that a collection changed. Notifications carry
// no payload; subscribers re-read the collection.
type Feed interface {
	// Publish announces a change to collection. Best-effort.
	Publish(ctx context.Context, collection string)
	// Subscribe returns a channel that receives a signal after each change
	// to collection. Signals coalesce; the channel is closed when ctx ends.
	Subscribe(ctx context.Context, collection string) <-chan struct{}
}

// MemoryFeed is an in-process Feed.
type MemoryFeed struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

// NewMemoryFeed creates an empty in-process feed.
func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{subs: make(map[string]map[chan struct{}]struct{})}
}

// Publish signals every subscriber of collection without blocking.
func (f *MemoryFeed) Publish(_ context.Context, collection string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs[collection] {
		select {
		case ch <- struct{}{}:
		default:
			// A signal is already pending.
		}
	}
}

// Subscribe registers a subscriber until ctx is cancelled.
func (f *MemoryFeed) Subscribe(ctx context.Context, collection string) <-chan struct{} {
	ch := make(chan struct{}, 1)

	f.mu.Lock()
	if f.subs[collection] == nil {
		f.subs[collection] = make(map[chan struct{}]struct{})
	}
	f.subs[collection][ch] = struct{}{}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs[collection], ch)
		f.mu.Unlock()
		close(ch)
	}()
	return ch
}

// Subscribers returns the number of live subscribers of collection.
func (f *MemoryFeed) Subscribers(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[collection])
}
