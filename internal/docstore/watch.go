package docstore

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// WatchOpts configures a snapshot subscription.
type WatchOpts[T any] struct {
	Feed       Feed
	Collection string
	// Poll re-reads the query on a timer to pick up writes made by
	// processes that do not share the feed. Zero disables polling.
	Poll time.Duration
	// Load reads the current full result of the query.
	Load func(ctx context.Context) (T, error)
	// Equal suppresses emissions identical to the previous one. Optional.
	Equal func(a, b T) bool
}

// Watch emits the current snapshot immediately and again after every
// observed change until ctx is cancelled, then closes the channel. Each
// emission is the complete result, never a delta. A slow consumer only
// ever sees the most recent snapshot.
//
// Load errors are logged and the subscription stays active; the next
// change or poll retries.
func Watch[T any](ctx context.Context, opts WatchOpts[T]) <-chan T {
	out := make(chan T, 1)

	var changes <-chan struct{}
	if opts.Feed != nil {
		changes = opts.Feed.Subscribe(ctx, opts.Collection)
	}

	go func() {
		defer close(out)

		var tick <-chan time.Time
		if opts.Poll > 0 {
			ticker := time.NewTicker(opts.Poll)
			defer ticker.Stop()
			tick = ticker.C
		}

		var (
			last    T
			emitted bool
		)
		emit := func() {
			snap, err := opts.Load(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Warn().Err(err).Str("component", "watch").Str("collection", opts.Collection).
						Msg("snapshot read failed; keeping subscription")
				}
				return
			}
			if emitted && opts.Equal != nil && opts.Equal(last, snap) {
				return
			}
			last, emitted = snap, true
			select {
			case out <- snap:
			default:
				// Replace the unread snapshot with the newer one.
				select {
				case <-out:
				default:
				}
				out <- snap
			}
		}

		emit()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					changes = nil
					continue
				}
				emit()
			case <-tick:
				emit()
			}
		}
	}()
	return out
}
