package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zulandar/showroom/internal/docstore"
)

// Protocol defaults.
const (
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultFreshness         = 120 * time.Second
	writeTimeout             = 5 * time.Second
)

// Available reports whether a snapshot counts as fresh-online at now: the
// stored flag is set and the heartbeat is younger than window.
func Available(s Snapshot, now time.Time, window time.Duration) bool {
	return s.Online && now.Sub(s.UpdatedAt) < window
}

// Status is a snapshot together with the availability derived from it at
// observation time.
type Status struct {
	Snapshot
	Available bool `json:"available"`
}

// Tracker implements both sides of the presence protocol.
type Tracker struct {
	store     Store
	feed      docstore.Feed
	heartbeat time.Duration
	freshness time.Duration
	poll      time.Duration
	recheck   time.Duration
	now       func() time.Time
}

// TrackerOpts holds parameters for creating a Tracker.
type TrackerOpts struct {
	Store             Store
	Feed              docstore.Feed // optional; push notification of changes
	HeartbeatInterval time.Duration // defaults to DefaultHeartbeatInterval
	Freshness         time.Duration // defaults to DefaultFreshness
	Poll              time.Duration // optional store poll for Watch
	// Recheck re-evaluates freshness on a timer in Watch so a stale
	// record flips to unavailable without a new write. Zero leaves
	// staleness to be noticed on the next observed change.
	Recheck time.Duration
	Now     func() time.Time
}

// NewTracker creates a Tracker.
func NewTracker(opts TrackerOpts) (*Tracker, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("presence: tracker: store is required")
	}
	t := &Tracker{
		store:     opts.Store,
		feed:      opts.Feed,
		heartbeat: opts.HeartbeatInterval,
		freshness: opts.Freshness,
		poll:      opts.Poll,
		recheck:   opts.Recheck,
		now:       opts.Now,
	}
	if t.heartbeat <= 0 {
		t.heartbeat = DefaultHeartbeatInterval
	}
	if t.freshness <= 0 {
		t.freshness = DefaultFreshness
	}
	if t.now == nil {
		t.now = time.Now
	}
	return t, nil
}

// SetPresence writes the operator flag. Best-effort: failures are logged
// and never returned.
func (t *Tracker) SetPresence(ctx context.Context, online bool) {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := t.store.Beat(wctx, online); err != nil {
		log.Warn().Err(err).Str("component", "presence").Bool("online", online).Msg("presence write lost")
	}
}

// Current reads the record once. A read failure is reported as offline.
func (t *Tracker) Current(ctx context.Context) Status {
	snap, err := t.store.Get(ctx)
	if err != nil {
		log.Warn().Err(err).Str("component", "presence").Msg("presence read failed; assuming offline")
		return Status{}
	}
	return t.derive(snap)
}

func (t *Tracker) derive(snap Snapshot) Status {
	return Status{Snapshot: snap, Available: Available(snap, t.now(), t.freshness)}
}

// StartHeartbeat marks the operator online now and every heartbeat interval
// until ctx is cancelled, then makes a best-effort offline write. The
// returned channel closes after that final write.
func (t *Tracker) StartHeartbeat(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	t.SetPresence(ctx, true)

	go func() {
		defer close(done)
		ticker := time.NewTicker(t.heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				// The page is going away; this write may not land.
				t.SetPresence(context.Background(), false)
				return
			case <-ticker.C:
				t.SetPresence(ctx, true)
			}
		}
	}()
	return done
}

// Watch emits the derived status on every observed change of the record,
// and, if Recheck is set, whenever the derived availability flips.
func (t *Tracker) Watch(ctx context.Context) <-chan Status {
	snaps := docstore.Watch(ctx, docstore.WatchOpts[Snapshot]{
		Feed:       t.feed,
		Collection: docstore.Presence,
		Poll:       t.poll,
		Load:       t.store.Get,
		Equal: func(a, b Snapshot) bool {
			return a.Online == b.Online && a.UpdatedAt.Equal(b.UpdatedAt)
		},
	})

	out := make(chan Status, 1)
	go func() {
		defer close(out)

		var tick <-chan time.Time
		if t.recheck > 0 {
			ticker := time.NewTicker(t.recheck)
			defer ticker.Stop()
			tick = ticker.C
		}

		var (
			last Status
			have bool
		)
		send := func(s Status) {
			last, have = s, true
			select {
			case out <- s:
			default:
				select {
				case <-out:
				default:
				}
				out <- s
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-snaps:
				if !ok {
					return
				}
				send(t.derive(snap))
			case <-tick:
				if !have {
					continue
				}
				if s := t.derive(last.Snapshot); s.Available != last.Available {
					send(s)
				}
			}
		}
	}()
	return out
}
