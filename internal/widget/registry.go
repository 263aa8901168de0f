package widget

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/zulandar/showroom/internal/chatlog"
	"github.com/zulandar/showroom/internal/models"
	"github.com/zulandar/showroom/internal/notify"
	"github.com/zulandar/showroom/internal/responder"
)

// DefaultIdleTimeout is how long an unused widget is kept.
const DefaultIdleTimeout = 2 * time.Hour

// Registry tracks mounted widgets by id.
type Registry struct {
	log             MessageLog
	presence        PresenceReader
	archiver        LeadArchiver
	notifier        notify.Notifier
	locales         []string
	defaultLocale   string
	maxTextRunes    int
	prefillMaxRunes int
	idle            time.Duration
	now             func() time.Time

	mu      sync.Mutex
	widgets map[string]*Widget
	alerts  sync.WaitGroup // offline alerts in flight
}

// Opts holds parameters for creating a Registry.
type Opts struct {
	Log             MessageLog
	Presence        PresenceReader
	Archiver        LeadArchiver
	Notifier        notify.Notifier // optional
	Locales         []string        // accepted locales; defaults to the responder catalog
	DefaultLocale   string          // used for unaccepted locales; defaults to responder.DefaultLocale
	MaxTextRunes    int
	PrefillMaxRunes int
	IdleTimeout     time.Duration
	Now             func() time.Time
}

// NewRegistry creates a Registry.
func NewRegistry(opts Opts) (*Registry, error) {
	if opts.Log == nil {
		return nil, fmt.Errorf("widget: message log is required")
	}
	if opts.Presence == nil {
		return nil, fmt.Errorf("widget: presence is required")
	}
	if opts.Archiver == nil {
		return nil, fmt.Errorf("widget: archiver is required")
	}
	r := &Registry{
		log:             opts.Log,
		presence:        opts.Presence,
		archiver:        opts.Archiver,
		notifier:        opts.Notifier,
		locales:         opts.Locales,
		defaultLocale:   opts.DefaultLocale,
		maxTextRunes:    opts.MaxTextRunes,
		prefillMaxRunes: opts.PrefillMaxRunes,
		idle:            opts.IdleTimeout,
		now:             opts.Now,
		widgets:         make(map[string]*Widget),
	}
	if r.notifier == nil {
		r.notifier = notify.Nop{}
	}
	if r.defaultLocale == "" {
		r.defaultLocale = responder.DefaultLocale
	}
	if r.maxTextRunes <= 0 {
		r.maxTextRunes = chatlog.DefaultMaxTextRunes
	}
	if r.prefillMaxRunes <= 0 {
		r.prefillMaxRunes = DefaultPrefillMaxRunes
	}
	if r.idle <= 0 {
		r.idle = DefaultIdleTimeout
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r, nil
}

// ResolveLocale maps a requested locale to an accepted one.
func (r *Registry) ResolveLocale(locale string) string {
	loc := responder.NormalizeLocale(locale)
	if len(r.locales) == 0 {
		if responder.Supported(loc) {
			return loc
		}
		return r.defaultLocale
	}
	for _, l := range r.locales {
		if l == loc {
			return loc
		}
	}
	return r.defaultLocale
}

// Mount creates a widget for a session. Presence is read once; the
// welcome matching it is appended unless flags already records one for
// this session and locale. The flag value is the session id, so a
// regenerated session is welcomed again. A nil flags store disables the
// welcome.
func (r *Registry) Mount(ctx context.Context, sessionID, locale, pathname string, flags FlagStore) (*Widget, error) {
	if sessionID == "" {
		return nil, ErrNoSession
	}
	loc := r.ResolveLocale(locale)
	w := &Widget{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Locale:    loc,
		Pathname:  pathname,
		Online:    r.presence.Current(ctx).Available,
		reg:       r,
		script:    responder.NewScript(loc),
		lastUsed:  r.now(),
	}

	if flags != nil {
		key := WelcomeFlagPrefix + loc
		if owner, _ := flags.Get(key); owner != sessionID {
			id := r.log.Append(ctx, chatlog.Entry{
				SessionID: sessionID,
				From:      models.RoleBot,
				Text:      responder.Welcome(loc, w.Online),
				Pathname:  pathname,
				Read:      true,
			})
			if id != 0 {
				w.Welcomed = true
				if err := flags.Set(key, sessionID); err != nil {
					log.Warn().Err(err).Str("component", "widget").Str("session_id", sessionID).Msg("welcome flag not saved")
				}
			}
		}
	}

	r.mu.Lock()
	r.widgets[w.ID] = w
	r.mu.Unlock()
	log.Debug().Str("component", "widget").Str("session_id", sessionID).Str("widget_id", w.ID).
		Str("locale", loc).Bool("online", w.Online).Msg("widget mounted")
	return w, nil
}

// Get returns a mounted widget.
func (r *Registry) Get(id string) (*Widget, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.widgets[id]
	return w, ok
}

// Unmount drops a widget and its script.
func (r *Registry) Unmount(id string) {
	r.mu.Lock()
	delete(r.widgets, id)
	r.mu.Unlock()
}

// Len returns the number of mounted widgets.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.widgets)
}

// Evict drops widgets unused for longer than the idle timeout and returns
// how many were dropped.
func (r *Registry) Evict() int {
	cutoff := r.now().Add(-r.idle)
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, w := range r.widgets {
		w.mu.Lock()
		stale := w.lastUsed.Before(cutoff)
		w.mu.Unlock()
		if stale {
			delete(r.widgets, id)
			n++
		}
	}
	return n
}

// alert delivers a in the background, detached from the visitor's
// request.
func (r *Registry) alert(ctx context.Context, sessionID string, a notify.Alert) {
	r.alerts.Add(1)
	go func() {
		defer r.alerts.Done()
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertTimeout)
		defer cancel()
		if err := r.notifier.Notify(nctx, a); err != nil {
			log.Warn().Err(err).Str("component", "widget").Str("session_id", sessionID).Msg("offline alert not delivered")
		}
	}()
}

// Wait blocks until offline alerts already started have finished.
func (r *Registry) Wait() {
	r.alerts.Wait()
}

// Run evicts idle widgets periodically until ctx is cancelled.
func (r *Registry) Run(ctx context.Context) {
	every := r.idle / 4
	if every > 5*time.Minute {
		every = 5 * time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Evict(); n > 0 {
				log.Debug().Str("component", "widget").Int("evicted", n).Msg("idle widgets dropped")
			}
		}
	}
}
