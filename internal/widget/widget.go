// Package widget holds the server side of each open visitor chat widget:
// the welcome guard, online/offline routing of visitor messages and the
// per-tab scripted responder.
package widget

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/zulandar/showroom/internal/chatlog"
	"github.com/zulandar/showroom/internal/lead"
	"github.com/zulandar/showroom/internal/models"
	"github.com/zulandar/showroom/internal/notify"
	"github.com/zulandar/showroom/internal/presence"
	"github.com/zulandar/showroom/internal/responder"
)

// WelcomeFlagPrefix prefixes the device-local key that records a welcome
// already sent for a locale. The value is the welcomed session id.
const WelcomeFlagPrefix = "chat_welcomed_"

// DefaultPrefillMaxRunes caps prefilled composer text.
const DefaultPrefillMaxRunes = 500

// alertTimeout bounds the offline-visitor alert sent in the background
// after Send.
const alertTimeout = 10 * time.Second

// ErrNoSession is returned by Mount when the visitor has no session id.
var ErrNoSession = errors.New("widget: no session id; chat disabled")

// MessageLog is the part of chatlog.Log a widget writes to.
type MessageLog interface {
	Append(ctx context.Context, e chatlog.Entry) uint
}

// PresenceReader reports operator availability.
type PresenceReader interface {
	Current(ctx context.Context) presence.Status
}

// LeadArchiver persists completed scripted drafts.
type LeadArchiver interface {
	Archive(ctx context.Context, d models.LeadDraft, m lead.Meta)
}

// FlagStore is the device-local key/value store holding welcome flags.
// identity.Storage satisfies it.
type FlagStore interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// Composer is the visitor's input box state after a prefill event.
type Composer struct {
	Open  bool   `json:"open"`
	Draft string `json:"draft"`
}

// SendResult describes what one visitor message caused.
type SendResult struct {
	MessageID uint            `json:"messageId"`
	Online    bool            `json:"online"`
	State     responder.State `json:"state"`
	Replies   int             `json:"replies"`
	Archived  bool            `json:"archived"`
}

// Widget is one mounted chat widget, i.e. one browser tab. Its script
// lives only as long as the widget; a reload mounts a new one.
type Widget struct {
	ID        string
	SessionID string
	Locale    string
	Pathname  string
	Online    bool // fresh-online at mount
	Welcomed  bool // this mount appended the welcome

	reg      *Registry
	mu       sync.Mutex
	script   *responder.Script
	composer Composer
	lastUsed time.Time
}

// State returns the state of the widget's responder.
func (w *Widget) State() responder.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.script.State()
}

// Send records a visitor message. When no operator is fresh-online the
// responder answers it; otherwise the message waits for a human. Empty
// text is ignored.
func (w *Widget) Send(ctx context.Context, text, pathname string) SendResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastUsed = w.reg.now()

	res := SendResult{State: w.script.State()}
	text, ok := chatlog.NormalizeText(text, w.reg.maxTextRunes)
	if !ok {
		return res
	}
	if pathname == "" {
		pathname = w.Pathname
	}

	res.MessageID = w.reg.log.Append(ctx, chatlog.Entry{
		SessionID: w.SessionID,
		From:      models.RoleVisitor,
		Text:      text,
		Pathname:  pathname,
	})
	w.composer = Composer{}

	if w.reg.presence.Current(ctx).Available {
		res.Online = true
		return res
	}

	before := w.script.State()
	reply := w.script.Step(text)
	for _, msg := range reply.Messages() {
		if w.reg.log.Append(ctx, chatlog.Entry{
			SessionID: w.SessionID,
			From:      models.RoleBot,
			Text:      msg,
			Pathname:  pathname,
			Read:      true,
		}) != 0 {
			res.Replies++
		}
	}
	if reply.Draft != nil {
		w.reg.archiver.Archive(ctx, *reply.Draft, lead.Meta{
			Source:    models.SourceScripted,
			Language:  w.Locale,
			SessionID: w.SessionID,
		})
		res.Archived = true
	}
	if before == responder.StateNone {
		w.reg.alert(ctx, w.SessionID, notify.OfflineMessageAlert(w.SessionID, pathname, text))
	}
	res.State = w.script.State()
	return res
}

// Prefill handles the cross-widget open event: the widget opens with the
// sanitized text in the composer.
func (w *Widget) Prefill(raw string) Composer {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastUsed = w.reg.now()
	w.composer = Composer{Open: true, Draft: SanitizePrefill(raw, w.reg.prefillMaxRunes)}
	return w.composer
}

// Composer returns the current composer state.
func (w *Widget) Composer() Composer {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.composer
}

// SanitizePrefill strips control characters other than newline and tab
// and caps the result at max runes.
func SanitizePrefill(raw string, max int) string {
	if !utf8.ValidString(raw) {
		raw = strings.ToValidUTF8(raw, "")
	}
	var b strings.Builder
	n := 0
	for _, r := range raw {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		if max > 0 && n == max {
			break
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}
