// Package chatlog is the session-partitioned, append-only log of chat turns
// shared between the visitor widget and the operator console.
package chatlog

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/zulandar/showroom/internal/docstore"
	"github.com/zulandar/showroom/internal/models"
	"gorm.io/gorm"
)

// DefaultMaxTextRunes bounds the length of a stored message.
const DefaultMaxTextRunes = 2000

// Entry holds the caller-supplied fields of a new message.
type Entry struct {
	SessionID string
	From      string // models.RoleVisitor or models.RoleBot
	Text      string
	Pathname  string
	Read      bool
}

// Filter selects messages for a subscription. The zero Filter selects all
// sessions.
type Filter struct {
	SessionID string
}

// Log reads and writes chat messages.
type Log struct {
	db       *gorm.DB
	feed     docstore.Feed
	poll     time.Duration
	maxRunes int
}

// Opts holds parameters for creating a Log.
type Opts struct {
	DB           *gorm.DB
	Feed         docstore.Feed // optional; push notification of changes
	Poll         time.Duration // optional; re-read period for subscriptions
	MaxTextRunes int           // defaults to DefaultMaxTextRunes
}

// New creates a Log.
func New(opts Opts) (*Log, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("chatlog: db is required")
	}
	max := opts.MaxTextRunes
	if max <= 0 {
		max = DefaultMaxTextRunes
	}
	return &Log{db: opts.DB, feed: opts.Feed, poll: opts.Poll, maxRunes: max}, nil
}

// NormalizeText trims text and truncates it to max runes. It reports false
// for text that is empty after trimming.
func NormalizeText(text string, max int) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	if max > 0 && utf8.RuneCountInString(text) > max {
		text = string([]rune(text)[:max])
	}
	return text, true
}

// Append stores a new message and returns its id. Best-effort: invalid
// input is ignored and store failures are logged; both return 0. Lost
// messages are not retried.
func (l *Log) Append(ctx context.Context, e Entry) uint {
	if e.SessionID == "" {
		return 0
	}
	if e.From != models.RoleVisitor && e.From != models.RoleBot {
		log.Warn().Str("component", "chatlog").Str("from", e.From).Msg("append: unknown role")
		return 0
	}
	text, ok := NormalizeText(e.Text, l.maxRunes)
	if !ok {
		return 0
	}

	msg := models.ChatMessage{
		SessionID: e.SessionID,
		From:      e.From,
		Text:      text,
		Pathname:  e.Pathname,
		Read:      e.Read,
	}
	if err := l.db.WithContext(ctx).Create(&msg).Error; err != nil {
		log.Warn().Err(err).Str("component", "chatlog").Str("session_id", e.SessionID).
			Str("from", e.From).Msg("message lost")
		return 0
	}
	l.publish(ctx)
	return msg.ID
}

// Snapshot returns the messages selected by f in display order: ascending
// creation time, ties broken by insertion order.
func (l *Log) Snapshot(ctx context.Context, f Filter) ([]models.ChatMessage, error) {
	q := l.db.WithContext(ctx).Model(&models.ChatMessage{})
	if f.SessionID != "" {
		q = q.Where("session_id = ?", f.SessionID)
	}
	var msgs []models.ChatMessage
	if err := q.Order("created_at ASC").Order("id ASC").Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("chatlog: snapshot %q: %w", f.SessionID, err)
	}
	return msgs, nil
}

// Subscribe emits the full ordered snapshot for f now and after every
// change, until ctx is cancelled. Consumers replace their state with each
// emission.
func (l *Log) Subscribe(ctx context.Context, f Filter) <-chan []models.ChatMessage {
	return docstore.Watch(ctx, docstore.WatchOpts[[]models.ChatMessage]{
		Feed:       l.feed,
		Collection: docstore.Messages,
		Poll:       l.poll,
		Load: func(ctx context.Context) ([]models.ChatMessage, error) {
			return l.Snapshot(ctx, f)
		},
		Equal: sameSnapshot,
	})
}

// sameSnapshot compares the mutable surface of two snapshots: membership,
// order and read flags. Message text is immutable.
func sameSnapshot(a, b []models.ChatMessage) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Read != b[i].Read {
			return false
		}
	}
	return true
}

// MarkRead flags every unread visitor message of a session as read, one
// update per message. Best-effort: failed updates are logged and the
// messages stay unread. Returns the number of messages updated.
func (l *Log) MarkRead(ctx context.Context, sessionID string) int {
	if sessionID == "" {
		return 0
	}
	var ids []uint
	if err := l.db.WithContext(ctx).Model(&models.ChatMessage{}).
		Where("session_id = ? AND `from` = ? AND `read` = ?", sessionID, models.RoleVisitor, false).
		Pluck("id", &ids).Error; err != nil {
		log.Warn().Err(err).Str("component", "chatlog").Str("session_id", sessionID).Msg("mark read: query failed")
		return 0
	}

	updated := 0
	for _, id := range ids {
		// Only false->true; a concurrent console doing the same is harmless.
		result := l.db.WithContext(ctx).Model(&models.ChatMessage{}).
			Where("id = ? AND `read` = ?", id, false).
			Update("read", true)
		if result.Error != nil {
			log.Warn().Err(result.Error).Str("component", "chatlog").Uint("message_id", id).Msg("mark read failed")
			continue
		}
		updated += int(result.RowsAffected)
	}
	if updated > 0 {
		l.publish(ctx)
	}
	return updated
}

// DeleteSession removes every message of a session. Best-effort; returns
// the number of messages removed.
func (l *Log) DeleteSession(ctx context.Context, sessionID string) int {
	if sessionID == "" {
		return 0
	}
	result := l.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&models.ChatMessage{})
	if result.Error != nil {
		log.Warn().Err(result.Error).Str("component", "chatlog").Str("session_id", sessionID).Msg("delete session failed")
		return 0
	}
	if result.RowsAffected > 0 {
		l.publish(ctx)
	}
	return int(result.RowsAffected)
}

func (l *Log) publish(ctx context.Context) {
	if l.feed != nil {
		l.feed.Publish(ctx, docstore.Messages)
	}
}
