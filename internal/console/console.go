// Package console is the operator side of the chat: a live inbox over
// every session, read tracking, replies, session close and the presence
// heartbeat that keeps visitors routed to a human.
package console

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/zulandar/showroom/internal/chatlog"
	"github.com/zulandar/showroom/internal/models"
	"github.com/zulandar/showroom/internal/responder"
)

// MessageLog is the part of chatlog.Log the console uses.
type MessageLog interface {
	Append(ctx context.Context, e chatlog.Entry) uint
	Snapshot(ctx context.Context, f chatlog.Filter) ([]models.ChatMessage, error)
	Subscribe(ctx context.Context, f chatlog.Filter) <-chan []models.ChatMessage
	MarkRead(ctx context.Context, sessionID string) int
	DeleteSession(ctx context.Context, sessionID string) int
}

// Heartbeat keeps the operator marked online while running.
type Heartbeat interface {
	StartHeartbeat(ctx context.Context) <-chan struct{}
}

// SessionArchiver stores a session transcript as a lead.
type SessionArchiver interface {
	ArchiveSession(ctx context.Context, sessionID, language string, transcript []models.ChatMessage)
}

// Console is one operator view. Selection is per console.
type Console struct {
	log       MessageLog
	heartbeat Heartbeat
	archiver  SessionArchiver

	mu       sync.Mutex
	selected string
	stop     context.CancelFunc
	stopped  <-chan struct{}
}

// Opts holds parameters for creating a Console.
type Opts struct {
	Log       MessageLog
	Heartbeat Heartbeat
	Archiver  SessionArchiver
}

// New creates a Console.
func New(opts Opts) (*Console, error) {
	if opts.Log == nil {
		return nil, fmt.Errorf("console: message log is required")
	}
	if opts.Heartbeat == nil {
		return nil, fmt.Errorf("console: heartbeat is required")
	}
	if opts.Archiver == nil {
		return nil, fmt.Errorf("console: archiver is required")
	}
	return &Console{log: opts.Log, heartbeat: opts.Heartbeat, archiver: opts.Archiver}, nil
}

// Open starts the presence heartbeat. It is a no-op if already open.
func (c *Console) Open(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		return
	}
	hctx, cancel := context.WithCancel(ctx)
	c.stop = cancel
	c.stopped = c.heartbeat.StartHeartbeat(hctx)
}

// Shutdown stops the heartbeat and waits for its best-effort offline
// write.
func (c *Console) Shutdown() {
	c.mu.Lock()
	stop, stopped := c.stop, c.stopped
	c.stop, c.stopped = nil, nil
	c.mu.Unlock()

	if stop == nil {
		return
	}
	stop()
	<-stopped
}

// Watch emits the inbox on every change of the message log until ctx is
// cancelled.
func (c *Console) Watch(ctx context.Context) <-chan Inbox {
	snaps := c.log.Subscribe(ctx, chatlog.Filter{})
	out := make(chan Inbox, 1)
	go func() {
		defer close(out)
		for msgs := range snaps {
			in := Aggregate(msgs)
			select {
			case out <- in:
			default:
				// Drop the stale inbox; the consumer only needs the latest.
				select {
				case <-out:
				default:
				}
				out <- in
			}
		}
	}()
	return out
}

// Transcript returns the ordered messages of a session.
func (c *Console) Transcript(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	return c.log.Snapshot(ctx, chatlog.Filter{SessionID: sessionID})
}

// Select makes sessionID the reply target and marks its visitor messages
// read. Returns the number marked.
func (c *Console) Select(ctx context.Context, sessionID string) int {
	c.mu.Lock()
	c.selected = sessionID
	c.mu.Unlock()
	return c.log.MarkRead(ctx, sessionID)
}

// Selected returns the selected session, empty if none.
func (c *Console) Selected() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// Reply appends an operator message to the selected session. Returns the
// message id, 0 when nothing was selected or the write was lost.
func (c *Console) Reply(ctx context.Context, text string) uint {
	return c.ReplyTo(ctx, c.Selected(), text)
}

// ReplyTo appends an operator message to sessionID.
func (c *Console) ReplyTo(ctx context.Context, sessionID, text string) uint {
	if sessionID == "" {
		return 0
	}
	return c.log.Append(ctx, chatlog.Entry{
		SessionID: sessionID,
		From:      models.RoleBot,
		Text:      text,
		Read:      true,
	})
}

// CloseSession deletes every message of a session, archiving the
// transcript as a lead first when archive is set. If the transcript
// cannot be read the session is left untouched. Returns the number of
// messages deleted.
func (c *Console) CloseSession(ctx context.Context, sessionID string, archive bool) int {
	if sessionID == "" {
		return 0
	}
	if archive {
		transcript, err := c.log.Snapshot(ctx, chatlog.Filter{SessionID: sessionID})
		if err != nil {
			log.Warn().Err(err).Str("component", "console").Str("session_id", sessionID).Msg("transcript read failed; session kept")
			return 0
		}
		c.archiver.ArchiveSession(ctx, sessionID, SessionLanguage(transcript), transcript)
	}

	n := c.log.DeleteSession(ctx, sessionID)
	c.mu.Lock()
	if c.selected == sessionID {
		c.selected = ""
	}
	c.mu.Unlock()
	return n
}

// SessionLanguage guesses the visitor language from the locale prefix of
// the pages the session was written from. Empty when unknown.
func SessionLanguage(transcript []models.ChatMessage) string {
	for i := len(transcript) - 1; i >= 0; i-- {
		p := strings.TrimPrefix(transcript[i].Pathname, "/")
		seg, _, _ := strings.Cut(p, "/")
		if seg != "" && responder.Supported(seg) {
			return responder.NormalizeLocale(seg)
		}
	}
	return ""
}
