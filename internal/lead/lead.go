// Package lead turns completed scripted conversations and closed operator
// sessions into persisted lead records.
package lead

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zulandar/showroom/internal/docstore"
	"github.com/zulandar/showroom/internal/models"
	"github.com/zulandar/showroom/internal/notify"
	"gorm.io/gorm"
)

// EmptyTranscriptNeed is stored as the need of an archived session that
// has no visitor messages.
const EmptyTranscriptNeed = "(no conversation content)"

// notifyTimeout bounds the alert sent after each archive. Alerts run in
// the background so writers never wait on a chat platform.
const notifyTimeout = 10 * time.Second

// Meta is the provenance attached to a draft.
type Meta struct {
	Source    string
	Language  string
	SessionID string // empty for manual entries
}

// Archiver writes leads.
type Archiver struct {
	db       *gorm.DB
	feed     docstore.Feed
	notifier notify.Notifier
	pending  sync.WaitGroup // alerts in flight
}

// Opts holds parameters for creating an Archiver.
type Opts struct {
	DB       *gorm.DB
	Feed     docstore.Feed   // optional
	Notifier notify.Notifier // optional; told about every new lead
}

// New creates an Archiver.
func New(opts Opts) (*Archiver, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("lead: db is required")
	}
	n := opts.Notifier
	if n == nil {
		n = notify.Nop{}
	}
	return &Archiver{db: opts.DB, feed: opts.Feed, notifier: n}, nil
}

// Archive persists a draft with its provenance. Best-effort: failures are
// logged and the lead is lost.
func (a *Archiver) Archive(ctx context.Context, d models.LeadDraft, m Meta) {
	if _, err := a.create(ctx, d, m); err != nil {
		log.Warn().Err(err).Str("component", "lead").Str("source", m.Source).
			Str("session_id", m.SessionID).Msg("lead lost")
	}
}

// ArchiveSession stores a session transcript as a synthetic lead. The need
// is every visitor message in chronological order, one per line. An empty
// transcript still produces a lead.
func (a *Archiver) ArchiveSession(ctx context.Context, sessionID, language string, transcript []models.ChatMessage) {
	a.Archive(ctx, SessionDraft(sessionID, transcript), Meta{
		Source:    models.SourceArchive,
		Language:  language,
		SessionID: sessionID,
	})
}

// SessionDraft builds the draft for an archived session. transcript must be
// in display order.
func SessionDraft(sessionID string, transcript []models.ChatMessage) models.LeadDraft {
	var lines []string
	for _, m := range transcript {
		if m.From == models.RoleVisitor && m.SessionID == sessionID {
			lines = append(lines, m.Text)
		}
	}
	need := strings.Join(lines, "\n")
	if need == "" {
		need = EmptyTranscriptNeed
	}
	return models.LeadDraft{Name: VisitorName(sessionID), Need: need}
}

// VisitorName is the placeholder name of an archived session.
func VisitorName(sessionID string) string {
	tail := []rune(sessionID)
	if len(tail) > 4 {
		tail = tail[len(tail)-4:]
	}
	return "Visitor " + string(tail)
}

// CreateManual stores a lead typed in by an operator and returns it.
func (a *Archiver) CreateManual(ctx context.Context, d models.LeadDraft, language string) (*models.Lead, error) {
	if strings.TrimSpace(d.Name) == "" && strings.TrimSpace(d.Contact) == "" {
		return nil, fmt.Errorf("lead: name or contact is required")
	}
	return a.create(ctx, d, Meta{Source: models.SourceManual, Language: language})
}

func (a *Archiver) create(ctx context.Context, d models.LeadDraft, m Meta) (*models.Lead, error) {
	switch m.Source {
	case models.SourceScripted, models.SourceArchive, models.SourceManual:
	default:
		return nil, fmt.Errorf("lead: unknown source %q", m.Source)
	}

	l := models.Lead{
		Name:     strings.TrimSpace(d.Name),
		Company:  strings.TrimSpace(d.Company),
		Contact:  strings.TrimSpace(d.Contact),
		Need:     strings.TrimSpace(d.Need),
		Source:   m.Source,
		Language: m.Language,
	}
	if m.SessionID != "" {
		sid := m.SessionID
		l.SessionID = &sid
	}
	if err := a.db.WithContext(ctx).Create(&l).Error; err != nil {
		return nil, fmt.Errorf("lead: create: %w", err)
	}
	if a.feed != nil {
		a.feed.Publish(ctx, docstore.Leads)
	}

	alert, id := notify.LeadAlert(l), l.ID
	a.pending.Add(1)
	go func() {
		defer a.pending.Done()
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		if err := a.notifier.Notify(nctx, alert); err != nil {
			log.Warn().Err(err).Str("component", "lead").Uint("lead_id", id).Msg("lead alert not delivered")
		}
	}()
	return &l, nil
}

// Wait blocks until lead alerts already started have finished.
func (a *Archiver) Wait() {
	a.pending.Wait()
}

// ListFilter narrows List.
type ListFilter struct {
	Source string
	Limit  int // 0 means 50
}

// List returns leads newest first.
func (a *Archiver) List(ctx context.Context, f ListFilter) ([]models.Lead, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	q := a.db.WithContext(ctx).Model(&models.Lead{})
	if f.Source != "" {
		q = q.Where("source = ?", f.Source)
	}
	var leads []models.Lead
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&leads).Error; err != nil {
		return nil, fmt.Errorf("lead: list: %w", err)
	}
	return leads, nil
}
