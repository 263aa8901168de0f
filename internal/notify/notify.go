// Package notify sends operator alerts about captured leads and visitors
// writing while nobody is online.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/zulandar/showroom/internal/models"
)

// Sidebar colors.
const (
	ColorSuccess = "#36a64f"
	ColorInfo    = "#2196f3"
	ColorWarning = "#ff9800"
)

// Kind classifies an alert.
type Kind string

// Alert kinds.
const (
	KindLead           Kind = "lead"
	KindOfflineMessage Kind = "offline_message"
	KindDigest         Kind = "digest"
)

// previewRunes caps quoted visitor text in alerts.
const previewRunes = 300

// Alert is one operator notification.
type Alert struct {
	Kind      Kind
	Title     string
	Body      string
	Color     string
	Fields    []Field
	SessionID string
}

// Field is a key-value pair rendered beside the alert body.
type Field struct {
	Name  string
	Value string
	Short bool // render side-by-side with another field
}

// Notifier delivers alerts to one destination.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// Multi fans an alert out to every notifier. Failures are logged and
// returned joined; one failing destination does not stop the others.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, a Alert) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, a); err != nil {
			log.Warn().Err(err).Str("component", "notify").Str("kind", string(a.Kind)).
				Str("session_id", a.SessionID).Msg("alert not delivered")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards alerts.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, Alert) error { return nil }

// LeadAlert describes a newly archived lead.
func LeadAlert(l models.Lead) Alert {
	a := Alert{
		Kind:  KindLead,
		Title: fmt.Sprintf("New lead: %s", orDash(l.Name)),
		Body:  preview(l.Need),
		Color: ColorSuccess,
		Fields: []Field{
			{Name: "Company", Value: orDash(l.Company), Short: true},
			{Name: "Contact", Value: orDash(l.Contact), Short: true},
			{Name: "Source", Value: l.Source, Short: true},
			{Name: "Language", Value: orDash(l.Language), Short: true},
		},
	}
	if l.SessionID != nil {
		a.SessionID = *l.SessionID
	}
	return a
}

// OfflineMessageAlert describes a visitor message sent while no operator
// was available.
func OfflineMessageAlert(sessionID, pathname, text string) Alert {
	return Alert{
		Kind:      KindOfflineMessage,
		Title:     "Visitor message while offline",
		Body:      preview(text),
		Color:     ColorWarning,
		SessionID: sessionID,
		Fields: []Field{
			{Name: "Session", Value: sessionID, Short: true},
			{Name: "Page", Value: orDash(pathname), Short: true},
		},
	}
}

// Plain renders an alert as plain text for destinations without rich
// formatting.
func Plain(a Alert) string {
	var b strings.Builder
	b.WriteString(a.Title)
	if a.Body != "" {
		b.WriteString("\n")
		b.WriteString(a.Body)
	}
	for _, f := range a.Fields {
		fmt.Fprintf(&b, "\n%s: %s", f.Name, f.Value)
	}
	return b.String()
}

func preview(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= previewRunes {
		return s
	}
	return string([]rune(s)[:previewRunes]) + "..."
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
