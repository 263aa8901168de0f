package console

import (
	"sort"
	"time"

	"github.com/zulandar/showroom/internal/models"
)

// SessionSummary is one row of the operator inbox.
type SessionSummary struct {
	SessionID    string    `json:"sessionId"`
	LastText     string    `json:"lastText"`
	LastAt       time.Time `json:"lastAt"`
	LastPathname string    `json:"lastPathname"`
	UnreadCount  int       `json:"unreadCount"`
	MessageCount int       `json:"messageCount"`
}

// Inbox is the per-session view of the whole message log.
type Inbox struct {
	Sessions  []SessionSummary `json:"sessions"`
	HasUnread bool             `json:"hasUnread"`
}

// Unread returns the unread count of a session, 0 if absent.
func (in Inbox) Unread(sessionID string) int {
	for _, s := range in.Sessions {
		if s.SessionID == sessionID {
			return s.UnreadCount
		}
	}
	return 0
}

// Aggregate groups messages by session. The last message of a session is
// the one with the greatest creation time, ties going to the greater id.
// Sessions are ordered most recently active first.
func Aggregate(msgs []models.ChatMessage) Inbox {
	type acc struct {
		summary SessionSummary
		lastID  uint
	}
	bySession := make(map[string]*acc)
	var order []string

	for _, m := range msgs {
		a, ok := bySession[m.SessionID]
		if !ok {
			a = &acc{summary: SessionSummary{SessionID: m.SessionID}}
			bySession[m.SessionID] = a
			order = append(order, m.SessionID)
		}
		a.summary.MessageCount++
		if m.From == models.RoleVisitor && !m.Read {
			a.summary.UnreadCount++
		}
		if a.summary.MessageCount == 1 || m.CreatedAt.After(a.summary.LastAt) ||
			(m.CreatedAt.Equal(a.summary.LastAt) && m.ID > a.lastID) {
			a.summary.LastText = m.Text
			a.summary.LastAt = m.CreatedAt
			a.summary.LastPathname = m.Pathname
			a.lastID = m.ID
		}
	}

	in := Inbox{Sessions: make([]SessionSummary, 0, len(order))}
	for _, id := range order {
		s := bySession[id].summary
		in.Sessions = append(in.Sessions, s)
		if s.UnreadCount > 0 {
			in.HasUnread = true
		}
	}
	sort.SliceStable(in.Sessions, func(i, j int) bool {
		if in.Sessions[i].LastAt.Equal(in.Sessions[j].LastAt) {
			return in.Sessions[i].SessionID < in.Sessions[j].SessionID
		}
		return in.Sessions[i].LastAt.After(in.Sessions[j].LastAt)
	})
	return in
}
