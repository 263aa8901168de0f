package models

import "time"

// Message roles. The visitor-facing transcript never distinguishes a human
// operator reply from a scripted one, so both are stored as RoleBot.
const (
	RoleVisitor = "visitor"
	RoleBot     = "bot"
)

// ChatMessage is one turn of a visitor conversation. A session exists only
// as the set of messages sharing a SessionID.
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string    `gorm:"size:64;not null;index:idx_session_created" json:"sessionId"`
	From      string    `gorm:"size:16;not null" json:"from"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	Pathname  string    `gorm:"size:512" json:"pathname"`
	Read      bool      `gorm:"default:false;index" json:"read"`
	CreatedAt time.Time `gorm:"index:idx_session_created" json:"createdAt"`
}

// CreatedAtMillis returns the creation time as milliseconds since epoch.
func (m ChatMessage) CreatedAtMillis() int64 {
	return m.CreatedAt.UnixMilli()
}
