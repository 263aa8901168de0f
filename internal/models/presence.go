package models

import "time"

// PresenceKey is the fixed key of the single shared presence record.
const PresenceKey = "adminStatus"

// PresenceStatus is the global operator availability record. Online is only
// meaningful together with UpdatedAt, which doubles as the heartbeat.
type PresenceStatus struct {
	Key       string    `gorm:"primaryKey;size:32;column:doc_key"`
	Online    bool      `gorm:"not null;default:false"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false"`
}
