package models

import "time"

// Lead provenance values.
const (
	SourceScripted = "scripted-offline-capture"
	SourceArchive  = "human-session-archive"
	SourceManual   = "manual-entry"
)

// Lead is a captured prospective-customer contact record. Source, Language
// and SessionID are provenance and are fixed at creation.
type Lead struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:256" json:"name"`
	Company   string    `gorm:"size:256" json:"company"`
	Contact   string    `gorm:"size:512" json:"contact"`
	Need      string    `gorm:"type:text" json:"need"`
	Source    string    `gorm:"size:32;not null;index" json:"source"`
	Language  string    `gorm:"size:8" json:"language"`
	SessionID *string   `gorm:"size:64;index" json:"sessionId,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

// LeadDraft holds the contact fields of a lead before provenance is
// attached.
type LeadDraft struct {
	Name    string `json:"name"`
	Company string `json:"company"`
	Contact string `json:"contact"`
	Need    string `json:"need"`
}
