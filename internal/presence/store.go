// Package presence tracks whether a live operator is available, using a
// single shared heartbeat record and a freshness window.
package presence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/showroom/internal/docstore"
	"github.com/zulandar/showroom/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Snapshot is the raw stored presence record.
type Snapshot struct {
	Online    bool      `json:"online"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store reads and writes the shared presence record.
type Store interface {
	Get(ctx context.Context) (Snapshot, error)
	// Beat overwrites the record with online and a server timestamp.
	Beat(ctx context.Context, online bool) error
}

// GormStore keeps the presence record in the presence_statuses table.
type GormStore struct {
	db   *gorm.DB
	feed docstore.Feed
	now  func() time.Time
}

// NewGormStore creates a GormStore. feed may be nil.
func NewGormStore(db *gorm.DB, feed docstore.Feed) *GormStore {
	return &GormStore{db: db, feed: feed, now: func() time.Time { return time.Now().UTC() }}
}

// Get returns the stored record. A missing record reads as offline.
func (s *GormStore) Get(ctx context.Context) (Snapshot, error) {
	var row models.PresenceStatus
	err := s.db.WithContext(ctx).Where("doc_key = ?", models.PresenceKey).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("presence: get: %w", err)
	}
	return Snapshot{Online: row.Online, UpdatedAt: row.UpdatedAt}, nil
}

// Beat upserts the record. Last writer wins.
func (s *GormStore) Beat(ctx context.Context, online bool) error {
	row := models.PresenceStatus{
		Key:       models.PresenceKey,
		Online:    online,
		UpdatedAt: s.now().Truncate(time.Millisecond),
	}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "doc_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"online", "updated_at"}),
	}).Create(&row)
	if result.Error != nil {
		return fmt.Errorf("presence: beat: %w", result.Error)
	}
	if s.feed != nil {
		s.feed.Publish(ctx, docstore.Presence)
	}
	return nil
}
