package persistence

import (
	"context"

	"github.com/channelsync/backend/internal/domain/channel"
	"github.com/channelsync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormOrderLog implements channel.OrderLog using GORM. Entries are
// append-only; nothing in this repository updates or deletes them.
type GormOrderLog struct {
	db *gorm.DB
}

// NewGormOrderLog creates a new GormOrderLog
func NewGormOrderLog(db *gorm.DB) *GormOrderLog {
	return &GormOrderLog{db: db}
}

var _ channel.OrderLog = (*GormOrderLog)(nil)

// Append adds entries to the audit trail
func (l *GormOrderLog) Append(ctx context.Context, entries []channel.OrderLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	rows := make([]models.OrderLogEntryModel, 0, len(entries))
	for _, entry := range entries {
		row, err := models.OrderLogEntryModelFromDomain(entry)
		if err != nil {
			return err
		}
		rows = append(rows, *row)
	}
	return l.db.WithContext(ctx).CreateInBatches(rows, 100).Error
}

// Recent returns the newest entries, most recent first, capped at limit.
func (l *GormOrderLog) Recent(ctx context.Context, limit int) ([]channel.OrderLogEntry, error) {
	var rows []models.OrderLogEntryModel
	if err := l.db.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]channel.OrderLogEntry, len(rows))
	for i := range rows {
		entry, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		entries[i] = entry
	}
	return entries, nil
}
