package persistence

import (
	"context"

	"github.com/channelsync/backend/internal/domain/channel"
	"github.com/channelsync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormLedgerRepository implements channel.LedgerRepository using GORM. It is
// authoritative only for the skus it holds; records without a sku are never
// written to the canonical table.
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewGormLedgerRepository creates a new GormLedgerRepository
func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

var _ channel.LedgerRepository = (*GormLedgerRepository)(nil)

// GetInventory returns the canonical snapshot in stored row order.
func (r *GormLedgerRepository) GetInventory(ctx context.Context) (*channel.Snapshot, error) {
	var rows []models.LedgerRecordModel
	if err := r.db.WithContext(ctx).Order("position asc").Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]channel.InventoryRecord, len(rows))
	for i := range rows {
		records[i] = rows[i].ToDomain()
	}
	return channel.NewSnapshot(channel.PlatformCodeLedger, records), nil
}

// ReplaceInventory overwrites the tracked rows with the snapshot's managed
// records, preserving their order.
func (r *GormLedgerRepository) ReplaceInventory(ctx context.Context, snapshot *channel.Snapshot) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).
			Delete(&models.LedgerRecordModel{}).Error; err != nil {
			return err
		}

		rows := make([]models.LedgerRecordModel, 0, len(snapshot.Records))
		for i, record := range snapshot.Records {
			if !record.Managed() {
				continue
			}
			rows = append(rows, models.LedgerRecordModelFromDomain(record, i))
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 200).Error
	})
}

// Archive stores a timestamped copy of a connector snapshot without touching
// the canonical rows.
func (r *GormLedgerRepository) Archive(ctx context.Context, snapshot *channel.Snapshot) error {
	rows := make([]models.LedgerArchiveModel, len(snapshot.Records))
	for i, record := range snapshot.Records {
		rows[i] = models.LedgerArchiveModelFromDomain(snapshot, record, i)
	}
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(rows, 200).Error
}
