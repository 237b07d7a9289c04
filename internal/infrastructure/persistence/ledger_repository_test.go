package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/channelsync/backend/internal/domain/channel"
	"github.com/channelsync/backend/internal/infrastructure/persistence/models"
)

// newTestDB opens an in-memory SQLite database with the sync schema applied
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.LedgerRecordModel{},
		&models.LedgerArchiveModel{},
		&models.SettingModel{},
		&models.OrderLogEntryModel{},
	))
	return db
}

func TestGormLedgerRepository_ReplaceAndGet(t *testing.T) {
	repo := NewGormLedgerRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.ReplaceInventory(ctx, channel.NewSnapshot(channel.PlatformCodeShopify, []channel.InventoryRecord{
		{SKU: "pin-red", Quantity: 4, Name: "Red Pin"},
		{SKU: "", Quantity: 1, Name: "Cash Box"},
		{SKU: "patch", Quantity: 7, Name: "Patch"},
	})))

	snapshot, err := repo.GetInventory(ctx)
	require.NoError(t, err)
	assert.Equal(t, channel.PlatformCodeLedger, snapshot.Source)
	// Row order survives; the skuless record is not tracked
	assert.Equal(t, []channel.InventoryRecord{
		{SKU: "pin-red", Quantity: 4, Name: "Red Pin"},
		{SKU: "patch", Quantity: 7, Name: "Patch"},
	}, snapshot.Records)
}

func TestGormLedgerRepository_ReplaceOverwritesTrackedRows(t *testing.T) {
	repo := NewGormLedgerRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.ReplaceInventory(ctx, channel.NewSnapshot(channel.PlatformCodeEtsy, []channel.InventoryRecord{
		{SKU: "pin-red", Quantity: 4},
		{SKU: "retired", Quantity: 2},
	})))
	require.NoError(t, repo.ReplaceInventory(ctx, channel.NewSnapshot(channel.PlatformCodeEtsy, []channel.InventoryRecord{
		{SKU: "pin-red", Quantity: 3},
	})))

	snapshot, err := repo.GetInventory(ctx)
	require.NoError(t, err)
	assert.Equal(t, []channel.InventoryRecord{{SKU: "pin-red", Quantity: 3}}, snapshot.Records)
}

func TestGormLedgerRepository_GetInventoryEmpty(t *testing.T) {
	repo := NewGormLedgerRepository(newTestDB(t))

	snapshot, err := repo.GetInventory(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snapshot.Records)
}

func TestGormLedgerRepository_ArchiveLeavesLedgerUntouched(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormLedgerRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.ReplaceInventory(ctx, channel.NewSnapshot(channel.PlatformCodeShopify, []channel.InventoryRecord{
		{SKU: "pin-red", Quantity: 4},
	})))

	remote := channel.NewSnapshot(channel.PlatformCodeEtsyV3, []channel.InventoryRecord{
		{SKU: "pin-red", Quantity: 2, Name: "Red Pin"},
		{SKU: "patch", Quantity: 1, Name: "Patch"},
	})
	require.NoError(t, repo.Archive(ctx, remote))
	require.NoError(t, repo.Archive(ctx, remote))

	snapshot, err := repo.GetInventory(ctx)
	require.NoError(t, err)
	assert.Equal(t, []channel.InventoryRecord{{SKU: "pin-red", Quantity: 4}}, snapshot.Records)

	var archived []models.LedgerArchiveModel
	require.NoError(t, db.Order("position asc").Find(&archived).Error)
	assert.Len(t, archived, 4)
	assert.Equal(t, channel.PlatformCodeEtsyV3.String(), archived[0].Source)
}
