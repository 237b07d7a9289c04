package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/channelsync/backend/internal/domain/channel"
	"github.com/channelsync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	settingKindCredential = "credential"
	settingKindWatermark  = "order_watermark"
	settingKindWatching   = "order_watching"
)

func settingKey(kind string, platform channel.PlatformCode) string {
	return kind + ":" + platform.String()
}

// GormSettingStore persists per-connector state as namespaced key/value rows.
// It implements channel.CredentialStore and channel.WatermarkStore.
type GormSettingStore struct {
	db *gorm.DB
}

// NewGormSettingStore creates a new GormSettingStore
func NewGormSettingStore(db *gorm.DB) *GormSettingStore {
	return &GormSettingStore{db: db}
}

var (
	_ channel.CredentialStore = (*GormSettingStore)(nil)
	_ channel.WatermarkStore  = (*GormSettingStore)(nil)
)

// SaveCredential durably stores the credential for a platform
func (s *GormSettingStore) SaveCredential(ctx context.Context, platform channel.PlatformCode, cred *channel.Credential) error {
	value, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	return s.put(ctx, settingKey(settingKindCredential, platform), string(value))
}

// LoadCredential returns the stored credential, or channel.ErrCredentialNotFound
func (s *GormSettingStore) LoadCredential(ctx context.Context, platform channel.PlatformCode) (*channel.Credential, error) {
	value, err := s.get(ctx, settingKey(settingKindCredential, platform))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, channel.ErrCredentialNotFound
	}
	if err != nil {
		return nil, err
	}

	var cred channel.Credential
	if err := json.Unmarshal([]byte(value), &cred); err != nil {
		return nil, fmt.Errorf("decode credential: %w", err)
	}
	return &cred, nil
}

// SaveWatermark stores the last-checked timestamp for a platform
func (s *GormSettingStore) SaveWatermark(ctx context.Context, platform channel.PlatformCode, t time.Time) error {
	return s.put(ctx, settingKey(settingKindWatermark, platform), t.UTC().Format(time.RFC3339Nano))
}

// LoadWatermark returns the stored timestamp, or channel.ErrWatermarkNotFound
func (s *GormSettingStore) LoadWatermark(ctx context.Context, platform channel.PlatformCode) (time.Time, error) {
	value, err := s.get(ctx, settingKey(settingKindWatermark, platform))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, channel.ErrWatermarkNotFound
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, value)
}

// SetWatching enables or disables order polling for a platform
func (s *GormSettingStore) SetWatching(ctx context.Context, platform channel.PlatformCode, watching bool) error {
	return s.put(ctx, settingKey(settingKindWatching, platform), strconv.FormatBool(watching))
}

// Watching reports whether order polling is enabled. Platforms with no
// stored flag are not watched.
func (s *GormSettingStore) Watching(ctx context.Context, platform channel.PlatformCode) (bool, error) {
	value, err := s.get(ctx, settingKey(settingKindWatching, platform))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return strconv.ParseBool(value)
}

func (s *GormSettingStore) put(ctx context.Context, key, value string) error {
	row := models.SettingModel{Key: key, Value: value, UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error
}

func (s *GormSettingStore) get(ctx context.Context, key string) (string, error) {
	var row models.SettingModel
	if err := s.db.WithContext(ctx).First(&row, "key = ?", key).Error; err != nil {
		return "", err
	}
	return row.Value, nil
}
