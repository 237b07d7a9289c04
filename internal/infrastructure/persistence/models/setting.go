package models

import "time"

// SettingModel is a single key/value row. Connector credentials, order
// watermarks and watch flags live here under namespaced keys.
type SettingModel struct {
	Key       string    `gorm:"primaryKey;size:128"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SettingModel) TableName() string {
	return "settings"
}
