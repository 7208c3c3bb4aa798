package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/haul/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Settings keys. Tab-scoped keys are built with the helpers below.
const (
	SettingGlobalLock = "global_lock"
	SettingCurrentTab = "current_tab"
)

func TabLockKey(tabName string) string {
	return "tab_lock:" + tabName
}

func SupplierAssignmentKey(tabName string) string {
	return "supplier_assignment:" + tabName
}

// SettingsRepository is the durable key-value store behind locks, supplier
// assignments and the current-tab pointer. Every Get hits the table; state
// is never cached per caller, so a write from one admin device is visible
// to the next read from any other device.
type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get reads one key and JSON-decodes it into out. Returns ErrNotFound for
// keys that were never written.
func (r *SettingsRepository) Get(ctx context.Context, key string, out interface{}) error {
	var row entity.Setting
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if err := json.Unmarshal([]byte(row.Value), out); err != nil {
		return fmt.Errorf("decode setting %s: %w", key, err)
	}
	return nil
}

// Set JSON-encodes the value and upserts it under key.
func (r *SettingsRepository) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}
	row := entity.Setting{
		Key:       key,
		Value:     string(raw),
		UpdatedAt: time.Now(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error
}

// ListPrefix returns all settings whose key starts with prefix, for listing
// every tab lock or every supplier assignment in one call.
func (r *SettingsRepository) ListPrefix(ctx context.Context, prefix string) (map[string]string, error) {
	var rows []entity.Setting
	err := r.db.WithContext(ctx).
		Where("key LIKE ?", prefix+"%").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	values := make(map[string]string, len(rows))
	for _, row := range rows {
		values[row.Key] = row.Value
	}
	return values, nil
}
