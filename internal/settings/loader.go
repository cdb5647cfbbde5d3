package settings

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/IanTiba/unbox-surprise-gifts/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RefreshSnapshot reloads all settings from the database and updates the in-memory snapshot.
//
// It runs at startup and then on the settings refresh job, so edits to the
// settings table reach running processes within a minute.
func RefreshSnapshot(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("settings: nil db")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var rows []models.Setting
	if errFind := db.WithContext(ctx).
		Select("key", "value", "updated_at").
		Order("key ASC").
		Find(&rows).Error; errFind != nil {
		return errFind
	}

	values := make(map[string]json.RawMessage, len(rows))
	maxUpdatedAt := time.Time{}
	maxUpdatedKey := ""
	for _, row := range rows {
		key := strings.TrimSpace(row.Key)
		if key == "" {
			continue
		}
		values[key] = json.RawMessage(row.Value)
		rowUpdatedAt := row.UpdatedAt.UTC()
		if rowUpdatedAt.After(maxUpdatedAt) || (rowUpdatedAt.Equal(maxUpdatedAt) && key > maxUpdatedKey) {
			maxUpdatedAt = rowUpdatedAt
			maxUpdatedKey = key
		}
	}

	StoreSnapshot(maxUpdatedAt, values)
	return nil
}

// SeedDefaults inserts default rows for keys that have no value yet.
func SeedDefaults(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("settings: nil db")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defaults := map[string]any{
		SiteNameKey:               DefaultSiteName,
		MaxCardsKey:               DefaultMaxCards,
		MaxUnlockDelayDaysKey:     DefaultMaxUnlockDelayDays,
		OrderAbandonAfterHoursKey: DefaultOrderAbandonAfterHours,
	}
	for key, value := range defaults {
		raw, errMarshal := json.Marshal(value)
		if errMarshal != nil {
			return errMarshal
		}
		row := models.Setting{Key: key, Value: datatypes.JSON(raw)}
		if errCreate := db.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "key"}}, DoNothing: true}).
			Create(&row).Error; errCreate != nil {
			return errCreate
		}
	}
	return nil
}
