package models

import (
	"time"

	"gorm.io/datatypes"
)

// Setting is one operator-tunable value read by the settings snapshot, e.g. MAX_CARDS.
type Setting struct {
	Key       string         `gorm:"type:varchar(64);primaryKey"`
	Value     datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime"`
}
