package models

import "time"

// MediaKind is the kind of uploaded asset.
type MediaKind string

// MediaKind values.
const (
	// MediaKindImage is a photo attached to a card.
	MediaKindImage MediaKind = "image"
	// MediaKindAudio is a voice recording attached to a card.
	MediaKindAudio MediaKind = "audio"
)

// MediaAsset records an upload that completed successfully.
type MediaAsset struct {
	ID string `gorm:"type:varchar(36);primaryKey"` // UUID, also the object key stem.

	Kind        MediaKind `gorm:"type:varchar(16);not null;index"` // image or audio.
	ObjectKey   string    `gorm:"type:text;not null"`              // Key inside the backing store.
	URL         string    `gorm:"type:text;not null;uniqueIndex"`  // Durable public URL.
	ContentType string    `gorm:"type:varchar(128);not null"`      // Declared MIME type.
	SizeBytes   int64     `gorm:"not null"`                        // Stored size.
	Backend     string    `gorm:"type:varchar(16);not null"`       // Storage backend name.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Upload time.
}
