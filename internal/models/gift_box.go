package models

import "time"

// GiftBox is a purchased gift box. Rows are written once, when payment completes.
type GiftBox struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Slug            string `gorm:"type:varchar(96);not null;uniqueIndex"`  // Public share identifier.
	PaymentIntentID string `gorm:"type:varchar(255);not null;uniqueIndex"` // Payment that produced the box.
	OrderID         string `gorm:"type:varchar(36);not null;index"`        // Checkout order reference.

	Title              string `gorm:"type:text;not null"`                       // Box title.
	Theme              string `gorm:"type:varchar(32);not null"`                // Visual theme tag.
	Emoji              string `gorm:"type:varchar(32);not null"`                // Header emoji.
	HasConfetti        bool   `gorm:"not null;default:false"`                   // Confetti on open.
	HasBackgroundMusic bool   `gorm:"not null;default:false"`                   // Background music on open.
	SpotifyEmbed       string `gorm:"type:text"`                                // Optional Spotify embed URL.
	Tier               string `gorm:"type:varchar(32);not null"`                // Tier name at purchase.
	AmountCents        int64  `gorm:"not null"`                                 // Price paid, in cents.
	Currency           string `gorm:"type:varchar(8);not null;default:'usd'"`   // ISO currency code.
	ContactEmail       string `gorm:"type:varchar(320);not null"`               // Purchaser email, never shown to viewers.

	Cards []GiftBoxCard `gorm:"foreignKey:GiftBoxID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"` // Cards in reveal order.

	CreatedAt time.Time `gorm:"not null;index"` // Server write time; epoch of every unlock delay.
}

// GiftBoxCard is one card of a purchased gift box.
type GiftBoxCard struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	GiftBoxID uint64 `gorm:"not null;uniqueIndex:idx_gift_box_card_position,priority:1"` // Owning box.
	Position  int    `gorm:"not null;uniqueIndex:idx_gift_box_card_position,priority:2"` // Reveal index.
	CardKey   string `gorm:"type:varchar(64);not null"`                                  // Builder-assigned card id.

	Message         string `gorm:"type:text;not null"`     // Card text.
	ImageURL        string `gorm:"type:text"`              // Uploaded image URL.
	AudioURL        string `gorm:"type:text"`              // Uploaded recording URL.
	UnlockDelayDays int    `gorm:"not null;default:0"`     // Days after box creation before reveal.
}
