package db

import (
	"fmt"

	"github.com/IanTiba/unbox-surprise-gifts/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates every table the service uses.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	if errMigrate := conn.AutoMigrate(
		&models.Setting{},
		&models.MediaAsset{},
		&models.Order{},
		&models.GiftBox{},
		&models.GiftBoxCard{},
	); errMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errMigrate)
	}
	return nil
}
