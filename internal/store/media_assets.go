package store

import (
	"context"

	"github.com/IanTiba/unbox-surprise-gifts/internal/models"
	"gorm.io/gorm"
)

// MediaStore records completed uploads.
type MediaStore struct {
	db *gorm.DB
}

// NewMediaStore returns a media store.
func NewMediaStore(conn *gorm.DB) *MediaStore {
	return &MediaStore{db: conn}
}

// Create inserts an upload record.
func (s *MediaStore) Create(ctx context.Context, asset *models.MediaAsset) error {
	return s.db.WithContext(ctx).Create(asset).Error
}

// FindByURLs returns the known assets among urls, keyed by URL.
func (s *MediaStore) FindByURLs(ctx context.Context, urls []string) (map[string]models.MediaAsset, error) {
	out := make(map[string]models.MediaAsset, len(urls))
	if len(urls) == 0 {
		return out, nil
	}
	var assets []models.MediaAsset
	if errFind := s.db.WithContext(ctx).Where("url IN ?", urls).Find(&assets).Error; errFind != nil {
		return nil, errFind
	}
	for _, asset := range assets {
		out[asset.URL] = asset
	}
	return out, nil
}
