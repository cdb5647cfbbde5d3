package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/IanTiba/unbox-surprise-gifts/internal/giftbox"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// RecordCache keeps persisted gift boxes in Redis by slug. Records never change once written.
// A nil *RecordCache is a valid, always-missing cache.
type RecordCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRecordCache returns a cache with the given entry TTL.
func NewRecordCache(client *redis.Client, ttl time.Duration) *RecordCache {
	if client == nil {
		return nil
	}
	return &RecordCache{client: client, ttl: ttl, prefix: "unboxme:box:"}
}

// Get returns the cached record for slug. Redis failures are logged and read as a miss.
func (c *RecordCache) Get(ctx context.Context, slug string) (giftbox.Record, bool) {
	if c == nil {
		return giftbox.Record{}, false
	}
	raw, errGet := c.client.Get(ctx, c.prefix+slug).Bytes()
	if errGet != nil {
		if !errors.Is(errGet, redis.Nil) {
			log.WithError(errGet).Warnf("cache: get box %s failed", slug)
		}
		return giftbox.Record{}, false
	}
	var record giftbox.Record
	if errUnmarshal := json.Unmarshal(raw, &record); errUnmarshal != nil {
		log.WithError(errUnmarshal).Warnf("cache: decode box %s failed", slug)
		return giftbox.Record{}, false
	}
	return record, true
}

// Set stores record under its slug.
func (c *RecordCache) Set(ctx context.Context, record giftbox.Record) {
	if c == nil || record.Slug == "" {
		return
	}
	raw, errMarshal := json.Marshal(record)
	if errMarshal != nil {
		log.WithError(errMarshal).Warnf("cache: encode box %s failed", record.Slug)
		return
	}
	if errSet := c.client.Set(ctx, c.prefix+record.Slug, raw, c.ttl).Err(); errSet != nil {
		log.WithError(errSet).Warnf("cache: set box %s failed", record.Slug)
	}
}
