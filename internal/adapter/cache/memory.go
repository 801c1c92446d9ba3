// internal/adapter/cache/memory.go

// Package cache provides the in-memory document cache injected into static
// document loaders.
package cache

import (
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/koo5/hillview-sub009/internal/domain/photo"
)

// DocumentCache holds decoded static documents per source id with a TTL,
// so repeated loads for the same source skip the network.
type DocumentCache struct {
	cache *ttlcache.Cache[string, []photo.Record]
}

// NewDocumentCache creates a cache whose entries expire after ttl. A zero
// ttl keeps entries for the process lifetime.
func NewDocumentCache(ttl time.Duration) *DocumentCache {
	var opts []ttlcache.Option[string, []photo.Record]
	if ttl > 0 {
		opts = append(opts, ttlcache.WithTTL[string, []photo.Record](ttl))
	}

	c := ttlcache.New(opts...)
	go c.Start()

	return &DocumentCache{cache: c}
}

// Get returns the cached document for a source id.
func (d *DocumentCache) Get(sourceID string) ([]photo.Record, bool) {
	item := d.cache.Get(sourceID)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

// Set stores the decoded document for a source id.
func (d *DocumentCache) Set(sourceID string, photos []photo.Record) {
	d.cache.Set(sourceID, photos, ttlcache.DefaultTTL)
}

// Stop ends the expiration goroutine.
func (d *DocumentCache) Stop() {
	d.cache.Stop()
}
