package services

import (
	"context"
	"time"

	"telemetry-server/cache"
	applog "telemetry-server/logger"
)

const DefaultJanitorInterval = 5 * time.Minute

// CacheJanitor periodically drops expired entries from the in-memory
// credential cache. Redis expires keys on its own and needs no janitor.
type CacheJanitor struct {
	cache    *cache.MemoryCache
	interval time.Duration
	log      *applog.Logger
}

func NewCacheJanitor(c *cache.MemoryCache, interval time.Duration, log *applog.Logger) *CacheJanitor {
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}
	return &CacheJanitor{cache: c, interval: interval, log: log}
}

// Start runs the janitor until ctx is cancelled.
func (j *CacheJanitor) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				j.RunOnce()
			}
		}
	}()
}

// RunOnce purges expired entries and returns how many were removed.
func (j *CacheJanitor) RunOnce() int {
	removed := j.cache.Purge()
	if removed > 0 {
		j.log.Debug("purged expired credentials", "removed", removed)
	}
	return removed
}

// Stats reports the cache's current size.
func (j *CacheJanitor) Stats() map[string]interface{} {
	return j.cache.Stats()
}
