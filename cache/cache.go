package cache

import (
	"context"
	"sync"
	"time"
)

// CredentialCache maps an API key hash to the device it authenticates.
// Get reports false on a miss; entries expire after the cache's TTL.
type CredentialCache interface {
	Get(ctx context.Context, keyHash string) (string, bool, error)
	Set(ctx context.Context, keyHash, deviceID string) error
	Delete(ctx context.Context, keyHash string) error
}

type credentialEntry struct {
	deviceID  string
	expiresAt time.Time
}

// MemoryCache is the in-process CredentialCache used when no Redis is
// configured.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]credentialEntry // map[keyHash]entry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]credentialEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (mc *MemoryCache) Get(_ context.Context, keyHash string) (string, bool, error) {
	mc.mu.RLock()
	entry, ok := mc.entries[keyHash]
	mc.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if mc.now().After(entry.expiresAt) {
		mc.mu.Lock()
		// re-check under the write lock; a Set may have refreshed it
		if cur, still := mc.entries[keyHash]; still && mc.now().After(cur.expiresAt) {
			delete(mc.entries, keyHash)
		}
		mc.mu.Unlock()
		return "", false, nil
	}
	return entry.deviceID, true, nil
}

func (mc *MemoryCache) Set(_ context.Context, keyHash, deviceID string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.entries[keyHash] = credentialEntry{deviceID: deviceID, expiresAt: mc.now().Add(mc.ttl)}
	return nil
}

func (mc *MemoryCache) Delete(_ context.Context, keyHash string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	delete(mc.entries, keyHash)
	return nil
}

// Stats returns statistics about the current cache.
func (mc *MemoryCache) Stats() map[string]interface{} {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	now := mc.now()
	live := 0
	for _, e := range mc.entries {
		if !now.After(e.expiresAt) {
			live++
		}
	}
	return map[string]interface{}{
		"entries":      len(mc.entries),
		"live_entries": live,
		"ttl_seconds":  mc.ttl.Seconds(),
	}
}

// Purge drops expired entries.
func (mc *MemoryCache) Purge() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := mc.now()
	removed := 0
	for k, e := range mc.entries {
		if now.After(e.expiresAt) {
			delete(mc.entries, k)
			removed++
		}
	}
	return removed
}
