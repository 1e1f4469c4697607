package service

import (
	"strconv"
	"sync"
	"time"

	"github.com/noah-isme/dropout-copilot-api/internal/models"
)

// GuidanceCache is a process-local TTL cache for generated guidance.
// Counselling output is short-lived advisory text tied to the latest
// prediction, so entries live in memory and expire lazily on read.
type GuidanceCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]guidanceCacheEntry
}

type guidanceCacheEntry struct {
	result    models.GuidanceResponse
	expiresAt time.Time
}

func NewGuidanceCache(ttl time.Duration, now func() time.Time) *GuidanceCache {
	if now == nil {
		now = time.Now
	}
	return &GuidanceCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]guidanceCacheEntry),
	}
}

// GuidanceCacheKey scopes entries per student.
func GuidanceCacheKey(studentID int64) string {
	return "guidance:" + strconv.FormatInt(studentID, 10)
}

// Get returns the cached result when present and not expired. Expired
// entries are evicted on access.
func (c *GuidanceCache) Get(key string) (models.GuidanceResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return models.GuidanceResponse{}, false
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return models.GuidanceResponse{}, false
	}
	return entry.result, true
}

// Set stores a result for the configured TTL. A non-positive TTL disables
// caching entirely.
func (c *GuidanceCache) Set(key string, result models.GuidanceResponse) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = guidanceCacheEntry{result: result, expiresAt: c.now().Add(c.ttl)}
}

// Delete drops a single entry; used on force refresh and after a new
// prediction invalidates the student's guidance.
func (c *GuidanceCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len reports live (non-expired) entries.
func (c *GuidanceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	count := 0
	for key, entry := range c.entries {
		if now.Before(entry.expiresAt) {
			count++
			continue
		}
		delete(c.entries, key)
	}
	return count
}
