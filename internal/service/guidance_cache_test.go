package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dropout-copilot-api/internal/models"
)

func TestGuidanceCacheSetGet(t *testing.T) {
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	cache := NewGuidanceCache(15*time.Minute, clock)

	key := GuidanceCacheKey(42)
	stored := models.GuidanceResponse{
		GuidanceResult: models.GuidanceResult{Summary: "Risk is high.", Urgency: models.UrgencyHigh},
		Metadata:       models.GuidanceMetadata{Source: SourceRules, GeneratedAt: now},
	}
	cache.Set(key, stored)

	got, ok := cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, stored, got)
}

func TestGuidanceCacheExpiry(t *testing.T) {
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	cache := NewGuidanceCache(15*time.Minute, clock)

	key := GuidanceCacheKey(7)
	cache.Set(key, models.GuidanceResponse{GuidanceResult: models.GuidanceResult{Summary: "hello"}})

	now = now.Add(14 * time.Minute)
	_, ok := cache.Get(key)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = cache.Get(key)
	assert.False(t, ok)

	// The expired entry must not come back.
	_, ok = cache.Get(key)
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())
}

func TestGuidanceCacheDisabledTTL(t *testing.T) {
	cache := NewGuidanceCache(0, nil)
	cache.Set(GuidanceCacheKey(1), models.GuidanceResponse{})
	_, ok := cache.Get(GuidanceCacheKey(1))
	assert.False(t, ok)
}

func TestGuidanceCacheDelete(t *testing.T) {
	cache := NewGuidanceCache(time.Minute, nil)
	key := GuidanceCacheKey(3)
	cache.Set(key, models.GuidanceResponse{})
	cache.Delete(key)
	_, ok := cache.Get(key)
	assert.False(t, ok)
}
