package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryService(t *testing.T) {
	mc, err := NewMemoryService(context.Background(), time.Hour)
	require.NoError(t, err)
	defer mc.Close()

	// Ensure MemoryService implements CacheService
	var _ CacheService = mc

	err = mc.Set("page:1", []byte("<html></html>"), time.Minute)
	assert.NoError(t, err)

	value, err := mc.Get("page:1")
	assert.NoError(t, err)
	assert.Equal(t, "<html></html>", string(value))

	err = mc.Delete("page:1")
	assert.NoError(t, err)

	_, err = mc.Get("page:1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	// Deleting an absent key is not an error
	assert.NoError(t, mc.Delete("page:absent"))
}

func TestMemoryServiceExpiration(t *testing.T) {
	mc, err := NewMemoryService(context.Background(), time.Hour)
	require.NoError(t, err)
	defer mc.Close()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }

	require.NoError(t, mc.Set("blocked", []byte("500"), 10*time.Second))
	require.NoError(t, mc.Set("page", []byte("body"), time.Hour))

	now = now.Add(11 * time.Second)

	_, err = mc.Get("blocked")
	assert.ErrorIs(t, err, ErrCacheMiss)

	value, err := mc.Get("page")
	assert.NoError(t, err)
	assert.Equal(t, "body", string(value))
}

func TestMemoryServiceRejectsNonPositiveTTL(t *testing.T) {
	_, err := NewMemoryService(context.Background(), 0)
	assert.Error(t, err)

	_, err = NewMemoryService(context.Background(), -time.Second)
	assert.Error(t, err)
}
