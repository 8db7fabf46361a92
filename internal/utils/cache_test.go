package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheTTL(t *testing.T) {
	c := NewCache(8)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("facets:categories", []string{"web"}, time.Minute)
	v, ok := c.Get("facets:categories")
	assert.True(t, ok)
	assert.Equal(t, []string{"web"}, v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("facets:categories")
	assert.False(t, ok)
}

func TestCacheDeletePrefix(t *testing.T) {
	c := NewCache(8)
	c.Set("facets:a", 1, time.Minute)
	c.Set("facets:b", 2, time.Minute)
	c.Set("home", 3, time.Minute)

	c.DeletePrefix("facets:")

	_, ok := c.Get("facets:a")
	assert.False(t, ok)
	_, ok = c.Get("facets:b")
	assert.False(t, ok)
	_, ok = c.Get("home")
	assert.True(t, ok)
}
