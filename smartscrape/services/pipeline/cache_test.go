package pipeline

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartscrape/smartscrape/utils/types"
)

func cachedResult(url string) *types.ExtractedResult {
	return &types.ExtractedResult{
		Success:   true,
		Source:    types.SourceDirectScraping,
		URL:       url,
		Timestamp: time.Now().UnixMilli(),
	}
}

func TestCacheRoundtrip(t *testing.T) {
	c := NewCache(8, time.Minute, true)

	c.Add("gaming laptop", cachedResult("https://www.amazon.in/s?k=laptop"))

	got, ok := c.Get("gaming laptop")
	require.True(t, ok)
	assert.Equal(t, "https://www.amazon.in/s?k=laptop", got.URL)
	assert.Equal(t, 1, c.Len())

	_, ok = c.Get("something else")
	assert.False(t, ok)
}

func TestCacheEntriesExpire(t *testing.T) {
	c := NewCache(8, 50*time.Millisecond, true)

	c.Add("q", cachedResult("https://example.com"))
	time.Sleep(120 * time.Millisecond)

	_, ok := c.Get("q")
	assert.False(t, ok)
}

func TestCacheEvictsOldestAtCapacity(t *testing.T) {
	c := NewCache(2, time.Minute, true)

	for i := 0; i < 3; i++ {
		c.Add(fmt.Sprintf("q%d", i), cachedResult("https://example.com"))
	}

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("q0")
	assert.False(t, ok, "oldest entry must be evicted")
	_, ok = c.Get("q2")
	assert.True(t, ok)
}

func TestCacheDisabled(t *testing.T) {
	c := NewCache(8, time.Minute, false)

	c.Add("q", cachedResult("https://example.com"))

	_, ok := c.Get("q")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCachePurge(t *testing.T) {
	c := NewCache(8, time.Minute, true)

	c.Add("a", cachedResult("https://example.com/a"))
	c.Add("b", cachedResult("https://example.com/b"))
	require.Equal(t, 2, c.Len())

	c.Purge()
	assert.Equal(t, 0, c.Len())

	_, ok := c.Get("a")
	assert.False(t, ok)
}
