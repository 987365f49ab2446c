package policystatus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryCachePutGetFlush(t *testing.T) {
	c := NewMemoryCache(0)
	val := &PlaceObsList{Success: true, Message: "cached"}

	_, ok := c.Get("k")
	assert.False(t, ok)

	c.Put("k", val)
	got, ok := c.Get("k")
	assert.True(t, ok)
	assert.Same(t, val, got)
	assert.Equal(t, 1, c.Len())

	c.Flush()
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(time.Nanosecond)
	c.Put("k", &PlaceObsList{})
	time.Sleep(time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCacheKeyStability(t *testing.T) {
	a := Filters{"level": {"Country"}, "primary_ph_measure": {"Social distancing"}}
	b := Filters{"primary_ph_measure": {"Social distancing"}, "level": {"Country"}}

	// Field order in the map must not affect the key.
	assert.Equal(t,
		cacheKey(GeoResCountry, a, CountOptions{One: true}),
		cacheKey(GeoResCountry, b, CountOptions{One: true}))

	// Any differing argument must change the key.
	assert.NotEqual(t,
		cacheKey(GeoResCountry, a, CountOptions{}),
		cacheKey(GeoResState, a, CountOptions{}))
	assert.NotEqual(t,
		cacheKey(GeoResCountry, a, CountOptions{}),
		cacheKey(GeoResCountry, a, CountOptions{ByGroupNumber: true}))
	assert.NotEqual(t,
		cacheKey(GeoResCountry, a, CountOptions{}),
		cacheKey(GeoResCountry, a.Without("level"), CountOptions{}))
	assert.NotEqual(t,
		cacheKey(GeoResCountry, a, CountOptions{}),
		cacheKey(GeoResCountry, a, CountOptions{CountedParentGeos: []GeoRes{GeoResCountry}}))
}
