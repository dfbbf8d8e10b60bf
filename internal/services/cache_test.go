package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheKeyBuilders(t *testing.T) {
	assert.Equal(t, "board:all", BoardCacheKey(""))
	assert.Equal(t, "board:nba", BoardCacheKey("nba"))
	assert.Equal(t, "slip:abc", SlipCacheKey("abc"))
	assert.Equal(t, "estimate:abc", EstimateCacheKey("abc"))
	assert.Equal(t, "explanation:7", ExplanationCacheKey(7))
}

func TestSetRejectsUnmarshalableValue(t *testing.T) {
	cache := testCache()

	err := cache.Set(context.Background(), "bad", make(chan int), 0)
	assert.ErrorContains(t, err, "failed to marshal value")
}

func TestSetWithRetryExhaustsRetries(t *testing.T) {
	cache := testCache()

	err := cache.SetWithRetry(context.Background(), "k", "v", 0, 2)
	assert.Error(t, err, "an unreachable redis must still fail after retries")
}
