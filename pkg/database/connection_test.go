package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPoolOptionsDefaults(t *testing.T) {
	got := PoolOptions{}.withDefaults()

	assert.Equal(t, 10, got.MaxIdleConns)
	assert.Equal(t, 50, got.MaxOpenConns)
	assert.Equal(t, time.Hour, got.ConnMaxLifetime)
}

func TestPoolOptionsConfiguredValuesKept(t *testing.T) {
	got := PoolOptions{
		MaxIdleConns:    5,
		MaxOpenConns:    25,
		ConnMaxLifetime: 30 * time.Minute,
	}.withDefaults()

	assert.Equal(t, 5, got.MaxIdleConns)
	assert.Equal(t, 25, got.MaxOpenConns)
	assert.Equal(t, 30*time.Minute, got.ConnMaxLifetime)
}

func TestPoolOptionsNegativeValuesFallBack(t *testing.T) {
	got := PoolOptions{MaxIdleConns: -1, MaxOpenConns: -1, ConnMaxLifetime: -time.Minute}.withDefaults()

	assert.Equal(t, 10, got.MaxIdleConns)
	assert.Equal(t, 50, got.MaxOpenConns)
	assert.Equal(t, time.Hour, got.ConnMaxLifetime)
}
