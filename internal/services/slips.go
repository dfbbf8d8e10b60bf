package services

import (
	"context"
	"errors"
	"time"

	"github.com/propboard/propboard/internal/props"
)

// ErrSlipNotFound is returned for unknown or expired slip IDs.
var ErrSlipNotFound = errors.New("slip not found")

// SlipStore keeps active slips in redis under a TTL. Slips are transient
// session state: they expire on inactivity and are never written to the
// database unless explicitly saved as a lineup.
type SlipStore struct {
	cache *CacheService
	ttl   time.Duration
}

func NewSlipStore(cache *CacheService, ttl time.Duration) *SlipStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &SlipStore{
		cache: cache,
		ttl:   ttl,
	}
}

func (s *SlipStore) Get(ctx context.Context, slipID string) (*props.Slip, error) {
	var slip props.Slip
	err := s.cache.Get(ctx, SlipCacheKey(slipID), &slip)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, ErrSlipNotFound
		}
		return nil, err
	}
	return &slip, nil
}

// Save writes the slip back, resetting its TTL.
func (s *SlipStore) Save(ctx context.Context, slip *props.Slip) error {
	return s.cache.Set(ctx, SlipCacheKey(slip.ID), slip, s.ttl)
}

func (s *SlipStore) Delete(ctx context.Context, slipID string) error {
	return s.cache.Delete(ctx, SlipCacheKey(slipID), EstimateCacheKey(slipID))
}
