package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/propboard/propboard/internal/models"
	"github.com/propboard/propboard/internal/providers"
	"github.com/propboard/propboard/pkg/database"
)

// ProjectionSource fetches the raw projection board from an upstream vendor.
type ProjectionSource interface {
	FetchProjections(ctx context.Context, sport string) ([]models.Projection, error)
}

// BoardService owns the current projection board. Refreshes replace the
// board wholesale; concurrent refreshes are not sequenced, so the last
// completed fetch wins.
type BoardService struct {
	db           *database.DB
	cache        *CacheService
	source       ProjectionSource
	logger       *logrus.Logger
	breaker      *gobreaker.CircuitBreaker
	limiter      *rate.Limiter
	fallbackSize int

	mu          sync.RWMutex
	board       []models.Projection
	lastRefresh time.Time
	degraded    bool
}

// NewBoardService wires the upstream source behind a circuit breaker and a
// request rate limiter.
func NewBoardService(
	db *database.DB,
	cache *CacheService,
	source ProjectionSource,
	logger *logrus.Logger,
	rateLimit int,
	breakerThreshold int,
	fallbackSize int,
) *BoardService {
	if rateLimit <= 0 {
		rateLimit = 10
	}
	if breakerThreshold <= 0 {
		breakerThreshold = 5
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "propline",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(breakerThreshold)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnf("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	return &BoardService{
		db:           db,
		cache:        cache,
		source:       source,
		logger:       logger,
		breaker:      breaker,
		limiter:      rate.NewLimiter(rate.Limit(rateLimit), rateLimit),
		fallbackSize: fallbackSize,
	}
}

// Refresh fetches a new board from the upstream vendor. On fetch failure or
// an open breaker it falls back to a synthetic placeholder board and marks
// the service degraded.
func (s *BoardService) Refresh(ctx context.Context) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.source.FetchProjections(ctx, "")
	})
	if err != nil {
		s.logger.Warnf("Upstream fetch failed, serving fallback board: %v", err)
		s.install(providers.SyntheticBoard(s.fallbackSize), true)
		return err
	}

	board := result.([]models.Projection)
	if err := s.persist(board); err != nil {
		s.logger.Errorf("Failed to persist board: %v", err)
	}
	s.install(board, false)

	s.logger.Infof("Board refreshed: %d projections", len(board))
	return nil
}

// install swaps the in-memory board and writes through to the cache.
func (s *BoardService) install(board []models.Projection, degraded bool) {
	s.assignIDs(board)

	s.mu.Lock()
	s.board = board
	s.lastRefresh = time.Now().UTC()
	s.degraded = degraded
	s.mu.Unlock()

	// The cached board is what warm restarts and the props endpoint fall
	// back on, so a transient redis hiccup is worth retrying.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.cache.SetWithRetry(ctx, BoardCacheKey(""), board, 10*time.Minute, 3); err != nil {
		s.logger.Warnf("Failed to cache board: %v", err)
	}
}

// persist replaces the projections table wholesale inside a transaction.
// Gorm backfills the primary keys on insert.
func (s *BoardService) persist(board []models.Projection) error {
	if s.db == nil || len(board) == 0 {
		return nil
	}

	tx := s.db.Begin()
	if err := tx.Where("1 = 1").Delete(&models.Projection{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear projections: %w", err)
	}
	if err := tx.Create(&board).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to insert projections: %w", err)
	}
	return tx.Commit().Error
}

// assignIDs gives synthetic primary keys to rows that never reached the
// database, so slip selection can still reference them. Existing IDs are
// collected first: a partially backfilled board must not get duplicates.
func (s *BoardService) assignIDs(board []models.Projection) {
	seen := make(map[uint]bool, len(board))
	next := uint(1)
	for _, p := range board {
		if p.ID != 0 {
			seen[p.ID] = true
			if p.ID >= next {
				next = p.ID + 1
			}
		}
	}

	for i := range board {
		if board[i].ID != 0 {
			continue
		}
		for seen[next] {
			next++
		}
		board[i].ID = next
		seen[next] = true
		next++
	}
}

// Board returns a copy of the current board.
func (s *BoardService) Board() []models.Projection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Projection, len(s.board))
	copy(out, s.board)
	return out
}

// GetProjection looks up a projection by ID on the current board.
func (s *BoardService) GetProjection(id uint) (models.Projection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.board {
		if p.ID == id {
			return p, true
		}
	}
	return models.Projection{}, false
}

// Status reports board readiness metadata for the health endpoint.
func (s *BoardService) Status() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"projections":   len(s.board),
		"last_refresh":  s.lastRefresh,
		"degraded":      s.degraded,
		"breaker_state": s.breaker.State().String(),
	}
}

// Ready reports whether a board has been loaded at least once.
func (s *BoardService) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.lastRefresh.IsZero()
}

// Degraded reports whether the current board is the synthetic fallback.
func (s *BoardService) Degraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.degraded
}
