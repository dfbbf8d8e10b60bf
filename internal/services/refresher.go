package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/propboard/propboard/internal/models"
	"github.com/propboard/propboard/pkg/database"
)

// RefresherService drives the scheduled board refresh cycle and notifies
// websocket subscribers after each cycle.
type RefresherService struct {
	db            *database.DB
	board         *BoardService
	hub           *WebSocketHub
	logger        *logrus.Logger
	cron          *cron.Cron
	mu            sync.Mutex
	isRunning     bool
	fetchInterval time.Duration
}

func NewRefresherService(
	db *database.DB,
	board *BoardService,
	hub *WebSocketHub,
	logger *logrus.Logger,
	fetchInterval time.Duration,
) *RefresherService {
	return &RefresherService{
		db:            db,
		board:         board,
		hub:           hub,
		logger:        logger,
		cron:          cron.New(),
		fetchInterval: fetchInterval,
	}
}

// Start begins the scheduled refreshing. The initial fetch runs in the
// background so startup is not blocked on the upstream vendor.
func (s *RefresherService) Start(skipInitialFetch bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("refresher is already running")
	}

	schedule := fmt.Sprintf("@every %s", s.fetchInterval.String())
	_, err := s.cron.AddFunc(schedule, s.refreshBoard)
	if err != nil {
		return fmt.Errorf("failed to schedule board refresh: %w", err)
	}

	// Daily cleanup of stale projections and old explanation records
	_, err = s.cron.AddFunc("0 3 * * *", s.cleanupOldData)
	if err != nil {
		return fmt.Errorf("failed to schedule cleanup: %w", err)
	}

	s.cron.Start()
	s.isRunning = true

	if !skipInitialFetch {
		go s.refreshBoard()
	}

	s.logger.Info("Board refresher started")
	return nil
}

// Stop halts the scheduled refreshing.
func (s *RefresherService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.logger.Info("Board refresher stopped")
}

// RefreshNow triggers an immediate out-of-cycle refresh.
func (s *RefresherService) RefreshNow(ctx context.Context) error {
	err := s.board.Refresh(ctx)
	s.notify()
	return err
}

func (s *RefresherService) refreshBoard() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.board.Refresh(ctx); err != nil {
		s.logger.Warnf("Scheduled board refresh failed: %v", err)
	}
	s.notify()
}

func (s *RefresherService) notify() {
	if s.hub == nil {
		return
	}
	status := s.board.Status()
	s.hub.Broadcast(BoardUpdate{
		Type:        "board_refresh",
		Projections: status["projections"].(int),
		Degraded:    s.board.Degraded(),
		RefreshedAt: time.Now().UTC(),
	})
}

func (s *RefresherService) cleanupOldData() {
	if s.db == nil {
		return
	}

	// Projections are replaced wholesale on refresh, so anything still
	// carrying an old fetch timestamp is an orphan from a failed cycle.
	staleCutoff := time.Now().UTC().Add(-24 * time.Hour)
	result := s.db.Where("fetched_at < ?", staleCutoff).Delete(&models.Projection{})
	if result.Error != nil {
		s.logger.Errorf("Failed to clean up stale projections: %v", result.Error)
	} else if result.RowsAffected > 0 {
		s.logger.Infof("Cleaned up %d stale projections", result.RowsAffected)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -7)
	result = s.db.Where("created_at < ?", cutoff).Delete(&models.Explanation{})
	if result.Error != nil {
		s.logger.Errorf("Failed to clean up old explanations: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		s.logger.Infof("Cleaned up %d old explanations", result.RowsAffected)
	}
}
