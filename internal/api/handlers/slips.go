package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/propboard/propboard/internal/models"
	"github.com/propboard/propboard/internal/props"
	"github.com/propboard/propboard/internal/services"
	"github.com/propboard/propboard/pkg/config"
	"github.com/propboard/propboard/pkg/utils"
)

// SlipStore is the transient slip storage behind the slip endpoints.
// Satisfied by services.SlipStore.
type SlipStore interface {
	Get(ctx context.Context, slipID string) (*props.Slip, error)
	Save(ctx context.Context, slip *props.Slip) error
	Delete(ctx context.Context, slipID string) error
}

type SlipsHandler struct {
	store  SlipStore
	board  *services.BoardService
	cache  *services.CacheService
	config *config.Config
	logger *logrus.Logger
}

func NewSlipsHandler(
	store SlipStore,
	board *services.BoardService,
	cache *services.CacheService,
	cfg *config.Config,
	logger *logrus.Logger,
) *SlipsHandler {
	return &SlipsHandler{
		store:  store,
		board:  board,
		cache:  cache,
		config: cfg,
		logger: logger,
	}
}

// CreateSlip opens a new empty slip.
func (h *SlipsHandler) CreateSlip(c *gin.Context) {
	slip := props.NewSlip(h.config.MaxSlipEntries)

	if err := h.store.Save(c.Request.Context(), slip); err != nil {
		h.logger.Errorf("Failed to create slip: %v", err)
		utils.SendInternalError(c, "failed to create slip")
		return
	}

	utils.SendSuccess(c, slip)
}

// GetSlip returns a slip by ID. Expired slips look identical to slips that
// never existed.
func (h *SlipsHandler) GetSlip(c *gin.Context) {
	slip, ok := h.loadSlip(c)
	if !ok {
		return
	}
	utils.SendSuccess(c, slip)
}

// DeleteSlip discards a slip and its cached estimate.
func (h *SlipsHandler) DeleteSlip(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.logger.Errorf("Failed to delete slip: %v", err)
		utils.SendInternalError(c, "failed to delete slip")
		return
	}
	utils.SendSuccess(c, gin.H{"deleted": true})
}

type selectRequest struct {
	ProjectionID uint   `json:"projection_id" binding:"required"`
	Side         string `json:"side" binding:"required"`
}

// SelectPick adds one side of a projection to the slip. Re-picking the same
// side is a no-op; picking the opposite side flips the existing entry.
func (h *SlipsHandler) SelectPick(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "invalid request body", err.Error())
		return
	}

	slip, ok := h.loadSlip(c)
	if !ok {
		return
	}

	projection, found := h.board.GetProjection(req.ProjectionID)
	if !found {
		utils.SendNotFound(c, "projection not found on the current board")
		return
	}

	entry, err := slip.Select(projection, models.Side(req.Side))
	if err != nil {
		switch {
		case errors.Is(err, props.ErrSlipFull):
			utils.SendUnprocessable(c, err.Error(), "")
		case errors.Is(err, props.ErrInvalidSide):
			utils.SendValidationError(c, err.Error(), "")
		default:
			utils.SendInternalError(c, "failed to update slip")
		}
		return
	}

	if err := h.store.Save(c.Request.Context(), slip); err != nil {
		h.logger.Errorf("Failed to save slip %s: %v", slip.ID, err)
		utils.SendInternalError(c, "failed to save slip")
		return
	}

	utils.SendSuccess(c, gin.H{
		"entry": entry,
		"slip":  slip,
	})
}

type deselectRequest struct {
	EntryID string `json:"entry_id" binding:"required"`
}

// DeselectPick removes an entry unconditionally. Removing an entry that is
// already gone is not an error.
func (h *SlipsHandler) DeselectPick(c *gin.Context) {
	var req deselectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "invalid request body", err.Error())
		return
	}

	slip, ok := h.loadSlip(c)
	if !ok {
		return
	}

	removed := slip.Deselect(req.EntryID)
	if removed {
		if err := h.store.Save(c.Request.Context(), slip); err != nil {
			h.logger.Errorf("Failed to save slip %s: %v", slip.ID, err)
			utils.SendInternalError(c, "failed to save slip")
			return
		}
	}

	utils.SendSuccess(c, gin.H{
		"removed": removed,
		"slip":    slip,
	})
}

// OptimizeSlip prices the slip against the payout table. The configurable
// delay stands in for solver latency and is cut short on request
// cancellation.
func (h *SlipsHandler) OptimizeSlip(c *gin.Context) {
	slip, ok := h.loadSlip(c)
	if !ok {
		return
	}

	if slip.Size() < props.MinEntriesForEstimate {
		utils.SendUnprocessable(c, props.ErrTooFewEntries.Error(), "")
		return
	}

	select {
	case <-time.After(h.config.OptimizeDelay()):
	case <-c.Request.Context().Done():
		return
	}

	estimate, err := props.EstimateSlip(slip)
	if err != nil {
		utils.SendUnprocessable(c, err.Error(), "")
		return
	}

	if err := h.cache.Set(c.Request.Context(), services.EstimateCacheKey(slip.ID), estimate, h.config.SlipTTL()); err != nil {
		h.logger.Warnf("Failed to cache estimate for slip %s: %v", slip.ID, err)
	}

	utils.SendSuccess(c, estimate)
}

// loadSlip fetches the slip from the :id param, writing the error response
// itself when the slip is missing.
func (h *SlipsHandler) loadSlip(c *gin.Context) (*props.Slip, bool) {
	slip, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrSlipNotFound) {
			utils.SendNotFound(c, "slip not found or expired")
		} else {
			h.logger.Errorf("Failed to load slip: %v", err)
			utils.SendInternalError(c, "failed to load slip")
		}
		return nil, false
	}
	return slip, true
}
