package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/propboard/propboard/internal/api/middleware"
	"github.com/propboard/propboard/internal/models"
	"github.com/propboard/propboard/internal/props"
	"github.com/propboard/propboard/internal/services"
	"github.com/propboard/propboard/pkg/database"
	"github.com/propboard/propboard/pkg/utils"
)

type LineupHandler struct {
	db     *database.DB
	store  SlipStore
	logger *logrus.Logger
}

func NewLineupHandler(db *database.DB, store SlipStore, logger *logrus.Logger) *LineupHandler {
	return &LineupHandler{
		db:     db,
		store:  store,
		logger: logger,
	}
}

type createLineupRequest struct {
	SlipID string  `json:"slip_id" binding:"required"`
	Name   string  `json:"name"`
	Stake  float64 `json:"stake"`
}

// CreateLineup persists the current slip as a saved lineup. The slip itself
// stays transient; the lineup freezes its entries and the estimate at save
// time.
func (h *LineupHandler) CreateLineup(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.SendUnauthorized(c, "authentication required")
		return
	}

	var req createLineupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "invalid request body", err.Error())
		return
	}

	slip, err := h.store.Get(c.Request.Context(), req.SlipID)
	if err != nil {
		if errors.Is(err, services.ErrSlipNotFound) {
			utils.SendNotFound(c, "slip not found or expired")
		} else {
			utils.SendInternalError(c, "failed to load slip")
		}
		return
	}

	estimate, err := props.EstimateSlip(slip)
	if err != nil {
		utils.SendUnprocessable(c, err.Error(), "")
		return
	}

	lineup := models.Lineup{
		UserID:        userID,
		Name:          req.Name,
		EntryCount:    estimate.EntryCount,
		AvgConfidence: estimate.AvgConfidence,
		Multiplier:    estimate.Multiplier,
		RiskScore:     estimate.RiskScore,
		ValueScore:    estimate.ValueScore,
		Stake:         req.Stake,
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&lineup).Error; err != nil {
			return err
		}
		for _, entry := range slip.Entries {
			row := models.LineupEntry{
				LineupID:      lineup.ID,
				ProjectionID:  entry.ProjectionID,
				PlayerName:    entry.PlayerName,
				StatType:      entry.StatType,
				Line:          entry.Line,
				Side:          entry.Side,
				Confidence:    entry.Confidence,
				ExpectedValue: entry.ExpectedValue,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			lineup.Entries = append(lineup.Entries, row)
		}
		return nil
	})
	if err != nil {
		h.logger.Errorf("Failed to save lineup: %v", err)
		utils.SendInternalError(c, "failed to save lineup")
		return
	}

	utils.SendSuccess(c, lineup)
}

// GetLineups lists the user's saved lineups, newest first, with pagination.
func (h *LineupHandler) GetLineups(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.SendUnauthorized(c, "authentication required")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	var total int64
	if err := h.db.Model(&models.Lineup{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		utils.SendInternalError(c, "failed to count lineups")
		return
	}

	var lineups []models.Lineup
	err := h.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&lineups).Error
	if err != nil {
		utils.SendInternalError(c, "failed to load lineups")
		return
	}

	for i := range lineups {
		if err := lineups[i].LoadEntries(h.db.DB); err != nil {
			h.logger.Warnf("Failed to load entries for lineup %d: %v", lineups[i].ID, err)
		}
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	utils.SendSuccessWithMeta(c, lineups, &utils.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}

// GetLineup returns one saved lineup with its entries.
func (h *LineupHandler) GetLineup(c *gin.Context) {
	lineup, ok := h.loadOwnedLineup(c)
	if !ok {
		return
	}

	if err := lineup.LoadEntries(h.db.DB); err != nil {
		utils.SendInternalError(c, "failed to load lineup entries")
		return
	}

	utils.SendSuccess(c, lineup)
}

type updateLineupRequest struct {
	Name  *string  `json:"name"`
	Stake *float64 `json:"stake"`
}

// UpdateLineup renames or restakes an unsubmitted lineup. Submitted lineups
// are frozen.
func (h *LineupHandler) UpdateLineup(c *gin.Context) {
	lineup, ok := h.loadOwnedLineup(c)
	if !ok {
		return
	}

	if lineup.IsSubmitted {
		utils.SendConflict(c, "submitted lineups cannot be modified")
		return
	}

	var req updateLineupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "invalid request body", err.Error())
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Stake != nil {
		if *req.Stake < 0 {
			utils.SendValidationError(c, "stake cannot be negative", "")
			return
		}
		updates["stake"] = *req.Stake
	}
	if len(updates) == 0 {
		utils.SendValidationError(c, "no fields to update", "")
		return
	}

	if err := h.db.Model(lineup).Updates(updates).Error; err != nil {
		utils.SendInternalError(c, "failed to update lineup")
		return
	}

	if err := lineup.LoadEntries(h.db.DB); err != nil {
		h.logger.Warnf("Failed to load entries for lineup %d: %v", lineup.ID, err)
	}
	utils.SendSuccess(c, lineup)
}

// DeleteLineup removes an unsubmitted lineup and its entries.
func (h *LineupHandler) DeleteLineup(c *gin.Context) {
	lineup, ok := h.loadOwnedLineup(c)
	if !ok {
		return
	}

	if lineup.IsSubmitted {
		utils.SendConflict(c, "submitted lineups cannot be deleted")
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lineup_id = ?", lineup.ID).Delete(&models.LineupEntry{}).Error; err != nil {
			return err
		}
		return tx.Delete(lineup).Error
	})
	if err != nil {
		h.logger.Errorf("Failed to delete lineup %d: %v", lineup.ID, err)
		utils.SendInternalError(c, "failed to delete lineup")
		return
	}

	utils.SendSuccess(c, gin.H{"deleted": true})
}

// SubmitLineup marks a lineup as submitted. Submitting twice is a conflict.
func (h *LineupHandler) SubmitLineup(c *gin.Context) {
	lineup, ok := h.loadOwnedLineup(c)
	if !ok {
		return
	}

	if lineup.IsSubmitted {
		utils.SendConflict(c, "lineup already submitted")
		return
	}

	if err := h.db.Model(lineup).Update("is_submitted", true).Error; err != nil {
		utils.SendInternalError(c, "failed to submit lineup")
		return
	}

	lineup.IsSubmitted = true
	if err := lineup.LoadEntries(h.db.DB); err != nil {
		h.logger.Warnf("Failed to load entries for lineup %d: %v", lineup.ID, err)
	}
	utils.SendSuccess(c, gin.H{
		"lineup":          lineup,
		"expected_payout": lineup.ExpectedPayout(),
	})
}

// loadOwnedLineup fetches the :id lineup and enforces ownership, writing the
// error response itself on failure.
func (h *LineupHandler) loadOwnedLineup(c *gin.Context) (*models.Lineup, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.SendUnauthorized(c, "authentication required")
		return nil, false
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.SendValidationError(c, "invalid lineup ID", err.Error())
		return nil, false
	}

	var lineup models.Lineup
	if err := h.db.First(&lineup, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.SendNotFound(c, "lineup not found")
		} else {
			utils.SendInternalError(c, "failed to load lineup")
		}
		return nil, false
	}

	if lineup.UserID != userID {
		utils.SendForbidden(c, "lineup belongs to another user")
		return nil, false
	}

	return &lineup, true
}
