package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/propboard/propboard/internal/props"
	"github.com/propboard/propboard/internal/services"
	"github.com/propboard/propboard/pkg/utils"
)

type PropsHandler struct {
	board     *services.BoardService
	refresher *services.RefresherService
	logger    *logrus.Logger
}

func NewPropsHandler(board *services.BoardService, refresher *services.RefresherService, logger *logrus.Logger) *PropsHandler {
	return &PropsHandler{
		board:     board,
		refresher: refresher,
		logger:    logger,
	}
}

type propsQuery struct {
	props.FilterConfig
	props.SortConfig
}

// GetProps returns the current board, filtered and sorted per query params.
// An empty result is a valid response, not an error.
func (h *PropsHandler) GetProps(c *gin.Context) {
	var query propsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.SendValidationError(c, "invalid query parameters", err.Error())
		return
	}

	board := h.board.Board()
	filtered := props.Apply(board, query.FilterConfig, query.SortConfig)

	utils.SendSuccess(c, gin.H{
		"projections": filtered,
		"count":       len(filtered),
		"total":       len(board),
		"degraded":    h.board.Degraded(),
	})
}

// GetProp returns a single projection by ID.
func (h *PropsHandler) GetProp(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.SendValidationError(c, "invalid projection ID", err.Error())
		return
	}

	projection, ok := h.board.GetProjection(uint(id))
	if !ok {
		utils.SendNotFound(c, "projection not found")
		return
	}

	utils.SendSuccess(c, projection)
}

// RefreshProps triggers an immediate out-of-cycle board refresh. When the
// upstream is down the service keeps serving the fallback board, so the
// refresh result is reported rather than failing the request outright.
func (h *PropsHandler) RefreshProps(c *gin.Context) {
	err := h.refresher.RefreshNow(c.Request.Context())
	if err != nil {
		h.logger.Warnf("Manual board refresh failed: %v", err)
		utils.SendUpstreamError(c, "upstream fetch failed, serving fallback board")
		return
	}

	utils.SendSuccess(c, h.board.Status())
}
