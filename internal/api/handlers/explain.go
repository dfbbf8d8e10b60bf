package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/propboard/propboard/internal/services"
	"github.com/propboard/propboard/pkg/utils"
)

type ExplainHandler struct {
	explain *services.ExplainService
	board   *services.BoardService
	logger  *logrus.Logger
}

func NewExplainHandler(explain *services.ExplainService, board *services.BoardService, logger *logrus.Logger) *ExplainHandler {
	return &ExplainHandler{
		explain: explain,
		board:   board,
		logger:  logger,
	}
}

// Explain answers a natural-language question about a projection on the
// current board.
func (h *ExplainHandler) Explain(c *gin.Context) {
	var req services.ExplainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "invalid request body", err.Error())
		return
	}

	projection, ok := h.board.GetProjection(req.ProjectionID)
	if !ok {
		utils.SendNotFound(c, "projection not found on the current board")
		return
	}

	result, err := h.explain.ExplainProjection(c.Request.Context(), projection, req.Question)
	if err != nil {
		if errors.Is(err, services.ErrExplainRateLimited) {
			utils.SendError(c, http.StatusTooManyRequests,
				utils.NewAppError(utils.ErrCodeUpstream, err.Error()))
			return
		}
		h.logger.Errorf("Explanation failed for projection %d: %v", req.ProjectionID, err)
		utils.SendUpstreamError(c, "explanation service unavailable")
		return
	}

	utils.SendSuccess(c, result)
}
