package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/propboard/propboard/internal/models"
	"github.com/propboard/propboard/internal/services"
	"github.com/propboard/propboard/pkg/utils"
)

// Recovery converts handler panics into a generic error response carrying a
// correlation ID. The matching report is stored best-effort; a storage
// failure never affects the response.
func Recovery(logger *logrus.Logger, errorLog *services.ErrorLogService) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		correlationID := uuid.NewString()

		logger.WithFields(logrus.Fields{
			"correlation_id": correlationID,
			"path":           c.Request.URL.Path,
		}).Errorf("Panic recovered: %v", recovered)

		if errorLog != nil {
			report := models.ClientErrorReport{
				CorrelationID: correlationID,
				Message:       fmt.Sprintf("panic: %v", recovered),
				ComponentName: "server",
				URL:           c.Request.URL.Path,
			}
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				errorLog.Report(ctx, report)
			}()
		}

		utils.SendError(c, http.StatusInternalServerError,
			utils.NewAppError(utils.ErrCodeInternal, "internal server error", correlationID))
		c.Abort()
	})
}
