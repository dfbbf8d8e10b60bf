package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/propboard/propboard/internal/models"
	"github.com/propboard/propboard/pkg/utils"
)

// ErrorSink stores client error reports. Satisfied by
// services.ErrorLogService.
type ErrorSink interface {
	Report(ctx context.Context, report models.ClientErrorReport) (models.ClientErrorReport, error)
	Recent(ctx context.Context) ([]models.ClientErrorReport, error)
}

type ErrorsHandler struct {
	errorLog ErrorSink
	logger   *logrus.Logger
}

func NewErrorsHandler(errorLog ErrorSink, logger *logrus.Logger) *ErrorsHandler {
	return &ErrorsHandler{
		errorLog: errorLog,
		logger:   logger,
	}
}

// Report accepts a client-side error report. The report is acknowledged
// immediately with its correlation ID; storage happens in the background
// and a storage failure never surfaces to the client.
func (h *ErrorsHandler) Report(c *gin.Context) {
	var report models.ClientErrorReport
	if err := c.ShouldBindJSON(&report); err != nil {
		utils.SendValidationError(c, "invalid error report", err.Error())
		return
	}

	if report.CorrelationID == "" {
		report.CorrelationID = uuid.NewString()
	}
	// Request metadata only fills gaps the client left empty.
	if report.URL == "" {
		report.URL = c.GetHeader("Referer")
	}
	if report.UserAgent == "" {
		report.UserAgent = c.Request.UserAgent()
	}

	go func(r models.ClientErrorReport) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := h.errorLog.Report(ctx, r); err != nil {
			h.logger.Warnf("Failed to store client error report: %v", err)
		}
	}(report)

	h.logger.WithFields(logrus.Fields{
		"component": report.ComponentName,
		"message":   report.Message,
	}).Warn("Client error reported")

	utils.SendSuccess(c, gin.H{
		"received":       true,
		"correlation_id": report.CorrelationID,
	})
}

// Recent returns the rolling window of client error reports, newest first.
func (h *ErrorsHandler) Recent(c *gin.Context) {
	reports, err := h.errorLog.Recent(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Failed to read error reports: %v", err)
		utils.SendInternalError(c, "failed to read error reports")
		return
	}

	utils.SendSuccess(c, gin.H{
		"reports": reports,
		"count":   len(reports),
	})
}
