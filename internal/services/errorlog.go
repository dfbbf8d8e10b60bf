package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/propboard/propboard/internal/models"
)

const errorReportKey = "client_errors:recent"

// ErrorLogService keeps a bounded rolling window of client-side error
// reports for diagnostics. Old reports fall off the end of the list.
type ErrorLogService struct {
	client *redis.Client
	window int
}

func NewErrorLogService(client *redis.Client, window int) *ErrorLogService {
	if window <= 0 {
		window = 50
	}
	return &ErrorLogService{
		client: client,
		window: window,
	}
}

// Report appends a client error to the window, assigning a correlation ID
// when the client did not send one.
func (s *ErrorLogService) Report(ctx context.Context, report models.ClientErrorReport) (models.ClientErrorReport, error) {
	if report.CorrelationID == "" {
		report.CorrelationID = uuid.NewString()
	}
	report.ReportedAt = time.Now().UTC()

	data, err := json.Marshal(report)
	if err != nil {
		return report, fmt.Errorf("failed to marshal error report: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, errorReportKey, data)
	pipe.LTrim(ctx, errorReportKey, 0, int64(s.window-1))
	pipe.Expire(ctx, errorReportKey, 7*24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return report, fmt.Errorf("failed to store error report: %w", err)
	}

	return report, nil
}

// Recent returns the rolling window, newest first.
func (s *ErrorLogService) Recent(ctx context.Context) ([]models.ClientErrorReport, error) {
	raw, err := s.client.LRange(ctx, errorReportKey, 0, int64(s.window-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read error reports: %w", err)
	}

	reports := make([]models.ClientErrorReport, 0, len(raw))
	for _, item := range raw {
		var report models.ClientErrorReport
		if err := json.Unmarshal([]byte(item), &report); err != nil {
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}
