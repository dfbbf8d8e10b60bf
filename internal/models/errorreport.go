package models

import "time"

// ClientErrorReport is a browser-side error forwarded by the frontend error
// boundary. Reports live in a bounded rolling window, not in the database:
// they are diagnostics, not records.
type ClientErrorReport struct {
	CorrelationID string    `json:"correlation_id"`
	Message       string    `json:"message" binding:"required"`
	Stack         string    `json:"stack,omitempty"`
	ComponentName string    `json:"component_name,omitempty"`
	URL           string    `json:"url,omitempty"`
	UserAgent     string    `json:"user_agent,omitempty"`
	ReportedAt    time.Time `json:"reported_at"`
}
