package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propboard/propboard/internal/models"
)

type recordingErrorSink struct {
	mu      sync.Mutex
	reports []models.ClientErrorReport
}

func (s *recordingErrorSink) Report(ctx context.Context, report models.ClientErrorReport) (models.ClientErrorReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, report)
	return report, nil
}

func (s *recordingErrorSink) Recent(ctx context.Context) ([]models.ClientErrorReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ClientErrorReport, len(s.reports))
	copy(out, s.reports)
	return out, nil
}

func (s *recordingErrorSink) stored() []models.ClientErrorReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ClientErrorReport, len(s.reports))
	copy(out, s.reports)
	return out
}

func errorsTestRouter(sink *recordingErrorSink) *gin.Engine {
	gin.SetMode(gin.TestMode)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	handler := NewErrorsHandler(sink, log)

	router := gin.New()
	router.POST("/api/v1/errors", handler.Report)
	router.GET("/api/v1/errors/recent", handler.Recent)
	return router
}

func TestReportAssignsCorrelationID(t *testing.T) {
	sink := &recordingErrorSink{}
	router := errorsTestRouter(sink)

	body := bytes.NewBufferString(`{"message": "render failed", "component_name": "PropTable"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/errors", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "correlation_id")

	require.Eventually(t, func() bool {
		return len(sink.stored()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.NotEmpty(t, sink.stored()[0].CorrelationID)
}

func TestReportKeepsClientSuppliedURL(t *testing.T) {
	sink := &recordingErrorSink{}
	router := errorsTestRouter(sink)

	body := bytes.NewBufferString(`{"message": "boom", "url": "/props?sport=NBA"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/errors", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Referer", "https://example.com/other")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Eventually(t, func() bool {
		return len(sink.stored()) == 1
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, "/props?sport=NBA", sink.stored()[0].URL,
		"the client's URL must not be overwritten by the Referer header")
}

func TestReportFillsURLFromRefererWhenEmpty(t *testing.T) {
	sink := &recordingErrorSink{}
	router := errorsTestRouter(sink)

	body := bytes.NewBufferString(`{"message": "boom"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/errors", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Referer", "https://example.com/board")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Eventually(t, func() bool {
		return len(sink.stored()) == 1
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, "https://example.com/board", sink.stored()[0].URL)
}

func TestReportRequiresMessage(t *testing.T) {
	sink := &recordingErrorSink{}
	router := errorsTestRouter(sink)

	body := bytes.NewBufferString(`{"stack": "at render"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/errors", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecentReturnsWindow(t *testing.T) {
	sink := &recordingErrorSink{reports: []models.ClientErrorReport{
		{CorrelationID: "a", Message: "first"},
		{CorrelationID: "b", Message: "second"},
	}}
	router := errorsTestRouter(sink)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/errors/recent", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":2`)
}
