package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propboard/propboard/internal/models"
	"github.com/propboard/propboard/internal/props"
	"github.com/propboard/propboard/internal/services"
	"github.com/propboard/propboard/pkg/config"
)

type memorySlipStore struct {
	mu    sync.Mutex
	slips map[string]*props.Slip
}

func newMemorySlipStore() *memorySlipStore {
	return &memorySlipStore{slips: map[string]*props.Slip{}}
}

func (m *memorySlipStore) Get(ctx context.Context, slipID string) (*props.Slip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slip, ok := m.slips[slipID]
	if !ok {
		return nil, services.ErrSlipNotFound
	}
	return slip, nil
}

func (m *memorySlipStore) Save(ctx context.Context, slip *props.Slip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slips[slip.ID] = slip
	return nil
}

func (m *memorySlipStore) Delete(ctx context.Context, slipID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slips, slipID)
	return nil
}

func slipsTestRouter(t *testing.T, store SlipStore, board []models.Projection, delayMs int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	cache := services.NewCacheService(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}))
	boardSvc := services.NewBoardService(nil, cache, &staticSource{board: board}, log, 10, 5, 10)
	require.NoError(t, boardSvc.Refresh(context.Background()))

	cfg := &config.Config{
		MaxSlipEntries:  6,
		SlipTTLMinutes:  1,
		OptimizeDelayMs: delayMs,
	}
	handler := NewSlipsHandler(store, boardSvc, cache, cfg, log)

	router := gin.New()
	group := router.Group("/api/v1/slips")
	group.POST("", handler.CreateSlip)
	group.GET("/:id", handler.GetSlip)
	group.DELETE("/:id", handler.DeleteSlip)
	group.POST("/:id/select", handler.SelectPick)
	group.POST("/:id/deselect", handler.DeselectPick)
	group.POST("/:id/optimize", handler.OptimizeSlip)
	return router
}

func wideBoard(n int) []models.Projection {
	board := make([]models.Projection, 0, n)
	for i := 1; i <= n; i++ {
		board = append(board, models.Projection{
			ExternalID: fmt.Sprintf("pp_%d", i),
			PlayerName: fmt.Sprintf("Player %d", i),
			Sport:      "NBA",
			StatType:   "points",
			Line:       20.5,
			Confidence: 80,
		})
	}
	return board
}

func seedSlip(t *testing.T, store *memorySlipStore) *props.Slip {
	t.Helper()
	slip := props.NewSlip(6)
	require.NoError(t, store.Save(context.Background(), slip))
	return slip
}

func postJSON(router *gin.Engine, url, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, url, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type slipResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Entry props.Entry `json:"entry"`
		Slip  props.Slip  `json:"slip"`
	} `json:"data"`
}

func TestCreateAndGetSlip(t *testing.T) {
	store := newMemorySlipStore()
	router := slipsTestRouter(t, store, wideBoard(3), 1)

	w := postJSON(router, "/api/v1/slips", "")
	require.Equal(t, http.StatusOK, w.Code)

	var created struct {
		Data props.Slip `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.Data.ID)
	assert.Equal(t, 6, created.Data.MaxEntries)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/slips/"+created.Data.ID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetSlipNotFound(t *testing.T) {
	router := slipsTestRouter(t, newMemorySlipStore(), wideBoard(3), 1)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/slips/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSelectPickFlow(t *testing.T) {
	store := newMemorySlipStore()
	router := slipsTestRouter(t, store, wideBoard(3), 1)
	slip := seedSlip(t, store)

	url := "/api/v1/slips/" + slip.ID + "/select"

	w := postJSON(router, url, `{"projection_id": 1, "side": "over"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var first slipResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	require.Len(t, first.Data.Slip.Entries, 1)
	assert.Equal(t, models.SideOver, first.Data.Entry.Side)

	// Same side again: idempotent.
	w = postJSON(router, url, `{"projection_id": 1, "side": "over"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var repeat slipResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &repeat))
	assert.Len(t, repeat.Data.Slip.Entries, 1)
	assert.Equal(t, first.Data.Entry.ID, repeat.Data.Entry.ID)

	// Opposite side flips the entry in place.
	w = postJSON(router, url, `{"projection_id": 1, "side": "under"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var flipped slipResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &flipped))
	assert.Len(t, flipped.Data.Slip.Entries, 1)
	assert.Equal(t, first.Data.Entry.ID, flipped.Data.Entry.ID)
	assert.Equal(t, models.SideUnder, flipped.Data.Entry.Side)
}

func TestSelectPickFullSlip(t *testing.T) {
	store := newMemorySlipStore()
	router := slipsTestRouter(t, store, wideBoard(7), 1)
	slip := seedSlip(t, store)

	url := "/api/v1/slips/" + slip.ID + "/select"
	for i := 1; i <= 6; i++ {
		w := postJSON(router, url, fmt.Sprintf(`{"projection_id": %d, "side": "over"}`, i))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := postJSON(router, url, `{"projection_id": 7, "side": "over"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// A side flip on an existing projection still goes through.
	w = postJSON(router, url, `{"projection_id": 3, "side": "under"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSelectPickInvalidSide(t *testing.T) {
	store := newMemorySlipStore()
	router := slipsTestRouter(t, store, wideBoard(3), 1)
	slip := seedSlip(t, store)

	w := postJSON(router, "/api/v1/slips/"+slip.ID+"/select", `{"projection_id": 1, "side": "push"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSelectPickUnknownProjection(t *testing.T) {
	store := newMemorySlipStore()
	router := slipsTestRouter(t, store, wideBoard(3), 1)
	slip := seedSlip(t, store)

	w := postJSON(router, "/api/v1/slips/"+slip.ID+"/select", `{"projection_id": 99, "side": "over"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeselectPick(t *testing.T) {
	store := newMemorySlipStore()
	router := slipsTestRouter(t, store, wideBoard(3), 1)
	slip := seedSlip(t, store)

	entry, err := slip.Select(models.Projection{ID: 1, PlayerName: "Player 1", Confidence: 80}, models.SideOver)
	require.NoError(t, err)

	url := "/api/v1/slips/" + slip.ID + "/deselect"
	body := fmt.Sprintf(`{"entry_id": %q}`, entry.ID)

	w := postJSON(router, url, body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"removed":true`)

	// Removing an already-removed entry is not an error.
	w = postJSON(router, url, body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"removed":false`)
}

func TestOptimizeTooFewEntries(t *testing.T) {
	store := newMemorySlipStore()
	router := slipsTestRouter(t, store, wideBoard(3), 1)
	slip := seedSlip(t, store)

	_, err := slip.Select(models.Projection{ID: 1, PlayerName: "Player 1", Confidence: 80}, models.SideOver)
	require.NoError(t, err)

	w := postJSON(router, "/api/v1/slips/"+slip.ID+"/optimize", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestOptimizeSlip(t *testing.T) {
	store := newMemorySlipStore()
	router := slipsTestRouter(t, store, wideBoard(3), 1)
	slip := seedSlip(t, store)

	_, err := slip.Select(models.Projection{ID: 1, PlayerName: "Player 1", Confidence: 80}, models.SideOver)
	require.NoError(t, err)
	_, err = slip.Select(models.Projection{ID: 2, PlayerName: "Player 2", Confidence: 90}, models.SideUnder)
	require.NoError(t, err)

	w := postJSON(router, "/api/v1/slips/"+slip.ID+"/optimize", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data props.Estimate `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Data.EntryCount)
	assert.Equal(t, 85.0, resp.Data.AvgConfidence)
	assert.Equal(t, 3.0, resp.Data.Multiplier)
	assert.Equal(t, 15.0, resp.Data.RiskScore)
}

func TestOptimizeCancelledRequest(t *testing.T) {
	store := newMemorySlipStore()
	router := slipsTestRouter(t, store, wideBoard(3), 5000)
	slip := seedSlip(t, store)

	_, err := slip.Select(models.Projection{ID: 1, PlayerName: "Player 1", Confidence: 80}, models.SideOver)
	require.NoError(t, err)
	_, err = slip.Select(models.Projection{ID: 2, PlayerName: "Player 2", Confidence: 90}, models.SideUnder)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/slips/"+slip.ID+"/optimize", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	start := time.Now()
	router.ServeHTTP(w, req)

	assert.Less(t, time.Since(start), time.Second, "a cancelled request must not wait out the delay")
	assert.Zero(t, w.Body.Len(), "no estimate is written for a cancelled request")
}
