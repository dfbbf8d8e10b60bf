package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/propboard/propboard/internal/services"
	"github.com/propboard/propboard/pkg/database"
)

type HealthHandler struct {
	db    *database.DB
	redis *redis.Client
	board *services.BoardService
}

func NewHealthHandler(db *database.DB, redisClient *redis.Client, board *services.BoardService) *HealthHandler {
	return &HealthHandler{
		db:    db,
		redis: redisClient,
		board: board,
	}
}

// Health is the liveness probe.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

// Ready reports whether the service can actually serve traffic: database and
// redis reachable, and at least one board loaded. A degraded (fallback) board
// still counts as ready but is flagged.
func (h *HealthHandler) Ready(c *gin.Context) {
	checks := gin.H{}
	healthy := true

	if h.db != nil {
		if sqlDB, err := h.db.DB.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			checks["database"] = "unreachable"
			healthy = false
		} else {
			checks["database"] = "ok"
		}
	}

	if err := h.redis.Ping(c.Request.Context()).Err(); err != nil {
		checks["redis"] = "unreachable"
		healthy = false
	} else {
		checks["redis"] = "ok"
	}

	checks["board"] = h.board.Status()
	if !h.board.Ready() {
		healthy = false
	}

	status := http.StatusOK
	state := "ready"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "unavailable"
	}
	c.JSON(status, gin.H{
		"status":   state,
		"degraded": h.board.Degraded(),
		"checks":   checks,
	})
}
