package api

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/propboard/propboard/internal/api/handlers"
	"github.com/propboard/propboard/internal/api/middleware"
	"github.com/propboard/propboard/internal/services"
	"github.com/propboard/propboard/pkg/config"
	"github.com/propboard/propboard/pkg/database"
)

// Dependencies carries everything the route tree needs.
type Dependencies struct {
	Config    *config.Config
	DB        *database.DB
	Redis     *redis.Client
	Cache     *services.CacheService
	Board     *services.BoardService
	Slips     *services.SlipStore
	Refresher *services.RefresherService
	Explain   *services.ExplainService
	ErrorLog  *services.ErrorLogService
	Hub       *services.WebSocketHub
	Logger    *logrus.Logger
}

// SetupRouter builds the full route tree.
func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Recovery(deps.Logger, deps.ErrorLog))
	router.Use(middleware.Logger(deps.Logger))
	router.Use(middleware.CORS(deps.Config.CorsOrigins))

	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Redis, deps.Board)
	propsHandler := handlers.NewPropsHandler(deps.Board, deps.Refresher, deps.Logger)
	slipsHandler := handlers.NewSlipsHandler(deps.Slips, deps.Board, deps.Cache, deps.Config, deps.Logger)
	lineupHandler := handlers.NewLineupHandler(deps.DB, deps.Slips, deps.Logger)
	explainHandler := handlers.NewExplainHandler(deps.Explain, deps.Board, deps.Logger)
	errorsHandler := handlers.NewErrorsHandler(deps.ErrorLog, deps.Logger)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub, deps.Config.CorsOrigins, deps.Logger)

	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		propsGroup := v1.Group("/props")
		{
			propsGroup.GET("", propsHandler.GetProps)
			propsGroup.GET("/:id", propsHandler.GetProp)
			propsGroup.POST("/refresh", propsHandler.RefreshProps)
		}

		slipsGroup := v1.Group("/slips")
		{
			slipsGroup.POST("", slipsHandler.CreateSlip)
			slipsGroup.GET("/:id", slipsHandler.GetSlip)
			slipsGroup.DELETE("/:id", slipsHandler.DeleteSlip)
			slipsGroup.POST("/:id/select", slipsHandler.SelectPick)
			slipsGroup.POST("/:id/deselect", slipsHandler.DeselectPick)
			slipsGroup.POST("/:id/optimize", slipsHandler.OptimizeSlip)
		}

		v1.POST("/explain", explainHandler.Explain)

		v1.POST("/errors", errorsHandler.Report)
		v1.GET("/errors/recent", errorsHandler.Recent)

		lineupsGroup := v1.Group("/lineups")
		lineupsGroup.Use(middleware.AuthRequired(deps.Config.JWTSecret))
		{
			lineupsGroup.POST("", lineupHandler.CreateLineup)
			lineupsGroup.GET("", lineupHandler.GetLineups)
			lineupsGroup.GET("/:id", lineupHandler.GetLineup)
			lineupsGroup.PUT("/:id", lineupHandler.UpdateLineup)
			lineupsGroup.DELETE("/:id", lineupHandler.DeleteLineup)
			lineupsGroup.POST("/:id/submit", lineupHandler.SubmitLineup)
		}
	}

	router.GET("/ws", wsHandler.Serve)

	return router
}
