package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/propboard/propboard/internal/api"
	"github.com/propboard/propboard/internal/providers"
	"github.com/propboard/propboard/internal/services"
	"github.com/propboard/propboard/pkg/config"
	"github.com/propboard/propboard/pkg/database"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	logger := logrus.New()
	if cfg.IsProduction() {
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetLevel(logrus.InfoLevel)
		gin.SetMode(gin.ReleaseMode)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment(), database.PoolOptions{
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatalf("Invalid redis URL: %v", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		cancel()
		logger.Fatalf("Failed to connect to redis: %v", err)
	}
	cancel()
	logger.Info("Redis connection established successfully")

	cache := services.NewCacheService(redisClient)

	hub := services.NewWebSocketHub()
	go hub.Run()

	source := providers.NewProplineClient(
		cfg.ProplineBaseURL,
		cfg.ProplineAPIKey,
		cfg.ExternalAPITimeout,
		logger,
	)
	board := services.NewBoardService(
		db,
		cache,
		source,
		logger,
		cfg.ProplineRateLimit,
		cfg.CircuitBreakerTrips,
		cfg.FallbackBoardSize,
	)

	slips := services.NewSlipStore(cache, cfg.SlipTTL())
	errorLog := services.NewErrorLogService(redisClient, cfg.ErrorReportWindow)
	explain := services.NewExplainService(db, cfg, cache)

	fetchInterval, err := time.ParseDuration(cfg.DataFetchInterval)
	if err != nil {
		logger.Warnf("Invalid DATA_FETCH_INTERVAL %q, using 2m", cfg.DataFetchInterval)
		fetchInterval = 2 * time.Minute
	}
	refresher := services.NewRefresherService(db, board, hub, logger, fetchInterval)
	if err := refresher.Start(cfg.SkipInitialFetch); err != nil {
		logger.Fatalf("Failed to start board refresher: %v", err)
	}

	router := api.SetupRouter(api.Dependencies{
		Config:    cfg,
		DB:        db,
		Redis:     redisClient,
		Cache:     cache,
		Board:     board,
		Slips:     slips,
		Refresher: refresher,
		Explain:   explain,
		ErrorLog:  errorLog,
		Hub:       hub,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	refresher.Stop()
	hub.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}
