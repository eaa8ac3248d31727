package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MateoRommel12/pineapple-cv/server/cache"
	"github.com/MateoRommel12/pineapple-cv/server/config"
	"github.com/MateoRommel12/pineapple-cv/server/handlers"
	"github.com/MateoRommel12/pineapple-cv/server/history"
	"github.com/MateoRommel12/pineapple-cv/server/middleware"
	"github.com/MateoRommel12/pineapple-cv/server/ml"
	"github.com/MateoRommel12/pineapple-cv/server/processor"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Server struct {
	router      *gin.Engine
	logger      *zap.Logger
	pipeline    *processor.Pipeline
	mlClient    *ml.Client
	store       history.Store
	cache       cache.OutcomeCache
	rateLimiter *middleware.RateLimiter
	config      *config.Config
}

func main() {
	// .env is optional; real deployments inject the environment.
	_ = godotenv.Load()

	cfg := config.LoadConfig()

	var logger *zap.Logger
	var err error
	if cfg.Logging.Format == "json" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	if err := cfg.ValidateConfig(); err != nil {
		logger.Fatal("Configuration validation failed", zap.Error(err))
	}

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	server, err := NewServer(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("addr", addr),
			zap.String("environment", cfg.Server.Environment),
			zap.String("inference_url", cfg.Inference.BaseURL))

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if server.rateLimiter != nil {
		server.rateLimiter.Shutdown()
	}

	if server.cache != nil {
		if err := server.cache.Close(); err != nil {
			logger.Error("Failed to close cache", zap.Error(err))
		}
	}

	if server.store != nil {
		if err := server.store.Close(); err != nil {
			logger.Error("Failed to close history store", zap.Error(err))
		}
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	// Postgres when configured, memory store otherwise.
	var store history.Store
	if cfg.Database.Host != "" {
		pgStore, err := history.NewPostgresStore(cfg.Database)
		if err != nil {
			logger.Warn("Failed to connect to Postgres, using in-memory history", zap.Error(err))
			store = history.NewMemoryStore()
		} else {
			store = pgStore
		}
	} else {
		store = history.NewMemoryStore()
	}

	outcomeCache := cache.NewMemoryCache(1000, 10*time.Minute, logger)

	mlClient := ml.NewClient(cfg.Inference, logger)

	pipeline := processor.NewPipeline(outcomeCache, store, logger, mlClient)

	rateLimiter := middleware.NewRateLimiter(
		cfg.Security.RateLimitRPS,
		cfg.Security.RateLimitBurst,
		logger,
	)

	router := gin.New()
	router.Use(middleware.RequestLogger(logger))
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(cfg.Security.AllowedOrigins))
	router.Use(middleware.RequestSizeLimit(cfg.Security.MaxRequestSize))

	analyzeHandler := handlers.NewAnalyzeHandler(pipeline, mlClient, store, logger)
	wsHandler := handlers.NewWebSocketHandler(pipeline, logger)

	setupRoutes(router, analyzeHandler, wsHandler, rateLimiter)

	return &Server{
		router:      router,
		logger:      logger,
		pipeline:    pipeline,
		mlClient:    mlClient,
		store:       store,
		cache:       outcomeCache,
		rateLimiter: rateLimiter,
		config:      cfg,
	}, nil
}

func setupRoutes(router *gin.Engine, analyze *handlers.AnalyzeHandler, ws *handlers.WebSocketHandler, rateLimiter *middleware.RateLimiter) {
	router.GET("/health", analyze.Health)

	router.GET("/ws", rateLimiter.RateLimit(), ws.HandleWebSocket)

	api := router.Group("/api/v1")
	{
		api.GET("/health", analyze.Health)

		protected := api.Group("/")
		protected.Use(rateLimiter.RateLimit())
		{
			protected.POST("/analyze", analyze.Analyze)
			protected.GET("/history", analyze.GetHistory)
			protected.DELETE("/history", analyze.ClearHistory)
			protected.GET("/stats", analyze.GetStats)
		}
	}
}
