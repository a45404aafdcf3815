package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bassimeledath/aristo-bites/auth"
	"github.com/bassimeledath/aristo-bites/internal/config"
	"github.com/bassimeledath/aristo-bites/internal/logging"
	"github.com/bassimeledath/aristo-bites/internal/platform"
	"github.com/bassimeledath/aristo-bites/models"
	"github.com/bassimeledath/aristo-bites/series"
)

type Server struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Router *gin.Engine
	cfg    *config.Config
	log    *zap.Logger
}

func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	db, err := platform.NewDBConnection(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&models.Series{}, &models.Episode{}, &models.EpisodeScene{}); err != nil {
		return nil, err
	}

	rdb, err := platform.NewRedisClient(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	server := &Server{
		DB:     db,
		Redis:  rdb,
		Router: gin.Default(),
		cfg:    cfg,
		log:    logger,
	}
	server.setupRoutes()
	return server, nil
}

func (s *Server) setupRoutes() {
	// Health check (no auth required)
	s.Router.GET("/health", func(c *gin.Context) {
		sqlDB, err := s.DB.DB()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		if err := sqlDB.Ping(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"database": "connected",
		})
	})

	s.Router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.Router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "AristoBites API v1"})
	})

	seriesHandler := series.NewHandler(s.DB, s.Redis, s.log)

	// Everything below the gate needs the shared API key.
	protected := s.Router.Group("")
	protected.Use(auth.RequireAPIKey(s.cfg.HTTP.APIKey))
	{
		seriesRoutes := protected.Group("/series")
		{
			seriesRoutes.POST("", seriesHandler.CreateSeries)
			seriesRoutes.GET("", seriesHandler.ListSeries)
			seriesRoutes.GET("/:id", seriesHandler.GetSeries)
			seriesRoutes.POST("/:id/episodes", seriesHandler.CreateEpisode)
			seriesRoutes.GET("/:id/episodes", seriesHandler.ListEpisodes)
		}
		protected.GET("/episodes/:id", seriesHandler.GetEpisode)
	}
}

func (s *Server) Run() error {
	s.log.Info("api listening", zap.String("port", s.cfg.HTTP.Port))
	return s.Router.Run(":" + s.cfg.HTTP.Port)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}
	if cfg.HTTP.APIKey == "" {
		logger.Fatal("invalid config: http.api_key is required")
	}

	server, err := NewServer(cfg, logger)
	if err != nil {
		logger.Fatal("create server", zap.Error(err))
	}

	if err := server.Run(); err != nil {
		logger.Fatal("run server", zap.Error(err))
	}
}
