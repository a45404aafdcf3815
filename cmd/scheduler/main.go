package main

import (
	"context"
	"encoding/json"
	"log"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bassimeledath/aristo-bites/internal/config"
	"github.com/bassimeledath/aristo-bites/internal/logging"
	"github.com/bassimeledath/aristo-bites/internal/metrics"
	"github.com/bassimeledath/aristo-bites/internal/platform"
	"github.com/bassimeledath/aristo-bites/models"
	"github.com/bassimeledath/aristo-bites/tasks"
)

// Scheduler owns one cron entry per recurring series. It learns about new
// series over the series_created channel, so run a single instance to avoid
// duplicate entries.
type Scheduler struct {
	DB   *gorm.DB
	RDB  *redis.Client
	cron *cron.Cron
	log  *zap.Logger

	mu      sync.Mutex
	entries map[uint]cron.EntryID
}

func cronSpec(cadence string) (string, bool) {
	switch cadence {
	case models.CadenceDaily:
		return "@daily", true
	case models.CadenceWeekly:
		return "@weekly", true
	default:
		return "", false
	}
}

func (s *Scheduler) schedule(series models.Series) {
	spec, ok := cronSpec(series.Cadence)
	if !ok {
		s.log.Info("series runs manually", zap.Uint("series_id", series.ID))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-scheduling replaces the old entry.
	if id, exists := s.entries[series.ID]; exists {
		s.cron.Remove(id)
	}

	seriesID := series.ID
	id, err := s.cron.AddFunc(spec, func() { s.runSeries(seriesID) })
	if err != nil {
		s.log.Error("schedule series", zap.Uint("series_id", series.ID), zap.Error(err))
		return
	}
	s.entries[series.ID] = id
	s.log.Info("series scheduled",
		zap.Uint("series_id", series.ID),
		zap.String("cadence", series.Cadence))
}

// runSeries creates the next pending episode for a series and queues its
// research stage.
func (s *Scheduler) runSeries(seriesID uint) {
	ctx := context.Background()

	var series models.Series
	if err := s.DB.First(&series, seriesID).Error; err != nil {
		s.log.Error("load series", zap.Uint("series_id", seriesID), zap.Error(err))
		return
	}
	if !series.IsActive {
		s.log.Info("series inactive, skipping", zap.Uint("series_id", seriesID))
		return
	}

	topic := series.Description
	if topic == "" {
		topic = series.Title
	}

	episode := models.Episode{
		SeriesID: series.ID,
		Topic:    topic,
		Status:   models.StatusPendingResearch,
	}
	if err := s.DB.Create(&episode).Error; err != nil {
		s.log.Error("create scheduled episode", zap.Uint("series_id", seriesID), zap.Error(err))
		return
	}

	payload, err := tasks.Marshal(tasks.EpisodeTaskPayload{EpisodeID: episode.ID})
	if err != nil {
		s.log.Error("marshal research task", zap.Error(err))
		return
	}
	if err := s.RDB.LPush(ctx, tasks.QueueResearch, payload).Err(); err != nil {
		s.log.Error("queue research task", zap.Uint("episode_id", episode.ID), zap.Error(err))
		return
	}
	metrics.EpisodesCreated.WithLabelValues("scheduler").Inc()
	s.log.Info("scheduled episode queued",
		zap.Uint("series_id", series.ID),
		zap.Uint("episode_id", episode.ID),
		zap.String("topic", topic))
}

// scheduleExisting registers cron entries for every active recurring series
// already in the database.
func (s *Scheduler) scheduleExisting() {
	var list []models.Series
	if err := s.DB.Where("is_active = ? AND cadence <> ?", true, models.CadenceManual).Find(&list).Error; err != nil {
		s.log.Error("load recurring series", zap.Error(err))
		return
	}
	for _, series := range list {
		s.schedule(series)
	}
}

// listenForNewSeries subscribes to series_created and adds cron entries for
// series created while the scheduler is running.
func (s *Scheduler) listenForNewSeries(ctx context.Context) {
	pubsub := s.RDB.Subscribe(ctx, tasks.SeriesCreatedChannel)
	defer pubsub.Close()
	ch := pubsub.Channel()

	s.log.Info("scheduler listening for new series")

	for msg := range ch {
		var message tasks.SeriesCreatedMessage
		if err := json.Unmarshal([]byte(msg.Payload), &message); err != nil {
			s.log.Error("unmarshal series_created message", zap.Error(err))
			continue
		}

		var series models.Series
		if err := s.DB.First(&series, message.SeriesID).Error; err != nil {
			s.log.Error("load new series", zap.Uint("series_id", message.SeriesID), zap.Error(err))
			continue
		}
		s.schedule(series)
	}
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := platform.NewDBConnection(cfg)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}

	rdb, err := platform.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal("connect redis", zap.Error(err))
	}

	s := &Scheduler{
		DB:      db,
		RDB:     rdb,
		cron:    cron.New(),
		log:     logger,
		entries: make(map[uint]cron.EntryID),
	}

	s.scheduleExisting()
	s.cron.Start()
	defer s.cron.Stop()

	go s.listenForNewSeries(ctx)

	logger.Info("scheduler started")
	<-ctx.Done()
	logger.Info("scheduler shutting down")
}
