package series

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bassimeledath/aristo-bites/internal/metrics"
	"github.com/bassimeledath/aristo-bites/models"
	"github.com/bassimeledath/aristo-bites/tasks"
)

type Handler struct {
	DB    *gorm.DB
	Redis *redis.Client
	log   *zap.Logger
}

func NewHandler(db *gorm.DB, rdb *redis.Client, log *zap.Logger) *Handler {
	return &Handler{DB: db, Redis: rdb, log: log}
}

type CreateSeriesRequest struct {
	Title        string `json:"title" binding:"required"`
	Description  string `json:"description"`
	Cadence      string `json:"cadence" binding:"omitempty,oneof=daily weekly manual"`
	VoiceID      string `json:"voice_id"`
	FaceImageURL string `json:"face_image_url"`
}

type CreateEpisodeRequest struct {
	Topic string `json:"topic" binding:"required"`
}

func (h *Handler) CreateSeries(c *gin.Context) {
	var req CreateSeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Cadence == "" {
		req.Cadence = models.CadenceManual
	}

	series := models.Series{
		Title:        req.Title,
		Description:  req.Description,
		Cadence:      req.Cadence,
		VoiceID:      req.VoiceID,
		FaceImageURL: req.FaceImageURL,
	}

	if err := h.DB.Create(&series).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create series"})
		return
	}

	// Tell the scheduler about the new series so cadence entries pick up
	// without a restart. A publish failure is not fatal to the request.
	message := tasks.SeriesCreatedMessage{SeriesID: series.ID, Cadence: series.Cadence}
	payload, err := tasks.Marshal(message)
	if err != nil {
		h.log.Error("marshal series_created message", zap.Error(err))
	} else if err := h.Redis.Publish(c.Request.Context(), tasks.SeriesCreatedChannel, payload).Err(); err != nil {
		h.log.Error("publish series_created", zap.Error(err))
	}

	c.JSON(http.StatusOK, series)
}

func (h *Handler) ListSeries(c *gin.Context) {
	var list []models.Series
	if err := h.DB.Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve series"})
		return
	}

	for i := range list {
		var count int64
		h.DB.Model(&models.Episode{}).Where("series_id = ?", list[i].ID).Count(&count)
		list[i].EpisodeCount = int(count)
	}

	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetSeries(c *gin.Context) {
	seriesID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid series ID"})
		return
	}

	var series models.Series
	if err := h.DB.First(&series, seriesID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Series not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		}
		return
	}

	var count int64
	h.DB.Model(&models.Episode{}).Where("series_id = ?", series.ID).Count(&count)
	series.EpisodeCount = int(count)

	c.JSON(http.StatusOK, series)
}

// CreateEpisode creates a pending episode for a series and queues the
// research stage that starts the pipeline.
func (h *Handler) CreateEpisode(c *gin.Context) {
	seriesID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid series ID"})
		return
	}

	var req CreateEpisodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var series models.Series
	if err := h.DB.First(&series, seriesID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Series not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		}
		return
	}

	episode := models.Episode{
		SeriesID: series.ID,
		Topic:    req.Topic,
		Status:   models.StatusPendingResearch,
	}
	if err := h.DB.Create(&episode).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create episode"})
		return
	}

	task, err := tasks.Marshal(tasks.EpisodeTaskPayload{EpisodeID: episode.ID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue research"})
		return
	}
	if err := h.Redis.LPush(c.Request.Context(), tasks.QueueResearch, task).Err(); err != nil {
		h.log.Error("queue research task", zap.Uint("episode_id", episode.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue research"})
		return
	}
	metrics.EpisodesCreated.WithLabelValues("api").Inc()

	c.JSON(http.StatusOK, episode)
}

func (h *Handler) ListEpisodes(c *gin.Context) {
	seriesID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid series ID"})
		return
	}

	var series models.Series
	if err := h.DB.First(&series, seriesID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Series not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		}
		return
	}

	var episodes []models.Episode
	if err := h.DB.Where("series_id = ?", seriesID).Order("created_at DESC").Find(&episodes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve episodes"})
		return
	}

	c.JSON(http.StatusOK, episodes)
}

func (h *Handler) GetEpisode(c *gin.Context) {
	episodeID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid episode ID"})
		return
	}

	var episode models.Episode
	err = h.DB.Preload("Scenes", func(db *gorm.DB) *gorm.DB {
		return db.Order("scene_number ASC")
	}).First(&episode, episodeID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Episode not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		}
		return
	}

	c.JSON(http.StatusOK, episode)
}
