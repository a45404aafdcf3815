package series

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bassimeledath/aristo-bites/models"
	"github.com/bassimeledath/aristo-bites/tasks"
)

type testAPI struct {
	router *gin.Engine
	db     *gorm.DB
	rdb    *redis.Client
	mr     *miniredis.Miniredis
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "api.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Series{}, &models.Episode{}, &models.EpisodeScene{}))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	h := NewHandler(db, rdb, zap.NewNop())
	router := gin.New()
	router.POST("/series", h.CreateSeries)
	router.GET("/series", h.ListSeries)
	router.GET("/series/:id", h.GetSeries)
	router.POST("/series/:id/episodes", h.CreateEpisode)
	router.GET("/series/:id/episodes", h.ListEpisodes)
	router.GET("/episodes/:id", h.GetEpisode)

	return &testAPI{router: router, db: db, rdb: rdb, mr: mr}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func TestCreateSeries(t *testing.T) {
	api := newTestAPI(t)

	sub := api.rdb.Subscribe(context.Background(), tasks.SeriesCreatedChannel)
	defer sub.Close()
	_, err := sub.Receive(context.Background())
	require.NoError(t, err)

	w := api.do(t, http.MethodPost, "/series", gin.H{
		"title":   "Stoicism Daily",
		"cadence": "daily",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var created models.Series
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "Stoicism Daily", created.Title)
	assert.Equal(t, models.CadenceDaily, created.Cadence)

	select {
	case msg := <-sub.Channel():
		var m tasks.SeriesCreatedMessage
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &m))
		assert.Equal(t, created.ID, m.SeriesID)
		assert.Equal(t, models.CadenceDaily, m.Cadence)
	case <-time.After(2 * time.Second):
		t.Fatal("no series_created message published")
	}
}

func TestCreateSeriesDefaultsToManual(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/series", gin.H{"title": "One-offs"})
	require.Equal(t, http.StatusOK, w.Code)

	var created models.Series
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, models.CadenceManual, created.Cadence)
}

func TestCreateSeriesValidation(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/series", gin.H{"description": "no title"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPost, "/series", gin.H{"title": "x", "cadence": "hourly"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListSeriesEpisodeCounts(t *testing.T) {
	api := newTestAPI(t)

	first := models.Series{Title: "First", Cadence: models.CadenceManual}
	second := models.Series{Title: "Second", Cadence: models.CadenceManual}
	require.NoError(t, api.db.Create(&first).Error)
	require.NoError(t, api.db.Create(&second).Error)
	for i := 0; i < 3; i++ {
		require.NoError(t, api.db.Create(&models.Episode{SeriesID: first.ID, Topic: "t", Status: models.StatusComplete}).Error)
	}

	w := api.do(t, http.MethodGet, "/series", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list []models.Series
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 2)
	counts := map[string]int{}
	for _, s := range list {
		counts[s.Title] = s.EpisodeCount
	}
	assert.Equal(t, 3, counts["First"])
	assert.Equal(t, 0, counts["Second"])
}

func TestGetSeriesNotFound(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/series/42", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, http.MethodGet, "/series/not-a-number", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateEpisode(t *testing.T) {
	api := newTestAPI(t)
	series := models.Series{Title: "Stoicism Daily", Cadence: models.CadenceDaily}
	require.NoError(t, api.db.Create(&series).Error)

	w := api.do(t, http.MethodPost, "/series/1/episodes", gin.H{"topic": "memento mori"})
	require.Equal(t, http.StatusOK, w.Code)

	var created models.Episode
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, series.ID, created.SeriesID)
	assert.Equal(t, "memento mori", created.Topic)
	assert.Equal(t, models.StatusPendingResearch, created.Status)

	items, err := api.mr.List(tasks.QueueResearch)
	require.NoError(t, err)
	require.Len(t, items, 1)
	var task tasks.EpisodeTaskPayload
	require.NoError(t, json.Unmarshal([]byte(items[0]), &task))
	assert.Equal(t, created.ID, task.EpisodeID)
}

func TestCreateEpisodeMissingTopic(t *testing.T) {
	api := newTestAPI(t)
	require.NoError(t, api.db.Create(&models.Series{Title: "S", Cadence: models.CadenceManual}).Error)

	w := api.do(t, http.MethodPost, "/series/1/episodes", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateEpisodeSeriesNotFound(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/series/99/episodes", gin.H{"topic": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListEpisodes(t *testing.T) {
	api := newTestAPI(t)
	first := models.Series{Title: "First", Cadence: models.CadenceManual}
	second := models.Series{Title: "Second", Cadence: models.CadenceManual}
	require.NoError(t, api.db.Create(&first).Error)
	require.NoError(t, api.db.Create(&second).Error)
	require.NoError(t, api.db.Create(&models.Episode{SeriesID: first.ID, Topic: "mine", Status: models.StatusComplete}).Error)
	require.NoError(t, api.db.Create(&models.Episode{SeriesID: second.ID, Topic: "other", Status: models.StatusComplete}).Error)

	w := api.do(t, http.MethodGet, "/series/1/episodes", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var episodes []models.Episode
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &episodes))
	require.Len(t, episodes, 1)
	assert.Equal(t, "mine", episodes[0].Topic)
}

func TestGetEpisodeWithScenes(t *testing.T) {
	api := newTestAPI(t)
	series := models.Series{Title: "S", Cadence: models.CadenceManual}
	require.NoError(t, api.db.Create(&series).Error)
	episode := models.Episode{SeriesID: series.ID, Topic: "t", Status: models.StatusComplete}
	require.NoError(t, api.db.Create(&episode).Error)
	require.NoError(t, api.db.Create(&models.EpisodeScene{
		EpisodeID: episode.ID, SceneNumber: 2, ImageDescription: "b", VideoDescription: "b",
	}).Error)
	require.NoError(t, api.db.Create(&models.EpisodeScene{
		EpisodeID: episode.ID, SceneNumber: 1, ImageDescription: "a", VideoDescription: "a",
	}).Error)

	w := api.do(t, http.MethodGet, "/episodes/1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got models.Episode
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Scenes, 2)
	assert.Equal(t, 1, got.Scenes[0].SceneNumber)
	assert.Equal(t, 2, got.Scenes[1].SceneNumber)
}

func TestGetEpisodeNotFound(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/episodes/7", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
