package worker

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bassimeledath/aristo-bites/internal/metrics"
	"github.com/bassimeledath/aristo-bites/internal/narration"
	"github.com/bassimeledath/aristo-bites/internal/pipeline"
	"github.com/bassimeledath/aristo-bites/models"
	"github.com/bassimeledath/aristo-bites/tasks"
)

// brPopTimeout bounds each blocking pop so shutdown stays responsive.
const brPopTimeout = 5 * time.Second

// Researcher runs the research workflow for a topic.
type Researcher interface {
	Research(ctx context.Context, topic string) (string, error)
}

// Narrator turns a topic and its research into a narration script.
type Narrator interface {
	Generate(ctx context.Context, topic, research string) (*narration.Narration, error)
}

// TitleGenerator names an episode.
type TitleGenerator interface {
	GenerateTitle(ctx context.Context, series models.Series, topic string, existingTitles []string) (string, error)
}

// AssetBuilder produces the audio, talking head, images and clips.
type AssetBuilder interface {
	GenerateAssets(ctx context.Context, intro, body, voiceID, faceURL string) (*pipeline.Assets, error)
}

// VideoAssembler stitches generated assets into the final video.
type VideoAssembler interface {
	AssembleEpisode(ctx context.Context, introVideoURL string, clipURLs []string, bodyAudioURL string) (string, error)
}

// Stages bundles the per-stage business logic behind the processor.
type Stages struct {
	Research Researcher
	Narrator Narrator
	Titles   TitleGenerator
	Assets   AssetBuilder
	Assembly VideoAssembler
}

// TaskHandler is a function that processes a task payload.
type TaskHandler func(ctx context.Context, payload string) error

// Processor holds dependencies and registered task handlers.
type Processor struct {
	DB  *gorm.DB
	RDB *redis.Client

	stages   Stages
	log      *zap.Logger
	handlers map[string]TaskHandler
}

// NewProcessor creates a new worker processor.
func NewProcessor(db *gorm.DB, rdb *redis.Client, stages Stages, log *zap.Logger) *Processor {
	return &Processor{
		DB:       db,
		RDB:      rdb,
		stages:   stages,
		log:      log,
		handlers: make(map[string]TaskHandler),
	}
}

// Register maps a queue name (task type) to a handler function.
func (p *Processor) Register(queueName string, handler TaskHandler) {
	p.handlers[queueName] = handler
	p.log.Info("registered handler", zap.String("queue", queueName))
}

// Enqueue is a helper to add a new task to a queue.
func (p *Processor) Enqueue(ctx context.Context, queueName string, payload interface{}) error {
	payloadStr, err := tasks.Marshal(payload)
	if err != nil {
		return err
	}
	return p.RDB.LPush(ctx, queueName, payloadStr).Err()
}

// Listen starts the worker, listening on all registered queues. It returns
// once ctx is cancelled.
func (p *Processor) Listen(ctx context.Context, queueNames ...string) {
	p.log.Info("worker listening", zap.Strings("queues", queueNames))

	for {
		if ctx.Err() != nil {
			p.log.Info("worker shutting down")
			return
		}

		// BRPop blocks until a task arrives on any of the listed queues;
		// redis.Nil means the wait timed out with nothing queued.
		result, err := p.RDB.BRPop(ctx, brPopTimeout, queueNames...).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				p.log.Info("worker shutting down")
				return
			}
			p.log.Error("pop from queue", zap.Error(err))
			continue
		}

		// result[0] is the queue name, result[1] is the payload
		queueName := result[0]
		payload := result[1]

		handler, ok := p.handlers[queueName]
		if !ok {
			p.log.Error("no handler registered", zap.String("queue", queueName))
			continue
		}

		p.log.Info("task received", zap.String("queue", queueName))
		start := time.Now()
		if err := handler(ctx, payload); err != nil {
			metrics.TasksProcessed.WithLabelValues(queueName, "error").Inc()
			p.log.Error("task failed", zap.String("queue", queueName), zap.Error(err))
		} else {
			metrics.TasksProcessed.WithLabelValues(queueName, "ok").Inc()
		}
		metrics.StageDuration.WithLabelValues(queueName).Observe(time.Since(start).Seconds())
	}
}
