package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bassimeledath/aristo-bites/internal/config"
	"github.com/bassimeledath/aristo-bites/internal/imagegen"
	"github.com/bassimeledath/aristo-bites/internal/lipsync"
	"github.com/bassimeledath/aristo-bites/internal/logging"
	"github.com/bassimeledath/aristo-bites/internal/media"
	"github.com/bassimeledath/aristo-bites/internal/narration"
	"github.com/bassimeledath/aristo-bites/internal/pipeline"
	"github.com/bassimeledath/aristo-bites/internal/platform"
	"github.com/bassimeledath/aristo-bites/internal/research"
	"github.com/bassimeledath/aristo-bites/internal/retrieval"
	"github.com/bassimeledath/aristo-bites/internal/speech"
	"github.com/bassimeledath/aristo-bites/internal/storage"
	"github.com/bassimeledath/aristo-bites/internal/subtitles"
	"github.com/bassimeledath/aristo-bites/internal/videogen"
	"github.com/bassimeledath/aristo-bites/models"
	"github.com/bassimeledath/aristo-bites/processing"
	"github.com/bassimeledath/aristo-bites/tasks"
	"github.com/bassimeledath/aristo-bites/worker"
)

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
	if err := cfg.ValidateProviders(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := platform.NewDBConnection(cfg)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	if err := db.AutoMigrate(&models.Series{}, &models.Episode{}, &models.EpisodeScene{}); err != nil {
		logger.Fatal("migrate database", zap.Error(err))
	}

	rdb, err := platform.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal("connect redis", zap.Error(err))
	}

	toolchain := media.NewToolchain(logger)
	if err := toolchain.Check(); err != nil {
		logger.Fatal("media toolchain", zap.Error(err))
	}

	openaiClient := processing.NewClient(cfg.OpenAI)
	retrievalClient := retrieval.NewClient(cfg.LlamaCloud, logger)
	researchFlow := research.NewWorkflow(logger, openaiClient, retrievalClient, cfg.Research)
	narrator := narration.NewClient(cfg.Anthropic, logger)

	images, err := imagegen.NewClient(cfg.Replicate, cfg.Retry, logger)
	if err != nil {
		logger.Fatal("replicate image client", zap.Error(err))
	}
	heads, err := lipsync.NewClient(cfg.Replicate, cfg.Retry, logger)
	if err != nil {
		logger.Fatal("replicate lipsync client", zap.Error(err))
	}
	clips := videogen.NewClient(cfg.Luma, cfg.Retry, cfg.Polling, logger)

	bucket, err := storage.NewBucket(ctx, cfg.R2, logger)
	if err != nil {
		logger.Fatal("r2 bucket", zap.Error(err))
	}

	assembler := pipeline.NewAssembler(pipeline.Deps{
		Speech: speech.NewClient(cfg.ElevenLabs, logger),
		Images: images,
		Clips:  clips,
		Heads:  heads,
		Scenes: openaiClient,
		Store:  bucket,
		Scribe: subtitles.NewTranscriber(cfg.OpenAI, logger),
		Media:  toolchain,
	}, cfg.Pipeline, logger)

	processor := worker.NewProcessor(db, rdb, worker.Stages{
		Research: researchFlow,
		Narrator: narrator,
		Titles:   openaiClient,
		Assets:   assembler,
		Assembly: assembler,
	}, logger)

	processor.Register(tasks.QueueResearch, processor.HandleResearch)
	processor.Register(tasks.QueueNarration, processor.HandleNarration)
	processor.Register(tasks.QueueAssets, processor.HandleAssets)
	processor.Register(tasks.QueueAssembly, processor.HandleAssembly)

	// The worker has no API surface, so metrics get their own port.
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		addr := ":" + cfg.HTTP.MetricsPort
		logger.Info("metrics listening", zap.String("address", addr))
		if err := http.ListenAndServe(addr, nil); err != nil {
			logger.Error("metrics server", zap.Error(err))
		}
	}()

	processor.Listen(ctx,
		tasks.QueueResearch,
		tasks.QueueNarration,
		tasks.QueueAssets,
		tasks.QueueAssembly,
	)
}
