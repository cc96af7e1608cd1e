package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/propos4l/proposal-engine/api/handlers"
	"github.com/propos4l/proposal-engine/api/routes"
	cfg "github.com/propos4l/proposal-engine/config"
	"github.com/propos4l/proposal-engine/internal/extract"
	"github.com/propos4l/proposal-engine/internal/generate"
	"github.com/propos4l/proposal-engine/internal/progress"
	"github.com/propos4l/proposal-engine/internal/service/ingest"
	"github.com/propos4l/proposal-engine/internal/vector"
	"github.com/propos4l/proposal-engine/pkg/logger"
	"github.com/propos4l/proposal-engine/pkg/queue"
	"github.com/propos4l/proposal-engine/pkg/storage"
	"github.com/propos4l/proposal-engine/pkg/worker"
)

func main() {
	// init logger
	log, err := logger.NewLogger(
		logger.WithLevel("info"),
		logger.WithEncoding("json"),
		logger.WithOutputPaths([]string{"stdout", "logs/app.log"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	serverCfg := cfg.GetServerConfig()
	redisCfg := cfg.GetRedisConfig()
	pipelineCfg := cfg.GetPipelineConfig()

	files, err := storage.New(storage.Kind(serverCfg.StorageKind), log)
	if err != nil {
		log.Fatal("Failed to init storage", logger.Error(err))
	}

	q, err := queue.NewQueue()
	if err != nil {
		log.Fatal("Failed to init queue", logger.Error(err))
	}
	defer q.Close()

	registry := progress.NewRegistry(pipelineCfg.RegistryRetention)

	extractor := extract.NewPDFExtractor(
		extract.NewTextLayerReader(),
		extract.NewPopplerRasterizer(),
		extract.NewTesseractEngine(pipelineCfg.OCRTimeout),
		extract.Config{MinCharsPerPage: pipelineCfg.OCRMinCharsPerPage},
		log,
	)

	ollamaCfg := cfg.GetOllamaConfig()
	generator := generate.NewOrchestrator(
		generate.NewOllamaGenerator(&generate.OllamaConfig{
			Endpoint:    ollamaCfg.Endpoint,
			Model:       ollamaCfg.Model,
			MaxTokens:   ollamaCfg.MaxTokens,
			Temperature: ollamaCfg.Temperature,
		}),
		log,
		generate.WithTimeout(pipelineCfg.GenerationTimeout),
	)

	svc := ingest.NewService(ingest.Deps{
		Logger:    log,
		Store:     ingest.NewDocumentStore(),
		Files:     files,
		Enqueuer:  q,
		Archive:   q,
		Registry:  registry,
		Index:     vector.NewIndex(vector.NewHashingEmbedder(pipelineCfg.EmbeddingDim)),
		Extractor: extractor,
		Generator: generator,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry.StartJanitor(ctx, 10*time.Minute)

	// The worker runs in-process so live trackers stay reachable from the
	// websocket while jobs execute.
	ingestWorker, err := worker.NewIngestWorker(&worker.Config{
		RedisAddr:   redisCfg.Addr,
		RedisDB:     redisCfg.DB,
		Concurrency: 5,
		Queues:      map[string]int{"default": 1},
	}, svc, log)
	if err != nil {
		log.Fatal("Failed to create ingest worker", logger.Error(err))
	}
	if err := ingestWorker.Start(ctx); err != nil {
		log.Fatal("Failed to start ingest worker", logger.Error(err))
	}

	h := handlers.NewHandlers(svc, log)
	r := gin.New()
	r.Use(gin.Recovery())
	routes.SetupRoutes(r, h)

	srv := &http.Server{
		Addr:    serverCfg.Addr,
		Handler: r,
	}

	go func() {
		log.Info("Server starting", logger.String("addr", serverCfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error:", logger.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ingestWorker.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown:", logger.Error(err))
	}
}
