package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/propos4l/proposal-engine/internal/service/ingest"
	"github.com/propos4l/proposal-engine/pkg/logger"
	"github.com/propos4l/proposal-engine/pkg/queue"
)

// IngestWorker consumes ingestion tasks and runs the pipeline against the
// shared service. It runs in the same process as the API so trackers stay
// observable over the websocket while the job executes.
type IngestWorker struct {
	BaseWorker
	service ingest.Service
}

func NewIngestWorker(cfg *Config, service ingest.Service, logger logger.Logger) (*IngestWorker, error) {
	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB},
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues:      cfg.Queues,
		},
	)

	w := &IngestWorker{
		BaseWorker: BaseWorker{
			server:   server,
			mux:      asynq.NewServeMux(),
			logger:   logger,
			stopChan: make(chan struct{}),
		},
		service: service,
	}

	w.mux.HandleFunc(queue.TaskTypeIngest, w.handleIngest)
	return w, nil
}

func (w *IngestWorker) handleIngest(ctx context.Context, t *asynq.Task) error {
	var task queue.IngestTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		w.logger.Error("Failed to unmarshal ingest task",
			logger.Error(err),
			logger.String("payload", string(t.Payload())),
		)
		return fmt.Errorf("failed to unmarshal ingest task: %w", err)
	}
	if task.TrackingID == "" || task.DocumentID == "" || task.StorageKey == "" {
		return fmt.Errorf("invalid ingest task: missing required fields")
	}

	w.logger.Info("Picked up ingest task",
		logger.String("trackingId", task.TrackingID),
		logger.String("fileName", task.FileName),
	)

	return w.service.RunPipeline(ctx, &task)
}

func (w *IngestWorker) Start(ctx context.Context) error {
	go func() {
		if err := w.server.Run(w.mux); err != nil {
			w.logger.Error("Worker server stopped", logger.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		w.Stop()
	}()

	return nil
}
