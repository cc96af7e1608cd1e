package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	cfg "github.com/propos4l/proposal-engine/config"
	"github.com/propos4l/proposal-engine/internal/progress"
)

// TaskTypeIngest is the asynq task type for PDF ingestion jobs.
const TaskTypeIngest = "proposal:ingest"

// ErrStatusNotFound indicates no persisted final status for a tracking id.
var ErrStatusNotFound = errors.New("no persisted status for tracking id")

// ErrTaskNotFound indicates no queued task matches a tracking id; the task
// was never enqueued, already ran, or is running right now.
var ErrTaskNotFound = errors.New("no pending task for tracking id")

// IngestTask is the payload carried from the API to the worker. The tracking
// id is issued before enqueue so clients can subscribe immediately.
type IngestTask struct {
	TrackingID string    `json:"trackingId"`
	DocumentID string    `json:"documentId"`
	StorageKey string    `json:"storageKey"`
	FileName   string    `json:"fileName"`
	ClientName string    `json:"clientName,omitempty"`
	Industry   string    `json:"industry,omitempty"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// Queue hands ingestion tasks to the worker pool and persists final job
// snapshots in redis so status outlives the in-memory registry.
type Queue struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	redis     *redis.Client
	retention time.Duration
}

type Config struct {
	RedisAddr       string
	RedisDB         int
	StatusRetention time.Duration
}

// NewQueue builds a queue from the process configuration.
func NewQueue() (*Queue, error) {
	rc := cfg.GetRedisConfig()
	return NewQueueWith(&Config{
		RedisAddr:       rc.Addr,
		RedisDB:         rc.DB,
		StatusRetention: cfg.GetPipelineConfig().StatusRetention,
	})
}

func NewQueueWith(c *Config) (*Queue, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr: c.RedisAddr,
		DB:   c.RedisDB,
	}

	retention := c.StatusRetention
	if retention <= 0 {
		retention = 24 * time.Hour
	}

	return &Queue{
		client:    asynq.NewClient(redisOpt),
		inspector: asynq.NewInspector(redisOpt),
		redis: redis.NewClient(&redis.Options{
			Addr: c.RedisAddr,
			DB:   c.RedisDB,
		}),
		retention: retention,
	}, nil
}

// Enqueue queues one ingestion task. The pipeline owns its own stage
// retries, so asynq-level retry stays at zero to avoid re-running completed
// stages.
func (q *Queue) Enqueue(ctx context.Context, task *IngestTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	t := asynq.NewTask(TaskTypeIngest, payload,
		asynq.TaskID(task.TrackingID),
		asynq.MaxRetry(0),
		asynq.Timeout(30*time.Minute),
		asynq.Queue("default"),
	)
	if _, err := q.client.EnqueueContext(ctx, t); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// SaveFinalStatus persists a completed job's snapshot so REST polling keeps
// working after the registry evicts the tracker.
func (q *Queue) SaveFinalStatus(ctx context.Context, snap *progress.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}
	key := statusKey(snap.ID)
	if err := q.redis.Set(ctx, key, data, q.retention).Err(); err != nil {
		return fmt.Errorf("failed to save status: %w", err)
	}
	return nil
}

// GetFinalStatus loads a persisted final snapshot.
func (q *Queue) GetFinalStatus(ctx context.Context, trackingID string) (*progress.Snapshot, error) {
	data, err := q.redis.Get(ctx, statusKey(trackingID)).Bytes()
	if err == redis.Nil {
		return nil, ErrStatusNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get status from redis: %w", err)
	}

	var snap progress.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status: %w", err)
	}
	return &snap, nil
}

// CancelTask removes a still-pending task from the queue. Active tasks run
// to completion.
func (q *Queue) CancelTask(_ context.Context, trackingID string) error {
	if err := q.inspector.DeleteTask("default", trackingID); err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to cancel task: %w", err)
	}
	return nil
}

// Close releases the queue's connections.
func (q *Queue) Close() error {
	if err := q.client.Close(); err != nil {
		return err
	}
	return q.redis.Close()
}

func statusKey(trackingID string) string {
	return fmt.Sprintf("job_status:%s", trackingID)
}
