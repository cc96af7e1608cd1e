package worker

import (
	"testing"

	"github.com/propos4l/proposal-engine/pkg/logger"
)

func TestStopIsIdempotent(t *testing.T) {
	w, err := NewIngestWorker(&Config{
		RedisAddr:   "localhost:6379",
		Concurrency: 1,
		Queues:      map[string]int{"default": 1},
	}, nil, logger.NewTestLogger())
	if err != nil {
		t.Fatalf("NewIngestWorker: %v", err)
	}

	// Signal handling and context cancellation can both reach Stop; the
	// second call must not panic on the already-closed stop channel.
	if err := w.Stop(); err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}
