package progress

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrJobNotFound indicates an unknown or already purged tracking id.
var ErrJobNotFound = errors.New("processing job not found")

// Registry is the process-wide store of in-flight and recently completed
// jobs. It is constructed once and injected into workers and handlers;
// completed jobs are evicted after the retention window.
type Registry struct {
	mu        sync.RWMutex
	trackers  map[string]*Tracker
	retention time.Duration
}

func NewRegistry(retention time.Duration) *Registry {
	if retention <= 0 {
		retention = time.Hour
	}
	return &Registry{
		trackers:  make(map[string]*Tracker),
		retention: retention,
	}
}

// Create registers a new tracker for fileName with the given plan.
func (r *Registry) Create(fileName string, defs []StageDef) *Tracker {
	t := NewTracker(fileName, defs)

	r.mu.Lock()
	r.trackers[t.id] = t
	r.mu.Unlock()

	observeJobCreated()
	return t
}

// Get returns the tracker for a tracking id.
func (r *Registry) Get(id string) (*Tracker, error) {
	r.mu.RLock()
	t, ok := r.trackers[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrJobNotFound
	}
	return t, nil
}

// Active returns a snapshot of every registered job.
func (r *Registry) Active() []Snapshot {
	r.mu.RLock()
	trackers := make([]*Tracker, 0, len(r.trackers))
	for _, t := range r.trackers {
		trackers = append(trackers, t)
	}
	r.mu.RUnlock()

	snaps := make([]Snapshot, 0, len(trackers))
	for _, t := range trackers {
		snaps = append(snaps, t.Snapshot())
	}
	return snaps
}

// Cleanup purges completed jobs older than the retention window.
func (r *Registry) Cleanup() int {
	cutoff := time.Now().Add(-r.retention)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, t := range r.trackers {
		if end, ok := t.EndedAt(); ok && end.Before(cutoff) {
			delete(r.trackers, id)
			removed++
		}
	}
	return removed
}

// StartJanitor runs Cleanup on an interval until ctx is cancelled.
func (r *Registry) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Cleanup()
			}
		}
	}()
}

// Stage ids of the standard ingestion plan.
const (
	StageIDExtraction     = "text_extraction"
	StageIDClassification = "section_classification"
	StageIDEnrichment     = "key_information"
	StageIDIndexing       = "vector_indexing"
	StageIDStorage        = "storage"
	StageIDFinalization   = "finalization"
)

// StandardPlan is the stage plan every PDF ingestion job follows. Weights
// sum to 100.
func StandardPlan() []StageDef {
	return []StageDef{
		{ID: StageIDExtraction, Name: "Text extraction", Description: "Extracting text and metadata from the PDF", Weight: 25},
		{ID: StageIDClassification, Name: "Section classification", Description: "Analyzing and classifying document sections", Weight: 20},
		{ID: StageIDEnrichment, Name: "Key information", Description: "Identifying entities, keywords and complexity", Weight: 20},
		{ID: StageIDIndexing, Name: "Vector indexing", Description: "Converting text into vectors for semantic search", Weight: 15},
		{ID: StageIDStorage, Name: "Storage", Description: "Saving metadata and organizing information", Weight: 10},
		{ID: StageIDFinalization, Name: "Finalization", Description: "Completing processing and publishing the document", Weight: 10},
	}
}
