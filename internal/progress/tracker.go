package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StageStatus is the lifecycle state of one pipeline stage.
type StageStatus string

const (
	StageWaiting    StageStatus = "waiting"
	StageProcessing StageStatus = "processing"
	StageSuccess    StageStatus = "success"
	StageError      StageStatus = "error"
	StageSkipped    StageStatus = "skipped"
)

func (s StageStatus) terminal() bool {
	switch s {
	case StageSuccess, StageError, StageSkipped:
		return true
	}
	return false
}

// rank orders statuses so transitions can be checked for monotonicity.
func (s StageStatus) rank() int {
	switch s {
	case StageWaiting:
		return 0
	case StageProcessing:
		return 1
	default:
		return 2
	}
}

// StageDef declares one stage of a job plan. Weights across a plan must sum
// to 100.
type StageDef struct {
	ID          string
	Name        string
	Description string
	Weight      float64
}

type stage struct {
	def      StageDef
	status   StageStatus
	fraction float64 // sub-progress while processing, in [0,1]
	details  string
	start    *time.Time
	end      *time.Time
}

// Tracker is the state machine for one ingestion job. Only the worker
// executing the job mutates it; readers obtain consistent snapshots.
type Tracker struct {
	mu          sync.Mutex
	id          string
	fileName    string
	stages      []*stage
	current     int
	startTime   time.Time
	endTime     *time.Time
	complete    bool
	failed      bool
	subscribers map[*Subscriber]struct{}
}

// NewTracker builds a tracker for fileName with the given stage plan.
// A plan whose weights do not sum to 100 is a programming error.
func NewTracker(fileName string, defs []StageDef) *Tracker {
	var total float64
	for _, d := range defs {
		if d.Weight < 0 {
			panic(fmt.Sprintf("progress: negative stage weight %f for %s", d.Weight, d.ID))
		}
		total += d.Weight
	}
	if total != 100 {
		panic(fmt.Sprintf("progress: stage weights sum to %f, want 100", total))
	}

	stages := make([]*stage, len(defs))
	for i, d := range defs {
		stages[i] = &stage{def: d, status: StageWaiting}
	}

	return &Tracker{
		id:          uuid.New().String(),
		fileName:    fileName,
		stages:      stages,
		current:     -1,
		startTime:   time.Now(),
		subscribers: make(map[*Subscriber]struct{}),
	}
}

// ID returns the job's tracking id.
func (t *Tracker) ID() string { return t.id }

// FileName returns the name of the file the job processes.
func (t *Tracker) FileName() string { return t.fileName }

// StartNext advances to the next stage and marks it processing.
func (t *Tracker) StartNext(details string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.complete {
		panic("progress: StartNext on a completed job")
	}
	if t.current+1 >= len(t.stages) {
		panic("progress: no stage left to start")
	}

	t.current++
	t.transition(t.stages[t.current], StageProcessing, details)
	t.publishLocked()
}

// SetFraction records sub-progress of the current processing stage. The
// fraction may not decrease.
func (t *Tracker) SetFraction(fraction float64, details string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.currentStage()
	if s == nil || s.status != StageProcessing {
		panic("progress: SetFraction outside a processing stage")
	}
	if fraction < s.fraction {
		panic(fmt.Sprintf("progress: fraction moved backward %f -> %f", s.fraction, fraction))
	}
	if fraction > 1 {
		fraction = 1
	}
	s.fraction = fraction
	if details != "" {
		s.details = details
	}
	t.publishLocked()
}

// CompleteCurrent marks the current stage successful.
func (t *Tracker) CompleteCurrent(details string) {
	t.finishCurrent(StageSuccess, details)
}

// FailCurrent marks the current stage failed. The stage still contributes
// its full weight so the bar can reach 100.
func (t *Tracker) FailCurrent(err error, details string) {
	if details == "" && err != nil {
		details = err.Error()
	}
	t.mu.Lock()
	t.failed = true
	t.mu.Unlock()
	t.finishCurrent(StageError, details)
}

// SkipCurrent marks the current stage skipped.
func (t *Tracker) SkipCurrent(reason string) {
	t.finishCurrent(StageSkipped, reason)
}

func (t *Tracker) finishCurrent(status StageStatus, details string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.currentStage()
	if s == nil {
		panic("progress: stage completion before any stage started")
	}
	t.transition(s, status, details)
	t.publishLocked()
}

// Finish marks the job complete. Stages never started are recorded as
// skipped and overall progress reaches 100 regardless of stage outcomes.
func (t *Tracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.complete {
		return
	}
	for _, s := range t.stages {
		if !s.status.terminal() {
			t.transition(s, StageSkipped, "")
		}
	}
	t.complete = true
	now := time.Now()
	t.endTime = &now
	t.publishLocked()

	observeJobFinished(t.failed, now.Sub(t.startTime))
}

// Failed reports whether any stage ended in error.
func (t *Tracker) Failed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failed
}

// IsComplete reports whether every stage reached a terminal state.
func (t *Tracker) IsComplete() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.complete
}

// EndedAt returns the completion time, if the job finished.
func (t *Tracker) EndedAt() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.endTime == nil {
		return time.Time{}, false
	}
	return *t.endTime, true
}

func (t *Tracker) currentStage() *stage {
	if t.current < 0 || t.current >= len(t.stages) {
		return nil
	}
	return t.stages[t.current]
}

// transition enforces monotonicity: a stage never moves backward and never
// leaves a terminal state. Violations are defects, not runtime errors.
func (t *Tracker) transition(s *stage, to StageStatus, details string) {
	if s.status.terminal() {
		panic(fmt.Sprintf("progress: stage %s transition %s -> %s after terminal state",
			s.def.ID, s.status, to))
	}
	if to.rank() < s.status.rank() {
		panic(fmt.Sprintf("progress: stage %s backward transition %s -> %s",
			s.def.ID, s.status, to))
	}

	now := time.Now()
	switch to {
	case StageProcessing:
		s.start = &now
	case StageSuccess, StageError, StageSkipped:
		if s.start == nil {
			s.start = &now
		}
		s.end = &now
		s.fraction = 1
	}
	s.status = to
	if details != "" {
		s.details = details
	}

	observeStageTransition(s.def.ID, to)
}

// progressLocked computes the weighted overall progress.
func (t *Tracker) progressLocked() float64 {
	if t.complete {
		return 100
	}
	var total float64
	for _, s := range t.stages {
		switch s.status {
		case StageSuccess, StageError, StageSkipped:
			total += s.def.Weight
		case StageProcessing:
			total += s.def.Weight * s.fraction
		}
	}
	if total > 100 {
		total = 100
	}
	return total
}
