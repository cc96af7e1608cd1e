package progress

import (
	"time"
)

// StepSnapshot is the wire form of one stage.
type StepSnapshot struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	Description       string      `json:"description"`
	PercentageOfTotal float64     `json:"percentageOfTotal"`
	Status            StageStatus `json:"status"`
	Details           string      `json:"details,omitempty"`
	StartTime         *time.Time  `json:"startTime,omitempty"`
	EndTime           *time.Time  `json:"endTime,omitempty"`
}

// Snapshot is a consistent copy of a job's state, the single payload shape
// shared by the push and poll transports.
type Snapshot struct {
	ID              string         `json:"id"`
	FileName        string         `json:"fileName"`
	Steps           []StepSnapshot `json:"steps"`
	CurrentStepID   string         `json:"currentStepId,omitempty"`
	OverallProgress float64        `json:"overallProgress"`
	IsComplete      bool           `json:"isComplete"`
	HasError        bool           `json:"hasError"`
	StartTime       time.Time      `json:"startTime"`
	EndTime         *time.Time     `json:"endTime,omitempty"`
}

// Snapshot returns a copy-on-read view of the job; it never blocks writers
// for longer than the copy itself.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() Snapshot {
	steps := make([]StepSnapshot, len(t.stages))
	for i, s := range t.stages {
		steps[i] = StepSnapshot{
			ID:                s.def.ID,
			Name:              s.def.Name,
			Description:       s.def.Description,
			PercentageOfTotal: s.def.Weight,
			Status:            s.status,
			Details:           s.details,
			StartTime:         copyTime(s.start),
			EndTime:           copyTime(s.end),
		}
	}

	var currentID string
	if s := t.currentStage(); s != nil {
		currentID = s.def.ID
	}

	return Snapshot{
		ID:              t.id,
		FileName:        t.fileName,
		Steps:           steps,
		CurrentStepID:   currentID,
		OverallProgress: t.progressLocked(),
		IsComplete:      t.complete,
		HasError:        t.failed,
		StartTime:       t.startTime,
		EndTime:         copyTime(t.endTime),
	}
}

func copyTime(ts *time.Time) *time.Time {
	if ts == nil {
		return nil
	}
	v := *ts
	return &v
}
