package progress

import (
	"sync"
	"testing"
	"time"
)

func testPlan() []StageDef {
	return []StageDef{
		{ID: "a", Name: "A", Weight: 50},
		{ID: "b", Name: "B", Weight: 30},
		{ID: "c", Name: "C", Weight: 20},
	}
}

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("%s: expected panic", name)
		}
	}()
	fn()
}

func TestNewTrackerRejectsBadWeights(t *testing.T) {
	mustPanic(t, "weights sum 90", func() {
		NewTracker("f.pdf", []StageDef{
			{ID: "a", Weight: 50},
			{ID: "b", Weight: 40},
		})
	})
	mustPanic(t, "negative weight", func() {
		NewTracker("f.pdf", []StageDef{
			{ID: "a", Weight: 110},
			{ID: "b", Weight: -10},
		})
	})
}

func TestStandardPlanWeightsSumTo100(t *testing.T) {
	var total float64
	for _, d := range StandardPlan() {
		total += d.Weight
	}
	if total != 100 {
		t.Fatalf("standard plan weights sum to %f", total)
	}
}

func TestWeightedProgress(t *testing.T) {
	tr := NewTracker("f.pdf", testPlan())

	if got := tr.Snapshot().OverallProgress; got != 0 {
		t.Fatalf("fresh job progress = %f, want 0", got)
	}

	tr.StartNext("")
	tr.SetFraction(0.5, "")
	if got := tr.Snapshot().OverallProgress; got != 25 {
		t.Fatalf("half of a 50%% stage = %f, want 25", got)
	}

	tr.CompleteCurrent("")
	if got := tr.Snapshot().OverallProgress; got != 50 {
		t.Fatalf("after first stage = %f, want 50", got)
	}

	tr.StartNext("")
	tr.CompleteCurrent("")
	tr.StartNext("")
	tr.CompleteCurrent("")
	tr.Finish()

	snap := tr.Snapshot()
	if snap.OverallProgress != 100 {
		t.Fatalf("finished job progress = %f, want 100", snap.OverallProgress)
	}
	if !snap.IsComplete {
		t.Fatal("finished job not marked complete")
	}
	if snap.HasError {
		t.Fatal("clean job flagged as failed")
	}
	if snap.EndTime == nil {
		t.Fatal("finished job has no end time")
	}
}

func TestFailedStageStillReaches100(t *testing.T) {
	tr := NewTracker("f.pdf", testPlan())
	tr.StartNext("")
	tr.FailCurrent(nil, "extraction blew up")
	tr.Finish()

	snap := tr.Snapshot()
	if snap.OverallProgress != 100 {
		t.Fatalf("failed job progress = %f, want 100", snap.OverallProgress)
	}
	if !snap.HasError {
		t.Fatal("failed job not flagged")
	}
	if snap.Steps[0].Status != StageError {
		t.Fatalf("first step status = %s, want error", snap.Steps[0].Status)
	}
	for _, step := range snap.Steps[1:] {
		if step.Status != StageSkipped {
			t.Fatalf("unstarted step %s status = %s, want skipped", step.ID, step.Status)
		}
	}
}

func TestMonotonicityViolationsPanic(t *testing.T) {
	mustPanic(t, "complete before start", func() {
		tr := NewTracker("f.pdf", testPlan())
		tr.CompleteCurrent("")
	})
	mustPanic(t, "terminal re-entry", func() {
		tr := NewTracker("f.pdf", testPlan())
		tr.StartNext("")
		tr.CompleteCurrent("")
		tr.CompleteCurrent("")
	})
	mustPanic(t, "fraction backward", func() {
		tr := NewTracker("f.pdf", testPlan())
		tr.StartNext("")
		tr.SetFraction(0.8, "")
		tr.SetFraction(0.3, "")
	})
	mustPanic(t, "fraction outside processing", func() {
		tr := NewTracker("f.pdf", testPlan())
		tr.SetFraction(0.1, "")
	})
	mustPanic(t, "start past the last stage", func() {
		tr := NewTracker("f.pdf", testPlan())
		for range testPlan() {
			tr.StartNext("")
			tr.CompleteCurrent("")
		}
		tr.StartNext("")
	})
}

func TestSnapshotIsDetachedCopy(t *testing.T) {
	tr := NewTracker("f.pdf", testPlan())
	tr.StartNext("working")

	snap := tr.Snapshot()
	snap.Steps[0].Status = StageError
	snap.Steps[0].Details = "mutated"

	fresh := tr.Snapshot()
	if fresh.Steps[0].Status != StageProcessing {
		t.Fatalf("snapshot mutation leaked into tracker: %s", fresh.Steps[0].Status)
	}
	if fresh.Steps[0].Details != "working" {
		t.Fatalf("snapshot details leaked: %q", fresh.Steps[0].Details)
	}
}

func TestSubscriberReceivesOrderedSnapshots(t *testing.T) {
	tr := NewTracker("f.pdf", testPlan())
	sub := tr.Subscribe()
	defer sub.Close()

	tr.StartNext("")
	tr.SetFraction(0.5, "")
	tr.CompleteCurrent("")

	var last float64 = -1
	for i := 0; i < 4; i++ {
		select {
		case snap := <-sub.Updates():
			if snap.OverallProgress < last {
				t.Fatalf("progress moved backward: %f -> %f", last, snap.OverallProgress)
			}
			last = snap.OverallProgress
		case <-time.After(time.Second):
			t.Fatalf("missing snapshot %d", i)
		}
	}
	if last != 50 {
		t.Fatalf("final observed progress = %f, want 50", last)
	}
}

func TestSlowSubscriberNeverBlocksPipeline(t *testing.T) {
	tr := NewTracker("f.pdf", testPlan())
	sub := tr.Subscribe() // never drained
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		tr.StartNext("")
		for i := 1; i <= subscriberBuffer*4; i++ {
			tr.SetFraction(float64(i)/float64(subscriberBuffer*4), "")
		}
		tr.CompleteCurrent("")
		tr.StartNext("")
		tr.CompleteCurrent("")
		tr.StartNext("")
		tr.CompleteCurrent("")
		tr.Finish()
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline blocked on an undrained subscriber")
	}

	// The newest state must survive the drops.
	var last Snapshot
	for {
		select {
		case snap := <-sub.Updates():
			last = snap
			continue
		default:
		}
		break
	}
	if !last.IsComplete || last.OverallProgress != 100 {
		t.Fatalf("newest snapshot lost: complete=%v progress=%f", last.IsComplete, last.OverallProgress)
	}
}

func TestSubscribeSendsInitialState(t *testing.T) {
	tr := NewTracker("f.pdf", testPlan())
	tr.StartNext("")
	tr.CompleteCurrent("")

	sub := tr.Subscribe()
	defer sub.Close()

	select {
	case snap := <-sub.Updates():
		if snap.OverallProgress != 50 {
			t.Fatalf("initial snapshot progress = %f, want 50", snap.OverallProgress)
		}
	case <-time.After(time.Second):
		t.Fatal("no initial snapshot")
	}
}

func TestRegistryLifecycle(t *testing.T) {
	reg := NewRegistry(time.Hour)

	tr := reg.Create("f.pdf", testPlan())
	got, err := reg.Get(tr.ID())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != tr {
		t.Fatal("Get returned a different tracker")
	}

	if _, err := reg.Get("no-such-id"); err != ErrJobNotFound {
		t.Fatalf("unknown id error = %v, want ErrJobNotFound", err)
	}

	if n := len(reg.Active()); n != 1 {
		t.Fatalf("Active() = %d jobs, want 1", n)
	}
}

func TestRegistryCleanupEvictsOnlyOldCompletedJobs(t *testing.T) {
	reg := NewRegistry(time.Nanosecond)

	running := reg.Create("running.pdf", testPlan())
	done := reg.Create("done.pdf", testPlan())
	done.StartNext("")
	done.CompleteCurrent("")
	done.Finish()

	time.Sleep(5 * time.Millisecond)

	if removed := reg.Cleanup(); removed != 1 {
		t.Fatalf("Cleanup removed %d, want 1", removed)
	}
	if _, err := reg.Get(done.ID()); err != ErrJobNotFound {
		t.Fatal("completed job survived cleanup")
	}
	if _, err := reg.Get(running.ID()); err != nil {
		t.Fatalf("running job evicted: %v", err)
	}
}

func TestConcurrentJobsAreIsolated(t *testing.T) {
	reg := NewRegistry(time.Hour)

	const jobs = 8
	var wg sync.WaitGroup
	ids := make([]string, jobs)
	for i := 0; i < jobs; i++ {
		tr := reg.Create("f.pdf", testPlan())
		ids[i] = tr.ID()
		wg.Add(1)
		go func(tr *Tracker) {
			defer wg.Done()
			for range testPlan() {
				tr.StartNext("")
				tr.SetFraction(0.5, "")
				tr.CompleteCurrent("")
			}
			tr.Finish()
		}(tr)
	}
	wg.Wait()

	for _, id := range ids {
		tr, err := reg.Get(id)
		if err != nil {
			t.Fatalf("Get(%s): %v", id, err)
		}
		snap := tr.Snapshot()
		if !snap.IsComplete || snap.OverallProgress != 100 {
			t.Fatalf("job %s: complete=%v progress=%f", id, snap.IsComplete, snap.OverallProgress)
		}
	}
}
