package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/propos4l/proposal-engine/internal/progress"
	"github.com/propos4l/proposal-engine/pkg/logger"
)

func wsPlan() []progress.StageDef {
	return []progress.StageDef{
		{ID: "a", Name: "A", Weight: 60},
		{ID: "b", Name: "B", Weight: 40},
	}
}

func dialWatch(t *testing.T, svc *fakeService, trackingID string) (*websocket.Conn, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewHandlers(svc, logger.NewTestLogger())
	r := gin.New()
	r.GET("/api/v1/jobs/:trackingId/ws", h.Progress.Watch)

	server := httptest.NewServer(r)
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/jobs/" + trackingID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		server.Close()
		t.Fatalf("dial: %v", err)
	}
	return conn, func() {
		conn.Close()
		server.Close()
	}
}

func TestWatchStreamsUntilComplete(t *testing.T) {
	tracker := progress.NewTracker("a.pdf", wsPlan())
	svc := &fakeService{trackers: map[string]*progress.Tracker{tracker.ID(): tracker}}

	conn, cleanup := dialWatch(t, svc, tracker.ID())
	defer cleanup()

	go func() {
		tracker.StartNext("")
		tracker.SetFraction(0.5, "")
		tracker.CompleteCurrent("")
		tracker.StartNext("")
		tracker.CompleteCurrent("")
		tracker.Finish()
	}()

	var last progress.Snapshot
	deadline := time.Now().Add(3 * time.Second)
	for !last.IsComplete {
		conn.SetReadDeadline(deadline)
		var snap progress.Snapshot
		if err := conn.ReadJSON(&snap); err != nil {
			t.Fatalf("read: %v (last progress %f)", err, last.OverallProgress)
		}
		if snap.OverallProgress < last.OverallProgress {
			t.Fatalf("progress moved backward: %f -> %f", last.OverallProgress, snap.OverallProgress)
		}
		last = snap
	}
	if last.OverallProgress != 100 {
		t.Fatalf("final progress = %f", last.OverallProgress)
	}

	// After the final snapshot the server closes normally.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected close after completion")
	} else if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("close error = %v, want normal closure", err)
	}
}

func TestWatchArchivedJobSendsFinalSnapshotAndCloses(t *testing.T) {
	svc := &fakeService{
		trackers: map[string]*progress.Tracker{},
		snapshot: &progress.Snapshot{
			ID:              "t-done",
			IsComplete:      true,
			OverallProgress: 100,
		},
	}

	conn, cleanup := dialWatch(t, svc, "t-done")
	defer cleanup()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var snap progress.Snapshot
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !snap.IsComplete || snap.ID != "t-done" {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestWatchUnknownJobIs404(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &fakeService{
		trackers:  map[string]*progress.Tracker{},
		statusErr: progress.ErrJobNotFound,
	}
	h := NewHandlers(svc, logger.NewTestLogger())
	r := gin.New()
	r.GET("/api/v1/jobs/:trackingId/ws", h.Progress.Watch)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/nope/ws", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}
