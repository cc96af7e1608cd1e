package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/propos4l/proposal-engine/internal/progress"
	"github.com/propos4l/proposal-engine/internal/service/ingest"
	"github.com/propos4l/proposal-engine/pkg/logger"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

type ProgressHandler struct {
	service  ingest.Service
	logger   logger.Logger
	upgrader websocket.Upgrader
}

func NewProgressHandler(service ingest.Service, logger logger.Logger) *ProgressHandler {
	return &ProgressHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// GetStatus is the poll fallback: the same snapshot shape the socket pushes,
// served over plain REST. Finished jobs answer from the archive after the
// live tracker is evicted.
func (h *ProgressHandler) GetStatus(c *gin.Context) {
	trackingID := c.Param("trackingId")

	snap, err := h.service.Status(c.Request.Context(), trackingID)
	if err != nil {
		if errors.Is(err, progress.ErrJobNotFound) {
			h.handleError(c, http.StatusNotFound, "Job not found", err)
			return
		}
		h.handleError(c, http.StatusInternalServerError, "Failed to load job status", err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

// Cancel withdraws a job that is still waiting in the queue. A job a worker
// already picked up, or one that finished, answers 409.
func (h *ProgressHandler) Cancel(c *gin.Context) {
	trackingID := c.Param("trackingId")

	if err := h.service.CancelJob(c.Request.Context(), trackingID); err != nil {
		if errors.Is(err, ingest.ErrJobNotPending) {
			h.handleError(c, http.StatusConflict, "Job is not pending", err)
			return
		}
		h.handleError(c, http.StatusInternalServerError, "Failed to cancel job", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Job cancelled",
		"trackingId": trackingID,
	})
}

// ActiveJobs lists every job the registry still holds.
func (h *ProgressHandler) ActiveJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"jobs": h.service.ActiveJobs(c.Request.Context()),
	})
}

// Watch upgrades to a websocket and pushes ordered snapshots until the job
// completes or the client leaves. A job already archived gets its final
// snapshot and an immediate close.
func (h *ProgressHandler) Watch(c *gin.Context) {
	trackingID := c.Param("trackingId")

	tracker, err := h.service.Tracker(trackingID)
	if err != nil {
		// Not live anymore; the archive may still know the outcome.
		snap, serr := h.service.Status(c.Request.Context(), trackingID)
		if serr != nil {
			h.handleError(c, http.StatusNotFound, "Job not found", serr)
			return
		}
		conn, uerr := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if uerr != nil {
			return
		}
		defer conn.Close()
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		conn.WriteJSON(snap)
		h.closeSocket(conn)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed",
			logger.String("trackingId", trackingID),
			logger.Error(err),
		)
		return
	}
	defer conn.Close()

	sub := tracker.Subscribe()
	defer sub.Close()

	// Reads only serve to notice the client leaving.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pings := time.NewTicker(wsPingInterval)
	defer pings.Stop()

	for {
		select {
		case <-clientGone:
			return
		case <-pings.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case snap, ok := <-sub.Updates():
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
			if snap.IsComplete {
				h.closeSocket(conn)
				return
			}
		}
	}
}

func (h *ProgressHandler) closeSocket(conn *websocket.Conn) {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job complete"))
}

func (h *ProgressHandler) handleError(c *gin.Context, status int, message string, err error) {
	h.logger.Error(message,
		logger.String("path", c.Request.URL.Path),
		logger.Error(err),
	)

	response := ErrorResponse{Message: message}
	if err != nil {
		response.Error = err.Error()
	}
	c.JSON(status, response)
}
