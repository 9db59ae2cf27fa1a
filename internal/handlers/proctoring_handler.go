package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/realtime"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/services"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/utils"
)

type ProctoringHandler struct {
	BaseHandler
	proctoringService services.ProctoringService
	hub               *realtime.Hub
	upgrader          websocket.Upgrader
}

func NewProctoringHandler(proctoringService services.ProctoringService, hub *realtime.Hub, allowedOrigins []string, logger utils.Logger) *ProctoringHandler {
	return &ProctoringHandler{
		BaseHandler:       NewBaseHandler(logger),
		proctoringService: proctoringService,
		hub:               hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
	}
}

// LogEvent records one client reported proctoring event
// @Summary Log proctoring event
// @Tags proctoring
// @Accept json
// @Produce json
// @Param id path string true "Attempt ID"
// @Param request body services.LogEventRequest true "Event"
// @Success 201 {object} services.LogEventResponse
// @Router /proctoring/{id}/event [post]
func (h *ProctoringHandler) LogEvent(c *gin.Context) {
	attemptID := c.Param("id")
	h.LogRequest(c, "Logging proctoring event", "attempt_id", attemptID)

	actor, ok := h.actorFromContext(c)
	if !ok {
		return
	}

	var req services.LogEventRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.proctoringService.Record(c.Request.Context(), actor, attemptID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":        "Event logged",
		"event":          resp.Event,
		"warnings":       resp.Warnings,
		"suspicionScore": resp.SuspicionScore,
	})
}

// ListEvents
// @Summary List proctoring events of an attempt
// @Tags proctoring
// @Router /proctoring/{id}/events [get]
func (h *ProctoringHandler) ListEvents(c *gin.Context) {
	attemptID := c.Param("id")
	h.LogRequest(c, "Listing proctoring events", "attempt_id", attemptID)

	actor, ok := h.actorFromContext(c)
	if !ok {
		return
	}

	resp, err := h.proctoringService.ListEvents(c.Request.Context(), actor, attemptID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// UploadSnapshot stores a webcam frame and logs it as an event
// @Summary Upload webcam snapshot
// @Tags proctoring
// @Param request body services.SnapshotRequest true "Snapshot"
// @Router /proctoring/{id}/webcam-snapshot [post]
func (h *ProctoringHandler) UploadSnapshot(c *gin.Context) {
	attemptID := c.Param("id")
	h.LogRequest(c, "Uploading snapshot", "attempt_id", attemptID)

	actor, ok := h.actorFromContext(c)
	if !ok {
		return
	}

	var req services.SnapshotRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.proctoringService.RecordSnapshot(c.Request.Context(), actor, attemptID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":     "Snapshot saved",
		"snapshotUrl": resp.SnapshotURL,
		"event":       resp.Event,
	})
}

// FaceDetection
// @Summary Report face tracker output
// @Tags proctoring
// @Param request body services.FaceDetectionRequest true "Detections"
// @Router /proctoring/{id}/face-detection [post]
func (h *ProctoringHandler) FaceDetection(c *gin.Context) {
	attemptID := c.Param("id")
	h.LogRequest(c, "Recording face detection", "attempt_id", attemptID)

	actor, ok := h.actorFromContext(c)
	if !ok {
		return
	}

	var req services.FaceDetectionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.proctoringService.RecordFaceDetection(c.Request.Context(), actor, attemptID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":        "Face detection logged",
		"event":          resp.Event,
		"warnings":       resp.Warnings,
		"suspicionScore": resp.SuspicionScore,
	})
}

// LiveFeed upgrades to a websocket that receives the attempt's proctoring events as they are logged
// @Summary Live proctoring feed
// @Tags proctoring
// @Router /proctoring/{id}/live [get]
func (h *ProctoringHandler) LiveFeed(c *gin.Context) {
	attemptID := c.Param("id")
	h.LogRequest(c, "Opening live feed", "attempt_id", attemptID)

	actor, ok := h.actorFromContext(c)
	if !ok {
		return
	}

	if err := h.proctoringService.CanMonitor(c.Request.Context(), actor, attemptID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response
		h.LogError(c, err, "Websocket upgrade failed", "attempt_id", attemptID)
		return
	}

	h.hub.AddConnection(attemptID, conn)
	defer h.hub.RemoveConnection(attemptID, conn)

	// Monitors only listen; reading detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed["*"] || allowed[origin]
	}
}
