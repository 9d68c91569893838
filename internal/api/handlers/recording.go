package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"selenex/internal/capture"
	"selenex/internal/export"
	"selenex/internal/models"
	"selenex/internal/recorder"
	"selenex/pkg/chrome"
	"selenex/pkg/database"
	"selenex/pkg/response"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// SessionStore is the persistence the recording endpoints rely on.
type SessionStore interface {
	Create(ctx context.Context, session *models.RecordingSession) error
	Finish(ctx context.Context, sessionID string, actions []models.ActionRecord, stoppedAt time.Time) error
	Get(ctx context.Context, sessionID string) (*models.RecordingSession, error)
	List(ctx context.Context, status string, page, pageSize int) ([]models.RecordingSession, int64, error)
	Delete(ctx context.Context, sessionID string) error
}

type RecordingHandler struct {
	manager       *recorder.Manager
	store         SessionStore
	defaultDevice string
	logger        *zap.Logger
}

func NewRecordingHandler(manager *recorder.Manager, store SessionStore, defaultDevice string, logger *zap.Logger) *RecordingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordingHandler{
		manager:       manager,
		store:         store,
		defaultDevice: defaultDevice,
		logger:        logger.Named("api"),
	}
}

func (h *RecordingHandler) StartRecording(c *gin.Context) {
	var req struct {
		URL    string `json:"url" binding:"required,url"`
		Device string `json:"device"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	name := req.Device
	if name == "" {
		name = h.defaultDevice
	}
	device, err := chrome.LookupDevice(name)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	rec, err := h.manager.StartBrowser(req.URL, device)
	if err != nil {
		response.InternalServerError(c, "Failed to start recording: "+err.Error())
		return
	}
	h.created(c, rec, device.Name)
}

// StartRemote opens a session fed by an external capture surface through IngestEvents.
func (h *RecordingHandler) StartRemote(c *gin.Context) {
	var req struct {
		URL string `json:"url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, err.Error())
		return
	}

	rec, err := h.manager.StartRemote(req.URL)
	if err != nil {
		response.InternalServerError(c, "Failed to start recording: "+err.Error())
		return
	}
	h.created(c, rec, "")
}

func (h *RecordingHandler) created(c *gin.Context, rec *recorder.Recorder, device string) {
	st := rec.Status()
	session := &models.RecordingSession{
		SessionID: rec.ID(),
		Source:    string(rec.Source()),
		TargetURL: st.TargetURL,
		Device:    device,
		Status:    models.SessionStatusRecording,
		StartedAt: st.StartedAt,
	}
	if err := h.store.Create(c.Request.Context(), session); err != nil {
		h.logger.Error("persisting new session", zap.String("session_id", rec.ID()), zap.Error(err))
		_, _ = rec.StopRecording()
		h.manager.Cleanup(rec.ID())
		response.InternalServerError(c, "Failed to start recording: "+err.Error())
		return
	}
	response.SuccessWithMessage(c, "Recording started", gin.H{
		"session_id": rec.ID(),
		"source":     rec.Source(),
	})
}

func (h *RecordingHandler) IngestEvents(c *gin.Context) {
	var req struct {
		SessionID string             `json:"session_id" binding:"required"`
		Events    []capture.RawEvent `json:"events" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	kept, err := h.manager.Ingest(req.SessionID, req.Events...)
	switch {
	case errors.Is(err, recorder.ErrSessionNotFound):
		response.NotFound(c, "Recording session not found")
		return
	case errors.Is(err, recorder.ErrNotRecording):
		response.BadRequest(c, err.Error())
		return
	case err != nil:
		response.InternalServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{
		"received": len(req.Events),
		"recorded": kept,
	})
}

// StopRecording ends the session and hands it off to the store.
func (h *RecordingHandler) StopRecording(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	actions, err := h.manager.Stop(req.SessionID)
	switch {
	case errors.Is(err, recorder.ErrSessionNotFound):
		response.NotFound(c, "Recording session not found")
		return
	case errors.Is(err, recorder.ErrNotRecording):
		response.BadRequest(c, err.Error())
		return
	case err != nil:
		response.InternalServerError(c, "Failed to stop recording: "+err.Error())
		return
	}

	if err := h.store.Finish(c.Request.Context(), req.SessionID, actions, time.Now()); err != nil {
		h.logger.Error("persisting stopped session", zap.String("session_id", req.SessionID), zap.Error(err))
		response.InternalServerError(c, "Recording stopped but could not be saved: "+err.Error())
		return
	}
	response.SuccessWithMessage(c, "Recording stopped", gin.H{
		"session_id":   req.SessionID,
		"action_count": len(actions),
	})
}

func (h *RecordingHandler) GetRecordingStatus(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		response.BadRequest(c, "session_id is required")
		return
	}

	rec, err := h.manager.Get(sessionID)
	if err != nil {
		response.NotFound(c, "Recording session not found")
		return
	}
	response.Success(c, gin.H{
		"status":  rec.Status(),
		"actions": rec.GetActions(),
	})
}

// ExportRecording downloads the session of a tracked recorder as session.json,
// falling back to the stored copy once the recorder was reaped.
func (h *RecordingHandler) ExportRecording(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		response.BadRequest(c, "session_id is required")
		return
	}

	if rec, err := h.manager.Get(sessionID); err == nil {
		h.writeExport(c, rec.GetActions())
		return
	}
	h.exportStored(c, sessionID)
}

func (h *RecordingHandler) ListSessions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	sessions, total, err := h.store.List(c.Request.Context(), c.Query("status"), page, pageSize)
	if err != nil {
		response.InternalServerError(c, "Failed to list sessions: "+err.Error())
		return
	}
	response.Page(c, sessions, total, page, pageSize)
}

func (h *RecordingHandler) GetSession(c *gin.Context) {
	session, ok := h.storedSession(c)
	if !ok {
		return
	}
	actions, err := session.GetActions()
	if err != nil {
		response.InternalServerError(c, "Stored session is corrupt: "+err.Error())
		return
	}
	response.Success(c, gin.H{
		"session": session,
		"actions": actions,
	})
}

func (h *RecordingHandler) ExportSession(c *gin.Context) {
	h.exportStored(c, c.Param("id"))
}

func (h *RecordingHandler) DeleteSession(c *gin.Context) {
	sessionID := c.Param("id")
	if rec, err := h.manager.Get(sessionID); err == nil && rec.IsRecording() {
		response.Conflict(c, "Session is still recording")
		return
	}
	if err := h.store.Delete(c.Request.Context(), sessionID); err != nil {
		if errors.Is(err, database.ErrSessionNotFound) {
			response.NotFound(c, "Session not found")
			return
		}
		response.InternalServerError(c, "Failed to delete session: "+err.Error())
		return
	}
	h.manager.Cleanup(sessionID)
	response.SuccessWithMessage(c, "Session deleted", nil)
}

// RecordingWebSocket streams every record the session keeps from now on. The session
// id acts as the capability, as browsers cannot set headers on websocket upgrades.
func (h *RecordingHandler) RecordingWebSocket(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	rec, err := h.manager.Get(sessionID)
	if err != nil {
		_ = conn.WriteJSON(gin.H{"error": "Recording session not found"})
		return
	}

	rec.Subscribe(conn)
	defer rec.Unsubscribe(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.logger.Debug("websocket closed", zap.String("session_id", sessionID), zap.Error(err))
			return
		}
	}
}

func (h *RecordingHandler) storedSession(c *gin.Context) (*models.RecordingSession, bool) {
	session, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, database.ErrSessionNotFound) {
		response.NotFound(c, "Session not found")
		return nil, false
	}
	if err != nil {
		response.InternalServerError(c, err.Error())
		return nil, false
	}
	return session, true
}

func (h *RecordingHandler) exportStored(c *gin.Context, sessionID string) {
	session, err := h.store.Get(c.Request.Context(), sessionID)
	if errors.Is(err, database.ErrSessionNotFound) {
		response.NotFound(c, "Session not found")
		return
	}
	if err != nil {
		response.InternalServerError(c, err.Error())
		return
	}
	actions, err := session.GetActions()
	if err != nil {
		response.InternalServerError(c, "Stored session is corrupt: "+err.Error())
		return
	}
	h.writeExport(c, actions)
}

func (h *RecordingHandler) writeExport(c *gin.Context, actions []models.ActionRecord) {
	data, err := export.Marshal(actions)
	if errors.Is(err, export.ErrEmptySession) {
		response.BadRequest(c, err.Error())
		return
	}
	if err != nil {
		response.InternalServerError(c, err.Error())
		return
	}
	response.Attachment(c, export.FileName, data)
}
