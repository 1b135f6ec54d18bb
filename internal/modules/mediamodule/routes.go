package mediamodule

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/merchly/catalogmedia/internal/database"
	"github.com/merchly/catalogmedia/internal/logger"
)

// taskView is the wire representation of one upload task
type taskView struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Status          string  `json:"status"`
	Progress        int     `json:"progress"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	OriginalSize    int64   `json:"original_size"`
	Size            int64   `json:"size"`
	CompressionRate float64 `json:"compression_ratio"`
	PreviewHandle   string  `json:"preview_handle,omitempty"`
	HostedURL       string  `json:"hosted_url,omitempty"`
	FailureReason   string  `json:"failure_reason,omitempty"`
}

// sessionView is the wire representation of a batch session
type sessionView struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	State     string          `json:"state"`
	MaxItems  int             `json:"max_items"`
	Remaining int             `json:"remaining_capacity"`
	Status    StatusEntry     `json:"status"`
	Tasks     []taskView      `json:"tasks"`
	Previews  map[string]int  `json:"previews"`
}

func newTaskView(task *UploadTask) taskView {
	view := taskView{
		ID:              task.ID,
		Name:            task.Asset.Name,
		Status:          string(task.Status),
		Progress:        task.Progress,
		Width:           task.Asset.Width,
		Height:          task.Asset.Height,
		OriginalSize:    task.Asset.OriginalSize,
		Size:            task.Asset.Size,
		CompressionRate: task.Asset.CompressionRatio,
		HostedURL:       task.HostedURL,
		FailureReason:   task.FailureReason,
	}
	if task.Preview != nil {
		view.PreviewHandle = task.Preview.ID
	}
	return view
}

func newSessionView(session *BatchSession) sessionView {
	tasks := session.Tasks()
	views := make([]taskView, len(tasks))
	for i, task := range tasks {
		views[i] = newTaskView(task)
	}
	return sessionView{
		ID:        session.ID,
		Kind:      string(session.Kind),
		State:     string(session.State()),
		MaxItems:  session.Profile.MaxItems,
		Remaining: session.RemainingCapacity(),
		Status:    session.Status().Current(),
		Tasks:     views,
		Previews: map[string]int{
			"outstanding": session.Previews().Outstanding(),
			"created":     session.Previews().CreatedCount(),
			"revoked":     session.Previews().RevokedCount(),
		},
	}
}

// openSessionHandler handles POST /api/media/sessions
func (m *Module) openSessionHandler(c *gin.Context) {
	var req struct {
		Kind string `json:"kind" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind is required"})
		return
	}

	session, err := m.manager.OpenSession(EntityKind(req.Kind))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, newSessionView(session))
}

// listSessionsHandler handles GET /api/media/sessions
func (m *Module) listSessionsHandler(c *gin.Context) {
	sessions := m.manager.Sessions()
	views := make([]sessionView, len(sessions))
	for i, session := range sessions {
		views[i] = newSessionView(session)
	}
	c.JSON(http.StatusOK, gin.H{"sessions": views, "count": len(views)})
}

// getSessionHandler handles GET /api/media/sessions/:id
func (m *Module) getSessionHandler(c *gin.Context) {
	session, ok := m.manager.GetSession(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, newSessionView(session))
}

// ingestFilesHandler handles POST /api/media/sessions/:id/files. The
// request is a multipart form whose "files" parts are transcoded and
// enqueued; the response reports a per-file outcome in input order.
func (m *Module) ingestFilesHandler(c *gin.Context) {
	session, ok := m.manager.GetSession(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided"})
		return
	}

	raws := make([]RawImage, 0, len(files))
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open " + header.Filename})
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read " + header.Filename})
			return
		}
		raws = append(raws, RawImage{
			Name:     header.Filename,
			MimeType: header.Header.Get("Content-Type"),
			Data:     data,
		})
	}

	outcomes := m.manager.IngestFiles(session, raws)

	c.JSON(http.StatusOK, gin.H{
		"outcomes": outcomes,
		"session":  newSessionView(session),
	})
}

// removeTaskHandler handles DELETE /api/media/sessions/:id/tasks/:taskId
func (m *Module) removeTaskHandler(c *gin.Context) {
	session, ok := m.manager.GetSession(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	err := session.Remove(c.Param("taskId"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, newSessionView(session))
	case errors.Is(err, ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrTaskNotRemovable), errors.Is(err, ErrSessionConsumed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// renderPreviewHandler handles GET /api/media/sessions/:id/previews/:handleId
func (m *Module) renderPreviewHandler(c *gin.Context) {
	session, ok := m.manager.GetSession(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	data, err := session.Previews().Render(&PreviewHandle{ID: c.Param("handleId")})
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, "image/webp", data)
}

// uploadBatchHandler handles POST /api/media/sessions/:id/upload. The
// optional body carries the form fields the submission gate validates
// before any network activity. The queue then drains sequentially; the
// call returns when the batch completes or aborts at its first failure.
func (m *Module) uploadBatchHandler(c *gin.Context) {
	session, ok := m.manager.GetSession(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	var req struct {
		Fields   map[string]string `json:"fields"`
		Required []string          `json:"required_fields"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	gate := NewSubmissionGate(req.Required)
	if verr := gate.CanSubmit(req.Fields, session); verr != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":          verr.Error(),
			"missing_fields": verr.Missing,
			"empty_queue":    verr.EmptyQueue,
		})
		return
	}

	result, err := m.manager.RunBatch(c.Request.Context(), session)
	switch {
	case errors.Is(err, ErrEmptyBatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, ErrSessionConsumed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	response := gin.H{
		"result":  string(result.Kind),
		"session": newSessionView(session),
	}
	if result.Kind == ResultCompleted {
		response["hosted_urls"] = result.HostedURLs
		c.JSON(http.StatusOK, response)
		return
	}

	response["failed_task_id"] = result.FailedTaskID
	if result.Err != nil {
		response["error"] = result.Err.Error()
	}
	c.JSON(http.StatusBadGateway, response)
}

// restartSessionHandler handles POST /api/media/sessions/:id/restart
func (m *Module) restartSessionHandler(c *gin.Context) {
	session, ok := m.manager.GetSession(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	if err := session.Restart(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, newSessionView(session))
}

// discardSessionHandler handles DELETE /api/media/sessions/:id
func (m *Module) discardSessionHandler(c *gin.Context) {
	if err := m.manager.DiscardSession(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "discarded"})
}

// recordsHandler handles GET /api/media/records: the persisted audit
// trail of batch outcomes and uploaded objects
func (m *Module) recordsHandler(c *gin.Context) {
	db := m.manager.db
	if db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit storage unavailable"})
		return
	}

	var batches []database.BatchRecord
	if err := db.Order("created_at DESC").Limit(100).Find(&batches).Error; err != nil {
		logger.Error("Failed to list batch records: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list batch records"})
		return
	}

	var uploads []database.UploadRecord
	if err := db.Order("created_at DESC").Limit(100).Find(&uploads).Error; err != nil {
		logger.Error("Failed to list upload records: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list upload records"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"batches": batches, "uploads": uploads})
}

// orphanedUploadsHandler handles GET /api/media/uploads/orphaned
func (m *Module) orphanedUploadsHandler(c *gin.Context) {
	records, err := m.manager.Recorder().OrphanedUploads(100)
	if err != nil {
		logger.Error("Failed to list orphaned uploads: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list orphaned uploads"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"uploads": records, "count": len(records)})
}
