package mediamodule

import (
	"time"

	"gorm.io/gorm"

	"github.com/merchly/catalogmedia/internal/database"
	"github.com/merchly/catalogmedia/internal/logger"
)

// Recorder writes the persistent audit trail of uploads and batch
// outcomes. Audit failures never fail the pipeline; they are logged
// and the run continues.
type Recorder struct {
	db *gorm.DB
}

// NewRecorder creates a recorder on the given database handle
func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// RecordUpload persists one successfully uploaded object
func (r *Recorder) RecordUpload(session *BatchSession, task *UploadTask) {
	if r.db == nil {
		return
	}

	record := database.UploadRecord{
		SessionID: session.ID,
		TaskID:    task.ID,
		FileName:  task.Asset.Name,
		HostedURL: task.HostedURL,
		Size:      task.Asset.Size,
	}
	if err := r.db.Create(&record).Error; err != nil {
		logger.Error("Failed to record upload for task %s: %v", task.ID, err)
	}
}

// MarkSessionOrphaned flags every uploaded object of a session as
// orphaned. Called when a batch aborts or the entity create fails:
// the objects stay on the remote store and need out-of-band cleanup.
func (r *Recorder) MarkSessionOrphaned(sessionID string) {
	if r.db == nil {
		return
	}

	result := r.db.Model(&database.UploadRecord{}).
		Where("session_id = ?", sessionID).
		Update("orphaned", true)
	if result.Error != nil {
		logger.Error("Failed to mark session %s uploads orphaned: %v", sessionID, result.Error)
		return
	}
	if result.RowsAffected > 0 {
		logger.Warn("⚠️ Marked %d uploaded object(s) of session %s as orphaned", result.RowsAffected, sessionID)
	}
}

// RecordBatch persists the terminal outcome of a batch session. A
// restarted session overwrites its previous aborted row.
func (r *Recorder) RecordBatch(session *BatchSession, state BatchState, failedTaskID string) {
	if r.db == nil {
		return
	}

	now := time.Now()
	record := database.BatchRecord{
		SessionID:    session.ID,
		EntityKind:   string(session.Kind),
		State:        string(state),
		TaskCount:    session.TaskCount(),
		FailedTaskID: failedTaskID,
		CreatedAt:    session.CreatedAt,
		CompletedAt:  &now,
	}

	err := r.db.Where("session_id = ?", session.ID).
		Assign(map[string]interface{}{
			"state":          record.State,
			"task_count":     record.TaskCount,
			"failed_task_id": record.FailedTaskID,
			"completed_at":   record.CompletedAt,
		}).
		FirstOrCreate(&record).Error
	if err != nil {
		logger.Error("Failed to record batch outcome for session %s: %v", session.ID, err)
	}
}

// OrphanedUploads returns the audit rows flagged for cleanup
func (r *Recorder) OrphanedUploads(limit int) ([]database.UploadRecord, error) {
	if r.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}

	var records []database.UploadRecord
	err := r.db.Where("orphaned = ?", true).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
