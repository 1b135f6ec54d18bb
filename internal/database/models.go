package database

import (
	"time"

	"gorm.io/gorm"
)

// UploadRecord is the audit row written for every object pushed to the
// remote store. Aborted batches and failed create calls leave objects
// behind on the store with no compensating delete; the Orphaned flag
// marks those rows for out-of-band review.
type UploadRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"not null;index:idx_upload_records_session_id" json:"session_id"`
	TaskID    string    `gorm:"uniqueIndex;not null" json:"task_id"`
	FileName  string    `gorm:"not null" json:"file_name"`
	HostedURL string    `gorm:"not null" json:"hosted_url"`
	Size      int64     `gorm:"not null" json:"size"`
	Orphaned  bool      `gorm:"not null;default:false;index" json:"orphaned"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for UploadRecord
func (UploadRecord) TableName() string {
	return "upload_records"
}

// BatchRecord captures the terminal state of a batch session
type BatchRecord struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	SessionID    string     `gorm:"uniqueIndex;not null" json:"session_id"`
	EntityKind   string     `gorm:"not null;index" json:"entity_kind"`
	State        string     `gorm:"not null" json:"state"`
	TaskCount    int        `gorm:"not null" json:"task_count"`
	FailedTaskID string     `json:"failed_task_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// TableName returns the table name for BatchRecord
func (BatchRecord) TableName() string {
	return "batch_records"
}

// BeforeCreate hook to set timestamps
func (r *UploadRecord) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now
	return nil
}

// BeforeUpdate hook to update timestamp
func (r *UploadRecord) BeforeUpdate(tx *gorm.DB) error {
	r.UpdatedAt = time.Now()
	return nil
}
