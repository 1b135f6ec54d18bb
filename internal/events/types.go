// Package events provides the event bus used to broadcast media pipeline
// progress and lifecycle notifications to subscribers (websocket streams,
// audit logging, metrics).
package events

import (
	"time"
)

// EventType represents the type of event
type EventType string

// System-wide event types
const (
	// Batch session events
	EventSessionOpened    EventType = "media.session.opened"
	EventSessionDiscarded EventType = "media.session.discarded"

	// Transcode events
	EventTranscodeCompleted EventType = "media.transcode.completed"
	EventTranscodeFailed    EventType = "media.transcode.failed"

	// Upload events
	EventUploadStarted   EventType = "media.upload.started"
	EventUploadProgress  EventType = "media.upload.progress"
	EventUploadSucceeded EventType = "media.upload.succeeded"
	EventUploadFailed    EventType = "media.upload.failed"

	// Batch outcome events
	EventBatchCompleted EventType = "media.batch.completed"
	EventBatchAborted   EventType = "media.batch.aborted"

	// Catalog events
	EventCatalogCreated      EventType = "catalog.entity.created"
	EventCatalogCreateFailed EventType = "catalog.entity.create_failed"

	// System events
	EventSystemStarted EventType = "system.started"
	EventSystemStopped EventType = "system.stopped"

	// General events
	EventError   EventType = "error"
	EventWarning EventType = "warning"
	EventInfo    EventType = "info"
)

// EventPriority represents the priority level of an event
type EventPriority int

const (
	PriorityLow      EventPriority = 1
	PriorityNormal   EventPriority = 5
	PriorityHigh     EventPriority = 10
	PriorityCritical EventPriority = 20
)

// Event represents a system event
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Source    string                 `json:"source"` // system, module:id, session:id
	Target    string                 `json:"target"` // specific target if applicable
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data"`
	Priority  EventPriority          `json:"priority"`
	Timestamp time.Time              `json:"timestamp"`
}

// EventHandler represents a function that handles events
type EventHandler func(event Event) error

// EventFilter represents filters for event subscriptions
type EventFilter struct {
	Types    []EventType    `json:"types,omitempty"`
	Sources  []string       `json:"sources,omitempty"`
	Targets  []string       `json:"targets,omitempty"`
	Priority *EventPriority `json:"priority,omitempty"`
}

// Subscription represents an event subscription
type Subscription struct {
	ID            string       `json:"id"`
	Filter        EventFilter  `json:"filter"`
	Handler       EventHandler `json:"-"`
	Subscriber    string       `json:"subscriber"`
	Created       time.Time    `json:"created"`
	LastTriggered *time.Time   `json:"last_triggered,omitempty"`
	TriggerCount  int64        `json:"trigger_count"`
}

// EventStats represents statistics about events
type EventStats struct {
	TotalEvents         int64            `json:"total_events"`
	EventsByType        map[string]int64 `json:"events_by_type"`
	EventsBySource      map[string]int64 `json:"events_by_source"`
	RecentEvents        []Event          `json:"recent_events"`
	ActiveSubscriptions int              `json:"active_subscriptions"`
}

// EventBusConfig represents configuration for the event bus
type EventBusConfig struct {
	BufferSize        int           `json:"buffer_size"`
	MaxEventAge       time.Duration `json:"max_event_age"`
	EnablePersistence bool          `json:"enable_persistence"`
}

// DefaultEventBusConfig returns default configuration
func DefaultEventBusConfig() EventBusConfig {
	return EventBusConfig{
		BufferSize:        1000,
		MaxEventAge:       24 * time.Hour,
		EnablePersistence: true,
	}
}

// =============================================================================
// PREDEFINED EVENT DATA STRUCTURES
// =============================================================================

// SessionOpenedData represents data for media.session.opened events
type SessionOpenedData struct {
	SessionID  string `json:"session_id"`
	EntityKind string `json:"entity_kind"`
	MaxItems   int    `json:"max_items"`
}

// TranscodeCompletedData represents data for media.transcode.completed events
type TranscodeCompletedData struct {
	SessionID        string  `json:"session_id"`
	FileName         string  `json:"file_name"`
	OutputName       string  `json:"output_name"`
	OriginalSize     int64   `json:"original_size"`
	CompressedSize   int64   `json:"compressed_size"`
	CompressionRatio float64 `json:"compression_ratio"`
	Width            int     `json:"width"`
	Height           int     `json:"height"`
}

// UploadProgressData represents data for media.upload.progress events
type UploadProgressData struct {
	SessionID  string `json:"session_id"`
	TaskID     string `json:"task_id"`
	Percent    int    `json:"percent"`
	BytesSent  int64  `json:"bytes_sent"`
	BytesTotal int64  `json:"bytes_total"`
	TaskIndex  int    `json:"task_index"`
	TaskCount  int    `json:"task_count"`
}

// BatchFinishedData represents data for media.batch.completed/aborted events
type BatchFinishedData struct {
	SessionID    string   `json:"session_id"`
	EntityKind   string   `json:"entity_kind"`
	HostedURLs   []string `json:"hosted_urls,omitempty"`
	FailedTaskID string   `json:"failed_task_id,omitempty"`
	Error        string   `json:"error,omitempty"`
}
