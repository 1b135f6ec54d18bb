package mediamodule

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/merchly/catalogmedia/internal/config"
	"github.com/merchly/catalogmedia/internal/events"
	"github.com/merchly/catalogmedia/internal/logger"
)

// IngestOutcome pairs one inbound file with what happened to it. A
// file either became a queued task or was rejected with a per-file
// error; rejections never affect sibling files.
type IngestOutcome struct {
	Name   string `json:"name"`
	TaskID string `json:"task_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Manager owns the live batch sessions and wires the pipeline pieces
// together: transcoder, sessions, orchestrator, audit recorder.
type Manager struct {
	db           *gorm.DB
	eventBus     events.EventBus
	transcoder   *Transcoder
	orchestrator *Orchestrator
	recorder     *Recorder

	mu       sync.RWMutex
	sessions map[string]*BatchSession
}

// NewManager creates a pipeline manager
func NewManager(db *gorm.DB, eventBus events.EventBus) *Manager {
	recorder := NewRecorder(db)
	return &Manager{
		db:           db,
		eventBus:     eventBus,
		transcoder:   NewTranscoder(),
		orchestrator: NewOrchestrator(eventBus, recorder),
		recorder:     recorder,
		sessions:     make(map[string]*BatchSession),
	}
}

// Recorder returns the audit recorder
func (m *Manager) Recorder() *Recorder {
	return m.recorder
}

// ProfileFor returns the transcoding profile configured for an entity
// kind
func (m *Manager) ProfileFor(kind EntityKind) (config.Profile, error) {
	pipeline := config.Get().Pipeline
	switch kind {
	case KindBanner:
		return pipeline.Banner, nil
	case KindProduct:
		return pipeline.Product, nil
	case KindBundle:
		return pipeline.Bundle, nil
	default:
		return config.Profile{}, fmt.Errorf("unknown entity kind: %s", kind)
	}
}

// OpenSession creates a new batch session for an entity kind
func (m *Manager) OpenSession(kind EntityKind) (*BatchSession, error) {
	profile, err := m.ProfileFor(kind)
	if err != nil {
		return nil, err
	}

	session := NewBatchSession(kind, profile)

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()

	logger.Info("📦 Opened %s batch session %s (max %d items)", kind, session.ID, profile.MaxItems)

	if m.eventBus != nil {
		event := events.NewSessionEvent(events.EventSessionOpened, session.ID, string(kind), "batch session opened")
		event.Data = map[string]interface{}{
			"session_id":  session.ID,
			"entity_kind": string(kind),
			"max_items":   profile.MaxItems,
		}
		m.eventBus.PublishAsync(event)
	}

	return session, nil
}

// GetSession returns a live session by ID
func (m *Manager) GetSession(sessionID string) (*BatchSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[sessionID]
	return session, ok
}

// Sessions returns a snapshot of all live sessions
func (m *Manager) Sessions() []*BatchSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*BatchSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

// DiscardSession tears a session down and drops it from the manager.
// All outstanding preview handles are revoked.
func (m *Manager) DiscardSession(sessionID string) error {
	m.mu.Lock()
	session, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("session %s not found", sessionID)
	}

	outstanding := session.Previews().Outstanding()
	session.Discard()
	logger.Info("🔄 Discarded session %s (revoked %d preview handle(s))", sessionID, outstanding)

	if m.eventBus != nil {
		event := events.NewSessionEvent(events.EventSessionDiscarded, sessionID, string(session.Kind), "batch session discarded")
		event.Data = map[string]interface{}{
			"session_id":       sessionID,
			"revoked_previews": outstanding,
		}
		m.eventBus.PublishAsync(event)
	}

	return nil
}

// IngestFiles transcodes a selection of raw files and enqueues the
// results into the session. The accepted-type filter and the capacity
// check both run before any transcoding work, so rejected files cost
// nothing and hold nothing. Outcomes come back in input order.
func (m *Manager) IngestFiles(session *BatchSession, raws []RawImage) []IngestOutcome {
	cfg := config.Get()
	outcomes := make([]IngestOutcome, len(raws))

	// Pre-filter: media type and remaining capacity. Capacity is
	// counted across the accepted files of this call so an oversized
	// selection rejects the tail before transcoding starts.
	remaining := session.RemainingCapacity()
	accepted := make([]int, 0, len(raws))
	for i, raw := range raws {
		outcomes[i].Name = raw.Name
		if !AcceptsMediaType(raw.MimeType, cfg.Upload.AcceptedTypes) {
			outcomes[i].Error = ErrUnsupportedMediaType.Error()
			continue
		}
		if len(accepted) >= remaining {
			outcomes[i].Error = ErrCapacityExceeded.Error()
			continue
		}
		accepted = append(accepted, i)
	}

	if len(accepted) == 0 {
		return outcomes
	}

	session.Status().SetTranscoding(len(accepted))

	toTranscode := make([]RawImage, len(accepted))
	for j, i := range accepted {
		toTranscode[j] = raws[i]
	}

	results := m.transcoder.TranscodeAll(toTranscode, session.Profile.MaxWidth, session.Profile.Quality)

	for j, result := range results {
		i := accepted[j]
		if result.Err != nil {
			outcomes[i].Error = result.Err.Error()
			logger.Warn("Transcode failed for %s: %v", result.Name, result.Err)
			m.publishTranscodeFailed(session, result)
			continue
		}

		task, err := session.Enqueue(result.Asset)
		if err != nil {
			outcomes[i].Error = err.Error()
			continue
		}
		outcomes[i].TaskID = task.ID
		m.publishTranscodeCompleted(session, result)
	}

	session.Status().SetPreparing()
	return outcomes
}

// RunBatch drains the session to the configured object store
func (m *Manager) RunBatch(ctx context.Context, session *BatchSession) (*BatchResult, error) {
	cfg := config.Get()
	target := NewHTTPUploadTarget(cfg.Upload.Endpoint, cfg.Upload.Preset, cfg.Upload.Timeout)
	return m.orchestrator.RunBatch(ctx, session, target)
}

// RunBatchTo drains the session to an explicit target. Used by tests
// and by callers that manage their own store configuration.
func (m *Manager) RunBatchTo(ctx context.Context, session *BatchSession, target UploadTarget) (*BatchResult, error) {
	return m.orchestrator.RunBatch(ctx, session, target)
}

func (m *Manager) publishTranscodeCompleted(session *BatchSession, result TranscodeResult) {
	if m.eventBus == nil {
		return
	}
	asset := result.Asset
	event := events.NewSessionEvent(events.EventTranscodeCompleted, session.ID, result.Name, "transcode completed")
	event.Data = map[string]interface{}{
		"session_id":        session.ID,
		"file_name":         result.Name,
		"output_name":       asset.Name,
		"original_size":     asset.OriginalSize,
		"compressed_size":   asset.Size,
		"compression_ratio": asset.CompressionRatio,
		"width":             asset.Width,
		"height":            asset.Height,
	}
	m.eventBus.PublishAsync(event)
}

func (m *Manager) publishTranscodeFailed(session *BatchSession, result TranscodeResult) {
	if m.eventBus == nil {
		return
	}
	event := events.NewSessionEvent(events.EventTranscodeFailed, session.ID, result.Name, result.Err.Error())
	event.Data = map[string]interface{}{
		"session_id": session.ID,
		"file_name":  result.Name,
	}
	m.eventBus.PublishAsync(event)
}
