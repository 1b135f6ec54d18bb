package mediamodule

import (
	"fmt"
	"sync"
	"time"
)

// StatusPhase is the coarse lifecycle phase shown to the admin UI
type StatusPhase string

const (
	PhasePreparing   StatusPhase = "preparing"
	PhaseTranscoding StatusPhase = "transcoding"
	PhaseUploading   StatusPhase = "uploading"
	PhaseFailed      StatusPhase = "failed"
	PhaseSucceeded   StatusPhase = "succeeded"
)

// StatusEntry is one human-readable status line with its timestamp
type StatusEntry struct {
	Phase     StatusPhase `json:"phase"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
}

// StatusReporter tracks the operator-facing status line of a batch
// session. The current line always reflects the latest transition;
// history keeps every line since the session opened so the UI can show
// a log after a failure.
type StatusReporter struct {
	mu      sync.RWMutex
	current StatusEntry
	history []StatusEntry
}

// NewStatusReporter creates a reporter in the preparing phase
func NewStatusReporter() *StatusReporter {
	r := &StatusReporter{}
	r.set(PhasePreparing, "preparing")
	return r
}

func (r *StatusReporter) set(phase StatusPhase, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := StatusEntry{
		Phase:     phase,
		Message:   message,
		Timestamp: time.Now(),
	}
	r.current = entry
	r.history = append(r.history, entry)
}

// SetPreparing resets the line to the initial phase
func (r *StatusReporter) SetPreparing() {
	r.set(PhasePreparing, "preparing")
}

// SetTranscoding reports that inbound files are being converted
func (r *StatusReporter) SetTranscoding(count int) {
	if count == 1 {
		r.set(PhaseTranscoding, "transcoding 1 image")
		return
	}
	r.set(PhaseTranscoding, fmt.Sprintf("transcoding %d images", count))
}

// SetUploading reports which task of the batch is in flight, 1-based
func (r *StatusReporter) SetUploading(index, total int) {
	r.set(PhaseUploading, fmt.Sprintf("uploading %d of %d", index, total))
}

// SetFailed reports the step the run stopped at
func (r *StatusReporter) SetFailed(step string, err error) {
	r.set(PhaseFailed, fmt.Sprintf("failed at %s: %v", step, err))
}

// SetSucceeded reports a fully drained batch
func (r *StatusReporter) SetSucceeded(total int) {
	if total == 1 {
		r.set(PhaseSucceeded, "uploaded 1 asset")
		return
	}
	r.set(PhaseSucceeded, fmt.Sprintf("uploaded %d assets", total))
}

// Current returns the latest status line
func (r *StatusReporter) Current() StatusEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// History returns every status line since the session opened
func (r *StatusReporter) History() []StatusEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	history := make([]StatusEntry, len(r.history))
	copy(history, r.history)
	return history
}
