package mediamodule

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/merchly/catalogmedia/internal/config"
)

// BatchSession is the ordered, capacity-bounded collection of upload
// tasks backing one submission screen. It owns its tasks and their
// preview handles; upload order is insertion order, never reordered.
//
// State machine: idle -> populating (enqueue/remove cycles) ->
// uploading -> completed | aborted. Aborted returns to populating only
// through an explicit Restart. Discard is the teardown path from any
// state and revokes every outstanding preview handle.
type BatchSession struct {
	ID        string
	Kind      EntityKind
	Profile   config.Profile
	CreatedAt time.Time

	mu       sync.Mutex
	state    BatchState
	tasks    []*UploadTask
	previews *PreviewRegistry
	status   *StatusReporter
}

// NewBatchSession creates an empty session for one entity kind
func NewBatchSession(kind EntityKind, profile config.Profile) *BatchSession {
	return &BatchSession{
		ID:        uuid.NewString(),
		Kind:      kind,
		Profile:   profile,
		CreatedAt: time.Now(),
		state:     StateIdle,
		previews:  NewPreviewRegistry(),
		status:    NewStatusReporter(),
	}
}

// State returns the current lifecycle state
func (s *BatchSession) State() BatchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Previews returns the session's preview registry
func (s *BatchSession) Previews() *PreviewRegistry {
	return s.previews
}

// Status returns the session's status reporter
func (s *BatchSession) Status() *StatusReporter {
	return s.status
}

// RemainingCapacity returns how many more assets the session accepts
func (s *BatchSession) RemainingCapacity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Profile.MaxItems - len(s.tasks)
}

// Enqueue appends a transcoded asset as a queued upload task. The
// capacity check happens before a preview handle is created, so a
// rejected asset never holds one.
func (s *BatchSession) Enqueue(asset *TranscodedAsset) (*UploadTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle && s.state != StatePopulating {
		return nil, ErrSessionConsumed
	}
	if len(s.tasks) >= s.Profile.MaxItems {
		return nil, ErrCapacityExceeded
	}

	handle, err := s.previews.CreatePreview(asset)
	if err != nil {
		return nil, err
	}

	task := &UploadTask{
		ID:      uuid.NewString(),
		Asset:   asset,
		Preview: handle,
		Status:  TaskQueued,
	}
	s.tasks = append(s.tasks, task)
	s.state = StatePopulating

	return task, nil
}

// Remove drops a queued task, revokes its preview handle and preserves
// the relative order of the remaining tasks
func (s *BatchSession) Remove(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePopulating {
		return ErrSessionConsumed
	}

	for i, task := range s.tasks {
		if task.ID != taskID {
			continue
		}
		if task.Status != TaskQueued {
			return ErrTaskNotRemovable
		}
		if err := s.previews.Revoke(task.Preview); err != nil {
			return fmt.Errorf("failed to revoke preview for task %s: %w", taskID, err)
		}
		s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
		return nil
	}

	return ErrTaskNotFound
}

// Tasks returns a snapshot of the tasks in enqueue order
func (s *BatchSession) Tasks() []*UploadTask {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := make([]*UploadTask, len(s.tasks))
	copy(tasks, s.tasks)
	return tasks
}

// TaskCount returns the number of queued tasks
func (s *BatchSession) TaskCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Restart returns an aborted session to the populating state for an
// explicit user-driven retry. There is no automatic retry.
func (s *BatchSession) Restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAborted {
		return ErrSessionNotAborted
	}
	s.state = StatePopulating
	s.status.SetPreparing()
	return nil
}

// Discard tears the session down: every outstanding preview handle is
// revoked, including those of already-succeeded tasks. Terminal.
func (s *BatchSession) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.previews.RevokeAll()
	s.state = StateDiscarded
}

// beginUpload transitions the session into its upload phase and returns
// the task order the orchestrator must follow
func (s *BatchSession) beginUpload() ([]*UploadTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle && s.state != StatePopulating {
		return nil, ErrSessionConsumed
	}
	if len(s.tasks) == 0 {
		return nil, ErrEmptyBatch
	}

	s.state = StateUploading

	tasks := make([]*UploadTask, len(s.tasks))
	copy(tasks, s.tasks)
	return tasks, nil
}

// finish records the terminal outcome of the upload phase
func (s *BatchSession) finish(kind ResultKind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if kind == ResultCompleted {
		s.state = StateCompleted
	} else {
		s.state = StateAborted
	}
}

// setTaskUploading marks a task as the in-flight upload
func (s *BatchSession) setTaskUploading(task *UploadTask) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task.Status = TaskUploading
	task.Progress = 0
}

// setTaskProgress records upload progress for a task
func (s *BatchSession) setTaskProgress(task *UploadTask, percent int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	task.Progress = percent
}

// setTaskSucceeded records a finished upload and its hosted URL
func (s *BatchSession) setTaskSucceeded(task *UploadTask, hostedURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task.Status = TaskSucceeded
	task.Progress = 100
	task.HostedURL = hostedURL
}

// setTaskFailed records the failing task and revokes its preview: a
// failed task's asset is no longer previewable or re-uploadable.
func (s *BatchSession) setTaskFailed(task *UploadTask, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task.Status = TaskFailed
	task.FailureReason = reason
	// Best effort: the handle may already be gone if the session was
	// discarded concurrently.
	_ = s.previews.Revoke(task.Preview)
}
