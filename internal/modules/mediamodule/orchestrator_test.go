package mediamodule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTarget records upload order and simulates progress and failures
type fakeTarget struct {
	mu          sync.Mutex
	uploaded    []string // asset IDs in call order
	failAtCall  int      // 1-based call index that fails; 0 never fails
	inFlight    int
	maxInFlight int
}

func (f *fakeTarget) Upload(ctx context.Context, task *UploadTask, progress ProgressFunc) (string, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.uploaded = append(f.uploaded, task.Asset.ID)
	call := len(f.uploaded)
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.failAtCall != 0 && call == f.failAtCall {
		return "", &UploadError{TaskID: task.ID, StatusCode: 502, Err: errors.New("store unavailable")}
	}

	total := int64(len(task.Asset.Data))
	if progress != nil {
		progress(total/2, total)
		progress(total, total)
	}

	return fmt.Sprintf("https://cdn.example.com/%s.webp", task.Asset.ID), nil
}

func TestOrchestrator_CompletesInEnqueueOrder(t *testing.T) {
	session := NewBatchSession(KindProduct, productProfile())
	fillSession(t, session, "a1", "a2", "a3")

	target := &fakeTarget{}
	orchestrator := NewOrchestrator(nil, nil)

	result, err := orchestrator.RunBatch(context.Background(), session, target)
	require.NoError(t, err)

	assert.Equal(t, ResultCompleted, result.Kind)
	assert.Equal(t, []string{"a1", "a2", "a3"}, target.uploaded)
	assert.Equal(t, []string{
		"https://cdn.example.com/a1.webp",
		"https://cdn.example.com/a2.webp",
		"https://cdn.example.com/a3.webp",
	}, result.HostedURLs)
	assert.Equal(t, StateCompleted, session.State())

	for _, task := range session.Tasks() {
		assert.Equal(t, TaskSucceeded, task.Status)
		assert.Equal(t, 100, task.Progress)
		assert.NotEmpty(t, task.HostedURL)
	}

	assert.Equal(t, PhaseSucceeded, session.Status().Current().Phase)
}

func TestOrchestrator_ExactlyOneInFlight(t *testing.T) {
	session := NewBatchSession(KindProduct, productProfile())
	fillSession(t, session, "a1", "a2", "a3", "a4")

	target := &fakeTarget{}
	orchestrator := NewOrchestrator(nil, nil)

	_, err := orchestrator.RunBatch(context.Background(), session, target)
	require.NoError(t, err)

	assert.Equal(t, 1, target.maxInFlight, "uploads must run strictly sequentially")
}

func TestOrchestrator_AbortsOnFirstFailure(t *testing.T) {
	session := NewBatchSession(KindProduct, productProfile())
	tasks := fillSession(t, session, "a1", "a2", "a3", "a4")

	target := &fakeTarget{failAtCall: 2}
	orchestrator := NewOrchestrator(nil, nil)

	result, err := orchestrator.RunBatch(context.Background(), session, target)
	require.NoError(t, err)

	assert.Equal(t, ResultAborted, result.Kind)
	assert.Equal(t, tasks[1].ID, result.FailedTaskID)

	var uploadErr *UploadError
	require.ErrorAs(t, result.Err, &uploadErr)
	assert.Equal(t, 502, uploadErr.StatusCode)

	// The failing task stops the run: later tasks never reach the target
	assert.Equal(t, []string{"a1", "a2"}, target.uploaded)

	snapshot := session.Tasks()
	assert.Equal(t, TaskSucceeded, snapshot[0].Status)
	assert.Equal(t, TaskFailed, snapshot[1].Status)
	assert.Equal(t, TaskQueued, snapshot[2].Status)
	assert.Equal(t, TaskQueued, snapshot[3].Status)

	assert.Equal(t, StateAborted, session.State())
	assert.Equal(t, PhaseFailed, session.Status().Current().Phase)
	assert.Contains(t, session.Status().Current().Message, "failed at upload 2 of 4")

	// The failed task's preview is revoked; the queued ones stay live
	assert.Equal(t, 3, session.Previews().Outstanding())
}

func TestOrchestrator_AbortedSessionRestarts(t *testing.T) {
	session := NewBatchSession(KindProduct, productProfile())
	fillSession(t, session, "a1", "a2")

	orchestrator := NewOrchestrator(nil, nil)

	_, err := orchestrator.RunBatch(context.Background(), session, &fakeTarget{failAtCall: 1})
	require.NoError(t, err)
	require.Equal(t, StateAborted, session.State())

	// An explicit restart reopens the queue; nothing retries on its own
	require.NoError(t, session.Restart())

	result, err := orchestrator.RunBatch(context.Background(), session, &fakeTarget{})
	require.NoError(t, err)
	assert.Equal(t, ResultCompleted, result.Kind)
}

func TestOrchestrator_EmptyQueue(t *testing.T) {
	session := NewBatchSession(KindProduct, productProfile())
	orchestrator := NewOrchestrator(nil, nil)

	_, err := orchestrator.RunBatch(context.Background(), session, &fakeTarget{})
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestOrchestrator_ConsumedSessionRejectsSecondRun(t *testing.T) {
	session := NewBatchSession(KindProduct, productProfile())
	fillSession(t, session, "a1")

	orchestrator := NewOrchestrator(nil, nil)
	_, err := orchestrator.RunBatch(context.Background(), session, &fakeTarget{})
	require.NoError(t, err)

	_, err = orchestrator.RunBatch(context.Background(), session, &fakeTarget{})
	assert.ErrorIs(t, err, ErrSessionConsumed)
}

func TestOrchestrator_ProgressReachesCompletion(t *testing.T) {
	session := NewBatchSession(KindProduct, productProfile())
	fillSession(t, session, "a1")

	orchestrator := NewOrchestrator(nil, nil)
	_, err := orchestrator.RunBatch(context.Background(), session, &fakeTarget{})
	require.NoError(t, err)

	task := session.Tasks()[0]
	assert.Equal(t, 100, task.Progress)
}
