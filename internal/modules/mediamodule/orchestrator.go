package mediamodule

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/merchly/catalogmedia/internal/events"
)

// Orchestrator drains a batch session to an upload target. Uploads run
// strictly sequentially in enqueue order with exactly one in flight;
// the first failure aborts the run and leaves the remaining tasks
// queued. There is no automatic retry and no compensating delete of
// already-uploaded objects - those are flagged as orphaned in the
// audit trail instead.
type Orchestrator struct {
	eventBus events.EventBus
	recorder *Recorder
	logger   hclog.Logger
}

// NewOrchestrator creates an orchestrator. The event bus and recorder
// may be nil, in which case events and audit rows are skipped.
func NewOrchestrator(eventBus events.EventBus, recorder *Recorder) *Orchestrator {
	return &Orchestrator{
		eventBus: eventBus,
		recorder: recorder,
		logger: hclog.New(&hclog.LoggerOptions{
			Name:  "upload-orchestrator",
			Level: hclog.Info,
		}),
	}
}

// RunBatch uploads every queued task of the session in order and
// returns the outcome. The session is consumed: on completion it is
// terminal, on abort it can only be restarted explicitly.
func (o *Orchestrator) RunBatch(ctx context.Context, session *BatchSession, target UploadTarget) (*BatchResult, error) {
	tasks, err := session.beginUpload()
	if err != nil {
		return nil, err
	}

	total := len(tasks)
	o.logger.Info("starting batch upload",
		"session_id", session.ID,
		"kind", string(session.Kind),
		"tasks", total,
	)

	hostedURLs := make([]string, 0, total)

	for i, task := range tasks {
		session.setTaskUploading(task)
		session.Status().SetUploading(i+1, total)
		o.publishTaskEvent(events.EventUploadStarted, session, task, i, total, "upload started")

		url, err := o.uploadTask(ctx, session, target, task, i, total)
		if err != nil {
			reason := err.Error()
			session.setTaskFailed(task, reason)
			session.Status().SetFailed(fmt.Sprintf("upload %d of %d", i+1, total), err)
			session.finish(ResultAborted)

			o.logger.Error("batch upload aborted",
				"session_id", session.ID,
				"task_id", task.ID,
				"task_index", i+1,
				"error", err,
			)
			o.publishTaskEvent(events.EventUploadFailed, session, task, i, total, reason)
			o.publishBatchEvent(events.EventBatchAborted, session, total, len(hostedURLs), task.ID)

			if o.recorder != nil {
				// Objects uploaded before the failure stay on the
				// remote store; mark them so operators can reap them.
				o.recorder.MarkSessionOrphaned(session.ID)
				o.recorder.RecordBatch(session, StateAborted, task.ID)
			}

			return &BatchResult{
				Kind:         ResultAborted,
				Tasks:        session.Tasks(),
				FailedTaskID: task.ID,
				Err:          err,
			}, nil
		}

		session.setTaskSucceeded(task, url)
		o.publishTaskEvent(events.EventUploadSucceeded, session, task, i, total, url)
		if o.recorder != nil {
			o.recorder.RecordUpload(session, task)
		}
		hostedURLs = append(hostedURLs, url)
	}

	session.Status().SetSucceeded(total)
	session.finish(ResultCompleted)

	o.logger.Info("batch upload completed",
		"session_id", session.ID,
		"tasks", total,
	)
	o.publishBatchEvent(events.EventBatchCompleted, session, total, total, "")
	if o.recorder != nil {
		o.recorder.RecordBatch(session, StateCompleted, "")
	}

	return &BatchResult{
		Kind:       ResultCompleted,
		HostedURLs: hostedURLs,
		Tasks:      session.Tasks(),
	}, nil
}

// uploadTask uploads one task, wiring byte progress into the session
// and onto the event bus
func (o *Orchestrator) uploadTask(ctx context.Context, session *BatchSession, target UploadTarget, task *UploadTask, index, total int) (string, error) {
	lastPercent := -1
	progress := func(sent, totalBytes int64) {
		percent := 0
		if totalBytes > 0 {
			percent = int(sent * 100 / totalBytes)
		}
		if percent == lastPercent {
			return
		}
		lastPercent = percent
		session.setTaskProgress(task, percent)

		if o.eventBus != nil {
			event := events.NewSessionEvent(events.EventUploadProgress, session.ID, task.Asset.Name, "upload progress")
			event.Data = map[string]interface{}{
				"session_id":  session.ID,
				"task_id":     task.ID,
				"percent":     percent,
				"bytes_sent":  sent,
				"bytes_total": totalBytes,
				"task_index":  index + 1,
				"task_count":  total,
			}
			o.eventBus.PublishAsync(event)
		}
	}

	return target.Upload(ctx, task, progress)
}

func (o *Orchestrator) publishTaskEvent(eventType events.EventType, session *BatchSession, task *UploadTask, index, total int, message string) {
	if o.eventBus == nil {
		return
	}
	event := events.NewSessionEvent(eventType, session.ID, task.Asset.Name, message)
	event.Data = map[string]interface{}{
		"session_id": session.ID,
		"task_id":    task.ID,
		"task_index": index + 1,
		"task_count": total,
	}
	o.eventBus.PublishAsync(event)
}

func (o *Orchestrator) publishBatchEvent(eventType events.EventType, session *BatchSession, total, succeeded int, failedTaskID string) {
	if o.eventBus == nil {
		return
	}
	event := events.NewSessionEvent(eventType, session.ID, string(session.Kind), "batch finished")
	event.Data = map[string]interface{}{
		"session_id":     session.ID,
		"kind":           string(session.Kind),
		"task_count":     total,
		"succeeded":      succeeded,
		"failed_task_id": failedTaskID,
	}
	o.eventBus.PublishAsync(event)
}
