package mediamodule

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCapacityExceeded is returned when an enqueue would push a batch
	// past its item limit. Rejected inputs are never transcoded and never
	// get a preview handle.
	ErrCapacityExceeded = errors.New("batch capacity exceeded")

	// ErrPreviewExists is returned when a second preview is requested for
	// the same asset
	ErrPreviewExists = errors.New("preview already created for asset")

	// ErrHandleRevoked is returned on a second revoke of the same handle
	ErrHandleRevoked = errors.New("preview handle already revoked")

	// ErrUnknownHandle is returned when a handle was never issued by this
	// registry
	ErrUnknownHandle = errors.New("unknown preview handle")

	// ErrSessionConsumed is returned when a session that already entered
	// its upload phase (or a terminal state) is mutated
	ErrSessionConsumed = errors.New("batch session already consumed")

	// ErrSessionNotAborted is returned when restarting a session that is
	// not in the aborted state
	ErrSessionNotAborted = errors.New("batch session is not aborted")

	// ErrEmptyBatch is returned when an upload run is started on a session
	// with no queued tasks
	ErrEmptyBatch = errors.New("batch session has no tasks")

	// ErrTaskNotFound is returned when a task ID is not present in the
	// session
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskNotRemovable is returned when removing a task that already
	// left the queued state
	ErrTaskNotRemovable = errors.New("only queued tasks can be removed")

	// ErrUnsupportedMediaType is returned for inputs outside the accepted
	// media-type filter
	ErrUnsupportedMediaType = errors.New("unsupported media type")
)

// DecodeError reports a raw input that could not be decoded as an image.
// It is scoped to one file and does not affect siblings in the same
// selection.
type DecodeError struct {
	Name string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.Name, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeError reports a resample/re-encode failure for one file
type EncodeError struct {
	Name string
	Err  error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("failed to encode %s: %v", e.Name, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// UploadError reports a failed upload attempt. StatusCode is zero for
// transport-level failures.
type UploadError struct {
	TaskID     string
	StatusCode int
	Err        error
}

func (e *UploadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upload failed with status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upload failed: %v", e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// ValidationError reports why a submission was blocked by the gate
type ValidationError struct {
	Missing    []string
	EmptyQueue bool
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing required fields: %s", strings.Join(e.Missing, ", ")))
	}
	if e.EmptyQueue {
		parts = append(parts, "no assets queued")
	}
	if len(parts) == 0 {
		return "validation failed"
	}
	return strings.Join(parts, "; ")
}
