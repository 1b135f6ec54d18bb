package mediamodule

// EntityKind identifies which admin screen a batch session belongs to.
// Each kind carries its own transcoding profile (width bound, quality,
// batch capacity).
type EntityKind string

const (
	KindBanner  EntityKind = "banner"
	KindProduct EntityKind = "product"
	KindBundle  EntityKind = "bundle"
)

// TaskStatus represents the upload state of a single queued asset
type TaskStatus string

const (
	TaskQueued    TaskStatus = "queued"
	TaskUploading TaskStatus = "uploading"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
)

// BatchState represents the lifecycle state of a batch session
type BatchState string

const (
	StateIdle       BatchState = "idle"
	StatePopulating BatchState = "populating"
	StateUploading  BatchState = "uploading"
	StateCompleted  BatchState = "completed"
	StateAborted    BatchState = "aborted"
	StateDiscarded  BatchState = "discarded"
)

// RawImage is an unprocessed file as handed over by the admin UI
type RawImage struct {
	Name     string
	MimeType string
	Data     []byte
}

// Size returns the byte size of the raw input
func (r RawImage) Size() int64 {
	return int64(len(r.Data))
}

// TranscodedAsset is the web-optimized output of one transcode.
// Immutable once created; exactly one preview handle may be associated
// with it while it sits in a batch queue.
type TranscodedAsset struct {
	ID               string
	Name             string // original name with the extension replaced
	MimeType         string
	Data             []byte
	OriginalSize     int64
	Size             int64
	Width            int
	Height           int
	CompressionRatio float64 // 1 - compressed/original; negative when the input grew
}

// PreviewHandle is a revocable in-process reference that lets the admin
// UI render an asset without a network round trip. Every handle must be
// revoked exactly once.
type PreviewHandle struct {
	ID      string
	AssetID string
}

// UploadTask wraps one transcoded asset with its mutable upload state.
// Mutations go through the owning BatchSession so readers on other
// goroutines (status endpoint, websocket) see consistent state.
type UploadTask struct {
	ID            string
	Asset         *TranscodedAsset
	Preview       *PreviewHandle
	Status        TaskStatus
	Progress      int // percent, 0-100
	HostedURL     string
	FailureReason string
}

// ResultKind classifies the outcome of a batch upload run
type ResultKind string

const (
	ResultCompleted ResultKind = "completed"
	ResultAborted   ResultKind = "aborted"
)

// BatchResult is the outcome of draining a batch session to the object
// store. On Aborted, Tasks holds the full snapshot: the tasks before the
// failure are Succeeded, the failing one Failed, the rest still Queued.
type BatchResult struct {
	Kind         ResultKind
	HostedURLs   []string // in enqueue order; only set when Completed
	Tasks        []*UploadTask
	FailedTaskID string
	Err          error
}
