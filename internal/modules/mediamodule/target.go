package mediamodule

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
)

// ProgressFunc receives byte-level progress while a task's body is
// being written to the wire
type ProgressFunc func(bytesSent, bytesTotal int64)

// UploadTarget is the destination object store for transcoded assets.
// Implementations upload exactly one asset per call and return the
// publicly reachable URL of the stored object.
type UploadTarget interface {
	Upload(ctx context.Context, task *UploadTask, progress ProgressFunc) (string, error)
}

// uploadResponse is the subset of the store's JSON reply we care about.
// Newer deployments return secure_url, older ones only url.
type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	URL       string `json:"url"`
}

// HostedURL returns the preferred URL from the response, or empty if
// the store sent neither field
func (r uploadResponse) HostedURL() string {
	if r.SecureURL != "" {
		return r.SecureURL
	}
	return r.URL
}

// HTTPUploadTarget uploads assets to an unsigned multipart ingest
// endpoint, the shape used by Cloudinary-style preset uploads.
type HTTPUploadTarget struct {
	endpoint string
	preset   string
	client   *http.Client
	logger   hclog.Logger
}

// NewHTTPUploadTarget creates a target for the given ingest endpoint
// and upload preset
func NewHTTPUploadTarget(endpoint, preset string, timeout time.Duration) *HTTPUploadTarget {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &HTTPUploadTarget{
		endpoint: endpoint,
		preset:   preset,
		client:   &http.Client{Timeout: timeout},
		logger: hclog.New(&hclog.LoggerOptions{
			Name:  "upload-target",
			Level: hclog.Info,
		}),
	}
}

// Upload sends one asset as a multipart form and parses the hosted URL
// out of the JSON response. The body is fully buffered before sending
// so progress reflects actual bytes on the wire, not form assembly.
func (t *HTTPUploadTarget) Upload(ctx context.Context, task *UploadTask, progress ProgressFunc) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", task.Asset.Name)
	if err != nil {
		return "", &UploadError{TaskID: task.ID, Err: fmt.Errorf("failed to create form file: %w", err)}
	}
	if _, err := part.Write(task.Asset.Data); err != nil {
		return "", &UploadError{TaskID: task.ID, Err: fmt.Errorf("failed to write asset data: %w", err)}
	}
	if err := writer.WriteField("upload_preset", t.preset); err != nil {
		return "", &UploadError{TaskID: task.ID, Err: fmt.Errorf("failed to write preset field: %w", err)}
	}
	if err := writer.Close(); err != nil {
		return "", &UploadError{TaskID: task.ID, Err: fmt.Errorf("failed to finalize form: %w", err)}
	}

	total := int64(body.Len())
	reader := &progressReader{
		reader:   &body,
		total:    total,
		progress: progress,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, reader)
	if err != nil {
		return "", &UploadError{TaskID: task.ID, Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.ContentLength = total

	resp, err := t.client.Do(req)
	if err != nil {
		return "", &UploadError{TaskID: task.ID, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &UploadError{TaskID: task.ID, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		t.logger.Warn("upload rejected by store",
			"task_id", task.ID,
			"status", resp.StatusCode,
		)
		return "", &UploadError{
			TaskID:     task.ID,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("store returned %s", resp.Status),
		}
	}

	var parsed uploadResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &UploadError{TaskID: task.ID, StatusCode: resp.StatusCode, Err: fmt.Errorf("invalid response body: %w", err)}
	}

	url := parsed.HostedURL()
	if url == "" {
		return "", &UploadError{TaskID: task.ID, StatusCode: resp.StatusCode, Err: fmt.Errorf("response contains no hosted URL")}
	}

	return url, nil
}

// progressReader reports cumulative bytes read from the wrapped reader
type progressReader struct {
	reader   io.Reader
	total    int64
	sent     int64
	progress ProgressFunc
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.sent += int64(n)
		if r.progress != nil {
			r.progress(r.sent, r.total)
		}
	}
	return n, err
}
