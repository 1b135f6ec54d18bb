package mediamodule

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadableTask(id string) *UploadTask {
	return &UploadTask{
		ID:     "task-" + id,
		Asset:  testAsset(id),
		Status: TaskQueued,
	}
}

func TestHTTPUploadTarget_SendsMultipartForm(t *testing.T) {
	var gotFileName, gotPreset string
	var gotFileBytes []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()

		gotFileName = header.Filename
		gotFileBytes, _ = io.ReadAll(file)
		gotPreset = r.FormValue("upload_preset")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"secure_url": "https://cdn.example.com/a1.webp"}`))
	}))
	defer server.Close()

	target := NewHTTPUploadTarget(server.URL, "catalog_default", time.Minute)
	task := uploadableTask("a1")

	url, err := target.Upload(context.Background(), task, nil)
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/a1.webp", url)
	assert.Equal(t, "a1.webp", gotFileName)
	assert.Equal(t, task.Asset.Data, gotFileBytes)
	assert.Equal(t, "catalog_default", gotPreset)
}

func TestHTTPUploadTarget_AcceptsEitherURLField(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{"secure_url", `{"secure_url": "https://cdn.example.com/s.webp"}`, "https://cdn.example.com/s.webp"},
		{"url only", `{"url": "http://cdn.example.com/u.webp"}`, "http://cdn.example.com/u.webp"},
		{"secure_url preferred", `{"secure_url": "https://s", "url": "http://u"}`, "https://s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			target := NewHTTPUploadTarget(server.URL, "preset", time.Minute)
			url, err := target.Upload(context.Background(), uploadableTask("a1"), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, url)
		})
	}
}

func TestHTTPUploadTarget_MissingURLIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"public_id": "abc"}`))
	}))
	defer server.Close()

	target := NewHTTPUploadTarget(server.URL, "preset", time.Minute)
	_, err := target.Upload(context.Background(), uploadableTask("a1"), nil)

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
}

func TestHTTPUploadTarget_StoreErrorCarriesStatusCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	target := NewHTTPUploadTarget(server.URL, "preset", time.Minute)
	task := uploadableTask("a1")
	_, err := target.Upload(context.Background(), task, nil)

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, http.StatusTooManyRequests, uploadErr.StatusCode)
	assert.Equal(t, task.ID, uploadErr.TaskID)
}

func TestHTTPUploadTarget_ReportsProgress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"secure_url": "https://cdn.example.com/a1.webp"}`))
	}))
	defer server.Close()

	var lastSent, total int64
	progress := func(sent, totalBytes int64) {
		assert.GreaterOrEqual(t, sent, lastSent, "progress is monotonic")
		lastSent = sent
		total = totalBytes
	}

	target := NewHTTPUploadTarget(server.URL, "preset", time.Minute)
	_, err := target.Upload(context.Background(), uploadableTask("a1"), progress)
	require.NoError(t, err)

	assert.Equal(t, total, lastSent, "the final callback covers the whole body")
	assert.Greater(t, total, int64(0))
}

func TestUploadResponse_HostedURL(t *testing.T) {
	assert.Equal(t, "https://s", uploadResponse{SecureURL: "https://s", URL: "http://u"}.HostedURL())
	assert.Equal(t, "http://u", uploadResponse{URL: "http://u"}.HostedURL())
	assert.Equal(t, "", uploadResponse{}.HostedURL())
}
