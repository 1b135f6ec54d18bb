package mediamodule

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRouter(t *testing.T) (*gin.Engine, *Module) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	module := &Module{manager: NewManager(nil, nil)}
	router := gin.New()
	module.RegisterRoutes(router)
	return router, module
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func multipartUpload(t *testing.T, router *gin.Engine, path string, files map[string][]byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, data := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="files"; filename="`+name+`"`)
		if strings.HasSuffix(name, ".png") {
			header.Set("Content-Type", "image/png")
		} else {
			header.Set("Content-Type", "text/plain")
		}
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func openTestSession(t *testing.T, router *gin.Engine, kind string) string {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/media/sessions", gin.H{"kind": kind})
	require.Equal(t, http.StatusCreated, w.Code)
	return decodeBody(t, w)["id"].(string)
}

func TestRoutes_OpenSession(t *testing.T) {
	router, _ := testRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/media/sessions", gin.H{"kind": "product"})
	require.Equal(t, http.StatusCreated, w.Code)

	body := decodeBody(t, w)
	assert.NotEmpty(t, body["id"])
	assert.Equal(t, "product", body["kind"])
	assert.Equal(t, float64(4), body["max_items"])
	assert.Equal(t, "idle", body["state"])
}

func TestRoutes_OpenSessionRejectsUnknownKind(t *testing.T) {
	router, _ := testRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/media/sessions", gin.H{"kind": "poster"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/media/sessions", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoutes_IngestAndInspect(t *testing.T) {
	router, _ := testRouter(t)
	sessionID := openTestSession(t, router, "product")

	w := multipartUpload(t, router, "/api/media/sessions/"+sessionID+"/files", map[string][]byte{
		"photo.png": makePNG(t, 900, 600),
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	outcomes := body["outcomes"].([]interface{})
	require.Len(t, outcomes, 1)
	assert.NotEmpty(t, outcomes[0].(map[string]interface{})["task_id"])

	w = doJSON(t, router, http.MethodGet, "/api/media/sessions/"+sessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	session := decodeBody(t, w)
	tasks := session["tasks"].([]interface{})
	require.Len(t, tasks, 1)
	task := tasks[0].(map[string]interface{})
	assert.Equal(t, "photo.webp", task["name"])
	assert.Equal(t, "queued", task["status"])
	assert.NotEmpty(t, task["preview_handle"])
}

func TestRoutes_PreviewRender(t *testing.T) {
	router, _ := testRouter(t)
	sessionID := openTestSession(t, router, "banner")

	w := multipartUpload(t, router, "/api/media/sessions/"+sessionID+"/files", map[string][]byte{
		"hero.png": makePNG(t, 1600, 900),
	})
	require.Equal(t, http.StatusOK, w.Code)

	session := decodeBody(t, w)["session"].(map[string]interface{})
	task := session["tasks"].([]interface{})[0].(map[string]interface{})
	handleID := task["preview_handle"].(string)

	req := httptest.NewRequest(http.MethodGet, "/api/media/sessions/"+sessionID+"/previews/"+handleID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/webp", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Body.Bytes())
}

func TestRoutes_RemoveTask(t *testing.T) {
	router, module := testRouter(t)
	sessionID := openTestSession(t, router, "product")

	w := multipartUpload(t, router, "/api/media/sessions/"+sessionID+"/files", map[string][]byte{
		"a.png": makePNG(t, 100, 100),
	})
	require.Equal(t, http.StatusOK, w.Code)

	session, _ := module.manager.GetSession(sessionID)
	taskID := session.Tasks()[0].ID

	w = doJSON(t, router, http.MethodDelete, "/api/media/sessions/"+sessionID+"/tasks/"+taskID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, session.TaskCount())

	w = doJSON(t, router, http.MethodDelete, "/api/media/sessions/"+sessionID+"/tasks/"+taskID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoutes_UploadBlockedByGate(t *testing.T) {
	router, _ := testRouter(t)
	sessionID := openTestSession(t, router, "product")

	// Empty queue: the gate blocks before any network activity
	w := doJSON(t, router, http.MethodPost, "/api/media/sessions/"+sessionID+"/upload", gin.H{
		"fields":          gin.H{"name": "Lamp"},
		"required_fields": []string{"name", "price"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["empty_queue"])
	missing := body["missing_fields"].([]interface{})
	assert.Contains(t, missing, "price")
}

func TestRoutes_DiscardSession(t *testing.T) {
	router, module := testRouter(t)
	sessionID := openTestSession(t, router, "bundle")

	w := multipartUpload(t, router, "/api/media/sessions/"+sessionID+"/files", map[string][]byte{
		"cover.png": makePNG(t, 500, 500),
	})
	require.Equal(t, http.StatusOK, w.Code)

	session, _ := module.manager.GetSession(sessionID)
	require.Equal(t, 1, session.Previews().Outstanding())

	w = doJSON(t, router, http.MethodDelete, "/api/media/sessions/"+sessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Teardown revoked the outstanding handle and dropped the session
	assert.Equal(t, 0, session.Previews().Outstanding())
	w = doJSON(t, router, http.MethodGet, "/api/media/sessions/"+sessionID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoutes_SessionNotFound(t *testing.T) {
	router, _ := testRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/media/sessions/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/media/sessions/nope/upload", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
