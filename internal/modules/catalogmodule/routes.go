package catalogmodule

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/merchly/catalogmedia/internal/logger"
	"github.com/merchly/catalogmedia/internal/modules/mediamodule"
)

// Required form fields per submission screen. Description and category
// are optional on all screens; the create-API applies its own defaults.
var (
	bannerRequiredFields  = []string{"title"}
	productRequiredFields = []string{"name", "price"}
	bundleRequiredFields  = []string{"name", "price"}
)

// bannerSubmission is the admin banner screen's submit payload
type bannerSubmission struct {
	SessionID string `json:"session_id" binding:"required"`
	Title     string `json:"title"`
	Link      string `json:"link"`
	Badge     string `json:"badge"`
}

// productSubmission is the admin product screen's submit payload
type productSubmission struct {
	SessionID   string `json:"session_id" binding:"required"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Category    string `json:"category"`
	Tag         string `json:"tag"`
}

// bundleSubmission is the admin bundle screen's submit payload.
// ProductImageURLs are the already-hosted per-product images of the
// bundled products; they pass through to the create-API unchanged.
type bundleSubmission struct {
	SessionID        string   `json:"session_id" binding:"required"`
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	Price            string   `json:"price"`
	Tag              string   `json:"tag"`
	ProductImageURLs []string `json:"product_image_urls"`
}

// createBannerHandler handles POST /api/catalog/banners
func (m *Module) createBannerHandler(c *gin.Context) {
	var req bannerSubmission
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	fields := map[string]string{"title": req.Title}
	m.submit(c, mediamodule.KindBanner, req.SessionID, bannerRequiredFields, fields,
		func(urls []string) (string, error) {
			return m.client.CreateBanner(c.Request.Context(), BannerCreateRequest{
				Title:    req.Title,
				ImageURL: urls[0],
				Link:     optional(req.Link),
				Badge:    optional(req.Badge),
			})
		})
}

// createProductHandler handles POST /api/catalog/products
func (m *Module) createProductHandler(c *gin.Context) {
	var req productSubmission
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	fields := map[string]string{"name": req.Name, "price": req.Price}
	m.submit(c, mediamodule.KindProduct, req.SessionID, productRequiredFields, fields,
		func(urls []string) (string, error) {
			return m.client.CreateProduct(c.Request.Context(), ProductCreateRequest{
				Name:        req.Name,
				Description: req.Description,
				Price:       req.Price,
				Category:    req.Category,
				Images:      urls,
				Tag:         optional(req.Tag),
			})
		})
}

// createBundleHandler handles POST /api/catalog/bundles
func (m *Module) createBundleHandler(c *gin.Context) {
	var req bundleSubmission
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	fields := map[string]string{"name": req.Name, "price": req.Price}
	m.submit(c, mediamodule.KindBundle, req.SessionID, bundleRequiredFields, fields,
		func(urls []string) (string, error) {
			return m.client.CreateBundle(c.Request.Context(), BundleCreateRequest{
				Name:             req.Name,
				Description:      req.Description,
				Price:            req.Price,
				ImageURL:         urls[0],
				ProductImageURLs: req.ProductImageURLs,
				Tag:              optional(req.Tag),
			})
		})
}

// submit is the shared submission flow of all three screens: gate check
// first (no network before validation passes), then the sequential
// batch upload, then the create-API call. An aborted batch leaves the
// session alive for an explicit restart; a create failure ends the
// session and flags the already-hosted images as orphaned.
func (m *Module) submit(c *gin.Context, kind mediamodule.EntityKind, sessionID string, required []string, fields map[string]string, create func(urls []string) (string, error)) {
	manager, err := mediamodule.GetManager()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	session, ok := manager.GetSession(sessionID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if session.Kind != kind {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session kind mismatch"})
		return
	}

	gate := mediamodule.NewSubmissionGate(required)
	if verr := gate.CanSubmit(fields, session); verr != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":          verr.Error(),
			"missing_fields": verr.Missing,
			"empty_queue":    verr.EmptyQueue,
		})
		return
	}

	result, err := manager.RunBatch(c.Request.Context(), session)
	switch {
	case errors.Is(err, mediamodule.ErrEmptyBatch):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	case errors.Is(err, mediamodule.ErrSessionConsumed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if result.Kind == mediamodule.ResultAborted {
		response := gin.H{
			"result":         "upload_aborted",
			"failed_task_id": result.FailedTaskID,
		}
		if result.Err != nil {
			response["error"] = result.Err.Error()
		}
		c.JSON(http.StatusBadGateway, response)
		return
	}

	id, err := create(result.HostedURLs)
	if err != nil {
		logger.Error("Create failed for %s session %s: %v", kind, sessionID, err)
		// The images are already hosted; the record is not created.
		manager.Recorder().MarkSessionOrphaned(sessionID)
		if derr := manager.DiscardSession(sessionID); derr != nil {
			logger.Warn("Failed to discard session %s after create failure: %v", sessionID, derr)
		}

		status := http.StatusBadGateway
		var createErr *CreateError
		if errors.As(err, &createErr) && createErr.StatusCode >= 400 && createErr.StatusCode < 500 {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{
			"error":       err.Error(),
			"result":      "create_failed",
			"hosted_urls": result.HostedURLs,
		})
		return
	}

	if err := manager.DiscardSession(sessionID); err != nil {
		logger.Warn("Failed to discard session %s after create: %v", sessionID, err)
	}

	c.JSON(http.StatusCreated, gin.H{
		"result":      "created",
		"id":          id,
		"hosted_urls": result.HostedURLs,
	})
}
