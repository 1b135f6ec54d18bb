package catalogmodule

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Client talks to the downstream catalog create-API. One method per
// entity kind; each posts a JSON payload and returns the created
// record's ID when the API reports one.
type Client struct {
	baseURL string
	client  *http.Client
	logger  hclog.Logger
}

// NewClient creates a create-API client
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger: hclog.New(&hclog.LoggerOptions{
			Name:  "catalog-client",
			Level: hclog.Info,
		}),
	}
}

// createResponse is the subset of the create-API reply we use
type createResponse struct {
	ID string `json:"id"`
}

// CreateBanner creates a banner record
func (c *Client) CreateBanner(ctx context.Context, req BannerCreateRequest) (string, error) {
	return c.post(ctx, "banner", "/banners", req)
}

// CreateProduct creates a product record
func (c *Client) CreateProduct(ctx context.Context, req ProductCreateRequest) (string, error) {
	return c.post(ctx, "product", "/products", req)
}

// CreateBundle creates a bundle record
func (c *Client) CreateBundle(ctx context.Context, req BundleCreateRequest) (string, error) {
	return c.post(ctx, "bundle", "/bundles", req)
}

func (c *Client) post(ctx context.Context, entity, path string, payload interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", &CreateError{Entity: entity, Err: fmt.Errorf("failed to encode payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", &CreateError{Entity: entity, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &CreateError{Entity: entity, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &CreateError{Entity: entity, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("create rejected",
			"entity", entity,
			"status", resp.StatusCode,
		)
		return "", &CreateError{
			Entity:     entity,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("api returned %s", resp.Status),
		}
	}

	var parsed createResponse
	if len(respBody) > 0 {
		// A missing or unparseable ID is not a failure: the record was
		// created.
		_ = json.Unmarshal(respBody, &parsed)
	}

	return parsed.ID, nil
}
