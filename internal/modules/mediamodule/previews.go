package mediamodule

import (
	"sync"

	"github.com/google/uuid"
)

// PreviewRegistry tracks the in-memory preview handles of one batch
// session. Handles are a scarce, explicitly-released resource: each
// asset gets at most one, and each handle must be revoked exactly once.
// Double revokes and leaked handles are bugs the registry surfaces.
type PreviewRegistry struct {
	mu      sync.Mutex
	data    map[string][]byte // handle ID -> asset bytes
	byAsset map[string]string // asset ID -> handle ID
	created int
	revoked int
}

// NewPreviewRegistry creates an empty registry
func NewPreviewRegistry() *PreviewRegistry {
	return &PreviewRegistry{
		data:    make(map[string][]byte),
		byAsset: make(map[string]string),
	}
}

// CreatePreview issues a preview handle for the asset. At most one
// handle may exist per asset.
func (r *PreviewRegistry) CreatePreview(asset *TranscodedAsset) (*PreviewHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byAsset[asset.ID]; exists {
		return nil, ErrPreviewExists
	}

	handle := &PreviewHandle{
		ID:      uuid.NewString(),
		AssetID: asset.ID,
	}
	r.data[handle.ID] = asset.Data
	r.byAsset[asset.ID] = handle.ID
	r.created++

	return handle, nil
}

// Render returns the asset bytes behind a live handle so the caller can
// display the image without a network fetch
func (r *PreviewRegistry) Render(handle *PreviewHandle) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, ok := r.data[handle.ID]
	if !ok {
		return nil, ErrUnknownHandle
	}
	return data, nil
}

// Revoke releases a handle. Revoking twice is an error, not a no-op:
// the second call indicates a lifecycle bug in the caller.
func (r *PreviewRegistry) Revoke(handle *PreviewHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.revokeLocked(handle)
}

func (r *PreviewRegistry) revokeLocked(handle *PreviewHandle) error {
	if handle == nil {
		return ErrUnknownHandle
	}
	if _, ok := r.data[handle.ID]; !ok {
		return ErrHandleRevoked
	}

	delete(r.data, handle.ID)
	delete(r.byAsset, handle.AssetID)
	r.revoked++
	return nil
}

// RevokeAll releases every outstanding handle and returns how many were
// released. Used on session teardown.
func (r *PreviewRegistry) RevokeAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	released := len(r.data)
	r.revoked += released
	r.data = make(map[string][]byte)
	r.byAsset = make(map[string]string)
	return released
}

// Outstanding returns the number of live handles
func (r *PreviewRegistry) Outstanding() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}

// CreatedCount returns the total number of handles ever issued
func (r *PreviewRegistry) CreatedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.created
}

// RevokedCount returns the total number of revoke calls that released a
// handle
func (r *PreviewRegistry) RevokedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revoked
}
