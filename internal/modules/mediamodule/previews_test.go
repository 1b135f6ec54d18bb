package mediamodule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAsset(id string) *TranscodedAsset {
	return &TranscodedAsset{
		ID:       id,
		Name:     id + ".webp",
		MimeType: "image/webp",
		Data:     []byte("webp-bytes-" + id),
	}
}

func TestPreviewRegistry_CreateAndRender(t *testing.T) {
	registry := NewPreviewRegistry()
	asset := testAsset("a1")

	handle, err := registry.CreatePreview(asset)
	require.NoError(t, err)
	require.NotNil(t, handle)
	assert.Equal(t, asset.ID, handle.AssetID)

	data, err := registry.Render(handle)
	require.NoError(t, err)
	assert.Equal(t, asset.Data, data)
}

func TestPreviewRegistry_OneHandlePerAsset(t *testing.T) {
	registry := NewPreviewRegistry()
	asset := testAsset("a1")

	_, err := registry.CreatePreview(asset)
	require.NoError(t, err)

	_, err = registry.CreatePreview(asset)
	assert.ErrorIs(t, err, ErrPreviewExists)
}

func TestPreviewRegistry_RevokeExactlyOnce(t *testing.T) {
	registry := NewPreviewRegistry()
	handle, err := registry.CreatePreview(testAsset("a1"))
	require.NoError(t, err)

	require.NoError(t, registry.Revoke(handle))

	// The second revoke is a lifecycle bug, not a no-op
	assert.ErrorIs(t, registry.Revoke(handle), ErrHandleRevoked)

	_, err = registry.Render(handle)
	assert.ErrorIs(t, err, ErrUnknownHandle)
}

func TestPreviewRegistry_RevokeUnknownHandle(t *testing.T) {
	registry := NewPreviewRegistry()

	assert.ErrorIs(t, registry.Revoke(&PreviewHandle{ID: "never-issued"}), ErrHandleRevoked)
	assert.ErrorIs(t, registry.Revoke(nil), ErrUnknownHandle)
}

func TestPreviewRegistry_ReissueAfterRevoke(t *testing.T) {
	registry := NewPreviewRegistry()
	asset := testAsset("a1")

	handle, err := registry.CreatePreview(asset)
	require.NoError(t, err)
	require.NoError(t, registry.Revoke(handle))

	// Once released, the asset may get a fresh handle
	fresh, err := registry.CreatePreview(asset)
	require.NoError(t, err)
	assert.NotEqual(t, handle.ID, fresh.ID)
}

func TestPreviewRegistry_RevokeAll(t *testing.T) {
	registry := NewPreviewRegistry()
	for _, id := range []string{"a1", "a2", "a3"} {
		_, err := registry.CreatePreview(testAsset(id))
		require.NoError(t, err)
	}

	assert.Equal(t, 3, registry.Outstanding())
	assert.Equal(t, 3, registry.RevokeAll())
	assert.Equal(t, 0, registry.Outstanding())

	// Construction and destruction must pair up over the session
	assert.Equal(t, registry.CreatedCount(), registry.RevokedCount())
}

func TestPreviewRegistry_NoLeakAccounting(t *testing.T) {
	registry := NewPreviewRegistry()

	h1, err := registry.CreatePreview(testAsset("a1"))
	require.NoError(t, err)
	_, err = registry.CreatePreview(testAsset("a2"))
	require.NoError(t, err)

	require.NoError(t, registry.Revoke(h1))

	assert.Equal(t, 2, registry.CreatedCount())
	assert.Equal(t, 1, registry.RevokedCount())
	assert.Equal(t, 1, registry.Outstanding(), "a2's handle is still live")
}
