package mediamodule

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makePNG renders a small gradient and encodes it as PNG so decode and
// resample paths see realistic pixel data
func makePNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 255 / width),
				G: uint8(y * 255 / height),
				B: uint8((x + y) % 256),
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestTranscoder_ResamplesWideImage(t *testing.T) {
	transcoder := NewTranscoder()

	raw := RawImage{
		Name:     "hero.png",
		MimeType: "image/png",
		Data:     makePNG(t, 2000, 1000),
	}

	asset, err := transcoder.Transcode(raw, 800, 0.8)
	require.NoError(t, err)

	assert.Equal(t, 800, asset.Width)
	assert.Equal(t, 400, asset.Height, "height follows the aspect ratio")
	assert.Equal(t, "hero.webp", asset.Name)
	assert.Equal(t, "image/webp", asset.MimeType)
	assert.Equal(t, raw.Size(), asset.OriginalSize)
	assert.Equal(t, int64(len(asset.Data)), asset.Size)
}

func TestTranscoder_KeepsNarrowImage(t *testing.T) {
	transcoder := NewTranscoder()

	raw := RawImage{
		Name:     "thumb.png",
		MimeType: "image/png",
		Data:     makePNG(t, 400, 300),
	}

	asset, err := transcoder.Transcode(raw, 800, 0.8)
	require.NoError(t, err)

	assert.Equal(t, 400, asset.Width, "images below the bound are never upscaled")
	assert.Equal(t, 300, asset.Height)
}

func TestTranscoder_CompressionRatio(t *testing.T) {
	transcoder := NewTranscoder()

	raw := RawImage{
		Name:     "photo.png",
		MimeType: "image/png",
		Data:     makePNG(t, 1000, 800),
	}

	asset, err := transcoder.Transcode(raw, 800, 0.8)
	require.NoError(t, err)

	expected := 1 - float64(asset.Size)/float64(raw.Size())
	assert.InDelta(t, expected, asset.CompressionRatio, 1e-9)
	assert.Less(t, asset.CompressionRatio, 1.0)
}

func TestTranscoder_DecodeFailure(t *testing.T) {
	transcoder := NewTranscoder()

	raw := RawImage{
		Name:     "broken.png",
		MimeType: "image/png",
		Data:     []byte("not an image at all"),
	}

	asset, err := transcoder.Transcode(raw, 800, 0.8)
	assert.Nil(t, asset)

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "broken.png", decodeErr.Name)
}

func TestTranscoder_EmptyInput(t *testing.T) {
	transcoder := NewTranscoder()

	_, err := transcoder.Transcode(RawImage{Name: "empty.png"}, 800, 0.8)

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
}

func TestTranscoder_InvalidParameters(t *testing.T) {
	transcoder := NewTranscoder()
	raw := RawImage{Name: "a.png", MimeType: "image/png", Data: makePNG(t, 10, 10)}

	_, err := transcoder.Transcode(raw, 0, 0.8)
	assert.Error(t, err)

	_, err = transcoder.Transcode(raw, 800, 0)
	assert.Error(t, err)

	_, err = transcoder.Transcode(raw, 800, 1.5)
	assert.Error(t, err)
}

func TestTranscoder_TranscodeAll_PreservesOrderAndIsolatesFailures(t *testing.T) {
	transcoder := NewTranscoder()

	raws := []RawImage{
		{Name: "first.png", MimeType: "image/png", Data: makePNG(t, 900, 600)},
		{Name: "broken.png", MimeType: "image/png", Data: []byte("garbage")},
		{Name: "third.png", MimeType: "image/png", Data: makePNG(t, 300, 300)},
	}

	results := transcoder.TranscodeAll(raws, 800, 0.8)
	require.Len(t, results, 3)

	assert.Equal(t, "first.png", results[0].Name)
	require.NoError(t, results[0].Err)
	assert.Equal(t, 800, results[0].Asset.Width)

	assert.Equal(t, "broken.png", results[1].Name)
	assert.Error(t, results[1].Err, "one bad file must not sink the selection")
	assert.Nil(t, results[1].Asset)

	assert.Equal(t, "third.png", results[2].Name)
	require.NoError(t, results[2].Err)
	assert.Equal(t, 300, results[2].Asset.Width)
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"jpeg extension", "photo.jpg", "photo.webp"},
		{"png extension", "banner.png", "banner.webp"},
		{"no extension", "cover", "cover.webp"},
		{"dotted name", "archive.tar.png", "archive.tar.webp"},
		{"hidden file", ".env", ".env.webp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, outputName(tt.input))
		})
	}
}

func TestAcceptsMediaType(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		accepted []string
		expected bool
	}{
		{"wildcard image match", "image/png", []string{"image/*"}, true},
		{"wildcard image match jpeg", "image/jpeg", []string{"image/*"}, true},
		{"exact match", "image/png", []string{"image/png"}, true},
		{"rejected video", "video/mp4", []string{"image/*"}, false},
		{"rejected text", "text/plain", []string{"image/*"}, false},
		{"accept anything", "application/pdf", []string{"*/*"}, true},
		{"case insensitive", "IMAGE/PNG", []string{"image/*"}, true},
		{"empty filter rejects", "image/png", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AcceptsMediaType(tt.mimeType, tt.accepted))
		})
	}
}
