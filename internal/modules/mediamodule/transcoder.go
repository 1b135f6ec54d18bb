package mediamodule

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// Transcoder converts raw admin-console uploads into web-optimized WebP
// assets: decode, width-bounded Lanczos resample, lossy re-encode.
type Transcoder struct {
	logger hclog.Logger
}

// NewTranscoder creates a new transcoder instance
func NewTranscoder() *Transcoder {
	return &Transcoder{
		logger: hclog.New(&hclog.LoggerOptions{
			Name:  "transcoder",
			Level: hclog.Info,
		}),
	}
}

// Transcode decodes a raw image, resamples it down to maxWidth if it is
// wider (height follows the aspect ratio and is never bounded on its
// own), and re-encodes it as lossy WebP at the given quality in (0,1].
// It touches nothing beyond the output buffer: no network, no disk.
func (t *Transcoder) Transcode(raw RawImage, maxWidth int, quality float64) (*TranscodedAsset, error) {
	if maxWidth < 1 {
		return nil, fmt.Errorf("invalid max width: %d", maxWidth)
	}
	if quality <= 0 || quality > 1 {
		return nil, fmt.Errorf("invalid quality: %g (must be in (0,1])", quality)
	}
	if len(raw.Data) == 0 {
		return nil, &DecodeError{Name: raw.Name, Err: fmt.Errorf("empty input")}
	}

	img, err := t.decodeImage(raw.Data, raw.MimeType)
	if err != nil {
		return nil, &DecodeError{Name: raw.Name, Err: err}
	}

	if img.Bounds().Dx() > maxWidth {
		// Height 0 keeps the aspect ratio
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	options := &webp.Options{
		Lossless: false,
		Quality:  float32(quality * 100),
	}
	if err := webp.Encode(&buf, img, options); err != nil {
		return nil, &EncodeError{Name: raw.Name, Err: err}
	}

	bounds := img.Bounds()
	asset := &TranscodedAsset{
		ID:               uuid.NewString(),
		Name:             outputName(raw.Name),
		MimeType:         "image/webp",
		Data:             buf.Bytes(),
		OriginalSize:     raw.Size(),
		Size:             int64(buf.Len()),
		Width:            bounds.Dx(),
		Height:           bounds.Dy(),
		CompressionRatio: 1 - float64(buf.Len())/float64(len(raw.Data)),
	}

	t.logger.Debug("transcoded image",
		"name", raw.Name,
		"output", asset.Name,
		"width", asset.Width,
		"height", asset.Height,
		"original_size", asset.OriginalSize,
		"compressed_size", asset.Size,
		"ratio", asset.CompressionRatio,
	)

	return asset, nil
}

// TranscodeResult pairs one input of a multi-file selection with its
// outcome. Index is the position in the input slice.
type TranscodeResult struct {
	Index int
	Name  string
	Asset *TranscodedAsset
	Err   error
}

// TranscodeAll transcodes independent inputs concurrently and returns
// results in input order. A decode or encode failure is confined to its
// own entry; sibling files are unaffected.
func (t *Transcoder) TranscodeAll(raws []RawImage, maxWidth int, quality float64) []TranscodeResult {
	results := make([]TranscodeResult, len(raws))

	var wg sync.WaitGroup
	for i, raw := range raws {
		wg.Add(1)
		go func(i int, raw RawImage) {
			defer wg.Done()
			asset, err := t.Transcode(raw, maxWidth, quality)
			results[i] = TranscodeResult{Index: i, Name: raw.Name, Asset: asset, Err: err}
		}(i, raw)
	}
	wg.Wait()

	return results
}

// decodeImage decodes an image from bytes based on MIME type
func (t *Transcoder) decodeImage(data []byte, mimeType string) (image.Image, error) {
	reader := bytes.NewReader(data)

	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return jpeg.Decode(reader)
	case "image/png":
		return png.Decode(reader)
	case "image/webp":
		return webp.Decode(reader)
	default:
		// Generic decode covers gif, bmp, tiff and mislabeled inputs
		return imaging.Decode(reader)
	}
}

// outputName replaces the input's extension with .webp
func outputName(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if base == "" {
		base = name
	}
	return base + ".webp"
}

// AcceptsMediaType reports whether a declared media type passes the
// configured filter. Filters may be exact ("image/png") or wildcard
// ("image/*").
func AcceptsMediaType(mimeType string, accepted []string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	for _, pattern := range accepted {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if pattern == "*/*" || pattern == mimeType {
			return true
		}
		if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
			if strings.HasPrefix(mimeType, prefix+"/") {
				return true
			}
		}
	}
	return false
}
