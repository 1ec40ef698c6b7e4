package compressor

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/disintegration/imaging"
)

const qualityStep = 10

// DefaultCompressor is the default implementation of the Compressor interface.
type DefaultCompressor struct{}

// NewDefaultCompressor creates a new DefaultCompressor instance.
func NewDefaultCompressor() *DefaultCompressor {
	return &DefaultCompressor{}
}

// Compress decodes the image, scales it down so the longer side fits within
// params.MaxDimension, and re-encodes it as JPEG, stepping the quality down
// from params.InitialQuality until the output fits params.TargetBytes or the
// quality floor is reached. If the best encoding is still not smaller than
// the original, the original bytes are returned unchanged.
func (c *DefaultCompressor) Compress(ctx context.Context, data []byte, params CompressionParams) (*Result, error) {
	start := time.Now()

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if params.MaxDimension > 0 && (width > params.MaxDimension || height > params.MaxDimension) {
		if width >= height {
			img = imaging.Resize(img, params.MaxDimension, 0, imaging.Lanczos)
		} else {
			img = imaging.Resize(img, 0, params.MaxDimension, imaging.Lanczos)
		}
		bounds = img.Bounds()
		width, height = bounds.Dx(), bounds.Dy()
	}

	quality := params.InitialQuality
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	floor := params.MinQuality
	if floor <= 0 {
		floor = 30
	}

	var encoded []byte
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return nil, fmt.Errorf("encode image: %w", err)
		}
		encoded = buf.Bytes()

		if params.TargetBytes <= 0 || int64(len(encoded)) <= params.TargetBytes || quality-qualityStep < floor {
			break
		}
		quality -= qualityStep
	}

	res := &Result{
		Data:           encoded,
		OriginalSize:   int64(len(data)),
		CompressedSize: int64(len(encoded)),
		Width:          width,
		Height:         height,
		Quality:        quality,
		Duration:       time.Since(start),
	}

	// Re-encoding can inflate an already well-compressed source. Keep the
	// original bytes in that case.
	if res.CompressedSize >= res.OriginalSize {
		res.Data = data
		res.CompressedSize = res.OriginalSize
		res.PercentageSaved = 0
		return res, nil
	}

	res.PercentageSaved = float64(res.OriginalSize-res.CompressedSize) * 100 / float64(res.OriginalSize)
	return res, nil
}
