package compressor

import (
	"context"
	"time"
)

// CompressionParams defines parameters for the image compression process.
type CompressionParams struct {
	TargetBytes    int64
	MaxDimension   int
	InitialQuality int
	MinQuality     int
}

// Result describes the outcome of compressing a single image.
type Result struct {
	Data            []byte
	OriginalSize    int64
	CompressedSize  int64
	Width           int
	Height          int
	Quality         int
	PercentageSaved float64
	Duration        time.Duration
}

// Compressor defines the interface for image compression.
type Compressor interface {
	// Compress re-encodes the image held in data according to the parameters.
	Compress(ctx context.Context, data []byte, params CompressionParams) (*Result, error)
}
