package compressor

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noisyImage returns an image full of random pixels, which PNG cannot
// compress well. Re-encoding it as JPEG always shrinks it.
func noisyImage(t *testing.T, width, height int) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(rng.Intn(256)),
				G: uint8(rng.Intn(256)),
				B: uint8(rng.Intn(256)),
				A: 255,
			})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func defaultParams() CompressionParams {
	return CompressionParams{
		TargetBytes:    1000 * 1000,
		MaxDimension:   1920,
		InitialQuality: 85,
		MinQuality:     30,
	}
}

func TestCompressShrinksNoisyPNG(t *testing.T) {
	data := noisyImage(t, 256, 256)
	c := NewDefaultCompressor()

	res, err := c.Compress(context.Background(), data, defaultParams())
	require.NoError(t, err)

	assert.NotEmpty(t, res.Data)
	assert.Equal(t, int64(len(data)), res.OriginalSize)
	assert.Less(t, res.CompressedSize, res.OriginalSize)
	assert.Greater(t, res.PercentageSaved, 0.0)
	assert.Equal(t, 256, res.Width)
	assert.Equal(t, 256, res.Height)
}

func TestCompressCapsLongerSide(t *testing.T) {
	data := noisyImage(t, 600, 300)
	c := NewDefaultCompressor()

	params := defaultParams()
	params.MaxDimension = 200

	res, err := c.Compress(context.Background(), data, params)
	require.NoError(t, err)

	assert.Equal(t, 200, res.Width)
	assert.Equal(t, 100, res.Height)

	// Portrait orientation caps the height instead.
	data = noisyImage(t, 300, 600)
	res, err = c.Compress(context.Background(), data, params)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Width)
	assert.Equal(t, 200, res.Height)
}

func TestCompressSmallImageKeepsDimensions(t *testing.T) {
	data := noisyImage(t, 64, 48)
	c := NewDefaultCompressor()

	res, err := c.Compress(context.Background(), data, defaultParams())
	require.NoError(t, err)

	assert.Equal(t, 64, res.Width)
	assert.Equal(t, 48, res.Height)
}

func TestCompressStepsQualityDownForTinyTarget(t *testing.T) {
	data := noisyImage(t, 512, 512)
	c := NewDefaultCompressor()

	params := defaultParams()
	params.TargetBytes = 1 // unreachable, forces stepping to the floor

	res, err := c.Compress(context.Background(), data, params)
	require.NoError(t, err)

	assert.Less(t, res.Quality, params.InitialQuality)
	assert.GreaterOrEqual(t, res.Quality, params.MinQuality)
}

func TestCompressNeverGrowsOutput(t *testing.T) {
	// A flat tiny JPEG leaves little room to shrink; whatever happens,
	// the artifact must not be larger than the input.
	img := imaging.New(8, 8, color.NRGBA{R: 128, G: 128, B: 128, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(10)))

	c := NewDefaultCompressor()
	res, err := c.Compress(context.Background(), buf.Bytes(), defaultParams())
	require.NoError(t, err)

	assert.LessOrEqual(t, res.CompressedSize, res.OriginalSize)
	assert.NotEmpty(t, res.Data)
}

func TestCompressRejectsUndecodableInput(t *testing.T) {
	c := NewDefaultCompressor()

	_, err := c.Compress(context.Background(), []byte("definitely not an image"), defaultParams())
	assert.Error(t, err)
}

func TestCompressHonorsCancelledContext(t *testing.T) {
	data := noisyImage(t, 64, 64)
	c := NewDefaultCompressor()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Compress(ctx, data, defaultParams())
	assert.ErrorIs(t, err, context.Canceled)
}
