package metadata

import (
	"bytes"
	"image"
	"io"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestTakenAtRejectsGarbage(t *testing.T) {
	p := NewProbe(discardLogger())

	_, err := p.TakenAt([]byte("not an image at all"))
	assert.Error(t, err)
}

func TestTakenAtRejectsImageWithoutEXIF(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))

	p := NewProbe(discardLogger())
	_, err := p.TakenAt(buf.Bytes())
	assert.Error(t, err)
}

func TestParseEXIFDateTime(t *testing.T) {
	tests := []struct {
		input string
		want  *time.Time
	}{
		{input: "2023:06:15 10:20:30", want: timePtr(2023, 6, 15, 10, 20, 30)},
		{input: "2023-06-15 10:20:30", want: timePtr(2023, 6, 15, 10, 20, 30)},
		{input: "2023:06:15", want: timePtr(2023, 6, 15, 0, 0, 0)},
		{input: "2023-06-15", want: timePtr(2023, 6, 15, 0, 0, 0)},
		{input: "", want: nil},
		{input: "yesterday", want: nil},
	}

	for _, tt := range tests {
		got := parseEXIFDateTime(tt.input)
		if tt.want == nil {
			assert.Nil(t, got, "input %q", tt.input)
		} else {
			require.NotNil(t, got, "input %q", tt.input)
			assert.True(t, tt.want.Equal(*got), "input %q: got %v", tt.input, got)
		}
	}
}

func timePtr(year int, month time.Month, day, hour, min, sec int) *time.Time {
	tm := time.Date(year, month, day, hour, min, sec, 0, time.UTC)
	return &tm
}
