package logger

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWithDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FilePath = filepath.Join(t.TempDir(), "test.log")

	log, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "loud"

	_, err := NewLogger(cfg)
	assert.Error(t, err)
}

func TestWithUpload(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	entry := WithUpload(log, "photo.jpg", 1234)
	assert.Equal(t, "photo.jpg", entry.Data["file"])
	assert.Equal(t, int64(1234), entry.Data["size"])
}
