package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instagram-comment-scraper/internal/config"
)

func TestFromUnix(t *testing.T) {
	got := FromUnix(1700000000)
	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, "2023-11-14 22:13:20", FormatTimestamp(got))
}

func TestNewLogger_Level(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, NewLogger(config.LoggingConfig{Level: "debug"}).GetLevel())
	assert.Equal(t, logrus.InfoLevel, NewLogger(config.LoggingConfig{Level: "nonsense"}).GetLevel())
}

func TestNewLogger_WritesFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bot.log")
	logger := NewLogger(config.LoggingConfig{Level: "info", File: file, MaxSize: 1})

	logger.Info("comment bot ready")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "comment bot ready")
}
