package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAggregatorConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aggregator.yaml")
	require.NoError(t, os.WriteFile(path, []byte("digitiser_ids: [1, 2, 3]\n"), 0o644))

	cfg, err := LoadAggregatorConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []uint8{1, 2, 3}, cfg.DigitiserIDs)
	assert.Equal(t, 500*time.Millisecond, cfg.FrameTTL())
	assert.Equal(t, "digitiser-events", cfg.InputTopic)
}

func TestLoadAggregatorConfigRequiresDigitisers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aggregator.yaml")
	require.NoError(t, os.WriteFile(path, []byte("input_topic: x\n"), 0o644))

	_, err := LoadAggregatorConfig(path)
	assert.Error(t, err)
}

func TestLoadWriterConfigDefaults(t *testing.T) {
	cfg, err := LoadWriterConfig("")
	require.NoError(t, err)
	assert.Equal(t, "./runs", cfg.FilePathRoot)
	assert.Equal(t, 30*time.Second, cfg.FlushDelay())
	assert.Equal(t, 1024, cfg.ChunkSizes.EventList)
}
