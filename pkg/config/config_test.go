package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir string, cfg map[string]interface{}) string {
	t.Helper()
	path := filepath.Join(dir, "config.json")
	bs, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, bs, 0644))
	return path
}

func TestParseAppliesNaiveBackendDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, map[string]interface{}{
		"address":   "127.0.0.1:9900",
		"dataDir":   filepath.Join(dir, "data"),
		"logConfig": map[string]interface{}{"logDir": filepath.Join(dir, "logs")},
	})

	cfg, err := Parse(path, true)
	require.NoError(t, err)
	assert.Equal(t, BackendNaive, cfg.Backend)
	assert.Equal(t, defaultLogMaxSizeMB, cfg.LogConfig.LogMaxSize)
	assert.Equal(t, defaultLogMaxBackups, cfg.LogConfig.LogMaxBackups)
	assert.Equal(t, defaultLogMaxAgeDays, cfg.LogConfig.LogMaxAge)

	info, err := os.Stat(cfg.DataDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestParseRejectsMissingDataDirForNaiveBackend(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, map[string]interface{}{
		"address":   "127.0.0.1:9900",
		"logConfig": map[string]interface{}{"logDir": filepath.Join(dir, "logs")},
	})

	_, err := Parse(path, true)
	assert.Error(t, err)
}

func TestParseRejectsUnknownBackend(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, map[string]interface{}{
		"backend":   "bogus",
		"logConfig": map[string]interface{}{"logDir": filepath.Join(dir, "logs")},
	})

	_, err := Parse(path, true)
	assert.Error(t, err)
}

func TestParseValidatesRetentionCron(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, map[string]interface{}{
		"dataDir":         filepath.Join(dir, "data"),
		"logConfig":       map[string]interface{}{"logDir": filepath.Join(dir, "logs")},
		"retentionConfig": map[string]interface{}{"cron": "not a cron expression"},
	})

	_, err := Parse(path, true)
	assert.Error(t, err)
}

func TestChangeWatcherEmitsOnEdit(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, map[string]interface{}{
		"dataDir":   filepath.Join(dir, "data"),
		"verbose":   1,
		"logConfig": map[string]interface{}{"logDir": filepath.Join(dir, "logs")},
	})
	_, err := Parse(path, true)
	require.NoError(t, err)

	watcher := &fileChangeWatcher{cfgPath: path}
	watcher.pollIntervalOverride = 20 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := watcher.Watch(ctx)

	writeConfig(t, dir, map[string]interface{}{
		"dataDir":   filepath.Join(dir, "data"),
		"verbose":   2,
		"logConfig": map[string]interface{}{"logDir": filepath.Join(dir, "logs")},
	})

	select {
	case change := <-changes:
		require.NotNil(t, change)
		assert.Equal(t, 1, change.Prev.Verbose)
		assert.Equal(t, 2, change.Current.Verbose)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for config change")
	}
}
