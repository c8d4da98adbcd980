package logging

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobile-clean/internal/config"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "mobile-clean.log")

	logger, err := New(config.LoggingCfg{Level: "debug", File: path}, "stderr")
	require.NoError(t, err)

	logger.Infow("Scan completed", "files", 3)
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"Scan completed"`)
	assert.Contains(t, string(data), `"files":3`)
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(config.LoggingCfg{Level: "chatty"}, "stderr")
	assert.Error(t, err)
}

func TestRotateIfNeededCompressesOldLog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(path, []byte("old line\n"), 0o644))

	old := time.Now().AddDate(0, 0, -40)
	require.NoError(t, os.Chtimes(path, old, old))

	require.NoError(t, RotateIfNeeded(path, 30, time.Now()))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	matches, err := filepath.Glob(path + ".*.gz")
	require.NoError(t, err)
	require.Len(t, matches, 1)

	f, err := os.Open(matches[0])
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, "old line\n", string(body))
}

func TestRotateIfNeededKeepsFreshLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, []byte("fresh\n"), 0o644))

	require.NoError(t, RotateIfNeeded(path, 30, time.Now()))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestRotatePrunesExpiredArchives(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	expired := path + ".20200101-000000.gz"
	unrelated := filepath.Join(dir, "other.log.20200101-000000.gz")
	for _, p := range []string{path, expired, unrelated} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	old := time.Now().AddDate(0, 0, -90)
	for _, p := range []string{path, expired, unrelated} {
		require.NoError(t, os.Chtimes(p, old, old))
	}

	require.NoError(t, RotateIfNeeded(path, 30, time.Now()))

	_, err := os.Stat(expired)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(unrelated)
	assert.NoError(t, err)
}

func TestRotateMissingFile(t *testing.T) {
	assert.NoError(t, RotateIfNeeded(filepath.Join(t.TempDir(), "none.log"), 7, time.Now()))
}
