package mediaindex

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mobile-clean/internal/model"
)

var (
	pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	mp3Header = []byte("ID3\x03\x00\x00\x00\x00\x00\x0f")
)

func writeFile(t *testing.T, path string, header []byte, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	data := make([]byte, size)
	copy(data, header)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func openIndex(t *testing.T) *SQLiteIndex {
	t.Helper()
	idx, err := Open(filepath.Join(t.TempDir(), "media.db"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestSQLiteReplaceAndQuery(t *testing.T) {
	idx := openIndex(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	require.NoError(t, idx.Replace(ctx, []Record{
		{Path: "/s/a.jpg", Name: "a.jpg", Size: 5000, DateAdded: now.Add(-time.Hour), MimeType: "image/jpeg", Kind: model.Image},
		{Path: "/s/b.png", Name: "b.png", Size: 6000, DateAdded: now, MimeType: "image/png", Kind: model.Image},
		{Path: "/s/c.mp3", Name: "c.mp3", Size: 7000, DateAdded: now, MimeType: "audio/mpeg", Kind: model.Audio},
	}))

	images, err := idx.Query(ctx, model.Image)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, "/s/b.png", images[0].Path)
	assert.Equal(t, model.Image, images[0].Kind)
	assert.True(t, images[0].DateAdded.Equal(now))

	videos, err := idx.Query(ctx, model.Video)
	require.NoError(t, err)
	assert.Empty(t, videos)

	_, err = idx.Query(ctx, model.Docs)
	assert.ErrorIs(t, err, ErrUnsupportedKind)

	require.NoError(t, idx.Replace(ctx, nil))
	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryIndex(t *testing.T) {
	m := NewMemory(
		Record{Path: "/s/v.mp4", Kind: model.Video},
		Record{Path: "/s/a.mp3", Kind: model.Audio},
	)
	m.Errors = map[model.Category]error{model.Audio: errors.New("provider crashed")}

	videos, err := m.Query(context.Background(), model.Video)
	require.NoError(t, err)
	assert.Len(t, videos, 1)

	_, err = m.Query(context.Background(), model.Audio)
	assert.EqualError(t, err, "provider crashed")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Query(ctx, model.Video)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKindForMIME(t *testing.T) {
	assert.Equal(t, model.Image, KindForMIME("image/webp"))
	assert.Equal(t, model.Video, KindForMIME("video/mp4"))
	assert.Equal(t, model.Audio, KindForMIME("audio/mpeg"))
	assert.Equal(t, model.None, KindForMIME("application/pdf"))
}

func TestIndexerRefresh(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "DCIM", "Camera", "IMG_1.png"), pngHeader, 4096)
	writeFile(t, filepath.Join(root, "Music", "song.mp3"), mp3Header, 4096)
	writeFile(t, filepath.Join(root, "Documents", "notes.txt"), []byte("plain text"), 2048)
	writeFile(t, filepath.Join(root, ".hidden", "secret.png"), pngHeader, 4096)
	writeFile(t, filepath.Join(root, "empty.png"), nil, 0)

	idx := openIndex(t)
	ix := &Indexer{Store: idx, Logger: zap.NewNop().Sugar(), SkipDir: HiddenDir}

	n, err := ix.Refresh(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	images, err := idx.Query(context.Background(), model.Image)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, filepath.Join(root, "DCIM", "Camera", "IMG_1.png"), images[0].Path)
	assert.Equal(t, "image/png", images[0].MimeType)
	assert.Equal(t, int64(4096), images[0].Size)

	audio, err := idx.Query(context.Background(), model.Audio)
	require.NoError(t, err)
	require.Len(t, audio, 1)
	assert.Equal(t, "song.mp3", audio[0].Name)
}

func TestIndexerRefreshCancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.png"), pngHeader, 100)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ix := &Indexer{Store: NewMemory(), Logger: zap.NewNop().Sugar()}
	_, err := ix.Refresh(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSQLiteDelete(t *testing.T) {
	idx := openIndex(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, idx.Replace(ctx, []Record{
		{Path: "/s/a.jpg", Name: "a.jpg", Size: 2048, DateAdded: now, MimeType: "image/jpeg", Kind: model.Image},
		{Path: "/s/b.jpg", Name: "b.jpg", Size: 4096, DateAdded: now, MimeType: "image/jpeg", Kind: model.Image},
		{Path: "/s/c.mp3", Name: "c.mp3", Size: 4096, DateAdded: now, MimeType: "audio/mpeg", Kind: model.Audio},
	}))

	n, err := idx.Delete(ctx, []string{"/s/a.jpg", "/s/unknown.jpg"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	images, err := idx.Query(ctx, model.Image)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "/s/b.jpg", images[0].Path)

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMemoryDelete(t *testing.T) {
	m := NewMemory(
		Record{Path: "/s/a.jpg", Kind: model.Image},
		Record{Path: "/s/b.jpg", Kind: model.Image},
	)
	n, err := m.Delete(context.Background(), []string{"/s/b.jpg"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := m.Query(context.Background(), model.Image)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "/s/a.jpg", got[0].Path)
}
