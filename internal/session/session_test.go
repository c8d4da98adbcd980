package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobile-clean/internal/events"
	"mobile-clean/internal/filter"
	"mobile-clean/internal/model"
)

func desc(path string, cat model.Category, size int64) model.Descriptor {
	return model.Descriptor{Path: path, Name: path, Size: size, Category: cat}
}

func completedScan(t *testing.T) *ScanSession {
	t.Helper()
	s := NewScanSession()
	s.OnScanStarted()
	s.OnScanProgress(0, "/sdcard")
	s.OnFileFound(desc("/sdcard/a.log", model.LogFiles, 200))
	s.OnFileFound(desc("/sdcard/cache/x", model.AppCache, 1000))
	s.OnFileFound(desc("/sdcard/b.log", model.LogFiles, 300))
	s.OnScanCompleted(3, 1500)
	return s
}

func TestScanSessionLifecycle(t *testing.T) {
	s := NewScanSession()
	assert.Equal(t, Idle{}, s.State())

	s.OnScanStarted()
	s.OnScanProgress(50, "/sdcard/Download")
	assert.Equal(t, Scanning{Progress: 50, Path: "/sdcard/Download"}, s.State())
	assert.True(t, s.Scanning())

	s.OnFileFound(desc("/sdcard/Download/a.apk", model.ApkFiles, 4096))
	assert.Equal(t, int64(4096), s.TotalSize())
	assert.Empty(t, s.Selected(), "files are not selected while scanning")

	_, err := s.ToggleFile("/sdcard/Download/a.apk")
	assert.ErrorIs(t, err, ErrBusy)

	s.OnScanCompleted(1, 4096)
	assert.Equal(t, Completed{Count: 1, Size: 4096}, s.State())
	assert.Len(t, s.Selected(), 1, "completion selects everything")
}

func TestScanSessionFailure(t *testing.T) {
	s := NewScanSession()
	s.OnScanStarted()
	boom := errors.New("boom")
	s.OnScanError(boom)

	st := StatusOf(s.State())
	assert.Equal(t, "failed", st.State)
	assert.Equal(t, "boom", st.Error)
}

func TestScanSessionGroupsInCategoryOrder(t *testing.T) {
	snap := completedScan(t).Snapshot()

	require.Len(t, snap.Groups, len(model.JunkCategories()))
	assert.Equal(t, model.AppCache, snap.Groups[0].Category)
	assert.Len(t, snap.Groups[0].Files, 1)
	assert.Equal(t, model.LogFiles, snap.Groups[2].Category)
	assert.Equal(t, int64(500), snap.Groups[2].Size)
	assert.Equal(t, 3, snap.TotalCount)
	assert.Equal(t, int64(1500), snap.SelectedSize)
	assert.Equal(t, "completed", snap.Status.State)
}

func TestScanSessionSelection(t *testing.T) {
	s := completedScan(t)

	found, err := s.ToggleFile("/sdcard/a.log")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(1300), s.SelectedSize())

	found, err = s.ToggleFile("/nope")
	require.NoError(t, err)
	assert.False(t, found)

	// partially selected category becomes fully selected
	require.NoError(t, s.ToggleCategory(model.LogFiles))
	assert.Equal(t, int64(1500), s.SelectedSize())

	// fully selected category is cleared
	require.NoError(t, s.ToggleCategory(model.LogFiles))
	assert.Equal(t, int64(1000), s.SelectedSize())

	require.NoError(t, s.ClearSelection())
	assert.Empty(t, s.Selected())

	require.NoError(t, s.SelectAll())
	sel := s.Selected()
	require.Len(t, sel, 3)
	assert.Equal(t, model.AppCache, sel[0].Category)
}

func TestScanSessionSnapshotIsACopy(t *testing.T) {
	s := completedScan(t)
	snap := s.Snapshot()
	snap.Groups[0].Files[0].Selected = false

	assert.Equal(t, int64(1500), s.SelectedSize())
}

func TestScanSessionRemove(t *testing.T) {
	s := completedScan(t)
	s.Remove([]string{"/sdcard/a.log", "/sdcard/cache/x"})

	assert.Equal(t, 1, s.TotalCount())
	assert.Equal(t, int64(300), s.TotalSize())
	assert.Len(t, s.Selected(), 1)
}

func TestScanSessionRestartClearsResults(t *testing.T) {
	s := completedScan(t)
	s.OnScanStarted()
	assert.Zero(t, s.TotalCount())
	assert.Empty(t, s.Selected())
}

func TestScanSessionAsListener(t *testing.T) {
	s := NewScanSession()
	var l events.ScanListener = s
	events.Dispatch(l, events.ScanStarted{})
	events.Dispatch(l, events.FileFound{File: desc("/a.tmp", model.TempFiles, 150)})
	events.Dispatch(l, events.ScanCompleted{TotalFiles: 1, TotalSize: 150})
	assert.Equal(t, int64(150), s.SelectedSize())
}

func TestCleanSession(t *testing.T) {
	c := NewCleanSession()
	assert.Equal(t, Idle{}, c.State())

	c.OnCleanStarted()
	assert.True(t, c.Cleaning())
	c.OnCleanProgress(50, "a.log")
	assert.Equal(t, Cleaning{Progress: 50, Current: "a.log"}, c.State())

	c.OnCleanCompleted(2, 400)
	assert.Equal(t, Completed{Count: 2, Size: 400}, c.State())
	assert.Equal(t, Status{State: "completed", Progress: 100, Count: 2, Size: 400}, StatusOf(c.State()))

	c.OnCleanError(errors.New("cancelled"))
	assert.Equal(t, "failed", c.State().Name())

	c.Reset()
	assert.Equal(t, Idle{}, c.State())
}

func TestLargeSessionSelectionSurvivesFilter(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	l := NewLargeSession()
	l.Now = func() time.Time { return now }

	img := desc("/sdcard/DCIM/a.jpg", model.Image, 3<<20)
	img.Timestamp = now.Add(-time.Hour)
	vid := desc("/sdcard/Movies/b.mp4", model.Video, 200<<20)
	vid.Timestamp = now.Add(-60 * 24 * time.Hour)
	doc := desc("/sdcard/Documents/c.pdf", model.Docs, 2<<20)
	doc.Timestamp = now.Add(-2 * time.Hour)
	l.SetFiles([]model.Descriptor{img, vid, doc})

	assert.Len(t, l.Visible(), 3)
	assert.True(t, l.Toggle(img.Path))
	assert.True(t, l.Toggle(vid.Path))

	l.SetFilter(filter.Filter{Type: "Video", Size: filter.AllSize, Time: filter.AllTime})
	visible := l.Visible()
	require.Len(t, visible, 1)
	assert.True(t, visible[0].Selected)

	// the image is hidden, so it is not handed to deletion
	sel := l.SelectedVisible()
	require.Len(t, sel, 1)
	assert.Equal(t, vid.Path, sel[0].Path)

	l.SetFilter(filter.Default())
	assert.Len(t, l.SelectedVisible(), 2, "hidden selection is kept")

	l.SetFilter(filter.Filter{Type: filter.AllTypes, Size: filter.AllSize, Time: "Within 1 day"})
	l.ClearSelection()
	l.SelectAllVisible()
	l.SetFilter(filter.Default())
	sel = l.SelectedVisible()
	require.Len(t, sel, 2)
	assert.Equal(t, img.Path, sel[0].Path)
	assert.Equal(t, doc.Path, sel[1].Path)
}

func TestLargeSessionToggleAndRemove(t *testing.T) {
	l := NewLargeSession()
	a := desc("/sdcard/a.zip", model.Zip, 5000)
	b := desc("/sdcard/b.zip", model.Zip, 6000)
	l.SetFiles([]model.Descriptor{a, b})

	assert.False(t, l.Toggle("/unknown"))
	assert.True(t, l.Toggle(a.Path))
	assert.False(t, l.Toggle(a.Path))

	l.SelectAllVisible()
	l.Remove([]string{a.Path})
	assert.Len(t, l.Files(), 1)
	sel := l.SelectedVisible()
	require.Len(t, sel, 1)
	assert.Equal(t, b.Path, sel[0].Path)

	// a rescan keeps selections for paths that still exist
	l.SetFiles([]model.Descriptor{b, desc("/sdcard/c.zip", model.Zip, 7000)})
	assert.Len(t, l.SelectedVisible(), 1)
}

func image(path string, size int64, taken time.Time) model.Descriptor {
	return model.Descriptor{Path: path, Name: path, Size: size, Category: model.Image, Timestamp: taken}
}

func imageSession() *ImageSession {
	s := NewImageSession()
	s.Location = time.UTC
	s.SetImages([]model.Descriptor{
		image("/p/c.jpg", 300, time.Date(2024, 5, 2, 23, 0, 0, 0, time.UTC)),
		image("/p/b.jpg", 200, time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)),
		image("/p/a.jpg", 100, time.Date(2024, 4, 30, 12, 0, 0, 0, time.UTC)),
	})
	return s
}

func TestImageSessionGroupsByDay(t *testing.T) {
	snap := imageSession().Snapshot()

	require.Len(t, snap.Groups, 2)
	assert.Equal(t, "2024-05-02", snap.Groups[0].Date)
	assert.Equal(t, "2024-04-30", snap.Groups[1].Date)
	assert.Equal(t, []string{"/p/c.jpg", "/p/b.jpg"}, []string{snap.Groups[0].Files[0].Path, snap.Groups[0].Files[1].Path})
	assert.Equal(t, int64(500), snap.Groups[0].Size)
	assert.Equal(t, 3, snap.TotalCount)
	assert.Equal(t, int64(600), snap.TotalSize)
	assert.Zero(t, snap.SelectedCount)
	assert.False(t, snap.AllSelected)
}

func TestImageSessionDayFollowsLocation(t *testing.T) {
	s := imageSession()
	s.Location = time.FixedZone("UTC+2", 2*60*60)

	snap := s.Snapshot()
	require.Len(t, snap.Groups, 3)
	assert.Equal(t, "2024-05-03", snap.Groups[0].Date)
}

func TestImageSessionToggleAll(t *testing.T) {
	s := imageSession()

	assert.True(t, s.ToggleAll())
	assert.Equal(t, int64(600), s.SelectedSize())

	assert.True(t, s.Toggle("/p/a.jpg"))
	assert.False(t, s.AllSelected())
	assert.True(t, s.ToggleAll())
	assert.Len(t, s.Selected(), 3)

	assert.False(t, s.ToggleAll())
	assert.Empty(t, s.Selected())
}

func TestImageSessionToggleDay(t *testing.T) {
	s := imageSession()

	require.True(t, s.ToggleDay("2024-05-02"))
	snap := s.Snapshot()
	assert.Equal(t, 2, snap.Groups[0].SelectedCount)
	assert.Equal(t, int64(500), snap.SelectedSize)

	require.True(t, s.ToggleDay("2024-05-02"))
	assert.Empty(t, s.Selected())

	assert.False(t, s.ToggleDay("1999-01-01"))
	assert.False(t, s.Toggle("/p/missing.jpg"))
}

func TestImageSessionRemoveAndRescan(t *testing.T) {
	s := imageSession()
	s.Toggle("/p/a.jpg")
	s.Toggle("/p/b.jpg")

	s.Remove([]string{"/p/a.jpg"})
	snap := s.Snapshot()
	require.Len(t, snap.Groups, 1)
	assert.Equal(t, 2, snap.TotalCount)
	assert.Equal(t, []string{"/p/b.jpg"}, []string{s.Selected()[0].Path})

	s.SetImages([]model.Descriptor{image("/p/c.jpg", 300, time.Now())})
	assert.Empty(t, s.Selected())
	assert.False(t, NewImageSession().AllSelected())
}
