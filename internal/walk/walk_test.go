package walk

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
}

func collect(w *Walker, root string) []string {
	var paths []string
	for e := range w.Walk(root) {
		rel, _ := filepath.Rel(root, e.Path)
		paths = append(paths, filepath.ToSlash(rel))
	}
	return paths
}

func TestWalkYieldsRegularFilesDepthFirst(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "one.txt"), 10)
	writeFile(t, filepath.Join(root, "a", "b", "two.txt"), 20)
	writeFile(t, filepath.Join(root, "z.txt"), 30)

	got := collect(New(nil, nil), root)
	assert.Equal(t, []string{"a/b/two.txt", "a/one.txt", "z.txt"}, got)
}

func TestWalkStopsDescendingBelowMaxDepth(t *testing.T) {
	root := t.TempDir()
	// d1..d4 are listed (depth 1..4); d5 is depth 5 and never listed.
	deep := filepath.Join(root, "d1", "d2", "d3", "d4")
	writeFile(t, filepath.Join(deep, "at-depth-4.bin"), 1)
	writeFile(t, filepath.Join(deep, "d5", "too-deep.bin"), 1)

	got := collect(New(nil, nil), root)
	assert.Equal(t, []string{"d1/d2/d3/d4/at-depth-4.bin"}, got)
}

func TestWalkPrunesExcludedDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Android", "data", "keep.log"), 200)
	writeFile(t, filepath.Join(root, "SYSTEM_files", "hidden.log"), 200)
	writeFile(t, filepath.Join(root, "devices", "x.log"), 200)
	writeFile(t, filepath.Join(root, "proc", "y.log"), 200)

	w := New(SubstringExcluder(DefaultExcludedSubstrings...), nil)
	got := collect(w, root)
	assert.Equal(t, []string{"Android/data/keep.log"}, got)
}

func TestWalkGlobExcluder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "app", "node_modules", "pkg", "big.bin"), 10)
	writeFile(t, filepath.Join(root, "app", "main.bin"), 10)

	w := New(AnyExcluder(SubstringExcluder("proc"), GlobExcluder("**/node_modules", "[invalid")), nil)
	got := collect(w, root)
	assert.Equal(t, []string{"app/main.bin"}, got)
}

func TestWalkEarlyStopAndRestart(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.bin", "b.bin", "c.bin"} {
		writeFile(t, filepath.Join(root, name), 5)
	}
	w := New(nil, nil)

	var first []string
	for e := range w.Walk(root) {
		first = append(first, e.Name)
		if len(first) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a.bin", "b.bin"}, first)

	// A fresh walk starts over.
	assert.Len(t, collect(w, root), 3)
}

func TestWalkSkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "real", "file.bin"), 5)
	if err := os.Symlink(root, filepath.Join(root, "real", "loop")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if err := os.Symlink(filepath.Join(root, "real", "file.bin"), filepath.Join(root, "link.bin")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	got := collect(New(nil, nil), root)
	sort.Strings(got)
	assert.Equal(t, []string{"real/file.bin"}, got)
}

func TestWalkMissingRootYieldsNothing(t *testing.T) {
	got := collect(New(nil, nil), filepath.Join(t.TempDir(), "missing"))
	assert.Empty(t, got)
}
