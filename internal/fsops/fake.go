package fsops

import (
	"io/fs"
	"os"
	"sync"
)

// FakeFS records Remove calls without touching disk. Lstat and ReadDir read
// the real filesystem so tests can build trees in t.TempDir().
type FakeFS struct {
	mu sync.Mutex

	// Calls lists every Remove in order, prefixed with "rm:".
	Calls []string
	// Errors maps a path to the error Remove returns for it.
	Errors map[string]error
	// Passthrough performs real removals for paths without an injected error.
	Passthrough bool
}

func (f *FakeFS) Remove(path string) error {
	f.mu.Lock()
	f.Calls = append(f.Calls, "rm:"+path)
	err := f.Errors[path]
	f.mu.Unlock()

	if err != nil {
		return err
	}
	if f.Passthrough {
		return os.Remove(path)
	}
	return nil
}

func (f *FakeFS) Lstat(path string) (fs.FileInfo, error) {
	return os.Lstat(path)
}

func (f *FakeFS) ReadDir(path string) ([]fs.DirEntry, error) {
	return os.ReadDir(path)
}

// Fail makes Remove(path) return err.
func (f *FakeFS) Fail(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Errors == nil {
		f.Errors = make(map[string]error)
	}
	f.Errors[path] = err
}

// Removed returns the paths passed to Remove.
func (f *FakeFS) Removed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		out[i] = c[len("rm:"):]
	}
	return out
}
