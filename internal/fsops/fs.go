package fsops

import (
	"io/fs"
	"os"
)

// FS abstracts the filesystem calls made while deleting. Tests swap in
// FakeFS to prove that dry runs never mutate anything and to inject
// per-path failures.
type FS interface {
	Remove(path string) error
	Lstat(path string) (fs.FileInfo, error)
	ReadDir(path string) ([]fs.DirEntry, error)
}

// OSFS implements FS with the os package.
type OSFS struct{}

func (OSFS) Remove(path string) error {
	return os.Remove(path)
}

func (OSFS) Lstat(path string) (fs.FileInfo, error) {
	return os.Lstat(path)
}

func (OSFS) ReadDir(path string) ([]fs.DirEntry, error) {
	return os.ReadDir(path)
}
