package safety

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProtectedPathBlocking(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{"root slash", "/", true},
		{"proc", "/proc/1/status", true},
		{"sys", "/sys/class", true},
		{"dev", "/dev/null", true},
		{"android system", "/system/app/Foo.apk", true},
		{"vendor", "/vendor/lib", true},
		{"app private data", "/data/data/com.example/cache/x", true},
		{"etc subdir", "/etc/ssh", true},
		{"bin file", "/bin/bash", true},
		{"usr local", "/usr/local", true},
		{"state dir", "/var/lib/mobile-clean/history.db", true},
		{"config dir", "/etc/mobile-clean/config.yaml", true},
		{"shared storage", "/storage/emulated/0/Download/x.apk", false},
		{"sdcard", "/sdcard/DCIM/.thumbnails/1.jpg", false},
		{"tmp file", "/tmp/file.txt", false},
		{"home user", "/home/user", false},
		{"prefix lookalike", "/systemic/file", false},
	}

	protected := defaultProtected(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsProtectedPath(tt.path, protected))
		})
	}
}

func TestExtraProtectedPaths(t *testing.T) {
	protected := defaultProtected([]string{"/storage/emulated/0/DCIM/Camera", " "})
	assert.True(t, IsProtectedPath("/storage/emulated/0/DCIM/Camera/IMG_1.jpg", protected))
	assert.False(t, IsProtectedPath("/storage/emulated/0/DCIM/.thumbnails/1.jpg", protected))
	assert.Len(t, protected, len(DefaultProtected)+1)
}

func TestAllowedRootEnforcement(t *testing.T) {
	allowed := []string{"/storage/emulated/0", "/data/cache"}

	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{"inside storage", "/storage/emulated/0/Download/a.apk", true},
		{"inside cache dir", "/data/cache/x.tmp", true},
		{"root exact", "/storage/emulated/0", true},
		{"sibling user", "/storage/emulated/10/a.log", false},
		{"lookalike", "/storage/emulated/0extra/a", false},
		{"parent", "/storage", false},
		{"filesystem root", "/", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsWithinAllowedRoots(tt.path, allowed))
		})
	}
}

func TestPathNormalization(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		expectError bool
	}{
		{"absolute path", "/tmp/file.txt", false},
		{"relative path", "file.txt", false},
		{"path with dots", "/tmp/./file.txt", false},
		{"empty path", "", true},
		{"whitespace only", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := NormalizePath(tt.path)
			if tt.expectError {
				assert.ErrorIs(t, err, ErrInvalidPath)
				return
			}
			require.NoError(t, err)
			assert.True(t, filepath.IsAbs(result))
		})
	}
}

func TestTraversalDetection(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/tmp/file.txt", false},
		{"/tmp/../etc/passwd", true},
		{"../etc/passwd", true},
		{"/tmp/..", true},
		{"/tmp/./file", false},
		{"/tmp/..hidden/file", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, DetectTraversal(tt.path), tt.path)
	}
}

func TestSymlinkEscapeDetection(t *testing.T) {
	tmpDir := t.TempDir()
	allowedDir := filepath.Join(tmpDir, "allowed")
	outsideDir := filepath.Join(tmpDir, "outside")
	require.NoError(t, os.MkdirAll(allowedDir, 0o755))
	require.NoError(t, os.MkdirAll(outsideDir, 0o755))

	outsideFile := filepath.Join(outsideDir, "target.txt")
	require.NoError(t, os.WriteFile(outsideFile, []byte("outside"), 0o644))
	escaping := filepath.Join(allowedDir, "link_to_outside")
	require.NoError(t, os.Symlink(outsideFile, escaping))

	insideFile := filepath.Join(allowedDir, "inside.txt")
	require.NoError(t, os.WriteFile(insideFile, []byte("inside"), 0o644))
	safeLink := filepath.Join(allowedDir, "safe_link")
	require.NoError(t, os.Symlink(insideFile, safeLink))

	allowed := []string{allowedDir}

	escaped, err := DetectSymlinkEscape(escaping, allowed)
	require.NoError(t, err)
	assert.True(t, escaped)

	escaped, err = DetectSymlinkEscape(safeLink, allowed)
	require.NoError(t, err)
	assert.False(t, escaped)

	escaped, err = DetectSymlinkEscape(insideFile, allowed)
	require.NoError(t, err)
	assert.False(t, escaped)

	_, err = DetectSymlinkEscape(filepath.Join(allowedDir, "nonexistent"), allowed)
	assert.Error(t, err)
}

func TestSymlinkedRootIsNotAnEscape(t *testing.T) {
	tmpDir := t.TempDir()
	real := filepath.Join(tmpDir, "emulated0")
	require.NoError(t, os.MkdirAll(real, 0o755))
	sdcard := filepath.Join(tmpDir, "sdcard")
	require.NoError(t, os.Symlink(real, sdcard))

	file := filepath.Join(sdcard, "a.log")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	escaped, err := DetectSymlinkEscape(file, []string{sdcard})
	require.NoError(t, err)
	assert.False(t, escaped)
}

func TestValidateDeleteTarget(t *testing.T) {
	tmpDir := t.TempDir()
	allowedDir := filepath.Join(tmpDir, "allowed")
	outsideDir := filepath.Join(tmpDir, "outside")
	require.NoError(t, os.MkdirAll(allowedDir, 0o755))
	require.NoError(t, os.MkdirAll(outsideDir, 0o755))

	insideFile := filepath.Join(allowedDir, "delete_me.log")
	require.NoError(t, os.WriteFile(insideFile, []byte("test"), 0o644))
	outsideFile := filepath.Join(outsideDir, "keep_me.txt")
	require.NoError(t, os.WriteFile(outsideFile, []byte("keep"), 0o644))
	escapingLink := filepath.Join(allowedDir, "escape_link")
	require.NoError(t, os.Symlink(outsideFile, escapingLink))

	validator := NewValidator([]string{allowedDir}, nil)

	tests := []struct {
		name        string
		path        string
		expectError error
	}{
		{"allowed file", insideFile, nil},
		{"missing file inside", filepath.Join(allowedDir, "gone.tmp"), nil},
		{"outside allowed", outsideFile, ErrOutsideAllowed},
		{"allowed root itself", allowedDir, ErrRootTarget},
		{"protected /etc", "/etc/passwd", ErrProtectedPath},
		{"protected /proc", "/proc/self", ErrProtectedPath},
		{"protected root", "/", ErrProtectedPath},
		{"escaping symlink", escapingLink, ErrSymlinkEscape},
		{"traversal attempt", allowedDir + "/sub/../delete_me.log", ErrTraversal},
		{"empty path", "", ErrInvalidPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateDeleteTarget(tt.path)
			if tt.expectError == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.expectError)
		})
	}
}

func TestHasPathPrefix(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		prefix   string
		expected bool
	}{
		{"exact match", "/tmp/allowed", "/tmp/allowed", true},
		{"subdirectory", "/tmp/allowed/sub", "/tmp/allowed", true},
		{"not a prefix", "/tmp/other", "/tmp/allowed", false},
		{"partial match", "/tmp/allowedother", "/tmp/allowed", false},
		{"slash only matches slash", "/tmp", "/", false},
		{"slash itself", "/", "/", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, hasPathPrefix(tt.path, tt.prefix))
		})
	}
}
