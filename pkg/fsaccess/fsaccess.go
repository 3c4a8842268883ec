// Package fsaccess defines the abstract filesystem-accessor capability
// (§6) SaveToLocal and SaveToRemote consume, plus an afero-backed reference
// implementation.
package fsaccess

import (
	"os"
	"time"
)

// Access is the set of filesystem operations SaveToLocal (§4.4) and
// SaveToRemote (§4.5) need. All paths are relative to the mount root; a
// concrete implementation joins them with an absolute base.
type Access interface {
	// MkdirAll creates path and any missing parents.
	MkdirAll(path string) error

	// WriteFile atomically replaces path's contents with data. If a
	// pre-existing file at path is read-only, WriteFile forces it writable
	// before overwriting.
	WriteFile(path string, data []byte, executable bool) error

	// CreateSymlink creates a symlink at path pointing at target.
	CreateSymlink(path, target string) error

	// Delete removes path. If recursive is true and path is a directory,
	// its contents are removed too.
	Delete(path string, recursive bool) error

	// SetModifiedTime sets path's modification time. If noFollow is true
	// and path is a symlink, the symlink itself (not its target) is
	// retimed.
	SetModifiedTime(path string, modTime time.Time, noFollow bool) error

	// ReadFile returns the contents of the regular file at path.
	ReadFile(path string) ([]byte, error)

	// Lstat stats path without following a trailing symlink.
	Lstat(path string) (os.FileInfo, error)

	// Exists reports whether path currently exists.
	Exists(path string) (bool, error)
}
