package fsaccess

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/kelda-inc/pairsync/pkg/errors"
)

// AferoAccess implements Access on top of an afero.Fs, joining every
// relative path with base before touching the filesystem. Symlink
// operations require the underlying Fs to also implement afero.Symlinker
// and afero.Lstater (true of afero.OsFs; afero.MemMapFs does not support
// symlinks, so tests that need one use a *afero.OsFs backed by t.TempDir()).
type AferoAccess struct {
	fs   afero.Fs
	base string
}

// New returns an Access rooted at base within fs.
func New(fs afero.Fs, base string) *AferoAccess {
	return &AferoAccess{fs: fs, base: base}
}

func (a *AferoAccess) abs(path string) string {
	return filepath.Join(a.base, filepath.FromSlash(path))
}

// MkdirAll implements Access.
func (a *AferoAccess) MkdirAll(path string) error {
	if err := a.fs.MkdirAll(a.abs(path), 0755); err != nil {
		return errors.WithContext(err, "mkdir")
	}
	return nil
}

// WriteFile implements Access. It forces a pre-existing read-only file
// writable before overwriting it, rather than failing on it; there is no
// retry after a failed write.
func (a *AferoAccess) WriteFile(path string, data []byte, executable bool) error {
	abs := a.abs(path)
	if err := a.fs.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return errors.WithContext(err, "mkdir parent")
	}

	if fi, statErr := a.fs.Stat(abs); statErr == nil && fi.Mode()&0200 == 0 {
		if err := a.fs.Chmod(abs, fi.Mode()|0200); err != nil {
			return errors.WithContext(err, "force writable")
		}
	}

	mode := os.FileMode(0644)
	if executable {
		mode = 0755
	}

	tmp := abs + ".pairsync-tmp"
	f, err := a.fs.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return errors.WithContext(err, "open temp file")
	}
	if _, err := f.Write(data); err != nil {
		f.Close() //nolint:errcheck
		a.fs.Remove(tmp) //nolint:errcheck
		return errors.WithContext(err, "write")
	}
	if err := f.Close(); err != nil {
		return errors.WithContext(err, "close")
	}
	if err := a.fs.Chmod(tmp, mode); err != nil {
		return errors.WithContext(err, "chmod")
	}
	if err := a.fs.Rename(tmp, abs); err != nil {
		return errors.WithContext(err, "atomic replace")
	}
	return nil
}

// CreateSymlink implements Access.
func (a *AferoAccess) CreateSymlink(path, target string) error {
	linker, ok := a.fs.(afero.Symlinker)
	if !ok {
		return errors.New("filesystem does not support symlinks")
	}
	abs := a.abs(path)
	if err := a.fs.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return errors.WithContext(err, "mkdir parent")
	}
	a.fs.Remove(abs) //nolint:errcheck
	if err := linker.SymlinkIfPossible(target, abs); err != nil {
		return errors.WithContext(err, "symlink")
	}
	return nil
}

// Delete implements Access.
func (a *AferoAccess) Delete(path string, recursive bool) error {
	abs := a.abs(path)
	var err error
	if recursive {
		err = a.fs.RemoveAll(abs)
	} else {
		err = a.fs.Remove(abs)
	}
	if err != nil && !os.IsNotExist(err) {
		return errors.WithContext(err, "delete")
	}
	return nil
}

// SetModifiedTime implements Access. With noFollow, the symlink itself is
// retimed only when the underlying Fs has a LchtimesIfPossible method;
// otherwise it falls back to Chtimes, which follows the link and fails when
// the link's target does not exist.
func (a *AferoAccess) SetModifiedTime(path string, modTime time.Time, noFollow bool) error {
	abs := a.abs(path)
	if noFollow {
		if lchtimer, ok := a.fs.(interface {
			LchtimesIfPossible(string, time.Time, time.Time) error
		}); ok {
			if err := lchtimer.LchtimesIfPossible(abs, modTime, modTime); err == nil {
				return nil
			}
		}
	}
	if err := a.fs.Chtimes(abs, modTime, modTime); err != nil {
		return errors.WithContext(err, "set modtime")
	}
	return nil
}

// ReadFile implements Access.
func (a *AferoAccess) ReadFile(path string) ([]byte, error) {
	data, err := afero.ReadFile(a.fs, a.abs(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileVanished{Path: path}
		}
		return nil, errors.WithContext(err, "read")
	}
	return data, nil
}

// Lstat implements Access.
func (a *AferoAccess) Lstat(path string) (os.FileInfo, error) {
	abs := a.abs(path)
	if lstater, ok := a.fs.(afero.Lstater); ok {
		fi, _, err := lstater.LstatIfPossible(abs)
		return fi, err
	}
	return a.fs.Stat(abs)
}

// Exists implements Access.
func (a *AferoAccess) Exists(path string) (bool, error) {
	return afero.Exists(a.fs, a.abs(path))
}
