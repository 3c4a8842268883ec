package fsaccess

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelda-inc/pairsync/pkg/errors"
)

func TestWriteFileAtomicReplace(t *testing.T) {
	fs := afero.NewMemMapFs()
	a := New(fs, "/mnt")

	require.NoError(t, a.WriteFile("dir/foo.txt", []byte("v1"), false))
	data, err := a.ReadFile("dir/foo.txt")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))

	require.NoError(t, a.WriteFile("dir/foo.txt", []byte("v2"), true))
	data, err = a.ReadFile("dir/foo.txt")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	fi, err := fs.Stat("/mnt/dir/foo.txt")
	require.NoError(t, err)
	assert.NotZero(t, fi.Mode()&0111)
}

func TestWriteFileForcesReadOnlyWritable(t *testing.T) {
	fs := afero.NewMemMapFs()
	a := New(fs, "/mnt")
	require.NoError(t, a.WriteFile("foo.txt", []byte("v1"), false))
	require.NoError(t, fs.Chmod("/mnt/foo.txt", 0400))

	require.NoError(t, a.WriteFile("foo.txt", []byte("v2"), false))
	data, err := a.ReadFile("foo.txt")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func TestDeleteRecursive(t *testing.T) {
	fs := afero.NewMemMapFs()
	a := New(fs, "/mnt")
	require.NoError(t, a.WriteFile("dir/foo.txt", []byte("x"), false))

	require.NoError(t, a.Delete("dir", true))
	exists, err := a.Exists("dir/foo.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestReadMissingFileReturnsFileVanished(t *testing.T) {
	fs := afero.NewMemMapFs()
	a := New(fs, "/mnt")
	_, err := a.ReadFile("nope.txt")
	require.Error(t, err)
	assert.IsType(t, errors.FileVanished{}, err)
}

func TestSymlinkOnRealFilesystem(t *testing.T) {
	dir := t.TempDir()
	fs := afero.NewOsFs()
	a := New(fs, dir)

	require.NoError(t, a.WriteFile("target.txt", []byte("hi"), false))
	require.NoError(t, a.CreateSymlink("link", "target.txt"))

	fi, err := a.Lstat("link")
	require.NoError(t, err)
	assert.NotZero(t, fi.Mode()&os.ModeSymlink)

	require.NoError(t, a.SetModifiedTime("link", time.Unix(1000, 0), true))
}
