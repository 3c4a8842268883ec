package saveto

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelda-inc/pairsync/pkg/fsaccess"
	pb "github.com/kelda-inc/pairsync/pkg/proto/pairsync"
)

func TestApplyWritesRegularFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	access := fsaccess.New(fs, "/mnt")

	var notified []string
	l := NewLocal(access, nil, func(path string, modTime int64) {
		notified = append(notified, path)
		assert.Equal(t, int64(60000), modTime)
	})

	err := l.Apply(&pb.Update{Path: "foo.txt", ModTime: 60000, Data: []byte("hi")})
	require.NoError(t, err)

	data, err := access.ReadFile("foo.txt")
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))
	assert.Equal(t, []string{"foo.txt"}, notified)
}

func TestApplyDeleteNotifiesWithZeroModTime(t *testing.T) {
	fs := afero.NewMemMapFs()
	access := fsaccess.New(fs, "/mnt")
	require.NoError(t, access.WriteFile("foo.txt", []byte("hi"), false))

	var gotModTime int64 = -1
	l := NewLocal(access, nil, func(path string, modTime int64) { gotModTime = modTime })

	require.NoError(t, l.Apply(&pb.Update{Path: "foo.txt", Delete: true}))
	exists, err := access.Exists("foo.txt")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, int64(0), gotModTime)
}

func TestApplyMakesDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	access := fsaccess.New(fs, "/mnt")
	l := NewLocal(access, nil, nil)

	require.NoError(t, l.Apply(&pb.Update{Path: "dir", IsDirectory: true, ModTime: 1000}))
	exists, err := access.Exists("dir")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestApplyRejectsUnresolvedBodyPlaceholder(t *testing.T) {
	fs := afero.NewMemMapFs()
	access := fsaccess.New(fs, "/mnt")
	l := NewLocal(access, nil, nil)

	err := l.Apply(&pb.Update{Path: "foo.txt", ModTime: 1000, Data: []byte(pb.InitialSyncMarker)})
	assert.Error(t, err)
}
