package saveto

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelda-inc/pairsync/pkg/fsaccess"
	pb "github.com/kelda-inc/pairsync/pkg/proto/pairsync"
)

func TestApplyReadsBodyBeforeSending(t *testing.T) {
	fs := afero.NewMemMapFs()
	access := fsaccess.New(fs, "/mnt")
	require.NoError(t, access.WriteFile("foo.txt", []byte("payload"), false))

	var sent *pb.Update
	r := NewRemote(access, nil, func(u *pb.Update) error {
		sent = u
		return nil
	})

	require.NoError(t, r.Apply(&pb.Update{Path: "foo.txt", ModTime: 1000}))
	require.NotNil(t, sent)
	assert.Equal(t, "payload", string(sent.Data))
}

func TestApplyDropsVanishedFileSilently(t *testing.T) {
	fs := afero.NewMemMapFs()
	access := fsaccess.New(fs, "/mnt")

	called := false
	r := NewRemote(access, nil, func(u *pb.Update) error {
		called = true
		return nil
	})

	err := r.Apply(&pb.Update{Path: "gone.txt", ModTime: 1000})
	require.NoError(t, err)
	assert.False(t, called, "a vanished file must not be sent")
}

func TestApplyPassesThroughDeletesWithoutReading(t *testing.T) {
	fs := afero.NewMemMapFs()
	access := fsaccess.New(fs, "/mnt")

	var sent *pb.Update
	r := NewRemote(access, nil, func(u *pb.Update) error {
		sent = u
		return nil
	})

	require.NoError(t, r.Apply(&pb.Update{Path: "gone.txt", Delete: true, ModTime: 1000}))
	require.NotNil(t, sent)
	assert.True(t, sent.Delete)
}
