package session

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelda-inc/pairsync/pkg/config"
	"github.com/kelda-inc/pairsync/pkg/fsaccess"
	pb "github.com/kelda-inc/pairsync/pkg/proto/pairsync"
	"github.com/kelda-inc/pairsync/pkg/watch"
)

type fakeStream struct {
	sent []*pb.Update
	recv chan *pb.Update
}

func newFakeStream() *fakeStream {
	return &fakeStream{recv: make(chan *pb.Update, 16)}
}

func (f *fakeStream) Send(u *pb.Update) error {
	f.sent = append(f.sent, u)
	return nil
}

func (f *fakeStream) Recv() (*pb.Update, error) {
	u, ok := <-f.recv
	if !ok {
		return nil, context.Canceled
	}
	return u, nil
}

func newTestSession(t *testing.T) (*Session, *fakeStream) {
	t.Helper()
	fs := afero.NewMemMapFs()
	access := fsaccess.New(fs, "/mnt")
	w := watch.NewPollWatcher(fs, "/mnt", 0)
	stream := newFakeStream()
	s := New("test-session", config.Mount{MountKey: "mnt-a"}, stream, access, w)
	return s, stream
}

func TestIsRegularFile(t *testing.T) {
	assert.True(t, isRegularFile(&pb.Update{Path: "a"}))
	assert.False(t, isRegularFile(&pb.Update{Path: "a", IsDirectory: true}))
	assert.False(t, isRegularFile(&pb.Update{Path: "a", SymlinkTarget: "b"}))
	assert.False(t, isRegularFile(&pb.Update{Path: "a", Delete: true}))
}

func TestRequestBodySendsSentinelWithZeroModTime(t *testing.T) {
	s, stream := newTestSession(t)
	require.NoError(t, s.requestBody("foo.txt"))

	require.Len(t, stream.sent, 1)
	got := stream.sent[0]
	assert.Equal(t, "foo.txt", got.Path)
	assert.True(t, got.IsExplicitBodyRequest())
}

func TestServeBodyRequestReadsCurrentDiskContents(t *testing.T) {
	s, stream := newTestSession(t)
	require.NoError(t, s.access.WriteFile("foo.txt", []byte("payload"), false))
	require.NoError(t, s.logic.Tree().AddLocal(&pb.Update{Path: "foo.txt", ModTime: 5000}))

	require.NoError(t, s.serveBodyRequest("foo.txt"))

	require.Len(t, stream.sent, 1)
	assert.Equal(t, "payload", string(stream.sent[0].Data))
	assert.True(t, stream.sent[0].Local)
}

func TestServeBodyRequestSkipsDeletedPath(t *testing.T) {
	s, stream := newTestSession(t)
	require.NoError(t, s.logic.Tree().AddLocal(&pb.Update{Path: "gone.txt", Delete: true, ModTime: 5000}))

	require.NoError(t, s.serveBodyRequest("gone.txt"))
	assert.Empty(t, stream.sent)
}

func TestHandshakeAndSeedSendsMountKeyThenScanThenSeedComplete(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/mnt/foo.txt", []byte("hi"), 0644))
	access := fsaccess.New(fs, "/mnt")
	w := watch.NewPollWatcher(fs, "/mnt", 0)
	stream := newFakeStream()
	s := New("test-session", config.Mount{MountKey: "mnt-a"}, stream, access, w)

	require.NoError(t, s.handshakeAndSeed(context.Background()))

	require.NotEmpty(t, stream.sent)
	assert.True(t, stream.sent[0].IsHandshake())
	assert.Equal(t, "mnt-a", stream.sent[0].GetIgnoreString())

	last := stream.sent[len(stream.sent)-1]
	assert.True(t, last.IsSeedComplete())

	var sawFoo bool
	for _, u := range stream.sent[1 : len(stream.sent)-1] {
		if u.Path == "foo.txt" {
			sawFoo = true
			assert.Equal(t, pb.InitialSyncMarker, string(u.Data))
		}
	}
	assert.True(t, sawFoo, "expected the initial scan to include foo.txt")
}
