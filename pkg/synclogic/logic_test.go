package synclogic

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelda-inc/pairsync/pkg/queue"
	pb "github.com/kelda-inc/pairsync/pkg/proto/pairsync"
)

func newTestLogic(t *testing.T, requestBody func(string) error) *SyncLogic {
	t.Helper()
	return New(Config{
		Queues:      queue.New(16, 16, 16),
		RequestBody: requestBody,
		Now:         time.Now,
	})
}

func TestLocalWinsEmitsToSaveToRemote(t *testing.T) {
	s := newTestLogic(t, nil)
	ctx := context.Background()

	s.applyIncoming(queue.IncomingEvent{
		Origin: queue.Local,
		Update: &pb.Update{Path: "foo.txt", ModTime: 5000, Data: []byte("hello")},
	})
	require.NoError(t, s.diffPass(ctx))

	select {
	case out := <-s.queues.SaveToRemote:
		assert.Equal(t, "foo.txt", out.Path)
		assert.True(t, out.Local)
		assert.Nil(t, out.Data, "SaveToRemote reads the body itself; SyncLogic must not attach it")
	default:
		t.Fatal("expected an emission to SaveToRemote")
	}
}

func TestRemoteWinsWithBodyPresentEmitsToSaveToLocal(t *testing.T) {
	s := newTestLogic(t, nil)
	ctx := context.Background()

	s.applyIncoming(queue.IncomingEvent{
		Origin: queue.Remote,
		Update: &pb.Update{Path: "foo.txt", ModTime: 5000, Data: []byte("hello")},
	})
	require.NoError(t, s.diffPass(ctx))

	select {
	case out := <-s.queues.SaveToLocal:
		assert.Equal(t, "foo.txt", out.Path)
		assert.Equal(t, "hello", string(out.Data))
	default:
		t.Fatal("expected an emission to SaveToLocal")
	}
}

func TestRemoteWinsWithMissingBodyRequestsThenEmitsOnceArrived(t *testing.T) {
	var requested []string
	s := newTestLogic(t, func(path string) error {
		requested = append(requested, path)
		return nil
	})
	ctx := context.Background()

	s.applyIncoming(queue.IncomingEvent{
		Origin: queue.Remote,
		Update: &pb.Update{Path: "foo.txt", ModTime: 5000, Data: []byte(pb.InitialSyncMarker)},
	})
	require.NoError(t, s.diffPass(ctx))

	select {
	case <-s.queues.SaveToLocal:
		t.Fatal("must not emit until the body has arrived")
	default:
	}
	assert.Equal(t, []string{"foo.txt"}, requested)

	// A second diff pass without new data must not re-request.
	require.NoError(t, s.diffPass(ctx))
	assert.Equal(t, []string{"foo.txt"}, requested)

	// The body arrives at the same modtime.
	s.applyIncoming(queue.IncomingEvent{
		Origin: queue.Remote,
		Update: &pb.Update{Path: "foo.txt", ModTime: 5000, Data: []byte("the real body")},
	})
	require.NoError(t, s.diffPass(ctx))

	select {
	case out := <-s.queues.SaveToLocal:
		assert.Equal(t, "the real body", string(out.Data))
	default:
		t.Fatal("expected the emission once the body arrived")
	}
}

func TestRemoteWinsWithGenuinelyEmptyBodyEmitsImmediately(t *testing.T) {
	var requested []string
	s := newTestLogic(t, func(path string) error {
		requested = append(requested, path)
		return nil
	})
	ctx := context.Background()

	// A real zero-byte file's Data is empty, not the InitialSyncMarker
	// sentinel; it must not be mistaken for a body still in flight.
	s.applyIncoming(queue.IncomingEvent{
		Origin: queue.Remote,
		Update: &pb.Update{Path: "empty.txt", ModTime: 5000, Data: nil},
	})
	require.NoError(t, s.diffPass(ctx))

	select {
	case out := <-s.queues.SaveToLocal:
		assert.Equal(t, "empty.txt", out.Path)
		assert.Empty(t, out.Data)
	default:
		t.Fatal("a genuinely empty body must emit to SaveToLocal without waiting for a body request")
	}
	assert.Empty(t, requested, "must not request a body that was never withheld")
}

func TestEchoSuppressionSkipsOwnWrite(t *testing.T) {
	s := newTestLogic(t, nil)
	ctx := context.Background()

	s.NotifyWritten("foo.txt", 5000)
	s.applyIncoming(queue.IncomingEvent{
		Origin: queue.Local,
		Update: &pb.Update{Path: "foo.txt", ModTime: 5000, Data: []byte("hello")},
	})
	require.NoError(t, s.diffPass(ctx))

	select {
	case <-s.queues.SaveToRemote:
		t.Fatal("an echoed write must not be forwarded")
	default:
	}
}

func TestRetypeQueuesTombstoneBeforeCreate(t *testing.T) {
	s := newTestLogic(t, nil)
	ctx := context.Background()

	s.applyIncoming(queue.IncomingEvent{
		Origin: queue.Local,
		Update: &pb.Update{Path: "thing", ModTime: 1000, IsDirectory: true},
	})
	require.NoError(t, s.diffPass(ctx))
	<-s.queues.SaveToRemote // drain the directory creation

	// Remote retypes the same path to a plain file at a later time.
	s.applyIncoming(queue.IncomingEvent{
		Origin: queue.Remote,
		Update: &pb.Update{Path: "thing", ModTime: 9000, Data: []byte("now a file")},
	})
	require.NoError(t, s.diffPass(ctx))

	tomb := <-s.queues.SaveToLocal
	assert.True(t, tomb.Delete)
	assert.Equal(t, "thing", tomb.Path)
	assert.Less(t, tomb.ModTime, int64(9000))

	created := <-s.queues.SaveToLocal
	assert.False(t, created.Delete)
	assert.Equal(t, "thing", created.Path)
	assert.Equal(t, "now a file", string(created.Data))
}

func TestIgnoredNodeNeverEmitted(t *testing.T) {
	s := newTestLogic(t, nil)
	ctx := context.Background()

	s.applyIncoming(queue.IncomingEvent{
		Origin: queue.Local,
		Update: &pb.Update{Path: ".gitignore", ModTime: 1000, IgnoreString: "*.log\n"},
	})
	require.NoError(t, s.diffPass(ctx))
	<-s.queues.SaveToRemote // the .gitignore file itself syncs

	s.applyIncoming(queue.IncomingEvent{
		Origin: queue.Local,
		Update: &pb.Update{Path: "debug.log", ModTime: 2000, Data: []byte("noisy")},
	})
	require.NoError(t, s.diffPass(ctx))

	select {
	case <-s.queues.SaveToRemote:
		t.Fatal("an ignored path must never be forwarded")
	default:
	}
}
