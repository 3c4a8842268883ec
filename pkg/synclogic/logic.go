// Package synclogic implements the diff-and-decide engine (§4.3): it
// consumes IncomingEvents into an UpdateTree, then walks the tree's dirty
// set deciding, per node, which side wins and what SaveToLocal/SaveToRemote
// should do about it.
package synclogic

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kelda-inc/pairsync/pkg/queue"
	"github.com/kelda-inc/pairsync/pkg/tree"

	pb "github.com/kelda-inc/pairsync/pkg/proto/pairsync"

	"context"
)

// retypeTombstoneOffset mirrors the tree package's minimum millisecond
// precision: a synthetic delete synthesized ahead of a retype's create must
// sort strictly before it (§4.2, §4.3).
const retypeTombstoneOffset = 1000

// Config configures a SyncLogic engine.
type Config struct {
	Tree tree.Config

	// Queues wires the engine to the watcher and to SaveToLocal/SaveToRemote.
	Queues *queue.Queues

	// EchoTTL bounds how long a locally-observed (path, modTime) pair is
	// suppressed as a self-inflicted echo after SaveToLocal writes it. Zero
	// uses defaultEchoTTL.
	EchoTTL time.Duration

	// RequestBody is invoked when the engine needs a remote file's body
	// before it can apply a decided update locally. The session layer wires
	// this to send a body-request Update on the outgoing stream.
	RequestBody func(path string) error

	// Now overrides time.Now, for tests.
	Now func() time.Time
}

// SyncLogic owns one UpdateTree and drains one Queues.Incoming, applying the
// decide-and-forward logic of §4.3. It is not safe for concurrent use beyond
// the single Run goroutine; NotifyWritten is the one method meant to be
// called from another goroutine (SaveToLocal's).
type SyncLogic struct {
	tree        *tree.UpdateTree
	queues      *queue.Queues
	echo        *echoWindow
	requestBody func(path string) error

	awaitingData map[string]bool
}

// New constructs a SyncLogic engine from cfg.
func New(cfg Config) *SyncLogic {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &SyncLogic{
		tree:         tree.New(cfg.Tree),
		queues:       cfg.Queues,
		echo:         newEchoWindow(cfg.EchoTTL, now),
		requestBody:  cfg.RequestBody,
		awaitingData: make(map[string]bool),
	}
}

// Tree exposes the underlying UpdateTree, for the session layer to look up a
// node's local metadata when serving a body request.
func (s *SyncLogic) Tree() *tree.UpdateTree { return s.tree }

// NotifyWritten records that SaveToLocal just wrote path at modTime, so the
// watcher's own report of that write is suppressed as an echo rather than
// re-entering the tree as a new local change.
func (s *SyncLogic) NotifyWritten(path string, modTime int64) {
	s.echo.Remember(path, modTime)
}

// Run drains Incoming until ctx is cancelled, applying each event to the
// tree and then running a diff pass over whatever became dirty.
func (s *SyncLogic) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-s.queues.Incoming:
			s.applyIncoming(ev)
			if err := s.diffPass(ctx); err != nil {
				return err
			}
		}
	}
}

// DiffOnce runs a single diff pass without waiting on Incoming, for the
// session layer's initial reconciliation once both seeds have loaded.
func (s *SyncLogic) DiffOnce(ctx context.Context) error {
	return s.diffPass(ctx)
}

func (s *SyncLogic) applyIncoming(ev queue.IncomingEvent) {
	u := ev.Update
	if u == nil {
		return
	}
	if ev.Origin == queue.Local {
		if s.echo.IsEcho(u.Path, u.ModTime) {
			log.WithField("path", u.Path).Debug("suppressing echo of own write")
			return
		}
		if err := s.tree.AddLocal(u); err != nil {
			log.WithError(err).WithField("path", u.Path).Warn("rejected local update")
		}
		return
	}
	if err := s.tree.AddRemote(u); err != nil {
		log.WithError(err).WithField("path", u.Path).Warn("rejected remote update")
	}
}

func (s *SyncLogic) diffPass(ctx context.Context) error {
	var firstErr error
	s.tree.VisitDirty(func(n *tree.Node) {
		if firstErr != nil {
			return
		}
		if err := s.handleNode(ctx, n); err != nil {
			firstErr = err
		}
	})
	return firstErr
}

func (s *SyncLogic) handleNode(ctx context.Context, n *tree.Node) error {
	if n.Parent() == nil {
		// The root is a synthetic placeholder directory; it never itself
		// needs to be materialized.
		return nil
	}
	if n.ShouldIgnore() {
		return nil
	}

	switch {
	case n.IsLocalNewer():
		return s.applyToRemote(ctx, n)
	case n.IsRemoteNewer():
		return s.applyToLocal(ctx, n)
	}
	return nil
}

func (s *SyncLogic) applyToRemote(ctx context.Context, n *tree.Node) error {
	local := n.LocalWithPath()
	if !n.SameType() {
		if err := s.queueRetypeTombstone(ctx, s.queues.SaveToRemote, local.Path, local.ModTime); err != nil {
			return err
		}
	}
	out := *local
	out.Data = nil // SaveToRemote reads the body from disk itself, right before send.
	out.Local = true
	return queue.PutUpdate(ctx, s.queues.SaveToRemote, &out)
}

func (s *SyncLogic) applyToLocal(ctx context.Context, n *tree.Node) error {
	remote := n.RemoteWithPath()
	path := remote.Path

	isRegularLiveFile := !remote.GetDelete() && !remote.GetIsDirectory() && remote.GetSymlinkTarget() == ""
	missingBody := remote.IsBodyRequest()

	if isRegularLiveFile && missingBody {
		if !s.awaitingData[path] {
			s.awaitingData[path] = true
			if s.requestBody != nil {
				if err := s.requestBody(path); err != nil {
					log.WithError(err).WithField("path", path).Warn("failed to request file body")
				}
			}
		}
		return nil
	}
	delete(s.awaitingData, path)

	if !n.SameType() {
		if err := s.queueRetypeTombstone(ctx, s.queues.SaveToLocal, path, remote.ModTime); err != nil {
			return err
		}
	}

	out := *remote
	out.Local = false
	return queue.PutUpdate(ctx, s.queues.SaveToLocal, &out)
}

func (s *SyncLogic) queueRetypeTombstone(ctx context.Context, dst chan *pb.Update, path string, winningModTime int64) error {
	tomb := &pb.Update{
		Path:    path,
		Delete:  true,
		ModTime: winningModTime - retypeTombstoneOffset,
	}
	return queue.PutUpdate(ctx, dst, tomb)
}
