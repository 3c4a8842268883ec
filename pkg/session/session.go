// Package session drives one mount's lifetime: the handshake, the seed
// exchange, and the steady-state pump wiring the watcher, SyncLogic, and the
// two SaveTo workers to one gRPC stream (§4.6).
package session

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kelda-inc/pairsync/pkg/config"
	"github.com/kelda-inc/pairsync/pkg/errors"
	"github.com/kelda-inc/pairsync/pkg/fsaccess"
	pb "github.com/kelda-inc/pairsync/pkg/proto/pairsync"
	"github.com/kelda-inc/pairsync/pkg/queue"
	"github.com/kelda-inc/pairsync/pkg/saveto"
	"github.com/kelda-inc/pairsync/pkg/synclogic"
	"github.com/kelda-inc/pairsync/pkg/watch"
)

// Stream is the bidirectional Update stream a Session drives. Both
// pb.PairSync_SyncClient and pb.PairSync_SyncServer satisfy it.
type Stream interface {
	Send(*pb.Update) error
	Recv() (*pb.Update, error)
}

// Session owns one mount's tree, queues, and workers, and drives them
// against a single Stream until it breaks or ctx is canceled.
type Session struct {
	ID  string
	cfg config.Mount

	stream  Stream
	access  fsaccess.Access
	watcher watch.Watcher

	queues *queue.Queues
	logic  *synclogic.SyncLogic

	now func() time.Time

	sendMu       sync.Mutex
	peerMountKey string

	seedMu            sync.Mutex
	localSeedSent     bool
	remoteSeedArrived bool

	cancelMu sync.Mutex
	cancel   context.CancelFunc
}

// New constructs a Session. id should be unique per stream (a fresh
// connection reuses the mount's ID across reconnects; the session's own ID
// only identifies this particular attempt for logging).
func New(id string, cfg config.Mount, stream Stream, access fsaccess.Access, watcher watch.Watcher) *Session {
	queues := queue.New(0, 0, 0)
	s := &Session{
		ID:      id,
		cfg:     cfg,
		stream:  stream,
		access:  access,
		watcher: watcher,
		queues:  queues,
		now:     time.Now,
	}
	s.logic = synclogic.New(synclogic.Config{
		Tree:        cfg.TreeConfig(),
		Queues:      queues,
		RequestBody: s.requestBody,
		Now:         s.now,
	})
	return s
}

// Backlog reports the current depth of the session's three queues, for the
// administrative query (§4.7).
func (s *Session) Backlog() queue.Backlog { return s.queues.Snapshot() }

// Stop cancels the session's context, ending Run without draining its
// queues. It is a no-op before Run has started.
func (s *Session) Stop() {
	s.cancelMu.Lock()
	cancel := s.cancel
	s.cancelMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Run drives the session until ctx is canceled or the stream breaks
// unrecoverably. It returns nil on a clean, caller-requested shutdown.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancelMu.Lock()
	s.cancel = cancel
	s.cancelMu.Unlock()
	defer cancel()

	errCh := make(chan error, 8)
	var wg sync.WaitGroup
	spawn := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil && ctx.Err() == nil {
				log.WithError(err).WithField("worker", name).WithField("session", s.ID).Error("session worker failed")
				select {
				case errCh <- err:
				default:
				}
				cancel()
			}
		}()
	}

	local := saveto.NewLocal(s.access, s.queues.SaveToLocal, s.logic.NotifyWritten)
	remote := saveto.NewRemote(s.access, s.queues.SaveToRemote, s.send)

	spawn("watcher", func() error { return watch.Run(ctx, s.watcher) })
	spawn("watcher-pump", func() error { return s.pumpWatcherEvents(ctx) })
	spawn("save-to-local", func() error { return local.Run(ctx) })
	spawn("save-to-remote", func() error { return remote.Run(ctx) })
	spawn("sync-logic", func() error { return s.logic.Run(ctx) })
	spawn("recv", func() error { return s.recvLoop(ctx) })
	spawn("seed", func() error { return s.handshakeAndSeed(ctx) })

	wg.Wait()

	select {
	case err := <-errCh:
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	default:
		return nil
	}
}

func (s *Session) send(u *pb.Update) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := s.stream.Send(u); err != nil {
		return errors.WithContext(err, "send")
	}
	return nil
}

func (s *Session) pumpWatcherEvents(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-s.watcher.Events():
			if !ok {
				return nil
			}
			if err := queue.PutIncoming(ctx, s.queues.Incoming, queue.IncomingEvent{Update: u, Origin: queue.Local}); err != nil {
				return err
			}
		}
	}
}

// recvLoop reads every Update the peer sends and routes it: handshake and
// seed-complete are control messages consumed here, a body request is
// served directly from disk, and everything else is a metadata or body
// update entering the tree as a remote-origin event.
func (s *Session) recvLoop(ctx context.Context) error {
	for {
		// Recv runs on its own goroutine so that a canceled ctx ends the loop
		// even while Recv is blocked on a stream that stays open.
		ch := make(chan error, 1)
		var u *pb.Update
		go func() {
			var recvErr error
			u, recvErr = s.stream.Recv()
			ch <- recvErr
		}()
		var err error
		select {
		case <-ctx.Done():
			return nil
		case err = <-ch:
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.WithContext(err, "recv")
		}

		switch {
		case u.IsHandshake():
			s.peerMountKey = u.GetIgnoreString()
			log.WithField("peerMountKey", s.peerMountKey).Debug("received handshake")
		case u.IsExplicitBodyRequest():
			path := u.GetPath()
			go func() {
				if err := s.serveBodyRequest(path); err != nil {
					log.WithError(err).WithField("path", path).Warn("failed to serve body request")
				}
			}()
		case u.IsSeedComplete():
			s.markRemoteSeedComplete()
		default:
			if err := queue.PutIncoming(ctx, s.queues.Incoming, queue.IncomingEvent{Update: u, Origin: queue.Remote}); err != nil {
				return err
			}
		}
	}
}

// requestBody is wired into SyncLogic; it asks the peer to send path's body
// on this same stream.
func (s *Session) requestBody(path string) error {
	return s.send(&pb.Update{Path: path, Data: []byte(pb.InitialSyncMarker)})
}

// serveBodyRequest answers a peer's request for path's current body by
// re-reading it from disk and resending its last-known local metadata with
// the body attached.
func (s *Session) serveBodyRequest(path string) error {
	node := s.logic.Tree().Find(path)
	local := node.LocalWithPath()
	if local == nil || local.GetDelete() || local.GetIsDirectory() || local.GetSymlinkTarget() != "" {
		return nil
	}
	data, err := s.access.ReadFile(path)
	if err != nil {
		if _, vanished := err.(errors.FileVanished); vanished {
			return nil
		}
		return err
	}
	out := *local
	out.Data = data
	out.Local = true
	return s.send(&out)
}
