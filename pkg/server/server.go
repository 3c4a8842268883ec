// Package server implements the PairSync gRPC service: it accepts one
// bidirectional stream per mount, evicting any prior Session for the same
// mount key on reconnect (§4.7).
package server

import (
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/kelda-inc/pairsync/pkg/config"
	pairsyncerrors "github.com/kelda-inc/pairsync/pkg/errors"
	"github.com/kelda-inc/pairsync/pkg/fsaccess"
	pb "github.com/kelda-inc/pairsync/pkg/proto/pairsync"
	"github.com/kelda-inc/pairsync/pkg/queue"
	"github.com/kelda-inc/pairsync/pkg/session"
	"github.com/kelda-inc/pairsync/pkg/watch"
)

var errNotHandshake = pairsyncerrors.New("first message on stream was not a handshake")

// MountResolver resolves an incoming mount key to the local configuration
// and filesystem root the server should sync against. The CLI's serve
// command supplies one backed by static configuration; a multi-tenant
// deployment could resolve it from a registry instead.
type MountResolver interface {
	Resolve(mountKey string) (config.Mount, error)
}

// Server accepts PairSync connections and keeps at most one live Session per
// mount key.
type Server struct {
	pb.UnimplementedPairSyncServer

	resolver MountResolver
	fs       afero.Fs

	mu       sync.Mutex
	sessions map[string]*liveSession
}

type liveSession struct {
	session *session.Session
}

// New returns a Server that resolves mounts through resolver and accesses
// the filesystem through fs (afero.NewOsFs() in production).
func New(resolver MountResolver, fs afero.Fs) *Server {
	return &Server{
		resolver: resolver,
		fs:       fs,
		sessions: make(map[string]*liveSession),
	}
}

// Sync implements pb.PairSyncServer. It blocks for the lifetime of the
// stream.
func (s *Server) Sync(stream pb.PairSync_SyncServer) error {
	first, err := stream.Recv()
	if err != nil {
		return err
	}
	if !first.IsHandshake() {
		return errNotHandshake
	}
	mountKey := first.GetIgnoreString()

	cfg, err := s.resolver.Resolve(mountKey)
	if err != nil {
		return err
	}

	access := fsaccess.New(s.fs, cfg.LocalRoot)
	watcher := watch.NewFSNotifyWatcher(cfg.LocalRoot)

	sess := session.New(uuid.NewString(), cfg, &prefaced{stream: stream, first: first}, access, watcher)

	s.replace(mountKey, sess)
	defer s.remove(mountKey, sess)

	log.WithField("mountKey", mountKey).WithField("session", sess.ID).Info("session started")
	err = sess.Run(stream.Context())
	log.WithField("mountKey", mountKey).WithField("session", sess.ID).WithError(err).Info("session ended")
	return err
}

// Backlog returns the queue depths of the live session for mountKey, or
// false if no session is live for it (§4.7's administrative query).
func (s *Server) Backlog(mountKey string) (queue.Backlog, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	live, ok := s.sessions[mountKey]
	if !ok {
		return queue.Backlog{}, false
	}
	return live.session.Backlog(), true
}

func (s *Server) replace(mountKey string, sess *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prior, ok := s.sessions[mountKey]; ok {
		log.WithField("mountKey", mountKey).Warn("evicting existing session for reconnect")
		prior.session.Stop()
	}
	s.sessions[mountKey] = &liveSession{session: sess}
}

func (s *Server) remove(mountKey string, sess *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if live, ok := s.sessions[mountKey]; ok && live.session == sess {
		delete(s.sessions, mountKey)
	}
}

// prefaced replays a stream's already-consumed first message before
// falling through to the underlying stream, so Session.recvLoop can treat
// the handshake uniformly instead of the server special-casing it. It only
// needs to satisfy session.Stream (Send/Recv), not the full
// grpc.ServerStream the raw stream implements.
type prefaced struct {
	stream  pb.PairSync_SyncServer
	first   *pb.Update
	replied bool
}

func (p *prefaced) Send(u *pb.Update) error {
	return p.stream.Send(u)
}

func (p *prefaced) Recv() (*pb.Update, error) {
	if !p.replied {
		p.replied = true
		return p.first, nil
	}
	return p.stream.Recv()
}
