package session

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	pb "github.com/kelda-inc/pairsync/pkg/proto/pairsync"
	"github.com/kelda-inc/pairsync/pkg/queue"
)

// handshakeAndSeed exchanges the mount key handshake, streams this side's
// initial scan to the peer (metadata only for regular files, per §6), and
// triggers one defensive reconciliation pass once both sides' seeds are
// known complete.
func (s *Session) handshakeAndSeed(ctx context.Context) error {
	if err := s.send(&pb.Update{Path: "", IgnoreString: s.cfg.MountKey}); err != nil {
		return err
	}

	updates, err := s.watcher.PerformInitialScan()
	if err != nil {
		return err
	}

	for _, u := range updates {
		if ctx.Err() != nil {
			return nil
		}
		u.Local = true

		if err := queue.PutIncoming(ctx, s.queues.Incoming, queue.IncomingEvent{Update: u, Origin: queue.Local}); err != nil {
			return err
		}

		wire := u
		if isRegularFile(u) {
			seeded := *u
			seeded.Data = []byte(pb.InitialSyncMarker)
			wire = &seeded
		}
		if err := s.send(wire); err != nil {
			return err
		}
	}

	if err := s.send(&pb.Update{Path: "", ModTime: nowMillis(s.now)}); err != nil {
		return err
	}

	s.markLocalSeedSent()
	return nil
}

func isRegularFile(u *pb.Update) bool {
	return !u.GetIsDirectory() && u.GetSymlinkTarget() == "" && !u.GetDelete()
}

func nowMillis(now func() time.Time) int64 {
	return now().UnixNano() / int64(time.Millisecond)
}

func (s *Session) markLocalSeedSent() {
	s.seedMu.Lock()
	s.localSeedSent = true
	both := s.localSeedSent && s.remoteSeedArrived
	s.seedMu.Unlock()
	if both {
		s.reconcile()
	}
}

func (s *Session) markRemoteSeedComplete() {
	s.seedMu.Lock()
	first := !s.remoteSeedArrived
	s.remoteSeedArrived = true
	both := s.localSeedSent && s.remoteSeedArrived
	s.seedMu.Unlock()
	if first {
		log.WithField("session", s.ID).Debug("remote seed complete")
	}
	if both {
		s.reconcile()
	}
}

func (s *Session) reconcile() {
	if err := s.logic.DiffOnce(context.Background()); err != nil {
		log.WithError(err).WithField("session", s.ID).Warn("initial reconciliation pass failed")
	}
}
