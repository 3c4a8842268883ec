// Package saveto implements the two terminal workers of the pipeline (§4.4,
// §4.5): SaveToLocal applies a decided Update to the local filesystem,
// SaveToRemote prepares one for transmission and hands it to the outgoing
// stream.
package saveto

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kelda-inc/pairsync/pkg/errors"
	"github.com/kelda-inc/pairsync/pkg/fsaccess"
	pb "github.com/kelda-inc/pairsync/pkg/proto/pairsync"
)

func modTimeToTime(ms int64) time.Time {
	return time.Unix(0, ms*int64(time.Millisecond))
}

// Local drains a decided-update queue and applies each one to the local
// filesystem through an Access, then reports the write back so the watcher's
// own echo of it can be suppressed.
type Local struct {
	access        fsaccess.Access
	queue         <-chan *pb.Update
	notifyWritten func(path string, modTime int64)
}

// NewLocal constructs a SaveToLocal worker. notifyWritten is called after
// every successful write with the path and modtime just applied; wire it to
// SyncLogic.NotifyWritten.
func NewLocal(access fsaccess.Access, queue <-chan *pb.Update, notifyWritten func(path string, modTime int64)) *Local {
	return &Local{access: access, queue: queue, notifyWritten: notifyWritten}
}

// Run applies updates from the queue until ctx is canceled.
func (l *Local) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u := <-l.queue:
			if err := l.Apply(u); err != nil {
				if errors.Is(err, errors.ErrInvariantViolation) {
					return err
				}
				log.WithError(err).WithField("path", u.Path).Error("failed to apply update locally")
			}
		}
	}
}

// Apply performs the single filesystem operation u describes. It is the
// hot path exercised directly by tests, without a queue in between.
func (l *Local) Apply(u *pb.Update) error {
	if u.GetDelete() {
		if err := l.access.Delete(u.Path, true); err != nil {
			return errors.WithContext(err, "delete")
		}
		// Watchers report deletions with a zero modtime; match that so the
		// echo window actually suppresses it.
		l.notify(u.Path, 0)
		return nil
	}

	if isBodyPlaceholder(u) {
		return errors.WithContext(errors.ErrInvariantViolation, "attempted to write an unresolved body placeholder to disk")
	}

	switch {
	case u.GetIsDirectory():
		if err := l.access.MkdirAll(u.Path); err != nil {
			return errors.WithContext(err, "mkdir")
		}
	case u.GetSymlinkTarget() != "":
		if err := l.access.CreateSymlink(u.Path, u.GetSymlinkTarget()); err != nil {
			return errors.WithContext(err, "symlink")
		}
	default:
		if err := l.access.WriteFile(u.Path, u.GetData(), u.GetIsExecutable()); err != nil {
			return errors.WithContext(err, "write")
		}
	}

	noFollow := u.GetSymlinkTarget() != ""
	if err := l.access.SetModifiedTime(u.Path, modTimeToTime(u.GetModTime()), noFollow); err != nil {
		return errors.WithContext(err, "set modtime")
	}
	l.notify(u.Path, u.GetModTime())
	return nil
}

func (l *Local) notify(path string, modTime int64) {
	if l.notifyWritten != nil {
		l.notifyWritten(path, modTime)
	}
}

func isBodyPlaceholder(u *pb.Update) bool {
	return !u.GetIsDirectory() && u.GetSymlinkTarget() == "" && string(u.GetData()) == pb.InitialSyncMarker
}
