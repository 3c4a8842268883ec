package saveto

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/kelda-inc/pairsync/pkg/errors"
	"github.com/kelda-inc/pairsync/pkg/fsaccess"
	pb "github.com/kelda-inc/pairsync/pkg/proto/pairsync"
)

// Remote drains a decided-update queue, reads a regular file's body from
// disk when the update doesn't already carry one, and hands the result to a
// sender wired to the outgoing gRPC stream.
type Remote struct {
	access fsaccess.Access
	queue  <-chan *pb.Update
	send   func(*pb.Update) error
}

// NewRemote constructs a SaveToRemote worker.
func NewRemote(access fsaccess.Access, queue <-chan *pb.Update, send func(*pb.Update) error) *Remote {
	return &Remote{access: access, queue: queue, send: send}
}

// Run applies updates from the queue until ctx is canceled.
func (r *Remote) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u := <-r.queue:
			if err := r.Apply(u); err != nil {
				log.WithError(err).WithField("path", u.Path).Error("failed to prepare update for remote")
			}
		}
	}
}

// Apply prepares u for the wire and sends it. A file that vanished between
// being diffed and being read is dropped silently, since the watcher will
// report its deletion on its own next.
func (r *Remote) Apply(u *pb.Update) error {
	out := *u
	isRegularFile := !out.GetDelete() && !out.GetIsDirectory() && out.GetSymlinkTarget() == ""

	if isRegularFile && len(out.Data) == 0 {
		data, err := r.access.ReadFile(out.Path)
		if err != nil {
			if _, vanished := err.(errors.FileVanished); vanished {
				log.WithField("path", out.Path).Debug("file vanished before its body could be read")
				return nil
			}
			return errors.WithContext(err, "read body")
		}
		out.Data = data
	}

	if r.send == nil {
		return errors.New("no sender configured")
	}
	return r.send(&out)
}
