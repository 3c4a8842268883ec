// Package queue provides the bounded FIFO channels that wire together the
// filesystem, network, and tree stages (§5). Producers block on Put when a
// queue is full, which is the mechanism backpressure from a slow disk or a
// slow network propagates all the way back to the event source.
package queue

import (
	"context"

	"github.com/kelda-inc/pairsync/pkg/errors"
	pb "github.com/kelda-inc/pairsync/pkg/proto/pairsync"
)

// Origin identifies which side produced an incoming Update.
type Origin int

// The two possible origins of an incoming event.
const (
	Local Origin = iota
	Remote
)

func (o Origin) String() string {
	if o == Remote {
		return "remote"
	}
	return "local"
}

// IncomingEvent pairs an Update with the side that produced it.
type IncomingEvent struct {
	Update *pb.Update
	Origin Origin
}

// Default capacities, per §5. Incoming is sized to absorb a full initial
// scan of a large tree without blocking the watcher; the output queues are
// smaller since SaveToLocal/SaveToRemote are expected to drain promptly.
const (
	DefaultIncomingCapacity     = 1_000_000
	DefaultSaveToLocalCapacity  = 10_000
	DefaultSaveToRemoteCapacity = 10_000
)

// Queues is the set of three bounded FIFO channels connecting the watcher,
// SyncLogic, SaveToLocal, and SaveToRemote workers of one session. There is
// no separate outgoing queue: SaveToRemote sends on the stream directly.
type Queues struct {
	Incoming     chan IncomingEvent
	SaveToLocal  chan *pb.Update
	SaveToRemote chan *pb.Update
}

// New allocates a Queues with the given capacities. A capacity of 0 falls
// back to the corresponding Default* constant.
func New(incomingCap, saveToLocalCap, saveToRemoteCap int) *Queues {
	if incomingCap <= 0 {
		incomingCap = DefaultIncomingCapacity
	}
	if saveToLocalCap <= 0 {
		saveToLocalCap = DefaultSaveToLocalCapacity
	}
	if saveToRemoteCap <= 0 {
		saveToRemoteCap = DefaultSaveToRemoteCapacity
	}
	return &Queues{
		Incoming:     make(chan IncomingEvent, incomingCap),
		SaveToLocal:  make(chan *pb.Update, saveToLocalCap),
		SaveToRemote: make(chan *pb.Update, saveToRemoteCap),
	}
}

// PutIncoming blocks until ev is enqueued or ctx is done. Blocking on Put is what gives the system its
// backpressure: a slow SyncLogic worker eventually blocks the watcher.
func PutIncoming(ctx context.Context, q chan IncomingEvent, ev IncomingEvent) error {
	select {
	case q <- ev:
		return nil
	case <-ctx.Done():
		return errors.WithContext(ctx.Err(), "put incoming")
	}
}

// PutUpdate is the equivalent of PutIncoming for the two Update-typed output
// queues.
func PutUpdate(ctx context.Context, q chan *pb.Update, u *pb.Update) error {
	select {
	case q <- u:
		return nil
	case <-ctx.Done():
		return errors.WithContext(ctx.Err(), "put update")
	}
}

// Backlog reports how many items are currently queued in each of the three
// channels (§4.7's administrative query).
type Backlog struct {
	Incoming     int
	SaveToLocal  int
	SaveToRemote int
}

// Snapshot returns the current depth of each queue.
func (q *Queues) Snapshot() Backlog {
	return Backlog{
		Incoming:     len(q.Incoming),
		SaveToLocal:  len(q.SaveToLocal),
		SaveToRemote: len(q.SaveToRemote),
	}
}
