// Package watch defines the abstract file-watcher capability SyncLogic
// consumes (§6), plus two concrete implementations: a polling watcher usable
// against any afero.Fs (including in-memory filesystems in tests), and a
// recursive fsnotify-backed watcher for real filesystems.
package watch

import (
	"context"
	"time"

	pb "github.com/kelda-inc/pairsync/pkg/proto/pairsync"
)

// Watcher is the abstract capability the engine consumes for observing one
// mount's local filesystem. Implementations are supplied at session
// construction; the engine never depends on a concrete backend.
type Watcher interface {
	// OnStart is called once before the first RunOneLoop.
	OnStart(ctx context.Context) error

	// OnStop releases any resources acquired by OnStart.
	OnStop() error

	// PerformInitialScan returns a metadata-only snapshot of the mount root:
	// every directory, regular file, and symlink beneath it (symlinks are
	// not followed). Regular files never carry Data; .gitignore files carry
	// IgnoreString.
	PerformInitialScan() ([]*pb.Update, error)

	// RunOneLoop is invoked repeatedly by the caller's task host. It may
	// poll or block, and should push any observed changes onto the channel
	// returned by Events before returning. The returned duration, if
	// non-zero, is a hint for how long the caller may wait before calling
	// RunOneLoop again.
	RunOneLoop(ctx context.Context) (time.Duration, error)

	// Events returns the channel on which observed changes are delivered.
	// Every Update on this channel has Local set to true.
	Events() <-chan *pb.Update
}

// Run drives w's task-host loop until ctx is canceled: OnStart, then
// RunOneLoop repeatedly (sleeping for the returned hint between calls),
// then OnStop.
func Run(ctx context.Context, w Watcher) error {
	if err := w.OnStart(ctx); err != nil {
		return err
	}
	defer w.OnStop() //nolint:errcheck

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		wait, err := w.RunOneLoop(ctx)
		if err != nil {
			return err
		}
		if wait > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait):
			}
		}
	}
}
