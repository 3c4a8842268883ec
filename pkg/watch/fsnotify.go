package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"github.com/kelda-inc/pairsync/pkg/errors"
	pb "github.com/kelda-inc/pairsync/pkg/proto/pairsync"
)

// FSNotifyWatcher recursively watches a real OS directory tree with
// fsnotify, adding and removing watches as subdirectories are created and
// removed. This generalizes the flat, statically-configured watch list the
// teacher's fswatch package builds for a fixed rule set into a dynamic
// watch set covering an entire mount.
type FSNotifyWatcher struct {
	root    string
	watcher *fsnotify.Watcher
	events  chan *pb.Update
}

// NewFSNotifyWatcher returns a watcher rooted at root.
func NewFSNotifyWatcher(root string) *FSNotifyWatcher {
	return &FSNotifyWatcher{
		root:   root,
		events: make(chan *pb.Update, 4096),
	}
}

// Events returns the channel changes are delivered on.
func (w *FSNotifyWatcher) Events() <-chan *pb.Update { return w.events }

// OnStart creates the underlying fsnotify.Watcher and recursively adds
// every directory beneath root.
func (w *FSNotifyWatcher) OnStart(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.WithContext(err, "create watcher")
	}
	w.watcher = watcher

	err = filepath.Walk(w.root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		w.watcher.Close() //nolint:errcheck
		return errors.WithContext(err, "add recursive watches")
	}
	return nil
}

// OnStop closes the underlying fsnotify.Watcher.
func (w *FSNotifyWatcher) OnStop() error {
	if w.watcher == nil {
		return nil
	}
	return w.watcher.Close()
}

// PerformInitialScan walks root once, metadata-only.
func (w *FSNotifyWatcher) PerformInitialScan() ([]*pb.Update, error) {
	var updates []*pb.Update
	err := filepath.Walk(w.root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == w.root {
			return nil
		}
		u, convErr := statToUpdate(w.root, path, fi)
		if convErr != nil {
			return convErr
		}
		updates = append(updates, u)
		return nil
	})
	if err != nil {
		return nil, errors.WithContext(err, "initial scan")
	}
	return updates, nil
}

// RunOneLoop blocks on the underlying fsnotify channels until one event has
// been handled (translated and forwarded), one watcher error has been
// logged, or ctx is canceled.
func (w *FSNotifyWatcher) RunOneLoop(ctx context.Context) (time.Duration, error) {
	select {
	case <-ctx.Done():
		return 0, nil
	case ev, ok := <-w.watcher.Events:
		if !ok {
			return 0, errors.ErrTransport
		}
		return 0, w.handle(ctx, ev)
	case err, ok := <-w.watcher.Errors:
		if !ok {
			return 0, errors.ErrTransport
		}
		log.WithError(err).Warn("fsnotify reported an error")
		return 0, nil
	}
}

func (w *FSNotifyWatcher) handle(ctx context.Context, ev fsnotify.Event) error {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return errors.WithContext(err, "normalize path")
	}
	rel = filepath.ToSlash(rel)

	fi, statErr := os.Lstat(ev.Name)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			u := &pb.Update{Path: rel, Delete: true, Local: true}
			return w.emit(ctx, u)
		}
		return errors.WithContext(statErr, "stat")
	}

	if fi.IsDir() && ev.Op&(fsnotify.Create) != 0 {
		if err := w.watcher.Add(ev.Name); err != nil {
			log.WithError(err).WithField("path", ev.Name).Warn("failed to watch new directory")
		}
	}

	u, err := statToUpdate(w.root, ev.Name, fi)
	if err != nil {
		return err
	}
	return w.emit(ctx, u)
}

func (w *FSNotifyWatcher) emit(ctx context.Context, u *pb.Update) error {
	select {
	case w.events <- u:
		return nil
	case <-ctx.Done():
		return nil
	}
}

func statToUpdate(root, path string, fi os.FileInfo) (*pb.Update, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil, errors.WithContext(err, "normalize path")
	}
	rel = filepath.ToSlash(rel)

	u := &pb.Update{
		Path:        rel,
		ModTime:     fi.ModTime().UnixNano() / int64(time.Millisecond),
		IsDirectory: fi.IsDir(),
		Local:       true,
	}

	if fi.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(path)
		if err != nil {
			return nil, errors.WithContext(err, "readlink")
		}
		u.SymlinkTarget = rewriteSymlinkTarget(filepath.Dir(path), target)
		return u, nil
	}

	if !fi.IsDir() {
		u.IsExecutable = fi.Mode()&0111 != 0
		if filepath.Base(path) == ".gitignore" {
			data, err := os.ReadFile(path)
			if err != nil {
				log.WithError(err).WithField("path", path).Warn("failed to read .gitignore")
			} else {
				u.IgnoreString = string(data)
			}
		}
	}
	return u, nil
}

// rewriteSymlinkTarget rewrites an absolute target to be relative to the
// symlink's parent directory. It does not check whether the target lies
// inside the mount: an absolute target outside it is rewritten the same way.
// Relative targets are returned unchanged.
func rewriteSymlinkTarget(parentDir, target string) string {
	if !filepath.IsAbs(target) {
		return target
	}
	rel, err := filepath.Rel(parentDir, target)
	if err != nil {
		return target
	}
	return filepath.ToSlash(rel)
}
