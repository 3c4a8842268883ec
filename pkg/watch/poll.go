package watch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/kelda-inc/pairsync/pkg/errors"
	pb "github.com/kelda-inc/pairsync/pkg/proto/pairsync"
)

// DefaultPollInterval is how often PollWatcher rescans the mount when no
// faster backend is available.
const DefaultPollInterval = 500 * time.Millisecond

type scanEntry struct {
	isDirectory   bool
	modTime       int64
	symlinkTarget string
	isExecutable  bool
	ignoreString  string
}

// PollWatcher is a Watcher backed by repeated full-tree scans of an
// afero.Fs. It works against any afero backend, including afero.MemMapFs,
// which makes it the reference implementation exercised by tests; the
// fsnotify-backed watcher in fsnotify.go is preferred for production use
// against a real OS filesystem.
type PollWatcher struct {
	fs       afero.Fs
	root     string
	interval time.Duration
	events   chan *pb.Update

	mu   sync.Mutex
	prev map[string]scanEntry
}

// NewPollWatcher returns a PollWatcher rooted at root within fs, rescanning
// every interval (DefaultPollInterval if zero).
func NewPollWatcher(fs afero.Fs, root string, interval time.Duration) *PollWatcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &PollWatcher{
		fs:       fs,
		root:     root,
		interval: interval,
		events:   make(chan *pb.Update, 1024),
		prev:     map[string]scanEntry{},
	}
}

// OnStart is a no-op; PollWatcher needs no external resources.
func (w *PollWatcher) OnStart(ctx context.Context) error { return nil }

// OnStop closes the events channel.
func (w *PollWatcher) OnStop() error {
	close(w.events)
	return nil
}

// Events returns the channel changes are delivered on.
func (w *PollWatcher) Events() <-chan *pb.Update { return w.events }

// PerformInitialScan snapshots the mount and remembers it as the baseline
// future RunOneLoop calls diff against.
func (w *PollWatcher) PerformInitialScan() ([]*pb.Update, error) {
	entries, err := w.scan()
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.prev = entries
	w.mu.Unlock()

	updates := make([]*pb.Update, 0, len(entries))
	for _, path := range sortedPaths(entries) {
		updates = append(updates, entries[path].toUpdate(path, false))
	}
	return updates, nil
}

// RunOneLoop rescans the mount, diffs against the previous scan, and
// delivers any changes to Events before returning.
func (w *PollWatcher) RunOneLoop(ctx context.Context) (time.Duration, error) {
	entries, err := w.scan()
	if err != nil {
		return w.interval, err
	}

	w.mu.Lock()
	prev := w.prev
	w.prev = entries
	w.mu.Unlock()

	for _, path := range sortedPaths(entries) {
		e := entries[path]
		old, existed := prev[path]
		if existed && old == e {
			continue
		}
		u := e.toUpdate(path, false)
		select {
		case w.events <- u:
		case <-ctx.Done():
			return 0, nil
		}
	}
	for _, path := range sortedPaths(prev) {
		if _, stillThere := entries[path]; stillThere {
			continue
		}
		select {
		case w.events <- (&scanEntry{}).toUpdate(path, true):
		case <-ctx.Done():
			return 0, nil
		}
	}

	return w.interval, nil
}

// sortedPaths returns entries' keys in lexicographic order, so a directory's
// ".gitignore" (which sorts before ordinary file and directory names in the
// common case) is always delivered, and applied to the tree, ahead of its
// siblings within the same scan.
func sortedPaths(entries map[string]scanEntry) []string {
	paths := make([]string, 0, len(entries))
	for path := range entries {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func (e scanEntry) toUpdate(path string, deleted bool) *pb.Update {
	return &pb.Update{
		Path:          path,
		ModTime:       e.modTime,
		IsDirectory:   e.isDirectory,
		SymlinkTarget: e.symlinkTarget,
		IsExecutable:  e.isExecutable,
		Delete:        deleted,
		IgnoreString:  e.ignoreString,
		Local:         true,
	}
}

func (w *PollWatcher) scan() (map[string]scanEntry, error) {
	entries := map[string]scanEntry{}
	err := afero.Walk(w.fs, w.root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == w.root {
			return nil
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			return errors.WithContext(err, "normalize path")
		}
		rel = filepath.ToSlash(rel)

		entry := scanEntry{
			isDirectory: fi.IsDir(),
			modTime:     fi.ModTime().UnixNano() / int64(time.Millisecond),
		}
		switch {
		case fi.Mode()&os.ModeSymlink != 0:
			if reader, ok := w.fs.(afero.LinkReader); ok {
				if target, readErr := reader.ReadlinkIfPossible(path); readErr == nil {
					entry.symlinkTarget = rewriteSymlinkTarget(filepath.Dir(path), target)
				}
			}
		case !fi.IsDir():
			entry.isExecutable = fi.Mode()&0111 != 0
			if filepath.Base(path) == ".gitignore" {
				data, readErr := afero.ReadFile(w.fs, path)
				if readErr != nil {
					// Best-effort per §6: log-and-omit is the caller's job;
					// here we simply leave IgnoreString unset.
				} else {
					entry.ignoreString = string(data)
				}
			}
		}
		entries[rel] = entry
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.WithContext(err, "walk")
	}
	return entries, nil
}
