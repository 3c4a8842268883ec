// Package tree implements the path-indexed UpdateTree: the per-side catalog
// of local and remote metadata that SyncLogic diffs to decide, per entry,
// which side wins.
package tree

import (
	"strings"
	"time"

	"github.com/kelda-inc/pairsync/pkg/errors"
	"github.com/kelda-inc/pairsync/pkg/ignore"
	pb "github.com/kelda-inc/pairsync/pkg/proto/pairsync"
)

// Config carries the mount-wide ignore configuration and debug settings a
// tree needs to answer ShouldIgnore.
type Config struct {
	Includes      *ignore.Rules
	Excludes      *ignore.Rules
	DebugPrefixes []string
}

func (c Config) shouldDebug(path string) bool {
	for _, prefix := range c.DebugPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// UpdateTree is a path-addressed store of Nodes. It is not safe for
// concurrent use: it is meant to be owned exclusively by a single SyncLogic
// worker.
type UpdateTree struct {
	root   *Node
	config Config
	now    func() time.Time
}

// New returns an UpdateTree rooted with both sides set to an empty
// directory at path "" (invariant 2).
func New(config Config) *UpdateTree {
	if config.Includes == nil {
		config.Includes = ignore.New("")
	}
	if config.Excludes == nil {
		config.Excludes = ignore.New("")
	}
	t := &UpdateTree{config: config, now: time.Now}
	t.root = &Node{tree: t, name: ""}
	t.root.local = &pb.Update{IsDirectory: true}
	t.root.remote = &pb.Update{IsDirectory: true}
	return t
}

// Root returns the root node.
func (t *UpdateTree) Root() *Node { return t.root }

// AddLocal records a locally-observed Update.
func (t *UpdateTree) AddLocal(u *pb.Update) error {
	return t.addUpdate(u, true)
}

// AddRemote records a remotely-observed Update.
func (t *UpdateTree) AddRemote(u *pb.Update) error {
	return t.addUpdate(u, false)
}

func (t *UpdateTree) addUpdate(u *pb.Update, local bool) error {
	if u == nil {
		return errors.New("nil update")
	}
	if strings.HasPrefix(u.Path, "/") || strings.HasSuffix(u.Path, "/") {
		return errors.MalformedPath{Path: u.Path, Reason: "must not start or end with a slash"}
	}
	if strings.Contains(u.Path, "..") {
		return errors.MalformedPath{Path: u.Path, Reason: "must not contain .."}
	}

	node := t.find(u.Path)
	if local {
		node.setLocal(u, t.now)
	} else {
		node.setRemote(u, t.now)
	}
	return nil
}

// Find navigates by path segment, creating any missing intermediate nodes
// (without populating local/remote) along the way.
func (t *UpdateTree) Find(path string) *Node {
	return t.find(path)
}

func (t *UpdateTree) find(path string) *Node {
	if path == "" {
		return t.root
	}
	cur := t.root
	for _, part := range strings.Split(path, "/") {
		cur = cur.getChild(part)
	}
	return cur
}

// VisitDirty walks the tree breadth-first from the root, invoking fn on
// every node whose isDirty flag is set, then clears that flag. It descends
// into a subtree only while hasDirtyDescendant is set, clearing that flag as
// it goes, so clean subtrees are skipped entirely. This is the hot path run
// after every incoming event.
func (t *UpdateTree) VisitDirty(fn func(*Node)) {
	t.bfs(func(n *Node) bool {
		if n.isDirty {
			fn(n)
			n.isDirty = false
		}
		cont := n.hasDirtyDescendant
		n.hasDirtyDescendant = false
		return cont
	})
}

// VisitAll walks every node in the tree unconditionally.
func (t *UpdateTree) VisitAll(fn func(*Node)) {
	t.bfs(func(n *Node) bool {
		fn(n)
		return true
	})
}

// Visit walks the tree, descending into a subtree only while pred returns
// true for the current node.
func (t *UpdateTree) Visit(pred func(*Node) bool) {
	t.bfs(pred)
}

func (t *UpdateTree) bfs(visit func(*Node) bool) {
	queue := []*Node{t.root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if visit(n) {
			queue = append(queue, n.children...)
		}
	}
}
