package tree

import (
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kelda-inc/pairsync/pkg/ignore"
	pb "github.com/kelda-inc/pairsync/pkg/proto/pairsync"
)

// NodeType is the derived type of a node's Update on one side.
type NodeType int

// The three node types an Update can represent.
const (
	TypeFile NodeType = iota
	TypeDirectory
	TypeSymlink
)

func typeOf(u *pb.Update) (NodeType, bool) {
	if u == nil {
		return 0, false
	}
	if u.GetIsDirectory() {
		return TypeDirectory, true
	}
	if u.GetSymlinkTarget() != "" {
		return TypeSymlink, true
	}
	return TypeFile, true
}

// Node is one entry in the UpdateTree, addressed by walking parent/children
// pointers from the root. Nodes are created on first reference and never
// removed within a session; deletion is represented as a tombstone Update,
// not node removal.
type Node struct {
	tree     *UpdateTree
	parent   *Node
	name     string
	children []*Node

	local  *pb.Update
	remote *pb.Update

	ignoreRules *ignore.Rules

	isDirty            bool
	hasDirtyDescendant bool

	shouldIgnoreSet bool
	shouldIgnore    bool
}

// Name is this node's single path component. The root's name is empty.
func (n *Node) Name() string { return n.name }

// Parent returns the parent node, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the node's children in insertion order. Do not mutate.
func (n *Node) Children() []*Node { return n.children }

// Path reconstructs the forward-slash separated path of this node by walking
// up to the root. The root's path is "".
func (n *Node) Path() string {
	var parts []string
	for cur := n; cur != nil && cur.parent != nil; cur = cur.parent {
		parts = append(parts, cur.name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

// Local returns the last known Update from the local side, with Path unset.
func (n *Node) Local() *pb.Update { return n.local }

// Remote returns the last known Update from the remote side, with Path unset.
func (n *Node) Remote() *pb.Update { return n.remote }

// LocalWithPath returns a copy of Local() with Path populated.
func (n *Node) LocalWithPath() *pb.Update { return n.withPath(n.local) }

// RemoteWithPath returns a copy of Remote() with Path populated.
func (n *Node) RemoteWithPath() *pb.Update { return n.withPath(n.remote) }

func (n *Node) withPath(u *pb.Update) *pb.Update {
	if u == nil {
		return nil
	}
	cp := *u
	cp.Path = n.Path()
	return &cp
}

// Type returns the node's derived type, preferring the local side and
// falling back to remote. It returns TypeFile, false if neither side has an
// Update yet (a synthetic placeholder ancestor).
func (n *Node) Type() (NodeType, bool) {
	if t, ok := typeOf(n.local); ok {
		return t, true
	}
	return typeOf(n.remote)
}

// IsDirectory reports whether the node is currently a directory on either
// side, preferring local.
func (n *Node) IsDirectory() bool {
	t, ok := n.Type()
	return ok && t == TypeDirectory
}

// setLocal applies the slot-write rules of §4.2 to the local slot and marks
// the node (and its ancestors) dirty.
func (n *Node) setLocal(u *pb.Update, now func() time.Time) {
	prior := n.local
	priorType, priorOk := typeOf(prior)
	wasDirectory := priorOk && priorType == TypeDirectory

	n.local = n.applySlotRules(prior, u, now)
	n.cascadeDeleteIfNeeded(wasDirectory, n.local, true)
	n.updateIgnoreRulesIfNeeded()
	n.markDirty()
}

// setRemote is the symmetric counterpart of setLocal.
func (n *Node) setRemote(u *pb.Update, now func() time.Time) {
	prior := n.remote
	priorType, priorOk := typeOf(prior)
	wasDirectory := priorOk && priorType == TypeDirectory

	n.remote = n.applySlotRules(prior, u, now)
	n.cascadeDeleteIfNeeded(wasDirectory, n.remote, false)
	n.updateIgnoreRulesIfNeeded()
	n.markDirty()
}

// applySlotRules implements the timestamp-adjustment portion of the §4.2
// slot-write rules and returns the Update to store, with Path cleared
// (invariant 3).
func (n *Node) applySlotRules(prior, incoming *pb.Update, now func() time.Time) *pb.Update {
	next := *incoming

	if prior != nil {
		if next.GetDelete() && next.GetModTime() == 0 {
			next.ModTime = prior.GetModTime()
		}

		priorType, _ := typeOf(prior)
		nextType, _ := typeOf(&next)
		if priorType == TypeDirectory && nextType == TypeDirectory {
			next.ModTime = prior.GetModTime()
		}

		if prior.GetDelete() && !next.GetDelete() && next.GetModTime() <= prior.GetModTime() {
			next.ModTime = prior.GetModTime() + minimumMillisPrecision
		}

		if !prior.GetDelete() && next.GetDelete() && next.GetModTime() < prior.GetModTime() {
			next.ModTime = prior.GetModTime() + minimumMillisPrecision
		}
	}

	next.Path = ""
	_ = now
	return &next
}

// cascadeDeleteIfNeeded implements: "if prior was a directory and new is
// not, OR new is a delete, cascade-mark all descendant nodes as deleted on
// the same side (preserving their prior modTime)."
func (n *Node) cascadeDeleteIfNeeded(wasDirectory bool, next *pb.Update, local bool) {
	nextType, nextOk := typeOf(next)
	stillDirectory := nextOk && nextType == TypeDirectory
	if !((wasDirectory && !stillDirectory) || next.GetDelete()) {
		return
	}
	for _, c := range n.children {
		var side *pb.Update
		if local {
			side = c.local
		} else {
			side = c.remote
		}
		if side == nil || side.GetDelete() {
			continue
		}
		tomb := *side
		tomb.Delete = true

		childWasDirectory := side.GetIsDirectory()
		if local {
			c.local = &tomb
		} else {
			c.remote = &tomb
		}
		c.cascadeDeleteIfNeeded(childWasDirectory, &tomb, local)
		c.markDirty()
	}
}

// getChild returns the child named name, creating it (and registering it in
// n.children) if it doesn't exist yet.
func (n *Node) getChild(name string) *Node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	child := &Node{tree: n.tree, parent: n, name: name}
	n.children = append(n.children, child)
	return child
}

func (n *Node) markDirty() {
	n.isDirty = true
	for cur := n.parent; cur != nil; cur = cur.parent {
		cur.hasDirtyDescendant = true
	}
}

func (n *Node) invalidateIgnoreCache() {
	n.shouldIgnoreSet = false
	for _, c := range n.children {
		c.invalidateIgnoreCache()
	}
}

// updateIgnoreRulesIfNeeded implements the ".gitignore changed" slot-write
// rule: when this node is named ".gitignore", its parent's ignore rule set
// is refreshed from whichever side just became newer, and the whole
// sibling subtree's memoized ShouldIgnore is invalidated.
func (n *Node) updateIgnoreRulesIfNeeded() {
	if n.name != ".gitignore" || n.parent == nil {
		return
	}
	if n.isLocalNewer() {
		n.parent.setIgnoreRules(n.local.GetIgnoreString())
	} else if n.isRemoteNewer() {
		n.parent.setIgnoreRules(n.remote.GetIgnoreString())
	}
}

func (n *Node) setIgnoreRules(text string) {
	if n.ignoreRules == nil {
		n.ignoreRules = ignore.New(text)
	} else {
		n.ignoreRules.SetRules(text)
	}
	n.invalidateIgnoreCache()
}

// ShouldIgnore reports whether this node is excluded from sync, per §4.3's
// ignore-inheritance rule: any ancestor's ignore verdict or ignore rules
// apply, then the mount-wide extra includes/excludes are applied on top.
// The result is memoized until a ".gitignore" in scope changes.
func (n *Node) ShouldIgnore() bool {
	if n.shouldIgnoreSet {
		return n.shouldIgnore
	}

	path := n.Path()
	debug := n.tree.config.shouldDebug(path)

	gitIgnored := false
	for cur := n.parent; cur != nil; cur = cur.parent {
		if cur.ShouldIgnore() {
			gitIgnored = true
			break
		}
		if cur.ignoreRules.HasAnyRules() {
			relative := strings.TrimPrefix(path, cur.Path())
			relative = strings.TrimPrefix(relative, "/")
			if cur.ignoreRules.Matches(relative, n.IsDirectory()) {
				if debug {
					log.WithField("path", path).WithField("ancestor", cur.Path()).
						Debug("ignored by ancestor .gitignore")
				}
				gitIgnored = true
				break
			}
		}
	}

	extraIncluded := n.tree.config.Includes.Matches(path, n.IsDirectory())
	extraExcluded := n.tree.config.Excludes.Matches(path, n.IsDirectory())

	n.shouldIgnore = (gitIgnored || extraExcluded) && !extraIncluded
	n.shouldIgnoreSet = true

	if debug {
		log.WithFields(log.Fields{
			"path":          path,
			"gitIgnored":    gitIgnored,
			"extraIncluded": extraIncluded,
			"extraExcluded": extraExcluded,
			"result":        n.shouldIgnore,
		}).Debug("shouldIgnore")
	}
	return n.shouldIgnore
}

// isLocalNewer and isRemoteNewer implement §4.2's newer-than comparison.
func (n *Node) isLocalNewer() bool  { return isNewer(n.local, n.remote, n.tree.now) }
func (n *Node) isRemoteNewer() bool { return isNewer(n.remote, n.local, n.tree.now) }

// IsLocalNewer reports whether the local side should win a sync decision.
func (n *Node) IsLocalNewer() bool { return n.isLocalNewer() }

// IsRemoteNewer reports whether the remote side should win a sync decision.
func (n *Node) IsRemoteNewer() bool { return n.isRemoteNewer() }

// SameType reports whether local and remote currently agree on node type. A
// side that has never been observed at all (nil, as opposed to a delete
// tombstone) imposes no conflict: there is nothing to retype away from, only
// a fresh create. A false result means a retype is in flight and both a
// delete and a create need to be queued (§4.3).
func (n *Node) SameType() bool {
	if n.local == nil || n.remote == nil {
		return true
	}
	aType, _ := typeOf(n.local)
	bType, _ := typeOf(n.remote)
	return aType == bType
}

// isNewer implements the exact comparison from §4.2: quantize both sides,
// let a same-modtime delete lose to a same-modtime live entry, then compare,
// suppressing no-op deletes and directory-mtime noise.
func isNewer(a, b *pb.Update, now func() time.Time) bool {
	if a == nil {
		return false
	}
	aTime := sanityCheckTimestamp(a.GetModTime(), now)
	var bTime int64
	if b != nil {
		bTime = sanityCheckTimestamp(b.GetModTime(), now)
	}

	if aTime == bTime && b != nil {
		aDeleteLoses := a.GetDelete() && !b.GetDelete()
		aLiveWins := !a.GetDelete() && b.GetDelete()
		if aDeleteLoses {
			return false
		}
		if aLiveWins {
			return true
		}
	}

	newer := aTime > bTime || b == nil
	noopDelete := a.GetDelete() && (b == nil || b.GetDelete())
	aType, _ := typeOf(a)
	bType, bOk := typeOf(b)
	dirModtimeNoise := !a.GetDelete() && aType == TypeDirectory && bOk && bType == TypeDirectory && b != nil && !b.GetDelete()
	return newer && !noopDelete && !dirModtimeNoise
}
