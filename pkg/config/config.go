// Package config assembles the per-mount configuration Session and the CLI
// share: which local directory syncs with which remote root, under which
// ignore rules.
package config

import (
	"regexp"

	"github.com/kelda-inc/pairsync/pkg/errors"
	"github.com/kelda-inc/pairsync/pkg/ignore"
	"github.com/kelda-inc/pairsync/pkg/tree"
)

// DefaultExcludes is the exclude rule set a mount uses when the caller
// supplies none (§6).
const DefaultExcludes = "target/\n"

var mountKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateMountKey reports an error if key does not match the wire format
// mount keys are required to have (§6).
func ValidateMountKey(key string) error {
	if !mountKeyPattern.MatchString(key) {
		return errors.New("mount key must match [A-Za-z0-9_-]+, got " + key)
	}
	return nil
}

// Mount describes one local<->remote sync relationship.
type Mount struct {
	// MountKey identifies this mount to the peer across reconnects. The
	// server keeps at most one live Session per MountKey (§4.7).
	MountKey string

	// LocalRoot is the absolute path on disk this side watches and writes.
	LocalRoot string

	// RemoteRoot is the path the peer resolves relative to its own root. It
	// is not read by the engine or sent to the peer; the wire protocol always
	// uses mount relative paths.
	RemoteRoot string

	// Includes and Excludes are additional gitignore-syntax rule sets
	// layered on top of any ".gitignore" files discovered in the tree
	// (§4.3). Includes take precedence over both.
	Includes *ignore.Rules
	Excludes *ignore.Rules

	// DebugPrefixes enables verbose ShouldIgnore logging for paths under any
	// of these prefixes.
	DebugPrefixes []string
}

// TreeConfig projects the ignore-relevant fields of m into a tree.Config.
func (m Mount) TreeConfig() tree.Config {
	return tree.Config{
		Includes:      m.Includes,
		Excludes:      m.Excludes,
		DebugPrefixes: m.DebugPrefixes,
	}
}
