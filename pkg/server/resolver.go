package server

import (
	"github.com/kelda-inc/pairsync/pkg/config"
	"github.com/kelda-inc/pairsync/pkg/errors"
)

// StaticResolver resolves mount keys against a fixed table, for a server
// that syncs a small, known set of mounts (e.g. the CLI's serve command).
type StaticResolver map[string]config.Mount

// Resolve implements MountResolver.
func (r StaticResolver) Resolve(mountKey string) (config.Mount, error) {
	mount, ok := r[mountKey]
	if !ok {
		return config.Mount{}, errors.New("unknown mount key: " + mountKey)
	}
	return mount, nil
}
