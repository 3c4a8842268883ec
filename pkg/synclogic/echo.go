package synclogic

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// echoWindow is the time-bounded set of "recently written" (path, modTime)
// pairs SyncLogic checks a local-origin event against before feeding it to
// the tree, so that a write SaveToLocal just applied doesn't bounce back as
// a spurious new update (§4.3). The LRU cap is a belt-and-suspenders bound
// alongside the time-based expiry: a session that writes millions of files
// in a burst shouldn't grow this set unbounded even before entries expire.
type echoWindow struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	cache *lru.Cache
}

const defaultEchoCapacity = 4096

// defaultEchoTTL is a tuning parameter (§9's open question): long enough to
// absorb the round trip between a write and the watcher noticing it, short
// enough that a real edit to the same path shortly after isn't mistaken for
// an echo.
const defaultEchoTTL = 5 * time.Second

func newEchoWindow(ttl time.Duration, now func() time.Time) *echoWindow {
	if ttl <= 0 {
		ttl = defaultEchoTTL
	}
	if now == nil {
		now = time.Now
	}
	c, _ := lru.New(defaultEchoCapacity)
	return &echoWindow{ttl: ttl, now: now, cache: c}
}

func echoKey(path string, modTime int64) string {
	return fmt.Sprintf("%s@%d", path, modTime)
}

// Remember records that (path, modTime) was just written to the local
// filesystem by SaveToLocal.
func (w *echoWindow) Remember(path string, modTime int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cache.Add(echoKey(path, modTime), w.now().Add(w.ttl))
}

// IsEcho reports whether (path, modTime) matches an unexpired entry
// remembered by Remember.
func (w *echoWindow) IsEcho(path string, modTime int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	v, ok := w.cache.Get(echoKey(path, modTime))
	if !ok {
		return false
	}
	expiry := v.(time.Time)
	if w.now().After(expiry) {
		w.cache.Remove(echoKey(path, modTime))
		return false
	}
	return true
}
