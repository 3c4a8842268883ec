package watch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRewriteSymlinkTargetRewritesAbsoluteInsideMount(t *testing.T) {
	got := rewriteSymlinkTarget("/mnt/dir", "/mnt/dir/foo.txt")
	assert.Equal(t, "foo.txt", got)
}

func TestRewriteSymlinkTargetLeavesRelativeUntouched(t *testing.T) {
	got := rewriteSymlinkTarget("/mnt/dir", "../elsewhere")
	assert.Equal(t, "../elsewhere", got)
}

func TestRewriteSymlinkTargetWalksUpToSibling(t *testing.T) {
	got := rewriteSymlinkTarget("/mnt/dir/nested", "/mnt/dir/other/foo.txt")
	assert.Equal(t, "../other/foo.txt", got)
}
