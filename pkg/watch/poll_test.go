package watch

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollWatcherInitialScan(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/mnt/dir", 0755))
	require.NoError(t, afero.WriteFile(fs, "/mnt/foo.txt", []byte("abc"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/mnt/dir/bar.txt", []byte("def"), 0644))

	w := NewPollWatcher(fs, "/mnt", 0)
	updates, err := w.PerformInitialScan()
	require.NoError(t, err)

	paths := map[string]bool{}
	for _, u := range updates {
		paths[u.Path] = true
		assert.True(t, u.Local)
	}
	assert.True(t, paths["dir"])
	assert.True(t, paths["foo.txt"])
	assert.True(t, paths["dir/bar.txt"])
}

func TestPollWatcherDetectsChangesAndDeletes(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/mnt/foo.txt", []byte("abc"), 0644))

	w := NewPollWatcher(fs, "/mnt", 0)
	_, err := w.PerformInitialScan()
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(fs, "/mnt/bar.txt", []byte("new"), 0644))
	require.NoError(t, fs.Remove("/mnt/foo.txt"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err = w.RunOneLoop(ctx)
	require.NoError(t, err)

	var got []string
	draining := true
	for draining {
		select {
		case u := <-w.Events():
			if u.Delete {
				got = append(got, u.Path+":delete")
			} else {
				got = append(got, u.Path)
			}
		default:
			draining = false
		}
	}
	assert.Contains(t, got, "bar.txt")
	assert.Contains(t, got, "foo.txt:delete")
}

func TestPollWatcherReadsGitignoreContents(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/mnt/.gitignore", []byte("*.log\n"), 0644))

	w := NewPollWatcher(fs, "/mnt", 0)
	updates, err := w.PerformInitialScan()
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, "*.log\n", updates[0].IgnoreString)
}
