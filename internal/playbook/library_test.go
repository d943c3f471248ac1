package playbook

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const validDefYAML = `name: Sprint close
steps:
  - title: Close sprint task
    action: update_task_status
    fields:
      - label: Task
        value: Sprint board cleanup
      - label: New status
        value: done
`

func TestLibraryBuiltinsAvailable(t *testing.T) {
	lib := NewLibrary()
	_, ok := lib.Get("weekly review")
	assert.True(t, ok)
	assert.NotEmpty(t, lib.Names())
}

func TestLibraryLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sprint.yaml"), []byte(validDefYAML), 0644))
	// Invalid file is skipped, not fatal.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: Broken\nsteps: []\n"), 0644))
	// Non-yaml files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0644))

	lib := NewLibrary()
	require.NoError(t, lib.LoadDir(dir))

	def, ok := lib.Get("Sprint close")
	require.True(t, ok)
	assert.Len(t, def.Steps, 1)

	_, ok = lib.Get("Broken")
	assert.False(t, ok)
}

func TestLibraryLoadDirMissing(t *testing.T) {
	lib := NewLibrary()
	assert.Error(t, lib.LoadDir(filepath.Join(t.TempDir(), "nope")))
}

func TestLibraryMatch(t *testing.T) {
	lib := NewLibrary()

	def, ok := lib.Match("start the weekly review for my team")
	require.True(t, ok)
	assert.Equal(t, "Weekly review", def.Name)

	_, ok = lib.Match("create a task")
	assert.False(t, ok)
}

func TestWatcherReloadsOnChange(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	lib := NewLibrary()
	w, err := NewWatcher(lib, dir)
	require.NoError(t, err)
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "sprint.yaml"), []byte(validDefYAML), 0644))

	require.Eventually(t, func() bool {
		_, ok := lib.Get("Sprint close")
		return ok
	}, 3*time.Second, 25*time.Millisecond)

	require.NoError(t, w.Close())
}

func TestWatcherCloseWithoutStart(t *testing.T) {
	w, err := NewWatcher(NewLibrary(), t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, w.Close())
}
