package plan

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitForSnapshot reads updates until cond holds or the timeout passes
func waitForSnapshot(t *testing.T, updates <-chan Snapshot, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case snap := <-updates:
			if cond(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timed out waiting for layout reload")
			return Snapshot{}
		}
	}
}

func TestWatchLayout_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "layout.yaml")
	require.NoError(t, os.WriteFile(path, []byte("furniture:\n  - id: a\n    type: chair\n    x: 100\n    y: 100\n"), 0644))

	s := newTestSession(t)
	updates, cancel := s.Subscribe()
	defer cancel()

	w, err := WatchLayout(path, s)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	require.NoError(t, os.WriteFile(path, []byte(
		"room:\n  width: 300\n  height: 300\n  type: office\n  style: loft\n"+
			"furniture:\n  - id: a\n    type: chair\n    x: 100\n    y: 100\n  - id: b\n    type: desk\n    x: 150\n    y: 200\n"), 0644))

	snap := waitForSnapshot(t, updates, func(s Snapshot) bool { return len(s.Furniture) == 2 })
	assert.Equal(t, 300.0, snap.Config.Width)
	assert.Equal(t, "b", snap.Furniture[1].ID)
}

func TestWatchLayout_IgnoresOtherFilesAndBadContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "layout.yaml")
	require.NoError(t, os.WriteFile(path, []byte("furniture: []\n"), 0644))

	s := newTestSession(t)
	require.NoError(t, s.ReplaceFurniture([]FurnitureItem{chairAt("keep", 100, 100)}))
	updates, cancel := s.Subscribe()
	defer cancel()

	w, err := WatchLayout(path, s)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("furniture: []\n"), 0644))
	require.NoError(t, os.WriteFile(path, []byte("furniture:\n  - type: piano\n"), 0644))

	// neither write may touch the session
	select {
	case snap := <-updates:
		t.Fatalf("unexpected reload: %+v", snap)
	case <-time.After(5 * layoutReloadDelay):
	}
	require.Len(t, s.Furniture(), 1)
	assert.Equal(t, "keep", s.Furniture()[0].ID)

	// a valid write afterwards still goes through
	require.NoError(t, os.WriteFile(path, []byte("furniture:\n  - id: new\n    type: lamp\n    x: 50\n    y: 50\n"), 0644))
	snap := waitForSnapshot(t, updates, func(s Snapshot) bool {
		return len(s.Furniture) == 1 && s.Furniture[0].ID == "new"
	})
	assert.Equal(t, KindLamp, snap.Furniture[0].Kind)
}

func TestWatchLayout_Close(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.yaml")
	require.NoError(t, os.WriteFile(path, []byte("furniture: []\n"), 0644))

	w, err := WatchLayout(path, newTestSession(t))
	require.NoError(t, err)
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close(), "second close is a no-op")
}

func TestWatchLayout_MissingDirectory(t *testing.T) {
	_, err := WatchLayout(filepath.Join(t.TempDir(), "missing", "layout.yaml"), newTestSession(t))
	assert.Error(t, err)
}
