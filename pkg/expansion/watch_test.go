package expansion

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.yaml")
	require.NoError(t, os.WriteFile(path, []byte("keys:\n  - {key: a, source: a.json, address: \"0x1\"}\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tables := make(chan *Table, 4)
	done := make(chan error, 1)
	w := NewTableWatcher(path, nil)
	go func() { done <- w.Watch(ctx, func(t *Table) { tables <- t }) }()

	// let the watcher register before writing
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("ignored"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("keys: [broken"), 0o644))
	time.Sleep(300 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("keys:\n  - {key: b, source: b.json, address: \"0x2\"}\n"), 0o644))

	select {
	case tbl := <-tables:
		key, ok := tbl.KeyFor("0x2")
		assert.True(t, ok)
		assert.Equal(t, "b", key)
	case <-time.After(5 * time.Second):
		t.Fatal("table never reloaded")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestTableWatcher_MissingDirectory(t *testing.T) {
	w := NewTableWatcher(filepath.Join(t.TempDir(), "nope", "keys.yaml"), nil)
	err := w.Watch(context.Background(), func(*Table) {})
	assert.Error(t, err)
}
