package watcher

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWatcherFiresOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocabulary.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pairs: []\n"), 0600))

	var calls atomic.Int32
	var got atomic.Value
	w, err := New(path, func(p string) {
		got.Store(p)
		calls.Add(1)
	})
	require.NoError(t, err)
	w.SetDebounce(20 * time.Millisecond)
	require.NoError(t, w.Start())
	defer func() { require.NoError(t, w.Stop()) }()

	require.NoError(t, os.WriteFile(path, []byte("pairs: [{name: x}]\n"), 0600))

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, w.Path(), got.Load())
}

func TestWatcherFiresOnCreate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")

	var calls atomic.Int32
	w, err := New(path, func(string) { calls.Add(1) })
	require.NoError(t, err)
	w.SetDebounce(20 * time.Millisecond)
	require.NoError(t, w.Start())
	defer func() { require.NoError(t, w.Stop()) }()

	require.NoError(t, os.WriteFile(path, []byte("{}"), 0600))
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")

	var calls atomic.Int32
	w, err := New(path, func(string) { calls.Add(1) })
	require.NoError(t, err)
	w.SetDebounce(10 * time.Millisecond)
	require.NoError(t, w.Start())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0600))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, w.Stop())

	assert.Zero(t, calls.Load())
}

func TestWatcherStopIdempotent(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "missing", "settings.json"), nil)
	require.NoError(t, err)

	require.NoError(t, w.Start())
	require.NoError(t, w.Start())
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}

func TestNewRejectsEmptyPath(t *testing.T) {
	_, err := New("", nil)
	assert.Error(t, err)
}
