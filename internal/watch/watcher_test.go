package watch

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

const (
	waitFor  = 2 * time.Second
	tick     = 5 * time.Millisecond
	debounce = 20 * time.Millisecond
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestFileWatcher_ReportsWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o600))

	w, err := New(debounce, nil)
	require.NoError(t, err)

	var calls atomic.Int32
	require.NoError(t, w.Watch(path, func() { calls.Add(1) }))
	w.Start()
	w.Start()
	defer func() { assert.NoError(t, w.Stop()) }()

	// Several quick writes collapse into one callback.
	for range 3 {
		require.NoError(t, os.WriteFile(path, []byte("b"), 0o600))
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, tick)
	assert.Never(t, func() bool { return calls.Load() > 1 }, 5*debounce, tick)
}

func TestFileWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	w, err := New(debounce, nil)
	require.NoError(t, err)

	var calls atomic.Int32
	require.NoError(t, w.Watch(path, func() { calls.Add(1) }))
	w.Start()
	defer func() { assert.NoError(t, w.Stop()) }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x"), 0o600))
	assert.Never(t, func() bool { return calls.Load() > 0 }, 5*debounce, tick)

	// Created by rename, the way atomic saves land.
	tmp := filepath.Join(dir, "config.toml.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("y"), 0o600))
	require.NoError(t, os.Rename(tmp, path))
	require.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, tick)
}

func TestFileWatcher_Unwatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sound.wav")

	w, err := New(debounce, nil)
	require.NoError(t, err)

	var calls atomic.Int32
	require.NoError(t, w.Watch(path, func() { calls.Add(1) }))
	w.Unwatch(path)
	w.Start()
	defer func() { assert.NoError(t, w.Stop()) }()

	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	assert.Never(t, func() bool { return calls.Load() > 0 }, 5*debounce, tick)
}

func TestFileWatcher_CallbackPanicRecovered(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a")

	w, err := New(debounce, nil)
	require.NoError(t, err)

	var calls atomic.Int32
	require.NoError(t, w.Watch(path, func() {
		calls.Add(1)
		panic("bad callback")
	}))
	w.Start()
	defer func() { assert.NoError(t, w.Stop()) }()

	require.NoError(t, os.WriteFile(path, []byte("1"), 0o600))
	require.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, tick)

	require.NoError(t, os.WriteFile(path, []byte("2"), 0o600))
	require.Eventually(t, func() bool { return calls.Load() == 2 }, waitFor, tick)
}

func TestFileWatcher_MissingDirectory(t *testing.T) {
	w, err := New(0, nil)
	require.NoError(t, err)
	defer func() { assert.NoError(t, w.Stop()) }()

	err = w.Watch(filepath.Join(t.TempDir(), "missing", "file"), func() {})
	assert.Error(t, err)
}
