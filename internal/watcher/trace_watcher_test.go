package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for TraceWatcher:
// - NewTraceWatcher succeeds for existing directories, even before the trace exists
// - NewTraceWatcher fails when the trace directory is missing or no files are given
// - Writing a trace fires the callback once after debounce
// - Rapid writes are coalesced into a single callback
// - Changes to other files in the directory are ignored
// - Pause accumulates, Resume fires immediately
// - Stop is idempotent and safe without Start

const testDebounce = 50 * time.Millisecond

func collect(t *testing.T, tw TraceWatcher) (<-chan []string, func()) {
	t.Helper()
	ch := make(chan []string, 10)
	require.NoError(t, tw.Start(context.Background(), func(files []string) {
		ch <- files
	}))
	return ch, func() { tw.Stop() }
}

func TestNewTraceWatcher_Success(t *testing.T) {
	t.Parallel()

	trace := filepath.Join(t.TempDir(), "vault_trace.txt")
	tw, err := NewTraceWatcher([]string{trace})
	require.NoError(t, err)
	require.NoError(t, tw.Stop())
}

func TestNewTraceWatcher_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewTraceWatcher(nil)
	assert.Error(t, err)

	_, err = NewTraceWatcher([]string{filepath.Join(t.TempDir(), "missing", "trace.txt")})
	assert.Error(t, err)
}

func TestTraceWatcher_WriteFiresCallback(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	trace := filepath.Join(dir, "trace.txt")

	tw, err := NewTraceWatcher([]string{trace}, WithDebounce(testDebounce))
	require.NoError(t, err)
	ch, stop := collect(t, tw)
	defer stop()

	require.NoError(t, os.WriteFile(trace, []byte("a.rs:1:a -> b.rs:2:b (call at 1:1)\n"), 0644))

	select {
	case files := <-ch:
		abs, _ := filepath.Abs(trace)
		assert.Equal(t, []string{abs}, files)
	case <-time.After(3 * time.Second):
		t.Fatal("callback not called")
	}
}

func TestTraceWatcher_Debounce(t *testing.T) {
	t.Parallel()

	trace := filepath.Join(t.TempDir(), "trace.txt")
	tw, err := NewTraceWatcher([]string{trace}, WithDebounce(200*time.Millisecond))
	require.NoError(t, err)
	ch, stop := collect(t, tw)
	defer stop()

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(trace, []byte{byte('a' + i), '\n'}, 0644))
		time.Sleep(20 * time.Millisecond)
	}

	select {
	case files := <-ch:
		assert.Len(t, files, 1)
	case <-time.After(3 * time.Second):
		t.Fatal("callback not called")
	}

	select {
	case <-ch:
		t.Fatal("expected a single coalesced callback")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestTraceWatcher_IgnoresOtherFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	trace := filepath.Join(dir, "trace.txt")
	tw, err := NewTraceWatcher([]string{trace}, WithDebounce(testDebounce))
	require.NoError(t, err)
	ch, stop := collect(t, tw)
	defer stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("x"), 0644))

	select {
	case files := <-ch:
		t.Fatalf("unexpected callback: %v", files)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestTraceWatcher_PauseResume(t *testing.T) {
	t.Parallel()

	trace := filepath.Join(t.TempDir(), "trace.txt")
	tw, err := NewTraceWatcher([]string{trace}, WithDebounce(testDebounce))
	require.NoError(t, err)
	ch, stop := collect(t, tw)
	defer stop()

	tw.Pause()
	require.NoError(t, os.WriteFile(trace, []byte("x\n"), 0644))

	select {
	case <-ch:
		t.Fatal("callback fired while paused")
	case <-time.After(300 * time.Millisecond):
	}

	tw.Resume()
	select {
	case files := <-ch:
		assert.Len(t, files, 1)
	case <-time.After(time.Second):
		t.Fatal("resume did not flush accumulated changes")
	}
}

func TestTraceWatcher_StopIdempotent(t *testing.T) {
	t.Parallel()

	tw, err := NewTraceWatcher([]string{filepath.Join(t.TempDir(), "trace.txt")})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tw.Stop()
		}()
	}
	wg.Wait()
}
