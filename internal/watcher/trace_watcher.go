package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a change is reported.
const DefaultDebounce = 500 * time.Millisecond

// Option configures a TraceWatcher.
type Option func(*traceWatcher)

// WithDebounce sets the quiet period. Non-positive values keep the default.
func WithDebounce(d time.Duration) Option {
	return func(tw *traceWatcher) {
		if d > 0 {
			tw.debounceTime = d
		}
	}
}

// WithLogger sets the logger for watcher warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(tw *traceWatcher) {
		if logger != nil {
			tw.logger = logger
		}
	}
}

// traceWatcher implements TraceWatcher. It watches the parent directory of each
// trace so that files replaced by rename, or not yet created, are still seen.
type traceWatcher struct {
	watcher       *fsnotify.Watcher
	files         map[string]bool      // Cleaned absolute trace paths
	debounceTime  time.Duration        // Quiet period before firing callback
	logger        *slog.Logger         // Warnings from the event loop
	callback      func(files []string) // Callback to invoke with changed files
	ctx           context.Context      // Context for lifecycle management
	cancel        context.CancelFunc   // Cancel function for internal context
	paused        bool                 // Whether watching is paused
	pausedMu      sync.RWMutex         // Protects paused flag
	accumulated   map[string]bool      // Accumulated file changes
	accumulatedMu sync.Mutex           // Protects accumulated map
	debounceTimer *time.Timer          // Current debounce timer
	timerMu       sync.Mutex           // Protects debounce timer
	stopOnce      sync.Once            // Ensures Stop() is idempotent
	doneCh        chan struct{}        // Signals watch goroutine has finished
}

// NewTraceWatcher creates a watcher for the given trace files.
// Each file's directory must exist; the file itself may appear later.
func NewTraceWatcher(files []string, opts ...Option) (TraceWatcher, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no trace files to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	tw := &traceWatcher{
		watcher:      watcher,
		files:        make(map[string]bool),
		debounceTime: DefaultDebounce,
		logger:       slog.New(slog.DiscardHandler),
		accumulated:  make(map[string]bool),
		doneCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(tw)
	}

	dirs := make(map[string]bool)
	for _, file := range files {
		abs, err := filepath.Abs(file)
		if err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to resolve %s: %w", file, err)
		}
		tw.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}

	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	return tw, nil
}

// Start begins watching for trace changes.
func (tw *traceWatcher) Start(ctx context.Context, callback func(files []string)) error {
	if callback == nil {
		return nil
	}

	tw.callback = callback
	tw.ctx, tw.cancel = context.WithCancel(ctx)

	go tw.watch()
	return nil
}

// Stop stops the watcher.
func (tw *traceWatcher) Stop() error {
	var err error
	tw.stopOnce.Do(func() {
		if tw.cancel != nil {
			tw.cancel()
			// Wait for goroutine to finish (only if Start() was called)
			<-tw.doneCh
		} else {
			close(tw.doneCh)
		}

		err = tw.watcher.Close()
	})
	return err
}

// Pause stops firing callbacks but continues accumulating events.
func (tw *traceWatcher) Pause() {
	tw.pausedMu.Lock()
	defer tw.pausedMu.Unlock()
	tw.paused = true
}

// Resume resumes firing callbacks. If events accumulated during pause, fires immediately.
func (tw *traceWatcher) Resume() {
	tw.pausedMu.Lock()
	wasPaused := tw.paused
	tw.paused = false
	tw.pausedMu.Unlock()

	if wasPaused {
		tw.flush()
	}
}

// watch is the main event loop.
func (tw *traceWatcher) watch() {
	defer close(tw.doneCh)

	fireCh := make(chan struct{}, 1)

	for {
		select {
		case <-tw.ctx.Done():
			tw.stopDebounceTimer()
			return

		case event, ok := <-tw.watcher.Events:
			if !ok {
				return
			}
			if !tw.shouldProcessEvent(event) {
				continue
			}

			tw.accumulatedMu.Lock()
			tw.accumulated[filepath.Clean(event.Name)] = true
			tw.accumulatedMu.Unlock()

			tw.resetDebounceTimer(fireCh)

		case <-fireCh:
			tw.pausedMu.RLock()
			paused := tw.paused
			tw.pausedMu.RUnlock()
			if !paused {
				tw.flush()
			}

		case err, ok := <-tw.watcher.Errors:
			if !ok {
				return
			}
			tw.logger.Warn("trace watcher error", "error", err)
		}
	}
}

// flush hands the accumulated files, sorted, to the callback.
func (tw *traceWatcher) flush() {
	tw.accumulatedMu.Lock()
	if len(tw.accumulated) == 0 {
		tw.accumulatedMu.Unlock()
		return
	}
	files := make([]string, 0, len(tw.accumulated))
	for file := range tw.accumulated {
		files = append(files, file)
	}
	tw.accumulated = make(map[string]bool)
	tw.accumulatedMu.Unlock()

	sort.Strings(files)
	if tw.callback != nil {
		tw.callback(files)
	}
}

// resetDebounceTimer resets the debounce timer, properly stopping the old one.
func (tw *traceWatcher) resetDebounceTimer(fireCh chan struct{}) {
	tw.timerMu.Lock()
	defer tw.timerMu.Unlock()

	if tw.debounceTimer != nil {
		tw.debounceTimer.Stop()
	}

	tw.debounceTimer = time.AfterFunc(tw.debounceTime, func() {
		select {
		case fireCh <- struct{}{}:
		default:
		}
	})
}

// stopDebounceTimer stops the debounce timer if it exists.
func (tw *traceWatcher) stopDebounceTimer() {
	tw.timerMu.Lock()
	defer tw.timerMu.Unlock()

	if tw.debounceTimer != nil {
		tw.debounceTimer.Stop()
		tw.debounceTimer = nil
	}
}

// shouldProcessEvent keeps writes and creates of watched trace files.
// Removal is ignored: there is nothing to rebuild from.
func (tw *traceWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return false
	}
	return tw.files[filepath.Clean(event.Name)]
}
