package watcher

import "context"

// TraceWatcher monitors trace files for changes with debouncing and pause/resume support.
type TraceWatcher interface {
	// Start begins watching, calling callback with the debounced set of changed trace files.
	Start(ctx context.Context, callback func(files []string)) error

	// Stop stops the watcher and cleans up resources.
	Stop() error

	// Pause stops firing callbacks but continues accumulating events.
	Pause()

	// Resume resumes firing callbacks. If events accumulated during pause, fires immediately.
	Resume()
}
