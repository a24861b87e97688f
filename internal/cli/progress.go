package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// newByteBar creates a byte-count progress bar for reading an input of the given size.
func newByteBar(w io.Writer, size int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
	)
}

// trackedInput wraps a file input with a progress bar. Stdin and empty files are returned unchanged.
func trackedInput(r io.Reader, name string, w io.Writer, description string) (io.Reader, *progressbar.ProgressBar) {
	if name == "-" {
		return r, nil
	}
	info, err := os.Stat(name)
	if err != nil || info.Size() == 0 {
		return r, nil
	}
	bar := newByteBar(w, info.Size(), description)
	return io.TeeReader(r, bar), bar
}

// openInput opens a named input. "-" reads from the command's stdin.
func openInput(in io.Reader, name, what string) (io.Reader, func(), error) {
	if name == "-" {
		return in, func() {}, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open %s: %w", what, err)
	}
	return f, func() { f.Close() }, nil
}
