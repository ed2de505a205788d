// Package sink provides destinations for encoded frames.
package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/Skryldev/screen-streamer/core"
	apperrors "github.com/Skryldev/screen-streamer/errors"
)

// File writes each encoded frame to a numbered file under a root directory.
// Its Write method is a valid pipeline callback.
type File struct {
	rootDir     string
	prefix      string
	ext         string
	permissions os.FileMode

	seq     atomic.Uint64
	mu      sync.Mutex
	lastErr error
}

// NewFile creates a frame sink rooted at dir, naming files
// <prefix>-<seq>.<format extension>.
func NewFile(dir, prefix string, format core.Format, perm os.FileMode) (*File, error) {
	if perm == 0 {
		perm = 0o644
	}
	if prefix == "" {
		prefix = "frame"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryPipeline, "sink.mkdir", err)
	}
	return &File{
		rootDir:     dir,
		prefix:      prefix,
		ext:         extensionFor(format),
		permissions: perm,
	}, nil
}

// Write stores one encoded frame.  Errors are retained for LastError rather
// than returned, matching the pipeline callback signature.
func (f *File) Write(data []byte) {
	n := f.seq.Add(1)
	path := filepath.Join(f.rootDir, fmt.Sprintf("%s-%06d.%s", f.prefix, n, f.ext))
	if err := os.WriteFile(path, data, f.permissions); err != nil {
		f.mu.Lock()
		f.lastErr = apperrors.Wrap(apperrors.CategoryPipeline, "sink.write", err)
		f.mu.Unlock()
	}
}

// Frames returns how many frames have been handed to the sink.
func (f *File) Frames() uint64 { return f.seq.Load() }

// LastError returns the most recent write failure, or nil.
func (f *File) LastError() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

func extensionFor(format core.Format) string {
	switch format {
	case core.FormatPNG:
		return "png"
	case core.FormatJPEG:
		return "jpg"
	default:
		return "webp"
	}
}
