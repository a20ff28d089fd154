// Package store provides the file-mirrored Store implementation: the same
// bounded in-memory log engine as aesd.Device, with the log's current
// contents mirrored to a real file on disk after every mutation. This is
// the persisted-state build mode; the file exists for the benefit of
// external readers and is unlinked on shutdown.
package store

import (
	"bytes"
	"os"
	"sync"

	"github.com/natefinch/atomic"
	"golang.org/x/sys/unix"

	aesd "github.com/ehrlich-b/go-aesd"
	"github.com/ehrlich-b/go-aesd/internal/interfaces"
)

// FileBacked implements aesd.Store by delegating every operation to an
// in-process Device and rewriting the mirror file whenever a write lands.
// Index math (offsets, seek targets, entry boundaries) always runs against
// the in-memory log; the file is a mirror, never the source of truth.
type FileBacked struct {
	dev    *aesd.Device
	path   string
	logger interfaces.Logger

	// File-access mutex: serializes mirror rewrites around the file,
	// separately from the Device's own mutex.
	fileMu sync.Mutex
}

// New creates a FileBacked store mirroring to path. The mirror file is
// created (empty) immediately so external readers can open it right away.
func New(path string, logger interfaces.Logger) (*FileBacked, error) {
	fb := &FileBacked{
		dev:    aesd.NewDevice(),
		path:   path,
		logger: logger,
	}
	if err := fb.mirror(); err != nil {
		return nil, err
	}
	return fb, nil
}

// Device exposes the underlying in-process Device, mainly for metrics.
func (fb *FileBacked) Device() *aesd.Device {
	return fb.dev
}

// Path returns the mirror file path.
func (fb *FileBacked) Path() string {
	return fb.path
}

// Open creates a new Handle with its cursor at 0.
func (fb *FileBacked) Open() *aesd.Handle {
	return fb.dev.Open()
}

// Close releases a Handle.
func (fb *FileBacked) Close(h *aesd.Handle) {
	fb.dev.Close(h)
}

// Read copies up to max bytes from the entry under h's cursor.
func (fb *FileBacked) Read(h *aesd.Handle, max int) ([]byte, error) {
	return fb.dev.Read(h, max)
}

// Write pushes p through the Device, then rewrites the mirror file if the
// push completed any command. Mirror failures are logged, not returned: the
// in-memory log already holds the bytes and remains authoritative.
func (fb *FileBacked) Write(h *aesd.Handle, p []byte) (int, error) {
	n, err := fb.dev.Write(h, p)
	if err != nil {
		return n, err
	}
	if bytes.IndexByte(p, aesd.Terminator) >= 0 {
		if merr := fb.mirror(); merr != nil {
			if fb.logger != nil {
				fb.logger.Warn("mirror rewrite failed", "path", fb.path, "error", merr)
			}
		}
	}
	return n, nil
}

// Seek delegates to the Device.
func (fb *FileBacked) Seek(h *aesd.Handle, offset int64, whence aesd.Whence) (int64, error) {
	return fb.dev.Seek(h, offset, whence)
}

// Control delegates to the Device.
func (fb *FileBacked) Control(h *aesd.Handle, cmd aesd.ControlCmd, arg aesd.SeekToCommandArg) error {
	return fb.dev.Control(h, cmd, arg)
}

// mirror rewrites the mirror file with the log's current oldest-to-newest
// concatenation. The write goes through a temp file and an atomic rename,
// so an external reader never observes a torn file; the rename path fsyncs
// before committing.
func (fb *FileBacked) mirror() error {
	snap := fb.dev.Snapshot()

	fb.fileMu.Lock()
	defer fb.fileMu.Unlock()

	if err := atomic.WriteFile(fb.path, bytes.NewReader(snap)); err != nil {
		return aesd.WrapError("MIRROR", err)
	}
	return nil
}

// Remove unlinks the mirror file. Called at shutdown; a missing file is
// not an error.
func (fb *FileBacked) Remove() error {
	fb.fileMu.Lock()
	defer fb.fileMu.Unlock()

	if err := unix.Unlink(fb.path); err != nil && !os.IsNotExist(err) {
		return aesd.WrapError("UNLINK", err)
	}
	return nil
}

var _ aesd.Store = (*FileBacked)(nil)
