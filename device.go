// Package aesd implements a bounded, append-only log of newline-delimited
// write commands, exposed as an in-process byte-stream Device and, via
// internal/server, a TCP line server.
package aesd

import (
	"sync"
	"time"

	"github.com/ehrlich-b/go-aesd/internal/constants"
	"github.com/ehrlich-b/go-aesd/internal/interfaces"
)

// Handle is per-opener state: a nonnegative byte cursor into the logical
// concatenation of the Device's Entries, oldest to newest.
type Handle struct {
	cursor int64
}

// Cursor returns the handle's current byte offset.
func (h *Handle) Cursor() int64 {
	return h.cursor
}

// Device is the singleton pairing of one CircularLog, one Framer, and the
// mutex guarding both.
type Device struct {
	mu       sync.Mutex
	log      *CircularLog
	framer   *Framer
	metrics  *Metrics
	observer interfaces.Observer
}

// NewDevice creates an empty Device using the default terminator byte and
// a metrics-backed observer.
func NewDevice() *Device {
	return NewDeviceWithObserver(nil)
}

// NewDeviceWithObserver creates an empty Device reporting operations to
// observer; a nil observer installs one backed by the Device's own Metrics.
func NewDeviceWithObserver(observer interfaces.Observer) *Device {
	metrics := NewMetrics()
	if observer == nil {
		observer = NewMetricsObserver(metrics)
	}
	return &Device{
		log:      NewCircularLog(),
		framer:   NewFramer(constants.Terminator),
		metrics:  metrics,
		observer: observer,
	}
}

// Metrics returns the Device's metrics instance.
func (d *Device) Metrics() *Metrics {
	return d.metrics
}

// Open creates a new Handle with its cursor at 0. Always succeeds.
func (d *Device) Open() *Handle {
	return &Handle{}
}

// Close releases a Handle. Device holds no per-Handle resources beyond the
// Handle itself; kept for Store-interface symmetry with store.FileBacked.
func (d *Device) Close(h *Handle) {}

// Read copies up to max bytes starting at h.cursor from the Entry it falls
// within. A single Read never crosses an Entry boundary; callers loop.
// Returns zero bytes at end of stream.
func (d *Device) Read(h *Handle, max int) ([]byte, error) {
	start := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, intra, ok := d.log.FindByOffset(h.cursor)
	if !ok {
		d.observer.ObserveRead(0, uint64(time.Since(start)), true)
		return nil, nil
	}

	entry := d.log.EntryAt(slot)
	n := len(entry) - int(intra)
	if n > max {
		n = max
	}
	out := make([]byte, n)
	copy(out, entry[intra:int(intra)+n])
	h.cursor += int64(n)

	d.observer.ObserveRead(uint64(n), uint64(time.Since(start)), true)
	return out, nil
}

// Write pushes p through the Framer, appending any newly completed Entries
// to the log. It returns the number of input bytes consumed — always
// len(p) unless an error occurs — and does not advance h.cursor.
func (d *Device) Write(h *Handle, p []byte) (int, error) {
	start := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()

	entries, err := d.framer.Push(p)
	if err != nil {
		d.observer.ObserveWrite(0, uint64(time.Since(start)), false)
		return 0, WrapError("WRITE", err)
	}

	for _, e := range entries {
		overwrote := d.log.Append(e)
		d.metrics.RecordAppend(overwrote)
	}

	d.observer.ObserveWrite(uint64(len(p)), uint64(time.Since(start)), true)
	return len(p), nil
}

// Seek computes a new cursor from whence and offset using TotalBytes() for
// SeekEnd, rejecting a negative or beyond-total-bytes result.
func (d *Device) Seek(h *Handle, offset int64, whence Whence) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	total := d.log.TotalBytes()
	var base int64
	switch whence {
	case SeekStart:
		base = 0
	case SeekCurrent:
		base = h.cursor
	case SeekEnd:
		base = total
	default:
		d.observer.ObserveSeek(false)
		return 0, NewError("SEEK", ErrCodeInvalidArgument, "unknown whence value")
	}

	newCursor := base + offset
	if newCursor < 0 || newCursor > total {
		d.observer.ObserveSeek(false)
		return 0, NewError("SEEK", ErrCodeInvalidArgument, "seek target out of range")
	}

	h.cursor = newCursor
	d.observer.ObserveSeek(true)
	return newCursor, nil
}

// Snapshot returns a copy of the log's current contents: the concatenation
// of all Entries, oldest to newest. Used by the file-mirrored store to
// rewrite its on-disk copy after a mutation.
func (d *Device) Snapshot() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]byte, 0, d.log.TotalBytes())
	d.log.ForeachOldestFirst(func(e Entry) {
		out = append(out, e...)
	})
	return out
}

// Control executes a control operation against h.
func (d *Device) Control(h *Handle, cmd ControlCmd, arg SeekToCommandArg) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch cmd {
	case SeekToCommand:
		entry, ok := d.log.NthEntry(int(arg.WriteCmd))
		if !ok {
			d.observer.ObserveControl(false)
			return NewError("CONTROL", ErrCodeInvalidArgument, "write_cmd index out of range")
		}
		if int64(arg.WriteCmdOffset) >= int64(len(entry)) {
			d.observer.ObserveControl(false)
			return NewError("CONTROL", ErrCodeInvalidArgument, "write_cmd_offset out of range")
		}
		h.cursor = d.log.BytesBefore(int(arg.WriteCmd)) + int64(arg.WriteCmdOffset)
		d.observer.ObserveControl(true)
		return nil
	default:
		d.observer.ObserveControl(false)
		return NewError("CONTROL", ErrCodeNotSupported, "unknown control command")
	}
}

var _ Store = (*Device)(nil)
