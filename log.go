package aesd

import "github.com/ehrlich-b/go-aesd/internal/constants"

// Entry is one complete terminator-ended byte sequence stored in the log.
type Entry []byte

// CircularLog is a fixed-capacity, overwrite-oldest ring of Entries,
// iterated oldest-first starting at tail. Any necessary locking is the
// caller's responsibility; Device is the only caller.
type CircularLog struct {
	entries [constants.CapacityEntries]Entry
	head    int // next insertion slot
	tail    int // oldest valid slot
	full    bool
}

// NewCircularLog returns an empty CircularLog.
func NewCircularLog() *CircularLog {
	return &CircularLog{}
}

// Append stores entry at the head slot. If the log is already full, the
// entry at tail is released and tail advances by one slot. It reports
// whether an eviction occurred.
func (l *CircularLog) Append(entry Entry) (overwrote bool) {
	if l.full {
		l.entries[l.tail] = nil
		l.tail = (l.tail + 1) % constants.CapacityEntries
		overwrote = true
	}
	l.entries[l.head] = entry
	l.head = (l.head + 1) % constants.CapacityEntries
	l.full = l.head == l.tail
	return overwrote
}

// TotalBytes returns the sum of sizes of all valid Entries.
func (l *CircularLog) TotalBytes() int64 {
	var total int64
	l.ForeachOldestFirst(func(e Entry) {
		total += int64(len(e))
	})
	return total
}

// FindByOffset maps a nonnegative byte offset into the log slot and
// intra-entry offset it falls within. ok is false when offset is negative
// or not less than TotalBytes().
func (l *CircularLog) FindByOffset(offset int64) (slot int, intraOffset int64, ok bool) {
	if offset < 0 {
		return 0, 0, false
	}

	var running int64
	idx := l.tail
	for i := 0; i < constants.CapacityEntries; i++ {
		size := int64(len(l.entries[idx]))
		if offset < running+size {
			return idx, offset - running, true
		}
		running += size
		idx = (idx + 1) % constants.CapacityEntries
	}
	return 0, 0, false
}

// EntryAt returns the Entry stored at the given slot index.
func (l *CircularLog) EntryAt(slot int) Entry {
	return l.entries[slot]
}

// ForeachOldestFirst visits every slot starting at tail, oldest first,
// including empty slots; callers must skip zero-length entries themselves.
func (l *CircularLog) ForeachOldestFirst(visit func(Entry)) {
	idx := l.tail
	for i := 0; i < constants.CapacityEntries; i++ {
		visit(l.entries[idx])
		idx = (idx + 1) % constants.CapacityEntries
	}
}

// Count returns the number of occupied entry slots.
func (l *CircularLog) Count() int {
	if l.full {
		return constants.CapacityEntries
	}
	count := l.head - l.tail
	if count < 0 {
		count += constants.CapacityEntries
	}
	return count
}

// NthEntry returns the nth (0-indexed) entry in oldest-to-newest order
// among the occupied slots, used by the seek-to-command control op.
func (l *CircularLog) NthEntry(n int) (Entry, bool) {
	if n < 0 || n >= l.Count() {
		return nil, false
	}
	slot := (l.tail + n) % constants.CapacityEntries
	return l.entries[slot], true
}

// BytesBefore returns the sum of sizes of the n entries preceding the nth
// oldest-to-newest entry.
func (l *CircularLog) BytesBefore(n int) int64 {
	var total int64
	for i := 0; i < n; i++ {
		e, _ := l.NthEntry(i)
		total += int64(len(e))
	}
	return total
}
