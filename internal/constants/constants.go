// Package constants holds the tunables shared across the log engine, the
// socket server, and the file-mirrored store.
package constants

import "time"

const (
	// CapacityEntries is the fixed number of most-recent write commands the
	// circular log retains. Overwrite-oldest kicks in once this many entries
	// are stored.
	CapacityEntries = 10

	// Terminator is the byte that ends a write command.
	Terminator = '\n'

	// DefaultPort is the TCP port the socket server listens on.
	DefaultPort = 9000

	// DefaultBacklog is the pending-connection backlog passed to listen(2).
	DefaultBacklog = 10

	// DefaultRecvBufferSize is the size of the buffer each worker recv()s into.
	DefaultRecvBufferSize = 1024

	// SeekDirectivePrefix is the ASCII prefix that marks an in-band seek
	// directive on the TCP stream.
	SeekDirectivePrefix = "AESDCHAR_IOCSEEKTO:"

	// DefaultDataFile is the conventional path for the optional
	// file-mirrored store. cmd/aesdsocket does not fall back to it: with no
	// -data flag the in-process Device is used and no file is written.
	DefaultDataFile = "/var/tmp/aesdsocketdata"
)

// DefaultTimestampInterval is how often the optional background task appends
// a timestamp record to a file-mirrored store.
const DefaultTimestampInterval = 10 * time.Second
