// Package interfaces provides internal interface definitions for go-aesd.
// These are separate from the public package's types to keep internal
// packages (server, store) free of a dependency on the full public API
// surface; only the shapes they actually need live here.
package interfaces

// Logger is satisfied by *logging.Logger; kept narrow so internal packages
// only depend on the methods they call.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Observer receives operation-level events from a Store. Implementations
// must be thread-safe: methods are called from whichever goroutine is
// driving a Handle at the time.
type Observer interface {
	ObserveRead(bytes uint64, latencyNs uint64, success bool)
	ObserveWrite(bytes uint64, latencyNs uint64, success bool)
	ObserveSeek(success bool)
	ObserveControl(success bool)
	ObserveConnection(accepted bool)
}
