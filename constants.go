package aesd

import "github.com/ehrlich-b/go-aesd/internal/constants"

// Re-exported tunables for public API consumers.
const (
	CapacityEntries = constants.CapacityEntries
	Terminator      = constants.Terminator
	DefaultPort     = constants.DefaultPort
	DefaultBacklog  = constants.DefaultBacklog
	DefaultDataFile = constants.DefaultDataFile
)

// DefaultTimestampInterval is how often the optional background task
// appends a timestamp record to a file-mirrored store.
const DefaultTimestampInterval = constants.DefaultTimestampInterval
