package aesd

// Whence selects the reference point for Device.Seek, mirroring the
// start/current/end trio of POSIX lseek.
type Whence int

const (
	SeekStart Whence = iota
	SeekCurrent
	SeekEnd
)

// ControlCmd enumerates the control operations a Handle supports.
type ControlCmd int

const (
	// SeekToCommand repositions a handle's cursor to the base of the Nth
	// stored command plus a byte offset within it.
	SeekToCommand ControlCmd = iota
)

// SeekToCommandArg is the argument to the SeekToCommand control op: the
// zero-indexed position of a stored write command, and a byte offset
// within that command.
type SeekToCommandArg struct {
	WriteCmd       uint32
	WriteCmdOffset uint32
}
