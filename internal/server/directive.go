package server

import (
	"bytes"
	"strconv"

	aesd "github.com/ehrlich-b/go-aesd"
	"github.com/ehrlich-b/go-aesd/internal/constants"
)

// ParseSeekDirective recognizes the in-band textual seek directive: a chunk
// beginning with "AESDCHAR_IOCSEEKTO:" followed by two unsigned decimal
// integers separated by a comma and an optional trailing terminator, e.g.
// "AESDCHAR_IOCSEEKTO:2,4\n". Any parse failure means the chunk is ordinary
// data and must be stored, so ok is false rather than an error.
func ParseSeekDirective(chunk []byte) (arg aesd.SeekToCommandArg, ok bool) {
	prefix := []byte(constants.SeekDirectivePrefix)
	if !bytes.HasPrefix(chunk, prefix) {
		return arg, false
	}

	rest := chunk[len(prefix):]
	if len(rest) > 0 && rest[len(rest)-1] == constants.Terminator {
		rest = rest[:len(rest)-1]
	}

	comma := bytes.IndexByte(rest, ',')
	if comma < 0 {
		return arg, false
	}

	cmd, err := strconv.ParseUint(string(rest[:comma]), 10, 32)
	if err != nil {
		return arg, false
	}
	off, err := strconv.ParseUint(string(rest[comma+1:]), 10, 32)
	if err != nil {
		return arg, false
	}

	return aesd.SeekToCommandArg{
		WriteCmd:       uint32(cmd),
		WriteCmdOffset: uint32(off),
	}, true
}
