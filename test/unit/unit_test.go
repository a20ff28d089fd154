//go:build !integration
// +build !integration

package unit

import (
	"bytes"
	"fmt"
	"testing"

	aesd "github.com/ehrlich-b/go-aesd"
)

// Black-box scenario tests driving the public Device API end to end,
// without any TCP involvement.

func drain(t *testing.T, d *aesd.Device, h *aesd.Handle) []byte {
	t.Helper()
	var out []byte
	for {
		chunk, err := d.Read(h, 1024)
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if len(chunk) == 0 {
			return out
		}
		out = append(out, chunk...)
	}
}

// Write "abc\n": the log holds 4 bytes and one read returns them all.
func TestScenarioSingleCommand(t *testing.T) {
	d := aesd.NewDevice()
	h := d.Open()
	defer d.Close(h)

	if _, err := d.Write(h, []byte("abc\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if total := len(d.Snapshot()); total != 4 {
		t.Errorf("total bytes = %d, want 4", total)
	}

	chunk, err := d.Read(h, 1024)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(chunk) != "abc\n" {
		t.Errorf("Read %q, want abc\\n", chunk)
	}
}

// Write "ab" then "cd\n": one entry "abcd\n".
func TestScenarioSplitCommand(t *testing.T) {
	d := aesd.NewDevice()
	h := d.Open()
	defer d.Close(h)

	d.Write(h, []byte("ab"))
	d.Write(h, []byte("cd\n"))

	if got := drain(t, d, h); string(got) != "abcd\n" {
		t.Errorf("Read %q, want abcd\\n", got)
	}
}

// Eleven identical commands into a ten-slot log.
func TestScenarioWrapAround(t *testing.T) {
	d := aesd.NewDevice()
	h := d.Open()
	defer d.Close(h)

	for i := 0; i < 11; i++ {
		d.Write(h, []byte("x\n"))
	}

	snap := d.Snapshot()
	if len(snap) != 20 {
		t.Errorf("total bytes = %d, want 20", len(snap))
	}

	// Rewinding to command 0 lands on the second "x\n" ever pushed, and a
	// full drain yields all twenty bytes.
	if err := d.Control(h, aesd.SeekToCommand, aesd.SeekToCommandArg{}); err != nil {
		t.Fatalf("Control failed: %v", err)
	}
	got := drain(t, d, h)
	if !bytes.Equal(got, bytes.Repeat([]byte("x\n"), 10)) {
		t.Errorf("drain after rewind = %q", got)
	}
}

// Seek-to-command with an intra-command offset.
func TestScenarioSeekToCommandOffset(t *testing.T) {
	d := aesd.NewDevice()
	h := d.Open()
	defer d.Close(h)

	for _, line := range []string{"one\n", "two\n", "three\n"} {
		d.Write(h, []byte(line))
	}

	err := d.Control(h, aesd.SeekToCommand, aesd.SeekToCommandArg{WriteCmd: 1, WriteCmdOffset: 1})
	if err != nil {
		t.Fatalf("Control failed: %v", err)
	}
	if got := drain(t, d, h); string(got) != "wo\nthree\n" {
		t.Errorf("drain = %q, want wo\\nthree\\n", got)
	}
}

// The oldest-to-newest concatenation always equals the last ten
// terminator-delimited commands of the full input stream.
func TestScenarioRetentionProperty(t *testing.T) {
	for _, pushed := range []int{1, 5, 10, 11, 37} {
		d := aesd.NewDevice()
		h := d.Open()

		var want []byte
		for i := 0; i < pushed; i++ {
			line := fmt.Sprintf("command-%03d\n", i)
			d.Write(h, []byte(line))
			if i >= pushed-aesd.CapacityEntries {
				want = append(want, line...)
			}
		}

		if got := d.Snapshot(); !bytes.Equal(got, want) {
			t.Errorf("pushed=%d: log %q, want %q", pushed, got, want)
		}
		d.Close(h)
	}
}
