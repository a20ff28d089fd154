package store

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	aesd "github.com/ehrlich-b/go-aesd"
)

func newTestStore(t *testing.T) (*FileBacked, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aesdsocketdata")
	fb, err := New(path, nil)
	require.NoError(t, err)
	return fb, path
}

func TestFileBackedCreatesEmptyMirror(t *testing.T) {
	_, path := newTestStore(t)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Empty(t, data)
}

func TestFileBackedMirrorsWrites(t *testing.T) {
	fb, path := newTestStore(t)

	h := fb.Open()
	defer fb.Close(h)

	_, err := fb.Write(h, []byte("one\n"))
	require.NoError(t, err)
	_, err = fb.Write(h, []byte("two\n"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "one\ntwo\n", string(data))
}

func TestFileBackedMirrorSkipsPartialCommands(t *testing.T) {
	fb, path := newTestStore(t)

	h := fb.Open()
	defer fb.Close(h)

	_, err := fb.Write(h, []byte("no newline yet"))
	require.NoError(t, err)

	// The mirror tracks completed commands only; the partial write stays in
	// the framer and on disk nothing changed.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Empty(t, data)

	_, err = fb.Write(h, []byte(" done\n"))
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "no newline yet done\n", string(data))
}

func TestFileBackedMirrorTracksEviction(t *testing.T) {
	fb, path := newTestStore(t)

	h := fb.Open()
	defer fb.Close(h)

	for i := 0; i < aesd.CapacityEntries+3; i++ {
		_, err := fb.Write(h, []byte(fmt.Sprintf("cmd%02d\n", i)))
		require.NoError(t, err)
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var want string
	for i := 3; i < aesd.CapacityEntries+3; i++ {
		want += fmt.Sprintf("cmd%02d\n", i)
	}
	require.Equal(t, want, string(data))
}

func TestFileBackedReadSeekControlDelegate(t *testing.T) {
	fb, _ := newTestStore(t)

	h := fb.Open()
	defer fb.Close(h)

	_, err := fb.Write(h, []byte("one\ntwo\n"))
	require.NoError(t, err)

	pos, err := fb.Seek(h, 4, aesd.SeekStart)
	require.NoError(t, err)
	require.Equal(t, int64(4), pos)

	chunk, err := fb.Read(h, 1024)
	require.NoError(t, err)
	require.Equal(t, "two\n", string(chunk))

	err = fb.Control(h, aesd.SeekToCommand, aesd.SeekToCommandArg{WriteCmd: 0, WriteCmdOffset: 1})
	require.NoError(t, err)
	chunk, err = fb.Read(h, 3)
	require.NoError(t, err)
	require.Equal(t, "ne\n", string(chunk))
}

func TestFileBackedRemove(t *testing.T) {
	fb, path := newTestStore(t)

	h := fb.Open()
	fb.Write(h, []byte("x\n"))
	fb.Close(h)

	require.NoError(t, fb.Remove())
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))

	// Removing twice is fine.
	require.NoError(t, fb.Remove())
}
