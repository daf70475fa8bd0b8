package device

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/keks/framedrv"
)

func frameOf(b byte) []byte {
	return bytes.Repeat([]byte{b}, framedrv.FrameSize)
}

// exerciseDevice runs the contract every executor has to honor.
func exerciseDevice(t *testing.T, dev framedrv.Executor) {
	r := require.New(t)

	r.NoError(dev.Execute(nil, framedrv.OpInitMedia, 0))

	// Unwritten frames read as zeros.
	buf := make([]byte, framedrv.FrameSize)
	r.NoError(dev.Execute(buf, framedrv.OpReadFrame, 42))
	r.Equal(frameOf(0), buf)

	// Frames round-trip.
	r.NoError(dev.Execute(frameOf('a'), framedrv.OpWriteFrame, 42))
	r.NoError(dev.Execute(frameOf('b'), framedrv.OpWriteFrame, 7))

	r.NoError(dev.Execute(buf, framedrv.OpReadFrame, 42))
	r.Equal(frameOf('a'), buf)
	r.NoError(dev.Execute(buf, framedrv.OpReadFrame, 7))
	r.Equal(frameOf('b'), buf)

	// Overwrites stick.
	r.NoError(dev.Execute(frameOf('c'), framedrv.OpWriteFrame, 42))
	r.NoError(dev.Execute(buf, framedrv.OpReadFrame, 42))
	r.Equal(frameOf('c'), buf)

	// Wrongly sized buffers are rejected.
	r.Error(dev.Execute([]byte("short"), framedrv.OpReadFrame, 0))
	r.Error(dev.Execute([]byte("short"), framedrv.OpWriteFrame, 0))

	// Zeroing erases everything.
	r.NoError(dev.Execute(nil, framedrv.OpZeroMedia, 0))
	r.NoError(dev.Execute(buf, framedrv.OpReadFrame, 42))
	r.Equal(frameOf(0), buf)

	r.NoError(dev.Execute(nil, framedrv.OpPowerOff, 0))
}

func TestMem(t *testing.T) {
	exerciseDevice(t, NewMem())
}

func TestMemFaultHook(t *testing.T) {
	r := require.New(t)
	dev := NewMem()

	boom := errors.New("boom")
	dev.Fail = func(op framedrv.Opcode, frame framedrv.FrameNumber) error {
		if op == framedrv.OpWriteFrame && frame == 3 {
			return boom
		}
		return nil
	}

	r.NoError(dev.Execute(frameOf('x'), framedrv.OpWriteFrame, 2))
	r.ErrorIs(dev.Execute(frameOf('x'), framedrv.OpWriteFrame, 3), boom)
}

func TestFile(t *testing.T) {
	dev, err := OpenFile(filepath.Join(t.TempDir(), "test.img"))
	require.NoError(t, err)
	defer dev.Close()

	exerciseDevice(t, dev)
}

func TestFilePersists(t *testing.T) {
	r := require.New(t)
	path := filepath.Join(t.TempDir(), "persist.img")

	dev, err := OpenFile(path)
	r.NoError(err)
	r.NoError(dev.Execute(frameOf('p'), framedrv.OpWriteFrame, 5))
	r.NoError(dev.Execute(nil, framedrv.OpPowerOff, 0))
	r.NoError(dev.Close())

	dev, err = OpenFile(path)
	r.NoError(err)
	defer dev.Close()

	buf := make([]byte, framedrv.FrameSize)
	r.NoError(dev.Execute(buf, framedrv.OpReadFrame, 5))
	r.Equal(frameOf('p'), buf)
}

func TestBadger(t *testing.T) {
	dev, err := OpenBadger(t.TempDir())
	require.NoError(t, err)
	defer dev.Close()

	exerciseDevice(t, dev)
}

func TestBadgerPersists(t *testing.T) {
	r := require.New(t)
	dir := t.TempDir()

	dev, err := OpenBadger(dir)
	r.NoError(err)
	r.NoError(dev.Execute(frameOf('q'), framedrv.OpWriteFrame, 9))
	r.NoError(dev.Close())

	dev, err = OpenBadger(dir)
	r.NoError(err)
	defer dev.Close()

	buf := make([]byte, framedrv.FrameSize)
	r.NoError(dev.Execute(buf, framedrv.OpReadFrame, 9))
	r.Equal(frameOf('q'), buf)
}
