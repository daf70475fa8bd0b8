package device

import (
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/keks/framedrv"
)

// File is a frame device backed by a single OS file. Frame n lives at
// byte offset n*FrameSize.
type File struct {
	f *os.File
}

// OpenFile opens or creates a file-backed device at path.
func OpenFile(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "open device image")
	}
	return &File{f: f}, nil
}

// Close closes the underlying file.
func (d *File) Close() error {
	return d.f.Close()
}

// Execute implements framedrv.Executor.
func (d *File) Execute(buf []byte, op framedrv.Opcode, frame framedrv.FrameNumber) error {
	switch op {
	case framedrv.OpInitMedia:
		return nil

	case framedrv.OpPowerOff:
		return errors.Wrap(d.f.Sync(), "sync device image")

	case framedrv.OpZeroMedia:
		return errors.Wrap(d.f.Truncate(0), "truncate device image")

	case framedrv.OpReadFrame:
		if len(buf) != framedrv.FrameSize {
			return errors.Errorf("file: read buffer is %d bytes, want %d", len(buf), framedrv.FrameSize)
		}
		n, err := d.f.ReadAt(buf, int64(frame)*framedrv.FrameSize)
		if err != nil && err != io.EOF {
			return errors.Wrapf(err, "read frame %d", frame)
		}
		// Reads past the image's current end yield zeros.
		for i := n; i < len(buf); i++ {
			buf[i] = 0
		}
		return nil

	case framedrv.OpWriteFrame:
		if len(buf) != framedrv.FrameSize {
			return errors.Errorf("file: write buffer is %d bytes, want %d", len(buf), framedrv.FrameSize)
		}
		_, err := d.f.WriteAt(buf, int64(frame)*framedrv.FrameSize)
		return errors.Wrapf(err, "write frame %d", frame)

	default:
		return errors.Errorf("file: unknown opcode %d", op)
	}
}
