// Package device provides Executor implementations: an in-memory device
// for tests, an OS-file-backed device, and a Badger-backed device. All of
// them return zeros for frames that were never written.
package device

import (
	"github.com/pkg/errors"

	"github.com/keks/framedrv"
)

// Mem is an in-memory frame device. It is the executor used by the test
// suites and by throwaway images.
type Mem struct {
	frames map[framedrv.FrameNumber][]byte

	// Fail, when non-nil, is consulted before every operation; a
	// non-nil result is reported as a device failure. Test hook.
	Fail func(op framedrv.Opcode, frame framedrv.FrameNumber) error
}

// NewMem returns an empty in-memory device.
func NewMem() *Mem {
	return &Mem{frames: make(map[framedrv.FrameNumber][]byte)}
}

// Execute implements framedrv.Executor.
func (d *Mem) Execute(buf []byte, op framedrv.Opcode, frame framedrv.FrameNumber) error {
	if d.Fail != nil {
		if err := d.Fail(op, frame); err != nil {
			return err
		}
	}

	switch op {
	case framedrv.OpInitMedia, framedrv.OpPowerOff:
		return nil

	case framedrv.OpZeroMedia:
		d.frames = make(map[framedrv.FrameNumber][]byte)
		return nil

	case framedrv.OpReadFrame:
		if len(buf) != framedrv.FrameSize {
			return errors.Errorf("mem: read buffer is %d bytes, want %d", len(buf), framedrv.FrameSize)
		}
		data, ok := d.frames[frame]
		if !ok {
			for i := range buf {
				buf[i] = 0
			}
			return nil
		}
		copy(buf, data)
		return nil

	case framedrv.OpWriteFrame:
		if len(buf) != framedrv.FrameSize {
			return errors.Errorf("mem: write buffer is %d bytes, want %d", len(buf), framedrv.FrameSize)
		}
		data := make([]byte, framedrv.FrameSize)
		copy(data, buf)
		d.frames[frame] = data
		return nil

	default:
		return errors.Errorf("mem: unknown opcode %d", op)
	}
}
