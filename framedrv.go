package framedrv // import "github.com/keks/framedrv"

import (
	"github.com/pkg/errors"
)

// Basic Types

// FrameSize is the size of a device frame in bytes. It is the unit of
// every device transfer; the executor never moves less than one frame.
const FrameSize = 256

// Layout limits. Frames 0..MaxFiles-1 are reserved for file metadata,
// one frame per file slot; data frames start at MaxFiles.
const (
	MaxFiles         = 64
	MaxHandles       = 64
	MaxFramesPerFile = 100
	MaxNameLen       = 32
)

// FrameNumber identifies a frame on the device.
type FrameNumber uint32

// Handle identifies an open file. Handles are allocated by Driver.Open
// and stay valid until the driver powers off.
type Handle int

// Executor Boundary

// Opcode selects the operation an Executor performs.
type Opcode uint8

const (
	// OpInitMedia prepares the device for use. No payload.
	OpInitMedia Opcode = iota

	// OpZeroMedia erases all frames. No payload. Legacy, unused by the
	// driver itself but kept for formatting tools.
	OpZeroMedia

	// OpReadFrame fills the buffer from the numbered frame.
	OpReadFrame

	// OpWriteFrame persists the buffer to the numbered frame.
	OpWriteFrame

	// OpPowerOff shuts the device down. No payload.
	OpPowerOff
)

// Executor is the device primitive the driver runs on. Execute
// synchronously transfers exactly one frame between buf and the numbered
// frame, or performs a control operation. buf must be nil for control
// opcodes and exactly FrameSize bytes for OpReadFrame and OpWriteFrame.
//
// Executors have no cache awareness; the driver layers its own cache on
// top. Reading a frame that was never written yields zeros.
type Executor interface {
	Execute(buf []byte, op Opcode, frame FrameNumber) error
}

// Errors

var (
	// ErrPoweredOn is returned by PowerOn when the driver is already on.
	ErrPoweredOn = errors.New("framedrv: already powered on")

	// ErrPoweredOff is returned by operations that need a powered-on driver.
	ErrPoweredOff = errors.New("framedrv: powered off")

	// ErrBadHandle is returned for handles the driver never issued.
	ErrBadHandle = errors.New("framedrv: no such handle")

	// ErrClosedHandle is returned for operations on a closed handle.
	ErrClosedHandle = errors.New("framedrv: handle is closed")

	// ErrSeekPastEnd is returned by Seek for positions beyond the file size.
	ErrSeekPastEnd = errors.New("framedrv: seek beyond end of file")

	// ErrFileTableFull is returned by Open when no file slot is free.
	ErrFileTableFull = errors.New("framedrv: file table full")

	// ErrHandleTableFull is returned by Open when no handle slot is free.
	ErrHandleTableFull = errors.New("framedrv: handle table full")

	// ErrFileTooLarge is returned by Write when a file would need more
	// than MaxFramesPerFile frames.
	ErrFileTooLarge = errors.New("framedrv: frame allocation exhausted")

	// ErrNameTooLong is returned by Open for names over MaxNameLen bytes.
	ErrNameTooLong = errors.New("framedrv: file name too long")

	// ErrCorruptMeta is returned by PowerOn when a metadata frame fails
	// its checksum.
	ErrCorruptMeta = errors.New("framedrv: corrupt metadata frame")
)
