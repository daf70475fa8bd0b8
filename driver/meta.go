package driver

import (
	"bytes"
	"encoding/binary"

	xxhash "github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"

	"github.com/keks/framedrv"
)

// Each file slot owns one metadata frame, little-endian:
//
//	name      [32]byte  NUL-padded
//	size      uint32
//	count     uint16    number of frames
//	frames    [100]uint16
//	checksum  uint64    xxhash64 of everything before it, in the last 8 bytes
//
// An all-zero frame is an empty slot.
const (
	metaSizeOff   = framedrv.MaxNameLen
	metaCountOff  = metaSizeOff + 4
	metaFramesOff = metaCountOff + 2
	metaSumOff    = framedrv.FrameSize - 8
)

// encodeMeta serializes a file table entry into a metadata frame.
func encodeMeta(f *file) []byte {
	buf := make([]byte, framedrv.FrameSize)

	copy(buf[:framedrv.MaxNameLen], f.name)
	binary.LittleEndian.PutUint32(buf[metaSizeOff:], uint32(f.size))
	binary.LittleEndian.PutUint16(buf[metaCountOff:], uint16(len(f.frames)))
	for i, fn := range f.frames {
		binary.LittleEndian.PutUint16(buf[metaFramesOff+2*i:], uint16(fn))
	}

	binary.LittleEndian.PutUint64(buf[metaSumOff:], xxhash.Sum64(buf[:metaSumOff]))
	return buf
}

// decodeMeta parses a metadata frame. An empty slot decodes to (nil, nil).
func decodeMeta(buf []byte, slot int) (*file, error) {
	empty := true
	for _, b := range buf {
		if b != 0 {
			empty = false
			break
		}
	}
	if empty {
		return nil, nil
	}

	sum := binary.LittleEndian.Uint64(buf[metaSumOff:])
	if sum != xxhash.Sum64(buf[:metaSumOff]) {
		return nil, errors.Wrapf(framedrv.ErrCorruptMeta, "slot %d", slot)
	}

	name := string(bytes.TrimRight(buf[:framedrv.MaxNameLen], "\x00"))
	size := int(binary.LittleEndian.Uint32(buf[metaSizeOff:]))
	count := int(binary.LittleEndian.Uint16(buf[metaCountOff:]))

	if count > framedrv.MaxFramesPerFile || count != (size+framedrv.FrameSize-1)/framedrv.FrameSize {
		return nil, errors.Wrapf(framedrv.ErrCorruptMeta, "slot %d: size %d over %d frames", slot, size, count)
	}

	frames := make([]framedrv.FrameNumber, count)
	for i := range frames {
		frames[i] = framedrv.FrameNumber(binary.LittleEndian.Uint16(buf[metaFramesOff+2*i:]))
	}

	return &file{name: name, size: size, frames: frames}, nil
}
