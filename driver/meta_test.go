package driver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keks/framedrv"
)

func TestMetaRoundTrip(t *testing.T) {
	r := require.New(t)

	f := &file{
		name:   "notes.txt",
		size:   700,
		frames: []framedrv.FrameNumber{64, 65, 70},
	}

	buf := encodeMeta(f)
	r.Len(buf, framedrv.FrameSize)

	got, err := decodeMeta(buf, 3)
	r.NoError(err)
	r.Equal(f, got)
}

func TestMetaEmptySlot(t *testing.T) {
	r := require.New(t)

	got, err := decodeMeta(make([]byte, framedrv.FrameSize), 0)
	r.NoError(err)
	r.Nil(got)
}

func TestMetaZeroSizeFile(t *testing.T) {
	r := require.New(t)

	f := &file{name: "empty"}
	got, err := decodeMeta(encodeMeta(f), 1)
	r.NoError(err)
	r.Equal("empty", got.name)
	r.Equal(0, got.size)
	r.Empty(got.frames)
}

func TestMetaDetectsCorruption(t *testing.T) {
	r := require.New(t)

	f := &file{
		name:   "x",
		size:   10,
		frames: []framedrv.FrameNumber{64},
	}
	buf := encodeMeta(f)
	buf[5] ^= 0xff

	_, err := decodeMeta(buf, 7)
	r.ErrorIs(err, framedrv.ErrCorruptMeta)
}

func TestMetaRejectsInconsistentFrameCount(t *testing.T) {
	r := require.New(t)

	// A frame list that does not cover the size is corrupt even when
	// the checksum holds.
	f := &file{
		name:   "x",
		size:   600,
		frames: []framedrv.FrameNumber{64},
	}

	_, err := decodeMeta(encodeMeta(f), 0)
	r.ErrorIs(err, framedrv.ErrCorruptMeta)
}

func TestMetaMaxLengthName(t *testing.T) {
	r := require.New(t)

	name := ""
	for len(name) < framedrv.MaxNameLen {
		name += "n"
	}

	f := &file{name: name}
	got, err := decodeMeta(encodeMeta(f), 0)
	r.NoError(err)
	r.Equal(name, got.name)
}
