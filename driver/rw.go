package driver

import (
	"github.com/pkg/errors"

	"github.com/keks/framedrv"
)

// loadFrame returns the current contents of frame fn: a cache hit wins,
// otherwise the frame is read from the device. populate controls whether
// a device read also fills the cache; the read path populates on miss,
// the write path does not because it puts the modified frame after the
// device write instead.
func (d *Driver) loadFrame(fn framedrv.FrameNumber, populate bool) ([]byte, error) {
	data, err := d.cache.Get(fn)
	if err != nil {
		return nil, err
	}
	if data != nil {
		return data, nil
	}

	buf := make([]byte, framedrv.FrameSize)
	if err := d.exec.Execute(buf, framedrv.OpReadFrame, fn); err != nil {
		return nil, errors.Wrapf(err, "read frame %d", fn)
	}

	if populate {
		if err := d.cache.Put(fn, buf); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// Read copies up to len(p) bytes from the handle's cursor into p and
// advances the cursor by the amount copied. Requests are clamped to the
// bytes remaining before end-of-file; reading at end-of-file returns 0
// and no error. On a device failure the cursor is left unchanged.
func (d *Driver) Read(h framedrv.Handle, p []byte) (int, error) {
	if !d.on {
		return 0, framedrv.ErrPoweredOff
	}

	hd, err := d.handle(h)
	if err != nil {
		return 0, err
	}
	if !hd.open {
		return 0, framedrv.ErrClosedHandle
	}

	count := len(p)
	if rem := hd.file.size - hd.pos; count > rem {
		count = rem
	}

	pos := hd.pos
	copied := 0
	for copied < count {
		off := pos % framedrv.FrameSize
		fn := hd.file.frames[pos/framedrv.FrameSize]

		frame, err := d.loadFrame(fn, true)
		if err != nil {
			return 0, err
		}

		n := min(framedrv.FrameSize-off, count-copied)
		copy(p[copied:copied+n], frame[off:off+n])

		copied += n
		pos += n
	}

	hd.pos = pos
	return count, nil
}

// Write copies len(p) bytes from p to the file at the handle's cursor,
// extending the file as needed, and advances the cursor. Each touched
// frame is loaded first so a partial overwrite preserves the frame's
// untouched bytes, then written through: to the device unconditionally
// and to the cache. On failure the cursor and file size are left
// unchanged.
func (d *Driver) Write(h framedrv.Handle, p []byte) (int, error) {
	if !d.on {
		return 0, framedrv.ErrPoweredOff
	}

	hd, err := d.handle(h)
	if err != nil {
		return 0, err
	}
	if !hd.open {
		return 0, framedrv.ErrClosedHandle
	}

	count := len(p)
	if err := d.allocate(hd.file, hd.pos+count); err != nil {
		return 0, err
	}

	pos := hd.pos
	written := 0
	for written < count {
		off := pos % framedrv.FrameSize
		fn := hd.file.frames[pos/framedrv.FrameSize]

		frame, err := d.loadFrame(fn, false)
		if err != nil {
			return 0, err
		}

		n := min(framedrv.FrameSize-off, count-written)
		copy(frame[off:off+n], p[written:written+n])

		if err := d.exec.Execute(frame, framedrv.OpWriteFrame, fn); err != nil {
			return 0, errors.Wrapf(err, "write frame %d", fn)
		}
		if err := d.cache.Put(fn, frame); err != nil {
			return 0, err
		}

		written += n
		pos += n
	}

	hd.pos = pos
	if hd.file.size < pos {
		hd.file.size = pos
	}
	return count, nil
}

// Seek sets the handle's cursor. Positions beyond the current file size
// are rejected and leave the cursor unchanged.
func (d *Driver) Seek(h framedrv.Handle, pos int64) error {
	if !d.on {
		return framedrv.ErrPoweredOff
	}

	hd, err := d.handle(h)
	if err != nil {
		return err
	}
	if !hd.open {
		return framedrv.ErrClosedHandle
	}

	if pos < 0 || pos > int64(hd.file.size) {
		return framedrv.ErrSeekPastEnd
	}

	hd.pos = int(pos)
	return nil
}

// allocate extends f's frame list to cover upto bytes. All frames are
// allocated up front so a later device failure cannot leave the write
// half-allocated.
func (d *Driver) allocate(f *file, upto int) error {
	need := (upto + framedrv.FrameSize - 1) / framedrv.FrameSize
	if need <= len(f.frames) {
		return nil
	}
	if need > framedrv.MaxFramesPerFile {
		return framedrv.ErrFileTooLarge
	}

	for len(f.frames) < need {
		f.frames = append(f.frames, d.freeFrame)
		d.freeFrame++
	}
	return nil
}
