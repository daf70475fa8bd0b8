// Package driver implements the file storage driver on top of a frame
// executor: the file and handle tables, the power lifecycle that loads and
// persists file metadata, and byte-addressed read/write/seek over
// frame-indexed device I/O. A frame cache sits between the driver and the
// executor; reads go through it and writes write through it.
//
// The driver is single-threaded by contract: callers serialize access.
package driver

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/keks/framedrv"
	"github.com/keks/framedrv/cache"
	"github.com/keks/framedrv/logging"
)

// file is a file table entry. The frame list always holds exactly
// ceil(size/FrameSize) frames and only ever grows.
type file struct {
	name   string
	size   int
	frames []framedrv.FrameNumber
}

// handle is an open-file record. Cursor state is per-handle; several
// handles may reference the same file.
type handle struct {
	file *file
	pos  int
	open bool
}

// Options configures a Driver.
type Options struct {
	// Executor is the device the driver runs on. Required.
	Executor framedrv.Executor

	// CacheCapacity is the frame cache entry count. Zero means the
	// cache default.
	CacheCapacity int

	// Logger receives lifecycle and open/close events. Nil means no
	// logging.
	Logger logging.Logger
}

// Driver is the public surface of the storage system. A Driver starts
// powered off; PowerOn loads the file table from the device and PowerOff
// persists it back. Every other operation requires a powered-on driver.
type Driver struct {
	exec  framedrv.Executor
	cache *cache.Cache
	log   logging.Logger

	on        bool
	files     []*file
	handles   []*handle
	freeFrame framedrv.FrameNumber
}

// New returns a powered-off driver.
func New(opt Options) (*Driver, error) {
	if opt.Executor == nil {
		return nil, errors.New("driver: nil executor")
	}

	c := cache.New()
	if opt.CacheCapacity != 0 {
		if err := c.SetCapacity(opt.CacheCapacity); err != nil {
			return nil, err
		}
	}

	log := opt.Logger
	if log == nil {
		log = logging.Noop()
	}

	return &Driver{
		exec:  opt.Executor,
		cache: c,
		log:   log.WithComponent("driver"),
	}, nil
}

// PowerOn starts the device, loads the file table from the metadata
// frames and initializes the frame cache. The driver is only marked on
// once every step has succeeded.
func (d *Driver) PowerOn() error {
	if d.on {
		return framedrv.ErrPoweredOn
	}

	if err := d.exec.Execute(nil, framedrv.OpInitMedia, 0); err != nil {
		return errors.Wrap(err, "init media")
	}

	files := make([]*file, 0, framedrv.MaxFiles)
	free := framedrv.FrameNumber(framedrv.MaxFiles)
	buf := make([]byte, framedrv.FrameSize)
	for slot := 0; slot < framedrv.MaxFiles; slot++ {
		if err := d.exec.Execute(buf, framedrv.OpReadFrame, framedrv.FrameNumber(slot)); err != nil {
			return errors.Wrapf(err, "read metadata frame %d", slot)
		}

		f, err := decodeMeta(buf, slot)
		if err != nil {
			return err
		}
		if f == nil {
			continue
		}

		files = append(files, f)
		for _, fn := range f.frames {
			if fn+1 > free {
				free = fn + 1
			}
		}
	}

	if err := d.cache.Initialize(); err != nil {
		return err
	}

	d.files = files
	d.handles = nil
	d.freeFrame = free
	d.on = true

	d.log.Info("power on: %d files, next free frame %d", len(files), free)
	return nil
}

// PowerOff shuts the cache down, writes every file's metadata back to its
// slot's frame, powers the device off and closes all handles.
func (d *Driver) PowerOff() error {
	if !d.on {
		return framedrv.ErrPoweredOff
	}

	if err := d.cache.Shutdown(); err != nil {
		return err
	}

	for slot := 0; slot < framedrv.MaxFiles; slot++ {
		var buf []byte
		if slot < len(d.files) {
			buf = encodeMeta(d.files[slot])
		} else {
			buf = make([]byte, framedrv.FrameSize)
		}
		if err := d.exec.Execute(buf, framedrv.OpWriteFrame, framedrv.FrameNumber(slot)); err != nil {
			return errors.Wrapf(err, "write metadata frame %d", slot)
		}
	}

	if err := d.exec.Execute(nil, framedrv.OpPowerOff, 0); err != nil {
		return errors.Wrap(err, "power off")
	}

	for _, h := range d.handles {
		h.open = false
	}
	d.handles = nil
	d.files = nil
	d.freeFrame = 0
	d.on = false

	d.log.Info("power off")
	return nil
}

// Open resolves name against the file table and returns a fresh handle
// with its cursor at zero. A missing file is created with zero size.
//
// Matching keeps the original driver's semantics: a stored name matches
// when the requested name is a prefix of it, so opening "a" can resolve
// to an existing file named "ab". Callers that need distinct files must
// use names that are not prefixes of each other.
func (d *Driver) Open(name string) (framedrv.Handle, error) {
	if !d.on {
		return -1, framedrv.ErrPoweredOff
	}
	if name == "" {
		return -1, errors.New("driver: empty file name")
	}
	if len(name) > framedrv.MaxNameLen {
		return -1, framedrv.ErrNameTooLong
	}
	if len(d.handles) >= framedrv.MaxHandles {
		return -1, framedrv.ErrHandleTableFull
	}

	var f *file
	for _, known := range d.files {
		if strings.HasPrefix(known.name, name) {
			f = known
			break
		}
	}

	if f == nil {
		if len(d.files) >= framedrv.MaxFiles {
			return -1, framedrv.ErrFileTableFull
		}
		f = &file{name: name}
		d.files = append(d.files, f)
		d.log.Debug("created %q", name)
	}

	d.handles = append(d.handles, &handle{file: f, open: true})
	h := framedrv.Handle(len(d.handles) - 1)

	d.log.Debug("open %q -> handle %d", f.name, h)
	return h, nil
}

// Close marks the handle closed. Closed is terminal: the handle cannot
// be reopened and every later operation on it fails.
func (d *Driver) Close(h framedrv.Handle) error {
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

	hd.open = false
	d.log.Debug("close handle %d", h)
	return nil
}

// Size returns the current size of the file the handle references.
func (d *Driver) Size(h framedrv.Handle) (int64, error) {
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

	return int64(hd.file.size), nil
}

// FileInfo describes a file table entry.
type FileInfo struct {
	Name   string
	Size   int64
	Frames int
}

// Files returns a snapshot of the file table.
func (d *Driver) Files() ([]FileInfo, error) {
	if !d.on {
		return nil, framedrv.ErrPoweredOff
	}

	infos := make([]FileInfo, len(d.files))
	for i, f := range d.files {
		infos[i] = FileInfo{
			Name:   f.name,
			Size:   int64(f.size),
			Frames: len(f.frames),
		}
	}
	return infos, nil
}

// CacheStats returns the frame cache's traffic counters.
func (d *Driver) CacheStats() cache.Stats {
	return d.cache.Stats()
}

func (d *Driver) handle(h framedrv.Handle) (*handle, error) {
	if int(h) < 0 || int(h) >= len(d.handles) {
		return nil, framedrv.ErrBadHandle
	}
	return d.handles[h], nil
}
