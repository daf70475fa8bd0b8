package device

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"

	"github.com/keks/framedrv"
)

// Badger is a frame device backed by a Badger key-value store, one entry
// per frame. Useful when the image should live in a store that already
// handles crash recovery.
type Badger struct {
	db *badger.DB
}

// OpenBadger opens or creates a Badger-backed device at dir.
func OpenBadger(dir string) (*Badger, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "open badger device")
	}
	return &Badger{db: db}, nil
}

// Close closes the underlying store.
func (d *Badger) Close() error {
	return d.db.Close()
}

func frameKey(frame framedrv.FrameNumber) []byte {
	return []byte(fmt.Sprintf("frame:%010d", frame))
}

// Execute implements framedrv.Executor.
func (d *Badger) Execute(buf []byte, op framedrv.Opcode, frame framedrv.FrameNumber) error {
	switch op {
	case framedrv.OpInitMedia:
		return nil

	case framedrv.OpPowerOff:
		return errors.Wrap(d.db.Sync(), "sync badger device")

	case framedrv.OpZeroMedia:
		return errors.Wrap(d.db.DropAll(), "zero badger device")

	case framedrv.OpReadFrame:
		if len(buf) != framedrv.FrameSize {
			return errors.Errorf("badger: read buffer is %d bytes, want %d", len(buf), framedrv.FrameSize)
		}
		err := d.db.View(func(txn *badger.Txn) error {
			item, err := txn.Get(frameKey(frame))
			if err == badger.ErrKeyNotFound {
				for i := range buf {
					buf[i] = 0
				}
				return nil
			}
			if err != nil {
				return err
			}
			return item.Value(func(val []byte) error {
				copy(buf, val)
				return nil
			})
		})
		return errors.Wrapf(err, "read frame %d", frame)

	case framedrv.OpWriteFrame:
		if len(buf) != framedrv.FrameSize {
			return errors.Errorf("badger: write buffer is %d bytes, want %d", len(buf), framedrv.FrameSize)
		}
		data := make([]byte, framedrv.FrameSize)
		copy(data, buf)
		err := d.db.Update(func(txn *badger.Txn) error {
			return txn.Set(frameKey(frame), data)
		})
		return errors.Wrapf(err, "write frame %d", frame)

	default:
		return errors.Errorf("badger: unknown opcode %d", op)
	}
}
