// Package cache provides the bounded frame cache that sits between the
// driver and the device executor. It maps frame numbers to frame contents
// and evicts the least recently used entry under capacity pressure.
//
// Recency is a single logical clock: every hit and every put bumps a
// monotonically increasing counter and stamps the touched entry with it.
// Eviction scans for the minimum stamp, O(capacity) per eviction, which is
// fine for the small configured capacities this cache is meant for. Ties
// go to the lowest slot index.
//
// The cache does no I/O and is not safe for concurrent use; callers
// serialize access, as they do for the driver itself.
package cache

import (
	"github.com/pkg/errors"

	"github.com/keks/framedrv"
)

// DefaultCapacity is the entry count used when SetCapacity is never called.
const DefaultCapacity = 64

// invalidFrame marks a slot that holds no frame.
const invalidFrame = ^framedrv.FrameNumber(0)

var (
	// ErrRunning is returned by SetCapacity and Initialize on a cache
	// that is already initialized.
	ErrRunning = errors.New("cache: already initialized")

	// ErrNotRunning is returned by operations on an uninitialized cache.
	ErrNotRunning = errors.New("cache: not initialized")

	// ErrBadCapacity is returned by SetCapacity for capacities < 1.
	ErrBadCapacity = errors.New("cache: capacity must be positive")

	// ErrBadFrame is returned by Put when data is not exactly one frame.
	ErrBadFrame = errors.New("cache: data is not one frame")
)

type entry struct {
	frame  framedrv.FrameNumber
	access uint64
	data   [framedrv.FrameSize]byte
}

// Stats counts cache traffic since Initialize.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Cache is a fixed-capacity frame store with LRU eviction.
type Cache struct {
	capacity int
	slots    []entry

	// used is the insertion high-water mark: slots below it hold (or
	// held) an entry, slots at or above it have never been filled.
	used int

	// clock is bumped on every hit and every put; an entry's access
	// stamp is the clock value of its last touch.
	clock uint64

	stats Stats
}

// New returns an uninitialized cache with the default capacity.
func New() *Cache {
	return &Cache{capacity: DefaultCapacity}
}

// SetCapacity sets the maximum number of entries. It must be called
// before Initialize and fails once the cache is running.
func (c *Cache) SetCapacity(n int) error {
	if c.slots != nil {
		return ErrRunning
	}
	if n < 1 {
		return ErrBadCapacity
	}
	c.capacity = n
	return nil
}

// Initialize allocates the slots. All slots start invalid.
func (c *Cache) Initialize() error {
	if c.slots != nil {
		return ErrRunning
	}

	c.slots = make([]entry, c.capacity)
	for i := range c.slots {
		c.slots[i].frame = invalidFrame
	}

	c.used = 0
	c.clock = 0
	c.stats = Stats{}
	return nil
}

// Shutdown clears and releases all entries.
func (c *Cache) Shutdown() error {
	if c.slots == nil {
		return ErrNotRunning
	}
	c.slots = nil
	c.used = 0
	return nil
}

// Get returns a copy of the cached frame and bumps its recency. A miss
// returns (nil, nil); the only error is use before Initialize.
func (c *Cache) Get(frame framedrv.FrameNumber) ([]byte, error) {
	if c.slots == nil {
		return nil, ErrNotRunning
	}

	for i := 0; i < c.used; i++ {
		if c.slots[i].frame != frame {
			continue
		}
		c.clock++
		c.slots[i].access = c.clock
		c.stats.Hits++

		out := make([]byte, framedrv.FrameSize)
		copy(out, c.slots[i].data[:])
		return out, nil
	}

	c.stats.Misses++
	return nil, nil
}

// Put inserts or updates the entry for frame and makes it the most
// recently used. An existing entry is updated in place; otherwise the
// first never-used slot is filled, and when all slots are in use the
// entry with the minimum recency stamp is evicted (lowest index wins
// ties).
func (c *Cache) Put(frame framedrv.FrameNumber, data []byte) error {
	if c.slots == nil {
		return ErrNotRunning
	}
	if len(data) != framedrv.FrameSize {
		return ErrBadFrame
	}

	// Update in place if the frame is already cached.
	for i := 0; i < c.used; i++ {
		if c.slots[i].frame == frame {
			c.clock++
			c.slots[i].access = c.clock
			copy(c.slots[i].data[:], data)
			return nil
		}
	}

	i := c.used
	if i < c.capacity {
		c.used++
	} else {
		i = c.victim()
		c.stats.Evictions++
	}

	c.clock++
	c.slots[i] = entry{frame: frame, access: c.clock}
	copy(c.slots[i].data[:], data)
	return nil
}

// victim returns the index of the entry with the lowest recency stamp.
func (c *Cache) victim() int {
	min := c.slots[0].access
	idx := 0
	for i := 1; i < c.capacity; i++ {
		if c.slots[i].access < min {
			min = c.slots[i].access
			idx = i
		}
	}
	return idx
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	return c.used
}

// Stats returns traffic counters accumulated since Initialize.
func (c *Cache) Stats() Stats {
	return c.stats
}
