// Package arena provides a bulk-free allocation arena for containing memory
// retained by a black-box rasterizer.
//
// A rasterizer is handed an Arena for the duration of one rasterization call
// and draws every working buffer from it. Buffers the rasterizer frees
// normally are recycled immediately; whatever it forgets is reclaimed in one
// pass by FreeAll afterwards. The output pixel buffer is exempted with Forget
// before the sweep, since its ownership passes to the caller.
//
// The call sequence for one rasterization is always:
//
//	out := rasterize(page, cfg, a)
//	a.Forget(out)
//	a.FreeAll()
//
// This runs whether or not the rasterizer leaked, so the steady state is
// zero retained scratch memory.
//
// An Arena is not safe for concurrent use; each rendering goroutine owns its
// own.
package arena

import (
	"fmt"
	"unsafe"

	"github.com/gogpu/pagecache/internal/bufpool"
)

// DefaultCapacity is the default size of the allocation record table. It is
// sized for the working set of a single page rasterization.
const DefaultCapacity = 1024

// Backing supplies and recycles the raw buffers an Arena hands out.
// It must be safe for concurrent use when shared between arenas.
type Backing interface {
	// Get returns a zeroed buffer of exactly n bytes.
	Get(n int) []byte
	// Put recycles a buffer previously returned by Get.
	Put(buf []byte)
}

// record identifies one live allocation by the address of its first byte.
type record struct {
	ptr *byte
	buf []byte
}

// Arena tracks every allocation made during one rasterization call so that
// anything the rasterizer fails to free can be reclaimed in bulk.
//
// The record table has fixed capacity. Exceeding it means the capacity
// estimate for one page's allocations was wrong; that is a programming
// error, and Alloc panics rather than silently dropping records, because an
// untracked allocation would defeat the arena's purpose.
type Arena struct {
	backing Backing
	records []record
}

// Option configures an Arena during creation.
type Option func(*Arena)

// WithBacking sets the allocator the arena draws buffers from and recycles
// them to. By default each arena owns a private pool; sharing one backing
// between the arena and the image cache keeps evicted page buffers reusable
// for future renders.
func WithBacking(b Backing) Option {
	return func(a *Arena) {
		if b != nil {
			a.backing = b
		}
	}
}

// New creates an arena whose record table holds up to capacity live
// allocations. If capacity <= 0, DefaultCapacity is used.
func New(capacity int, opts ...Option) *Arena {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	a := &Arena{
		backing: bufpool.New(8),
		records: make([]record, 0, capacity),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Capacity returns the size of the record table.
func (a *Arena) Capacity() int {
	return cap(a.records)
}

// Live returns the number of currently tracked allocations.
func (a *Arena) Live() int {
	return len(a.records)
}

// LiveBytes returns the total size of currently tracked allocations.
func (a *Arena) LiveBytes() int {
	total := 0
	for _, r := range a.records {
		total += len(r.buf)
	}
	return total
}

// Alloc returns a zeroed buffer of n bytes and records it for the bulk
// sweep. Alloc panics when the record table is full (see Arena).
// Requests of zero or negative size return nil without recording.
func (a *Arena) Alloc(n int) []byte {
	if n <= 0 {
		return nil
	}
	if len(a.records) == cap(a.records) {
		panic(fmt.Sprintf("arena: allocation record table full (capacity %d)", cap(a.records)))
	}
	buf := a.backing.Get(n)
	a.records = append(a.records, record{ptr: unsafe.SliceData(buf), buf: buf})
	return buf
}

// Free recycles a buffer and drops its record if one exists. Buffers the
// arena never saw are recycled anyway, so well-behaved frees keep working
// when a rasterizer mixes tracked and untracked buffers.
//
// The caller must not use buf after Free returns.
func (a *Arena) Free(buf []byte) {
	if buf == nil {
		return
	}
	a.drop(buf)
	a.backing.Put(buf)
}

// Forget drops the record for a buffer without recycling it. Used to exempt
// the rasterizer's output pixels from FreeAll once their ownership has
// passed to the caller. Forgetting an untracked buffer is a no-op.
func (a *Arena) Forget(buf []byte) {
	if buf == nil {
		return
	}
	a.drop(buf)
}

// drop removes the record whose first-byte address matches buf, if any.
// Identity is by address, not by slice header, so a rasterizer may free a
// re-sliced view of an allocation.
func (a *Arena) drop(buf []byte) {
	ptr := unsafe.SliceData(buf)
	for i, r := range a.records {
		if r.ptr == ptr {
			last := len(a.records) - 1
			a.records[i] = a.records[last]
			a.records[last] = record{}
			a.records = a.records[:last]
			return
		}
	}
}

// FreeAll recycles every remaining tracked allocation in one pass and
// resets the record table. It returns the number of allocations and total
// bytes that were still live — everything the rasterizer leaked — and logs
// a warning when that is non-zero.
func (a *Arena) FreeAll() (leaked, leakedBytes int) {
	for i := range a.records {
		leakedBytes += len(a.records[i].buf)
		a.backing.Put(a.records[i].buf)
		a.records[i] = record{}
	}
	leaked = len(a.records)
	a.records = a.records[:0]

	if leaked > 0 {
		slogger().Warn("arena: reclaimed leaked allocations",
			"count", leaked,
			"bytes", leakedBytes)
	}
	return leaked, leakedBytes
}

// Reset drops all records without recycling their buffers. Use it only when
// the buffers' ownership has moved elsewhere wholesale; FreeAll is the
// normal end-of-render sweep.
func (a *Arena) Reset() {
	for i := range a.records {
		a.records[i] = record{}
	}
	a.records = a.records[:0]
}
