package pagecache

import (
	"sync"
	"sync/atomic"

	"github.com/gogpu/pagecache/internal/bufpool"
	"github.com/gogpu/pagecache/span"
)

// Cache is the page-rendering cache a display layer draws from.
//
// A Cache owns one background rendering goroutine and, when an update
// callback is configured, one notifier goroutine. The display layer drives
// it frame by frame: FrameStart once per frame, then GetImages with the
// range being laid out. Pages inside the visible window (extended by one
// frame of history and the pre-warm margin) are rendered in the background;
// pages outside it are evicted eagerly, which is what bounds memory without
// an LRU structure.
//
// FrameStart, GetImages, SetDocument and Clear must all be called from the
// same goroutine. Close may be called from anywhere.
type Cache struct {
	shared *sharedState

	// pool recycles pixel buffers between the arena, evicted pages and
	// stale renders.
	pool *bufpool.Pool

	prewarm  int
	arenaCap int
	onUpdate func()

	// Frame bookkeeping, touched only by the display goroutine.
	thisFrame span.Span
	lastFrame span.Span
	frameGen  uint64

	// handedOut tracks images given to the display layer whose buffers may
	// still be referenced by an in-flight frame.
	handedOut map[*Image]struct{}

	rendered  atomic.Uint64
	discarded atomic.Uint64
	evicted   atomic.Uint64
	failed    atomic.Uint64

	closeOnce sync.Once

	// Closed when the respective goroutine has exited. Close does not wait
	// on them; tests do.
	workerDone   chan struct{}
	notifierDone chan struct{}
}

// New creates a cache and starts its background renderer. The cache is
// empty until SetDocument installs a document.
func New(opts ...Option) *Cache {
	o := defaultCacheOptions()
	for _, opt := range opts {
		opt(&o)
	}

	c := &Cache{
		shared:       newSharedState(),
		pool:         bufpool.New(o.poolPerBucket),
		prewarm:      o.prewarm,
		arenaCap:     o.arenaCapacity,
		onUpdate:     o.onUpdate,
		handedOut:    make(map[*Image]struct{}),
		workerDone:   make(chan struct{}),
		notifierDone: make(chan struct{}),
	}

	go c.backgroundWork()
	if c.onUpdate != nil {
		go c.foregroundWork()
	} else {
		close(c.notifierDone)
	}
	return c
}

// SetDocument replaces the active document and render configuration.
// All cached pages are dropped, the slot array is rebuilt for the new
// document's page count, and the frame tracking is reset. A nil doc leaves
// the cache empty.
func (c *Cache) SetDocument(doc Document, cfg Config) {
	s := c.shared
	s.mu.Lock()
	s.setDocumentLocked(doc, cfg)
	s.mu.Unlock()

	c.thisFrame = span.Empty
	c.lastFrame = span.Empty
}

// Clear removes the active document, leaving the cache empty.
func (c *Cache) Clear() {
	c.SetDocument(nil, DefaultConfig())
}

// FrameStart begins a display frame. It must be called exactly once per
// frame, before GetImages. Visibility tracked during the previous frame
// rotates into history, and buffers whose only remaining owner is the cache
// are recycled.
func (c *Cache) FrameStart() {
	c.lastFrame = c.thisFrame
	c.thisFrame = span.Empty
	c.frameGen++
	c.releaseUnreferenced()
}

// releaseUnreferenced recycles the buffers of handed-out images that are no
// longer cached and have not been handed out for two frames, meaning no
// live frame can still be displaying them.
func (c *Cache) releaseUnreferenced() {
	if len(c.handedOut) == 0 {
		return
	}

	s := c.shared
	s.mu.Lock()
	inSlot := make(map[*Image]struct{}, len(s.images))
	for _, img := range s.images {
		if img != nil {
			inSlot[img] = struct{}{}
		}
	}
	s.mu.Unlock()

	for img := range c.handedOut {
		if _, ok := inSlot[img]; ok {
			continue // still cached; may be handed out again
		}
		if img.gen+1 >= c.frameGen {
			continue // possibly still displayed by the previous frame
		}
		delete(c.handedOut, img)
		c.pool.Put(img.pm.data)
	}
}

// GetImages returns the cached images for the range of pages currently
// being laid out. The result always has length visible.Len(); nil entries
// are pages that are not rendered yet (or failed), for which the display
// layer shows a placeholder.
//
// Except for the singleton request [0,1) — which the display layer issues
// regardless of scroll position and is therefore ignored for tracking —
// the visible range is merged into this frame's window and the union with
// the previous frame's window becomes the requested range. Keeping one
// extra frame warm absorbs single-frame flicker during fast scrolling. A
// range that is not contiguous with what this frame already requested
// replaces it instead: disjoint requests within one frame are layout
// artifacts, not real visibility.
func (c *Cache) GetImages(visible span.Span) []*Image {
	s := c.shared
	s.mu.Lock()

	images := make([]*Image, visible.Len())
	if !visible.IsEmpty() && visible.Start >= 0 && visible.End <= len(s.images) {
		copy(images, s.images[visible.Start:visible.End])
	}
	// Out-of-bounds ranges (a stale request racing a document swap) yield
	// placeholders only.

	for _, img := range images {
		if img != nil {
			img.gen = c.frameGen
			c.handedOut[img] = struct{}{}
		}
	}

	if visible == span.Of(0, 1) {
		s.mu.Unlock()
		return images
	}

	if c.thisFrame.IsEmpty() || !span.Contiguous(c.thisFrame, visible) {
		c.thisFrame = visible
	} else {
		c.thisFrame = span.Union(c.thisFrame, visible)
	}

	s.requested = span.Union(c.thisFrame, c.lastFrame)

	if s.requested != s.acknowledged {
		s.wakeNotifierLocked()
		s.wakeWorker.Broadcast()
	}
	s.mu.Unlock()

	return images
}

// Close requests shutdown. Both background participants are woken
// unconditionally and observe the flag at their next blocking point, so
// neither can remain blocked; Close returns without joining them. An
// in-flight render finishes and is discarded. Close is idempotent and may
// be called from any goroutine.
func (c *Cache) Close() {
	c.closeOnce.Do(func() {
		s := c.shared
		s.mu.Lock()
		s.quit = true
		s.wakeNotifierLocked()
		s.mu.Unlock()
		s.wakeWorker.Broadcast()
	})
}
