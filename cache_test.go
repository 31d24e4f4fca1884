package pagecache

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/pagecache/arena"
	"github.com/gogpu/pagecache/span"
)

// testDoc is a Document whose pages render tiny solid pixmaps and record
// every rasterization.
type testDoc struct {
	n      int
	marker uint8 // pixel value identifying this document's renders

	// gate, when non-nil, blocks every Rasterize until it is closed.
	gate chan struct{}
	// started, when non-nil, receives each page index as its render begins.
	started chan int

	failPages map[int]bool

	mu       sync.Mutex
	rendered []int
}

func newTestDoc(n int) *testDoc {
	return &testDoc{n: n, marker: 0x7F}
}

func (d *testDoc) NumPages() int          { return d.n }
func (d *testDoc) Page(index int) Page    { return &testPage{doc: d, index: index} }
func (d *testDoc) renderedIndices() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]int, len(d.rendered))
	copy(out, d.rendered)
	return out
}

func (d *testDoc) renderCount(index int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	count := 0
	for _, i := range d.rendered {
		if i == index {
			count++
		}
	}
	return count
}

type testPage struct {
	doc   *testDoc
	index int
}

func (p *testPage) Size() Size {
	return Size{Width: 100, Height: 50}
}

func (p *testPage) Rasterize(cfg Config, a *arena.Arena) (*Pixmap, error) {
	d := p.doc
	if d.started != nil {
		d.started <- p.index
	}
	if d.gate != nil {
		<-d.gate
	}

	d.mu.Lock()
	d.rendered = append(d.rendered, p.index)
	d.mu.Unlock()

	if d.failPages[p.index] {
		return nil, errors.New("deliberate rasterizer failure")
	}

	// A scratch buffer we "forget" to free; the cache's arena sweep must
	// reclaim it after every render.
	_ = a.Alloc(64)

	width, height := cfg.PixelSize(p.Size())
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}
	buf := a.Alloc(width * height * 4)
	for i := range buf {
		buf[i] = d.marker
	}
	return PixmapFromBuffer(width, height, buf)
}

// waitFor polls cond until it holds or the timeout elapses.
func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// cachedFlags snapshots which slots currently hold an image.
func cachedFlags(c *Cache) []bool {
	s := c.shared
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]bool, len(s.images))
	for i, img := range s.images {
		out[i] = img != nil
	}
	return out
}

// flagsEqual reports whether exactly the given indices are cached.
func flagsEqual(flags []bool, cached ...int) bool {
	want := make(map[int]bool, len(cached))
	for _, i := range cached {
		want[i] = true
	}
	for i, f := range flags {
		if f != want[i] {
			return false
		}
	}
	return true
}

// newIdleCache creates a cache and waits for its renderer to park, so that
// tests observe deterministic state transitions.
func newIdleCache(t *testing.T, opts ...Option) *Cache {
	t.Helper()
	c := New(opts...)
	t.Cleanup(c.Close)
	waitFor(t, 2*time.Second, "renderer idle", c.isIdle)
	return c
}

func TestSetDocumentResetsState(t *testing.T) {
	c := newIdleCache(t)
	doc := newTestDoc(10)
	c.SetDocument(doc, DefaultConfig())

	s := c.shared
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.requested != span.Empty || s.acknowledged != span.Empty {
		t.Errorf("requested = %v, acknowledged = %v, want both empty",
			s.requested, s.acknowledged)
	}
	if len(s.images) != 10 {
		t.Fatalf("len(images) = %d, want 10", len(s.images))
	}
	for i, img := range s.images {
		if img != nil {
			t.Errorf("slot %d non-nil after SetDocument", i)
		}
	}
}

func TestGetImagesLength(t *testing.T) {
	c := newIdleCache(t)
	doc := newTestDoc(5)
	c.SetDocument(doc, DefaultConfig())

	c.FrameStart()
	// Partially out of bounds: placeholders only, but correct length.
	images := c.GetImages(span.Of(3, 9))
	if len(images) != 6 {
		t.Fatalf("len(GetImages(3..9)) = %d, want 6", len(images))
	}
	for i, img := range images {
		if img != nil {
			t.Errorf("entry %d non-nil for out-of-bounds range", i)
		}
	}

	if got := c.GetImages(span.Empty); len(got) != 0 {
		t.Errorf("len(GetImages(empty)) = %d, want 0", len(got))
	}
}

// TestEndToEndDrain is the basic scenario: a 10-page document, pages 3..6
// visible for two consecutive frames. Once the renderer drains, exactly the
// wanted window (visible range pre-warmed by one page at the start) is
// cached and everything else is not.
func TestEndToEndDrain(t *testing.T) {
	c := newIdleCache(t)
	doc := newTestDoc(10)
	c.SetDocument(doc, DefaultConfig())

	c.FrameStart()
	c.GetImages(span.Of(3, 6))
	c.FrameStart()
	c.GetImages(span.Of(3, 6))

	waitFor(t, 2*time.Second, "window 2..6 cached", func() bool {
		return c.isIdle() && flagsEqual(cachedFlags(c), 2, 3, 4, 5)
	})

	// The display layer now sees pixels for the whole visible range.
	c.FrameStart()
	images := c.GetImages(span.Of(3, 6))
	for i, img := range images {
		if img == nil {
			t.Fatalf("page %d still nil after drain", 3+i)
		}
		if img.Width() != 100 || img.Height() != 50 {
			t.Errorf("page %d is %dx%d, want 100x50", 3+i, img.Width(), img.Height())
		}
	}

	if got := c.Stats().Rendered; got != 4 {
		t.Errorf("Stats().Rendered = %d, want 4", got)
	}
}

// TestWorkerRendersOnlyWanted checks the renderer never rasterizes an index
// outside the requested range extended by the one-page pre-warm, and never
// page 0 unless the request starts at or before 1.
func TestWorkerRendersOnlyWanted(t *testing.T) {
	c := newIdleCache(t)
	doc := newTestDoc(20)
	c.SetDocument(doc, DefaultConfig())

	c.FrameStart()
	c.GetImages(span.Of(5, 8))
	c.FrameStart()
	c.GetImages(span.Of(5, 8))

	waitFor(t, 2*time.Second, "window 4..8 cached", func() bool {
		return c.isIdle() && flagsEqual(cachedFlags(c), 4, 5, 6, 7)
	})

	for _, i := range doc.renderedIndices() {
		if i < 4 || i >= 8 {
			t.Errorf("rendered index %d outside wanted window [4,8)", i)
		}
	}
}

// TestPageZeroSpecialCase: the singleton request [0,1) is ignored for
// tracking, and page 0 is rendered only while the requested range starts at
// or before 1.
func TestPageZeroSpecialCase(t *testing.T) {
	c := newIdleCache(t)
	doc := newTestDoc(10)
	c.SetDocument(doc, DefaultConfig())

	c.FrameStart()
	// The virtual list always probes the first page; it must not pin it.
	c.GetImages(span.Of(0, 1))

	s := c.shared
	s.mu.Lock()
	requested := s.requested
	s.mu.Unlock()
	if requested != span.Empty {
		t.Fatalf("requested = %v after GetImages(0..1), want empty", requested)
	}

	c.GetImages(span.Of(5, 8))
	c.FrameStart()
	c.GetImages(span.Of(5, 8))

	waitFor(t, 2*time.Second, "window 4..8 cached without page 0", func() bool {
		return c.isIdle() && flagsEqual(cachedFlags(c), 4, 5, 6, 7)
	})

	// Scroll to the top: now page 0 is legitimately wanted.
	c.FrameStart()
	c.GetImages(span.Of(0, 3))
	c.FrameStart()
	c.GetImages(span.Of(0, 3))

	waitFor(t, 2*time.Second, "top window cached with page 0", func() bool {
		return c.isIdle() && flagsEqual(cachedFlags(c), 0, 1, 2)
	})

	if got := c.Stats().Evicted; got == 0 {
		t.Error("Stats().Evicted = 0, want > 0 after scrolling away")
	}
}

// TestNonContiguousRangeReplaces: a second, disjoint visible range within
// the same frame is a layout artifact; the requested range must exclude the
// earlier window instead of unioning across the gap.
func TestNonContiguousRangeReplaces(t *testing.T) {
	c := newIdleCache(t)
	doc := newTestDoc(20)
	c.SetDocument(doc, DefaultConfig())

	c.FrameStart()
	c.GetImages(span.Of(2, 5))
	c.GetImages(span.Of(12, 15))

	s := c.shared
	s.mu.Lock()
	requested := s.requested
	s.mu.Unlock()

	if requested != span.Of(12, 15) {
		t.Errorf("requested = %v, want [12,15)", requested)
	}
}

// TestContiguousRangesUnionWithinFrame: adjacent requests in one frame keep
// previously rendered pages cached.
func TestContiguousRangesUnionWithinFrame(t *testing.T) {
	c := newIdleCache(t)
	doc := newTestDoc(20)
	c.SetDocument(doc, DefaultConfig())

	c.FrameStart()
	c.GetImages(span.Of(2, 5))
	c.GetImages(span.Of(5, 9))

	s := c.shared
	s.mu.Lock()
	requested := s.requested
	s.mu.Unlock()

	if requested != span.Of(2, 9) {
		t.Errorf("requested = %v, want [2,9)", requested)
	}
}

// TestStaleRenderDiscarded: a render in flight when the document is swapped
// must never appear in the new document's slots.
func TestStaleRenderDiscarded(t *testing.T) {
	c := newIdleCache(t)

	oldDoc := newTestDoc(10)
	oldDoc.marker = 0x11
	oldDoc.gate = make(chan struct{})
	oldDoc.started = make(chan int, 8)
	c.SetDocument(oldDoc, DefaultConfig())

	c.FrameStart()
	c.GetImages(span.Of(4, 5))

	// Wait until a render of the old document is in flight.
	var inFlight int
	select {
	case inFlight = <-oldDoc.started:
	case <-time.After(2 * time.Second):
		t.Fatal("renderer never started a page of the old document")
	}

	newDoc := newTestDoc(10)
	newDoc.marker = 0x22
	c.SetDocument(newDoc, DefaultConfig())

	// Let the stale render finish.
	close(oldDoc.gate)

	waitFor(t, 2*time.Second, "stale render discarded", func() bool {
		return c.Stats().Discarded >= 1
	})

	s := c.shared
	s.mu.Lock()
	img := s.images[inFlight]
	s.mu.Unlock()
	if img != nil && img.Pixmap().Data()[0] == 0x11 {
		t.Errorf("old document's page %d committed into new document's slots", inFlight)
	}
}

// TestRasterizerFailure: a failing page stays uncached, is not retried in a
// tight loop, and is retried after leaving and re-entering the window.
func TestRasterizerFailure(t *testing.T) {
	c := newIdleCache(t)
	doc := newTestDoc(20)
	doc.failPages = map[int]bool{4: true}
	c.SetDocument(doc, DefaultConfig())

	c.FrameStart()
	c.GetImages(span.Of(4, 6))
	c.FrameStart()
	c.GetImages(span.Of(4, 6))

	waitFor(t, 2*time.Second, "window drained around the failing page", func() bool {
		return c.isIdle() && flagsEqual(cachedFlags(c), 3, 5)
	})

	if got := c.Stats().Failed; got != 1 {
		t.Fatalf("Stats().Failed = %d, want 1", got)
	}

	// The failing page must not be re-attempted while it stays wanted.
	time.Sleep(20 * time.Millisecond)
	if got := doc.renderCount(4); got != 1 {
		t.Fatalf("page 4 rasterized %d times while failed, want 1", got)
	}

	// Scroll away (evicts and clears the failure), then back.
	c.FrameStart()
	c.GetImages(span.Of(12, 15))
	c.FrameStart()
	c.GetImages(span.Of(12, 15))
	waitFor(t, 2*time.Second, "far window cached", func() bool {
		return c.isIdle() && flagsEqual(cachedFlags(c), 11, 12, 13, 14)
	})

	c.FrameStart()
	c.GetImages(span.Of(4, 6))
	c.FrameStart()
	c.GetImages(span.Of(4, 6))
	waitFor(t, 2*time.Second, "failing page re-attempted", func() bool {
		return doc.renderCount(4) == 2
	})
}

// TestClearEmptiesCache: Clear drops the document and all slots.
func TestClearEmptiesCache(t *testing.T) {
	c := newIdleCache(t)
	doc := newTestDoc(10)
	c.SetDocument(doc, DefaultConfig())

	c.FrameStart()
	c.GetImages(span.Of(3, 6))
	waitFor(t, 2*time.Second, "some pages cached", func() bool {
		return c.Stats().Rendered > 0
	})

	c.Clear()

	flags := cachedFlags(c)
	if len(flags) != 0 {
		t.Errorf("len(slots) = %d after Clear, want 0", len(flags))
	}
	c.FrameStart()
	for i, img := range c.GetImages(span.Of(0, 3)) {
		if img != nil {
			t.Errorf("entry %d non-nil after Clear", i)
		}
	}
}

// TestFrameRecycling: an image that left the cache and has not been handed
// out for two frames is released back to the buffer pool.
func TestFrameRecycling(t *testing.T) {
	c := newIdleCache(t)
	doc := newTestDoc(20)
	c.SetDocument(doc, DefaultConfig())

	c.FrameStart()
	c.GetImages(span.Of(3, 6))
	c.FrameStart()
	c.GetImages(span.Of(3, 6))
	waitFor(t, 2*time.Second, "window cached", func() bool {
		return c.isIdle() && flagsEqual(cachedFlags(c), 2, 3, 4, 5)
	})

	c.FrameStart()
	images := c.GetImages(span.Of(3, 6))
	img := images[0]
	if img == nil {
		t.Fatal("page 3 not cached after drain")
	}

	// Scroll far away; the old window is evicted.
	c.FrameStart()
	c.GetImages(span.Of(12, 15))
	c.FrameStart()
	c.GetImages(span.Of(12, 15))
	waitFor(t, 2*time.Second, "old window evicted", func() bool {
		return c.isIdle() && flagsEqual(cachedFlags(c), 11, 12, 13, 14)
	})

	// Two more frames without handing the image out: its buffer is no
	// longer owned by any frame and must be recycled.
	c.FrameStart()
	c.GetImages(span.Of(12, 15))
	c.FrameStart()

	if _, tracked := c.handedOut[img]; tracked {
		t.Error("image still tracked after leaving cache and display")
	}
	if c.pool.Len() == 0 {
		t.Error("pool empty; evicted image's buffer was not recycled")
	}
}

// TestCloseTerminatesBackground: Close must wake both the renderer and the
// notifier; neither may remain blocked.
func TestCloseTerminatesBackground(t *testing.T) {
	c := New(WithOnUpdate(func() {}))
	doc := newTestDoc(10)
	c.SetDocument(doc, DefaultConfig())
	c.FrameStart()
	c.GetImages(span.Of(3, 6))

	c.Close()

	select {
	case <-c.workerDone:
	case <-time.After(2 * time.Second):
		t.Fatal("renderer did not terminate after Close")
	}
	select {
	case <-c.notifierDone:
	case <-time.After(2 * time.Second):
		t.Fatal("notifier did not terminate after Close")
	}

	// Close is idempotent.
	c.Close()
}

func TestStatsCounters(t *testing.T) {
	c := newIdleCache(t)
	doc := newTestDoc(10)
	c.SetDocument(doc, DefaultConfig())

	c.FrameStart()
	c.GetImages(span.Of(3, 6))
	c.FrameStart()
	c.GetImages(span.Of(3, 6))
	waitFor(t, 2*time.Second, "window cached", func() bool {
		return c.isIdle() && c.Stats().Rendered == 4
	})

	got := c.Stats()
	if got.Failed != 0 || got.Discarded != 0 {
		t.Errorf("Stats() = %+v, want zero failures and discards", got)
	}
}
