package pagecache

import (
	"errors"
	"math"

	"github.com/gogpu/pagecache/arena"
)

// errNilPixmap reports a rasterizer that returned neither pixels nor an
// error, which violates the Page contract.
var errNilPixmap = errors.New("pagecache: rasterizer returned no pixels")

// backgroundWork is the renderer loop, run on the cache's dedicated
// goroutine. It holds the state lock except while actually rasterizing.
func (c *Cache) backgroundWork() {
	defer close(c.workerDone)

	s := c.shared
	a := arena.New(c.arenaCap, arena.WithBacking(c.pool))

	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		index, doc, cfg := c.selectCandidateLocked()

		// Record that the current request has been observed, whether or
		// not there was anything to render. The façade compares the pair
		// to decide when the renderer needs a wake-up.
		s.acknowledged = s.requested

		if index >= 0 {
			Logger().Debug("pagecache: rasterize page",
				"page", index,
				"requested", s.requested)
			page := doc.doc.Page(index)

			// Render without holding the lock; the UI-facing lock must
			// stay cheap even though a render can take a long time.
			s.mu.Unlock()
			pm, err := renderPage(page, cfg, a)
			s.mu.Lock()

			c.commitLocked(index, doc, cfg, pm, err)
		} else {
			// Nothing to render: sleep until new work arrives. This is
			// the renderer's only blocking point.
			s.workerIdle = true
			for !s.quit && s.acknowledged == s.requested {
				s.wakeWorker.Wait()
			}
			s.workerIdle = false
		}

		if s.quit {
			return
		}
	}
}

// selectCandidateLocked evicts every cached page outside the wanted window
// and picks the next page to render: the empty wanted slot nearest the
// center of the window, center biased toward the high end, first lowest
// distance in index order winning ties. Returns index -1 when there is
// nothing to render.
func (c *Cache) selectCandidateLocked() (int, *docHandle, Config) {
	s := c.shared

	wanted := s.requested
	// Pages just above the window are pre-warmed one step further, since
	// the display layer's own prefetch already biases downward.
	wanted.Start = max(0, wanted.Start-c.prewarm)

	center := wanted.End - 1 - wanted.Len()/2

	// The display layer always requests page 0 regardless of true scroll
	// position; honoring that naively would pin page 0 forever.
	cacheFirst := s.requested.Start <= 1

	best := -1
	bestDistance := math.MaxInt
	for i := range s.images {
		want := wanted.Contains(i)
		if i == 0 {
			want = cacheFirst
		}
		switch {
		case !want:
			if s.images[i] != nil {
				s.images[i] = nil
				c.evicted.Add(1)
			}
			// Leaving the window also resets the retry state: a failed
			// page is retried only once it re-enters.
			s.failed[i] = false
		case s.images[i] == nil && !s.failed[i]:
			if d := absDiff(i, center); d < bestDistance {
				best = i
				bestDistance = d
			}
		}
	}

	if best < 0 || s.doc == nil {
		return -1, nil, s.cfg
	}
	return best, s.doc, s.cfg
}

// commitLocked writes a completed render back into the slot array, but only
// if the document identity and configuration are unchanged since the render
// was started. A stale result is discarded silently; the page stays
// uncached and is reselected naturally if still wanted.
func (c *Cache) commitLocked(index int, doc *docHandle, cfg Config, pm *Pixmap, err error) {
	s := c.shared

	if s.doc != doc || s.cfg != cfg {
		c.discarded.Add(1)
		if pm != nil {
			// Nothing else can own a stale result; recycle it directly.
			c.pool.Put(pm.data)
		}
		return
	}

	if err != nil {
		// The slot stays uncached; the display layer shows a placeholder.
		if index < len(s.failed) {
			s.failed[index] = true
		}
		c.failed.Add(1)
		Logger().Warn("pagecache: rasterize failed", "page", index, "error", err)
		return
	}

	// A document swap racing a stale request can leave the index out of
	// bounds; skip silently, never fail.
	if index < len(s.images) {
		s.images[index] = newImage(pm)
		c.rendered.Add(1)
		s.wakeNotifierLocked()
	}
}

// renderPage runs one rasterization bracketed by the bulk-free sweep: the
// output buffer is exempted, everything else the rasterizer allocated is
// reclaimed. This runs on every call, leaked or not, so the steady state is
// zero retained scratch memory.
func renderPage(page Page, cfg Config, a *arena.Arena) (*Pixmap, error) {
	pm, err := page.Rasterize(cfg, a)
	if err == nil && pm == nil {
		err = errNilPixmap
	}
	if err == nil {
		a.Forget(pm.Data())
	}
	a.FreeAll()
	return pm, err
}

// isIdle reports whether the renderer is parked with nothing left to do:
// the current request is acknowledged and no render is in flight.
func (c *Cache) isIdle() bool {
	s := c.shared
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workerIdle && s.requested == s.acknowledged
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
