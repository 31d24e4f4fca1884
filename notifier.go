package pagecache

// foregroundWork is the notifier loop: it watches for per-page cached bits
// flipping and asks the display layer to schedule a redraw. It runs only
// when an update callback is configured, and terminates on shutdown or when
// the display layer is gone.
func (c *Cache) foregroundWork() {
	defer close(c.notifierDone)

	// Local snapshot: true where a page is known to be cached.
	var cached []bool
	for {
		if quit := c.waitForChange(&cached); quit {
			return
		}
		if !c.notifyDisplay() {
			// The display layer has been torn down. Expected termination,
			// not a fault.
			return
		}
	}
}

// waitForChange blocks until some page's cached/uncached bit differs from
// the snapshot or shutdown is requested, updating the snapshot in place.
// When nothing changed it registers a fresh waker in the shared state and
// suspends until the renderer fires it; the registration is always
// replaced, never leaked.
func (c *Cache) waitForChange(cached *[]bool) (quit bool) {
	s := c.shared
	for {
		s.mu.Lock()

		snap := *cached
		if len(snap) != len(s.images) {
			next := make([]bool, len(s.images))
			copy(next, snap)
			snap = next
			*cached = snap
		}

		changed := false
		for i, img := range s.images {
			isCached := img != nil
			if snap[i] != isCached {
				snap[i] = isCached
				changed = true
			}
		}

		if s.quit {
			s.mu.Unlock()
			return true
		}
		if changed {
			s.mu.Unlock()
			return false
		}

		w := make(chan struct{}, 1)
		s.waker = w
		s.mu.Unlock()

		<-w
	}
}

// notifyDisplay invokes the update callback, treating a panic as the
// display layer having been torn down mid-call.
func (c *Cache) notifyDisplay() (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			Logger().Debug("pagecache: update callback panicked, stopping notifier",
				"panic", r)
			ok = false
		}
	}()
	c.onUpdate()
	return true
}
