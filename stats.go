package pagecache

// Stats holds cumulative counters of cache activity.
type Stats struct {
	// Rendered counts pages rasterized and committed to a slot.
	Rendered uint64

	// Discarded counts completed renders dropped because the document or
	// configuration changed while they were in flight.
	Discarded uint64

	// Evicted counts cached pages cleared after leaving the wanted window.
	Evicted uint64

	// Failed counts rasterizations that returned an error.
	Failed uint64
}

// Stats returns current cache statistics. Safe to call from any goroutine.
func (c *Cache) Stats() Stats {
	return Stats{
		Rendered:  c.rendered.Load(),
		Discarded: c.discarded.Load(),
		Evicted:   c.evicted.Load(),
		Failed:    c.failed.Load(),
	}
}
