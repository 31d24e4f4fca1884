package pagecache

import "github.com/gogpu/pagecache/arena"

// Option configures a Cache during creation.
// Use functional options to customize Cache behavior.
//
// Example:
//
//	// Defaults
//	cache := pagecache.New()
//
//	// Redraw notifications plus a wider pre-warm window
//	cache := pagecache.New(
//		pagecache.WithOnUpdate(scheduleRedraw),
//		pagecache.WithPrewarm(2),
//	)
type Option func(*cacheOptions)

// cacheOptions holds optional configuration for Cache creation.
type cacheOptions struct {
	prewarm       int
	arenaCapacity int
	poolPerBucket int
	onUpdate      func()
}

// defaultCacheOptions returns the default cache options.
func defaultCacheOptions() cacheOptions {
	return cacheOptions{
		prewarm:       1,
		arenaCapacity: arena.DefaultCapacity,
		poolPerBucket: 8,
	}
}

// WithOnUpdate sets the callback invoked (from the cache's notifier
// goroutine) whenever newly rendered pages are available or pages were
// evicted, so the display layer can schedule a redraw. Without it no
// notifier runs and the display layer discovers new pages on its next call
// to GetImages.
//
// The callback must not call back into the Cache's frame methods.
func WithOnUpdate(fn func()) Option {
	return func(o *cacheOptions) {
		o.onUpdate = fn
	}
}

// WithPrewarm sets how many pages above the visible window are kept warm in
// addition to the requested range. The display layer's own prefetch biases
// below the window, so the default of 1 compensates upward. Negative values
// are treated as 0.
func WithPrewarm(pages int) Option {
	return func(o *cacheOptions) {
		o.prewarm = max(pages, 0)
	}
}

// WithArenaCapacity sets the allocation record capacity of the renderer's
// bulk-free arena. Raise it for rasterizers that make unusually many
// allocations per page; exceeding the capacity during a render panics (see
// package arena). If n <= 0, arena.DefaultCapacity is used.
func WithArenaCapacity(n int) Option {
	return func(o *cacheOptions) {
		if n <= 0 {
			n = arena.DefaultCapacity
		}
		o.arenaCapacity = n
	}
}
