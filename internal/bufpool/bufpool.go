// Package bufpool provides a size-bucketed pool of pixel buffers.
//
// Rasterizing a page allocates one large output buffer plus assorted scratch
// buffers, and eviction frees them again a few frames later. Pooling buffers
// by exact size keeps that churn away from the garbage collector: page
// dimensions repeat, so buckets stay hot.
package bufpool

import "sync"

// Pool is a thread-safe pool of byte buffers grouped by exact length.
//
// Thread safety: all methods are safe for concurrent use.
type Pool struct {
	mu      sync.Mutex
	buckets map[int][][]byte
	maxSize int // max buffers retained per bucket
}

// New creates a pool retaining at most maxPerBucket buffers of each size.
// A maxPerBucket of 0 means unlimited (use with caution).
func New(maxPerBucket int) *Pool {
	return &Pool{
		buckets: make(map[int][][]byte),
		maxSize: maxPerBucket,
	}
}

// Get returns a zeroed buffer of exactly n bytes, reusing a pooled buffer
// when one of that size is available.
func (p *Pool) Get(n int) []byte {
	if n <= 0 {
		return nil
	}

	p.mu.Lock()
	bucket := p.buckets[n]
	if len(bucket) > 0 {
		buf := bucket[len(bucket)-1]
		p.buckets[n] = bucket[:len(bucket)-1]
		p.mu.Unlock()

		clear(buf)
		return buf
	}
	p.mu.Unlock()

	return make([]byte, n)
}

// Put returns a buffer to the pool for reuse. Nil buffers are ignored, and
// buffers are discarded when their bucket is at capacity.
//
// The caller must not use buf after Put returns.
func (p *Pool) Put(buf []byte) {
	if buf == nil {
		return
	}

	n := len(buf)

	p.mu.Lock()
	defer p.mu.Unlock()

	bucket := p.buckets[n]
	if p.maxSize > 0 && len(bucket) >= p.maxSize {
		// Bucket full, discard buffer (GC will clean up).
		return
	}
	p.buckets[n] = append(bucket, buf)
}

// Len returns the total number of buffers currently pooled.
// Useful for tests and debugging.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := 0
	for _, bucket := range p.buckets {
		total += len(bucket)
	}
	return total
}
