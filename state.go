package pagecache

import (
	"sync"

	"github.com/gogpu/pagecache/span"
)

// sharedState is the mutable record shared between the background renderer,
// the foreground notifier and the façade. One mutex guards everything; hold
// times stay sub-millisecond because the lock is never held across a
// rasterization call.
type sharedState struct {
	mu sync.Mutex

	// wakeWorker sleeps the renderer when it has nothing to do. Signaled
	// whenever requested diverges from acknowledged or shutdown begins.
	wakeWorker *sync.Cond

	// images holds the cached page per index; nil means not cached.
	// Its length always equals the active document's page count.
	images []*Image

	// failed marks pages whose last rasterization errored. A failed page
	// is not reselected until eviction clears the mark, which happens when
	// the page leaves the wanted window or the document changes.
	failed []bool

	// cfg is the render configuration cached images are valid for.
	cfg Config

	// doc identifies the active document; nil when none is installed.
	// Compared by pointer after a render to detect staleness.
	doc *docHandle

	// waker resumes the foreground notifier. At most one registration is
	// outstanding; firing it consumes the registration.
	waker chan struct{}

	// requested is the span of pages the display layer wants resident.
	requested span.Span

	// acknowledged is the most recent requested value the renderer has
	// observed. Written only by the renderer; the pair detects "new work
	// arrived" without polling.
	acknowledged span.Span

	// quit is the one-way shutdown flag, checked at every blocking point.
	quit bool

	// workerIdle is true while the renderer is parked on wakeWorker.
	workerIdle bool
}

func newSharedState() *sharedState {
	s := &sharedState{}
	s.wakeWorker = sync.NewCond(&s.mu)
	return s
}

// setDocumentLocked installs a new document and configuration. The slot
// array is rebuilt, never resized: this is the only place slot identity is
// wholesale invalidated rather than incrementally evicted.
func (s *sharedState) setDocumentLocked(doc Document, cfg Config) {
	if doc != nil {
		n := doc.NumPages()
		s.images = make([]*Image, n)
		s.failed = make([]bool, n)
		s.doc = &docHandle{doc: doc}
	} else {
		s.images = nil
		s.failed = nil
		s.doc = nil
	}
	s.requested = span.Empty
	s.acknowledged = span.Empty
	s.cfg = cfg
}

// wakeNotifierLocked fires the notifier's registered waker, if any,
// consuming the registration. The notifier registers a fresh channel on its
// next pass, so a registration is always replaced, never leaked.
func (s *sharedState) wakeNotifierLocked() {
	if w := s.waker; w != nil {
		s.waker = nil
		w <- struct{}{} // buffered, single producer after take: never blocks
	}
}
