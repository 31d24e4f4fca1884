package pagecache

import "github.com/gogpu/pagecache/arena"

// Document is an ordered sequence of independently rasterizable pages.
//
// Implementations must be safe for concurrent reads: the background
// renderer calls Page while the display goroutine measures pages for
// layout. Documents are treated as immutable once handed to the cache;
// to show different content, hand the cache a new Document.
//
// The cache compares documents by identity, not content: the result of an
// in-flight render is committed only if the document it was started for is
// still the one installed.
type Document interface {
	// NumPages returns the number of pages. It must not change over the
	// document's lifetime.
	NumPages() int

	// Page returns the page at the given index, 0 <= index < NumPages().
	Page(index int) Page
}

// Page is one unit of a document with an intrinsic size.
type Page interface {
	// Size returns the page's intrinsic (unscaled) dimensions.
	Size() Size

	// Rasterize produces the page's pixels for the given configuration.
	// Every buffer the implementation needs, including the output buffer,
	// must be allocated from a. The cache exempts the returned pixmap's
	// buffer from the arena sweep and reclaims everything else, so
	// implementations that lose track of scratch buffers do not leak.
	//
	// Rasterize is called from the cache's rendering goroutine, one call
	// at a time.
	Rasterize(cfg Config, a *arena.Arena) (*Pixmap, error)
}

// Size holds a page's dimensions in document units.
type Size struct {
	Width  float64
	Height float64
}

// docHandle wraps the installed document so that "still the same document"
// reduces to a pointer comparison, regardless of how the Document interface
// value itself compares. A new handle is made on every SetDocument.
type docHandle struct {
	doc Document
}
