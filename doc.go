// Package pagecache provides an on-demand, windowed rendering cache for
// paginated documents.
//
// # Overview
//
// Rasterizing a document page is slow, so a viewer cannot render pages
// inside its frame loop. pagecache keeps a bounded window of rasterized
// pages resident in memory: pages become available lazily as they scroll
// into view, are produced by a single dedicated background goroutine, and
// are evicted eagerly once they scroll out of the wanted window. The
// frame-drawing consumer never blocks on rendering.
//
// # Quick Start
//
//	import (
//		"github.com/gogpu/pagecache"
//		"github.com/gogpu/pagecache/span"
//	)
//
//	cache := pagecache.New(pagecache.WithOnUpdate(scheduleRedraw))
//	defer cache.Close()
//
//	cache.SetDocument(doc, pagecache.Config{XScale: scale, YScale: scale})
//
//	// Once per display frame:
//	cache.FrameStart()
//	images := cache.GetImages(span.Of(first, last))
//	// nil entries are pages still rendering; draw a placeholder.
//
// # Architecture
//
// The package is organized into:
//   - Public API: Cache, Document, Page, Config, Image, Pixmap
//   - span: half-open interval algebra for visible-range bookkeeping
//   - arena: bulk-free arena containing rasterizer scratch leaks
//   - imagedoc: reference Document backed by decoded images
//
// One mutex guards all state shared between the background renderer and the
// frame loop; it is never held across a rasterization call. A render whose
// document or configuration changed mid-flight is discarded at commit time,
// so cancellation is advisory and state is never corrupted.
//
// # Threading
//
// Cache methods other than Close and SetLogger must be called from a single
// goroutine, normally the display layer's frame loop. Documents must be
// safe for concurrent reads: the background renderer reads pages while the
// display goroutine measures them for layout.
package pagecache

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
