// Package imagedoc provides a pagecache.Document backed by decoded images.
//
// Each page wraps one image.Image and rasterizes by scaling it with
// golang.org/x/image/draw. It is the reference document implementation:
// useful on its own for image-sequence viewers, and as the working document
// for tests and examples of the cache.
package imagedoc

import (
	"errors"
	"image"

	"golang.org/x/image/draw"

	"github.com/gogpu/pagecache"
	"github.com/gogpu/pagecache/arena"
)

// ErrInvalidScale is returned when a render configuration's scale is not
// positive and no explicit output dimension compensates for it.
var ErrInvalidScale = errors.New("imagedoc: scale must be positive")

// ErrEmptyOutput is returned when the configured output size rounds to zero
// pixels in either dimension.
var ErrEmptyOutput = errors.New("imagedoc: output size is empty")

// Document is an ordered sequence of image-backed pages.
// It is immutable after creation and safe for concurrent reads.
type Document struct {
	pages []Page
}

// New creates a document with one page per source image.
// Nil sources are rejected; an empty slice yields an empty document.
func New(sources []image.Image) (*Document, error) {
	pages := make([]Page, len(sources))
	for i, src := range sources {
		if src == nil {
			return nil, errors.New("imagedoc: nil source image")
		}
		pages[i] = Page{src: src}
	}
	return &Document{pages: pages}, nil
}

// NumPages implements pagecache.Document.
func (d *Document) NumPages() int {
	return len(d.pages)
}

// Page implements pagecache.Document.
func (d *Document) Page(index int) pagecache.Page {
	return &d.pages[index]
}

// Page is one image-backed page.
type Page struct {
	src image.Image
}

// Size implements pagecache.Page: the source image's pixel dimensions.
func (p *Page) Size() pagecache.Size {
	b := p.src.Bounds()
	return pagecache.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}
}

// Rasterize implements pagecache.Page by scaling the source image to the
// configured output size. The output buffer comes from the arena; the
// cache exempts it from the sweep when taking ownership.
func (p *Page) Rasterize(cfg pagecache.Config, a *arena.Arena) (*pagecache.Pixmap, error) {
	width, height := cfg.PixelSize(p.Size())
	if (cfg.Width == 0 && cfg.XScale <= 0) || (cfg.Height == 0 && cfg.YScale <= 0) {
		return nil, ErrInvalidScale
	}
	if width <= 0 || height <= 0 {
		return nil, ErrEmptyOutput
	}

	buf := a.Alloc(width * height * 4)
	dst := &image.RGBA{
		Pix:    buf,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}
	draw.ApproxBiLinear.Scale(dst, dst.Rect, p.src, p.src.Bounds(), draw.Src, nil)

	return pagecache.PixmapFromBuffer(width, height, buf)
}
