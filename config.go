package pagecache

import "math"

// Config holds the render configuration pages are rasterized with.
// It is a comparable value type; changing any field invalidates every
// cached page of the active document.
type Config struct {
	// XScale and YScale scale the page's intrinsic size to pixels.
	XScale float64
	YScale float64

	// Width and Height override the output viewport in pixels.
	// Zero means derive the dimension from the page size and scale.
	Width  int
	Height int
}

// DefaultConfig returns the identity configuration: 1:1 scale, dimensions
// derived from each page.
func DefaultConfig() Config {
	return Config{XScale: 1, YScale: 1}
}

// PixelSize returns the output dimensions for a page of the given intrinsic
// size under this configuration.
func (c Config) PixelSize(page Size) (width, height int) {
	width = c.Width
	if width == 0 {
		width = int(math.Floor(page.Width * c.XScale))
	}
	height = c.Height
	if height == 0 {
		height = int(math.Floor(page.Height * c.YScale))
	}
	return width, height
}

// FitWidthScale returns the scale factor that fits the document's widest
// page into a viewport of the given pixel width. It returns 1 when the
// document is empty or the viewport width is not positive.
func FitWidthScale(doc Document, viewportWidth float64) float64 {
	if doc == nil || viewportWidth <= 0 {
		return 1
	}
	maxWidth := 0.0
	for i := range doc.NumPages() {
		if w := doc.Page(i).Size().Width; w > maxWidth {
			maxWidth = w
		}
	}
	if maxWidth <= 0 {
		return 1
	}
	return viewportWidth / maxWidth
}

// PageSizes returns each page's layout size in pixels at the given scale,
// floored the same way the rasterizer sizes its output. Display layers use
// this to lay out a virtual list without touching pixel data.
func PageSizes(doc Document, scale float64) []Size {
	if doc == nil {
		return nil
	}
	sizes := make([]Size, doc.NumPages())
	for i := range sizes {
		s := doc.Page(i).Size()
		sizes[i] = Size{
			Width:  math.Floor(s.Width * scale),
			Height: math.Floor(s.Height * scale),
		}
	}
	return sizes
}
