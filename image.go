package pagecache

// Image is one cached, rasterized page as handed to the display layer.
//
// Ownership of the pixels is shared between the cache's slot array and any
// frame currently displaying the image. An image returned by
// [Cache.GetImages] stays valid until two FrameStart calls have passed
// without it being handed out again; after that the cache may recycle its
// buffer. A display layer that redraws every frame never observes a
// recycled image.
type Image struct {
	pm *Pixmap

	// gen is the frame generation this image was last handed to the
	// display layer in. Written only by the façade goroutine.
	gen uint64
}

func newImage(pm *Pixmap) *Image {
	return &Image{pm: pm}
}

// Pixmap returns the image's pixel buffer.
func (im *Image) Pixmap() *Pixmap {
	return im.pm
}

// Width returns the width of the image in pixels.
func (im *Image) Width() int {
	return im.pm.width
}

// Height returns the height of the image in pixels.
func (im *Image) Height() int {
	return im.pm.height
}
