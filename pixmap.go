package pagecache

import (
	"errors"
	"image"
	"image/color"
)

// ErrBufferSize is returned when a pixel buffer's length does not match the
// requested pixmap dimensions.
var ErrBufferSize = errors.New("pagecache: buffer length does not match dimensions")

// Pixmap represents a rectangular pixel buffer holding one rasterized page.
type Pixmap struct {
	width  int
	height int
	data   []uint8 // RGBA format, 4 bytes per pixel
}

// NewPixmap creates a new pixmap with the given dimensions.
func NewPixmap(width, height int) *Pixmap {
	return &Pixmap{
		width:  width,
		height: height,
		data:   make([]uint8, width*height*4),
	}
}

// PixmapFromBuffer wraps an existing RGBA buffer in a pixmap without
// copying. Rasterizers use this to return pixels drawn into an
// arena-allocated buffer. The buffer length must be exactly width*height*4.
func PixmapFromBuffer(width, height int, data []uint8) (*Pixmap, error) {
	if width < 0 || height < 0 || len(data) != width*height*4 {
		return nil, ErrBufferSize
	}
	return &Pixmap{width: width, height: height, data: data}, nil
}

// Width returns the width of the pixmap.
func (p *Pixmap) Width() int {
	return p.width
}

// Height returns the height of the pixmap.
func (p *Pixmap) Height() int {
	return p.height
}

// Data returns the raw pixel data (RGBA format).
func (p *Pixmap) Data() []uint8 {
	return p.data
}

// ToImage converts the pixmap to an image.RGBA.
func (p *Pixmap) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	copy(img.Pix, p.data)
	return img
}

// BGRA returns a copy of the pixel data with the red and blue channels
// swapped, for display backends that upload textures in BGRA order.
func (p *Pixmap) BGRA() []uint8 {
	out := make([]uint8, len(p.data))
	for i := 0; i+3 < len(p.data); i += 4 {
		out[i+0] = p.data[i+2]
		out[i+1] = p.data[i+1]
		out[i+2] = p.data[i+0]
		out[i+3] = p.data[i+3]
	}
	return out
}

// ColorModel implements the image.Image interface.
func (p *Pixmap) ColorModel() color.Model {
	return color.RGBAModel
}

// Bounds implements the image.Image interface.
func (p *Pixmap) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.width, p.height)
}

// At implements the image.Image interface.
func (p *Pixmap) At(x, y int) color.Color {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return color.RGBA{}
	}
	i := (y*p.width + x) * 4
	return color.RGBA{R: p.data[i+0], G: p.data[i+1], B: p.data[i+2], A: p.data[i+3]}
}
