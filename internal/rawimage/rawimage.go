// Package rawimage defines the fixed-layout BGRA raster shared across
// the capture, dedupe, and render paths.
package rawimage

import (
	"bytes"
	"image"
)

// RawImage is a top-down, unpadded BGRA8 raster. Bytes are laid out
// row-major starting at the top row, four bytes per pixel in B, G, R, A
// order.
type RawImage struct {
	Width  int
	Height int
	Pix    []byte // len == Width*Height*4
}

// New allocates a zeroed RawImage of the given size. Returns an empty,
// not-ok image if either dimension is non-positive.
func New(width, height int) RawImage {
	if width <= 0 || height <= 0 {
		return RawImage{}
	}
	return RawImage{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*4),
	}
}

// Ok reports whether the image satisfies the size invariant and can be
// safely read.
func (img RawImage) Ok() bool {
	return img.Width > 0 && img.Height > 0 && len(img.Pix) == img.Width*img.Height*4
}

// Clone returns a deep copy of img.
func (img RawImage) Clone() RawImage {
	if !img.Ok() {
		return RawImage{}
	}
	out := RawImage{Width: img.Width, Height: img.Height, Pix: make([]byte, len(img.Pix))}
	copy(out.Pix, img.Pix)
	return out
}

// At returns the BGRA bytes for pixel (x, y). Caller must ensure bounds.
func (img RawImage) At(x, y int) []byte {
	i := (y*img.Width + x) * 4
	return img.Pix[i : i+4 : i+4]
}

// BytesEqual reports whether a and b have identical dimensions and pixel
// bytes.
func BytesEqual(a, b RawImage) bool {
	if a.Width != b.Width || a.Height != b.Height {
		return false
	}
	return bytes.Equal(a.Pix, b.Pix)
}

// ToImage converts img to a standard library image.Image (RGBA) for use
// with stdlib encoders and perceptual-hash libraries.
func ToImage(img RawImage) image.Image {
	out := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	if !img.Ok() {
		return out
	}
	for i := 0; i < img.Width*img.Height; i++ {
		p := img.Pix[i*4 : i*4+4 : i*4+4]
		o := out.Pix[i*4 : i*4+4 : i*4+4]
		o[0], o[1], o[2], o[3] = p[2], p[1], p[0], p[3] // BGRA -> RGBA
	}
	return out
}
