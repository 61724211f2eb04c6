// Package resize implements the pixel-exact bilinear BGRA resample used to
// bring captured frames down to a working resolution before dedupe and
// tiling.
package resize

import (
	"math"

	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/rawimage"
)

// Bilinear resizes src to newWidth x newHeight using pixel-center sampling
// with source-coordinate clamping. Alpha is always forced to 255 in the
// output, matching the capture path's opaque-frame assumption.
func Bilinear(src rawimage.RawImage, newWidth, newHeight int) rawimage.RawImage {
	if !src.Ok() || newWidth <= 0 || newHeight <= 0 {
		return rawimage.RawImage{}
	}

	dst := rawimage.New(newWidth, newHeight)

	sx := float64(src.Width) / float64(newWidth)
	sy := float64(src.Height) / float64(newHeight)

	for y := 0; y < newHeight; y++ {
		fy := (float64(y)+0.5)*sy - 0.5
		for x := 0; x < newWidth; x++ {
			fx := (float64(x)+0.5)*sx - 0.5
			d := dst.At(x, y)
			d[0] = clampByte(sampleChannel(src, fx, fy, 0))
			d[1] = clampByte(sampleChannel(src, fx, fy, 1))
			d[2] = clampByte(sampleChannel(src, fx, fy, 2))
			d[3] = 255
		}
	}
	return dst
}

func sampleChannel(src rawimage.RawImage, fx, fy float64, channel int) float64 {
	fx = clampFloat(fx, 0, float64(src.Width-1))
	fy = clampFloat(fy, 0, float64(src.Height-1))

	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	x1 := min(x0+1, src.Width-1)
	y1 := min(y0+1, src.Height-1)
	tx := fx - float64(x0)
	ty := fy - float64(y0)

	p00 := src.At(x0, y0)
	p10 := src.At(x1, y0)
	p01 := src.At(x0, y1)
	p11 := src.At(x1, y1)

	a := (1-tx)*float64(p00[channel]) + tx*float64(p10[channel])
	b := (1-tx)*float64(p01[channel]) + tx*float64(p11[channel])
	return (1-ty)*a + ty*b
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampByte(v float64) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
