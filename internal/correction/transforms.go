package correction

import (
	"math"

	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/rawimage"
)

// Grayscale replaces each pixel's B, G, R channels with the BT.601 luma
// weighting, leaving alpha untouched.
func Grayscale(img *rawimage.RawImage) {
	if !img.Ok() {
		return
	}
	for i := 0; i < img.Width*img.Height; i++ {
		p := img.Pix[i*4 : i*4+4 : i*4+4]
		b, g, r := float64(p[0]), float64(p[1]), float64(p[2])
		y := clampByte(0.114*b + 0.587*g + 0.299*r)
		p[0], p[1], p[2] = y, y, y
	}
}

// Gamma returns a correction applying out = 255*(in/255)^(1/g) to every
// color channel. g must be positive; values <= 0 are treated as 1 (no-op).
func Gamma(g float64) Fn {
	if g <= 0 {
		g = 1
	}
	var lut [256]byte
	invG := 1.0 / g
	for i := range lut {
		lut[i] = clampByte(255.0 * math.Pow(float64(i)/255.0, invG))
	}
	return func(img *rawimage.RawImage) {
		if !img.Ok() {
			return
		}
		for i := 0; i < img.Width*img.Height; i++ {
			p := img.Pix[i*4 : i*4+4 : i*4+4]
			p[0] = lut[p[0]]
			p[1] = lut[p[1]]
			p[2] = lut[p[2]]
		}
	}
}

// Brightness returns a correction adding b*255 to every color channel,
// clamped to the byte range. b is expected in [-1, 1].
func Brightness(b float64) Fn {
	delta := b * 255.0
	return func(img *rawimage.RawImage) {
		if !img.Ok() {
			return
		}
		for i := 0; i < img.Width*img.Height; i++ {
			p := img.Pix[i*4 : i*4+4 : i*4+4]
			p[0] = clampByte(float64(p[0]) + delta)
			p[1] = clampByte(float64(p[1]) + delta)
			p[2] = clampByte(float64(p[2]) + delta)
		}
	}
}

// Contrast returns a correction scaling every color channel around the
// midpoint (127.5) by factor c. c == 1 is a no-op; c == 0 collapses to
// mid-gray.
func Contrast(c float64) Fn {
	if c < 0 {
		c = 0
	}
	const mid = 127.5
	return func(img *rawimage.RawImage) {
		if !img.Ok() {
			return
		}
		for i := 0; i < img.Width*img.Height; i++ {
			p := img.Pix[i*4 : i*4+4 : i*4+4]
			p[0] = clampByte((float64(p[0])-mid)*c + mid)
			p[1] = clampByte((float64(p[1])-mid)*c + mid)
			p[2] = clampByte((float64(p[2])-mid)*c + mid)
		}
	}
}

// Pixelate returns a correction that box-averages each n x n block of
// pixels, flattening the block to its mean color. n < 2 is a no-op.
func Pixelate(n int) Fn {
	return func(img *rawimage.RawImage) {
		if !img.Ok() || n < 2 {
			return
		}
		for by := 0; by < img.Height; by += n {
			bh := n
			if by+bh > img.Height {
				bh = img.Height - by
			}
			for bx := 0; bx < img.Width; bx += n {
				bw := n
				if bx+bw > img.Width {
					bw = img.Width - bx
				}
				pixelateBlock(img, bx, by, bw, bh)
			}
		}
	}
}

func pixelateBlock(img *rawimage.RawImage, bx, by, bw, bh int) {
	var sumB, sumG, sumR, sumA, count int
	for y := by; y < by+bh; y++ {
		for x := bx; x < bx+bw; x++ {
			p := img.At(x, y)
			sumB += int(p[0])
			sumG += int(p[1])
			sumR += int(p[2])
			sumA += int(p[3])
			count++
		}
	}
	if count == 0 {
		return
	}
	avgB := byte(sumB / count)
	avgG := byte(sumG / count)
	avgR := byte(sumR / count)
	avgA := byte(sumA / count)
	for y := by; y < by+bh; y++ {
		for x := bx; x < bx+bw; x++ {
			p := img.At(x, y)
			p[0], p[1], p[2], p[3] = avgB, avgG, avgR, avgA
		}
	}
}

func clampByte(v float64) byte {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return byte(v + 0.5)
}
