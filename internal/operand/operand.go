// Package operand computes content fingerprints ("operand maps") over
// RawImage frames: a cheap, fixed-size summary used to fast-reject
// non-matching frames before a full byte comparison.
package operand

import "github.com/TavariAgent/cortex-em-spectrum-foundation/internal/rawimage"

const (
	fnvOffset64 uint64 = 1469598103934665603
	fnvPrime64  uint64 = 1099511628211
)

// Map is the immutable fingerprint of a RawImage.
type Map struct {
	Width, Height int
	SumB, SumG, SumR, SumA uint64
	XOR32   uint64
	FNV1a64 uint64
}

// Compute walks every pixel once, accumulating channel sums, a running
// XOR of the little-endian packed BGRA word, and an FNV-1a hash over
// each pixel's four bytes in ascending order.
func Compute(img rawimage.RawImage) Map {
	var m Map
	if !img.Ok() {
		return m
	}
	m.Width, m.Height = img.Width, img.Height

	f := fnvOffset64
	n := len(img.Pix) / 4
	for i := 0; i < n; i++ {
		p := img.Pix[i*4 : i*4+4 : i*4+4]
		b, g, r, a := p[0], p[1], p[2], p[3]

		word := uint64(b) | uint64(g)<<8 | uint64(r)<<16 | uint64(a)<<24
		m.XOR32 ^= word

		m.SumB += uint64(b)
		m.SumG += uint64(g)
		m.SumR += uint64(r)
		m.SumA += uint64(a)

		for _, byt := range p {
			f ^= uint64(byt)
			f *= fnvPrime64
		}
	}
	m.FNV1a64 = f
	return m
}

// SignatureEqual reports whether a and b match on every field. It is a
// necessary-but-not-sufficient condition for byte equality.
func SignatureEqual(a, b Map) bool {
	return a.Width == b.Width && a.Height == b.Height &&
		a.SumB == b.SumB && a.SumG == b.SumG && a.SumR == b.SumR && a.SumA == b.SumA &&
		a.XOR32 == b.XOR32 && a.FNV1a64 == b.FNV1a64
}

// FramesIdentical fails fast on signature mismatch, otherwise confirms
// with an exact byte comparison.
func FramesIdentical(a, b rawimage.RawImage, ma, mb Map) bool {
	if !a.Ok() || !b.Ok() {
		return false
	}
	if !SignatureEqual(ma, mb) {
		return false
	}
	return rawimage.BytesEqual(a, b)
}
