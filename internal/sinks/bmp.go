// Package sinks implements the pipeline's output stages: per-frame BMP
// capture, a video-manifest exporter, and a JSONL metrics logger.
package sinks

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/rawimage"
)

// WriteBMP32 writes img as an uncompressed 32bpp BGRA BMP (BITMAPINFOHEADER)
// to path. Rows are written bottom-up from the top-down source buffer.
func WriteBMP32(path string, img rawimage.RawImage) error {
	if !img.Ok() {
		return fmt.Errorf("sinks: cannot write invalid image to %s", path)
	}

	w := uint32(img.Width)
	h := uint32(img.Height)
	stride := w * 4
	pixelBytes := stride * h
	fileSize := 14 + 40 + pixelBytes

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	out := bufio.NewWriter(f)

	out.WriteByte('B')
	out.WriteByte('M')
	writeU32(out, fileSize)
	writeU16(out, 0)
	writeU16(out, 0)
	writeU32(out, 14+40)

	writeU32(out, 40)
	writeU32(out, w)
	writeU32(out, h) // bottom-up
	writeU16(out, 1)
	writeU16(out, 32)
	writeU32(out, 0)
	writeU32(out, pixelBytes)
	writeU32(out, 2835)
	writeU32(out, 2835)
	writeU32(out, 0)
	writeU32(out, 0)

	for y := int(h) - 1; y >= 0; y-- {
		row := img.Pix[y*int(stride) : y*int(stride)+int(stride)]
		if _, err := out.Write(row); err != nil {
			return err
		}
	}

	return out.Flush()
}

// NumberedPath formats a zero-padded, numbered file path: base_NNNNNN.ext.
func NumberedPath(base string, index int, ext string, pad int) string {
	return fmt.Sprintf("%s_%0*d%s", base, pad, index, ext)
}

func writeU16(w *bufio.Writer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.Write(b[:])
}

func writeU32(w *bufio.Writer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.Write(b[:])
}
