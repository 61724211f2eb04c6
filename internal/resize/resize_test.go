package resize

import (
	"testing"

	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/rawimage"
)

func TestBilinearIdentityPreservesPixels(t *testing.T) {
	src := rawimage.New(3, 3)
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			p := src.At(x, y)
			p[0], p[1], p[2], p[3] = byte(x*50), byte(y*50), byte(x+y), 255
		}
	}
	dst := Bilinear(src, 3, 3)
	if !rawimage.BytesEqual(src, dst) {
		t.Errorf("identity resize should reproduce source exactly, got %v want %v", dst.Pix, src.Pix)
	}
}

func TestBilinearForcesOpaqueAlpha(t *testing.T) {
	src := rawimage.New(2, 2)
	for i := 3; i < len(src.Pix); i += 4 {
		src.Pix[i] = 0
	}
	dst := Bilinear(src, 4, 4)
	for i := 3; i < len(dst.Pix); i += 4 {
		if dst.Pix[i] != 255 {
			t.Fatalf("alpha at byte %d = %d, want 255", i, dst.Pix[i])
		}
	}
}

func TestBilinearUniformColorStaysUniform(t *testing.T) {
	src := rawimage.New(4, 4)
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3] = 10, 20, 30, 255
	}
	dst := Bilinear(src, 9, 7)
	for i := 0; i < len(dst.Pix); i += 4 {
		if dst.Pix[i] != 10 || dst.Pix[i+1] != 20 || dst.Pix[i+2] != 30 {
			t.Fatalf("pixel %d = %v, want (10,20,30)", i/4, dst.Pix[i:i+3])
		}
	}
}

func TestBilinearRejectsInvalidInput(t *testing.T) {
	if img := Bilinear(rawimage.RawImage{}, 4, 4); img.Ok() {
		t.Error("resizing an invalid image should return an invalid image")
	}
	src := rawimage.New(2, 2)
	if img := Bilinear(src, 0, 4); img.Ok() {
		t.Error("zero target width should return an invalid image")
	}
}

func TestBilinearOutputDimensions(t *testing.T) {
	src := rawimage.New(10, 6)
	dst := Bilinear(src, 5, 3)
	if dst.Width != 5 || dst.Height != 3 {
		t.Errorf("dims = %dx%d, want 5x3", dst.Width, dst.Height)
	}
}
