package engine

import "testing"

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.TileW, cfg.TileH = 4, 4
	cfg.Threads = 2
	cfg.Jitter = false
	cfg.Router.CalibFrames = 3
	cfg.Router.CalibMinSeconds = 0
	return cfg
}

func TestRenderNextFrameProducesFullFrame(t *testing.T) {
	e := New(testConfig())
	e.SetResolution(16, 8)
	res := e.RenderNextFrame()
	if res.Frame.Width != 16 || res.Frame.Height != 8 {
		t.Fatalf("frame dims = %dx%d, want 16x8", res.Frame.Width, res.Frame.Height)
	}
	if len(res.Frame.Pix) != 16*8*3 {
		t.Errorf("pix len = %d, want %d", len(res.Frame.Pix), 16*8*3)
	}
}

func TestRenderNextFrameDeterministicWithoutJitter(t *testing.T) {
	cfg := testConfig()
	e1 := New(cfg)
	e1.SetResolution(16, 8)
	r1 := e1.RenderNextFrame()

	e2 := New(cfg)
	e2.SetResolution(16, 8)
	r2 := e2.RenderNextFrame()

	for i := range r1.Frame.Pix {
		if r1.Frame.Pix[i] != r2.Frame.Pix[i] {
			t.Fatalf("pixel %d diverged: %v vs %v", i, r1.Frame.Pix[i], r2.Frame.Pix[i])
		}
	}
}

func TestCalibrationCompletesAfterConfiguredFrames(t *testing.T) {
	e := New(testConfig())
	e.SetResolution(16, 8)
	var res Result
	for i := 0; i < 5; i++ {
		res = e.RenderNextFrame()
	}
	if !res.CalibrationComplete {
		t.Error("expected calibration to complete after 5 frames with CalibFrames=3")
	}
}

func TestToRawImageForcesOpaqueAlphaAndCorrectSize(t *testing.T) {
	e := New(testConfig())
	e.SetResolution(8, 8)
	res := e.RenderNextFrame()
	img := res.Frame.ToRawImage(1.0)
	if !img.Ok() {
		t.Fatal("converted image should be ok")
	}
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 255 {
			t.Fatalf("alpha at byte %d = %d, want 255", i, img.Pix[i])
		}
	}
}

func TestDirtyMaskLengthMatchesTileCount(t *testing.T) {
	e := New(testConfig())
	e.SetResolution(16, 8)
	res := e.RenderNextFrame()
	if len(res.TileDirtyMask) != len(e.layout.Tiles) {
		t.Errorf("dirty mask len = %d, want %d", len(res.TileDirtyMask), len(e.layout.Tiles))
	}
}
