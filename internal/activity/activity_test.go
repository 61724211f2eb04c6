package activity

import (
	"testing"

	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/rawimage"
)

func solid(v byte) rawimage.RawImage {
	img := rawimage.New(8, 8)
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestFirstUpdateIsStaticNotAwake(t *testing.T) {
	tr := New(DefaultConfig())
	d := tr.Update(solid(1), rawimage.RawImage{}, false, 0)
	if !d.IsStaticScene || d.IsSceneAwake {
		t.Errorf("first update = %+v, want static and not awake", d)
	}
}

func TestIdenticalFramesStayStatic(t *testing.T) {
	tr := New(DefaultConfig())
	cur := solid(5)
	tr.Update(cur, rawimage.RawImage{}, false, 0)
	d := tr.Update(cur, cur, true, 1)
	if !d.IsStaticScene {
		t.Errorf("identical frames should classify static, got %+v", d)
	}
	if d.DiffRatio != 0 {
		t.Errorf("diff_ratio = %v, want 0", d.DiffRatio)
	}
}

func TestHighActivityWakesSceneAndBlocksDedupe(t *testing.T) {
	tr := New(DefaultConfig())
	prev := solid(0)
	cur := solid(255)
	tr.Update(prev, rawimage.RawImage{}, false, 0)
	d := tr.Update(cur, prev, true, 1)

	if d.DiffRatio < DefaultConfig().WakeThreshold {
		t.Fatalf("expected high diff_ratio, got %v", d.DiffRatio)
	}
	if !d.IsSceneAwake {
		t.Error("high activity should wake the scene")
	}
	if d.AllowDedupe {
		t.Error("high activity should block dedupe immediately")
	}
	if d.IsSleeping {
		t.Error("awake scene should never be sleeping")
	}
}

func TestDedupeBlockExpiresAfterPause(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DedupePauseSec = 1.0
	tr := New(cfg)
	prev := solid(0)
	cur := solid(255)
	tr.Update(prev, rawimage.RawImage{}, false, 0)
	tr.Update(cur, prev, true, 0)

	d := tr.Update(cur, cur, true, 2.0)
	if !d.AllowDedupe {
		t.Errorf("dedupe should be allowed once past the pause window, got %+v", d)
	}
}

func TestMidBandKeepsSceneAwakeWithoutDedupeBlock(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleStride = 1
	tr := New(cfg)
	prev := rawimage.New(8, 8)
	cur := rawimage.New(8, 8)
	// Change 3 of 64 sampled pixels (ratio 0.046875), which lies between
	// the static threshold (0.03) and the wake threshold (0.05).
	for x := 0; x < 3; x++ {
		cur.At(x, 0)[0] = 200
	}
	tr.Update(prev, rawimage.RawImage{}, false, 0)
	d := tr.Update(cur, prev, true, 1)
	if !d.QuietActive || d.IsStaticScene {
		t.Fatalf("expected a mid-band classification, got %+v", d)
	}
	if !d.IsSceneAwake {
		t.Error("mid-band activity should keep the scene awake")
	}
	if d.DedupeBlock || !d.AllowDedupe {
		t.Errorf("mid-band activity should not open a dedupe-block window, got %+v", d)
	}
	if d.DedupeBlock && d.AllowDedupe {
		t.Error("dedupe_block and allow_dedupe must be complementary")
	}
}

func TestPerceptualDistanceSkippedByDefault(t *testing.T) {
	tr := New(DefaultConfig())
	prev := solid(0)
	cur := solid(255)
	tr.Update(prev, rawimage.RawImage{}, false, 0)
	d := tr.Update(cur, prev, true, 1)
	if d.PerceptualDistanceOK {
		t.Error("perceptual distance should be skipped when Diagnostics is off")
	}
}

func TestPerceptualDistanceComputedWhenDiagnosticsEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Diagnostics = true
	tr := New(cfg)
	prev := solid(0)
	cur := solid(255)
	tr.Update(prev, rawimage.RawImage{}, false, 0)
	d := tr.Update(cur, prev, true, 1)
	if !d.PerceptualDistanceOK {
		t.Error("perceptual distance should be computed when Diagnostics is on")
	}
}

func TestSampledDiffRatioMismatchedDimsIsMax(t *testing.T) {
	a := rawimage.New(4, 4)
	b := rawimage.New(8, 8)
	if r := SampledDiffRatio(a, b, 1, 4); r != 1.0 {
		t.Errorf("mismatched dims diff_ratio = %v, want 1.0", r)
	}
}
