package engine

import (
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/accumulator"
	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/rawimage"
	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/router"
	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/tiler"
)

// FloatFrame is a render result with floating-point channels in [0,1],
// row-major, three channels per pixel (alpha is implicitly opaque).
type FloatFrame struct {
	Width, Height int
	Pix           []float64 // len == Width*Height*3
}

// At returns the R,G,B slice for pixel (x, y).
func (f FloatFrame) At(x, y int) []float64 {
	i := (y*f.Width + x) * 3
	return f.Pix[i : i+3 : i+3]
}

// ToRawImage quantizes the frame to BGRA8 with alpha forced to 255,
// optionally applying an additional gamma curve on top of the render-time
// gamma (pass 1.0 to skip).
func (f FloatFrame) ToRawImage(gamma float64) rawimage.RawImage {
	out := rawimage.New(f.Width, f.Height)
	if !out.Ok() {
		return out
	}
	invGamma := 1.0
	applyGamma := gamma > 0 && gamma != 1.0
	if applyGamma {
		invGamma = 1.0 / gamma
	}
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			px := f.At(x, y)
			r, g, b := clamp01(px[0]), clamp01(px[1]), clamp01(px[2])
			if applyGamma {
				r, g, b = math.Pow(r, invGamma), math.Pow(g, invGamma), math.Pow(b, invGamma)
			}
			d := out.At(x, y)
			d[0] = byte(math.Round(b * 255))
			d[1] = byte(math.Round(g * 255))
			d[2] = byte(math.Round(r * 255))
			d[3] = 255
		}
	}
	return out
}

// Config tunes tiling, supersampling, and accumulator behavior.
type Config struct {
	TileW, TileH   int
	Threads        int
	Router         router.Config
	SppX, SppY     int
	Jitter         bool
	MaxAccumWeight float64
	Gamma          float64
}

// DefaultConfig matches the reference renderer's defaults.
func DefaultConfig() Config {
	return Config{
		TileW:          32,
		TileH:          32,
		Threads:        max(4, runtime.GOMAXPROCS(0)-2),
		Router:         router.DefaultConfig(),
		SppX:           2,
		SppY:           2,
		Jitter:         true,
		MaxAccumWeight: 4.0,
		Gamma:          2.2,
	}
}

// Result is the output of one RenderNextFrame call.
type Result struct {
	Frame               FloatFrame
	TileDirtyMask       []bool
	CalibrationComplete bool
}

// Engine is the tile-parallel static-frame renderer.
type Engine struct {
	cfg    Config
	width  int
	height int

	layout tiler.Layout
	router *router.Router

	accum         *accumulator.Grid
	prevAmplitude []float64
	currAmplitude []float64
	tileDirty     []bool

	opAmplitude         []float64
	opFramesAccumulated int
}

// New creates an engine with the given config. Call SetResolution before
// rendering.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// SetResolution (re)configures the engine for a new frame size, resetting
// all accumulator and calibration state.
func (e *Engine) SetResolution(width, height int) {
	e.width, e.height = width, height
	e.layout = tiler.New(width, height, e.cfg.TileW, e.cfg.TileH)
	e.router = router.New(e.cfg.Router, len(e.layout.Tiles))
	e.accum = accumulator.NewGrid(width, height)
	e.prevAmplitude = make([]float64, width*height)
	e.currAmplitude = make([]float64, width*height)
	e.tileDirty = make([]bool, len(e.layout.Tiles))
	for i := range e.tileDirty {
		e.tileDirty[i] = true
	}
	e.opAmplitude = make([]float64, width*height)
	e.opFramesAccumulated = 0
}

// RenderNextFrame produces one frame, updating amplitude history, the
// router's calibration state, and the accumulator grid in place.
func (e *Engine) RenderNextFrame() Result {
	if e.router == nil {
		e.SetResolution(256, 256)
	}
	e.router.BeginFrame()

	for i := range e.currAmplitude {
		e.currAmplitude[i] = 0
	}

	localDirty := make([]bool, len(e.layout.Tiles))
	var nextTile atomic.Int64
	threads := e.cfg.Threads
	if threads < 1 {
		threads = 1
	}

	var wg sync.WaitGroup
	for w := 0; w < threads; w++ {
		wg.Add(1)
		seed := uint64(0x9E3779B97F4A7C15) + uint64(w)*0xBF58476D1CE4E5B9
		rng := newXorshiftRNG(seed)
		go func(rng *xorshiftRNG) {
			defer wg.Done()
			for {
				ti := int(nextTile.Add(1)) - 1
				if ti >= len(e.layout.Tiles) {
					return
				}
				e.processTile(e.layout.Tiles[ti], ti, localDirty, rng)
			}
		}(rng)
	}
	wg.Wait()

	frame := FloatFrame{Width: e.width, Height: e.height, Pix: make([]float64, e.width*e.height*3)}
	for i := 0; i < e.width*e.height; i++ {
		r, g, b := e.accum.Cells[i].ToPixel()
		frame.Pix[i*3], frame.Pix[i*3+1], frame.Pix[i*3+2] = r, g, b
	}

	copy(e.prevAmplitude, e.currAmplitude)

	calibrated := e.router.Calibrated()
	if !calibrated {
		e.accumulateOperands(frame)
	}

	e.tileDirty = localDirty
	e.clearDynamicTiles()

	return Result{Frame: frame, TileDirtyMask: append([]bool(nil), e.tileDirty...), CalibrationComplete: calibrated}
}

func (e *Engine) processTile(t tiler.Tile, tileIndex int, localDirty []bool, rng *xorshiftRNG) {
	totalPixels := t.Width * t.Height
	changedPixels := 0

	sppX, sppY := e.cfg.SppX, e.cfg.SppY
	if sppX < 1 {
		sppX = 1
	}
	if sppY < 1 {
		sppY = 1
	}
	spp := float64(sppX * sppY)

	eps := 0.0
	if e.router.Calibrated() {
		eps = e.cfg.Router.Epsilon
	}

	for y := t.Y; y < t.Y+t.Height; y++ {
		for x := t.X; x < t.X+t.Width; x++ {
			var sumR, sumG, sumB float64
			for sy := 0; sy < sppY; sy++ {
				for sx := 0; sx < sppX; sx++ {
					jx := 0.5
					if e.cfg.Jitter {
						jx = rng.Float64()
					}
					fx := (float64(sx) + jx) / float64(sppX)
					xN := (float64(x) + fx) / float64(e.width)
					wavelength := violetMinWavelength + (redMaxWavelength-violetMinWavelength)*xN

					r, g, b := WavelengthToRGB(wavelength, e.cfg.Gamma)
					sumR += r
					sumG += g
					sumB += b
				}
			}
			sumR, sumG, sumB = sumR/spp, sumG/spp, sumB/spp

			idx := y*e.width + x
			amp := (math.Abs(sumR) + math.Abs(sumG) + math.Abs(sumB)) / 3
			e.currAmplitude[idx] = amp

			if math.Abs(e.prevAmplitude[idx]-amp) > eps {
				changedPixels++
			}

			e.accum.Cells[idx].Add(sumR, sumG, sumB, 1, e.cfg.MaxAccumWeight)
		}
	}

	percentChanged := 100.0
	if totalPixels > 0 {
		percentChanged = 100.0 * float64(changedPixels) / float64(totalPixels)
	}
	e.router.UpdateTileChange(tileIndex, percentChanged)
	localDirty[tileIndex] = e.router.Decide(tileIndex) == router.Offload
}

func (e *Engine) clearDynamicTiles() {
	for ti, dirty := range e.tileDirty {
		if !dirty {
			continue
		}
		t := e.layout.Tiles[ti]
		for y := t.Y; y < t.Y+t.Height; y++ {
			for x := t.X; x < t.X+t.Width; x++ {
				e.accum.Cells[y*e.width+x].Clear()
			}
		}
	}
}

func (e *Engine) accumulateOperands(frame FloatFrame) {
	n := float64(e.opFramesAccumulated)
	for i := 0; i < e.width*e.height; i++ {
		a := (math.Abs(frame.Pix[i*3]) + math.Abs(frame.Pix[i*3+1]) + math.Abs(frame.Pix[i*3+2])) / 3
		if e.opFramesAccumulated == 0 {
			e.opAmplitude[i] = a
		} else {
			e.opAmplitude[i] = e.opAmplitude[i]*(n/(n+1)) + a/(n+1)
		}
	}
	e.opFramesAccumulated++
}

// OperandAmplitude returns the running per-pixel mean amplitude learned
// during calibration.
func (e *Engine) OperandAmplitude() []float64 {
	return e.opAmplitude
}
