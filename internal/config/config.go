// Package config parses the pipeline's CLI surface into a validated
// Config, with environment-variable overrides for the few settings an
// operator might want to pin across runs.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	apperrors "github.com/TavariAgent/cortex-em-spectrum-foundation/internal/errors"
)

// Size is a parsed WxH dimension pair.
type Size struct {
	Width  int
	Height int
}

// Config holds every flag from the CLI surface plus its resolved
// default. Fields are grouped to mirror the flag table.
type Config struct {
	Display int
	Live    bool
	FPS     int
	Seconds int

	Resize    Size
	HasResize bool

	RecordBase string

	NoStaticGate   bool
	StaticSeconds  float64
	StaticTimeout  float64
	StaticTolerant bool

	Grayscale  bool
	Gamma      float64
	Brightness float64
	Contrast   float64
	Pixelate   int
	HasGamma   bool
	HasBright  bool
	HasContr   bool
	HasPixel   bool

	NoAdaptive  bool
	Diagnostics bool

	MetricsPath string
	LiveAddr    string
}

// Default returns a Config matching the flag table's documented defaults.
func Default() Config {
	return Config{
		Display:       0,
		FPS:           30,
		Seconds:       0,
		StaticSeconds: 1.0,
		StaticTimeout: 10.0,
		Gamma:         2.2,
	}
}

// Parse parses args (typically os.Args[1:]) into a Config, applying
// environment-variable overrides for settings an operator commonly
// wants to pin (CORTEX_LIVE_ADDR, CORTEX_METRICS_PATH).
func Parse(args []string) (Config, error) {
	cfg := Default()
	fs := flag.NewFlagSet("cortexcap", flag.ContinueOnError)

	fs.IntVar(&cfg.Display, "capture", cfg.Display, "display index to capture")
	fs.BoolVar(&cfg.Live, "live", cfg.Live, "show preview window")
	fs.IntVar(&cfg.FPS, "fps", cfg.FPS, "target tick rate")
	fs.IntVar(&cfg.Seconds, "seconds", cfg.Seconds, "capture duration; <=0 means single snapshot")

	var resize string
	fs.StringVar(&resize, "resize", "", "resize captured frames, WxH")

	fs.StringVar(&cfg.RecordBase, "record", "", "write non-duplicates as BASE_%06d.bmp")

	fs.BoolVar(&cfg.NoStaticGate, "no-static-gate", false, "skip preflight stability wait")
	fs.Float64Var(&cfg.StaticSeconds, "static-sec", cfg.StaticSeconds, "required stable seconds")
	fs.Float64Var(&cfg.StaticTimeout, "static-timeout", cfg.StaticTimeout, "gate timeout seconds")
	fs.BoolVar(&cfg.StaticTolerant, "static-tolerant", false, "signature-only equality in gate")

	fs.BoolVar(&cfg.Grayscale, "grayscale", false, "persistent luma correction (BT.601)")

	var gamma, brightness, contrast string
	fs.StringVar(&gamma, "gamma", "", "apply gamma correction")
	fs.StringVar(&brightness, "brightness", "", "additive brightness in [-1,1]")
	fs.StringVar(&contrast, "contrast", "", "multiplicative contrast around 0.5")
	fs.IntVar(&cfg.Pixelate, "pixelate", 0, "box-pixelate block size, >=2")

	fs.BoolVar(&cfg.NoAdaptive, "no-adaptive", false, "disable activity tracker gating")
	fs.BoolVar(&cfg.Diagnostics, "diagnostics", false, "enable perceptual-hash diagnostic field")

	fs.StringVar(&cfg.MetricsPath, "metrics", getEnv("CORTEX_METRICS_PATH", ""), "JSONL metrics file")
	fs.StringVar(&cfg.LiveAddr, "live-addr", getEnv("CORTEX_LIVE_ADDR", ""), "serve the live-viewer websocket on this address")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if resize != "" {
		size, err := parseSize(resize)
		if err != nil {
			return Config{}, apperrors.Wrapf(err, apperrors.ConfigInvalid, "invalid --resize %q", resize)
		}
		cfg.Resize = size
		cfg.HasResize = true
	}

	if gamma != "" {
		v, err := strconv.ParseFloat(gamma, 64)
		if err != nil {
			return Config{}, apperrors.Wrapf(err, apperrors.ConfigInvalid, "invalid --gamma %q", gamma)
		}
		cfg.Gamma = v
		cfg.HasGamma = true
	}
	if brightness != "" {
		v, err := strconv.ParseFloat(brightness, 64)
		if err != nil {
			return Config{}, apperrors.Wrapf(err, apperrors.ConfigInvalid, "invalid --brightness %q", brightness)
		}
		if v < -1 || v > 1 {
			return Config{}, apperrors.Newf(apperrors.ConfigInvalid, "--brightness %v out of range [-1,1]", v)
		}
		cfg.Brightness = v
		cfg.HasBright = true
	}
	if contrast != "" {
		v, err := strconv.ParseFloat(contrast, 64)
		if err != nil {
			return Config{}, apperrors.Wrapf(err, apperrors.ConfigInvalid, "invalid --contrast %q", contrast)
		}
		if v < 0 {
			return Config{}, apperrors.Newf(apperrors.ConfigInvalid, "--contrast %v must be >= 0", v)
		}
		cfg.Contrast = v
		cfg.HasContr = true
	}
	if cfg.Pixelate != 0 {
		if cfg.Pixelate < 2 {
			return Config{}, apperrors.Newf(apperrors.ConfigInvalid, "--pixelate %d must be >= 2", cfg.Pixelate)
		}
		cfg.HasPixel = true
	}

	if cfg.FPS < 1 {
		return Config{}, apperrors.Newf(apperrors.ConfigInvalid, "--fps %d must be >= 1", cfg.FPS)
	}

	return cfg, nil
}

func parseSize(s string) (Size, error) {
	parts := strings.SplitN(strings.ToLower(s), "x", 2)
	if len(parts) != 2 {
		return Size{}, fmt.Errorf("expected WxH, got %q", s)
	}
	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Size{}, err
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Size{}, err
	}
	if w <= 0 || h <= 0 {
		return Size{}, fmt.Errorf("dimensions must be positive, got %dx%d", w, h)
	}
	return Size{Width: w, Height: h}, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
