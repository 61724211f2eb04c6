//go:build windows

package capture

import "log/slog"

type windowsBackend struct{ tempDir string }

func (w *windowsBackend) captureJPEG() []byte {
	// TODO: implement via Windows GDI/DXGI; no native CLI screenshot tool
	// ships with Windows the way screencapture/gnome-screenshot do.
	slog.Warn("windows screen capture not yet implemented")
	return nil
}

func (w *windowsBackend) cleanup() {}

// New creates the platform-native screen capture source.
func New() *Source {
	tmpDir := mkTempDir("cortex-capture-*")
	return newSource(&windowsBackend{tempDir: tmpDir}, tmpDir)
}
