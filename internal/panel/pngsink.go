package panel

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

// PNGSink writes every frame to a PNG file, for running without hardware.
type PNGSink struct {
	path   string
	bounds image.Rectangle
}

func NewPNGSink(path string, bounds image.Rectangle) (*PNGSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("panel: png dir: %w", err)
	}
	return &PNGSink{path: path, bounds: bounds}, nil
}

func (p *PNGSink) Bounds() image.Rectangle { return p.bounds }

func (p *PNGSink) Full(img *image.Gray) error { return p.write(img) }

func (p *PNGSink) Partial(_ image.Rectangle, img *image.Gray) error { return p.write(img) }

// write renames a temp file into place so readers never see a torn image.
func (p *PNGSink) write(img *image.Gray) error {
	tmp, err := os.CreateTemp(filepath.Dir(p.path), ".inkhat-*.png")
	if err != nil {
		return err
	}
	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("panel: encode png: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), p.path)
}

func (p *PNGSink) Sleep() error { return nil }
func (p *PNGSink) Close() error { return nil }
