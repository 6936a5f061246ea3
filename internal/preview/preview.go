package preview

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"github.com/go-gl/mathgl/mgl64"
)

// Formats accepted by Encode.
const (
	FormatWebP = "webp"
	FormatTGA  = "tga"
)

// Options control the rendered image.
type Options struct {
	Size        int
	Supersample int
}

var (
	background = color.RGBA{24, 24, 28, 255}
	pelvisCol  = color.RGBA{230, 140, 40, 255}
	rootCol    = color.RGBA{70, 170, 250, 255}
	startCol   = color.RGBA{240, 240, 240, 255}
)

// Render draws the pelvis path under the root path, with a marker at the
// first root sample.
func Render(pelvis, root []mgl64.Vec3, opts Options) *image.NRGBA {
	size := opts.Size
	if size <= 0 {
		size = 256
	}
	ss := opts.Supersample
	if ss < 1 {
		ss = 1
	}
	full := size * ss

	c := NewCanvas(full, full, background, 0.08, pelvis, root)
	lw := float64(ss) * 1.5
	c.Polyline(pelvis, lw, pelvisCol)
	c.Polyline(root, lw, rootCol)
	if len(root) > 0 {
		c.Marker(root[0], lw*3, startCol)
	}

	return Downsample(c.Img, size, size)
}

// Encode writes img in the given format.
func Encode(w io.Writer, img image.Image, format string) error {
	switch format {
	case FormatWebP:
		if err := nativewebp.Encode(w, img, nil); err != nil {
			return fmt.Errorf("preview: WebP encode: %w", err)
		}
	case FormatTGA:
		if err := tga.Encode(w, img); err != nil {
			return fmt.Errorf("preview: TGA encode: %w", err)
		}
	default:
		return fmt.Errorf("preview: unknown format %q", format)
	}
	return nil
}

// WriteFile encodes img to path, creating parent directories.
func WriteFile(path string, img image.Image, format string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, img, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
