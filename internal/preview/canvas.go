// Package preview draws a top-down image of a clip's original pelvis path and
// its extracted root path.
package preview

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/image/vector"
)

// Canvas is the supersampled drawing target. World XY maps to pixels with +Y
// pointing up.
type Canvas struct {
	Width  int
	Height int
	Img    *image.RGBA

	scale  float64
	offset mgl64.Vec2
}

// NewCanvas allocates a canvas filled with bg, framing the XY bounds of paths
// with a border of pad (fraction of the size).
func NewCanvas(w, h int, bg color.Color, pad float64, paths ...[]mgl64.Vec3) *Canvas {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	minP := mgl64.Vec2{math.Inf(1), math.Inf(1)}
	maxP := mgl64.Vec2{math.Inf(-1), math.Inf(-1)}
	for _, path := range paths {
		for _, p := range path {
			minP = mgl64.Vec2{math.Min(minP[0], p.X()), math.Min(minP[1], p.Y())}
			maxP = mgl64.Vec2{math.Max(maxP[0], p.X()), math.Max(maxP[1], p.Y())}
		}
	}
	if math.IsInf(minP[0], 1) {
		minP, maxP = mgl64.Vec2{}, mgl64.Vec2{}
	}

	span := math.Max(maxP[0]-minP[0], maxP[1]-minP[1])
	if span < 1e-9 {
		span = 1
	}
	usable := float64(min(w, h)) * (1 - 2*pad)
	scale := usable / span
	center := minP.Add(maxP).Mul(0.5)

	return &Canvas{
		Width:  w,
		Height: h,
		Img:    img,
		scale:  scale,
		offset: mgl64.Vec2{float64(w)/2 - center[0]*scale, float64(h)/2 + center[1]*scale},
	}
}

// Project maps a world position to pixel coordinates.
func (c *Canvas) Project(p mgl64.Vec3) mgl64.Vec2 {
	return mgl64.Vec2{c.offset[0] + p.X()*c.scale, c.offset[1] - p.Y()*c.scale}
}

// Polyline strokes path with the given width in pixels.
func (c *Canvas) Polyline(path []mgl64.Vec3, width float64, col color.Color) {
	z := vector.NewRasterizer(c.Width, c.Height)
	hw := width / 2
	for i := 1; i < len(path); i++ {
		a, b := c.Project(path[i-1]), c.Project(path[i])
		d := b.Sub(a)
		if d.Len() < 1e-9 {
			continue
		}
		n := mgl64.Vec2{-d[1], d[0]}.Normalize().Mul(hw)
		quad(z, a.Add(n), b.Add(n), b.Sub(n), a.Sub(n))
	}
	z.Draw(c.Img, c.Img.Bounds(), image.NewUniform(col), image.Point{})
}

// Marker draws a filled square of side size centred on p.
func (c *Canvas) Marker(p mgl64.Vec3, size float64, col color.Color) {
	z := vector.NewRasterizer(c.Width, c.Height)
	q := c.Project(p)
	h := size / 2
	quad(z,
		mgl64.Vec2{q[0] - h, q[1] - h}, mgl64.Vec2{q[0] + h, q[1] - h},
		mgl64.Vec2{q[0] + h, q[1] + h}, mgl64.Vec2{q[0] - h, q[1] + h},
	)
	z.Draw(c.Img, c.Img.Bounds(), image.NewUniform(col), image.Point{})
}

func quad(z *vector.Rasterizer, a, b, cc, d mgl64.Vec2) {
	z.MoveTo(float32(a[0]), float32(a[1]))
	z.LineTo(float32(b[0]), float32(b[1]))
	z.LineTo(float32(cc[0]), float32(cc[1]))
	z.LineTo(float32(d[0]), float32(d[1]))
	z.ClosePath()
}
