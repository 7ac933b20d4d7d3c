// Package viewport implements the image viewport engine: the view transform,
// tool modes, input mapping and slice navigation of a single viewing session.
//
// Nothing in this package draws. The render package consumes the state kept
// here and is the only component that touches a raster.
package viewport

import (
	"math"

	"golang.org/x/image/math/f64"
)

// Transform bounds and defaults.
const (
	MinZoom     = 0.1
	MaxZoom     = 5.0
	DefaultZoom = 1.0

	// ZoomStep is the factor applied by one zoom-in command or wheel notch.
	ZoomStep = 1.2

	RotationStep = 90

	MinWindowCenter     = 0.0
	MaxWindowCenter     = 100.0
	DefaultWindowCenter = 50.0

	MinWindowWidth     = 1.0
	MaxWindowWidth     = 200.0
	DefaultWindowWidth = 100.0
)

// Transform is the viewing transform of a session.
//
// Zoom, Rotation and the window pair always stay inside their bounds; every
// mutator clamps and silently drops non-finite input.
type Transform struct {
	Zoom         float64
	Rotation     int // degrees, one of 0, 90, 180, 270
	PanX         float64
	PanY         float64
	WindowCenter float64
	WindowWidth  float64
}

// DefaultTransform returns the transform used for a freshly loaded series.
func DefaultTransform() Transform {
	return Transform{
		Zoom:         DefaultZoom,
		WindowCenter: DefaultWindowCenter,
		WindowWidth:  DefaultWindowWidth,
	}
}

// Reset restores the defaults. It reports whether anything changed.
func (t *Transform) Reset() bool {
	def := DefaultTransform()
	if *t == def {
		return false
	}
	*t = def
	return true
}

// ApplyZoomDelta multiplies the zoom by factor and clamps the result.
// Non-finite or non-positive factors are ignored.
func (t *Transform) ApplyZoomDelta(factor float64) bool {
	if !finite(factor) || factor <= 0 {
		return false
	}
	next := clamp(t.Zoom*factor, MinZoom, MaxZoom)
	if next == t.Zoom {
		return false
	}
	t.Zoom = next
	return true
}

// ZoomIn zooms in by one ZoomStep.
func (t *Transform) ZoomIn() bool {
	return t.ApplyZoomDelta(ZoomStep)
}

// ZoomOut zooms out by one ZoomStep.
func (t *Transform) ZoomOut() bool {
	return t.ApplyZoomDelta(1 / ZoomStep)
}

// ApplyRotationStep adds step degrees modulo 360. Steps that are not a
// multiple of 90 are ignored.
func (t *Transform) ApplyRotationStep(step int) bool {
	if step%RotationStep != 0 {
		return false
	}
	next := ((t.Rotation+step)%360 + 360) % 360
	if next == t.Rotation {
		return false
	}
	t.Rotation = next
	return true
}

// Rotate turns the image one step clockwise.
func (t *Transform) Rotate() bool {
	return t.ApplyRotationStep(RotationStep)
}

// ApplyPan moves the image by (dx, dy) canvas pixels. Pan is unbounded.
func (t *Transform) ApplyPan(dx, dy float64) bool {
	if !finite(dx) || !finite(dy) {
		return false
	}
	if dx == 0 && dy == 0 {
		return false
	}
	t.PanX += dx
	t.PanY += dy
	return true
}

// ApplyWindowDelta widens or narrows the window by dWidth and shifts its
// center by dCenter.
func (t *Transform) ApplyWindowDelta(dWidth, dCenter float64) bool {
	if !finite(dWidth) || !finite(dCenter) {
		return false
	}
	return t.SetWindow(t.WindowCenter+dCenter, t.WindowWidth+dWidth)
}

// SetWindow sets the window pair directly, clamped to bounds.
func (t *Transform) SetWindow(center, width float64) bool {
	if !finite(center) || !finite(width) {
		return false
	}
	center = clamp(center, MinWindowCenter, MaxWindowCenter)
	width = clamp(width, MinWindowWidth, MaxWindowWidth)
	if center == t.WindowCenter && width == t.WindowWidth {
		return false
	}
	t.WindowCenter = center
	t.WindowWidth = width
	return true
}

// Usable reports whether t can be drawn: every field finite, a positive zoom
// and a positive window width. Transforms built through the mutators always
// are.
func (t Transform) Usable() bool {
	for _, f := range []float64{t.Zoom, t.PanX, t.PanY, t.WindowCenter, t.WindowWidth} {
		if !finite(f) {
			return false
		}
	}
	return t.Zoom > 0 && t.WindowWidth > 0
}

// Size is a width/height pair in pixels.
type Size struct {
	W, H float64
}

// Point is a 2D coordinate.
type Point struct {
	X, Y float64
}

// Matrix returns the affine transform mapping image pixel coordinates to
// canvas coordinates: the image center lands on the canvas center shifted by
// the pan offset, rotated by Rotation (clockwise on a y-down surface) and
// scaled by Zoom.
func (t Transform) Matrix(canvas, image Size) f64.Aff3 {
	sin, cos := cardinalSinCos(t.Rotation)
	z := t.Zoom
	cx := canvas.W/2 + t.PanX
	cy := canvas.H/2 + t.PanY
	hw, hh := image.W/2, image.H/2

	return f64.Aff3{
		z * cos, -z * sin, cx - z*(cos*hw-sin*hh),
		z * sin, z * cos, cy - z*(sin*hw+cos*hh),
	}
}

// ImageToCanvas maps an image-space point onto the canvas.
func (t Transform) ImageToCanvas(p Point, canvas, image Size) Point {
	m := t.Matrix(canvas, image)
	return Point{
		X: m[0]*p.X + m[1]*p.Y + m[2],
		Y: m[3]*p.X + m[4]*p.Y + m[5],
	}
}

// CanvasToImage maps a canvas point back into image space.
func (t Transform) CanvasToImage(p Point, canvas, image Size) Point {
	sin, cos := cardinalSinCos(t.Rotation)
	vx := p.X - (canvas.W/2 + t.PanX)
	vy := p.Y - (canvas.H/2 + t.PanY)
	// inverse rotation, then inverse scale
	rx := (cos*vx + sin*vy) / t.Zoom
	ry := (-sin*vx + cos*vy) / t.Zoom
	return Point{X: rx + image.W/2, Y: ry + image.H/2}
}

// cardinalSinCos returns exact values for the supported rotations so the
// matrix carries no floating point noise.
func cardinalSinCos(deg int) (sin, cos float64) {
	switch ((deg%360 + 360) % 360) {
	case 90:
		return 1, 0
	case 180:
		return 0, -1
	case 270:
		return -1, 0
	default:
		return 0, 1
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
