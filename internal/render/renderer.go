// Package render composes a viewport frame: the windowed slice placed by the
// view transform, annotation graphics and the four corner text overlays.
package render

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/mrsinham/dicomview/internal/annotate"
	"github.com/mrsinham/dicomview/internal/study"
	"github.com/mrsinham/dicomview/internal/viewport"
)

// PlaceholderSize is the edge length of the frame drawn for missing images.
const PlaceholderSize = viewport.PlaceholderSize

const overlayMargin = 8

var (
	measureColor = color.RGBA{255, 220, 0, 255}
	regionColor  = color.RGBA{0, 200, 255, 255}
	pendingColor = color.RGBA{255, 255, 255, 255}
)

// Input is everything a frame depends on. Rendering the same Input twice
// yields identical pixels.
type Input struct {
	// Image is the decoded raster. nil selects the placeholder.
	Image image.Image
	// PlaceholderLabel names the placeholder; empty means "Slice <n>".
	PlaceholderLabel string

	Slice     study.Image
	Index     int
	Series    *study.ImageSeries
	Info      study.Info
	Transform viewport.Transform
	Tool      viewport.ToolMode

	// Canvas is the output size; zero means 512x512.
	Canvas image.Point

	Annotations []viewport.Annotation
	Pending     *viewport.Annotation
}

// FromSession fills an Input from the session state.
func FromSession(s *viewport.Session, info study.Info, img image.Image) Input {
	slice, _ := s.Current()
	c := s.Canvas()
	in := Input{
		Image:     img,
		Slice:     slice,
		Index:     s.Index(),
		Series:    s.Series(),
		Info:      info,
		Transform: s.Transform(),
		Tool:      s.Tool(),
		Canvas:    image.Pt(int(c.W), int(c.H)),
	}
	if p, ok := s.Pending(); ok {
		in.Pending = &p
	}
	return in
}

// Renderer draws frames. It is safe for concurrent use.
type Renderer struct {
	mu     sync.Mutex
	face   font.Face
	logger *slog.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

// WithFace overrides the overlay font.
func WithFace(f font.Face) Option {
	return func(r *Renderer) { r.face = f }
}

// New returns a renderer using Go Mono for overlays, falling back to the
// built-in 7x13 bitmap face.
func New(opts ...Option) *Renderer {
	r := &Renderer{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	if r.face == nil {
		face, err := monoFace(12)
		if err != nil {
			r.logger.Warn("overlay font unavailable, using bitmap font", slog.Any("error", err))
			face = basicfont.Face7x13
		}
		r.face = face
	}
	return r
}

func monoFace(size float64) (font.Face, error) {
	f, err := opentype.Parse(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse go mono: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("create face: %w", err)
	}
	return face, nil
}

// Render composes one frame.
func (r *Renderer) Render(in Input) *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, h := in.Canvas.X, in.Canvas.Y
	if w <= 0 || h <= 0 {
		w, h = PlaceholderSize, PlaceholderSize
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, draw.Src)

	t := in.Transform
	if !t.Usable() {
		r.logger.Debug("unusable transform, drawing with defaults", slog.Any("transform", t))
		t = viewport.DefaultTransform()
	}

	src := in.Image
	if src == nil || src.Bounds().Empty() {
		label := in.PlaceholderLabel
		if label == "" {
			label = fmt.Sprintf("Slice %d", in.Index+1)
		}
		r.logger.Debug("rendering placeholder", slog.Int("slice", in.Index), slog.String("label", label))
		src = r.placeholder(label)
	}

	// Step 1: window/level
	windowed := ApplyWindow(src, t.WindowCenter, t.WindowWidth)
	sb := windowed.Bounds()

	// Step 2: place the image with the view transform
	canvasSize := viewport.Size{W: float64(w), H: float64(h)}
	imageSize := viewport.Size{W: float64(sb.Dx()), H: float64(sb.Dy())}
	m := t.Matrix(canvasSize, imageSize)
	draw.BiLinear.Transform(dst, m, windowed, sb, draw.Over, nil)

	// Step 3: annotations, then text on top
	spacing := in.Slice.PixelSpacing
	if spacing.IsZero() {
		spacing = study.PixelSpacing{Row: 1, Column: 1}
	}
	for _, a := range in.Annotations {
		if a.Slice == in.Index {
			r.drawAnnotation(dst, a, t, canvasSize, imageSize, spacing, false)
		}
	}
	if in.Pending != nil {
		r.drawAnnotation(dst, *in.Pending, t, canvasSize, imageSize, spacing, true)
	}

	in.Transform = t
	r.drawOverlay(dst, BuildOverlay(in, sb.Dx(), sb.Dy()))
	return dst
}

// Placeholder returns the 512x512 frame used when a slice has no pixels.
func (r *Renderer) Placeholder(label string) *image.Gray {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.placeholder(label)
}

func (r *Renderer) placeholder(label string) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, PlaceholderSize, PlaceholderSize))
	// vertical gradient so orientation stays visible while rotating
	for y := 0; y < PlaceholderSize; y++ {
		v := uint8(24 + y*48/PlaceholderSize)
		row := img.Pix[y*img.Stride : y*img.Stride+PlaceholderSize]
		for x := range row {
			row[x] = v
		}
	}

	// Render the label at base size, then scale it up to a third of the width.
	textW := font.MeasureString(r.face, label).Ceil()
	metrics := r.face.Metrics()
	textH := metrics.Height.Ceil()
	if textW == 0 || textH == 0 {
		return img
	}
	textImg := image.NewGray(image.Rect(0, 0, textW, textH))
	d := &font.Drawer{
		Dst:  textImg,
		Src:  image.White,
		Face: r.face,
		Dot:  fixed.Point26_6{Y: metrics.Ascent},
	}
	d.DrawString(label)

	scale := math.Max(2, float64(PlaceholderSize)*0.33/float64(textW))
	sw, sh := int(float64(textW)*scale), int(float64(textH)*scale)
	x := (PlaceholderSize - sw) / 2
	y := (PlaceholderSize - sh) / 2
	target := image.Rect(x, y, x+sw, y+sh)

	scaled := image.NewGray(image.Rect(0, 0, sw, sh))
	draw.BiLinear.Scale(scaled, scaled.Bounds(), textImg, textImg.Bounds(), draw.Src, nil)
	for sy := 0; sy < sh; sy++ {
		for sx := 0; sx < sw; sx++ {
			if v := scaled.Pix[sy*scaled.Stride+sx]; v > 0 {
				p := image.Pt(target.Min.X+sx, target.Min.Y+sy)
				if p.In(img.Bounds()) && v > img.GrayAt(p.X, p.Y).Y {
					img.SetGray(p.X, p.Y, color.Gray{Y: v})
				}
			}
		}
	}
	return img
}

func (r *Renderer) drawOverlay(dst *image.RGBA, ov Overlay) {
	b := dst.Bounds()
	metrics := r.face.Metrics()
	lineH := metrics.Height.Ceil()
	ascent := metrics.Ascent.Ceil()

	for i, s := range ov.TopLeft {
		r.drawText(dst, s, overlayMargin, overlayMargin+ascent+i*lineH)
	}
	for i, s := range ov.TopRight {
		x := b.Max.X - overlayMargin - font.MeasureString(r.face, s).Ceil()
		r.drawText(dst, s, x, overlayMargin+ascent+i*lineH)
	}
	bottom := b.Max.Y - overlayMargin - metrics.Descent.Ceil()
	for i, s := range ov.BottomLeft {
		y := bottom - (len(ov.BottomLeft)-1-i)*lineH
		r.drawText(dst, s, overlayMargin, y)
	}
	for i, s := range ov.BottomRight {
		x := b.Max.X - overlayMargin - font.MeasureString(r.face, s).Ceil()
		y := bottom - (len(ov.BottomRight)-1-i)*lineH
		r.drawText(dst, s, x, y)
	}
}

// drawText draws white text with a one pixel black outline; (x, y) is the
// baseline origin.
func (r *Renderer) drawText(dst draw.Image, s string, x, y int) {
	d := &font.Drawer{Dst: dst, Face: r.face}

	d.Src = image.Black
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			d.Dot = fixed.P(x+dx, y+dy)
			d.DrawString(s)
		}
	}

	d.Src = image.White
	d.Dot = fixed.P(x, y)
	d.DrawString(s)
}

func (r *Renderer) drawAnnotation(dst *image.RGBA, a viewport.Annotation, t viewport.Transform,
	canvas, img viewport.Size, spacing study.PixelSpacing, pending bool) {

	toCanvas := func(p viewport.Point) viewport.Point { return t.ImageToCanvas(p, canvas, img) }

	switch a.Kind {
	case viewport.AnnotationRegion:
		c := regionColor
		if pending {
			c = pendingColor
		}
		corners := []viewport.Point{
			{X: a.Start.X, Y: a.Start.Y},
			{X: a.End.X, Y: a.Start.Y},
			{X: a.End.X, Y: a.End.Y},
			{X: a.Start.X, Y: a.End.Y},
		}
		for i := range corners {
			drawLine(dst, toCanvas(corners[i]), toCanvas(corners[(i+1)%4]), c)
		}

	default:
		c := measureColor
		if pending {
			c = pendingColor
		}
		p0, p1 := toCanvas(a.Start), toCanvas(a.End)
		drawLine(dst, p0, p1, c)
		label := fmt.Sprintf("%.1f mm", annotate.Length(a, spacing))
		r.drawText(dst, label, int(math.Round(p1.X))+4, int(math.Round(p1.Y))-4)
	}
}

// drawLine rasterizes a segment by sampling it once per pixel of its longest
// axis.
func drawLine(dst *image.RGBA, p0, p1 viewport.Point, c color.RGBA) {
	dx, dy := p1.X-p0.X, p1.Y-p0.Y
	steps := int(math.Ceil(math.Max(math.Abs(dx), math.Abs(dy))))
	if steps == 0 {
		steps = 1
	}
	// bound the work for far off-canvas segments
	if steps > 4*(dst.Bounds().Dx()+dst.Bounds().Dy()) {
		steps = 4 * (dst.Bounds().Dx() + dst.Bounds().Dy())
	}
	for i := 0; i <= steps; i++ {
		f := float64(i) / float64(steps)
		x := int(math.Round(p0.X + dx*f))
		y := int(math.Round(p0.Y + dy*f))
		if image.Pt(x, y).In(dst.Bounds()) {
			dst.SetRGBA(x, y, c)
		}
	}
}
