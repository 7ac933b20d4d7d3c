package viewport

import (
	"github.com/mrsinham/dicomview/internal/study"
)

const (
	// DefaultCanvasSize is the edge length of the square rendering surface.
	DefaultCanvasSize = 512
	// PlaceholderSize is the edge length of the raster drawn for a slice
	// without pixels.
	PlaceholderSize = 512
)

// AnnotationKind distinguishes measurement lines from marked regions.
type AnnotationKind int

const (
	AnnotationMeasure AnnotationKind = iota
	AnnotationRegion
)

func (k AnnotationKind) String() string {
	if k == AnnotationRegion {
		return "region"
	}
	return "measure"
}

// Annotation is a completed measure or region drag. Start and End are image
// pixel coordinates.
type Annotation struct {
	Kind  AnnotationKind
	Slice int
	Start Point
	End   Point
}

// AnnotationSink consumes annotations emitted by a session.
type AnnotationSink interface {
	Annotate(Annotation)
}

// Session is the state of one open viewport: the borrowed series, the slice
// navigator, the transform, the active tool and the transient drag state.
//
// A Session is not safe for concurrent use. It is owned by the UI loop.
type Session struct {
	series    *study.ImageSeries
	nav       *Navigator
	transform Transform
	tools     ToolController

	dragging  bool
	last      Point
	dragStart Point

	canvas    Size
	imageSize Size
	sink      AnnotationSink
}

// Option configures a Session.
type Option func(*Session)

// WithCanvasSize sets the rendering surface size in pixels.
func WithCanvasSize(w, h int) Option {
	return func(s *Session) {
		if w > 0 && h > 0 {
			s.canvas = Size{W: float64(w), H: float64(h)}
		}
	}
}

// WithAnnotationSink registers the consumer of measure and region drags.
func WithAnnotationSink(sink AnnotationSink) Option {
	return func(s *Session) { s.sink = sink }
}

// WithLoop makes playback wrap around at the end of the series.
func WithLoop(loop bool) Option {
	return func(s *Session) { s.nav.Loop = loop }
}

// WithTool sets the initial tool. Invalid modes are ignored.
func WithTool(mode ToolMode) Option {
	return func(s *Session) { _ = s.tools.SetTool(mode) }
}

// NewSession opens a session on series. The series is borrowed and never
// modified; it may be nil.
func NewSession(series *study.ImageSeries, opts ...Option) *Session {
	s := &Session{
		nav:       NewNavigator(series.Len()),
		transform: DefaultTransform(),
		canvas:    Size{W: DefaultCanvasSize, H: DefaultCanvasSize},
	}
	s.series = series
	for _, opt := range opts {
		opt(s)
	}
	s.syncImageSize()
	return s
}

// Load replaces the series, resetting the transform, the slice index and any
// drag in progress. The tool is kept.
func (s *Session) Load(series *study.ImageSeries) {
	s.series = series
	s.nav.SetLength(series.Len())
	s.transform = DefaultTransform()
	s.dragging = false
	s.syncImageSize()
}

// Series returns the borrowed series.
func (s *Session) Series() *study.ImageSeries { return s.series }

// Navigator exposes slice navigation and playback.
func (s *Session) Navigator() *Navigator { return s.nav }

// Index returns the current slice index.
func (s *Session) Index() int { return s.nav.Index() }

// Current returns the image at the current slice.
func (s *Session) Current() (study.Image, bool) {
	return s.series.At(s.nav.Index())
}

// Transform returns a copy of the current transform.
func (s *Session) Transform() Transform { return s.transform }

// Tool returns the active tool.
func (s *Session) Tool() ToolMode { return s.tools.Mode() }

// SetTool switches the active tool. A drag in progress continues under the
// new tool; deltas already applied are kept.
func (s *Session) SetTool(mode ToolMode) error { return s.tools.SetTool(mode) }

// Dragging reports whether a pointer drag is active.
func (s *Session) Dragging() bool { return s.dragging }

// Canvas returns the rendering surface size.
func (s *Session) Canvas() Size { return s.canvas }

// ImageSize returns the natural size of the current image as last reported.
func (s *Session) ImageSize() Size { return s.imageSize }

// SetImageSize records the size of the raster drawn for the current slice,
// used to map canvas coordinates into image space.
func (s *Session) SetImageSize(w, h int) {
	if w > 0 && h > 0 {
		s.imageSize = Size{W: float64(w), H: float64(h)}
	}
}

// UsePlaceholder records that the placeholder is drawn for the current slice.
func (s *Session) UsePlaceholder() {
	s.imageSize = Size{W: PlaceholderSize, H: PlaceholderSize}
}

// Pending returns the in-progress annotation of an active measure or region
// drag, in image space.
func (s *Session) Pending() (Annotation, bool) {
	mode := s.tools.Mode()
	if !s.dragging || !mode.Annotates() {
		return Annotation{}, false
	}
	return s.annotation(mode, s.dragStart, s.last), true
}

// Seek moves to slice i, clamped.
func (s *Session) Seek(i int) bool {
	if !s.nav.Seek(i) {
		return false
	}
	s.syncImageSize()
	return true
}

// Next moves to the next slice.
func (s *Session) Next() bool { return s.Seek(s.nav.Index() + 1) }

// Previous moves to the previous slice.
func (s *Session) Previous() bool { return s.Seek(s.nav.Index() - 1) }

// Tick advances playback by one slice.
func (s *Session) Tick() bool {
	if !s.nav.Tick() {
		return false
	}
	s.syncImageSize()
	return true
}

// ZoomIn zooms in one step.
func (s *Session) ZoomIn() bool { return s.transform.ZoomIn() }

// ZoomOut zooms out one step.
func (s *Session) ZoomOut() bool { return s.transform.ZoomOut() }

// Rotate turns the image 90 degrees clockwise.
func (s *Session) Rotate() bool { return s.transform.Rotate() }

// RotateBy turns the image by step degrees.
func (s *Session) RotateBy(step int) bool { return s.transform.ApplyRotationStep(step) }

// Pan moves the image by (dx, dy) canvas pixels.
func (s *Session) Pan(dx, dy float64) bool { return s.transform.ApplyPan(dx, dy) }

// SetZoom sets an absolute zoom, clamped.
func (s *Session) SetZoom(z float64) bool {
	if !finite(z) || z <= 0 {
		return false
	}
	z = clamp(z, MinZoom, MaxZoom)
	if z == s.transform.Zoom {
		return false
	}
	s.transform.Zoom = z
	return true
}

// SetWindow sets the window pair, clamped.
func (s *Session) SetWindow(center, width float64) bool {
	return s.transform.SetWindow(center, width)
}

// Reset restores the default transform.
func (s *Session) Reset() bool { return s.transform.Reset() }

func (s *Session) annotation(mode ToolMode, start, end Point) Annotation {
	kind := AnnotationMeasure
	if mode == ToolRegionMark {
		kind = AnnotationRegion
	}
	return Annotation{
		Kind:  kind,
		Slice: s.nav.Index(),
		Start: s.transform.CanvasToImage(start, s.canvas, s.imageSize),
		End:   s.transform.CanvasToImage(end, s.canvas, s.imageSize),
	}
}

// syncImageSize expects the raster the slice header announces, or the
// placeholder when the header has no dimensions. Callers that end up drawing
// something else report it with SetImageSize or UsePlaceholder.
func (s *Session) syncImageSize() {
	if img, ok := s.Current(); ok && img.Columns > 0 && img.Rows > 0 {
		s.imageSize = Size{W: float64(img.Columns), H: float64(img.Rows)}
		return
	}
	s.UsePlaceholder()
}
