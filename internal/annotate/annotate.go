// Package annotate stores measurement lines and marked regions produced by a
// viewport session and derives physical lengths and region statistics.
package annotate

import (
	"image"
	"image/color"
	"log/slog"
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/mrsinham/dicomview/internal/study"
	"github.com/mrsinham/dicomview/internal/viewport"
)

// RasterSource returns the decoded raster of a slice when available.
type RasterSource interface {
	Raster(slice int) (image.Image, bool)
}

// RegionStats summarizes intensities inside a marked region. Intensities are
// on the 0-100 display scale.
type RegionStats struct {
	Count   int
	Mean    float64
	StdDev  float64
	Min     float64
	Max     float64
	AreaMM2 float64
}

// Entry is a stored annotation with its derived values.
type Entry struct {
	ID         int
	Annotation viewport.Annotation
	LengthMM   float64
	Stats      *RegionStats // regions only, nil when no raster was available
}

// Store keeps annotations per slice. It implements viewport.AnnotationSink.
type Store struct {
	mu      sync.Mutex
	series  *study.ImageSeries
	rasters RasterSource
	logger  *slog.Logger
	entries map[int][]Entry
	nextID  int
}

var _ viewport.AnnotationSink = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithRasterSource enables region statistics.
func WithRasterSource(src RasterSource) Option {
	return func(s *Store) { s.rasters = src }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore returns an empty store for series. The series supplies pixel
// spacing; it may be nil, in which case spacing defaults to 1 mm.
func NewStore(series *study.ImageSeries, opts ...Option) *Store {
	s := &Store{
		series:  series,
		logger:  slog.Default(),
		entries: make(map[int][]Entry),
		nextID:  1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Annotate records a completed measure or region drag.
func (s *Store) Annotate(a viewport.Annotation) {
	spacing := s.spacing(a.Slice)
	e := Entry{
		Annotation: a,
		LengthMM:   Length(a, spacing),
	}
	if a.Kind == viewport.AnnotationRegion && s.rasters != nil {
		if img, ok := s.rasters.Raster(a.Slice); ok {
			if st, ok := ComputeStats(img, a, spacing); ok {
				e.Stats = &st
			}
		}
	}

	s.mu.Lock()
	e.ID = s.nextID
	s.nextID++
	s.entries[a.Slice] = append(s.entries[a.Slice], e)
	s.mu.Unlock()

	s.logger.Debug("annotation stored",
		slog.Int("id", e.ID),
		slog.String("kind", a.Kind.String()),
		slog.Int("slice", a.Slice),
		slog.Float64("length_mm", e.LengthMM))
}

// ForSlice returns the annotations of one slice in insertion order.
func (s *Store) ForSlice(slice int) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries[slice]...)
}

// All returns every annotation ordered by slice, then insertion.
func (s *Store) All() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	slices := make([]int, 0, len(s.entries))
	for k := range s.entries {
		slices = append(slices, k)
	}
	sort.Ints(slices)

	var out []Entry
	for _, k := range slices {
		out = append(out, s.entries[k]...)
	}
	return out
}

// Len returns the number of stored annotations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		n += len(e)
	}
	return n
}

// Undo removes the most recent annotation of a slice and reports whether
// one was removed.
func (s *Store) Undo(slice int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.entries[slice]
	if len(list) == 0 {
		return false
	}
	s.entries[slice] = list[:len(list)-1]
	return true
}

// Clear removes every annotation.
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = make(map[int][]Entry)
	s.mu.Unlock()
}

func (s *Store) spacing(slice int) study.PixelSpacing {
	if img, ok := s.series.At(slice); ok && !img.PixelSpacing.IsZero() {
		return img.PixelSpacing
	}
	return study.PixelSpacing{Row: 1, Column: 1}
}

// Length returns the physical distance between the annotation end points.
// Columns advance along x and rows along y.
func Length(a viewport.Annotation, spacing study.PixelSpacing) float64 {
	dx := (a.End.X - a.Start.X) * spacing.Column
	dy := (a.End.Y - a.Start.Y) * spacing.Row
	return math.Hypot(dx, dy)
}

// Bounds returns the pixel rectangle covered by a region annotation, clipped
// to r.
func Bounds(a viewport.Annotation, r image.Rectangle) image.Rectangle {
	x0 := int(math.Floor(math.Min(a.Start.X, a.End.X)))
	y0 := int(math.Floor(math.Min(a.Start.Y, a.End.Y)))
	x1 := int(math.Ceil(math.Max(a.Start.X, a.End.X)))
	y1 := int(math.Ceil(math.Max(a.Start.Y, a.End.Y)))
	return image.Rect(x0, y0, x1, y1).Intersect(r)
}

// ComputeStats summarizes the raster inside a region annotation. It reports
// false when the region does not overlap the raster.
func ComputeStats(img image.Image, a viewport.Annotation, spacing study.PixelSpacing) (RegionStats, bool) {
	rect := Bounds(a, img.Bounds())
	if rect.Empty() {
		return RegionStats{}, false
	}

	values := make([]float64, 0, rect.Dx()*rect.Dy())
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			values = append(values, float64(g.Y)*100/255)
		}
	}

	mean, std := stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		std = 0
	}
	return RegionStats{
		Count:   len(values),
		Mean:    mean,
		StdDev:  std,
		Min:     floats.Min(values),
		Max:     floats.Max(values),
		AreaMM2: float64(rect.Dx()) * spacing.Column * float64(rect.Dy()) * spacing.Row,
	}, true
}
