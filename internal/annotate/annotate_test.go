package annotate

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/mrsinham/dicomview/internal/study"
	"github.com/mrsinham/dicomview/internal/viewport"
)

type rasterMap map[int]image.Image

func (m rasterMap) Raster(slice int) (image.Image, bool) {
	img, ok := m[slice]
	return img, ok
}

func measure(slice int, x0, y0, x1, y1 float64) viewport.Annotation {
	return viewport.Annotation{
		Kind:  viewport.AnnotationMeasure,
		Slice: slice,
		Start: viewport.Point{X: x0, Y: y0},
		End:   viewport.Point{X: x1, Y: y1},
	}
}

func region(slice int, x0, y0, x1, y1 float64) viewport.Annotation {
	a := measure(slice, x0, y0, x1, y1)
	a.Kind = viewport.AnnotationRegion
	return a
}

func TestLength(t *testing.T) {
	tests := []struct {
		name    string
		a       viewport.Annotation
		spacing study.PixelSpacing
		want    float64
	}{
		{"unit spacing", measure(0, 0, 0, 3, 4), study.PixelSpacing{Row: 1, Column: 1}, 5},
		{"anisotropic", measure(0, 0, 0, 10, 10), study.PixelSpacing{Row: 0.5, Column: 2}, math.Hypot(20, 5)},
		{"zero length", measure(0, 7, 7, 7, 7), study.PixelSpacing{Row: 1, Column: 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Length(tt.a, tt.spacing); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Length() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStore_MeasureUsesSeriesSpacing(t *testing.T) {
	series := &study.ImageSeries{Images: []study.Image{
		{InstanceNumber: 1, PixelSpacing: study.PixelSpacing{Row: 0.5, Column: 0.5}},
	}}
	s := NewStore(series)
	s.Annotate(measure(0, 0, 0, 30, 40))

	got := s.ForSlice(0)
	if len(got) != 1 {
		t.Fatalf("ForSlice(0) returned %d entries", len(got))
	}
	if got[0].LengthMM != 25 {
		t.Errorf("LengthMM = %v, want 25", got[0].LengthMM)
	}
	if got[0].ID != 1 {
		t.Errorf("ID = %d, want 1", got[0].ID)
	}
}

func TestStore_DefaultSpacing(t *testing.T) {
	s := NewStore(nil)
	s.Annotate(measure(4, 0, 0, 6, 8))
	if got := s.ForSlice(4); len(got) != 1 || got[0].LengthMM != 10 {
		t.Errorf("entries = %+v", got)
	}
}

func TestStore_RegionStats(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetGray(x, y, color.Gray{Y: 0})
		}
	}
	img.SetGray(0, 0, color.Gray{Y: 255})
	img.SetGray(1, 0, color.Gray{Y: 255})

	s := NewStore(nil, WithRasterSource(rasterMap{0: img}))
	s.Annotate(region(0, 0, 0, 2, 2))

	e := s.ForSlice(0)[0]
	if e.Stats == nil {
		t.Fatal("region stats missing")
	}
	st := *e.Stats
	if st.Count != 4 || st.Min != 0 || st.Max != 100 || math.Abs(st.Mean-50) > 1e-9 {
		t.Errorf("stats = %+v", st)
	}
	if st.AreaMM2 != 4 {
		t.Errorf("area = %v, want 4", st.AreaMM2)
	}
	if st.StdDev <= 0 {
		t.Errorf("stddev = %v, want > 0", st.StdDev)
	}
}

func TestComputeStats_OutsideRaster(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	if _, ok := ComputeStats(img, region(0, 10, 10, 20, 20), study.PixelSpacing{Row: 1, Column: 1}); ok {
		t.Error("region outside the raster should report no stats")
	}
}

func TestComputeStats_ReversedCorners(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	st, ok := ComputeStats(img, region(0, 6, 6, 2, 2), study.PixelSpacing{Row: 1, Column: 1})
	if !ok || st.Count != 16 {
		t.Errorf("stats = %+v, ok = %v", st, ok)
	}
}

func TestStore_AllUndoClear(t *testing.T) {
	s := NewStore(nil)
	s.Annotate(measure(2, 0, 0, 1, 0))
	s.Annotate(measure(0, 0, 0, 2, 0))
	s.Annotate(measure(2, 0, 0, 3, 0))

	all := s.All()
	if len(all) != 3 || all[0].Annotation.Slice != 0 || all[2].LengthMM != 3 {
		t.Errorf("All() = %+v", all)
	}
	if !s.Undo(2) || s.Len() != 2 {
		t.Errorf("Undo(2): len = %d", s.Len())
	}
	if s.Undo(7) {
		t.Error("Undo on an empty slice reported a removal")
	}
	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Clear: len = %d", s.Len())
	}
}

func TestStore_AsSessionSink(t *testing.T) {
	store := NewStore(nil)
	sess := viewport.NewSession(nil, viewport.WithTool(viewport.ToolMeasure), viewport.WithAnnotationSink(store))
	sess.Handle(viewport.PointerDown{X: 100, Y: 100})
	sess.Handle(viewport.PointerUp{X: 100, Y: 130})
	if got := store.ForSlice(0); len(got) != 1 || got[0].LengthMM != 30 {
		t.Errorf("entries = %+v", got)
	}
}
