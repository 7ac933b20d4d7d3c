package dicom

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mrsinham/dicomview/internal/dicom/faults"
	"github.com/mrsinham/dicomview/internal/dicom/modalities"
	"github.com/mrsinham/dicomview/internal/log"
	"github.com/mrsinham/dicomview/internal/study"
)

func studyImage(instance int, source string) study.Image {
	return study.Image{InstanceNumber: instance, Source: source}
}

func generate(t *testing.T, dir string, m modalities.Modality, n int) []GeneratedFile {
	t.Helper()
	files, err := GenerateSeries(context.Background(), GeneratorOptions{
		OutputDir: dir,
		NumImages: n,
		Width:     64,
		Height:    48,
		Modality:  m,
		Seed:      42,
		Workers:   2,
		Quiet:     true,
		Logger:    log.Discard(),
	})
	if err != nil {
		t.Fatalf("GenerateSeries failed: %v", err)
	}
	return files
}

func TestGenerateSeries(t *testing.T) {
	dir := t.TempDir()
	var progress int
	files, err := GenerateSeries(context.Background(), GeneratorOptions{
		OutputDir:        dir,
		NumImages:        3,
		Width:            64,
		Height:           64,
		Seed:             7,
		Quiet:            true,
		Logger:           log.Discard(),
		ProgressCallback: func(current, total int) { progress = current },
	})
	if err != nil {
		t.Fatalf("GenerateSeries failed: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("got %d files, want 3", len(files))
	}
	if progress != 3 {
		t.Errorf("progress callback last saw %d, want 3", progress)
	}
	for i, f := range files {
		if f.InstanceNumber != i+1 {
			t.Errorf("file %d has instance %d", i, f.InstanceNumber)
		}
		if _, err := os.Stat(f.Path); err != nil {
			t.Errorf("file %s not written: %v", f.Path, err)
		}
	}
	if files[0].SeriesUID != files[2].SeriesUID || files[0].SOPInstanceUID == files[1].SOPInstanceUID {
		t.Errorf("unexpected UIDs: %+v", files)
	}
}

func TestGenerateSeries_Deterministic(t *testing.T) {
	a := generate(t, t.TempDir(), modalities.MR, 2)
	b := generate(t, t.TempDir(), modalities.MR, 2)
	for i := range a {
		if a[i].SOPInstanceUID != b[i].SOPInstanceUID || a[i].PatientID != b[i].PatientID {
			t.Errorf("file %d differs between runs with the same seed", i)
		}
	}
}

func TestGenerateSeries_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts GeneratorOptions
	}{
		{"no images", GeneratorOptions{OutputDir: t.TempDir(), NumImages: 0}},
		{"bad modality", GeneratorOptions{OutputDir: t.TempDir(), NumImages: 1, Modality: "US"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Quiet = true
			if _, err := GenerateSeries(context.Background(), tt.opts); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	generate(t, dir, modalities.MR, 4)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a dicom file"), 0644); err != nil {
		t.Fatal(err)
	}

	idx, err := Scan(context.Background(), dir, log.Discard())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if idx.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", idx.Skipped)
	}
	if len(idx.Patients) != 1 || len(idx.Patients[0].Studies) != 1 {
		t.Fatalf("unexpected tree: %+v", idx.Patients)
	}

	ref, err := idx.First()
	if err != nil {
		t.Fatal(err)
	}
	s := ref.Series
	if s.Len() != 4 || s.Modality != "MR" || s.Number != 1 {
		t.Fatalf("series = %+v", s)
	}
	for i, img := range s.Images {
		if img.InstanceNumber != i+1 {
			t.Errorf("image %d has instance %d", i, img.InstanceNumber)
		}
	}
	first := s.Images[0]
	if first.Rows != 48 || first.Columns != 64 {
		t.Errorf("dimensions = %dx%d", first.Columns, first.Rows)
	}
	if first.PixelSpacing.IsZero() || first.SliceThickness <= 0 {
		t.Errorf("geometry missing: %+v", first)
	}

	info := ref.Info()
	if info.PatientID == "" || info.Modality != "MR" || info.PatientName == "" {
		t.Errorf("info = %+v", info)
	}
}

func TestScan_Find(t *testing.T) {
	dir := t.TempDir()
	files := generate(t, dir, modalities.CT, 2)
	idx, err := Scan(context.Background(), dir, log.Discard())
	if err != nil {
		t.Fatal(err)
	}

	ref, err := idx.Find(files[0].PatientID, files[0].StudyUID, files[0].SeriesUID)
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if ref.Series.UID != files[0].SeriesUID {
		t.Errorf("found series %s", ref.Series.UID)
	}

	if _, err := idx.Find("", "", "1.2.3"); !errors.Is(err, ErrSeriesNotFound) {
		t.Errorf("error = %v, want ErrSeriesNotFound", err)
	}
}

func TestScan_Empty(t *testing.T) {
	_, err := Scan(context.Background(), t.TempDir(), log.Discard())
	if !errors.Is(err, ErrNoSeries) {
		t.Errorf("error = %v, want ErrNoSeries", err)
	}
}

func TestOrganizeFiles(t *testing.T) {
	dir := t.TempDir()
	files := generate(t, dir, modalities.MR, 3)

	moved, err := OrganizeFiles(dir, files, true)
	if err != nil {
		t.Fatalf("OrganizeFiles failed: %v", err)
	}
	want := filepath.Join(dir, "PT000000", "ST000000", "SE000000", "IM000001")
	if moved[0].Path != want {
		t.Errorf("first path = %s, want %s", moved[0].Path, want)
	}
	if _, err := os.Stat(files[0].Path); !os.IsNotExist(err) {
		t.Errorf("original file still present")
	}

	idx, err := Scan(context.Background(), dir, log.Discard())
	if err != nil {
		t.Fatal(err)
	}
	ref, _ := idx.First()
	if ref.Series.Len() != 3 {
		t.Errorf("scanned %d images after organizing", ref.Series.Len())
	}
}

func TestDecoder(t *testing.T) {
	for _, m := range modalities.AllModalities() {
		t.Run(string(m), func(t *testing.T) {
			dir := t.TempDir()
			generate(t, dir, m, 1)
			idx, err := Scan(context.Background(), dir, log.Discard())
			if err != nil {
				t.Fatal(err)
			}
			ref, _ := idx.First()
			img := ref.Series.Images[0]

			d, err := NewDecoder(4, log.Discard())
			if err != nil {
				t.Fatal(err)
			}
			res := d.Decode(context.Background(), img)
			if !res.OK() {
				t.Fatalf("decode failed: %v", res.Err)
			}
			if res.Image.Bounds().Dx() != 64 || res.Image.Bounds().Dy() != 48 {
				t.Errorf("bounds = %v", res.Image.Bounds())
			}

			var lo, hi uint8 = 255, 0
			for _, v := range res.Image.Pix {
				lo, hi = min(lo, v), max(hi, v)
			}
			if lo == hi {
				t.Error("decoded slice is flat")
			}
			if !d.Cached(img.Source) {
				t.Error("decoded slice was not cached")
			}
		})
	}
}

func TestDecoder_Placeholder(t *testing.T) {
	d, err := NewDecoder(0, log.Discard())
	if err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(t.TempDir(), "missing.dcm")

	res := <-d.DecodeAsync(context.Background(), studyImage(9, missing))
	if res.OK() || res.Err == nil {
		t.Fatal("expected a decode error")
	}
	if res.Placeholder != "Slice 9" {
		t.Errorf("placeholder = %q", res.Placeholder)
	}

	res = d.Decode(context.Background(), studyImage(1, ""))
	if !errors.Is(res.Err, ErrNoPixelData) {
		t.Errorf("error = %v, want ErrNoPixelData", res.Err)
	}
}

func TestDecoder_Canceled(t *testing.T) {
	d, _ := NewDecoder(1, log.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if res := d.Decode(ctx, studyImage(1, "x.dcm")); !errors.Is(res.Err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", res.Err)
	}
}

func TestSeriesRaster(t *testing.T) {
	dir := t.TempDir()
	generate(t, dir, modalities.MR, 2)
	idx, err := Scan(context.Background(), dir, log.Discard())
	if err != nil {
		t.Fatal(err)
	}
	ref, _ := idx.First()
	d, _ := NewDecoder(2, log.Discard())

	r := SeriesRaster{Decoder: d, Series: ref.Series}
	if _, ok := r.Raster(1); !ok {
		t.Error("slice 1 should decode")
	}
	if _, ok := r.Raster(5); ok {
		t.Error("out-of-range slice should not decode")
	}
}

func TestGenerateSeries_Faults(t *testing.T) {
	dir := t.TempDir()
	files, err := GenerateSeries(context.Background(), GeneratorOptions{
		OutputDir: dir,
		NumImages: 4,
		Width:     32,
		Height:    32,
		Seed:      7,
		Quiet:     true,
		Logger:    log.Discard(),
		Faults: faults.Config{
			Types:      []faults.Type{faults.NoPixels, faults.MissingSpacing, faults.MissingIdentity},
			Percentage: 100,
		},
	})
	if err != nil {
		t.Fatalf("GenerateSeries failed: %v", err)
	}
	want := []faults.Type{faults.NoPixels, faults.MissingSpacing, faults.MissingIdentity, faults.NoPixels}
	for i, f := range files {
		if f.Fault != want[i] {
			t.Errorf("file %d fault = %q, want %q", i, f.Fault, want[i])
		}
	}

	idx, err := Scan(context.Background(), dir, log.Discard())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	ref, err := idx.First()
	if err != nil {
		t.Fatal(err)
	}
	if ref.Series.Len() != 4 {
		t.Fatalf("indexed %d images, want 4", ref.Series.Len())
	}
	if !ref.Series.Images[1].PixelSpacing.IsZero() {
		t.Errorf("hidden spacing still read: %v", ref.Series.Images[1].PixelSpacing)
	}

	dec, err := NewDecoder(4, log.Discard())
	if err != nil {
		t.Fatal(err)
	}
	res := dec.Decode(context.Background(), ref.Series.Images[0])
	if res.OK() || res.Placeholder != "Slice 1" || !errors.Is(res.Err, ErrNoPixelData) {
		t.Errorf("slice without pixels: %+v", res)
	}
	if res := dec.Decode(context.Background(), ref.Series.Images[1]); !res.OK() {
		t.Errorf("slice without spacing failed to decode: %v", res.Err)
	}

	_, err = GenerateSeries(context.Background(), GeneratorOptions{
		OutputDir: t.TempDir(),
		NumImages: 1,
		Quiet:     true,
		Faults:    faults.Config{Percentage: 50},
	})
	if err == nil {
		t.Error("faults without types accepted")
	}
}
