package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mrsinham/dicomview/internal/annotate"
	"github.com/mrsinham/dicomview/internal/dicom"
	"github.com/mrsinham/dicomview/internal/dicom/faults"
	"github.com/mrsinham/dicomview/internal/dicom/modalities"
	"github.com/mrsinham/dicomview/internal/export"
	"github.com/mrsinham/dicomview/internal/log"
	"github.com/mrsinham/dicomview/internal/render"
	"github.com/mrsinham/dicomview/internal/viewport"
)

func runDemo(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("demo", flag.ContinueOnError)
	fs.SetOutput(stderr)
	outputDir := fs.String("output", "dicomview_demo", "Output directory")
	numImages := fs.Int("num-images", 24, "Number of slices to generate")
	modality := fs.String("modality", "MR", fmt.Sprintf("Imaging modality: %v", modalities.AllModalities()))
	size := fs.Int("size", dicom.DefaultImageSize, "Edge length of each slice in pixels")
	seed := fs.Int64("seed", 0, "Seed for reproducibility (derived from --output if 0)")
	workers := fs.Int("workers", 0, "Number of parallel workers (default: CPU cores)")
	organize := fs.Bool("organize", false, "Move files into a PT/ST/SE/IM hierarchy")
	quiet := fs.Bool("quiet", false, "Suppress progress output")
	faultTypes := fs.String("faults", "", fmt.Sprintf("Damage some files: %v (or 'all')", faults.AllTypes()))
	faultPct := fs.Int("fault-percentage", 20, "Share of files damaged when --faults is set (0-100)")
	configFile := fs.String("config", "", "Configuration file")
	if err := fs.Parse(args); err != nil {
		return parseError(err)
	}

	if _, err := loadConfig(*configFile, false); err != nil {
		return err
	}

	m := modalities.Modality(strings.ToUpper(*modality))
	if !modalities.IsValid(string(m)) {
		return fmt.Errorf("invalid modality %q, valid options: %v", *modality, modalities.AllModalities())
	}

	types, err := faults.ParseTypes(*faultTypes)
	if err != nil {
		return err
	}
	var faultCfg faults.Config
	if len(types) > 0 {
		faultCfg = faults.Config{Types: types, Percentage: *faultPct}
	}

	if !*quiet {
		fmt.Fprintln(stdout, "dicomview demo")
		fmt.Fprintln(stdout, "==============")
	}
	files, err := dicom.GenerateSeries(ctx, dicom.GeneratorOptions{
		OutputDir: *outputDir,
		NumImages: *numImages,
		Width:     *size,
		Height:    *size,
		Modality:  m,
		Seed:      *seed,
		Workers:   *workers,
		Quiet:     *quiet,
		Logger:    log.WithComponent("generator"),
		Faults:    faultCfg,
	})
	if err != nil {
		return fmt.Errorf("generate series: %w", err)
	}
	if *organize {
		if _, err := dicom.OrganizeFiles(*outputDir, files, *quiet); err != nil {
			return fmt.Errorf("organize files: %w", err)
		}
	}

	if !*quiet {
		for _, f := range files {
			if f.Fault != "" {
				fmt.Fprintf(stdout, "  damaged: %s (%s)\n", filepath.Base(f.Path), f.Fault)
			}
		}
		fmt.Fprintf(stdout, "\n✓ %d slices written to %s\n", len(files), *outputDir)
		fmt.Fprintf(stdout, "  Open them with: dicomview %s\n", *outputDir)
	}
	return nil
}

// renderFlags are the view settings of a headless render.
type renderFlags struct {
	series  string
	slice   int
	tool    string
	zoom    float64
	rotate  int
	pan     string
	window  string
	preset  string
	measure string
	region  string
	canvas  int
	out     string
	format  string
}

func runRender(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var rf renderFlags
	configFile := fs.String("config", "", "Configuration file")
	fs.StringVar(&rf.series, "series", "", "SeriesInstanceUID (default: first series)")
	fs.IntVar(&rf.slice, "slice", 1, "1-based slice to render")
	fs.StringVar(&rf.tool, "tool", "", "Active tool shown in the overlay readout")
	fs.Float64Var(&rf.zoom, "zoom", viewport.DefaultZoom, "Zoom factor")
	fs.IntVar(&rf.rotate, "rotate", 0, "Clockwise rotation in degrees, a multiple of 90")
	fs.StringVar(&rf.pan, "pan", "", "Pan offset in canvas pixels: dx,dy")
	fs.StringVar(&rf.window, "window", "", "Window on the 0-100 scale: center,width")
	fs.StringVar(&rf.preset, "preset", "", "Named window preset of the series modality")
	fs.StringVar(&rf.measure, "measure", "", "Measurement line in image pixels: x0,y0,x1,y1")
	fs.StringVar(&rf.region, "region", "", "Marked region in image pixels: x0,y0,x1,y1")
	fs.IntVar(&rf.canvas, "canvas", 0, "Canvas edge length (default from config)")
	fs.StringVar(&rf.out, "out", "", "Output file; the extension selects the format")
	fs.StringVar(&rf.format, "format", "", "Output format when --out has no known extension")
	if err := fs.Parse(args); err != nil {
		return parseError(err)
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Error: a DICOM directory is required")
		return errUsage
	}

	cfg, err := loadConfig(*configFile, false)
	if err != nil {
		return err
	}
	if rf.canvas <= 0 {
		rf.canvas = cfg.Viewport.CanvasSize
	}

	idx, err := dicom.Scan(ctx, fs.Arg(0), log.WithComponent("scan"))
	if err != nil {
		return err
	}
	ref, err := idx.Find("", "", rf.series)
	if err != nil {
		return err
	}

	dec, err := dicom.NewDecoder(cfg.Decoder.CacheSize, log.WithComponent("decoder"))
	if err != nil {
		return err
	}
	store := annotate.NewStore(ref.Series,
		annotate.WithRasterSource(dicom.SeriesRaster{Decoder: dec, Series: ref.Series}),
		annotate.WithLogger(log.WithComponent("annotate")))
	session := viewport.NewSession(ref.Series,
		viewport.WithCanvasSize(rf.canvas, rf.canvas),
		viewport.WithAnnotationSink(store))

	if err := applyRenderFlags(session, ref, rf); err != nil {
		return err
	}

	slice, _ := session.Current()
	res := dec.Decode(ctx, slice)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var img image.Image
	if res.OK() {
		img = res.Image
		b := res.Image.Bounds()
		session.SetImageSize(b.Dx(), b.Dy())
	} else {
		session.UsePlaceholder()
	}

	// annotations need the image size to land in the right place
	for _, a := range []struct {
		kind viewport.AnnotationKind
		coords string
	}{{viewport.AnnotationMeasure, rf.measure}, {viewport.AnnotationRegion, rf.region}} {
		if a.coords == "" {
			continue
		}
		v, err := parseFloats(a.coords, 4)
		if err != nil {
			return fmt.Errorf("--%s: %w", a.kind, err)
		}
		store.Annotate(viewport.Annotation{
			Kind:  a.kind,
			Slice: session.Index(),
			Start: viewport.Point{X: v[0], Y: v[1]},
			End:   viewport.Point{X: v[2], Y: v[3]},
		})
	}

	in := render.FromSession(session, ref.Info(), img)
	in.PlaceholderLabel = res.Placeholder
	for _, e := range store.ForSlice(session.Index()) {
		in.Annotations = append(in.Annotations, e.Annotation)
	}
	frame := render.New(render.WithLogger(log.WithComponent("render"))).Render(in)
	ov := render.BuildOverlay(in, frame.Bounds().Dx(), frame.Bounds().Dy())

	format, err := outputFormat(rf)
	if err != nil {
		return err
	}
	out := rf.out
	if out == "" {
		out = filepath.Join(cfg.Export.Dir, export.FileName(session.Index(), format))
	}
	src := export.FrameFunc(func() (image.Image, export.Metadata) {
		return frame, export.Metadata{Title: ref.Info().PatientName, Lines: ov.Lines()}
	})
	if err := export.WriteFile(out, format, src); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%s\n", out)
	for _, e := range store.ForSlice(session.Index()) {
		if e.Annotation.Kind == viewport.AnnotationMeasure {
			fmt.Fprintf(stdout, "  measure #%d: %.1f mm\n", e.ID, e.LengthMM)
		} else if e.Stats != nil {
			fmt.Fprintf(stdout, "  region #%d: mean %.1f sd %.1f min %.1f max %.1f area %.1f mm²\n",
				e.ID, e.Stats.Mean, e.Stats.StdDev, e.Stats.Min, e.Stats.Max, e.Stats.AreaMM2)
		}
	}
	return nil
}

// applyRenderFlags drives the session through the same operations the
// interactive viewer uses.
func applyRenderFlags(s *viewport.Session, ref dicom.SeriesRef, rf renderFlags) error {
	if rf.slice < 1 || rf.slice > s.Navigator().Len() {
		return fmt.Errorf("--slice %d out of range [1, %d]", rf.slice, s.Navigator().Len())
	}
	s.Seek(rf.slice - 1)

	if rf.tool != "" {
		mode, err := viewport.ParseToolMode(rf.tool)
		if err != nil {
			return err
		}
		if err := s.SetTool(mode); err != nil {
			return err
		}
	}
	if rf.zoom != viewport.DefaultZoom && !s.SetZoom(rf.zoom) {
		return fmt.Errorf("--zoom %v is not a valid zoom", rf.zoom)
	}
	if rf.rotate != 0 && rf.rotate%viewport.RotationStep != 0 {
		return fmt.Errorf("--rotate %d is not a multiple of %d", rf.rotate, viewport.RotationStep)
	}
	s.RotateBy(rf.rotate)

	if rf.pan != "" {
		v, err := parseFloats(rf.pan, 2)
		if err != nil {
			return fmt.Errorf("--pan: %w", err)
		}
		s.Pan(v[0], v[1])
	}
	if rf.preset != "" {
		p, ok := findPreset(ref, rf.preset)
		if !ok {
			return fmt.Errorf("--preset %q: no such preset for this modality", rf.preset)
		}
		s.SetWindow(p.Center, p.Width)
	}
	if rf.window != "" {
		v, err := parseFloats(rf.window, 2)
		if err != nil {
			return fmt.Errorf("--window: %w", err)
		}
		s.SetWindow(v[0], v[1])
	}
	return nil
}

func findPreset(ref dicom.SeriesRef, name string) (modalities.WindowPreset, bool) {
	m := ref.Info().Modality
	if !modalities.IsValid(m) {
		return modalities.WindowPreset{}, false
	}
	for _, p := range modalities.Lookup(modalities.Modality(m)).DisplayPresets() {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return modalities.WindowPreset{}, false
}

func outputFormat(rf renderFlags) (export.Format, error) {
	if rf.format != "" {
		return export.ParseFormat(rf.format)
	}
	if ext := filepath.Ext(rf.out); ext != "" {
		return export.ParseFormat(ext)
	}
	return export.PNG, nil
}

// parseFloats parses exactly n comma-separated numbers.
func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d comma-separated values, got %q", n, s)
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", p, err)
		}
		out[i] = v
	}
	return out, nil
}
