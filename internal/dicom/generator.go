package dicom

import (
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"log/slog"
	"math"
	randv2 "math/rand/v2"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/mrsinham/dicomview/internal/dicom/faults"
	"github.com/mrsinham/dicomview/internal/dicom/modalities"
	"github.com/mrsinham/dicomview/internal/study"
)

// DefaultImageSize is the edge length of generated slices.
const DefaultImageSize = 256

// GeneratorOptions configures a synthetic series.
type GeneratorOptions struct {
	OutputDir string
	NumImages int
	Width     int // 0 = DefaultImageSize
	Height    int // 0 = DefaultImageSize
	Modality  modalities.Modality
	Seed      int64 // 0 derives a seed from OutputDir
	Workers   int   // 0 = runtime.NumCPU()
	Quiet     bool
	Logger    *slog.Logger

	// Faults damages a share of the written files.
	Faults faults.Config

	// ProgressCallback is called after each written file.
	ProgressCallback func(current, total int)
}

// GeneratedFile describes a written DICOM file.
type GeneratedFile struct {
	Path           string
	StudyUID       string
	SeriesUID      string
	SOPInstanceUID string
	PatientID      string
	SeriesNumber   int
	InstanceNumber int
	Fault          faults.Type // empty for intact files
}

type patientInfo struct {
	ID        string
	Name      string
	Sex       string
	BirthDate string
}

// imageTask contains all data needed to write a single slice
type imageTask struct {
	index       int
	width       int
	height      int
	filePath    string
	label       string
	pixelSeed   uint64
	metadata    []*dicom.Element
	pixelConfig modalities.PixelConfig
	file        GeneratedFile
}

// writeDatasetToFile writes a DICOM dataset to a file
func writeDatasetToFile(filename string, ds dicom.Dataset, opts ...dicom.WriteOption) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	return dicom.Write(f, ds, opts...)
}

// generateUID derives a stable UID under the 2.25 root from a key.
func generateUID(key string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return "2.25." + strconv.FormatUint(h.Sum64(), 10)
}

// GenerateSeries writes one patient, one study and one series of synthetic
// slices into opts.OutputDir. The same options always produce the same files.
func GenerateSeries(ctx context.Context, opts GeneratorOptions) ([]GeneratedFile, error) {
	if opts.NumImages <= 0 {
		return nil, fmt.Errorf("number of images must be > 0, got %d", opts.NumImages)
	}
	if opts.Modality == "" {
		opts.Modality = modalities.MR
	}
	if !modalities.IsValid(string(opts.Modality)) {
		return nil, fmt.Errorf("unsupported modality %q", opts.Modality)
	}
	if err := opts.Faults.Validate(); err != nil {
		return nil, err
	}
	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = DefaultImageSize
	}
	if height <= 0 {
		height = DefaultImageSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	seed := opts.Seed
	if seed == 0 {
		h := fnv.New64a()
		_, _ = h.Write([]byte(opts.OutputDir)) // hash.Write never returns an error
		seed = int64(h.Sum64())
	}
	rng := randv2.New(randv2.NewPCG(uint64(seed), uint64(seed)))

	profile := modalities.Lookup(opts.Modality)
	params := profile.NewSeriesParams(rng)
	patient := newPatient(rng)

	studyUID := generateUID(fmt.Sprintf("%d_study", seed))
	seriesUID := generateUID(fmt.Sprintf("%d_series", seed))
	frameOfReferenceUID := generateUID(fmt.Sprintf("%d_frame", seed))
	studyID := fmt.Sprintf("STD%04d", rng.IntN(9000)+1000)
	accession := fmt.Sprintf("ACC%07d", rng.IntN(10_000_000))
	studyDate := fmt.Sprintf("%04d%02d%02d", 2020+rng.IntN(5), 1+rng.IntN(12), 1+rng.IntN(28))
	studyTime := fmt.Sprintf("%02d%02d%02d", 7+rng.IntN(11), rng.IntN(60), rng.IntN(60))
	const seriesNumber = 1

	logger.Info("generating synthetic series",
		slog.String("dir", opts.OutputDir),
		slog.String("modality", string(opts.Modality)),
		slog.Int("images", opts.NumImages),
		slog.Int64("seed", seed))
	if !opts.Quiet {
		fmt.Printf("Resolution: %dx%d pixels per image\n", width, height)
		fmt.Printf("Patient: %s (ID: %s)\n", study.FormatPersonName(patient.Name), patient.ID)
		fmt.Printf("Series %d: %s (%d images)\n", seriesNumber, params.Description, opts.NumImages)
	}

	// Phase 1: build all tasks sequentially (maintains determinism)
	tasks := make([]imageTask, 0, opts.NumImages)
	for instance := 1; instance <= opts.NumImages; instance++ {
		sopInstanceUID := generateUID(fmt.Sprintf("%d_instance_%d", seed, instance))
		z := -100.0 + float64(instance-1)*params.SliceThickness

		metadata := []*dicom.Element{
			mustNewElement(tag.TransferSyntaxUID, []string{"1.2.840.10008.1.2.1"}),
			mustNewElement(tag.PatientName, []string{patient.Name}),
			mustNewElement(tag.PatientID, []string{patient.ID}),
			mustNewElement(tag.PatientBirthDate, []string{patient.BirthDate}),
			mustNewElement(tag.PatientSex, []string{patient.Sex}),
			mustNewElement(tag.StudyInstanceUID, []string{studyUID}),
			mustNewElement(tag.StudyID, []string{studyID}),
			mustNewElement(tag.StudyDate, []string{studyDate}),
			mustNewElement(tag.StudyTime, []string{studyTime}),
			mustNewElement(tag.StudyDescription, []string{modalities.Description(string(opts.Modality))}),
			mustNewElement(tag.SeriesInstanceUID, []string{seriesUID}),
			mustNewElement(tag.SeriesNumber, []string{strconv.Itoa(seriesNumber)}),
			mustNewElement(tag.SeriesDescription, []string{params.Description}),
			mustNewElement(tag.Modality, []string{string(opts.Modality)}),
			mustNewElement(tag.SOPInstanceUID, []string{sopInstanceUID}),
			mustNewElement(tag.SOPClassUID, []string{profile.SOPClassUID}),
			mustNewElement(tag.InstanceNumber, []string{strconv.Itoa(instance)}),
			mustNewElement(tag.PixelSpacing, []string{
				fmt.Sprintf("%.6f", params.PixelSpacing),
				fmt.Sprintf("%.6f", params.PixelSpacing),
			}),
			mustNewElement(tag.SliceThickness, []string{fmt.Sprintf("%.6f", params.SliceThickness)}),
			mustNewElement(tag.Manufacturer, []string{params.Scanner.Manufacturer}),
			mustNewElement(tag.ManufacturerModelName, []string{params.Scanner.Model}),
			mustNewElement(tag.WindowCenter, []string{fmt.Sprintf("%.1f", params.WindowCenter)}),
			mustNewElement(tag.WindowWidth, []string{fmt.Sprintf("%.1f", params.WindowWidth)}),
			mustNewElement(tag.ImagePositionPatient, []string{"-100.000000", "-100.000000", fmt.Sprintf("%.6f", z)}),
			mustNewElement(tag.SliceLocation, []string{fmt.Sprintf("%.6f", z)}),
			mustNewElement(tag.FrameOfReferenceUID, []string{frameOfReferenceUID}),
			mustNewElement(tag.Rows, []int{height}),
			mustNewElement(tag.Columns, []int{width}),
			mustNewElement(tag.BitsAllocated, []int{int(profile.Pixel.BitsAllocated)}),
			mustNewElement(tag.BitsStored, []int{int(profile.Pixel.BitsStored)}),
			mustNewElement(tag.HighBit, []int{int(profile.Pixel.HighBit)}),
			mustNewElement(tag.PixelRepresentation, []int{int(profile.Pixel.PixelRepresentation)}),
			mustNewElement(tag.SamplesPerPixel, []int{1}),
			mustNewElement(tag.PhotometricInterpretation, []string{"MONOCHROME2"}),
			mustNewElement(tag.BodyPartExamined, []string{params.BodyPart}),
			mustNewElement(tag.AccessionNumber, []string{accession}),
		}
		metadata = append(metadata, params.Elements()...)

		pixelSeedHash := fnv.New64a()
		_, _ = fmt.Fprintf(pixelSeedHash, "%d_pixel_%d", seed, instance)

		filePath := filepath.Join(opts.OutputDir, fmt.Sprintf("IMG%04d.dcm", instance))
		tasks = append(tasks, imageTask{
			index:       instance,
			width:       width,
			height:      height,
			filePath:    filePath,
			label:       fmt.Sprintf("Slice %d/%d", instance, opts.NumImages),
			pixelSeed:   pixelSeedHash.Sum64(),
			metadata:    metadata,
			pixelConfig: profile.Pixel,
			file: GeneratedFile{
				Path:           filePath,
				StudyUID:       studyUID,
				SeriesUID:      seriesUID,
				SOPInstanceUID: sopInstanceUID,
				PatientID:      patient.ID,
				SeriesNumber:   seriesNumber,
				InstanceNumber: instance,
			},
		})
	}

	// Phase 2: write files in parallel
	numWorkers := opts.Workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers > len(tasks) {
		numWorkers = len(tasks)
	}

	taskChan := make(chan imageTask, len(tasks))
	resultChan := make(chan struct {
		index int
		err   error
	}, len(tasks))

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskChan {
				err := ctx.Err()
				if err == nil {
					err = writeImage(task)
				}
				resultChan <- struct {
					index int
					err   error
				}{task.index, err}
			}
		}()
	}

	for _, task := range tasks {
		taskChan <- task
	}
	close(taskChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	completed := 0
	var firstErr error
	for result := range resultChan {
		if result.err != nil && firstErr == nil {
			firstErr = fmt.Errorf("generate image %d: %w", result.index, result.err)
		}
		completed++
		if opts.ProgressCallback != nil {
			opts.ProgressCallback(completed, len(tasks))
		}
		if !opts.Quiet && (completed%10 == 0 || completed == len(tasks)) {
			progress := float64(completed) / float64(len(tasks)) * 100
			fmt.Printf("  Progress: %d/%d (%.0f%%)\n", completed, len(tasks), progress)
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	files := make([]GeneratedFile, len(tasks))
	for i, task := range tasks {
		files[i] = task.file
	}

	for i, ft := range opts.Faults.Plan(rng, len(files)) {
		if err := faults.Apply(files[i].Path, ft); err != nil {
			return nil, fmt.Errorf("damage image %d: %w", files[i].InstanceNumber, err)
		}
		files[i].Fault = ft
		logger.Debug("fault injected", slog.String("path", files[i].Path), slog.String("fault", string(ft)))
	}

	if !opts.Quiet {
		fmt.Printf("\n✓ %d DICOM files created in: %s/\n", len(files), opts.OutputDir)
	}
	return files, nil
}

func newPatient(rng *randv2.Rand) patientInfo {
	sex := "M"
	if rng.IntN(2) == 1 {
		sex = "F"
	}
	return patientInfo{
		ID:        fmt.Sprintf("PID%06d", rng.IntN(1_000_000)),
		Name:      study.GeneratePatientName(sex, rng),
		Sex:       sex,
		BirthDate: fmt.Sprintf("%04d%02d%02d", 1940+rng.IntN(60), 1+rng.IntN(12), 1+rng.IntN(28)),
	}
}

// writeImage synthesizes the pixels of one slice and writes the file.
func writeImage(task imageTask) error {
	width, height := task.width, task.height
	cfg := task.pixelConfig
	rng := randv2.New(randv2.NewPCG(task.pixelSeed, task.pixelSeed))

	// stored values span 0..(MaxValue-MinValue); rescale maps them back
	storedMax := float64(cfg.MaxValue - cfg.MinValue)
	baseValue := float64(cfg.BaseValue)
	centerX, centerY := float64(width)/2, float64(height)/2
	maxDist := math.Sqrt(centerX*centerX + centerY*centerY)

	nativeFrame := frame.NewNativeFrame[uint16](int(cfg.BitsAllocated), height, width, width*height, 1)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dx := float64(x) - centerX
			dy := float64(y) - centerY
			normalizedDist := math.Sqrt(dx*dx+dy*dy) / maxDist
			intensity := baseValue + (1.0-normalizedDist)*storedMax*0.3

			intensity += (rng.Float64() - 0.5) * storedMax * 0.3
			intensity += (rng.Float64() - 0.5) * storedMax * 0.15
			intensity += (rng.Float64() - 0.5) * storedMax * 0.075

			nativeFrame.RawData[y*width+x] = uint16(math.Max(0, math.Min(storedMax, intensity)))
		}
	}
	drawLabel(nativeFrame.RawData, width, height, uint16(storedMax), task.label)

	pixelDataInfo := dicom.PixelDataInfo{
		Frames: []*frame.Frame{
			{
				Encapsulated: false,
				NativeData:   nativeFrame,
			},
		},
	}

	elements := make([]*dicom.Element, len(task.metadata)+1)
	copy(elements, task.metadata)
	elements[len(task.metadata)] = mustNewElement(tag.PixelData, pixelDataInfo)

	return writeDatasetToFile(task.filePath, dicom.Dataset{Elements: elements})
}

// drawLabel burns a large centered label into a 16-bit frame: text at
// white, surrounded by a black outline.
func drawLabel(raw []uint16, width, height int, white uint16, text string) {
	face := basicfont.Face7x13
	baseW := font.MeasureString(face, text).Ceil()
	baseH := face.Metrics().Height.Ceil()
	if baseW == 0 || baseH == 0 {
		return
	}

	textImg := image.NewGray(image.Rect(0, 0, baseW, baseH))
	d := &font.Drawer{
		Dst:  textImg,
		Src:  image.White,
		Face: face,
		Dot:  fixed.Point26_6{Y: face.Metrics().Ascent},
	}
	d.DrawString(text)

	// 30% of the image width, never below 2x
	scale := math.Max(2, float64(width)*0.3/float64(baseW))
	sw, sh := int(float64(baseW)*scale), int(float64(baseH)*scale)
	scaled := image.NewGray(image.Rect(0, 0, sw, sh))
	draw.BiLinear.Scale(scaled, scaled.Bounds(), textImg, textImg.Bounds(), draw.Src, nil)

	ox, oy := (width-sw)/2, (height-sh)/2
	outline := max(3, sh/10)

	set := func(x, y int, v uint16) {
		if x >= 0 && x < width && y >= 0 && y < height {
			raw[y*width+x] = v
		}
	}
	for sy := 0; sy < sh; sy++ {
		for sx := 0; sx < sw; sx++ {
			if scaled.Pix[sy*scaled.Stride+sx] == 0 {
				continue
			}
			for dy := -outline; dy <= outline; dy++ {
				for dx := -outline; dx <= outline; dx++ {
					if dx*dx+dy*dy <= outline*outline {
						set(ox+sx+dx, oy+sy+dy, 0)
					}
				}
			}
		}
	}
	for sy := 0; sy < sh; sy++ {
		for sx := 0; sx < sw; sx++ {
			if v := scaled.Pix[sy*scaled.Stride+sx]; v > 0 {
				set(ox+sx, oy+sy, uint16(uint32(white)*uint32(v)/255))
			}
		}
	}
}

// mustNewElement creates a DICOM element and panics on error.
func mustNewElement(t tag.Tag, value interface{}) *dicom.Element {
	elem, err := dicom.NewElement(t, value)
	if err != nil {
		panic(fmt.Sprintf("failed to create element %v: %v", t, err))
	}
	return elem
}
