package dicom

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"

	lru "github.com/hashicorp/golang-lru"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/dicomview/internal/dicom/modalities"
	"github.com/mrsinham/dicomview/internal/study"
)

// DefaultCacheSize is the number of decoded slices kept in memory.
const DefaultCacheSize = 64

var (
	// ErrNoPixelData is returned for files without a readable pixel frame.
	ErrNoPixelData = errors.New("no pixel data")
	// ErrUnsupportedPixelData is returned for compressed or exotic layouts.
	ErrUnsupportedPixelData = errors.New("unsupported pixel data")
)

// Decoded is the result of decoding one slice. On failure Image is nil,
// Err is set and Placeholder names the stand-in frame.
type Decoded struct {
	Source      string
	Image       *image.Gray
	Placeholder string
	Err         error
}

// OK reports whether pixels were decoded.
func (d Decoded) OK() bool { return d.Err == nil && d.Image != nil }

// Decoder turns the native pixel data of a slice into an 8-bit raster on the
// viewer's intensity scale. Results are cached by source path. A Decoder is
// safe for concurrent use.
type Decoder struct {
	cache  *lru.Cache
	logger *slog.Logger
}

// NewDecoder returns a decoder caching up to size slices.
func NewDecoder(size int, logger *slog.Logger) (*Decoder, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create decode cache: %w", err)
	}
	return &Decoder{cache: cache, logger: logger}, nil
}

// Decode reads and normalizes the first frame of img. Failures are logged
// and reported through Decoded.Err with a placeholder label.
func (d *Decoder) Decode(ctx context.Context, img study.Image) Decoded {
	res := Decoded{Source: img.Source}
	if v, ok := d.cache.Get(img.Source); ok && img.Source != "" {
		res.Image = v.(*image.Gray)
		return res
	}

	gray, err := d.decode(ctx, img)
	if err != nil {
		res.Err = err
		res.Placeholder = fmt.Sprintf("Slice %d", img.InstanceNumber)
		d.logger.Warn("decode failed, using placeholder",
			slog.String("source", img.Source),
			slog.Int("instance", img.InstanceNumber),
			slog.Any("error", err))
		return res
	}
	d.cache.Add(img.Source, gray)
	res.Image = gray
	return res
}

// DecodeAsync decodes img in a goroutine. The channel yields exactly one
// result and is then closed.
func (d *Decoder) DecodeAsync(ctx context.Context, img study.Image) <-chan Decoded {
	ch := make(chan Decoded, 1)
	go func() {
		defer close(ch)
		ch <- d.Decode(ctx, img)
	}()
	return ch
}

// Cached reports whether the slice at source is in the cache.
func (d *Decoder) Cached(source string) bool {
	return d.cache.Contains(source)
}

// Purge empties the cache.
func (d *Decoder) Purge() {
	d.cache.Purge()
}

func (d *Decoder) decode(ctx context.Context, img study.Image) (*image.Gray, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if img.Source == "" {
		return nil, fmt.Errorf("image %d has no source: %w", img.InstanceNumber, ErrNoPixelData)
	}

	ds, err := dicom.ParseFile(img.Source, nil)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", img.Source, err)
	}
	elem, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", img.Source, ErrNoPixelData)
	}
	info := dicom.MustGetPixelDataInfo(elem.Value)
	if len(info.Frames) == 0 || info.Frames[0] == nil {
		return nil, fmt.Errorf("%s: %w", img.Source, ErrNoPixelData)
	}
	fr := info.Frames[0]
	if fr.Encapsulated || fr.NativeData == nil {
		return nil, fmt.Errorf("%s: encapsulated frame: %w", img.Source, ErrUnsupportedPixelData)
	}

	nf := fr.NativeData
	rows, cols := nf.Rows(), nf.Cols()
	spp := nf.SamplesPerPixel()
	if spp <= 0 {
		spp = 1
	}
	values, err := samples(nf.RawDataSlice(), rows*cols, spp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", img.Source, err)
	}

	slope := floatValue(ds, tag.RescaleSlope)
	if slope == 0 {
		slope = 1
	}
	intercept := floatValue(ds, tag.RescaleIntercept)
	for i := range values {
		values[i] = values[i]*slope + intercept
	}

	lo, hi := displayRange(stringValue(ds, tag.Modality), values)
	return normalize(values, cols, rows, lo, hi), nil
}

// displayRange returns the modality value range mapped to black..white:
// the profile range for known modalities, the data range otherwise.
func displayRange(modality string, values []float64) (lo, hi float64) {
	if modalities.IsValid(modality) {
		px := modalities.Lookup(modalities.Modality(modality)).Pixel
		return float64(px.MinValue), float64(px.MaxValue)
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func normalize(values []float64, width, height int, lo, hi float64) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, width, height))
	span := hi - lo
	for i, v := range values {
		if span <= 0 {
			out.Pix[i] = 0
			continue
		}
		f := (v - lo) / span
		out.Pix[i] = uint8(math.Round(math.Max(0, math.Min(1, f)) * 255))
	}
	return out
}

type integer interface {
	~uint8 | ~uint16 | ~uint32 | ~int8 | ~int16 | ~int32 | ~int
}

// samples extracts the first sample of each pixel from a native frame buffer.
func samples(raw any, pixels, spp int) ([]float64, error) {
	switch data := raw.(type) {
	case []uint8:
		return firstSamples(data, pixels, spp)
	case []uint16:
		return firstSamples(data, pixels, spp)
	case []uint32:
		return firstSamples(data, pixels, spp)
	case []int8:
		return firstSamples(data, pixels, spp)
	case []int16:
		return firstSamples(data, pixels, spp)
	case []int32:
		return firstSamples(data, pixels, spp)
	case []int:
		return firstSamples(data, pixels, spp)
	default:
		return nil, fmt.Errorf("pixel buffer %T: %w", raw, ErrUnsupportedPixelData)
	}
}

func firstSamples[T integer](data []T, pixels, spp int) ([]float64, error) {
	if pixels <= 0 || len(data) < pixels*spp {
		return nil, fmt.Errorf("%d samples for %d pixels: %w", len(data), pixels, ErrNoPixelData)
	}
	out := make([]float64, pixels)
	for i := range out {
		out[i] = float64(data[i*spp])
	}
	return out, nil
}

// SeriesRaster exposes the decoded slices of a series by index.
type SeriesRaster struct {
	Decoder *Decoder
	Series  *study.ImageSeries
}

// Raster returns the decoded slice at index, or false on failure.
func (r SeriesRaster) Raster(index int) (image.Image, bool) {
	img, ok := r.Series.At(index)
	if !ok || r.Decoder == nil {
		return nil, false
	}
	res := r.Decoder.Decode(context.Background(), img)
	if !res.OK() {
		return nil, false
	}
	return res.Image, true
}
