// Package export writes the current viewport frame to disk as PNG, WebP, TGA
// or a one-page PDF print sheet.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"github.com/jung-kurt/gofpdf"
)

// ErrUnsupportedFormat is returned for unknown format names.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Format is an output encoding.
type Format string

const (
	PNG  Format = "png"
	WebP Format = "webp"
	TGA  Format = "tga"
	PDF  Format = "pdf"
)

// Formats returns every supported format.
func Formats() []Format {
	return []Format{PNG, WebP, TGA, PDF}
}

// ParseFormat accepts a format name or file extension, case-insensitive.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "."))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnsupportedFormat)
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// Metadata is printed under the frame on PDF sheets.
type Metadata struct {
	Title string
	Lines []string
}

// FrameSource yields the frame to export.
type FrameSource interface {
	Frame() (image.Image, Metadata)
}

// FrameFunc adapts a function to FrameSource.
type FrameFunc func() (image.Image, Metadata)

// Frame calls f.
func (f FrameFunc) Frame() (image.Image, Metadata) { return f() }

// Encode writes img to w in format f.
func Encode(w io.Writer, f Format, img image.Image, meta Metadata) error {
	if img == nil || img.Bounds().Empty() {
		return errors.New("export: empty frame")
	}
	switch f {
	case PNG:
		return png.Encode(w, img)
	case WebP:
		return nativewebp.Encode(w, img, nil)
	case TGA:
		return tga.Encode(w, img)
	case PDF:
		return encodeSheet(w, img, meta)
	default:
		return fmt.Errorf("%q: %w", f, ErrUnsupportedFormat)
	}
}

// FileName returns the default name of an exported slice, e.g. slice-0007.png.
func FileName(index int, f Format) string {
	return fmt.Sprintf("slice-%04d%s", index+1, f.Ext())
}

// WriteFile pulls a frame from src and writes it to path, creating parent
// directories as needed.
func WriteFile(path string, f Format, src FrameSource) error {
	img, meta := src.Frame()

	var buf bytes.Buffer
	if err := Encode(&buf, f, img, meta); err != nil {
		return fmt.Errorf("encode %s: %w", f, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// A4 portrait, millimetres
const (
	sheetW      = 210.0
	sheetH      = 297.0
	sheetMargin = 15.0
	lineHeight  = 5.0
)

// encodeSheet lays the frame out on one A4 page with the title above it and
// the metadata lines below.
func encodeSheet(w io.Writer, img image.Image, meta Metadata) error {
	var raster bytes.Buffer
	if err := png.Encode(&raster, img); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	title := meta.Title
	if title == "" {
		title = "dicomview"
	}
	pdf.SetTitle(title, true)
	pdf.SetCreator("dicomview", true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Text(sheetMargin, sheetMargin+5, tr(title))

	// fit the frame into the printable width, keeping its aspect ratio
	b := img.Bounds()
	maxW := sheetW - 2*sheetMargin
	maxH := sheetH - 2*sheetMargin - 20 - float64(len(meta.Lines))*lineHeight
	iw := maxW
	ih := iw * float64(b.Dy()) / float64(b.Dx())
	if ih > maxH {
		ih = maxH
		iw = ih * float64(b.Dx()) / float64(b.Dy())
	}
	x := (sheetW - iw) / 2
	y := sheetMargin + 10

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("frame", opts, &raster)
	pdf.ImageOptions("frame", x, y, iw, ih, false, opts, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	ly := y + ih + 8
	for _, line := range meta.Lines {
		pdf.Text(sheetMargin, ly, tr(line))
		ly += lineHeight
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
