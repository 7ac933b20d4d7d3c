package render

import (
	"fmt"
	"math"
	"strconv"

	"github.com/mrsinham/dicomview/internal/study"
)

// NotAvailable is shown in place of missing values.
const NotAvailable = "N/A"

// Overlay holds the four corner text blocks drawn over a frame.
type Overlay struct {
	TopLeft     []string
	TopRight    []string
	BottomLeft  []string
	BottomRight []string
}

// BuildOverlay computes the overlay lines for a render input. width and height
// are the dimensions of the raster actually drawn, used when the slice header
// does not carry them.
func BuildOverlay(in Input, width, height int) Overlay {
	t := in.Transform
	img := in.Slice

	var seriesNumber, description string
	if in.Series != nil {
		if in.Series.Number > 0 {
			seriesNumber = strconv.Itoa(in.Series.Number)
		}
		description = in.Series.Description
	}
	if description == "" {
		description = "No description"
	}

	var instance string
	if img.InstanceNumber > 0 {
		instance = strconv.Itoa(img.InstanceNumber)
	}

	cols, rows := img.Columns, img.Rows
	if cols <= 0 || rows <= 0 {
		cols, rows = width, height
	}

	thickness := NotAvailable
	if img.SliceThickness > 0 {
		thickness = formatNumber(img.SliceThickness) + "mm"
	}

	return Overlay{
		TopLeft: []string{
			orNA(in.Info.PatientName),
			"ID: " + orNA(in.Info.PatientID),
			orNA(in.Info.Modality),
			orNA(in.Info.StudyDate),
		},
		TopRight: []string{
			fmt.Sprintf("Zoom: %d%%", int(math.Round(t.Zoom*100))),
			fmt.Sprintf("WL/WW: %s/%s", formatNumber(t.WindowCenter), formatNumber(t.WindowWidth)),
			fmt.Sprintf("Rotation: %d°", t.Rotation),
			"Tool: " + in.Tool.String(),
		},
		BottomLeft: []string{
			"Series: " + orNA(seriesNumber),
			"Image: " + orNA(instance),
			description,
		},
		BottomRight: []string{
			fmt.Sprintf("%dx%d", cols, rows),
			"Spacing: " + spacingString(img.PixelSpacing),
			"Thickness: " + thickness,
		},
	}
}

func spacingString(p study.PixelSpacing) string {
	if p.IsZero() {
		return NotAvailable
	}
	return p.String()
}

func orNA(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}

// formatNumber prints at most one decimal and drops a trailing ".0".
func formatNumber(f float64) string {
	return strconv.FormatFloat(math.Round(f*10)/10, 'f', -1, 64)
}

// Lines returns every overlay line, corner by corner.
func (o Overlay) Lines() []string {
	lines := make([]string, 0, len(o.TopLeft)+len(o.TopRight)+len(o.BottomLeft)+len(o.BottomRight))
	lines = append(lines, o.TopLeft...)
	lines = append(lines, o.TopRight...)
	lines = append(lines, o.BottomLeft...)
	return append(lines, o.BottomRight...)
}
