// Package study holds the read-only data model shared by the series provider,
// the viewport engine and the renderer.
package study

import (
	"fmt"
	"strconv"
	"strings"
)

// PixelSpacing is the physical distance between pixel centers in mm.
type PixelSpacing struct {
	Row    float64
	Column float64
}

// IsZero reports whether no spacing is known.
func (p PixelSpacing) IsZero() bool {
	return p.Row == 0 && p.Column == 0
}

// String returns the DICOM multi-value form "row\column".
func (p PixelSpacing) String() string {
	if p.IsZero() {
		return "N/A"
	}
	return formatDecimal(p.Row) + `\` + formatDecimal(p.Column)
}

// ParsePixelSpacing parses a DICOM PixelSpacing value ("0.7\0.7", "0.7").
// Missing or unparsable components default to 1.0 mm. A single value is used
// for both axes.
func ParsePixelSpacing(s string) PixelSpacing {
	s = strings.Trim(strings.TrimSpace(s), "[]")
	if s == "" {
		return PixelSpacing{Row: 1, Column: 1}
	}

	sep := `\`
	if !strings.Contains(s, sep) {
		sep = " "
	}
	parts := strings.Fields(strings.ReplaceAll(s, sep, " "))

	row := parsePositive(parts, 0, 1)
	col := parsePositive(parts, 1, row)
	return PixelSpacing{Row: row, Column: col}
}

func parsePositive(parts []string, i int, def float64) float64 {
	if i >= len(parts) {
		return def
	}
	v, err := strconv.ParseFloat(parts[i], 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// Image is a single slice of a series. The pixel data itself is owned by the
// decoder; Image only references it through Source.
type Image struct {
	InstanceNumber int // 1-based
	SOPInstanceUID string
	PixelSpacing   PixelSpacing
	SliceThickness float64 // mm, 0 when unknown
	SliceLocation  float64
	Rows           int // 0 when unknown
	Columns        int // 0 when unknown
	WindowCenter   float64
	WindowWidth    float64
	Source         string // file path or URL
}

// ImageSeries is an ordered stack of images. Order is acquisition order.
type ImageSeries struct {
	UID         string
	Number      int
	Description string
	Modality    string
	BodyPart    string
	Images      []Image
}

// Len returns the number of slices.
func (s *ImageSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Images)
}

// At returns the image at index i.
func (s *ImageSeries) At(i int) (Image, bool) {
	if s == nil || i < 0 || i >= len(s.Images) {
		return Image{}, false
	}
	return s.Images[i], true
}

// Label returns a short human-readable identifier for pickers and logs.
func (s *ImageSeries) Label() string {
	desc := s.Description
	if desc == "" {
		desc = "No description"
	}
	return fmt.Sprintf("Series %d - %s (%d images)", s.Number, desc, s.Len())
}

// Study groups the series acquired in a single examination.
type Study struct {
	UID             string
	ID              string
	Date            string // DICOM DA, YYYYMMDD
	Time            string // DICOM TM, HHMMSS
	Description     string
	AccessionNumber string
	Modality        string
	Series          []*ImageSeries
}

// Patient is the owner of one or more studies.
type Patient struct {
	ID        string
	Name      string // DICOM PN, LAST^FIRST^MIDDLE
	BirthDate string
	Sex       string
	Studies   []*Study
}

// Info is the patient/study identity shown on the viewport overlay.
type Info struct {
	PatientName string
	PatientID   string
	Modality    string
	StudyDate   string
	Description string
}

// NewInfo flattens a patient and study into overlay metadata.
func NewInfo(p *Patient, st *Study) Info {
	var info Info
	if p != nil {
		info.PatientName = FormatPersonName(p.Name)
		info.PatientID = p.ID
	}
	if st != nil {
		info.Modality = st.Modality
		info.StudyDate = FormatDate(st.Date)
		info.Description = st.Description
	}
	return info
}

func formatDecimal(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
