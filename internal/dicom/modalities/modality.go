// Package modalities describes imaging modalities: display names, window
// presets for the viewer and the acquisition profiles used to synthesize demo
// series.
package modalities

import "math"

// Modality is a DICOM modality code.
type Modality string

const (
	MR Modality = "MR" // Magnetic Resonance
	CT Modality = "CT" // Computed Tomography
)

// AllModalities returns the modalities a demo series can be generated for.
func AllModalities() []Modality {
	return []Modality{MR, CT}
}

// IsValid reports whether m can be generated. Codes are case sensitive.
func IsValid(m string) bool {
	for _, valid := range AllModalities() {
		if string(valid) == m {
			return true
		}
	}
	return false
}

var descriptions = map[string]string{
	"CT":  "Computed Tomography",
	"MR":  "Magnetic Resonance Imaging",
	"MRI": "Magnetic Resonance Imaging",
	"XR":  "X-Ray Radiography",
	"DX":  "Digital Radiography",
	"CR":  "Computed Radiography",
	"US":  "Ultrasound",
	"NM":  "Nuclear Medicine",
	"PT":  "Positron Emission Tomography",
	"PET": "Positron Emission Tomography",
	"MG":  "Mammography",
	"XA":  "X-Ray Angiography",
	"RF":  "Radiofluoroscopy",
	"SC":  "Secondary Capture",
	"OT":  "Other",
}

// Description returns the long name of a modality code, or the code itself
// when it is not known.
func Description(code string) string {
	if d, ok := descriptions[code]; ok {
		return d
	}
	return code
}

// WindowPreset is a named window/level pair.
type WindowPreset struct {
	Name   string
	Center float64
	Width  float64
}

// PixelConfig holds the pixel data layout of a modality.
type PixelConfig struct {
	BitsAllocated       uint16
	BitsStored          uint16
	HighBit             uint16
	PixelRepresentation uint16 // 0 = unsigned, 1 = signed
	MinValue            int    // lowest modality value (HU for CT)
	MaxValue            int    // highest modality value
	BaseValue           int    // stored value of the background tissue
}

// ToDisplay converts a preset in modality units to the viewer's 0-100
// intensity scale, assuming the frame spans the full MinValue..MaxValue
// range.
func (c PixelConfig) ToDisplay(p WindowPreset) WindowPreset {
	span := float64(c.MaxValue - c.MinValue)
	if span <= 0 {
		return p
	}
	center := (p.Center - float64(c.MinValue)) / span * 100
	width := p.Width / span * 100
	return WindowPreset{
		Name:   p.Name,
		Center: round1(math.Max(0, math.Min(100, center))),
		Width:  round1(math.Max(1, math.Min(200, width))),
	}
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
