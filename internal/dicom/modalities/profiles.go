package modalities

import (
	"math/rand/v2"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Scanner is an imaging device written into generated headers.
type Scanner struct {
	Manufacturer string
	Model        string
}

// SeriesParams are the acquisition values of one generated series.
type SeriesParams struct {
	Modality       Modality
	Scanner        Scanner
	Description    string
	BodyPart       string
	PixelSpacing   float64 // mm, isotropic in-plane
	SliceThickness float64 // mm
	WindowCenter   float64 // modality units
	WindowWidth    float64

	// modality specific header values, already formatted
	extra []*dicom.Element
}

// Elements returns the modality specific header elements.
func (p SeriesParams) Elements() []*dicom.Element {
	return p.extra
}

// Profile bundles everything needed to synthesize and display one modality.
type Profile struct {
	Modality    Modality
	SOPClassUID string
	Scanners    []Scanner
	Pixel       PixelConfig
	Presets     []WindowPreset // modality units

	params func(p Profile, s Scanner, rng *rand.Rand) SeriesParams
}

// Lookup returns the profile for m. Unknown modalities fall back to MR.
func Lookup(m Modality) Profile {
	if m == CT {
		return ctProfile
	}
	return mrProfile
}

// NewSeriesParams draws a scanner and acquisition values for one series.
func (p Profile) NewSeriesParams(rng *rand.Rand) SeriesParams {
	s := p.Scanners[rng.IntN(len(p.Scanners))]
	return p.params(p, s, rng)
}

// DisplayPresets returns the presets on the viewer's 0-100 scale.
func (p Profile) DisplayPresets() []WindowPreset {
	out := make([]WindowPreset, len(p.Presets))
	for i, preset := range p.Presets {
		out[i] = p.Pixel.ToDisplay(preset)
	}
	return out
}

var mrProfile = Profile{
	Modality:    MR,
	SOPClassUID: "1.2.840.10008.5.1.4.1.1.4",
	Scanners: []Scanner{
		{Manufacturer: "SIEMENS", Model: "Avanto"},
		{Manufacturer: "SIEMENS", Model: "Skyra"},
		{Manufacturer: "GE MEDICAL SYSTEMS", Model: "Discovery MR750"},
		{Manufacturer: "PHILIPS", Model: "Ingenia"},
	},
	Pixel: PixelConfig{
		BitsAllocated: 16,
		BitsStored:    12,
		HighBit:       11,
		MinValue:      0,
		MaxValue:      4095,
		BaseValue:     2048,
	},
	Presets: []WindowPreset{
		{Name: "DEFAULT", Center: 2048, Width: 4096},
		{Name: "BRIGHT", Center: 1200, Width: 2400},
		{Name: "CONTRAST", Center: 2400, Width: 1200},
	},
	params: func(p Profile, s Scanner, rng *rand.Rand) SeriesParams {
		sequences := []string{"T1_MPRAGE", "T1_SE", "T2_FSE", "T2_FLAIR"}
		seq := sequences[rng.IntN(len(sequences))]
		echo := 10.0 + rng.Float64()*20.0 // ms
		rep := 400.0 + rng.Float64()*400.0

		return SeriesParams{
			Modality:       MR,
			Scanner:        s,
			Description:    "AX " + seq,
			BodyPart:       "BRAIN",
			PixelSpacing:   0.5 + rng.Float64()*1.5,
			SliceThickness: 1.0 + rng.Float64()*4.0,
			WindowCenter:   p.Presets[0].Center,
			WindowWidth:    p.Presets[0].Width,
			extra: []*dicom.Element{
				mustNewElement(tag.SequenceName, []string{seq}),
				mustNewElement(tag.EchoTime, []string{floatToDS(echo)}),
				mustNewElement(tag.RepetitionTime, []string{floatToDS(rep)}),
			},
		}
	},
}

var ctProfile = Profile{
	Modality:    CT,
	SOPClassUID: "1.2.840.10008.5.1.4.1.1.2",
	Scanners: []Scanner{
		{Manufacturer: "SIEMENS", Model: "SOMATOM Force"},
		{Manufacturer: "GE MEDICAL SYSTEMS", Model: "Revolution CT"},
		{Manufacturer: "PHILIPS", Model: "Brilliance iCT"},
		{Manufacturer: "CANON", Model: "Aquilion ONE"},
	},
	// values are Hounsfield units; stored = HU + 1024
	Pixel: PixelConfig{
		BitsAllocated:       16,
		BitsStored:          16,
		HighBit:             15,
		PixelRepresentation: 1,
		MinValue:            -1024,
		MaxValue:            3071,
		BaseValue:           1024,
	},
	Presets: []WindowPreset{
		{Name: "BRAIN", Center: 40, Width: 80},
		{Name: "SUBDURAL", Center: 75, Width: 215},
		{Name: "BONE", Center: 400, Width: 2000},
		{Name: "LUNG", Center: -600, Width: 1500},
		{Name: "ABDOMEN", Center: 40, Width: 350},
	},
	params: func(p Profile, s Scanner, rng *rand.Rand) SeriesParams {
		kernels := []string{"SOFT", "STANDARD", "BONE", "LUNG"}
		kernel := kernels[rng.IntN(len(kernels))]
		kvp := []float64{80, 100, 120, 140}[rng.IntN(4)]

		preset := p.Presets[4]
		switch kernel {
		case "BONE":
			preset = p.Presets[2]
		case "LUNG":
			preset = p.Presets[3]
		}

		return SeriesParams{
			Modality:       CT,
			Scanner:        s,
			Description:    "CHEST " + kernel,
			BodyPart:       "CHEST",
			PixelSpacing:   0.5 + rng.Float64()*0.5,
			SliceThickness: 0.5 + rng.Float64()*2.5,
			WindowCenter:   preset.Center,
			WindowWidth:    preset.Width,
			extra: []*dicom.Element{
				mustNewElement(tag.KVP, []string{floatToDS(kvp)}),
				mustNewElement(tag.ConvolutionKernel, []string{kernel}),
				mustNewElement(tag.RescaleIntercept, []string{floatToDS(float64(p.Pixel.MinValue))}),
				mustNewElement(tag.RescaleSlope, []string{"1"}),
				mustNewElement(tag.RescaleType, []string{"HU"}),
			},
		}
	},
}
