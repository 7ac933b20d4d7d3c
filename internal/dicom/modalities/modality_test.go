package modalities

import (
	"math/rand/v2"
	"testing"

	"github.com/suyashkumar/dicom/pkg/tag"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		in      Modality
		want    Modality
		sopUID  string
		minimum int
	}{
		{MR, MR, "1.2.840.10008.5.1.4.1.1.4", 0},
		{CT, CT, "1.2.840.10008.5.1.4.1.1.2", -1024},
		{Modality("UNKNOWN"), MR, "1.2.840.10008.5.1.4.1.1.4", 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			p := Lookup(tt.in)
			if p.Modality != tt.want {
				t.Errorf("Lookup(%q).Modality = %v, want %v", tt.in, p.Modality, tt.want)
			}
			if p.SOPClassUID != tt.sopUID {
				t.Errorf("SOPClassUID = %s", p.SOPClassUID)
			}
			if p.Pixel.MinValue != tt.minimum {
				t.Errorf("MinValue = %d, want %d", p.Pixel.MinValue, tt.minimum)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"MR", true},
		{"CT", true},
		{"mr", false}, // case sensitive
		{"US", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsValid(tt.input); got != tt.want {
				t.Errorf("IsValid(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDescription(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"CT", "Computed Tomography"},
		{"MRI", "Magnetic Resonance Imaging"},
		{"PT", "Positron Emission Tomography"},
		{"ZZ", "ZZ"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Description(tt.code); got != tt.want {
			t.Errorf("Description(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestNewSeriesParams(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 42))
	for _, m := range AllModalities() {
		p := Lookup(m)
		params := p.NewSeriesParams(rng)

		if params.Modality != m {
			t.Errorf("%s: params modality = %v", m, params.Modality)
		}
		if params.PixelSpacing <= 0 || params.SliceThickness <= 0 {
			t.Errorf("%s: invalid geometry %+v", m, params)
		}
		if params.Scanner.Manufacturer == "" || params.Scanner.Model == "" {
			t.Errorf("%s: scanner not set", m)
		}
		if len(params.Elements()) == 0 {
			t.Errorf("%s: no modality elements", m)
		}
	}
}

func TestCTParamsCarryRescale(t *testing.T) {
	params := Lookup(CT).NewSeriesParams(rand.New(rand.NewPCG(1, 2)))
	var found bool
	for _, e := range params.Elements() {
		if e.Tag == tag.RescaleIntercept {
			found = true
			if got := e.Value.String(); got != "[-1024]" {
				t.Errorf("RescaleIntercept = %s", got)
			}
		}
	}
	if !found {
		t.Error("CT series is missing RescaleIntercept")
	}
}

func TestToDisplay(t *testing.T) {
	cfg := PixelConfig{MinValue: 0, MaxValue: 1000}
	tests := []struct {
		in   WindowPreset
		want WindowPreset
	}{
		{WindowPreset{"HALF", 500, 1000}, WindowPreset{"HALF", 50, 100}},
		{WindowPreset{"NARROW", 250, 1}, WindowPreset{"NARROW", 25, 1}},
		{WindowPreset{"WIDE", 2000, 5000}, WindowPreset{"WIDE", 100, 200}},
		{WindowPreset{"BELOW", -300, 100}, WindowPreset{"BELOW", 0, 10}},
	}
	for _, tt := range tests {
		if got := cfg.ToDisplay(tt.in); got != tt.want {
			t.Errorf("ToDisplay(%+v) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestDisplayPresetsInViewerRange(t *testing.T) {
	for _, m := range AllModalities() {
		presets := Lookup(m).DisplayPresets()
		if len(presets) == 0 {
			t.Fatalf("%s: no presets", m)
		}
		for _, p := range presets {
			if p.Center < 0 || p.Center > 100 || p.Width < 1 || p.Width > 200 {
				t.Errorf("%s preset %s out of range: %+v", m, p.Name, p)
			}
		}
	}
}
