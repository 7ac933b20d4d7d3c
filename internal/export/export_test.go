package export

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

func testFrame() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 32; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x * 8), uint8(y * 10), 128, 255})
		}
	}
	return img
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"png", PNG, false},
		{"WEBP", WebP, false},
		{".tga", TGA, false},
		{" pdf ", PDF, false},
		{"jpeg", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedFormat) {
					t.Errorf("error = %v, want ErrUnsupportedFormat", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		format Format
		check  func([]byte) bool
	}{
		{PNG, func(b []byte) bool { return bytes.HasPrefix(b, []byte("\x89PNG")) }},
		{WebP, func(b []byte) bool { return bytes.HasPrefix(b, []byte("RIFF")) && string(b[8:12]) == "WEBP" }},
		{TGA, func(b []byte) bool { return len(b) > 18 && b[12] == 32 && b[14] == 24 }},
		{PDF, func(b []byte) bool { return bytes.HasPrefix(b, []byte("%PDF")) }},
	}
	meta := Metadata{Title: "JANE DOE", Lines: []string{"Zoom: 100%", "Rotation: 90°"}}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, tt.format, testFrame(), meta); err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if !tt.check(buf.Bytes()) {
				t.Errorf("%s output has an unexpected header: % x", tt.format, buf.Bytes()[:min(16, buf.Len())])
			}
		})
	}
}

func TestEncode_Errors(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, Format("bmp"), testFrame(), Metadata{}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("error = %v, want ErrUnsupportedFormat", err)
	}
	if err := Encode(&buf, PNG, nil, Metadata{}); err == nil {
		t.Error("expected an error for a nil frame")
	}
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports", "nested")
	path := filepath.Join(dir, FileName(6, PNG))
	if filepath.Base(path) != "slice-0007.png" {
		t.Errorf("file name = %s", filepath.Base(path))
	}

	calls := 0
	src := FrameFunc(func() (image.Image, Metadata) {
		calls++
		return testFrame(), Metadata{}
	})
	if err := WriteFile(path, PNG, src); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("frame source queried %d times", calls)
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		t.Errorf("exported file missing or empty: %v", err)
	}
}
