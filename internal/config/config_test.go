package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mrsinham/dicomview/internal/viewport"
)

func TestDefaultsAreValid(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("Defaults().Validate() = %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg != Defaults() {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
viewport:
  default_tool: zoom
  loop: true
  playback_interval: 250ms
decoder:
  cache_size: 8
export:
  format: webp
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Tool() != viewport.ToolZoom || !cfg.Viewport.Loop {
		t.Errorf("viewport = %+v", cfg.Viewport)
	}
	if cfg.Viewport.PlaybackInterval != 250*time.Millisecond {
		t.Errorf("playback interval = %s", cfg.Viewport.PlaybackInterval)
	}
	if cfg.Viewport.CanvasSize != viewport.DefaultCanvasSize {
		t.Errorf("canvas size not defaulted: %d", cfg.Viewport.CanvasSize)
	}
	if cfg.Decoder.CacheSize != 8 || cfg.Export.Format != "webp" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvTool, "Window")
	t.Setenv(EnvLoop, "yes")
	t.Setenv(EnvCacheSize, "3")
	t.Setenv(EnvLogLevel, "DEBUG")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Tool() != viewport.ToolWindow || !cfg.Viewport.Loop || cfg.Decoder.CacheSize != 3 || cfg.Logging.Level != "debug" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown tool", "viewport:\n  default_tool: lasso\n"},
		{"tiny canvas", "viewport:\n  canvas_size: 8\n"},
		{"bad export format", "export:\n  format: bmp\n"},
		{"zero cache", "decoder:\n  cache_size: 0\n"},
		{"fast playback", "viewport:\n  playback_interval: 1ms\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.data), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Load() error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("viewport: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected a parse error")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Defaults()
	cfg.Viewport.DefaultTool = "measure"
	cfg.Viewport.PlaybackInterval = 40 * time.Millisecond
	cfg.Export.Dir = "/tmp/exports"

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got != cfg {
		t.Errorf("round trip: got %+v, want %+v", got, cfg)
	}
}

func TestDefaultPath_Env(t *testing.T) {
	t.Setenv(EnvConfig, "/etc/dicomview.yaml")
	p, err := DefaultPath()
	if err != nil || p != "/etc/dicomview.yaml" {
		t.Errorf("DefaultPath() = %q, %v", p, err)
	}
}
