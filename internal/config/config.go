// Package config loads the dicomview YAML configuration.
//
// Values resolve in this order: built-in defaults, the YAML file, then
// DICOMVIEW_* environment variables. Command-line flags are applied by the
// caller on top of the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrsinham/dicomview/internal/viewport"
)

// Env var names used as overrides.
const (
	EnvConfig       = "DICOMVIEW_CONFIG"
	EnvTool         = "DICOMVIEW_TOOL"
	EnvLoop         = "DICOMVIEW_LOOP"
	EnvCacheSize    = "DICOMVIEW_CACHE_SIZE"
	EnvExportFormat = "DICOMVIEW_EXPORT_FORMAT"
	EnvExportDir    = "DICOMVIEW_EXPORT_DIR"
	EnvLogLevel     = "DICOMVIEW_LOG_LEVEL"
	EnvLogFormat    = "DICOMVIEW_LOG_FORMAT"
	EnvLogFile      = "DICOMVIEW_LOG_FILE"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// ExportFormats lists the accepted export.format values.
var ExportFormats = []string{"png", "webp", "tga", "pdf"}

type ViewportConfig struct {
	CanvasSize       int           `yaml:"canvas_size"`
	DefaultTool      string        `yaml:"default_tool"`
	Loop             bool          `yaml:"loop"`
	PlaybackInterval time.Duration `yaml:"playback_interval"`
}

type DecoderConfig struct {
	CacheSize int `yaml:"cache_size"`
}

type ExportConfig struct {
	Format string `yaml:"format"`
	Dir    string `yaml:"dir"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Config is the full configuration file.
type Config struct {
	Viewport ViewportConfig `yaml:"viewport"`
	Decoder  DecoderConfig  `yaml:"decoder"`
	Export   ExportConfig   `yaml:"export"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Viewport: ViewportConfig{
			CanvasSize:       viewport.DefaultCanvasSize,
			DefaultTool:      viewport.ToolPan.String(),
			PlaybackInterval: viewport.DefaultPlaybackInterval,
		},
		Decoder: DecoderConfig{CacheSize: 64},
		Export:  ExportConfig{Format: "png", Dir: "."},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "dicomview", "config.yaml"), nil
}

// Load reads path over the defaults and applies environment overrides. An
// empty path means DefaultPath; a missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return cfg, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as YAML, creating parent directories.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// Validate checks value ranges and names.
func (c Config) Validate() error {
	if c.Viewport.CanvasSize < 64 || c.Viewport.CanvasSize > 4096 {
		return fmt.Errorf("%w: viewport.canvas_size %d out of range [64, 4096]", ErrInvalid, c.Viewport.CanvasSize)
	}
	if _, err := viewport.ParseToolMode(c.Viewport.DefaultTool); err != nil {
		return fmt.Errorf("%w: viewport.default_tool: %v", ErrInvalid, err)
	}
	if c.Viewport.PlaybackInterval < 10*time.Millisecond {
		return fmt.Errorf("%w: viewport.playback_interval %s is below 10ms", ErrInvalid, c.Viewport.PlaybackInterval)
	}
	if c.Decoder.CacheSize < 1 {
		return fmt.Errorf("%w: decoder.cache_size must be positive", ErrInvalid)
	}
	if !validExportFormat(c.Export.Format) {
		return fmt.Errorf("%w: export.format %q (valid: %s)", ErrInvalid, c.Export.Format, strings.Join(ExportFormats, ", "))
	}
	return nil
}

// Tool returns the parsed default tool.
func (c Config) Tool() viewport.ToolMode {
	m, err := viewport.ParseToolMode(c.Viewport.DefaultTool)
	if err != nil {
		return viewport.ToolPan
	}
	return m
}

func validExportFormat(f string) bool {
	for _, v := range ExportFormats {
		if v == f {
			return true
		}
	}
	return false
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvTool)); v != "" {
		cfg.Viewport.DefaultTool = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLoop)); v != "" {
		cfg.Viewport.Loop = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvCacheSize)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Decoder.CacheSize = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvExportFormat)); v != "" {
		cfg.Export.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvExportDir)); v != "" {
		cfg.Export.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
