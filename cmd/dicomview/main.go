package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mrsinham/dicomview/internal/config"
	"github.com/mrsinham/dicomview/internal/dicom"
	"github.com/mrsinham/dicomview/internal/export"
	"github.com/mrsinham/dicomview/internal/log"
	"github.com/mrsinham/dicomview/internal/tui"
	"github.com/mrsinham/dicomview/internal/viewport"
)

// version is set at build time via -ldflags
var version = "dev"

var (
	errUsage = errors.New("usage error")
	errHelp  = errors.New("help requested")
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if errors.Is(err, errHelp) {
		return
	}
	if err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		switch args[0] {
		case "version":
			fmt.Fprintf(stdout, "dicomview %s\n", version)
			return nil
		case "demo":
			return runDemo(ctx, args[1:], stdout, stderr)
		case "render":
			return runRender(ctx, args[1:], stdout, stderr)
		case "help":
			printHelp(stdout)
			return nil
		}
	}
	return runView(ctx, args, stderr)
}

// loadConfig reads the config file and installs the process logger. The
// terminal viewer passes quiet so log lines never reach the screen.
func loadConfig(path string, quiet bool) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	log.Init(log.FromEnv(log.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
		Quiet:  quiet,
	}))
	return cfg, nil
}

func runView(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("dicomview", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configFile := fs.String("config", "", "Configuration file (default: user config dir)")
	tool := fs.String("tool", "", "Initial tool: pan, zoom, window, measure, region")
	loop := fs.Bool("loop", false, "Wrap playback at the last slice")
	seriesUID := fs.String("series", "", "Open this SeriesInstanceUID without prompting")
	exportFormat := fs.String("export-format", "", "Format used by the export key: png, webp, tga, pdf")
	exportDir := fs.String("export-dir", "", "Directory for exported frames")
	fs.Usage = func() { printUsage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		return parseError(err)
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Error: a DICOM directory is required")
		printUsage(stderr, fs)
		return errUsage
	}

	cfg, err := loadConfig(*configFile, true)
	if err != nil {
		return err
	}
	logger := log.WithComponent("viewer")

	mode := cfg.Tool()
	if *tool != "" {
		if mode, err = viewport.ParseToolMode(*tool); err != nil {
			return err
		}
	}
	format, err := export.ParseFormat(firstNonEmpty(*exportFormat, cfg.Export.Format))
	if err != nil {
		return err
	}

	idx, err := dicom.Scan(ctx, fs.Arg(0), log.WithComponent("scan"))
	if err != nil {
		return err
	}
	var ref dicom.SeriesRef
	if *seriesUID != "" {
		ref, err = idx.Find("", "", *seriesUID)
	} else {
		ref, err = tui.PickSeries(idx.Series())
	}
	if err != nil {
		return err
	}

	dec, err := dicom.NewDecoder(cfg.Decoder.CacheSize, log.WithComponent("decoder"))
	if err != nil {
		return err
	}

	return tui.Run(ctx, tui.Options{
		Series:           ref,
		Decoder:          dec,
		Tool:             mode,
		Loop:             *loop || cfg.Viewport.Loop,
		PlaybackInterval: cfg.Viewport.PlaybackInterval,
		CanvasSize:       cfg.Viewport.CanvasSize,
		ExportDir:        firstNonEmpty(*exportDir, cfg.Export.Dir),
		ExportFormat:     format,
		Logger:           logger,
	})
}

// parseError maps a flag parsing failure. The flag package has already
// printed the details.
func parseError(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return errHelp
	}
	return errUsage
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "\nUsage:")
	fmt.Fprintln(w, "  dicomview [options] <dir>")
	fmt.Fprintln(w, "  dicomview demo|render|version [options]")
	fmt.Fprintln(w, "\nOptions:")
	fs.PrintDefaults()
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "dicomview")
	fmt.Fprintln(w, "=========")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Browse DICOM series in the terminal.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  dicomview [options] <dir>     Scan <dir> and open a series")
	fmt.Fprintln(w, "  dicomview demo [options]      Generate a synthetic series")
	fmt.Fprintln(w, "  dicomview render [options] <dir>")
	fmt.Fprintln(w, "                                Render one slice to a file without a terminal")
	fmt.Fprintln(w, "  dicomview version             Print the version")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Viewer options:")
	fmt.Fprintln(w, "  --config <FILE>       Configuration file")
	fmt.Fprintln(w, "  --tool <TOOL>         Initial tool: pan, zoom, window, measure, region")
	fmt.Fprintln(w, "  --loop                Wrap playback at the last slice")
	fmt.Fprintln(w, "  --series <UID>        Open this series without prompting")
	fmt.Fprintln(w, "  --export-format <F>   png, webp, tga or pdf")
	fmt.Fprintln(w, "  --export-dir <DIR>    Directory for exported frames")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  # Generate 20 CT slices and browse them")
	fmt.Fprintln(w, "  dicomview demo --modality CT --num-images 20 --output ct_demo")
	fmt.Fprintln(w, "  dicomview ct_demo")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  # Export slice 5 zoomed in and rotated as WebP")
	fmt.Fprintln(w, "  dicomview render --slice 5 --zoom 2 --rotate 90 --out slice.webp ct_demo")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintf(w, "  %s, %s, %s, %s,\n", config.EnvConfig, config.EnvTool, config.EnvLoop, config.EnvCacheSize)
	fmt.Fprintf(w, "  %s, %s, %s, %s, %s\n", config.EnvExportFormat, config.EnvExportDir,
		config.EnvLogLevel, config.EnvLogFormat, config.EnvLogFile)
}
