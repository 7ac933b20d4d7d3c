// Package tui is the terminal front end of the viewer: a bubbletea program
// that owns the rendering surface and feeds keyboard and mouse input into a
// viewport session.
package tui

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mrsinham/dicomview/internal/annotate"
	"github.com/mrsinham/dicomview/internal/dicom"
	"github.com/mrsinham/dicomview/internal/dicom/modalities"
	"github.com/mrsinham/dicomview/internal/export"
	"github.com/mrsinham/dicomview/internal/render"
	"github.com/mrsinham/dicomview/internal/study"
	"github.com/mrsinham/dicomview/internal/viewport"
)

const (
	headerLines = 2
	footerLines = 2
	panStep     = 10
	windowStep  = 5
)

// Options configures the viewer.
type Options struct {
	Series   dicom.SeriesRef
	Decoder  *dicom.Decoder
	Renderer *render.Renderer

	Tool             viewport.ToolMode
	Loop             bool
	PlaybackInterval time.Duration
	CanvasSize       int

	ExportDir    string
	ExportFormat export.Format

	Logger *slog.Logger
}

type decodedMsg struct {
	index int
	res   dicom.Decoded
}

type tickMsg struct{ gen int }

type exportedMsg struct {
	path string
	err  error
}

// Model is the viewer's bubbletea model.
type Model struct {
	ctx      context.Context
	opts     Options
	logger   *slog.Logger
	session  *viewport.Session
	store    *annotate.Store
	info     study.Info
	presets  []modalities.WindowPreset
	keys     keyMap
	help     help.Model
	decoder  *dicom.Decoder
	renderer *render.Renderer

	width, height int
	surface       surface

	image       *image.Gray
	placeholder string
	frame       string
	dirty       bool

	tickGen   int
	presetIdx int
	status    string
	err       error
}

// New builds the viewer model for one series.
func New(ctx context.Context, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.PlaybackInterval <= 0 {
		opts.PlaybackInterval = viewport.DefaultPlaybackInterval
	}
	if opts.CanvasSize <= 0 {
		opts.CanvasSize = viewport.DefaultCanvasSize
	}
	if opts.ExportFormat == "" {
		opts.ExportFormat = export.PNG
	}
	if opts.Renderer == nil {
		opts.Renderer = render.New(render.WithLogger(opts.Logger))
	}

	series := opts.Series.Series
	store := annotate.NewStore(series,
		annotate.WithRasterSource(dicom.SeriesRaster{Decoder: opts.Decoder, Series: series}),
		annotate.WithLogger(opts.Logger))

	sessionOpts := []viewport.Option{
		viewport.WithCanvasSize(opts.CanvasSize, opts.CanvasSize),
		viewport.WithAnnotationSink(store),
		viewport.WithLoop(opts.Loop),
	}
	if opts.Tool.Valid() {
		sessionOpts = append(sessionOpts, viewport.WithTool(opts.Tool))
	}

	var presets []modalities.WindowPreset
	if series != nil && modalities.IsValid(series.Modality) {
		presets = modalities.Lookup(modalities.Modality(series.Modality)).DisplayPresets()
	}

	return &Model{
		ctx:       ctx,
		opts:      opts,
		logger:    opts.Logger,
		session:   viewport.NewSession(series, sessionOpts...),
		store:     store,
		info:      opts.Series.Info(),
		presets:   presets,
		keys:      defaultKeyMap(),
		help:      help.New(),
		decoder:   opts.Decoder,
		renderer:  opts.Renderer,
		presetIdx: -1,
		dirty:     true,
	}
}

// Session exposes the viewport session driven by the model.
func (m *Model) Session() *viewport.Session { return m.session }

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.decodeCmd()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.surface = newSurface(msg.Width, msg.Height, headerLines, m.footerHeight())
		m.dirty = true

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case tea.MouseMsg:
		ev, ok := translateMouse(msg, m.surface, m.session.Canvas(), m.session.Dragging())
		if !ok {
			return m, nil
		}
		return m, m.apply(m.session.Handle(ev))

	case decodedMsg:
		if msg.index != m.session.Index() {
			// a newer slice is already showing
			return m, nil
		}
		m.image, m.placeholder = nil, msg.res.Placeholder
		if msg.res.OK() {
			m.image = msg.res.Image
		}
		m.err = msg.res.Err
		m.matchDrawnImage()
		m.dirty = true

	case tickMsg:
		if msg.gen != m.tickGen || !m.session.Navigator().Playing() {
			return m, nil
		}
		var cmds []tea.Cmd
		if m.session.Tick() {
			m.dirty = true
			cmds = append(cmds, m.decodeCmd())
		}
		if m.session.Navigator().Playing() {
			cmds = append(cmds, m.tickCmd())
		}
		return m, tea.Batch(cmds...)

	case exportedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.logger.Error("export failed", slog.Any("error", msg.err))
		} else {
			m.status = "exported " + msg.path
			m.logger.Info("frame exported", slog.String("path", msg.path))
		}
	}
	return m, nil
}

// apply reacts to the outcome of an input event.
func (m *Model) apply(out viewport.Outcome) tea.Cmd {
	if out.Redraw {
		m.dirty = true
	}
	if out.Annotation != nil {
		m.status = m.describeLatest()
	}
	if out.SliceChanged {
		return m.decodeCmd()
	}
	return nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	s := m.session
	var changed, slice bool

	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.surface = newSurface(m.width, m.height, headerLines, m.footerHeight())
		changed = true
	case key.Matches(msg, m.keys.Next):
		slice = s.Next()
	case key.Matches(msg, m.keys.Previous):
		slice = s.Previous()
	case key.Matches(msg, m.keys.First):
		slice = s.Seek(0)
	case key.Matches(msg, m.keys.Last):
		slice = s.Seek(s.Navigator().Len() - 1)
	case key.Matches(msg, m.keys.Play):
		if s.Navigator().TogglePlayback() {
			m.tickGen++
			return m.tickCmd()
		}
		changed = true
	case key.Matches(msg, m.keys.Loop):
		s.Navigator().Loop = !s.Navigator().Loop
		m.status = fmt.Sprintf("loop %s", onOff(s.Navigator().Loop))
	case key.Matches(msg, m.keys.ZoomIn):
		changed = s.ZoomIn()
	case key.Matches(msg, m.keys.ZoomOut):
		changed = s.ZoomOut()
	case key.Matches(msg, m.keys.Rotate):
		changed = s.Rotate()
	case key.Matches(msg, m.keys.RotateBack):
		changed = s.RotateBy(-viewport.RotationStep)
	case key.Matches(msg, m.keys.Reset):
		changed = s.Reset()
		m.presetIdx = -1
	case key.Matches(msg, m.keys.PanUp):
		changed = s.Pan(0, -panStep)
	case key.Matches(msg, m.keys.PanDown):
		changed = s.Pan(0, panStep)
	case key.Matches(msg, m.keys.PanLeft):
		changed = s.Pan(-panStep, 0)
	case key.Matches(msg, m.keys.PanRight):
		changed = s.Pan(panStep, 0)
	case key.Matches(msg, m.keys.Narrower):
		t := s.Transform()
		changed = s.SetWindow(t.WindowCenter, t.WindowWidth-windowStep)
	case key.Matches(msg, m.keys.Wider):
		t := s.Transform()
		changed = s.SetWindow(t.WindowCenter, t.WindowWidth+windowStep)
	case key.Matches(msg, m.keys.Preset):
		changed = m.nextPreset()
	case key.Matches(msg, m.keys.ToolPan):
		m.setTool(viewport.ToolPan)
	case key.Matches(msg, m.keys.ToolZoom):
		m.setTool(viewport.ToolZoom)
	case key.Matches(msg, m.keys.ToolWindow):
		m.setTool(viewport.ToolWindow)
	case key.Matches(msg, m.keys.ToolMeas):
		m.setTool(viewport.ToolMeasure)
	case key.Matches(msg, m.keys.ToolRegion):
		m.setTool(viewport.ToolRegionMark)
	case key.Matches(msg, m.keys.CycleTool):
		m.setTool(nextTool(s.Tool()))
	case key.Matches(msg, m.keys.Undo):
		changed = m.store.Undo(s.Index())
	case key.Matches(msg, m.keys.Export):
		return m.exportCmd()
	}

	if changed || slice {
		m.dirty = true
	}
	if slice {
		return m.decodeCmd()
	}
	return nil
}

func (m *Model) setTool(mode viewport.ToolMode) {
	if err := m.session.SetTool(mode); err != nil {
		m.err = err
		return
	}
	m.status = "tool: " + mode.String()
}

func nextTool(mode viewport.ToolMode) viewport.ToolMode {
	modes := viewport.ToolModes
	for i, t := range modes {
		if t == mode {
			return modes[(i+1)%len(modes)]
		}
	}
	return modes[0]
}

func (m *Model) nextPreset() bool {
	if len(m.presets) == 0 {
		m.status = "no window presets for this modality"
		return false
	}
	m.presetIdx = (m.presetIdx + 1) % len(m.presets)
	p := m.presets[m.presetIdx]
	m.status = "preset " + p.Name
	return m.session.SetWindow(p.Center, p.Width)
}

// matchDrawnImage points the session at the raster the renderer will draw,
// so canvas coordinates map into the same image space.
func (m *Model) matchDrawnImage() {
	if m.image == nil {
		m.session.UsePlaceholder()
		return
	}
	b := m.image.Bounds()
	m.session.SetImageSize(b.Dx(), b.Dy())
}

// decodeCmd requests the pixels of the current slice. Until they arrive the
// previous raster stays on screen.
func (m *Model) decodeCmd() tea.Cmd {
	m.matchDrawnImage()
	img, ok := m.session.Current()
	if !ok || m.decoder == nil {
		return nil
	}
	index := m.session.Index()
	ch := m.decoder.DecodeAsync(m.ctx, img)
	return func() tea.Msg {
		return decodedMsg{index: index, res: <-ch}
	}
}

func (m *Model) tickCmd() tea.Cmd {
	gen := m.tickGen
	return tea.Tick(m.opts.PlaybackInterval, func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}

// renderInput collects everything the renderer needs for the current slice.
func (m *Model) renderInput() render.Input {
	var img image.Image
	if m.image != nil {
		img = m.image
	}
	in := render.FromSession(m.session, m.info, img)
	in.PlaceholderLabel = m.placeholder
	for _, e := range m.store.ForSlice(m.session.Index()) {
		in.Annotations = append(in.Annotations, e.Annotation)
	}
	return in
}

// Frame renders the current slice at full canvas resolution.
func (m *Model) Frame() (image.Image, export.Metadata) {
	in := m.renderInput()
	frame := m.renderer.Render(in)
	ov := render.BuildOverlay(in, frame.Bounds().Dx(), frame.Bounds().Dy())
	return frame, export.Metadata{Title: m.info.PatientName, Lines: ov.Lines()}
}

func (m *Model) exportCmd() tea.Cmd {
	dir := m.opts.ExportDir
	if dir == "" {
		dir = "."
	}
	format := m.opts.ExportFormat
	path := filepath.Join(dir, export.FileName(m.session.Index(), format))
	// render now so the file matches what is on screen
	img, meta := m.Frame()
	src := export.FrameFunc(func() (image.Image, export.Metadata) { return img, meta })
	return func() tea.Msg {
		return exportedMsg{path: path, err: export.WriteFile(path, format, src)}
	}
}

func (m *Model) describeLatest() string {
	entries := m.store.ForSlice(m.session.Index())
	if len(entries) == 0 {
		return ""
	}
	e := entries[len(entries)-1]
	if e.Annotation.Kind == viewport.AnnotationMeasure {
		return fmt.Sprintf("length %.1f mm", e.LengthMM)
	}
	if e.Stats == nil {
		return "region marked"
	}
	return fmt.Sprintf("region mean %.1f sd %.1f min %.1f max %.1f area %.1f mm²",
		e.Stats.Mean, e.Stats.StdDev, e.Stats.Min, e.Stats.Max, e.Stats.AreaMM2)
}

func (m *Model) footerHeight() int {
	if m.help.ShowAll {
		return footerLines + 5
	}
	return footerLines
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "loading..."
	}
	if m.dirty {
		frame, _ := m.Frame()
		m.frame = m.surface.cells(frame)
		m.dirty = false
	}

	var sb strings.Builder
	sb.WriteString(m.headerView())
	sb.WriteString("\n")
	sb.WriteString(m.frame)
	sb.WriteString("\n")
	sb.WriteString(m.statusView())
	sb.WriteString("\n")
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

func (m *Model) headerView() string {
	name := m.info.PatientName
	if name == "" {
		name = render.NotAvailable
	}
	title := titleStyle.Render(name)
	label := "no series"
	if m.opts.Series.Series != nil {
		label = m.opts.Series.Series.Label()
	}
	sub := subtitleStyle.Render(fmt.Sprintf("  %s · %s · %s", m.info.PatientID, m.info.StudyDate, label))
	return title + sub + "\n" + m.toolLine()
}

func (m *Model) toolLine() string {
	s := m.session
	t := s.Transform()
	line := fmt.Sprintf("tool %s  image %d/%d  zoom %d%%  WL/WW %.0f/%.0f  rot %d°",
		toolStyle.Render(s.Tool().String()),
		s.Index()+1, s.Navigator().Len(),
		int(t.Zoom*100+0.5), t.WindowCenter, t.WindowWidth, t.Rotation)
	if s.Navigator().Playing() {
		line += "  " + playingStyle.Render("▶ playing")
	}
	return line
}

func (m *Model) statusView() string {
	if m.err != nil {
		return errorStyle.Render("error: " + errMessage(m.err))
	}
	return statusStyle.Render(m.status)
}

func errMessage(err error) string {
	if errors.Is(err, viewport.ErrUnknownTool) {
		return "unknown tool"
	}
	return err.Error()
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// Run starts the viewer on the alternate screen with mouse reporting and
// blocks until the user quits or ctx is canceled.
func Run(ctx context.Context, opts Options) error {
	m := New(ctx, opts)
	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run viewer: %w", err)
	}
	return nil
}
