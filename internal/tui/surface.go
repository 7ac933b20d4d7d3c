package tui

import (
	"fmt"
	"image"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/image/draw"

	"github.com/mrsinham/dicomview/internal/viewport"
)

// surface is where the frame sits in the terminal. Each cell shows two
// vertically stacked pixels with the upper half block, so the pixel grid is
// cols x rows*2.
type surface struct {
	originX, originY int
	cols, rows       int
}

// newSurface fits a square frame into the area left between header and
// footer.
func newSurface(width, height, header, footer int) surface {
	rows := height - header - footer
	if rows < 1 {
		rows = 1
	}
	cols := min(width, rows*2)
	if cols < 2 {
		cols = 2
	}
	rows = cols / 2
	return surface{
		originX: max(0, (width-cols)/2),
		originY: header,
		cols:    cols,
		rows:    rows,
	}
}

func (s surface) contains(x, y int) bool {
	return x >= s.originX && x < s.originX+s.cols && y >= s.originY && y < s.originY+s.rows
}

// toCanvas maps a terminal cell to the center of the canvas region it
// displays.
func (s surface) toCanvas(x, y int, canvas viewport.Size) viewport.Point {
	px := (float64(x-s.originX) + 0.5) / float64(s.cols)
	py := (float64(y-s.originY)*2 + 1) / float64(s.rows*2)
	return viewport.Point{X: px * canvas.W, Y: py * canvas.H}
}

// translateMouse turns a terminal mouse event into a viewport event. ok is
// false for events the viewport does not care about.
func translateMouse(msg tea.MouseMsg, s surface, canvas viewport.Size, dragging bool) (viewport.Event, bool) {
	inside := s.contains(msg.X, msg.Y)
	p := s.toCanvas(msg.X, msg.Y, canvas)

	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		return viewport.Wheel{DeltaY: -1}, inside
	case msg.Button == tea.MouseButtonWheelDown:
		return viewport.Wheel{DeltaY: 1}, inside
	}

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button == tea.MouseButtonLeft && inside {
			return viewport.PointerDown{X: p.X, Y: p.Y}, true
		}
	case tea.MouseActionMotion:
		if !dragging {
			return nil, false
		}
		if !inside {
			return viewport.PointerLeave{}, true
		}
		return viewport.PointerMove{X: p.X, Y: p.Y}, true
	case tea.MouseActionRelease:
		if !dragging {
			return nil, false
		}
		if !inside {
			return viewport.PointerLeave{}, true
		}
		return viewport.PointerUp{X: p.X, Y: p.Y}, true
	}
	return nil, false
}

// cells downsamples a frame to the surface grid and encodes it as rows of
// truecolor upper half blocks.
func (s surface) cells(frame image.Image) string {
	small := image.NewRGBA(image.Rect(0, 0, s.cols, s.rows*2))
	draw.ApproxBiLinear.Scale(small, small.Bounds(), frame, frame.Bounds(), draw.Src, nil)

	var sb strings.Builder
	pad := strings.Repeat(" ", s.originX)
	for row := 0; row < s.rows; row++ {
		sb.WriteString(pad)
		var lastFg, lastBg [3]uint8
		first := true
		for col := 0; col < s.cols; col++ {
			top := small.RGBAAt(col, row*2)
			bottom := small.RGBAAt(col, row*2+1)
			fg := [3]uint8{top.R, top.G, top.B}
			bg := [3]uint8{bottom.R, bottom.G, bottom.B}
			if first || fg != lastFg {
				fmt.Fprintf(&sb, "\x1b[38;2;%d;%d;%dm", fg[0], fg[1], fg[2])
			}
			if first || bg != lastBg {
				fmt.Fprintf(&sb, "\x1b[48;2;%d;%d;%dm", bg[0], bg[1], bg[2])
			}
			first = false
			lastFg, lastBg = fg, bg
			sb.WriteString("▀")
		}
		sb.WriteString("\x1b[0m")
		if row < s.rows-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
