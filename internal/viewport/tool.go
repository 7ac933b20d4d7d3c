package viewport

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnknownTool is returned when a tool mode is not one of the supported
// variants.
var ErrUnknownTool = errors.New("unknown tool")

// ToolMode selects which transform field a drag gesture drives.
type ToolMode int

const (
	ToolPan ToolMode = iota
	ToolZoom
	ToolWindow
	ToolMeasure
	ToolRegionMark
)

// Sensitivity constants for drag gestures.
const (
	WindowDragScale = 0.5
	ZoomDragBase    = 1.01
)

// ToolModes lists every supported mode in display order.
var ToolModes = []ToolMode{ToolPan, ToolZoom, ToolWindow, ToolMeasure, ToolRegionMark}

var toolNames = map[ToolMode]string{
	ToolPan:        "pan",
	ToolZoom:       "zoom",
	ToolWindow:     "window",
	ToolMeasure:    "measure",
	ToolRegionMark: "region",
}

var toolAliases = map[string]ToolMode{
	"pan":         ToolPan,
	"zoom":        ToolZoom,
	"window":      ToolWindow,
	"windowing":   ToolWindow,
	"wl":          ToolWindow,
	"measure":     ToolMeasure,
	"measurement": ToolMeasure,
	"region":      ToolRegionMark,
	"rectangle":   ToolRegionMark,
	"roi":         ToolRegionMark,
}

// String returns the canonical tool name.
func (m ToolMode) String() string {
	if name, ok := toolNames[m]; ok {
		return name
	}
	return fmt.Sprintf("tool(%d)", int(m))
}

// Valid reports whether m is a supported mode.
func (m ToolMode) Valid() bool {
	_, ok := toolNames[m]
	return ok
}

// Annotates reports whether drags in this mode produce annotations instead of
// transform mutations.
func (m ToolMode) Annotates() bool {
	return m == ToolMeasure || m == ToolRegionMark
}

// ParseToolMode converts a tool name (case-insensitive) to a ToolMode.
func ParseToolMode(s string) (ToolMode, error) {
	m, ok := toolAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTool, s)
	}
	return m, nil
}

// ToolController holds the active tool. The zero value selects ToolPan.
type ToolController struct {
	mode ToolMode
}

// Mode returns the active tool.
func (c *ToolController) Mode() ToolMode {
	return c.mode
}

// SetTool switches the active tool. Unknown modes leave the state untouched.
func (c *ToolController) SetTool(mode ToolMode) error {
	if !mode.Valid() {
		return fmt.Errorf("set tool: %w: %d", ErrUnknownTool, int(mode))
	}
	c.mode = mode
	return nil
}

// PointerDelta is the movement handed to Route. For wheel input only DY is
// meaningful and carries the wheel deltaY.
type PointerDelta struct {
	DX, DY float64
	Wheel  bool
}

// MutationKind names the transform mutator a Mutation targets.
type MutationKind int

const (
	MutateNone MutationKind = iota
	MutatePan
	MutateZoom
	MutateWindow
)

// Mutation is a request to change the transform, produced by Route.
type Mutation struct {
	Kind    MutationKind
	DX, DY  float64 // pan
	Factor  float64 // zoom
	DWidth  float64 // window
	DCenter float64 // window
}

// Apply performs the mutation and reports whether t changed.
func (m Mutation) Apply(t *Transform) bool {
	switch m.Kind {
	case MutatePan:
		return t.ApplyPan(m.DX, m.DY)
	case MutateZoom:
		return t.ApplyZoomDelta(m.Factor)
	case MutateWindow:
		return t.ApplyWindowDelta(m.DWidth, m.DCenter)
	default:
		return false
	}
}

// Route maps a pointer delta to a transform mutation for the given mode.
// It is pure: the same inputs always produce the same request.
func Route(mode ToolMode, d PointerDelta) Mutation {
	switch mode {
	case ToolPan:
		if d.Wheel {
			return Mutation{}
		}
		return Mutation{Kind: MutatePan, DX: d.DX, DY: d.DY}

	case ToolZoom:
		if d.Wheel {
			switch {
			case d.DY < 0:
				return Mutation{Kind: MutateZoom, Factor: ZoomStep}
			case d.DY > 0:
				return Mutation{Kind: MutateZoom, Factor: 1 / ZoomStep}
			default:
				return Mutation{}
			}
		}
		// dragging up zooms in
		return Mutation{Kind: MutateZoom, Factor: math.Pow(ZoomDragBase, -d.DY)}

	case ToolWindow:
		if d.Wheel {
			return Mutation{}
		}
		return Mutation{
			Kind:    MutateWindow,
			DWidth:  d.DX * WindowDragScale,
			DCenter: d.DY * WindowDragScale,
		}

	default:
		return Mutation{}
	}
}
