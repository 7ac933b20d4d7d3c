package viewport

import (
	"errors"
	"math"
	"testing"
)

func TestParseToolMode(t *testing.T) {
	tests := []struct {
		input   string
		want    ToolMode
		wantErr bool
	}{
		{"pan", ToolPan, false},
		{"Zoom", ToolZoom, false},
		{"window", ToolWindow, false},
		{"windowing", ToolWindow, false},
		{"measurement", ToolMeasure, false},
		{" measure ", ToolMeasure, false},
		{"rectangle", ToolRegionMark, false},
		{"region", ToolRegionMark, false},
		{"lasso", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseToolMode(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownTool) {
					t.Errorf("ParseToolMode(%q) error = %v, want ErrUnknownTool", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseToolMode(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseToolMode(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestToolMode_StringRoundTrip(t *testing.T) {
	for _, m := range ToolModes {
		got, err := ParseToolMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseToolMode(%q) = %v, %v", m.String(), got, err)
		}
	}
}

func TestToolController_SetTool(t *testing.T) {
	var c ToolController
	if c.Mode() != ToolPan {
		t.Fatalf("zero controller mode = %v, want pan", c.Mode())
	}
	if err := c.SetTool(ToolWindow); err != nil {
		t.Fatalf("SetTool(window): %v", err)
	}
	err := c.SetTool(ToolMode(42))
	if !errors.Is(err, ErrUnknownTool) {
		t.Errorf("SetTool(42) error = %v, want ErrUnknownTool", err)
	}
	if c.Mode() != ToolWindow {
		t.Errorf("rejected SetTool changed mode to %v", c.Mode())
	}
}

func TestRoute(t *testing.T) {
	tests := []struct {
		name  string
		mode  ToolMode
		delta PointerDelta
		want  Mutation
	}{
		{"pan drag", ToolPan, PointerDelta{DX: 10, DY: -5}, Mutation{Kind: MutatePan, DX: 10, DY: -5}},
		{"pan wheel", ToolPan, PointerDelta{DY: -3, Wheel: true}, Mutation{}},
		{"zoom wheel up", ToolZoom, PointerDelta{DY: -100, Wheel: true}, Mutation{Kind: MutateZoom, Factor: ZoomStep}},
		{"zoom wheel down", ToolZoom, PointerDelta{DY: 100, Wheel: true}, Mutation{Kind: MutateZoom, Factor: 1 / ZoomStep}},
		{"zoom wheel zero", ToolZoom, PointerDelta{Wheel: true}, Mutation{}},
		{"window drag", ToolWindow, PointerDelta{DX: 10, DY: -4}, Mutation{Kind: MutateWindow, DWidth: 5, DCenter: -2}},
		{"measure drag", ToolMeasure, PointerDelta{DX: 10, DY: 10}, Mutation{}},
		{"region drag", ToolRegionMark, PointerDelta{DX: 10, DY: 10}, Mutation{}},
		{"unknown mode", ToolMode(99), PointerDelta{DX: 1}, Mutation{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Route(tt.mode, tt.delta); got != tt.want {
				t.Errorf("Route() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRoute_ZoomDrag(t *testing.T) {
	up := Route(ToolZoom, PointerDelta{DY: -10})
	if up.Kind != MutateZoom || up.Factor <= 1 {
		t.Errorf("dragging up should zoom in, got %+v", up)
	}
	if want := math.Pow(ZoomDragBase, 10); math.Abs(up.Factor-want) > 1e-12 {
		t.Errorf("factor = %v, want %v", up.Factor, want)
	}
	down := Route(ToolZoom, PointerDelta{DY: 10})
	if down.Factor >= 1 {
		t.Errorf("dragging down should zoom out, got %+v", down)
	}
}

func TestMutation_Apply(t *testing.T) {
	tr := DefaultTransform()
	if (Mutation{}).Apply(&tr) {
		t.Error("empty mutation reported a change")
	}
	Mutation{Kind: MutateWindow, DWidth: 5, DCenter: -2}.Apply(&tr)
	if tr.WindowWidth != 105 || tr.WindowCenter != 48 {
		t.Errorf("window = %v/%v", tr.WindowCenter, tr.WindowWidth)
	}
}
