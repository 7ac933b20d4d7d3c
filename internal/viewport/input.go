package viewport

// Event is a low-level input event on the rendering surface. Coordinates are
// canvas pixels.
type Event interface {
	event()
}

// PointerDown starts a drag.
type PointerDown struct{ X, Y float64 }

// PointerMove reports the pointer position. It only has an effect while a
// drag is active.
type PointerMove struct{ X, Y float64 }

// PointerUp ends a drag.
type PointerUp struct{ X, Y float64 }

// PointerLeave ends a drag when the pointer leaves the surface.
type PointerLeave struct{}

// Wheel is a scroll event. Negative DeltaY scrolls up.
type Wheel struct{ DeltaY float64 }

func (PointerDown) event()  {}
func (PointerMove) event()  {}
func (PointerUp) event()    {}
func (PointerLeave) event() {}
func (Wheel) event()        {}

// Outcome tells the owner of the surface what an event did.
type Outcome struct {
	// Redraw is set when the transform, the slice or a pending annotation
	// changed.
	Redraw bool
	// SliceChanged is set when the event moved to another slice.
	SliceChanged bool
	// PreventDefault asks the host to suppress its default handling, such
	// as scrolling the surrounding page.
	PreventDefault bool
	// Annotation is non-nil when a measure or region drag completed.
	Annotation *Annotation
}

// Handle feeds one input event through the session.
func (s *Session) Handle(ev Event) Outcome {
	switch e := ev.(type) {
	case PointerDown:
		return s.pointerDown(e)
	case PointerMove:
		return s.pointerMove(e)
	case PointerUp:
		return s.pointerUp(e)
	case PointerLeave:
		return s.pointerLeave()
	case Wheel:
		return s.wheel(e)
	default:
		return Outcome{}
	}
}

func (s *Session) pointerDown(e PointerDown) Outcome {
	if !finite(e.X) || !finite(e.Y) {
		return Outcome{}
	}
	p := Point{X: e.X, Y: e.Y}
	s.dragging = true
	s.last = p
	s.dragStart = p
	return Outcome{}
}

func (s *Session) pointerMove(e PointerMove) Outcome {
	if !s.dragging || !finite(e.X) || !finite(e.Y) {
		return Outcome{}
	}
	p := Point{X: e.X, Y: e.Y}
	delta := PointerDelta{DX: p.X - s.last.X, DY: p.Y - s.last.Y}
	s.last = p

	mode := s.tools.Mode()
	if mode.Annotates() {
		return Outcome{Redraw: delta.DX != 0 || delta.DY != 0}
	}
	changed := Route(mode, delta).Apply(&s.transform)
	return Outcome{Redraw: changed}
}

func (s *Session) pointerUp(e PointerUp) Outcome {
	if !s.dragging {
		return Outcome{}
	}
	s.dragging = false

	mode := s.tools.Mode()
	if !mode.Annotates() {
		return Outcome{}
	}
	end := s.last
	if finite(e.X) && finite(e.Y) {
		end = Point{X: e.X, Y: e.Y}
	}
	a := s.annotation(mode, s.dragStart, end)
	if s.sink != nil {
		s.sink.Annotate(a)
	}
	return Outcome{Redraw: true, Annotation: &a}
}

func (s *Session) pointerLeave() Outcome {
	if !s.dragging {
		return Outcome{}
	}
	s.dragging = false
	// an abandoned measure or region drag leaves a preview to clear
	return Outcome{Redraw: s.tools.Mode().Annotates()}
}

func (s *Session) wheel(e Wheel) Outcome {
	out := Outcome{PreventDefault: true}
	if !finite(e.DeltaY) {
		return out
	}

	if s.tools.Mode() == ToolZoom {
		out.Redraw = Route(ToolZoom, PointerDelta{DY: e.DeltaY, Wheel: true}).Apply(&s.transform)
		return out
	}

	var moved bool
	switch {
	case e.DeltaY < 0:
		moved = s.Previous()
	case e.DeltaY > 0:
		moved = s.Next()
	}
	out.Redraw = moved
	out.SliceChanged = moved
	return out
}
