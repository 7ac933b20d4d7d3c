package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit       key.Binding
	Help       key.Binding
	Next       key.Binding
	Previous   key.Binding
	First      key.Binding
	Last       key.Binding
	Play       key.Binding
	Loop       key.Binding
	ZoomIn     key.Binding
	ZoomOut    key.Binding
	Rotate     key.Binding
	RotateBack key.Binding
	Reset      key.Binding
	PanUp      key.Binding
	PanDown    key.Binding
	PanLeft    key.Binding
	PanRight   key.Binding
	Narrower   key.Binding
	Wider      key.Binding
	Preset     key.Binding
	ToolPan    key.Binding
	ToolZoom   key.Binding
	ToolWindow key.Binding
	ToolMeas   key.Binding
	ToolRegion key.Binding
	CycleTool  key.Binding
	Undo       key.Binding
	Export     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Next:       key.NewBinding(key.WithKeys("down", "right", "j", "pgdown"), key.WithHelp("↓/j", "next slice")),
		Previous:   key.NewBinding(key.WithKeys("up", "left", "k", "pgup"), key.WithHelp("↑/k", "previous slice")),
		First:      key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "first slice")),
		Last:       key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "last slice")),
		Play:       key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		Loop:       key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "loop")),
		ZoomIn:     key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
		ZoomOut:    key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "zoom out")),
		Rotate:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rotate 90°")),
		RotateBack: key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "rotate -90°")),
		Reset:      key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "reset view")),
		PanUp:      key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "pan up")),
		PanDown:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "pan down")),
		PanLeft:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "pan left")),
		PanRight:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "pan right")),
		Narrower:   key.NewBinding(key.WithKeys("["), key.WithHelp("[", "narrow window")),
		Wider:      key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "widen window")),
		Preset:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "window preset")),
		ToolPan:    key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "pan tool")),
		ToolZoom:   key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "zoom tool")),
		ToolWindow: key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "window tool")),
		ToolMeas:   key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "measure tool")),
		ToolRegion: key.NewBinding(key.WithKeys("5"), key.WithHelp("5", "region tool")),
		CycleTool:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tool")),
		Undo:       key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "undo annotation")),
		Export:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export frame")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Previous, k.Play, k.CycleTool, k.ZoomIn, k.Rotate, k.Export, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Previous, k.First, k.Last, k.Play, k.Loop},
		{k.ZoomIn, k.ZoomOut, k.Rotate, k.RotateBack, k.Reset},
		{k.PanUp, k.PanDown, k.PanLeft, k.PanRight, k.Narrower, k.Wider, k.Preset},
		{k.ToolPan, k.ToolZoom, k.ToolWindow, k.ToolMeas, k.ToolRegion, k.CycleTool},
		{k.Undo, k.Export, k.Help, k.Quit},
	}
}
