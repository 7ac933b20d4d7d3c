package viewport

import "time"

// DefaultPlaybackInterval is the tick period used when none is configured.
const DefaultPlaybackInterval = 100 * time.Millisecond

// Navigator tracks the current slice of a series of a given length.
//
// The index is always clamped into [0, length-1]; out-of-range requests are
// never errors. With length 0 the index stays at 0 and every move is a no-op.
type Navigator struct {
	index   int
	length  int
	playing bool

	// Loop makes playback wrap to the first slice instead of stopping at
	// the last one.
	Loop bool
}

// NewNavigator returns a navigator positioned on the first slice.
func NewNavigator(length int) *Navigator {
	if length < 0 {
		length = 0
	}
	return &Navigator{length: length}
}

// Index returns the current 0-based slice index.
func (n *Navigator) Index() int { return n.index }

// Len returns the series length.
func (n *Navigator) Len() int { return n.length }

// Playing reports whether playback is active.
func (n *Navigator) Playing() bool { return n.playing }

// SetLength replaces the series length, stops playback and rewinds.
func (n *Navigator) SetLength(length int) {
	if length < 0 {
		length = 0
	}
	n.length = length
	n.index = 0
	n.playing = false
}

// Seek moves to index i, clamped into bounds. It reports whether the index
// changed.
func (n *Navigator) Seek(i int) bool {
	if n.length == 0 {
		return false
	}
	if i < 0 {
		i = 0
	}
	if i > n.length-1 {
		i = n.length - 1
	}
	if i == n.index {
		return false
	}
	n.index = i
	return true
}

// Next advances one slice. It is a no-op on the last slice.
func (n *Navigator) Next() bool { return n.Seek(n.index + 1) }

// Previous goes back one slice. It is a no-op on the first slice.
func (n *Navigator) Previous() bool { return n.Seek(n.index - 1) }

// First jumps to the first slice.
func (n *Navigator) First() bool { return n.Seek(0) }

// Last jumps to the last slice.
func (n *Navigator) Last() bool { return n.Seek(n.length - 1) }

// StartPlayback enables playback. Starting on the last slice is allowed.
func (n *Navigator) StartPlayback() {
	if n.length > 0 {
		n.playing = true
	}
}

// StopPlayback disables playback.
func (n *Navigator) StopPlayback() {
	n.playing = false
}

// TogglePlayback flips playback and returns the new state.
func (n *Navigator) TogglePlayback() bool {
	if n.playing {
		n.StopPlayback()
	} else {
		n.StartPlayback()
	}
	return n.playing
}

// Tick advances one slice while playback is active. At the last slice it
// wraps when Loop is set and otherwise stops playback. It reports whether the
// index changed.
func (n *Navigator) Tick() bool {
	if !n.playing {
		return false
	}
	if n.index < n.length-1 {
		return n.Next()
	}
	if n.Loop && n.length > 1 {
		n.index = 0
		return true
	}
	n.playing = false
	return false
}
