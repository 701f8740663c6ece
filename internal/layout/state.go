package layout

import "github.com/gosuda/widgetboard/internal/domain"

// State is a widget's local layout. Every transition returns a new State;
// nothing is mutated in place, so callers can compute the next geometry as
// data and hand it to the view.
type State struct {
	Geometry domain.Geometry
	Expanded bool
	// Saved is the pre-expansion geometry. Only meaningful while Expanded.
	Saved domain.Geometry
}

// Mount builds the initial state from the last persisted geometry. Expanded
// widgets fill the dashboard; the persisted geometry is kept as the restore
// point, clamped so collapsing lands inside the bounds.
func Mount(bounds domain.Size, persisted domain.Geometry, expanded bool) State {
	clamped := Clamp(bounds, persisted)
	if expanded {
		return State{
			Geometry: Fill(bounds, persisted.Z),
			Expanded: true,
			Saved:    clamped,
		}
	}
	return State{Geometry: clamped}
}

// Toggle flips between normal and expanded layout.
func (s State) Toggle(bounds domain.Size) State {
	if s.Expanded {
		restored := s.Saved
		restored.Z = s.Geometry.Z
		return State{Geometry: restored}
	}
	return State{
		Geometry: Fill(bounds, s.Geometry.Z),
		Expanded: true,
		Saved:    s.Geometry,
	}
}

// Raise sets the stacking index. Allowed in either mode.
func (s State) Raise(z int) State {
	s.Geometry.Z = z
	if s.Expanded {
		s.Saved.Z = z
	}
	return s
}

// Move records a drag result. No-op while expanded.
func (s State) Move(x, y int) State {
	if s.Expanded {
		return s
	}
	s.Geometry.X, s.Geometry.Y = x, y
	return s
}

// Resize records a resize result. No-op while expanded.
func (s State) Resize(width, height int) State {
	if s.Expanded {
		return s
	}
	s.Geometry.Width, s.Geometry.Height = width, height
	return s
}
