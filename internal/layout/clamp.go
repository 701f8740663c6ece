// Package layout holds the pure geometry rules for widgets on a dashboard:
// bounds clamping, stacking order and the expand/collapse reducer.
package layout

import "github.com/gosuda/widgetboard/internal/domain"

// MinWidgetSize is the smallest footprint the drag/resize surface allows on
// either axis.
const MinWidgetSize = 350

// ClampAxis fits one axis of a widget into a dashboard of length dashSize.
// A widget that overflows the far edge is shrunk to half the dashboard when
// it is larger than that, then stuck to the far edge. A widget that fits is
// returned unchanged. dashSize must be positive.
func ClampAxis(dashSize, size, pos int) (effSize, effPos int) {
	if pos+size <= dashSize {
		return size, pos
	}
	if half := dashSize / 2; size > half {
		size = half
	}
	return size, dashSize - size
}

// Clamp applies ClampAxis to both axes independently. Z is untouched.
func Clamp(bounds domain.Size, g domain.Geometry) domain.Geometry {
	g.Width, g.X = ClampAxis(bounds.Width, g.Width, g.X)
	g.Height, g.Y = ClampAxis(bounds.Height, g.Height, g.Y)
	return g
}

// Fill returns the geometry occupying the whole dashboard, keeping z.
func Fill(bounds domain.Size, z int) domain.Geometry {
	return domain.Geometry{Width: bounds.Width, Height: bounds.Height, Z: z}
}

// DragTo bounds a drop position so the widget stays on the dashboard: each
// axis lands in [0, bound-size].
func DragTo(bounds domain.Size, g domain.Geometry, x, y int) domain.Geometry {
	g.X = dragAxis(bounds.Width, g.Width, x)
	g.Y = dragAxis(bounds.Height, g.Height, y)
	return g
}

// ResizeTo bounds a resize result. Each size lands in [MinWidgetSize, bound]
// (the bound itself on dashboards smaller than the minimum). A size that
// would cross the far edge is capped there; if the cap falls under the
// minimum the widget is pushed back from the edge instead.
func ResizeTo(bounds domain.Size, g domain.Geometry, width, height int) domain.Geometry {
	g.Width, g.X = resizeAxis(bounds.Width, g.X, width)
	g.Height, g.Y = resizeAxis(bounds.Height, g.Y, height)
	return g
}

func dragAxis(dashSize, size, pos int) int {
	pos = min(pos, dashSize-size)
	return max(pos, 0)
}

func resizeAxis(dashSize, pos, size int) (effSize, effPos int) {
	lo := min(MinWidgetSize, dashSize)
	size = max(min(size, dashSize-pos), lo)
	if pos+size > dashSize {
		pos = dashSize - size
	}
	return size, max(pos, 0)
}
