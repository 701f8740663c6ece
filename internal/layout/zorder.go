package layout

import (
	"github.com/google/uuid"

	"github.com/gosuda/widgetboard/internal/domain"
)

// NextZ returns the stacking index that brings movedID in front of every
// sibling. It starts from the moved widget's own z and bumps past any sibling
// at or above the running maximum, so the result is strictly greater than all
// sibling z values at the time of the call. Callers pass a fresh snapshot on
// every drag start; the result must not be cached.
func NextZ(widgets []domain.Widget, movedID uuid.UUID) int {
	maxZ := 0
	for _, w := range widgets {
		if w.ID == movedID {
			maxZ = w.Geometry.Z
			break
		}
	}
	for _, w := range widgets {
		if w.ID == movedID {
			continue
		}
		if w.Geometry.Z >= maxZ {
			maxZ = w.Geometry.Z + 1
		}
	}
	return maxZ
}
