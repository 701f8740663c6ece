package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// WidgetKind identifies the content feed a widget renders.
type WidgetKind string

const (
	WidgetKindChart WidgetKind = "chart"
	WidgetKindMap   WidgetKind = "map"
	WidgetKindStat  WidgetKind = "stat"
)

// Valid reports whether k is a known kind.
func (k WidgetKind) Valid() bool {
	switch k {
	case WidgetKindChart, WidgetKindMap, WidgetKindStat:
		return true
	default:
		return false
	}
}

// CapturesPointer reports whether the widget body needs the pointer for its own
// interaction (map panning), in which case hovering the body must never make
// the widget draggable.
func (k WidgetKind) CapturesPointer() bool {
	return k == WidgetKindMap
}

// Geometry is a widget's position, size and stacking index on the canvas.
type Geometry struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
	Z      int `json:"z"`
}

type Widget struct {
	ID          uuid.UUID  `json:"id"`
	DashboardID uuid.UUID  `json:"dashboard_id"`
	Kind        WidgetKind `json:"kind"`
	Title       string     `json:"title"`
	Geometry    Geometry   `json:"geometry"`
	Expanded    bool       `json:"expanded"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// WidgetPatch is a partial widget update. Nil fields are left unchanged.
// Sizes travel as the pixel strings measured by the resize handle ("350px").
type WidgetPatch struct {
	PosX     *int    `json:"pos_x,omitempty"`
	PosY     *int    `json:"pos_y,omitempty"`
	SizeX    *string `json:"size_x,omitempty"`
	SizeY    *string `json:"size_y,omitempty"`
	ZIndex   *int    `json:"z_index,omitempty"`
	Expanded *bool   `json:"expanded,omitempty"`
}

// IsEmpty reports whether the patch carries no fields at all.
func (p WidgetPatch) IsEmpty() bool {
	return p.PosX == nil && p.PosY == nil && p.SizeX == nil && p.SizeY == nil &&
		p.ZIndex == nil && p.Expanded == nil
}

// Apply merges the patch into w. Size strings are parsed with ParsePixels.
func (p WidgetPatch) Apply(w *Widget) error {
	if p.PosX != nil {
		w.Geometry.X = *p.PosX
	}
	if p.PosY != nil {
		w.Geometry.Y = *p.PosY
	}
	if p.SizeX != nil {
		px, err := ParsePixels(*p.SizeX)
		if err != nil {
			return err
		}
		w.Geometry.Width = px
	}
	if p.SizeY != nil {
		px, err := ParsePixels(*p.SizeY)
		if err != nil {
			return err
		}
		w.Geometry.Height = px
	}
	if p.ZIndex != nil {
		w.Geometry.Z = *p.ZIndex
	}
	if p.Expanded != nil {
		w.Expanded = *p.Expanded
	}
	return nil
}

type WidgetRepository interface {
	Create(ctx context.Context, w *Widget) error
	GetByID(ctx context.Context, dashboardID, id uuid.UUID) (*Widget, error)
	// GetForCompany loads a widget only if its dashboard belongs to companyID.
	GetForCompany(ctx context.Context, companyID, id uuid.UUID) (*Widget, error)
	ListByDashboard(ctx context.Context, dashboardID uuid.UUID) ([]*Widget, error)
	Update(ctx context.Context, w *Widget) error
	Delete(ctx context.Context, dashboardID, id uuid.UUID) error
}
