package domain

import (
	"context"
	"maps"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

// Size is the bounding box of a dashboard canvas in pixels.
type Size struct {
	Width  int `json:"width" validate:"gt=0"`
	Height int `json:"height" validate:"gt=0"`
}

// RequestOptions holds the dashboard-wide query parameters every widget observes
// (online/offline filters, time ranges and the like).
type RequestOptions map[string]any

// Online reports whether the dashboard declares itself online. Widgets only
// react to option changes while it does.
func (o RequestOptions) Online() bool {
	v, ok := o["online"].(bool)
	return ok && v
}

// Equal compares two option sets structurally. A nil set equals an empty one.
func (o RequestOptions) Equal(other RequestOptions) bool {
	if len(o) == 0 && len(other) == 0 {
		return true
	}
	return cmp.Equal(map[string]any(o), map[string]any(other))
}

// Clone returns a shallow copy.
func (o RequestOptions) Clone() RequestOptions {
	if o == nil {
		return nil
	}
	return maps.Clone(o)
}

type Dashboard struct {
	ID             uuid.UUID      `json:"id"`
	CompanyID      uuid.UUID      `json:"company_id"`
	Name           string         `json:"name"`
	Width          int            `json:"width"`
	Height         int            `json:"height"`
	RequestOptions RequestOptions `json:"request_options"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Bounds returns the canvas size widgets are clamped against.
func (d *Dashboard) Bounds() Size {
	return Size{Width: d.Width, Height: d.Height}
}

type DashboardRepository interface {
	Create(ctx context.Context, d *Dashboard) error
	GetByID(ctx context.Context, companyID, id uuid.UUID) (*Dashboard, error)
	List(ctx context.Context, companyID uuid.UUID) ([]*Dashboard, error)
	UpdateRequestOptions(ctx context.Context, companyID, id uuid.UUID, opts RequestOptions) error
}
