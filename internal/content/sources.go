package content

import (
	"context"
	"time"

	"github.com/gosuda/widgetboard/internal/domain"
)

// Snapshot is the envelope every built-in source returns.
type Snapshot struct {
	Kind        domain.WidgetKind     `json:"kind"`
	Title       string                `json:"title"`
	Options     domain.RequestOptions `json:"options,omitempty"`
	GeneratedAt time.Time             `json:"generated_at"`
}

// RegisterDefaults installs a snapshot source for every known kind. Real
// feeds replace them through Register.
func RegisterDefaults(r *Renderer) {
	for _, kind := range []domain.WidgetKind{domain.WidgetKindChart, domain.WidgetKindMap, domain.WidgetKindStat} {
		r.Register(kind, SourceFunc(snapshot))
	}
}

func snapshot(_ context.Context, req Request) (any, error) {
	return Snapshot{
		Kind:        req.Widget.Kind,
		Title:       req.Widget.Title,
		Options:     req.Options,
		GeneratedAt: time.Now().UTC(),
	}, nil
}
