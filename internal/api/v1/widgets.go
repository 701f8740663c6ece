package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/widgetboard/internal/domain"
	"github.com/gosuda/widgetboard/internal/layout"
)

type CreateWidgetInput struct {
	DashboardID uuid.UUID `path:"dashboardID" doc:"Dashboard ID"`
	Body        struct {
		Kind   string `json:"kind" enum:"chart,map,stat" doc:"Content kind"`
		Title  string `json:"title" minLength:"1" maxLength:"255" doc:"Widget title"`
		X      int    `json:"x" minimum:"0" doc:"Left offset in pixels"`
		Y      int    `json:"y" minimum:"0" doc:"Top offset in pixels"`
		Width  int    `json:"width" minimum:"1" doc:"Width in pixels"`
		Height int    `json:"height" minimum:"1" doc:"Height in pixels"`
		Z      *int   `json:"z,omitempty" doc:"Stacking index; defaults to above every sibling"`
	}
}

type WidgetOutput struct {
	Body *domain.Widget
}

type UpdateWidgetInput struct {
	DashboardID uuid.UUID `path:"dashboardID" doc:"Dashboard ID"`
	ID          uuid.UUID `path:"id" doc:"Widget ID"`
	Body        domain.WidgetPatch
}

type DeleteWidgetInput struct {
	DashboardID uuid.UUID `path:"dashboardID" doc:"Dashboard ID"`
	ID          uuid.UUID `path:"id" doc:"Widget ID"`
}

func RegisterWidgetRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-widget",
		Method:        http.MethodPost,
		Path:          "/dashboards/{dashboardID}/widgets",
		Summary:       "Place a widget on a dashboard",
		Tags:          []string{"Widgets"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateWidgetInput) (*WidgetOutput, error) {
		companyID, err := editorFrom(ctx)
		if err != nil {
			return nil, err
		}

		kind := domain.WidgetKind(input.Body.Kind)
		if !kind.Valid() {
			return nil, huma.Error422UnprocessableEntity("unknown widget kind " + input.Body.Kind)
		}

		d, err := loadDashboard(ctx, store, companyID, input.DashboardID)
		if err != nil {
			return nil, err
		}

		now := time.Now()
		w := &domain.Widget{
			ID:          uuid.New(),
			DashboardID: d.ID,
			Kind:        kind,
			Title:       input.Body.Title,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		w.Geometry = layout.Clamp(d.Bounds(), domain.Geometry{
			X:      input.Body.X,
			Y:      input.Body.Y,
			Width:  input.Body.Width,
			Height: input.Body.Height,
		})

		if input.Body.Z != nil {
			w.Geometry.Z = *input.Body.Z
		} else {
			siblings, err := store.Widgets().ListByDashboard(ctx, d.ID)
			if err != nil {
				return nil, huma.Error500InternalServerError("failed to list widgets", err)
			}
			w.Geometry.Z = layout.NextZ(derefWidgets(siblings), w.ID)
		}

		if err := store.Widgets().Create(ctx, w); err != nil {
			return nil, huma.Error500InternalServerError("failed to create widget", err)
		}

		return &WidgetOutput{Body: w}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-widget",
		Method:      http.MethodPatch,
		Path:        "/dashboards/{dashboardID}/widgets/{id}",
		Summary:     "Partially update a widget's geometry or expanded flag",
		Tags:        []string{"Widgets"},
	}, func(ctx context.Context, input *UpdateWidgetInput) (*struct{}, error) {
		companyID, err := editorFrom(ctx)
		if err != nil {
			return nil, err
		}

		if input.Body.IsEmpty() {
			return nil, huma.Error400BadRequest("empty patch")
		}

		if _, err := loadDashboard(ctx, store, companyID, input.DashboardID); err != nil {
			return nil, err
		}

		w, err := store.Widgets().GetByID(ctx, input.DashboardID, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("widget not found")
			}
			return nil, huma.Error500InternalServerError("failed to get widget", err)
		}

		if err := input.Body.Apply(w); err != nil {
			if errors.Is(err, domain.ErrInvalidPixels) {
				return nil, huma.Error422UnprocessableEntity(err.Error())
			}
			return nil, huma.Error400BadRequest(err.Error())
		}
		w.UpdatedAt = time.Now()

		if err := store.Widgets().Update(ctx, w); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("widget not found")
			}
			return nil, huma.Error500InternalServerError("failed to update widget", err)
		}

		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-widget",
		Method:      http.MethodDelete,
		Path:        "/dashboards/{dashboardID}/widgets/{id}",
		Summary:     "Remove a widget",
		Tags:        []string{"Widgets"},
	}, func(ctx context.Context, input *DeleteWidgetInput) (*struct{}, error) {
		companyID, err := editorFrom(ctx)
		if err != nil {
			return nil, err
		}

		if _, err := loadDashboard(ctx, store, companyID, input.DashboardID); err != nil {
			return nil, err
		}

		if err := store.Widgets().Delete(ctx, input.DashboardID, input.ID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("widget not found")
			}
			return nil, huma.Error500InternalServerError("failed to delete widget", err)
		}

		return nil, nil
	})
}

func derefWidgets(ws []*domain.Widget) []domain.Widget {
	out := make([]domain.Widget, 0, len(ws))
	for _, w := range ws {
		out = append(out, *w)
	}
	return out
}
