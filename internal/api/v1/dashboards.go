package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/widgetboard/internal/domain"
)

type CreateDashboardInput struct {
	Body struct {
		Name           string                `json:"name" minLength:"1" maxLength:"255" doc:"Dashboard name"`
		Width          int                   `json:"width" minimum:"1" doc:"Canvas width in pixels"`
		Height         int                   `json:"height" minimum:"1" doc:"Canvas height in pixels"`
		RequestOptions domain.RequestOptions `json:"request_options,omitempty" doc:"Initial request options"`
	}
}

type DashboardOutput struct {
	Body *domain.Dashboard
}

type ListDashboardsInput struct{}

type ListDashboardsOutput struct {
	Body []*domain.Dashboard
}

type GetDashboardInput struct {
	ID uuid.UUID `path:"id" doc:"Dashboard ID"`
}

// DashboardView is a dashboard with its widgets, as the client loads it.
type DashboardView struct {
	Dashboard *domain.Dashboard `json:"dashboard"`
	Widgets   []*domain.Widget  `json:"widgets"`
}

type GetDashboardOutput struct {
	Body DashboardView
}

type SetRequestOptionsInput struct {
	ID   uuid.UUID `path:"id" doc:"Dashboard ID"`
	Body struct {
		RequestOptions domain.RequestOptions `json:"request_options" doc:"Options every widget on the dashboard observes"`
	}
}

func RegisterDashboardRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-dashboard",
		Method:        http.MethodPost,
		Path:          "/dashboards",
		Summary:       "Create a dashboard",
		Tags:          []string{"Dashboards"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateDashboardInput) (*DashboardOutput, error) {
		companyID, err := editorFrom(ctx)
		if err != nil {
			return nil, err
		}

		now := time.Now()
		d := &domain.Dashboard{
			ID:             uuid.New(),
			CompanyID:      companyID,
			Name:           input.Body.Name,
			Width:          input.Body.Width,
			Height:         input.Body.Height,
			RequestOptions: input.Body.RequestOptions,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if d.RequestOptions == nil {
			d.RequestOptions = domain.RequestOptions{}
		}

		if err := store.Dashboards().Create(ctx, d); err != nil {
			return nil, huma.Error500InternalServerError("failed to create dashboard", err)
		}

		return &DashboardOutput{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-dashboards",
		Method:      http.MethodGet,
		Path:        "/dashboards",
		Summary:     "List dashboards in the current company",
		Tags:        []string{"Dashboards"},
	}, func(ctx context.Context, _ *ListDashboardsInput) (*ListDashboardsOutput, error) {
		companyID, err := companyFrom(ctx)
		if err != nil {
			return nil, err
		}

		dashboards, err := store.Dashboards().List(ctx, companyID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list dashboards", err)
		}
		if dashboards == nil {
			dashboards = []*domain.Dashboard{}
		}

		return &ListDashboardsOutput{Body: dashboards}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-dashboard",
		Method:      http.MethodGet,
		Path:        "/dashboards/{id}",
		Summary:     "Get a dashboard with its widgets",
		Tags:        []string{"Dashboards"},
	}, func(ctx context.Context, input *GetDashboardInput) (*GetDashboardOutput, error) {
		companyID, err := companyFrom(ctx)
		if err != nil {
			return nil, err
		}

		d, err := loadDashboard(ctx, store, companyID, input.ID)
		if err != nil {
			return nil, err
		}

		widgets, err := store.Widgets().ListByDashboard(ctx, d.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list widgets", err)
		}
		if widgets == nil {
			widgets = []*domain.Widget{}
		}

		return &GetDashboardOutput{Body: DashboardView{Dashboard: d, Widgets: widgets}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-request-options",
		Method:      http.MethodPut,
		Path:        "/dashboards/{id}/request-options",
		Summary:     "Replace the dashboard's request options",
		Tags:        []string{"Dashboards"},
	}, func(ctx context.Context, input *SetRequestOptionsInput) (*struct{}, error) {
		companyID, err := editorFrom(ctx)
		if err != nil {
			return nil, err
		}

		opts := input.Body.RequestOptions
		if opts == nil {
			opts = domain.RequestOptions{}
		}

		if err := store.Dashboards().UpdateRequestOptions(ctx, companyID, input.ID, opts); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("dashboard not found")
			}
			return nil, huma.Error500InternalServerError("failed to update request options", err)
		}

		return nil, nil
	})
}

func loadDashboard(ctx context.Context, store DataStore, companyID, id uuid.UUID) (*domain.Dashboard, error) {
	d, err := store.Dashboards().GetByID(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, huma.Error404NotFound("dashboard not found")
		}
		return nil, huma.Error500InternalServerError("failed to get dashboard", err)
	}
	return d, nil
}
