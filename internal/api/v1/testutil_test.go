package v1_test

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/widgetboard/internal/auth"
	"github.com/gosuda/widgetboard/internal/domain"
	"github.com/gosuda/widgetboard/internal/registration"
	"github.com/gosuda/widgetboard/internal/server/middleware"
)

// ---------------------------------------------------------------------------
// Context helpers, injected through DoCtx
// ---------------------------------------------------------------------------

func roleCtx(companyID uuid.UUID, role string) context.Context {
	return middleware.WithIdentity(context.Background(), companyID, uuid.New(), role)
}

func memberCtx(companyID uuid.UUID) context.Context { return roleCtx(companyID, middleware.RoleMember) }
func adminCtx(companyID uuid.UUID) context.Context  { return roleCtx(companyID, middleware.RoleAdmin) }
func viewerCtx(companyID uuid.UUID) context.Context { return roleCtx(companyID, middleware.RoleViewer) }

// ---------------------------------------------------------------------------
// Mock DataStore
// ---------------------------------------------------------------------------

type mockDataStore struct {
	dashboards domain.DashboardRepository
	widgets    domain.WidgetRepository
}

func (m *mockDataStore) Dashboards() domain.DashboardRepository { return m.dashboards }
func (m *mockDataStore) Widgets() domain.WidgetRepository       { return m.widgets }

// ---------------------------------------------------------------------------
// Mock DashboardRepository
// ---------------------------------------------------------------------------

type mockDashboardRepo struct {
	createFunc               func(ctx context.Context, d *domain.Dashboard) error
	getByIDFunc              func(ctx context.Context, companyID, id uuid.UUID) (*domain.Dashboard, error)
	listFunc                 func(ctx context.Context, companyID uuid.UUID) ([]*domain.Dashboard, error)
	updateRequestOptionsFunc func(ctx context.Context, companyID, id uuid.UUID, opts domain.RequestOptions) error
}

func (m *mockDashboardRepo) Create(ctx context.Context, d *domain.Dashboard) error {
	return m.createFunc(ctx, d)
}

func (m *mockDashboardRepo) GetByID(ctx context.Context, companyID, id uuid.UUID) (*domain.Dashboard, error) {
	return m.getByIDFunc(ctx, companyID, id)
}

func (m *mockDashboardRepo) List(ctx context.Context, companyID uuid.UUID) ([]*domain.Dashboard, error) {
	return m.listFunc(ctx, companyID)
}

func (m *mockDashboardRepo) UpdateRequestOptions(ctx context.Context, companyID, id uuid.UUID, opts domain.RequestOptions) error {
	return m.updateRequestOptionsFunc(ctx, companyID, id, opts)
}

// ---------------------------------------------------------------------------
// Mock WidgetRepository
// ---------------------------------------------------------------------------

type mockWidgetRepo struct {
	createFunc          func(ctx context.Context, w *domain.Widget) error
	getByIDFunc         func(ctx context.Context, dashboardID, id uuid.UUID) (*domain.Widget, error)
	getForCompanyFunc   func(ctx context.Context, companyID, id uuid.UUID) (*domain.Widget, error)
	listByDashboardFunc func(ctx context.Context, dashboardID uuid.UUID) ([]*domain.Widget, error)
	updateFunc          func(ctx context.Context, w *domain.Widget) error
	deleteFunc          func(ctx context.Context, dashboardID, id uuid.UUID) error
}

func (m *mockWidgetRepo) Create(ctx context.Context, w *domain.Widget) error {
	return m.createFunc(ctx, w)
}

func (m *mockWidgetRepo) GetByID(ctx context.Context, dashboardID, id uuid.UUID) (*domain.Widget, error) {
	return m.getByIDFunc(ctx, dashboardID, id)
}

func (m *mockWidgetRepo) GetForCompany(ctx context.Context, companyID, id uuid.UUID) (*domain.Widget, error) {
	return m.getForCompanyFunc(ctx, companyID, id)
}

func (m *mockWidgetRepo) ListByDashboard(ctx context.Context, dashboardID uuid.UUID) ([]*domain.Widget, error) {
	return m.listByDashboardFunc(ctx, dashboardID)
}

func (m *mockWidgetRepo) Update(ctx context.Context, w *domain.Widget) error {
	return m.updateFunc(ctx, w)
}

func (m *mockWidgetRepo) Delete(ctx context.Context, dashboardID, id uuid.UUID) error {
	return m.deleteFunc(ctx, dashboardID, id)
}

// ---------------------------------------------------------------------------
// Mock AuthService
// ---------------------------------------------------------------------------

type mockAuthService struct {
	loginFunc        func(ctx context.Context, companyID uuid.UUID, email, password string) (*auth.TokenPair, error)
	refreshTokenFunc func(ctx context.Context, refreshToken string) (string, error)
	setPasswordFunc  func(ctx context.Context, token, password string) error
}

func (m *mockAuthService) Login(ctx context.Context, companyID uuid.UUID, email, password string) (*auth.TokenPair, error) {
	return m.loginFunc(ctx, companyID, email, password)
}

func (m *mockAuthService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	return m.refreshTokenFunc(ctx, refreshToken)
}

func (m *mockAuthService) SetPassword(ctx context.Context, token, password string) error {
	return m.setPasswordFunc(ctx, token, password)
}

// ---------------------------------------------------------------------------
// Mock Registrar
// ---------------------------------------------------------------------------

type mockRegistrar struct {
	registerFunc func(ctx context.Context, fields registration.Fields) (*registration.Result, error)
}

func (m *mockRegistrar) Register(ctx context.Context, fields registration.Fields) (*registration.Result, error) {
	return m.registerFunc(ctx, fields)
}

// dashboardFixture returns a dashboard repo that knows exactly one dashboard.
func dashboardFixture(d *domain.Dashboard) *mockDashboardRepo {
	return &mockDashboardRepo{
		getByIDFunc: func(_ context.Context, companyID, id uuid.UUID) (*domain.Dashboard, error) {
			if companyID != d.CompanyID || id != d.ID {
				return nil, domain.ErrNotFound
			}
			return d, nil
		},
	}
}
