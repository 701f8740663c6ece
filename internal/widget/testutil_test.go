package widget_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/widgetboard/internal/domain"
	"github.com/gosuda/widgetboard/internal/live/livetest"
	"github.com/gosuda/widgetboard/internal/widget"
)

var bounds = domain.Size{Width: 1200, Height: 800}

type updateCall struct {
	dashboardID uuid.UUID
	widgetID    uuid.UUID
	patch       domain.WidgetPatch
}

type mockPersister struct {
	updateFn func(ctx context.Context, dashboardID, widgetID uuid.UUID, patch domain.WidgetPatch) error
	deleteFn func(ctx context.Context, dashboardID, widgetID uuid.UUID) error

	mu      sync.Mutex
	updates []updateCall
	deletes []uuid.UUID
}

func (m *mockPersister) UpdateWidget(ctx context.Context, dashboardID, widgetID uuid.UUID, patch domain.WidgetPatch) error {
	m.mu.Lock()
	m.updates = append(m.updates, updateCall{dashboardID: dashboardID, widgetID: widgetID, patch: patch})
	m.mu.Unlock()
	if m.updateFn != nil {
		return m.updateFn(ctx, dashboardID, widgetID, patch)
	}
	return nil
}

func (m *mockPersister) DeleteWidget(ctx context.Context, dashboardID, widgetID uuid.UUID) error {
	m.mu.Lock()
	m.deletes = append(m.deletes, widgetID)
	m.mu.Unlock()
	if m.deleteFn != nil {
		return m.deleteFn(ctx, dashboardID, widgetID)
	}
	return nil
}

func (m *mockPersister) Updates() []updateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]updateCall(nil), m.updates...)
}

func (m *mockPersister) Deletes() []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uuid.UUID(nil), m.deletes...)
}

func answer(yes bool) widget.ConfirmFunc {
	return func(context.Context, string) (bool, error) { return yes, nil }
}

type fixture struct {
	transport *livetest.Transport
	persister *mockPersister
	renders   []widget.ViewState
	ctrl      *widget.Controller
	widget    domain.Widget
}

func newWidget(kind domain.WidgetKind, g domain.Geometry) domain.Widget {
	return domain.Widget{
		ID:          uuid.New(),
		DashboardID: uuid.New(),
		Kind:        kind,
		Title:       "Sales",
		Geometry:    g,
	}
}

// newFixture builds and mounts a controller. mutate may adjust the config.
func newFixture(t *testing.T, w domain.Widget, mutate func(*widget.Config)) *fixture {
	t.Helper()

	f := &fixture{
		transport: &livetest.Transport{},
		persister: &mockPersister{},
		widget:    w,
	}
	cfg := widget.Config{
		Widget:         w,
		Bounds:         bounds,
		Transport:      f.transport,
		Persister:      f.persister,
		Confirmer:      answer(true),
		Siblings:       func() []domain.Widget { return nil },
		RequestOptions: domain.RequestOptions{"online": true, "range": "7d"},
		OnRender:       func(v widget.ViewState) { f.renders = append(f.renders, v) },
	}
	if mutate != nil {
		mutate(&cfg)
	}

	ctrl, err := widget.New(cfg)
	require.NoError(t, err)
	require.NoError(t, ctrl.Mount())
	t.Cleanup(func() { _ = ctrl.Unmount() })
	f.ctrl = ctrl
	return f
}

func (f *fixture) redraws() int {
	return len(f.transport.Last().Performed())
}
