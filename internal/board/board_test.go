package board_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/widgetboard/internal/board"
	"github.com/gosuda/widgetboard/internal/domain"
	"github.com/gosuda/widgetboard/internal/live/livetest"
	"github.com/gosuda/widgetboard/internal/widget"
)

type mockPersister struct {
	mu      sync.Mutex
	updates map[uuid.UUID][]domain.WidgetPatch
	deletes []uuid.UUID
}

func (m *mockPersister) UpdateWidget(_ context.Context, _, widgetID uuid.UUID, patch domain.WidgetPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updates == nil {
		m.updates = map[uuid.UUID][]domain.WidgetPatch{}
	}
	m.updates[widgetID] = append(m.updates[widgetID], patch)
	return nil
}

func (m *mockPersister) DeleteWidget(_ context.Context, _, widgetID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, widgetID)
	return nil
}

func fixture(t *testing.T, confirm bool) (*board.Board, *livetest.Transport, *mockPersister, []domain.Widget) {
	t.Helper()

	d := domain.Dashboard{
		ID:             uuid.New(),
		Name:           "Ops",
		Width:          1200,
		Height:         800,
		RequestOptions: domain.RequestOptions{"online": true, "range": "7d"},
	}
	widgets := []domain.Widget{
		{ID: uuid.New(), DashboardID: d.ID, Kind: domain.WidgetKindChart, Title: "Sales", Geometry: domain.Geometry{Width: 350, Height: 350, Z: 1}},
		{ID: uuid.New(), DashboardID: d.ID, Kind: domain.WidgetKindMap, Title: "Map", Geometry: domain.Geometry{X: 400, Width: 350, Height: 350, Z: 5}},
		{ID: uuid.New(), DashboardID: d.ID, Kind: domain.WidgetKindStat, Title: "Users", Geometry: domain.Geometry{X: 800, Width: 350, Height: 350, Z: 3}},
	}

	tr := &livetest.Transport{}
	p := &mockPersister{}
	b, err := board.New(d, widgets, board.Deps{
		Transport: tr,
		Persister: p,
		Confirmer: widget.ConfirmFunc(func(context.Context, string) (bool, error) { return confirm, nil }),
	})
	require.NoError(t, err)
	require.NoError(t, b.MountAll())
	t.Cleanup(func() { _ = b.UnmountAll() })
	return b, tr, p, widgets
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("missing deps", func(t *testing.T) {
		t.Parallel()

		_, err := board.New(domain.Dashboard{Width: 10, Height: 10}, nil, board.Deps{})
		require.Error(t, err)
	})

	t.Run("duplicate widget", func(t *testing.T) {
		t.Parallel()

		w := domain.Widget{ID: uuid.New(), Kind: domain.WidgetKindChart}
		_, err := board.New(domain.Dashboard{Width: 10, Height: 10}, []domain.Widget{w, w}, board.Deps{
			Transport: &livetest.Transport{},
			Persister: &mockPersister{},
			Confirmer: widget.ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil }),
		})
		require.Error(t, err)
	})
}

func TestMountAll(t *testing.T) {
	t.Parallel()

	b, tr, _, widgets := fixture(t, true)

	assert.Equal(t, len(widgets), tr.Active())
	channels := map[string]bool{}
	for _, s := range tr.Subscriptions() {
		channels[s.Channel] = true
	}
	assert.Equal(t, map[string]bool{
		"ChartWidgetChannel": true,
		"MapWidgetChannel":   true,
		"StatWidgetChannel":  true,
	}, channels)

	require.NoError(t, b.UnmountAll())
	assert.Zero(t, tr.Active())
}

func TestSetRequestOptions(t *testing.T) {
	t.Parallel()

	b, tr, _, _ := fixture(t, true)
	for _, s := range tr.Subscriptions() {
		s.Connect()
	}

	b.SetRequestOptions(domain.RequestOptions{"online": true, "range": "30d"})
	b.SetRequestOptions(domain.RequestOptions{"online": true, "range": "30d"})
	b.SetRequestOptions(domain.RequestOptions{"online": false, "range": "90d"})

	for _, s := range tr.Subscriptions() {
		assert.Len(t, s.Performed(), 1, s.Channel)
	}
	assert.Equal(t, domain.RequestOptions{"online": false, "range": "90d"}, b.RequestOptions())
	assert.Equal(t, domain.RequestOptions{"online": false, "range": "90d"}, b.Dashboard().RequestOptions)
}

func TestSiblings_FreshSnapshot(t *testing.T) {
	t.Parallel()

	b, _, p, widgets := fixture(t, true)

	first, err := b.Controller(widgets[0].ID)
	require.NoError(t, err)
	third, err := b.Controller(widgets[2].ID)
	require.NoError(t, err)

	first.DragStart()
	assert.Equal(t, 6, first.View().Geometry.Z)

	third.DragStart()
	assert.Equal(t, 7, third.View().Geometry.Z)

	third.DragStop(10, 400)
	b.Wait()

	var got domain.Geometry
	for _, w := range b.Siblings() {
		if w.ID == widgets[2].ID {
			got = w.Geometry
		}
	}
	assert.Equal(t, domain.Geometry{X: 10, Y: 400, Width: 350, Height: 350, Z: 7}, got)

	p.mu.Lock()
	defer p.mu.Unlock()
	require.Len(t, p.updates[widgets[2].ID], 1)
	assert.Equal(t, 7, *p.updates[widgets[2].ID][0].ZIndex)
	assert.Empty(t, p.updates[widgets[0].ID])
}

func TestRemove(t *testing.T) {
	t.Parallel()

	t.Run("confirmed", func(t *testing.T) {
		t.Parallel()

		b, tr, p, widgets := fixture(t, true)

		removed, err := b.Remove(context.Background(), widgets[1].ID)
		require.NoError(t, err)
		assert.True(t, removed)
		assert.Equal(t, []uuid.UUID{widgets[1].ID}, p.deletes)
		assert.Len(t, b.Widgets(), 2)
		assert.Equal(t, 2, tr.Active())

		_, err = b.Controller(widgets[1].ID)
		require.ErrorIs(t, err, board.ErrUnknownWidget)
	})

	t.Run("declined", func(t *testing.T) {
		t.Parallel()

		b, tr, p, widgets := fixture(t, false)

		removed, err := b.Remove(context.Background(), widgets[1].ID)
		require.NoError(t, err)
		assert.False(t, removed)
		assert.Empty(t, p.deletes)
		assert.Len(t, b.Widgets(), 3)
		assert.Equal(t, 3, tr.Active())
	})

	t.Run("unknown", func(t *testing.T) {
		t.Parallel()

		b, _, _, _ := fixture(t, true)
		_, err := b.Remove(context.Background(), uuid.New())
		require.ErrorIs(t, err, board.ErrUnknownWidget)
	})
}
