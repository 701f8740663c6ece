// Package ws serves the /cable endpoint widgets subscribe to for live content.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gosuda/widgetboard/internal/domain"
	"github.com/gosuda/widgetboard/internal/live"
	"github.com/gosuda/widgetboard/internal/server/middleware"
	redisstore "github.com/gosuda/widgetboard/internal/store/redis"
)

// Broker fans widget content out to every connection subscribed to a
// widget. redisstore.Store satisfies it.
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

// Renderer computes widget content. Render may serve a cached copy; Refresh
// always recomputes.
type Renderer interface {
	Render(ctx context.Context, d *domain.Dashboard, w *domain.Widget) (json.RawMessage, error)
	Refresh(ctx context.Context, d *domain.Dashboard, w *domain.Widget) (json.RawMessage, error)
}

type Options struct {
	PingInterval time.Duration
	// RedrawRate and RedrawBurst throttle redraw requests per subscription.
	// Requests over the limit are deferred, never dropped.
	RedrawRate  float64
	RedrawBurst int
	// OriginPatterns are the browser origins allowed to open a connection.
	OriginPatterns []string
	Logger         zerolog.Logger
}

type Hub struct {
	broker     Broker
	renderer   Renderer
	dashboards domain.DashboardRepository
	widgets    domain.WidgetRepository
	opts       Options
}

func NewHub(broker Broker, renderer Renderer, dashboards domain.DashboardRepository, widgets domain.WidgetRepository, opts Options) *Hub {
	if opts.PingInterval <= 0 {
		opts.PingInterval = 3 * time.Second
	}
	if opts.RedrawRate <= 0 {
		opts.RedrawRate = 2
	}
	if opts.RedrawBurst <= 0 {
		opts.RedrawBurst = 10
	}
	return &Hub{
		broker:     broker,
		renderer:   renderer,
		dashboards: dashboards,
		widgets:    widgets,
		opts:       opts,
	}
}

// ServeCable upgrades the request and serves cable commands until the client
// goes away. The company scope comes from the auth middleware.
func (h *Hub) ServeCable(w http.ResponseWriter, r *http.Request) {
	companyID, ok := middleware.CompanyIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing company", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.opts.OriginPatterns})
	if err != nil {
		h.opts.Logger.Error().Err(err).Msg("cable: websocket accept")
		return
	}
	defer conn.CloseNow()

	metricConnections.Inc()
	defer metricConnections.Dec()

	s := &session{
		hub:       h,
		conn:      conn,
		companyID: companyID,
		out:       make(chan live.Frame, 64),
		subs:      make(map[string]*subscription),
		log:       h.opts.Logger.With().Str("company_id", companyID.String()).Logger(),
	}

	err = s.run(r.Context())
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		_ = conn.Close(websocket.StatusNormalClosure, "")
	case websocket.CloseStatus(err) != -1:
		s.log.Debug().Err(err).Msg("cable: client closed")
	default:
		s.log.Debug().Err(err).Msg("cable: connection ended")
		_ = conn.Close(websocket.StatusInternalError, "")
	}
}

// load resolves a widget and its dashboard inside the company.
func (h *Hub) load(ctx context.Context, companyID, widgetID uuid.UUID) (*domain.Dashboard, *domain.Widget, error) {
	wgt, err := h.widgets.GetForCompany(ctx, companyID, widgetID)
	if err != nil {
		return nil, nil, fmt.Errorf("ws.Hub.load: %w", err)
	}
	d, err := h.dashboards.GetByID(ctx, companyID, wgt.DashboardID)
	if err != nil {
		return nil, nil, fmt.Errorf("ws.Hub.load: %w", err)
	}
	return d, wgt, nil
}

// Publish pushes content to every connection subscribed to widgetID.
func (h *Hub) Publish(ctx context.Context, widgetID uuid.UUID, payload []byte) error {
	if err := h.broker.Publish(ctx, redisstore.WidgetChannel(widgetID), payload); err != nil {
		return fmt.Errorf("ws.Hub.Publish: %w", err)
	}
	return nil
}
