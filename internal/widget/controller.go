package widget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/gosuda/widgetboard/internal/domain"
	"github.com/gosuda/widgetboard/internal/layout"
	"github.com/gosuda/widgetboard/internal/live"
)

var (
	ErrAlreadyMounted = errors.New("widget: already mounted")
	ErrNotMounted     = errors.New("widget: not mounted")
)

// ViewState is what the view layer renders.
type ViewState struct {
	Geometry       domain.Geometry
	Expanded       bool
	Draggable      bool
	ShowLoader     bool
	WidgetData     json.RawMessage
	RequestOptions domain.RequestOptions
	ChannelState   live.State
}

// Controller owns one widget's local state. Gestures are applied before any
// network call is made; live callbacks may arrive on the transport goroutine.
type Controller struct {
	cfg Config

	mu         sync.Mutex
	mounted    bool
	layout     layout.State
	draggable  bool
	showLoader bool
	data       json.RawMessage
	options    domain.RequestOptions
	chState    live.State
	channel    *live.Channel

	inflight sync.WaitGroup
}

// New validates cfg and returns an unmounted controller.
func New(cfg Config) (*Controller, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("widget.New: %w", err)
	}
	return &Controller{
		cfg:     cfg,
		options: cfg.RequestOptions.Clone(),
		layout:  layout.Mount(cfg.Bounds, cfg.Widget.Geometry, cfg.Widget.Expanded),
	}, nil
}

// ID returns the widget id.
func (c *Controller) ID() uuid.UUID { return c.cfg.Widget.ID }

// Widget returns the widget with its current local geometry and expansion.
func (c *Controller) Widget() domain.Widget {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.cfg.Widget
	w.Geometry = c.layout.Geometry
	w.Expanded = c.layout.Expanded
	return w
}

// Mount computes the initial layout and opens the widget's live channel. The
// loader stays up until the first payload arrives.
func (c *Controller) Mount() error {
	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		return ErrAlreadyMounted
	}
	c.mounted = true
	c.layout = layout.Mount(c.cfg.Bounds, c.cfg.Widget.Geometry, c.cfg.Widget.Expanded)
	c.showLoader = true
	c.chState = live.StateConnecting
	c.render()
	c.mu.Unlock()

	ch, err := live.Open(c.cfg.Transport, c.cfg.Widget.Kind, c.cfg.Widget.ID, live.ChannelOptions{
		Logger:    c.cfg.Logger,
		OnReceive: c.received,
		OnState:   c.stateChanged,
	})
	if err != nil {
		c.mu.Lock()
		c.mounted = false
		c.mu.Unlock()
		return fmt.Errorf("widget.Controller.Mount: %w", err)
	}

	c.mu.Lock()
	c.channel = ch
	c.mu.Unlock()
	return nil
}

// Unmount closes the live channel before returning. Persistence already in
// flight is left to finish; its result is ignored.
func (c *Controller) Unmount() error {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return nil
	}
	c.mounted = false
	ch := c.channel
	c.channel = nil
	c.mu.Unlock()

	if ch == nil {
		return nil
	}
	if err := ch.Close(); err != nil {
		return fmt.Errorf("widget.Controller.Unmount: %w", err)
	}
	return nil
}

// Wait blocks until every in-flight persistence call has returned.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// View returns a snapshot of the render state.
func (c *Controller) View() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// ObserveRequestOptions reacts to a dashboard options update. While the
// dashboard is online, a structural change triggers exactly one redraw.
// Offline updates are ignored entirely.
func (c *Controller) ObserveRequestOptions(opts domain.RequestOptions) {
	c.mu.Lock()
	if !c.mounted || !opts.Online() || opts.Equal(c.options) {
		c.mu.Unlock()
		return
	}
	c.options = opts.Clone()
	ch := c.channel
	c.render()
	c.mu.Unlock()

	if ch == nil {
		return
	}
	if err := ch.Redraw(); err != nil && !errors.Is(err, live.ErrNotConnected) {
		c.cfg.Logger.Warn().Err(err).Stringer("widget_id", c.cfg.Widget.ID).Msg("redraw failed")
	}
}

// DragStart brings the widget in front of its siblings. The new z is
// persisted with the drag result.
func (c *Controller) DragStart() {
	// Fresh snapshot every time; Siblings may lock other controllers.
	siblings := c.cfg.Siblings()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mounted {
		return
	}
	self := c.cfg.Widget
	self.Geometry = c.layout.Geometry
	others := make([]domain.Widget, 0, len(siblings)+1)
	others = append(others, self)
	for _, w := range siblings {
		if w.ID != self.ID {
			others = append(others, w)
		}
	}
	c.layout = c.layout.Raise(layout.NextZ(others, self.ID))
	c.render()
}

// DragStop records the drop position and persists it with the current z.
// The drop is bounded to the dashboard.
func (c *Controller) DragStop(x, y int) {
	c.mu.Lock()
	if !c.mounted || c.layout.Expanded {
		c.mu.Unlock()
		return
	}
	next := layout.DragTo(c.cfg.Bounds, c.layout.Geometry, x, y)
	c.layout = c.layout.Move(next.X, next.Y)
	g := c.layout.Geometry
	c.render()
	c.mu.Unlock()

	c.persist("position", domain.WidgetPatch{PosX: &g.X, PosY: &g.Y, ZIndex: &g.Z})
}

// ResizeStop records the final size and persists it as pixel strings. The
// size is bounded to the dashboard and the minimum footprint; when that
// pushes the widget back from an edge the new position is persisted too.
func (c *Controller) ResizeStop(width, height int) {
	c.mu.Lock()
	if !c.mounted || c.layout.Expanded {
		c.mu.Unlock()
		return
	}
	prev := c.layout.Geometry
	next := layout.ResizeTo(c.cfg.Bounds, prev, width, height)
	c.layout = c.layout.Move(next.X, next.Y).Resize(next.Width, next.Height)
	g := c.layout.Geometry
	c.render()
	c.mu.Unlock()

	sx, sy := domain.FormatPixels(g.Width), domain.FormatPixels(g.Height)
	patch := domain.WidgetPatch{SizeX: &sx, SizeY: &sy}
	if g.X != prev.X || g.Y != prev.Y {
		patch.PosX, patch.PosY = &g.X, &g.Y
	}
	c.persist("size", patch)
}

// ToggleExpand switches between normal and full-dashboard layout.
func (c *Controller) ToggleExpand() {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return
	}
	c.layout = c.layout.Toggle(c.cfg.Bounds)
	expanded := c.layout.Expanded
	c.render()
	c.mu.Unlock()

	c.persist("expanded", domain.WidgetPatch{Expanded: &expanded})
}

// HeaderHover toggles dragging as the pointer enters or leaves the header.
func (c *Controller) HeaderHover(enter bool) {
	c.setDraggable(enter)
}

// BodyHover toggles dragging over the body. Kinds that use the pointer for
// their own content never become draggable from the body.
func (c *Controller) BodyHover(enter bool) {
	c.setDraggable(enter && !c.cfg.Widget.Kind.CapturesPointer())
}

// Remove asks for confirmation and deletes the widget on the server only on
// an explicit yes. A declined confirmation is not an error.
func (c *Controller) Remove(ctx context.Context) (bool, error) {
	prompt := fmt.Sprintf("Remove widget %q?", c.cfg.Widget.Title)
	ok, err := c.cfg.Confirmer.Confirm(ctx, prompt)
	if err != nil {
		return false, fmt.Errorf("widget.Controller.Remove: confirm: %w", err)
	}
	if !ok {
		return false, nil
	}
	if err := c.cfg.Persister.DeleteWidget(ctx, c.cfg.Widget.DashboardID, c.cfg.Widget.ID); err != nil {
		return false, fmt.Errorf("widget.Controller.Remove: %w", err)
	}
	return true, nil
}

func (c *Controller) setDraggable(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draggable == v {
		return
	}
	c.draggable = v
	c.render()
}

func (c *Controller) received(payload json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mounted {
		return
	}
	c.showLoader = false
	c.data = payload
	c.render()
}

func (c *Controller) stateChanged(s live.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chState = s
	if c.mounted {
		c.render()
	}
}

// persist sends patch in the background. Failures are logged; local state is
// kept as is.
func (c *Controller) persist(what string, patch domain.WidgetPatch) {
	w := c.cfg.Widget
	log := c.cfg.Logger
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.PersistTimeout)
		defer cancel()
		if err := c.cfg.Persister.UpdateWidget(ctx, w.DashboardID, w.ID, patch); err != nil {
			log.Warn().Err(err).
				Str("widget_id", w.ID.String()).
				Str("change", what).
				Msg("widget persistence failed")
		}
	}()
}

func (c *Controller) render() {
	if c.cfg.OnRender != nil {
		c.cfg.OnRender(c.viewLocked())
	}
}

func (c *Controller) viewLocked() ViewState {
	return ViewState{
		Geometry:       c.layout.Geometry,
		Expanded:       c.layout.Expanded,
		Draggable:      c.draggable,
		ShowLoader:     c.showLoader,
		WidgetData:     c.data,
		RequestOptions: c.options.Clone(),
		ChannelState:   c.chState,
	}
}
