// Package board is the client-side dashboard container. It owns the canvas
// bounds, the widget controllers and the dashboard request options.
package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gosuda/widgetboard/internal/domain"
	"github.com/gosuda/widgetboard/internal/live"
	"github.com/gosuda/widgetboard/internal/widget"
)

var depsValidator = validator.New(validator.WithRequiredStructEnabled())

// ErrUnknownWidget is returned for ids not on the board.
var ErrUnknownWidget = errors.New("board: unknown widget")

// Deps are shared by every widget on the board.
type Deps struct {
	Transport      live.Transport   `validate:"required"`
	Persister      widget.Persister `validate:"required"`
	Confirmer      widget.Confirmer `validate:"required"`
	Logger         zerolog.Logger   `validate:"-"`
	OnRender       func(id uuid.UUID, v widget.ViewState)
	PersistTimeout time.Duration `validate:"gte=0"`
}

type Board struct {
	dashboard domain.Dashboard
	deps      Deps

	mu      sync.RWMutex
	order   []uuid.UUID
	ctrls   map[uuid.UUID]*widget.Controller
	options domain.RequestOptions
}

// New builds a controller per widget. Nothing is mounted yet.
func New(d domain.Dashboard, widgets []domain.Widget, deps Deps) (*Board, error) {
	if err := depsValidator.Struct(&deps); err != nil {
		return nil, fmt.Errorf("board.New: %w", err)
	}

	b := &Board{
		dashboard: d,
		deps:      deps,
		ctrls:     make(map[uuid.UUID]*widget.Controller, len(widgets)),
		options:   d.RequestOptions.Clone(),
	}
	for _, w := range widgets {
		if _, dup := b.ctrls[w.ID]; dup {
			return nil, fmt.Errorf("board.New: duplicate widget %s", w.ID)
		}
		ctrl, err := widget.New(b.widgetConfig(w))
		if err != nil {
			return nil, fmt.Errorf("board.New: widget %s: %w", w.ID, err)
		}
		b.ctrls[w.ID] = ctrl
		b.order = append(b.order, w.ID)
	}
	return b, nil
}

func (b *Board) widgetConfig(w domain.Widget) widget.Config {
	var onRender func(widget.ViewState)
	if b.deps.OnRender != nil {
		id := w.ID
		onRender = func(v widget.ViewState) { b.deps.OnRender(id, v) }
	}
	return widget.Config{
		Widget:         w,
		Bounds:         b.dashboard.Bounds(),
		Transport:      b.deps.Transport,
		Persister:      b.deps.Persister,
		Confirmer:      b.deps.Confirmer,
		Siblings:       b.Siblings,
		RequestOptions: b.dashboard.RequestOptions,
		Logger:         b.deps.Logger.With().Stringer("widget_id", w.ID).Logger(),
		OnRender:       onRender,
		PersistTimeout: b.deps.PersistTimeout,
	}
}

// MountAll mounts every widget. On failure the ones already mounted are
// unmounted again.
func (b *Board) MountAll() error {
	ctrls := b.controllers()

	var g errgroup.Group
	for _, c := range ctrls {
		g.Go(c.Mount)
	}
	if err := g.Wait(); err != nil {
		_ = b.UnmountAll()
		return fmt.Errorf("board.MountAll: %w", err)
	}
	return nil
}

// UnmountAll closes every live channel.
func (b *Board) UnmountAll() error {
	var errs []error
	for _, c := range b.controllers() {
		if err := c.Unmount(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Wait blocks until no widget has persistence in flight.
func (b *Board) Wait() {
	for _, c := range b.controllers() {
		c.Wait()
	}
}

// Siblings returns a fresh snapshot of every widget's current geometry.
func (b *Board) Siblings() []domain.Widget {
	ctrls := b.controllers()
	out := make([]domain.Widget, 0, len(ctrls))
	for _, c := range ctrls {
		out = append(out, c.Widget())
	}
	return out
}

// Widgets is an alias of Siblings for callers outside a drag.
func (b *Board) Widgets() []domain.Widget { return b.Siblings() }

// Dashboard returns the dashboard with the current request options.
func (b *Board) Dashboard() domain.Dashboard {
	b.mu.RLock()
	defer b.mu.RUnlock()
	d := b.dashboard
	d.RequestOptions = b.options.Clone()
	return d
}

// RequestOptions returns a copy of the current options.
func (b *Board) RequestOptions() domain.RequestOptions {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.options.Clone()
}

// SetRequestOptions replaces the dashboard options and lets every widget
// react to the change.
func (b *Board) SetRequestOptions(opts domain.RequestOptions) {
	b.mu.Lock()
	b.options = opts.Clone()
	b.mu.Unlock()

	for _, c := range b.controllers() {
		c.ObserveRequestOptions(opts)
	}
}

// Controller looks up a widget's controller.
func (b *Board) Controller(id uuid.UUID) (*widget.Controller, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.ctrls[id]
	if !ok {
		return nil, fmt.Errorf("board.Controller %s: %w", id, ErrUnknownWidget)
	}
	return c, nil
}

// Remove deletes a widget after confirmation and drops it from the board.
func (b *Board) Remove(ctx context.Context, id uuid.UUID) (bool, error) {
	c, err := b.Controller(id)
	if err != nil {
		return false, err
	}
	removed, err := c.Remove(ctx)
	if err != nil || !removed {
		return false, err
	}

	if err := c.Unmount(); err != nil {
		b.deps.Logger.Warn().Err(err).Stringer("widget_id", id).Msg("unmount after remove failed")
	}

	b.mu.Lock()
	delete(b.ctrls, id)
	for i, wid := range b.order {
		if wid == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	b.mu.Unlock()
	return true, nil
}

func (b *Board) controllers() []*widget.Controller {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*widget.Controller, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.ctrls[id])
	}
	return out
}
