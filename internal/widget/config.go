// Package widget drives one mounted dashboard widget: its local layout, its
// live content channel and the fire-and-forget persistence of gestures.
package widget

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gosuda/widgetboard/internal/domain"
	"github.com/gosuda/widgetboard/internal/live"
)

const defaultPersistTimeout = 10 * time.Second

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// ErrInvalidConfig wraps every Config validation failure.
var ErrInvalidConfig = errors.New("widget: invalid config")

// Persister writes widget changes to the server.
type Persister interface {
	UpdateWidget(ctx context.Context, dashboardID, widgetID uuid.UUID, patch domain.WidgetPatch) error
	DeleteWidget(ctx context.Context, dashboardID, widgetID uuid.UUID) error
}

// Confirmer asks the user to confirm a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// Config is everything a Controller needs. It is validated once by New and
// never changed afterwards.
type Config struct {
	Widget    domain.Widget  `validate:"required"`
	Bounds    domain.Size    `validate:"required"`
	Transport live.Transport `validate:"required"`
	Persister Persister      `validate:"required"`
	Confirmer Confirmer      `validate:"required"`
	// Siblings returns the current geometry of every widget on the
	// dashboard. It is called on every drag start.
	Siblings func() []domain.Widget `validate:"required"`

	// RequestOptions is the dashboard's options at mount time; the first
	// redraw happens only when they change.
	RequestOptions domain.RequestOptions `validate:"-"`
	Logger         zerolog.Logger        `validate:"-"`
	// OnRender receives a snapshot after every state change. It runs with
	// the controller locked and must not call back into it.
	OnRender       func(ViewState)
	PersistTimeout time.Duration `validate:"gte=0"`
}

func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if !c.Widget.Kind.Valid() {
		return fmt.Errorf("%w: unknown widget kind %q", ErrInvalidConfig, c.Widget.Kind)
	}
	if c.PersistTimeout == 0 {
		c.PersistTimeout = defaultPersistTimeout
	}
	return nil
}
