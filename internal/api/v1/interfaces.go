package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/widgetboard/internal/auth"
	"github.com/gosuda/widgetboard/internal/domain"
	"github.com/gosuda/widgetboard/internal/registration"
)

// DataStore abstracts the repository accessor pattern for handler testing.
// *postgres.Store satisfies this interface.
type DataStore interface {
	Dashboards() domain.DashboardRepository
	Widgets() domain.WidgetRepository
}

// AuthService abstracts authentication operations for handler testing.
// *auth.Service satisfies this interface.
type AuthService interface {
	Login(ctx context.Context, companyID uuid.UUID, email, password string) (*auth.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (string, error)
	SetPassword(ctx context.Context, token, password string) error
}

// Registrar enrolls users into a company. *registration.Service satisfies it.
type Registrar interface {
	Register(ctx context.Context, fields registration.Fields) (*registration.Result, error)
}
