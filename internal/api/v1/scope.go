package v1

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/widgetboard/internal/server/middleware"
)

func companyFrom(ctx context.Context) (uuid.UUID, error) {
	companyID, ok := middleware.CompanyIDFromContext(ctx)
	if !ok || companyID == uuid.Nil {
		return uuid.Nil, huma.Error403Forbidden("missing company context")
	}
	return companyID, nil
}

// editorFrom is companyFrom for mutations; viewers are read-only.
func editorFrom(ctx context.Context) (uuid.UUID, error) {
	companyID, err := companyFrom(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if role, _ := middleware.RoleFromContext(ctx); !middleware.Allows(role, middleware.RoleMember) {
		return uuid.Nil, huma.Error403Forbidden("editor role required")
	}
	return companyID, nil
}

func adminFrom(ctx context.Context) (uuid.UUID, error) {
	companyID, err := companyFrom(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if role, _ := middleware.RoleFromContext(ctx); !middleware.Allows(role, middleware.RoleAdmin) {
		return uuid.Nil, huma.Error403Forbidden("admin role required")
	}
	return companyID, nil
}
