package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	ContextKeyCompanyID contextKey = "company_id"
	ContextKeyUserID    contextKey = "user_id"
	ContextKeyUserRole  contextKey = "role"
)

func CompanyIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ContextKeyCompanyID).(uuid.UUID)
	return v, ok
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ContextKeyUserID).(uuid.UUID)
	return v, ok
}

func RoleFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeyUserRole).(string)
	return v, ok
}

// WithIdentity returns ctx carrying the authenticated company, user and role.
func WithIdentity(ctx context.Context, companyID, userID uuid.UUID, role string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyCompanyID, companyID)
	ctx = context.WithValue(ctx, ContextKeyUserID, userID)
	return context.WithValue(ctx, ContextKeyUserRole, role)
}
