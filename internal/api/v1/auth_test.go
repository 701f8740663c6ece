package v1_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/gosuda/widgetboard/internal/api/v1"
	"github.com/gosuda/widgetboard/internal/auth"
	"github.com/gosuda/widgetboard/internal/domain"
)

// ---------------------------------------------------------------------------
// POST /auth/login
// ---------------------------------------------------------------------------

func TestLogin(t *testing.T) {
	t.Parallel()

	companyID := uuid.New()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		authSvc := &mockAuthService{
			loginFunc: func(_ context.Context, cid uuid.UUID, email, password string) (*auth.TokenPair, error) {
				assert.Equal(t, companyID, cid)
				assert.Equal(t, "alice@acme.io", email)
				assert.Equal(t, "secretpw1", password)
				return &auth.TokenPair{AccessToken: "access-tok", RefreshToken: "refresh-tok"}, nil
			},
		}
		v1.RegisterAuthRoutes(api, authSvc)

		resp := api.Post("/auth/login", map[string]any{
			"company_id": companyID.String(),
			"email":      "alice@acme.io",
			"password":   "secretpw1",
		})

		require.Equal(t, http.StatusOK, resp.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, "access-tok", body["access_token"])
		assert.Equal(t, "refresh-tok", body["refresh_token"])
	})

	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "invalid_credentials", err: auth.ErrInvalidCredentials, wantCode: http.StatusUnauthorized},
		{name: "not_a_member", err: fmt.Errorf("login: %w", domain.ErrForbidden), wantCode: http.StatusUnauthorized},
		{name: "store_failure", err: errors.New("db down"), wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, api := humatest.New(t)
			authSvc := &mockAuthService{
				loginFunc: func(context.Context, uuid.UUID, string, string) (*auth.TokenPair, error) {
					return nil, tt.err
				},
			}
			v1.RegisterAuthRoutes(api, authSvc)

			resp := api.Post("/auth/login", map[string]any{
				"company_id": companyID.String(),
				"email":      "alice@acme.io",
				"password":   "wrong",
			})

			assert.Equal(t, tt.wantCode, resp.Code)
		})
	}
}

// ---------------------------------------------------------------------------
// POST /auth/refresh
// ---------------------------------------------------------------------------

func TestRefreshToken(t *testing.T) {
	t.Parallel()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		authSvc := &mockAuthService{
			refreshTokenFunc: func(_ context.Context, token string) (string, error) {
				assert.Equal(t, "refresh-tok", token)
				return "new-access", nil
			},
		}
		v1.RegisterAuthRoutes(api, authSvc)

		resp := api.Post("/auth/refresh", map[string]any{"refresh_token": "refresh-tok"})

		require.Equal(t, http.StatusOK, resp.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, "new-access", body["access_token"])
	})

	t.Run("rejected", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		authSvc := &mockAuthService{
			refreshTokenFunc: func(context.Context, string) (string, error) {
				return "", auth.ErrInvalidToken
			},
		}
		v1.RegisterAuthRoutes(api, authSvc)

		resp := api.Post("/auth/refresh", map[string]any{"refresh_token": "stale"})
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// POST /auth/password
// ---------------------------------------------------------------------------

func TestSetPassword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		password string
		err      error
		wantCode int
	}{
		{name: "success", password: "longenough1", wantCode: http.StatusNoContent},
		{name: "used_link", password: "longenough1", err: auth.ErrInvalidToken, wantCode: http.StatusUnauthorized},
		{name: "weak_password", password: "longenough1", err: auth.ErrWeakPassword, wantCode: http.StatusUnprocessableEntity},
		{name: "store_failure", password: "longenough1", err: errors.New("db down"), wantCode: http.StatusInternalServerError},
		{name: "too_short_for_schema", password: "short", wantCode: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, api := humatest.New(t)
			authSvc := &mockAuthService{
				setPasswordFunc: func(_ context.Context, token, password string) error {
					assert.Equal(t, "pw-token", token)
					assert.Equal(t, tt.password, password)
					return tt.err
				},
			}
			v1.RegisterAuthRoutes(api, authSvc)

			resp := api.Post("/auth/password", map[string]any{
				"token":    "pw-token",
				"password": tt.password,
			})

			assert.Equal(t, tt.wantCode, resp.Code)
		})
	}
}
