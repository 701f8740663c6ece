package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/widgetboard/internal/auth"
	"github.com/gosuda/widgetboard/internal/server/middleware"
)

const testJWTSecret = "test-jwt-secret-for-middleware-tests"

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

// identityHandler records what the middleware chain put in the context.
type identityHandler struct {
	companyID uuid.UUID
	userID    uuid.UUID
	role      string
	called    bool
}

func (h *identityHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.companyID, _ = middleware.CompanyIDFromContext(r.Context())
	h.userID, _ = middleware.UserIDFromContext(r.Context())
	h.role, _ = middleware.RoleFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

func withRole(r *http.Request, role string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middleware.ContextKeyUserRole, role))
}

func withCompany(r *http.Request, companyID uuid.UUID) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middleware.ContextKeyCompanyID, companyID))
}

func TestContextHelpers(t *testing.T) {
	t.Parallel()

	companyID, userID := uuid.New(), uuid.New()
	ctx := middleware.WithIdentity(t.Context(), companyID, userID, "member")

	gotCompany, ok := middleware.CompanyIDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, companyID, gotCompany)

	gotUser, ok := middleware.UserIDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, userID, gotUser)

	role, ok := middleware.RoleFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "member", role)

	t.Run("absent or wrong type", func(t *testing.T) {
		t.Parallel()

		ctx := context.WithValue(t.Context(), middleware.ContextKeyCompanyID, "not-a-uuid")

		_, ok := middleware.CompanyIDFromContext(ctx)
		assert.False(t, ok)
		_, ok = middleware.UserIDFromContext(ctx)
		assert.False(t, ok)
		_, ok = middleware.RoleFromContext(ctx)
		assert.False(t, ok)
	})
}

func TestRequireCompany(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		req        func() *http.Request
		wantStatus int
	}{
		{"valid", func() *http.Request {
			return withCompany(httptest.NewRequest(http.MethodGet, "/", http.NoBody), uuid.New())
		}, http.StatusOK},
		{"absent", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		}, http.StatusForbidden},
		{"nil id", func() *http.Request {
			return withCompany(httptest.NewRequest(http.MethodGet, "/", http.NoBody), uuid.Nil)
		}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			middleware.RequireCompany()(okHandler).ServeHTTP(rec, tt.req())
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	t.Run("no company passes through", func(t *testing.T) {
		t.Parallel()

		handler := middleware.RateLimit(t.Context(), 0.001, 1)(okHandler)
		for range 3 {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	})

	t.Run("burst then 429 per company", func(t *testing.T) {
		t.Parallel()

		handler := middleware.RateLimit(t.Context(), 0.001, 2)(okHandler)
		companyA, companyB := uuid.New(), uuid.New()

		serve := func(id uuid.UUID) *httptest.ResponseRecorder {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, withCompany(httptest.NewRequest(http.MethodGet, "/", http.NoBody), id))
			return rec
		}

		require.Equal(t, http.StatusOK, serve(companyA).Code)
		require.Equal(t, http.StatusOK, serve(companyA).Code)

		rec := serve(companyA)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Contains(t, rec.Body.String(), "rate limit exceeded")

		assert.Equal(t, http.StatusOK, serve(companyB).Code)
	})
}

func TestRateLimitByIP(t *testing.T) {
	t.Parallel()

	handler := middleware.RateLimitByIP(t.Context(), 0.001, 1)(okHandler)

	serve := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", http.NoBody)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, serve("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, serve("10.0.0.1"))
	assert.Equal(t, http.StatusOK, serve("10.0.0.2"))
}

func issue(t *testing.T, secret string, sub auth.Subject, ttl time.Duration) string {
	t.Helper()
	tok, err := auth.IssueAccessToken(secret, sub, ttl)
	require.NoError(t, err)
	return tok
}

func TestAuth_ValidToken_PopulatesContext(t *testing.T) {
	t.Parallel()

	sub := auth.Subject{CompanyID: uuid.New(), UserID: uuid.New(), Role: "admin", JTI: "j"}
	h := &identityHandler{}

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+issue(t, testJWTSecret, sub, time.Minute))
	rec := httptest.NewRecorder()

	middleware.Auth(testJWTSecret)(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, h.called)
	assert.Equal(t, sub.CompanyID, h.companyID)
	assert.Equal(t, sub.UserID, h.userID)
	assert.Equal(t, "admin", h.role)
}

func TestAuth_Rejects(t *testing.T) {
	t.Parallel()

	sub := auth.Subject{CompanyID: uuid.New(), UserID: uuid.New(), Role: "member", JTI: "j"}
	refresh, err := auth.IssueRefreshToken(testJWTSecret, sub, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"no credentials", ""},
		{"garbage", "Bearer not-a-jwt"},
		{"expired", "Bearer " + issue(t, testJWTSecret, sub, -time.Second)},
		{"wrong secret", "Bearer " + issue(t, "other-secret", sub, time.Minute)},
		{"refresh token", "Bearer " + refresh},
		{"basic scheme", "Basic dXNlcjpwYXNz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := &identityHandler{}
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			middleware.Auth(testJWTSecret)(h).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.False(t, h.called)
		})
	}
}

func TestAuth_QueryTokenOnlyForWebsocket(t *testing.T) {
	t.Parallel()

	sub := auth.Subject{CompanyID: uuid.New(), UserID: uuid.New(), Role: "viewer", JTI: "j"}
	tok := issue(t, testJWTSecret, sub, time.Minute)

	t.Run("websocket upgrade", func(t *testing.T) {
		t.Parallel()

		h := &identityHandler{}
		req := httptest.NewRequest(http.MethodGet, "/cable?token="+tok, http.NoBody)
		req.Header.Set("Upgrade", "websocket")
		rec := httptest.NewRecorder()

		middleware.Auth(testJWTSecret)(h).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, sub.CompanyID, h.companyID)
	})

	t.Run("plain request", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboards?token="+tok, http.NoBody)
		rec := httptest.NewRecorder()

		middleware.Auth(testJWTSecret)(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuth_BearerCaseInsensitive(t *testing.T) {
	t.Parallel()

	tok := issue(t, testJWTSecret, auth.Subject{CompanyID: uuid.New(), UserID: uuid.New(), Role: "member"}, time.Minute)

	for _, scheme := range []string{"Bearer ", "bearer ", "BEARER "} {
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.Header.Set("Authorization", scheme+tok)
		rec := httptest.NewRecorder()

		middleware.Auth(testJWTSecret)(okHandler).ServeHTTP(rec, req)

		assert.Equalf(t, http.StatusOK, rec.Code, "scheme %q", scheme)
	}
}
