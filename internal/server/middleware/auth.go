package middleware

import (
	"net/http"
	"strings"

	"github.com/gosuda/widgetboard/internal/auth"
)

// Auth accepts a Bearer access token. Websocket upgrades may pass it as the
// token query parameter instead, since browsers cannot set headers on them.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := extractBearer(r)
			if tok == "" && isWebsocketUpgrade(r) {
				tok = r.URL.Query().Get("token")
			}
			if tok == "" {
				unauthorized(w)
				return
			}

			claims, err := auth.ValidateToken(jwtSecret, tok)
			if err != nil || claims.TokenType != auth.TokenTypeAccess {
				unauthorized(w)
				return
			}

			sub, err := claims.Subject()
			if err != nil {
				unauthorized(w)
				return
			}

			ctx := WithIdentity(r.Context(), sub.CompanyID, sub.UserID, sub.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	http.Error(w, `{"title":"Unauthorized","status":401,"detail":"missing or invalid credentials"}`, http.StatusUnauthorized)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return h[7:]
	}
	return ""
}

func isWebsocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}
