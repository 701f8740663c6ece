package middleware

import "net/http"

// Roles seeded in the roles table. A user holds one of them per company.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleViewer = "viewer"
)

// roleRank orders the company roles; each grants everything below it.
var roleRank = map[string]int{
	RoleViewer: 1,
	RoleMember: 2,
	RoleAdmin:  3,
}

// Allows reports whether a company role grants at least the privileges of
// least. Unknown roles grant nothing.
func Allows(role, least string) bool {
	have, ok := roleRank[role]
	return ok && have >= roleRank[least]
}

// RequireRole admits requests whose role in the token's company is least or
// higher. Chain it after Auth and RequireCompany: a request without a role
// gets 401, a role below least (or one this server does not know) gets 403.
func RequireRole(least string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := RoleFromContext(r.Context())
			if !ok || role == "" {
				http.Error(w, `{"title":"Unauthorized","status":401,"detail":"no role in this company"}`, http.StatusUnauthorized)
				return
			}
			if !Allows(role, least) {
				http.Error(w, `{"title":"Forbidden","status":403,"detail":"`+least+` role required"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin guards company administration such as registering users.
func RequireAdmin() func(http.Handler) http.Handler {
	return RequireRole(RoleAdmin)
}
