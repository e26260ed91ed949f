package guard

import (
	"fmt"
	"net/http"

	"quizforge/internal/auth/session"
	id "quizforge/pkg/domain"
)

// API routes do not redirect; a request without the required principal gets a
// uniform JSON 401. The error body never distinguishes missing, expired, or
// tampered credentials.

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":%q,"error_description":%q}`,
		"unauthorized", "Invalid session"))
}

// RequireAuthenticated passes only requests with a verified identity.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !session.FromContext(r.Context()).Authenticated() {
			writeUnauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole passes only requests whose verified identity carries the given
// role. Role mismatch is a 401, not a 403: API clients learn nothing about
// which role would have been accepted.
func RequireRole(role id.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := session.FromContext(r.Context())
			if !sess.Authenticated() || sess.Identity.Role != role {
				writeUnauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
