// Package api implements the jotter REST API using chi.
package api

import (
	"net/http"

	"github.com/starford/jotter/internal/identity"
)

// IdentityMiddleware resolves the caller from the Authorization header and
// stores it on the request context. Requests without credentials continue
// anonymously; requests with bad credentials are rejected.
func IdentityMiddleware(idp *identity.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := idp.Identify(r.Header.Get("Authorization"))
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r.WithContext(identity.WithUser(r.Context(), user)))
		})
	}
}

// RequireIdentity rejects anonymous callers.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identity.FromContext(r.Context()).Anonymous() {
			writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
