package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// errNoToken means the Authorization header was absent or not a bearer token.
var errNoToken = errors.New("auth: no bearer token")

// contextKey is an unexported type for context keys in this package, so no
// other package can read or shadow the values we store.
type contextKey string

const subjectKey contextKey = "subject"

// RequireBearer enforces authentication on protected routes.
//
// It reads the token from the Authorization header ("Bearer <jwt>") —
// this is a headless API, so there are no cookies involved. A missing or
// invalid token stops the chain with 401; otherwise the token's subject is
// stored in the request context for handlers that want it.
func RequireBearer(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, err := extractSubject(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"valid bearer token required"}`))
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SubjectFromContext retrieves the authenticated subject from the request
// context. Returns ("", false) for anonymous requests (auth disabled).
func SubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(subjectKey).(string)
	return subject, ok && subject != ""
}

// extractSubject reads and validates the Authorization header.
func extractSubject(r *http.Request, tokens *TokenService) (string, error) {
	header := r.Header.Get("Authorization")
	tokenStr, found := strings.CutPrefix(header, "Bearer ")
	if !found || tokenStr == "" {
		return "", errNoToken
	}

	return tokens.Validate(tokenStr)
}
