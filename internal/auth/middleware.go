package auth

import (
	"context"
	"fmt"
	"net/http"

	"dinner-ticketing/internal/logger"
	"dinner-ticketing/internal/utils"
)

type contextKey string

const userIDKey contextKey = "user_id"

// Middleware admits requests that carry a bearer token the verifier accepts.
// Every request is checked on its own; there is no session.
func Middleware(verifier Verifier, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				log.LogSecurity("AUTH_MISSING", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
				utils.WriteError(w, http.StatusUnauthorized, err.Error())
				return
			}

			subject, err := verifier.Verify(r.Context(), rawToken)
			if err != nil {
				log.LogSecurity("AUTH_REJECTED", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
				utils.WriteError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Helper to extract user ID in handlers
func UserID(ctx context.Context) string {
	if uid, ok := ctx.Value(userIDKey).(string); ok {
		return uid
	}
	return ""
}
