package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/devoverflow/overflow-server/internal/auth"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// userIDKey is the context key for the authenticated user ID.
const userIDKey ctxKey = "userID"

// UserID returns the authenticated user ID from context, or "" for an
// anonymous request. Services decide whether anonymity is allowed.
func UserID(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}

// setUserID stores the user ID in context.
func setUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// bearerToken extracts the token from an "Authorization: Bearer ..." header.
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// authMiddleware returns a middleware that validates Bearer tokens and stores user ID in context.
// If no token is present or invalid, continues without user in context.
func authMiddleware(tokens *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" || tokens == nil {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.VerifyAccessToken(token)
			if err != nil {
				// Invalid token - continue without user (service will reject if identity is required)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(setUserID(r.Context(), claims.UserID)))
		})
	}
}

// streamUser resolves the user behind an event stream. Browsers cannot set
// headers on EventSource, so a token query parameter is accepted as well.
func (s *Server) streamUser(r *http.Request) string {
	if userID := UserID(r.Context()); userID != "" {
		return userID
	}
	token := r.URL.Query().Get("token")
	if token == "" || s.tokens == nil {
		return ""
	}
	claims, err := s.tokens.VerifyAccessToken(token)
	if err != nil {
		return ""
	}
	return claims.UserID
}
