// Package middleware contains request middleware: caller resolution from
// bearer tokens and request logging.
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tomasen/realip"

	"github.com/plaza-net/plaza/internal/auth"
	"github.com/plaza-net/plaza/internal/entities"
	"github.com/plaza-net/plaza/internal/storage"
)

type contextKey string

const (
	callerKey    contextKey = "caller"
	sessionIDKey contextKey = "session_id"
)

// WithCaller puts the caller and its session id into the context.
func WithCaller(ctx context.Context, c *entities.Caller, sessionID string) context.Context {
	ctx = context.WithValue(ctx, callerKey, c)
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// CallerFromContext returns the caller resolved by Auth, nil for anonymous
// requests.
func CallerFromContext(ctx context.Context) *entities.Caller {
	c, _ := ctx.Value(callerKey).(*entities.Caller)
	return c
}

// SessionIDFromContext returns the session id of the caller's token.
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey).(string)
	return id
}

// Auth resolves the request's caller from the Authorization header. Requests
// without the header pass through as anonymous; requests with a malformed,
// expired or revoked token are rejected.
func Auth(s storage.Storage, t *auth.Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token := strings.TrimPrefix(header, "Bearer ")
			if token == header {
				http.Error(w, `{"error":"invalid authorization header"}`, http.StatusUnauthorized)
				return
			}

			userID, sessionID, err := t.Parse(token)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			// the session row is the revocation check, logout deletes it
			u, err := s.GetSessionUser(r.Context(), sessionID)
			if err != nil || u.ID != userID {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := WithCaller(r.Context(), &entities.Caller{
				ID:       u.ID,
				Username: u.Username,
				Admin:    u.Admin,
			}, sessionID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Logger logs every request with its real client IP, method, path, and
// duration.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		logrus.WithFields(logrus.Fields{
			"ip":       realip.FromRequest(r),
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start),
		}).Info("request handled")
	})
}
