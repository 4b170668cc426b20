// internal/middleware/auth.go
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/peerlingo/peerlingo/internal/auth"
	"github.com/peerlingo/peerlingo/internal/database"
	"github.com/peerlingo/peerlingo/internal/models"
)

// SessionCookieName is the HTTP-only cookie carrying the session token.
const SessionCookieName = "auth_token"

type contextKey struct{}

var userKey contextKey

// UserFinder resolves a verified token subject to a live account.
type UserFinder interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// RequireAuth guards a handler behind the session credential. A missing,
// invalid, expired or stale token yields 401 with the cookie cleared; on
// success the resolved user is attached to the request context. A store
// failure while resolving the user is a 500 and keeps the cookie: the
// credential may still be good once the store recovers. The guard never
// mutates user state.
func RequireAuth(sessions *auth.Service, users UserFinder, logger *logrus.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil {
				unauthorized(w, "Unauthorized - No token provided")
				return
			}

			userID, err := sessions.VerifyToken(cookie.Value)
			if err != nil {
				unauthorized(w, "Unauthorized - Invalid or expired token")
				return
			}

			user, err := users.GetUserByID(r.Context(), userID)
			if errors.Is(err, database.ErrNotFound) {
				logger.WithField("user_id", userID).Debug("session resolved to missing user")
				unauthorized(w, "Unauthorized - User no longer exists")
				return
			}
			if err != nil {
				logger.WithField("user_id", userID).WithError(err).Error("failed to resolve session user")
				writeJSONError(w, http.StatusInternalServerError, "Internal Server Error")
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFrom returns the authenticated user attached by RequireAuth, or nil.
func UserFrom(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}

// WithUser attaches a user to the context. Intended for handler tests that
// bypass the guard.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// ClearSessionCookie expires the session cookie on the client.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		HttpOnly: true,
		Path:     "/",
		MaxAge:   -1,
	})
}

func unauthorized(w http.ResponseWriter, msg string) {
	ClearSessionCookie(w)
	writeJSONError(w, http.StatusUnauthorized, msg)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
