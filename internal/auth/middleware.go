package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/isdelr/referral-be/internal/models"
	"github.com/rs/zerolog/hlog"
)

type contextKey string

const userContextKey = contextKey("user")

// SessionResolver turns a bearer token into the user it belongs to.
type SessionResolver interface {
	ResolveActive(ctx context.Context, token string) (models.User, error)
}

// Middleware authenticates requests carrying an "Authorization: Bearer" header.
type Middleware struct {
	sessions SessionResolver
}

// NewMiddleware creates the authentication middleware.
func NewMiddleware(sessions SessionResolver) *Middleware {
	return &Middleware{sessions: sessions}
}

// RequireActiveUser rejects requests without a valid token for an active user
// and stores the resolved user in the request context.
func (m *Middleware) RequireActiveUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			unauthorized(w, "Not authenticated")
			return
		}

		user, err := m.sessions.ResolveActive(r.Context(), token)
		switch {
		case err == nil:
		case errors.Is(err, models.ErrInvalidToken):
			unauthorized(w, "Could not validate credentials")
			return
		case errors.Is(err, models.ErrNotFound):
			writeDetail(w, http.StatusForbidden, "Inactive user")
			return
		default:
			hlog.FromRequest(r).Error().Err(err).Msg("Failed to resolve session")
			writeDetail(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// UserFromContext returns the user stored by the middleware.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userContextKey).(models.User)
	return user, ok
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeDetail(w, http.StatusUnauthorized, detail)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
