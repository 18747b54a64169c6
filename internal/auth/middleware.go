package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/biolinq/biolinq/internal/models"
)

type ctxKey struct{}

func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// CurrentUser returns the user resolved for this request, or nil.
func CurrentUser(ctx context.Context) *models.User {
	u, _ := ctx.Value(ctxKey{}).(*models.User)
	return u
}

// Middleware resolves the current user once per request. Requests without a
// valid session continue anonymously.
func (m *Manager) Middleware(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := tokenFromRequest(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			u, err := m.Authenticate(r.Context(), raw)
			if err != nil {
				if err != ErrInvalidSession {
					log.Error().Err(err).Msg("authenticate session")
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

// RequireUser rejects anonymous requests: GETs are redirected to loginURL,
// everything else gets a 401 JSON envelope.
func RequireUser(loginURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if CurrentUser(r.Context()) != nil {
				next.ServeHTTP(w, r)
				return
			}
			if r.Method == http.MethodGet {
				http.Redirect(w, r, loginURL+"?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "UNAUTHORIZED"})
		})
	}
}

// RequireAdmin allows only users for which isAdmin returns true.
func RequireAdmin(isAdmin func(email string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := CurrentUser(r.Context())
			if u == nil || !isAdmin(u.Email) {
				http.NotFound(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
