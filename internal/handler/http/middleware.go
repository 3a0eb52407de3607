package http

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shopcore/backend/internal/domain"
	"github.com/shopcore/backend/internal/session"
	"github.com/shopcore/backend/pkg/httputil"
	"github.com/shopcore/backend/pkg/middleware"
)

type contextKey string

const sessionContextKey contextKey = "session"

// SessionReader resolves session cookies. Satisfied by *session.Store.
type SessionReader interface {
	Get(ctx context.Context, id string) (*session.Session, error)
}

// SessionFromContext returns the authenticated session, if any.
func SessionFromContext(ctx context.Context) (*session.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey).(*session.Session)
	return sess, ok
}

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	sess, ok := SessionFromContext(ctx)
	if !ok {
		return domain.Principal{}, false
	}
	return sess.Principal, true
}

// Authenticate resolves the session cookie and attaches the session to the
// request context. Requests without a live session get 401.
func Authenticate(sessions SessionReader, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				writeUnauthorized(w)
				return
			}

			sess, err := sessions.Get(r.Context(), cookie.Value)
			if err != nil {
				writeUnauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, sess)
			ctx = middleware.WithIdentity(ctx, sess.Principal.ID, string(sess.Principal.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole allows only the listed roles through. Must run after
// Authenticate.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeUnauthorized(w)
				return
			}

			for _, role := range roles {
				if principal.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeForbidden(w)
		})
	}
}

// RequireMinimumRole allows roles at or above min in the hierarchy.
func RequireMinimumRole(min domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeUnauthorized(w)
				return
			}

			if !principal.Role.AtLeast(min) {
				writeForbidden(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermissions allows only principals whose role grants every listed
// permission.
func RequirePermissions(perms ...domain.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeUnauthorized(w)
				return
			}

			if !principal.Role.HasAllPermissions(perms...) {
				writeForbidden(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireOwnershipOrAdmin allows the request through when the path parameter
// named param equals the principal's own id, or when the principal is an
// admin. Must run after Authenticate.
func RequireOwnershipOrAdmin(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeUnauthorized(w)
				return
			}

			if principal.Role != domain.RoleAdmin && chi.URLParam(r, param) != principal.ID {
				writeForbidden(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CSRF enforces the double-submit check on state-changing requests: the
// X-CSRF-Token header must match the token stored in the session. Must run
// after Authenticate.
func CSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		sess, ok := SessionFromContext(r.Context())
		if !ok {
			writeUnauthorized(w)
			return
		}

		header := r.Header.Get(csrfHeaderName)
		if header == "" || subtle.ConstantTimeCompare([]byte(header), []byte(sess.CSRFToken)) != 1 {
			httputil.WriteJSON(w, http.StatusForbidden, httputil.Response{
				Success: false,
				Message: "invalid CSRF token",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ContentTypeJSON sets the response content type for API routes.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func writeUnauthorized(w http.ResponseWriter) {
	httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
		Success: false,
		Message: "authentication required",
	})
}

func writeForbidden(w http.ResponseWriter) {
	httputil.WriteJSON(w, http.StatusForbidden, httputil.Response{
		Success: false,
		Message: "insufficient permissions",
	})
}
