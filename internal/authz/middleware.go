package authz

import (
	"log/slog"
	"net/http"

	"github.com/quantfolio/quantfolio/internal/platform/httpx"
	"github.com/quantfolio/quantfolio/internal/shared"
)

// PrincipalFromSession converts the session identity into a Principal.
// Returns nil for anonymous sessions.
func PrincipalFromSession(sess *shared.Session) *Principal {
	if sess == nil || !sess.Authenticated() {
		return nil
	}
	return &Principal{
		ID:    sess.UserID(),
		Email: sess.UserEmail(),
		Name:  sess.UserName(),
	}
}

// Middleware adapts the gate to chi route wiring. Every privileged route
// group mounts one of these so denial shaping stays in one place.
type Middleware struct {
	Store  *Store
	Logger *slog.Logger
}

// Require gates the wrapped handler on a single role.
func (m Middleware) Require(role Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromSession(shared.SessionFromContext(r.Context()))
			res, err := m.Store.RequireRole(r.Context(), principal, role)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("authz require role", slog.String("role", string(role)), slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			if !res.OK {
				res.Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny gates the wrapped handler on holding at least one of roles.
func (m Middleware) RequireAny(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromSession(shared.SessionFromContext(r.Context()))
			res, err := m.Store.RequireAnyRole(r.Context(), principal, roles)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("authz require any role", slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			if !res.OK {
				res.Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
