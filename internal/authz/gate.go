package authz

import (
	"context"
	"net/http"
	"strings"

	"github.com/quantfolio/quantfolio/internal/platform/httpx"
)

// DenialBody is the JSON payload written for a denied request. Role names
// appear in the message as a debugging aid; they are not secret.
type DenialBody struct {
	Error string `json:"error"`
}

// Result is the outcome of a gate check. When OK is false, Status and Body
// describe the HTTP denial the calling route must return unmodified so
// status codes and body shape stay uniform across every handler.
type Result struct {
	OK     bool
	Status int
	Body   DenialBody
}

// Write renders a denial to w. It is a no-op for success results.
func (res Result) Write(w http.ResponseWriter) {
	if res.OK {
		return
	}
	httpx.JSON(w, res.Status, res.Body)
}

func granted() Result {
	return Result{OK: true}
}

func unauthorized() Result {
	return Result{
		Status: http.StatusUnauthorized,
		Body:   DenialBody{Error: "Unauthorized"},
	}
}

func forbidden(name string) Result {
	return Result{
		Status: http.StatusForbidden,
		Body:   DenialBody{Error: "Forbidden (" + name + ")"},
	}
}

// HasRole reports whether p holds role. A nil principal never holds any
// role. A non-nil error means the assignment lookup failed, not that access
// was denied.
func (s *Store) HasRole(ctx context.Context, p *Principal, role Role) (bool, error) {
	if p == nil {
		return false, nil
	}
	roles, err := s.Resolve(ctx, p)
	if err != nil {
		return false, err
	}
	_, ok := roles[role]
	return ok, nil
}

// RequireRole checks a single role and shapes the denial response.
func (s *Store) RequireRole(ctx context.Context, p *Principal, role Role) (Result, error) {
	if p == nil {
		return unauthorized(), nil
	}
	ok, err := s.HasRole(ctx, p, role)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return forbidden(string(role)), nil
	}
	return granted(), nil
}

// RequireAnyRole succeeds when p holds at least one of roles. The denial
// names the full candidate list.
func (s *Store) RequireAnyRole(ctx context.Context, p *Principal, roles []Role) (Result, error) {
	if p == nil {
		return unauthorized(), nil
	}
	resolved, err := s.Resolve(ctx, p)
	if err != nil {
		return Result{}, err
	}
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		if _, ok := resolved[role]; ok {
			return granted(), nil
		}
		names = append(names, string(role))
	}
	return forbidden(strings.Join(names, ",")), nil
}
