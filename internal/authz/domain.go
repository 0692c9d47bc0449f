// Package authz resolves the set of roles held by an authenticated
// principal and gates the privileged route surface. Roles come from three
// sources merged per request: a development bypass flag, static allow-lists
// configured at startup, and persisted role assignments read through a
// short-lived cache. Authentication itself (sign-in, session issuance) is
// the session layer's concern; this package only consumes its identity.
package authz

import "strings"

// Role is a capability tag checked by privileged routes.
type Role string

const (
	// RoleResearcher may queue backtests and promote strategies.
	RoleResearcher Role = "researcher"
	// RoleBotOperator may inspect and command trading bots.
	RoleBotOperator Role = "botOperator"
)

// KnownRoles lists every role a route may require.
func KnownRoles() []Role {
	return []Role{RoleResearcher, RoleBotOperator}
}

// Persisted assignment values stored in role_assignments.role. Admin is
// never resolved as a role of its own; it expands to every known role.
const (
	AssignmentAdmin       = "ADMIN"
	AssignmentResearcher  = "RESEARCHER"
	AssignmentBotOperator = "BOT_OPERATOR"
)

// RolesForAssignment maps a persisted assignment value to the roles it
// grants. Unknown values grant nothing.
func RolesForAssignment(value string) []Role {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case AssignmentAdmin:
		return KnownRoles()
	case AssignmentResearcher:
		return []Role{RoleResearcher}
	case AssignmentBotOperator:
		return []Role{RoleBotOperator}
	default:
		return nil
	}
}

// Principal is the authenticated entity for a request. Any field may be
// empty; a nil Principal means no authenticated session. It lives for one
// request and is never persisted here.
type Principal struct {
	ID    string
	Email string
	Name  string
}
