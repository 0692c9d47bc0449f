// Package auth is the authentication collaborator: it validates
// credentials and binds an account identity to the session. Authorization
// decisions live in internal/authz and only ever see the session identity
// this package established.
package auth

import "time"

// User represents an account that can sign in.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
