package auth

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the JWT claims presented by API clients.
type Claims struct {
	jwt.RegisteredClaims
	ClientID string   `json:"client_id"`
	Scopes   []string `json:"scopes"`
}

// HasScope checks if the claims grant scope. The admin scope grants all.
func (c Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope) || slices.Contains(c.Scopes, ScopeAdmin)
}

// Scope constants
const (
	ScopeScan     = "scan"
	ScopeFeedback = "feedback"
	ScopeAdmin    = "admin"
)
