// Package shared contains common domain types, errors, and value objects
// that are used across all domain packages.
package shared

import (
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// Login Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Login is a GitHub account login.
type Login string

// GitHub logins: 1-39 chars, alphanumeric or single hyphens, no leading/trailing hyphen.
var loginRegex = regexp.MustCompile(`^[a-zA-Z0-9](?:[a-zA-Z0-9]|-[a-zA-Z0-9]){0,38}$`)

// IsValid checks if the login matches GitHub's login rules.
func (l Login) IsValid() bool {
	return loginRegex.MatchString(string(l))
}

// String returns the string representation.
func (l Login) String() string {
	return string(l)
}

// Normalize returns the lowercase form used for upstream lookups.
func (l Login) Normalize() Login {
	return Login(strings.ToLower(string(l)))
}

// NewLogin creates a new Login with validation.
func NewLogin(raw string) (Login, error) {
	l := Login(strings.TrimSpace(raw))
	if l == "" {
		return "", WrapError("profile", "Validate", ErrEmptyValue, "username is required", ErrInvalidLogin)
	}
	if !l.IsValid() {
		return "", ErrInvalidLogin
	}
	return l.Normalize(), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Count Value Object
// ═══════════════════════════════════════════════════════════════════════════

// NonNegative clamps a raw upstream counter to zero. Negative counters are a
// precondition violation normalized once at the aggregation boundary.
func NonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
